package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prohmpiriya/role-portal/internal/domain"
	"github.com/prohmpiriya/role-portal/internal/httperr"
	"github.com/prohmpiriya/role-portal/internal/metrics"
	"github.com/prohmpiriya/role-portal/internal/policy"
	"github.com/prohmpiriya/role-portal/pkg/logger"
	"github.com/prohmpiriya/role-portal/pkg/response"
)

const (
	// PrincipalKey is the context key for the authenticated caller
	PrincipalKey = "principal"
	// UserIDKey and RoleKey mirror the principal for log and trace enrichment
	UserIDKey = "user_id"
	RoleKey   = "role"
)

// Authenticator resolves an access token to a live principal
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*domain.Principal, error)
}

// Guard builds the authenticate and authorize steps of the request pipeline
type Guard struct {
	auth    Authenticator
	metrics *metrics.Metrics
	log     *logger.Logger
}

// NewGuard creates a Guard. m may be nil.
func NewGuard(auth Authenticator, m *metrics.Metrics, log *logger.Logger) *Guard {
	if log == nil {
		log = logger.Get()
	}
	return &Guard{auth: auth, metrics: m, log: log}
}

// Authenticate verifies the bearer token and re-checks the identity's live status.
// Every failure is a 401; the envelope code tells a client whether refreshing can help.
func (g *Guard) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			httperr.Abort(c, err)
			return
		}

		principal, err := g.auth.Authenticate(c.Request.Context(), raw)
		if err != nil {
			kind := domain.KindOf(err)
			if kind == domain.KindAccountDisabled || kind == domain.KindBadSignature {
				g.log.WithContext(c.Request.Context()).Warn("authentication rejected",
					zap.String("code", httperr.Code(err)),
					zap.String("path", c.FullPath()),
					zap.String("ip", c.ClientIP()),
				)
			}
			httperr.Abort(c, err)
			return
		}

		c.Set(PrincipalKey, principal)
		c.Set(UserIDKey, principal.ID)
		c.Set(RoleKey, string(principal.Role))
		c.Next()
	}
}

// Authorize evaluates op against the caller. targetParam names the route
// parameter holding the target identity for self-or-admin operations.
func (g *Guard) Authorize(op policy.Operation, targetParam string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			httperr.Abort(c, domain.ErrMissingToken)
			return
		}

		req := policy.Request{
			Operation: op,
			CallerID:  principal.ID,
			Role:      principal.Role,
		}
		if targetParam != "" {
			req.TargetID = c.Param(targetParam)
		}

		decision := policy.Decide(req)
		g.metrics.ObserveDecision(string(op), decision.Allow)
		if !decision.Allow {
			g.log.WithContext(c.Request.Context()).Warn("access denied",
				zap.String("operation", string(op)),
				zap.String("user_id", principal.ID),
				zap.String("role", string(principal.Role)),
				zap.String("target_id", req.TargetID),
				zap.String("reason", decision.Reason),
			)
			response.Abort(c, http.StatusForbidden, httperr.CodeForbidden, decision.Reason)
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the caller set by Authenticate
func GetPrincipal(c *gin.Context) (*domain.Principal, bool) {
	v, exists := c.Get(PrincipalKey)
	if !exists {
		return nil, false
	}
	p, ok := v.(*domain.Principal)
	return p, ok && p != nil
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", domain.ErrMissingToken
	}
	scheme, raw, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", domain.ErrMalformedToken
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", domain.ErrMissingToken
	}
	return raw, nil
}
