package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"

	"github.com/prohmpiriya/role-portal/internal/domain"
)

// Config holds signing material and lifetimes
type Config struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Now overrides the clock, used by tests
	Now func() time.Time
}

// Codec signs and verifies tokens. It holds no mutable state.
type Codec struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	parser     *jwt.Parser
}

type tokenClaims struct {
	Role string `json:"role"`
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

// NewCodec creates a Codec from cfg
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token secret is required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &Codec{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        now,
		parser:     jwt.NewParser(opts...),
	}, nil
}

// TTL returns the lifetime used for kind
func (c *Codec) TTL(kind domain.TokenKind) time.Duration {
	if kind == domain.TokenRefresh {
		return c.refreshTTL
	}
	return c.accessTTL
}

// Issue signs a token of the given kind for user
func (c *Codec) Issue(user *domain.User, kind domain.TokenKind) (string, *domain.Claims, error) {
	if user == nil || user.ID == "" {
		return "", nil, fmt.Errorf("issue %s token: missing subject", kind)
	}
	if kind != domain.TokenAccess && kind != domain.TokenRefresh {
		return "", nil, fmt.Errorf("issue token: %w", domain.ErrWrongTokenKind)
	}

	now := c.now()
	issuedAt := jwt.NewNumericDate(now)
	expiresAt := jwt.NewNumericDate(now.Add(c.TTL(kind)))
	jti := ulid.Make().String()

	claims := tokenClaims{
		Role: string(user.Role),
		Kind: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   user.ID,
			Issuer:    c.issuer,
			IssuedAt:  issuedAt,
			ExpiresAt: expiresAt,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign %s token: %w", kind, err)
	}

	return signed, &domain.Claims{
		TokenID:   jti,
		SubjectID: user.ID,
		Role:      user.Role,
		Kind:      kind,
		IssuedAt:  issuedAt.Time,
		ExpiresAt: expiresAt.Time,
	}, nil
}

// Verify checks the signature and expiry of raw and returns its claims.
// Failures wrap ErrMalformedToken, ErrBadSignature or ErrTokenExpired.
func (c *Codec) Verify(raw string) (*domain.Claims, error) {
	if raw == "" {
		return nil, domain.ErrMalformedToken
	}

	var claims tokenClaims
	_, err := c.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	kind := domain.TokenKind(claims.Kind)
	role := domain.Role(claims.Role)
	if claims.Subject == "" || !role.Valid() || (kind != domain.TokenAccess && kind != domain.TokenRefresh) {
		return nil, fmt.Errorf("%w: incomplete claims", domain.ErrMalformedToken)
	}

	out := &domain.Claims{
		TokenID:   claims.ID,
		SubjectID: claims.Subject,
		Role:      role,
		Kind:      kind,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

// VerifyKind verifies raw and additionally requires the given kind
func (c *Codec) VerifyKind(raw string, kind domain.TokenKind) (*domain.Claims, error) {
	claims, err := c.Verify(raw)
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: want %s, got %s", domain.ErrWrongTokenKind, kind, claims.Kind)
	}
	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", domain.ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", domain.ErrBadSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.ErrTokenExpired
	default:
		return fmt.Errorf("%w: %v", domain.ErrMalformedToken, err)
	}
}
