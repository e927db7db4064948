package authclient

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
)

// Route declares who may open a view. Roles empty means any signed-in user.
type Route struct {
	Path   string
	Roles  []string
	Public bool
}

// DefaultRoutes mirrors the portal's views
func DefaultRoutes() []Route {
	return []Route{
		{Path: "/login", Public: true},
		{Path: "/register", Public: true},
		{Path: "/unauthorized", Public: true},
		{Path: "/"},
		{Path: "/hr", Roles: []string{"hr", "admin"}},
		{Path: "/admin", Roles: []string{"admin"}},
	}
}

// Navigation is the outcome of a route check
type Navigation struct {
	Allow    bool
	Redirect string
}

// RouteGuard decides whether a view may render for the current session.
// It reads the role from the access token without verifying the signature,
// so it only spares the user a forbidden view; the server still decides.
type RouteGuard struct {
	routes []Route
	now    func() time.Time
}

// NewRouteGuard sorts routes so the longest matching prefix wins
func NewRouteGuard(routes []Route, now func() time.Time) *RouteGuard {
	if now == nil {
		now = time.Now
	}
	sorted := append([]Route(nil), routes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Path) > len(sorted[j].Path)
	})
	return &RouteGuard{routes: sorted, now: now}
}

// Check evaluates navigation to path for the given pair
func (g *RouteGuard) Check(tokens *Tokens, path string) Navigation {
	route, ok := g.match(path)
	if !ok || route.Public {
		return Navigation{Allow: true}
	}
	return Evaluate(tokens, route.Roles, path, g.now())
}

func (g *RouteGuard) match(path string) (Route, bool) {
	for _, r := range g.routes {
		if r.Path == "/" || path == r.Path || strings.HasPrefix(path, strings.TrimRight(r.Path, "/")+"/") {
			return r, true
		}
	}
	return Route{}, false
}

type peekClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Evaluate is the guard decision for one view. A session is absent when
// there is no pair or the refresh token has expired; an expired access token
// alone is left to the Session's refresh.
func Evaluate(tokens *Tokens, required []string, requested string, now time.Time) Navigation {
	login := Navigation{Redirect: LoginPath + "?next=" + url.QueryEscape(requested)}
	if tokens == nil || tokens.AccessToken == "" || tokens.RefreshToken == "" {
		return login
	}
	if expired(tokens.RefreshToken, now) {
		return login
	}

	role, ok := peekRole(tokens.AccessToken)
	if !ok {
		return login
	}
	if len(required) == 0 {
		return Navigation{Allow: true}
	}
	for _, r := range required {
		if r == role {
			return Navigation{Allow: true}
		}
	}
	return Navigation{Redirect: UnauthorizedPath}
}

func peekRole(raw string) (string, bool) {
	var claims peekClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return "", false
	}
	return claims.Role, claims.Role != ""
}

func expired(raw string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return true
	}
	return claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time)
}
