package authclient

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var guardNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func signed(t *testing.T, role string, exp time.Time) string {
	t.Helper()
	claims := peekClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("client-does-not-know-this"))
	require.NoError(t, err)
	return raw
}

func pairFor(t *testing.T, role string) *Tokens {
	return &Tokens{
		AccessToken:  signed(t, role, guardNow.Add(15*time.Minute)),
		RefreshToken: signed(t, "", guardNow.Add(24*time.Hour)),
	}
}

func TestRouteGuard_Check(t *testing.T) {
	g := NewRouteGuard(DefaultRoutes(), func() time.Time { return guardNow })

	expiredSession := &Tokens{
		AccessToken:  signed(t, "admin", guardNow.Add(-time.Hour)),
		RefreshToken: signed(t, "", guardNow.Add(-time.Minute)),
	}
	staleAccess := &Tokens{
		AccessToken:  signed(t, "hr", guardNow.Add(-time.Minute)),
		RefreshToken: signed(t, "", guardNow.Add(time.Hour)),
	}

	tests := []struct {
		name   string
		tokens *Tokens
		path   string
		want   Navigation
	}{
		{"public login", nil, "/login", Navigation{Allow: true}},
		{"no session on home", nil, "/", Navigation{Redirect: "/login?next=%2F"}},
		{"no session keeps destination", nil, "/admin/users", Navigation{Redirect: "/login?next=%2Fadmin%2Fusers"}},
		{"user on home", pairFor(t, "user"), "/", Navigation{Allow: true}},
		{"user on hr", pairFor(t, "user"), "/hr", Navigation{Redirect: UnauthorizedPath}},
		{"hr on hr", pairFor(t, "hr"), "/hr", Navigation{Allow: true}},
		{"admin on hr", pairFor(t, "admin"), "/hr/reports", Navigation{Allow: true}},
		{"hr on admin", pairFor(t, "hr"), "/admin", Navigation{Redirect: UnauthorizedPath}},
		{"admin on admin", pairFor(t, "admin"), "/admin", Navigation{Allow: true}},
		{"prefix is not a segment", pairFor(t, "user"), "/hrx", Navigation{Allow: true}},
		{"expired session", expiredSession, "/admin", Navigation{Redirect: "/login?next=%2Fadmin"}},
		{"expired access only", staleAccess, "/hr", Navigation{Allow: true}},
		{"garbage token", &Tokens{AccessToken: "x", RefreshToken: "y"}, "/", Navigation{Redirect: "/login?next=%2F"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Check(tt.tokens, tt.path))
		})
	}
}

func TestEvaluate_AnyRole(t *testing.T) {
	got := Evaluate(pairFor(t, "hr"), nil, "/", guardNow)
	assert.True(t, got.Allow)

	got = Evaluate(pairFor(t, ""), nil, "/", guardNow)
	assert.False(t, got.Allow)
	assert.Equal(t, "/login?next=%2F", got.Redirect)
}
