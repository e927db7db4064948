package token

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/role-portal/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCodec(t *testing.T, clock *fakeClock) *Codec {
	t.Helper()
	codec, err := NewCodec(Config{
		Secret:     "test-secret-key-that-is-long-enough-1234",
		Issuer:     "role-portal",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		Now:        clock.Now,
	})
	require.NoError(t, err)
	return codec
}

func testUser(role domain.Role) *domain.User {
	return &domain.User{
		ID:     "user-1",
		Email:  "a@b.com",
		Role:   role,
		Status: domain.StatusActive,
	}
}

func TestNewCodec_Validation(t *testing.T) {
	_, err := NewCodec(Config{AccessTTL: time.Minute, RefreshTTL: time.Hour})
	assert.Error(t, err)

	_, err = NewCodec(Config{Secret: "x", AccessTTL: 0, RefreshTTL: time.Hour})
	assert.Error(t, err)
}

func TestCodec_IssueThenVerify(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	codec := newTestCodec(t, clock)

	for _, role := range domain.Roles {
		for _, kind := range []domain.TokenKind{domain.TokenAccess, domain.TokenRefresh} {
			t.Run(string(role)+"/"+string(kind), func(t *testing.T) {
				raw, issued, err := codec.Issue(testUser(role), kind)
				require.NoError(t, err)

				claims, err := codec.Verify(raw)
				require.NoError(t, err)
				assert.Equal(t, "user-1", claims.SubjectID)
				assert.Equal(t, role, claims.Role)
				assert.Equal(t, kind, claims.Kind)
				assert.Equal(t, issued.TokenID, claims.TokenID)
				assert.Equal(t, clock.Now().Add(codec.TTL(kind)).Unix(), claims.ExpiresAt.Unix())
			})
		}
	}
}

func TestCodec_ExpiredAfterClockAdvance(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	codec := newTestCodec(t, clock)

	access, _, err := codec.Issue(testUser(domain.RoleUser), domain.TokenAccess)
	require.NoError(t, err)
	refresh, _, err := codec.Issue(testUser(domain.RoleUser), domain.TokenRefresh)
	require.NoError(t, err)

	clock.Advance(15*time.Minute - time.Second)
	_, err = codec.Verify(access)
	require.NoError(t, err)

	// now == expiresAt counts as expired
	clock.Advance(time.Second)
	_, err = codec.Verify(access)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
	assert.Equal(t, domain.KindExpired, domain.KindOf(err))

	_, err = codec.Verify(refresh)
	require.NoError(t, err)

	clock.Advance(7 * 24 * time.Hour)
	_, err = codec.Verify(refresh)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestCodec_Malformed(t *testing.T) {
	codec := newTestCodec(t, &fakeClock{now: time.Now()})

	for _, raw := range []string{"", "not-a-token", "a.b", "a.b.c"} {
		_, err := codec.Verify(raw)
		assert.ErrorIs(t, err, domain.ErrMalformedToken, "input %q", raw)
	}
}

func TestCodec_BadSignature(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	codec := newTestCodec(t, clock)

	raw, _, err := codec.Issue(testUser(domain.RoleUser), domain.TokenAccess)
	require.NoError(t, err)

	t.Run("tampered signature", func(t *testing.T) {
		parts := strings.Split(raw, ".")
		sig := []byte(parts[2])
		if sig[0] == 'A' {
			sig[0] = 'B'
		} else {
			sig[0] = 'A'
		}
		tampered := parts[0] + "." + parts[1] + "." + string(sig)

		_, err := codec.Verify(tampered)
		assert.ErrorIs(t, err, domain.ErrBadSignature)
	})

	t.Run("wrong key", func(t *testing.T) {
		other, err := NewCodec(Config{
			Secret:     "another-secret-key-that-is-long-enough",
			Issuer:     "role-portal",
			AccessTTL:  time.Minute,
			RefreshTTL: time.Hour,
			Now:        clock.Now,
		})
		require.NoError(t, err)

		_, err = other.Verify(raw)
		assert.ErrorIs(t, err, domain.ErrBadSignature)
	})

	t.Run("unsupported algorithm", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"sub":  "user-1",
			"role": "admin",
			"kind": "access",
			"exp":  clock.Now().Add(time.Hour).Unix(),
		})
		unsigned, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = codec.Verify(unsigned)
		assert.ErrorIs(t, err, domain.ErrBadSignature)
	})
}

func TestCodec_VerifyKind(t *testing.T) {
	codec := newTestCodec(t, &fakeClock{now: time.Now()})

	access, _, err := codec.Issue(testUser(domain.RoleHR), domain.TokenAccess)
	require.NoError(t, err)

	_, err = codec.VerifyKind(access, domain.TokenRefresh)
	assert.ErrorIs(t, err, domain.ErrWrongTokenKind)

	claims, err := codec.VerifyKind(access, domain.TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleHR, claims.Role)
}

func TestIssuer_IssueInitialPair(t *testing.T) {
	codec := newTestCodec(t, &fakeClock{now: time.Now()})
	issuer := NewIssuer(codec)

	t.Run("active user gets a verifiable pair", func(t *testing.T) {
		pair, err := issuer.IssueInitialPair(testUser(domain.RoleAdmin))
		require.NoError(t, err)
		assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
		assert.Equal(t, int64(900), pair.ExpiresIn)

		access, err := codec.VerifyKind(pair.AccessToken, domain.TokenAccess)
		require.NoError(t, err)
		refresh, err := codec.VerifyKind(pair.RefreshToken, domain.TokenRefresh)
		require.NoError(t, err)
		assert.Equal(t, access.SubjectID, refresh.SubjectID)
		assert.Equal(t, access.Role, refresh.Role)
		assert.Equal(t, pair.RefreshTokenID, refresh.TokenID)
	})

	t.Run("disabled statuses are refused", func(t *testing.T) {
		for _, status := range []domain.Status{domain.StatusInactive, domain.StatusSuspended} {
			u := testUser(domain.RoleUser)
			u.Status = status
			_, err := issuer.IssueInitialPair(u)
			assert.ErrorIs(t, err, domain.ErrAccountDisabled)
		}
	})

	t.Run("two pairs issued in the same second differ", func(t *testing.T) {
		a, err := issuer.IssueInitialPair(testUser(domain.RoleUser))
		require.NoError(t, err)
		b, err := issuer.IssueInitialPair(testUser(domain.RoleUser))
		require.NoError(t, err)
		assert.NotEqual(t, a.AccessToken, b.AccessToken)
		assert.NotEqual(t, a.RefreshToken, b.RefreshToken)
	})
}
