package token

import (
	"fmt"

	"github.com/prohmpiriya/role-portal/internal/domain"
)

// Issuer produces access/refresh pairs for authenticated identities
type Issuer struct {
	codec *Codec
}

// NewIssuer creates an Issuer backed by codec
func NewIssuer(codec *Codec) *Issuer {
	return &Issuer{codec: codec}
}

// Codec returns the underlying codec
func (i *Issuer) Codec() *Codec {
	return i.codec
}

// IssueInitialPair issues a fresh pair for user.
// The caller must have verified the password already; inactive accounts are refused.
func (i *Issuer) IssueInitialPair(user *domain.User) (*domain.TokenPair, error) {
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	if !user.IsActive() {
		return nil, domain.ErrAccountDisabled
	}

	access, _, err := i.codec.Issue(user, domain.TokenAccess)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, refreshClaims, err := i.codec.Issue(user, domain.TokenRefresh)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		ExpiresIn:        int64(i.codec.TTL(domain.TokenAccess).Seconds()),
		RefreshExpiresAt: refreshClaims.ExpiresAt,
		RefreshTokenID:   refreshClaims.TokenID,
	}, nil
}
