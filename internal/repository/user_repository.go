package repository

import (
	"context"
	"time"

	"github.com/prohmpiriya/role-portal/internal/domain"
)

// UserRepository is the credential store contract.
// Lookups return (nil, nil) when the identity does not exist.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Update persists profile fields only; the password hash is left untouched
	Update(ctx context.Context, user *domain.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// UpdateRole and UpdateStatus change a single column and return the stored row
	UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.User, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status) (*domain.User, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	// Delete reports whether a row was removed
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, filter domain.UserFilter) ([]*domain.User, int, error)
	Stats(ctx context.Context, since time.Time) (*domain.Stats, error)
	Ping(ctx context.Context) error
}

// RefreshStore records which refresh tokens are still redeemable.
// A token id is single-use: Consume succeeds at most once per Save.
type RefreshStore interface {
	Save(ctx context.Context, userID, tokenID string, expiresAt time.Time) error
	// Consume atomically removes tokenID and reports whether it was live and owned by userID
	Consume(ctx context.Context, userID, tokenID string) (bool, error)
	Revoke(ctx context.Context, userID, tokenID string) error
	RevokeAll(ctx context.Context, userID string) error
}
