package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/role-portal/internal/domain"
	"github.com/prohmpiriya/role-portal/internal/dto"
	"github.com/prohmpiriya/role-portal/internal/events"
	"github.com/prohmpiriya/role-portal/internal/repository"
	"github.com/prohmpiriya/role-portal/pkg/logger"
)

func strPtr(s string) *string { return &s }

func TestUserService_Profile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resp := env.register(t, "a@b.com")

	u, err := env.user.GetProfile(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", u.Email)

	updated, err := env.user.UpdateProfile(ctx, resp.User.ID, domain.ProfileUpdate{
		FirstName: strPtr("  Alice "),
		Address:   &domain.Address{City: "Bangkok", Country: "TH"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice", updated.FirstName)
	assert.Equal(t, "User", updated.LastName)
	assert.Equal(t, "Bangkok", updated.Address.City)

	stored, err := env.user.GetProfile(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", stored.FirstName)
	assert.Contains(t, env.publisher.Types(), events.EventUserProfileUpdated)

	_, err = env.user.GetProfile(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserService_UpdateRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resp := env.register(t, "a@b.com")

	u, err := env.user.UpdateRole(ctx, "admin-1", resp.User.ID, domain.RoleHR)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleHR, u.Role)

	_, err = env.user.UpdateRole(ctx, "admin-1", "missing", domain.RoleHR)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = env.user.UpdateRole(ctx, "admin-1", resp.User.ID, domain.Role("owner"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Contains(t, env.publisher.Types(), events.EventUserRoleChanged)
}

func TestUserService_UpdateStatusRevokesRefresh(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resp := env.register(t, "a@b.com")

	u, err := env.user.UpdateStatus(ctx, "admin-1", resp.User.ID, domain.StatusSuspended)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuspended, u.Status)

	// reactivating does not bring the old refresh token back
	_, err = env.user.UpdateStatus(ctx, "admin-1", resp.User.ID, domain.StatusActive)
	require.NoError(t, err)
	_, err = env.auth.Refresh(ctx, resp.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrInvalidRefresh)

	_, err = env.user.UpdateStatus(ctx, "admin-1", "missing", domain.StatusActive)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserService_Delete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resp := env.register(t, "a@b.com")

	require.NoError(t, env.user.Delete(ctx, "admin-1", resp.User.ID))

	_, err := env.user.GetByID(ctx, resp.User.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	err = env.user.Delete(ctx, "admin-1", resp.User.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = env.auth.Refresh(ctx, resp.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrAccountDisabled)
	assert.Contains(t, env.publisher.Types(), events.EventUserDeleted)
}

func TestUserService_ListAndStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.register(t, "a@b.com")
	env.register(t, "b@b.com")
	hr := env.register(t, "hr@b.com")
	_, err := env.user.UpdateRole(ctx, "admin-1", hr.User.ID, domain.RoleHR)
	require.NoError(t, err)
	_, err = env.user.UpdateStatus(ctx, "admin-1", a.User.ID, domain.StatusInactive)
	require.NoError(t, err)

	users, total, err := env.user.List(ctx, domain.UserFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, users, 3)

	hrOnly, total, err := env.user.List(ctx, domain.UserFilter{Role: domain.RoleHR, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, hr.User.ID, hrOnly[0].ID)

	env.clock.Advance(time.Hour)
	stats, err := env.user.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalUsers)
	assert.Equal(t, 2, stats.ActiveUsers)
	assert.Equal(t, 1, stats.HRUsers)
	assert.Equal(t, 0, stats.AdminUsers)
	assert.Equal(t, 3, stats.RecentRegistrations)

	env.clock.Advance(8 * 24 * time.Hour)
	stats, err = env.user.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.RecentRegistrations)
}

// readHookRepo runs afterRead once, between a read and whatever write follows it
type readHookRepo struct {
	*repository.MemoryUserRepository
	once      sync.Once
	afterRead func()
}

func (r *readHookRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := r.MemoryUserRepository.GetByID(ctx, id)
	r.once.Do(r.afterRead)
	return u, err
}

func TestUserService_ProfileUpdateKeepsConcurrentPasswordChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resp := env.register(t, "a@b.com")

	repo := &readHookRepo{MemoryUserRepository: env.users}
	repo.afterRead = func() {
		err := env.auth.ChangePassword(ctx, resp.User.ID, &dto.ChangePasswordRequest{CurrentPassword: testPassword, NewPassword: "Xyz789#$"})
		require.NoError(t, err)
	}
	users := NewUserService(UserDeps{Users: repo, Refresh: env.refresh, Logger: logger.Nop(), Now: env.clock.Now})

	updated, err := users.UpdateProfile(ctx, resp.User.ID, domain.ProfileUpdate{FirstName: strPtr("Alice")})
	require.NoError(t, err)
	assert.Equal(t, "Alice", updated.FirstName)

	_, err = env.auth.Login(ctx, &dto.LoginRequest{Email: "a@b.com", Password: "Xyz789#$"})
	assert.NoError(t, err)
	_, err = env.auth.Login(ctx, &dto.LoginRequest{Email: "a@b.com", Password: testPassword})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}
