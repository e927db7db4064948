package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/role-portal/internal/domain"
)

func seedUser(id, email string, role domain.Role, status domain.Status, created time.Time) *domain.User {
	return &domain.User{
		ID:        id,
		Email:     email,
		FirstName: "First" + id,
		LastName:  "Last" + id,
		Role:      role,
		Status:    status,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestMemoryUserRepository_CRUD(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, seedUser("1", "A@B.com ", domain.RoleUser, domain.StatusActive, now)))

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		err := repo.Create(ctx, seedUser("2", "a@b.com", domain.RoleUser, domain.StatusActive, now))
		assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
	})

	t.Run("lookup normalizes email", func(t *testing.T) {
		u, err := repo.GetByEmail(ctx, "  a@B.COM")
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, "1", u.ID)
		assert.Equal(t, "a@b.com", u.Email)
	})

	t.Run("missing returns nil nil", func(t *testing.T) {
		u, err := repo.GetByID(ctx, "nope")
		assert.NoError(t, err)
		assert.Nil(t, u)
	})

	t.Run("returned users are copies", func(t *testing.T) {
		u, _ := repo.GetByID(ctx, "1")
		u.Role = domain.RoleAdmin
		again, _ := repo.GetByID(ctx, "1")
		assert.Equal(t, domain.RoleUser, again.Role)
	})

	t.Run("update profile", func(t *testing.T) {
		u, _ := repo.GetByID(ctx, "1")
		u.FirstName = "Changed"
		require.NoError(t, repo.Update(ctx, u))
		again, _ := repo.GetByID(ctx, "1")
		assert.Equal(t, "Changed", again.FirstName)

		assert.ErrorIs(t, repo.Update(ctx, &domain.User{ID: "missing"}), domain.ErrUserNotFound)
	})

	t.Run("profile update leaves password hash alone", func(t *testing.T) {
		stale, _ := repo.GetByID(ctx, "1")
		require.NoError(t, repo.UpdatePassword(ctx, "1", "new-hash"))

		stale.LastName = "Edited"
		require.NoError(t, repo.Update(ctx, stale))
		assert.Equal(t, "new-hash", stale.PasswordHash)

		again, _ := repo.GetByID(ctx, "1")
		assert.Equal(t, "new-hash", again.PasswordHash)
		assert.Equal(t, "Edited", again.LastName)

		assert.ErrorIs(t, repo.UpdatePassword(ctx, "missing", "x"), domain.ErrUserNotFound)
	})

	t.Run("role and status", func(t *testing.T) {
		u, err := repo.UpdateRole(ctx, "1", domain.RoleHR)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleHR, u.Role)

		u, err = repo.UpdateStatus(ctx, "1", domain.StatusSuspended)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSuspended, u.Status)
		assert.Equal(t, domain.RoleHR, u.Role)

		u, err = repo.UpdateRole(ctx, "missing", domain.RoleHR)
		assert.NoError(t, err)
		assert.Nil(t, u)
	})

	t.Run("last login", func(t *testing.T) {
		require.NoError(t, repo.TouchLastLogin(ctx, "1", now))
		u, _ := repo.GetByID(ctx, "1")
		require.NotNil(t, u.LastLoginAt)
		assert.True(t, u.LastLoginAt.Equal(now))
	})

	t.Run("delete", func(t *testing.T) {
		ok, err := repo.Delete(ctx, "1")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.Delete(ctx, "1")
		require.NoError(t, err)
		assert.False(t, ok)

		u, _ := repo.GetByEmail(ctx, "a@b.com")
		assert.Nil(t, u)
	})
}

func TestMemoryUserRepository_ListAndStats(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, seedUser("1", "one@x.com", domain.RoleUser, domain.StatusActive, base.AddDate(0, 0, -30))))
	require.NoError(t, repo.Create(ctx, seedUser("2", "two@x.com", domain.RoleHR, domain.StatusActive, base.AddDate(0, 0, -2))))
	require.NoError(t, repo.Create(ctx, seedUser("3", "three@x.com", domain.RoleAdmin, domain.StatusActive, base.AddDate(0, 0, -1))))
	require.NoError(t, repo.Create(ctx, seedUser("4", "four@x.com", domain.RoleUser, domain.StatusSuspended, base)))

	users, total, err := repo.List(ctx, domain.UserFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Equal(t, "4", users[0].ID, "newest first")

	users, total, err = repo.List(ctx, domain.UserFilter{Role: domain.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	users, total, err = repo.List(ctx, domain.UserFilter{Search: "THREE"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "3", users[0].ID)

	users, total, err = repo.List(ctx, domain.UserFilter{Limit: 2, Offset: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, users, 1)

	stats, err := repo.Stats(ctx, base.AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Equal(t, &domain.Stats{
		TotalUsers:          4,
		ActiveUsers:         3,
		HRUsers:             1,
		AdminUsers:          1,
		RecentRegistrations: 3,
	}, stats)
}

func TestMemoryUserRepository_ConcurrentRoleAndStatusUpdates(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, seedUser("1", "c@x.com", domain.RoleUser, domain.StatusActive, time.Now())))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := repo.UpdateRole(ctx, "1", domain.Roles[i%len(domain.Roles)])
			assert.NoError(t, err)
		}(i)
		go func(i int) {
			defer wg.Done()
			status := domain.StatusActive
			if i%2 == 0 {
				status = domain.StatusInactive
			}
			_, err := repo.UpdateStatus(ctx, "1", status)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	u, err := repo.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.True(t, u.Role.Valid())
	assert.Contains(t, []domain.Status{domain.StatusActive, domain.StatusInactive}, u.Status)
	assert.Equal(t, "c@x.com", u.Email, fmt.Sprintf("unrelated fields untouched: %+v", u))
}
