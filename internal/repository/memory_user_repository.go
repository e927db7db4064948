package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prohmpiriya/role-portal/internal/domain"
)

// MemoryUserRepository is an in-process UserRepository.
// All access is serialized by a single mutex; stored users are copied in and out.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[string]string
	now     func() time.Time
}

// NewMemoryUserRepository creates an empty store
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func clone(u *domain.User) *domain.User {
	c := *u
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		c.LastLoginAt = &t
	}
	return &c
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := domain.NormalizeEmail(user.Email)
	if _, exists := r.byEmail[email]; exists {
		return domain.ErrUserAlreadyExists
	}
	if _, exists := r.byID[user.ID]; exists {
		return domain.ErrUserAlreadyExists
	}
	stored := clone(user)
	stored.Email = email
	r.byID[user.ID] = stored
	r.byEmail[email] = user.ID
	return nil
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return clone(u), nil
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	return clone(r.byID[id]), nil
}

func (r *MemoryUserRepository) Update(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[user.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.UpdatedAt = r.now()
	stored.FirstName = user.FirstName
	stored.LastName = user.LastName
	stored.PhoneNumber = user.PhoneNumber
	stored.Address = user.Address
	stored.UpdatedAt = user.UpdatedAt
	user.PasswordHash = stored.PasswordHash
	return nil
}

func (r *MemoryUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	stored.PasswordHash = passwordHash
	stored.UpdatedAt = r.now()
	return nil
}

func (r *MemoryUserRepository) UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	stored.Role = role
	stored.UpdatedAt = r.now()
	return clone(stored), nil
}

func (r *MemoryUserRepository) UpdateStatus(ctx context.Context, id string, status domain.Status) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	stored.Status = status
	stored.UpdatedAt = r.now()
	return clone(stored), nil
}

func (r *MemoryUserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if stored, ok := r.byID[id]; ok {
		stored.LastLoginAt = &at
	}
	return nil
}

func (r *MemoryUserRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return false, nil
	}
	delete(r.byEmail, stored.Email)
	delete(r.byID, id)
	return true, nil
}

func (r *MemoryUserRepository) List(ctx context.Context, filter domain.UserFilter) ([]*domain.User, int, error) {
	r.mu.RLock()
	matched := make([]*domain.User, 0, len(r.byID))
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	for _, u := range r.byID {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.Status != "" && u.Status != filter.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(u.Email, search) &&
			!strings.Contains(strings.ToLower(u.FirstName), search) &&
			!strings.Contains(strings.ToLower(u.LastName), search) {
			continue
		}
		matched = append(matched, clone(u))
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	start := filter.Offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *MemoryUserRepository) Stats(ctx context.Context, since time.Time) (*domain.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := &domain.Stats{TotalUsers: len(r.byID)}
	for _, u := range r.byID {
		if u.Status == domain.StatusActive {
			s.ActiveUsers++
		}
		switch u.Role {
		case domain.RoleHR:
			s.HRUsers++
		case domain.RoleAdmin:
			s.AdminUsers++
		}
		if !u.CreatedAt.Before(since) {
			s.RecentRegistrations++
		}
	}
	return s, nil
}

func (r *MemoryUserRepository) Ping(ctx context.Context) error {
	return nil
}
