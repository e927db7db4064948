package repository

import (
	"context"
	"sync"
	"time"
)

type refreshEntry struct {
	userID    string
	expiresAt time.Time
}

// refreshSweepInterval bounds how often Save scans for expired entries
const refreshSweepInterval = time.Minute

// MemoryRefreshStore is a single-process RefreshStore. Expired entries are
// pruned by Save, at most once per refreshSweepInterval.
type MemoryRefreshStore struct {
	mu        sync.Mutex
	entries   map[string]refreshEntry
	now       func() time.Time
	nextSweep time.Time
}

// NewMemoryRefreshStore creates an empty store. A nil clock means time.Now.
func NewMemoryRefreshStore(now func() time.Time) *MemoryRefreshStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryRefreshStore{entries: make(map[string]refreshEntry), now: now}
}

func (s *MemoryRefreshStore) Save(ctx context.Context, userID, tokenID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !now.Before(s.nextSweep) {
		s.sweepLocked(now)
	}
	s.entries[tokenID] = refreshEntry{userID: userID, expiresAt: expiresAt}
	return nil
}

func (s *MemoryRefreshStore) sweepLocked(now time.Time) {
	for id, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, id)
		}
	}
	s.nextSweep = now.Add(refreshSweepInterval)
}

func (s *MemoryRefreshStore) Consume(ctx context.Context, userID, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[tokenID]
	if !ok || e.userID != userID {
		return false, nil
	}
	delete(s.entries, tokenID)
	return s.now().Before(e.expiresAt), nil
}

func (s *MemoryRefreshStore) Revoke(ctx context.Context, userID, tokenID string) error {
	_, err := s.Consume(ctx, userID, tokenID)
	return err
}

func (s *MemoryRefreshStore) RevokeAll(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.entries {
		if e.userID == userID {
			delete(s.entries, id)
		}
	}
	return nil
}
