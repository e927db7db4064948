// Package authclient is the consumer side of the account service: a Session
// holding the token pair, an API Client that refreshes it when the server
// rejects an access token, and a RouteGuard for gating views.
package authclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/prohmpiriya/role-portal/pkg/logger"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSessionExpired   = errors.New("session expired")
	ErrAccountDisabled  = errors.New("account disabled")
)

// State is the lifecycle state of a Session
type State int

const (
	StateAnonymous State = iota
	StateAuthenticated
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	default:
		return "anonymous"
	}
}

// Tokens is the pair held by a Session
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// RotateFunc exchanges a refresh token for a new pair
type RotateFunc func(ctx context.Context, refreshToken string) (Tokens, error)

const DefaultRefreshTimeout = 10 * time.Second

// Session holds the current token pair and coordinates refreshes so that
// concurrent callers share one rotation.
type Session struct {
	rotate  RotateFunc
	timeout time.Duration
	log     *logger.Logger

	flight singleflight.Group

	mu     sync.Mutex
	tokens *Tokens
	state  State
	// gen changes on every Set and Clear; a rotation started under an older
	// gen must not install its result
	gen     uint64
	settled chan struct{}
	// ended is what Refresh reports once a failed rotation has cleared the pair
	ended error
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithRefreshTimeout bounds a single rotation
func WithRefreshTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithSessionLogger sets the logger
func WithSessionLogger(l *logger.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// NewSession creates an anonymous session
func NewSession(rotate RotateFunc, opts ...SessionOption) *Session {
	s := &Session{
		rotate:  rotate,
		timeout: DefaultRefreshTimeout,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set installs a pair obtained from login or registration
func (s *Session) Set(t Tokens) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = &t
	s.gen++
	s.ended = nil
	if s.state != StateRefreshing {
		s.state = StateAuthenticated
	}
}

// Clear drops the pair immediately
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *Session) clearLocked() {
	s.tokens = nil
	s.gen++
	s.ended = nil
	if s.state != StateRefreshing {
		s.state = StateAnonymous
	}
}

func (s *Session) absentLocked() error {
	if s.ended != nil {
		return s.ended
	}
	return ErrNotAuthenticated
}

// Detach waits for an in-flight rotation to settle, then removes and returns
// the pair. No rotation can start afterwards, so the returned refresh token is
// the last one the server issued to this session.
func (s *Session) Detach(ctx context.Context) (Tokens, bool, error) {
	for {
		s.mu.Lock()
		settled := s.settled
		if settled == nil {
			t := s.tokens
			s.clearLocked()
			s.mu.Unlock()
			if t == nil {
				return Tokens{}, false, nil
			}
			return *t, true, nil
		}
		s.mu.Unlock()

		select {
		case <-settled:
		case <-ctx.Done():
			s.Clear()
			return Tokens{}, false, ctx.Err()
		}
	}
}

// Tokens returns a copy of the current pair
func (s *Session) Tokens() (Tokens, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens == nil {
		return Tokens{}, false
	}
	return *s.tokens, true
}

// State reports the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Refresh rotates the pair after the server rejected stale. If the pair was
// already replaced since stale was read, the current pair is returned
// without another rotation. Concurrent callers share one rotation.
func (s *Session) Refresh(ctx context.Context, stale string) (Tokens, error) {
	s.mu.Lock()
	if s.tokens == nil {
		err := s.absentLocked()
		s.mu.Unlock()
		return Tokens{}, err
	}
	if s.state != StateRefreshing && s.tokens.AccessToken != stale {
		current := *s.tokens
		s.mu.Unlock()
		return current, nil
	}
	s.mu.Unlock()

	ch := s.flight.DoChan("rotate", func() (interface{}, error) {
		return s.doRotate(ctx, stale)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return Tokens{}, res.Err
		}
		return res.Val.(Tokens), nil
	case <-ctx.Done():
		return Tokens{}, ctx.Err()
	}
}

func (s *Session) doRotate(ctx context.Context, stale string) (Tokens, error) {
	s.mu.Lock()
	if s.tokens == nil {
		err := s.absentLocked()
		s.mu.Unlock()
		return Tokens{}, err
	}
	if s.tokens.AccessToken != stale {
		// a rotation finished between the caller's check and this flight
		current := *s.tokens
		s.mu.Unlock()
		return current, nil
	}
	refreshToken := s.tokens.RefreshToken
	gen := s.gen
	s.state = StateRefreshing
	settled := make(chan struct{})
	s.settled = settled
	s.mu.Unlock()

	// one caller giving up must not cancel the rotation the others wait on
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	fresh, err := s.rotate(rctx, refreshToken)

	s.mu.Lock()
	defer func() {
		s.settled = nil
		close(settled)
		s.mu.Unlock()
	}()

	s.state = StateAnonymous
	if s.tokens != nil {
		s.state = StateAuthenticated
	}

	if s.gen != gen {
		// logged out or logged in again while the rotation was in flight
		s.log.Debug("discarding rotated pair of a superseded session")
		if s.tokens == nil {
			return Tokens{}, ErrSessionExpired
		}
		return *s.tokens, nil
	}

	if err != nil {
		s.log.Warn("token refresh failed, clearing session", zap.Error(err))
		s.clearLocked()
		s.state = StateAnonymous
		if errors.Is(err, ErrAccountDisabled) {
			s.ended = ErrAccountDisabled
			return Tokens{}, err
		}
		s.ended = ErrSessionExpired
		return Tokens{}, fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}

	s.tokens = &fresh
	s.gen++
	s.state = StateAuthenticated
	return fresh, nil
}
