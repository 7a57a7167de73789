package session

import (
	"context"
	"errors"
	"sync"

	"github.com/chatly-app/chatly-tui/internal/client/debug"
	"github.com/chatly-app/chatly-tui/internal/client/model"
)

// ErrNoSession means there is no durable token, so nothing to resolve.
var ErrNoSession = errors.New("session: no stored token")

// IdentityResolver turns a bearer token into the user it belongs to.
// Implemented by the API client's CurrentUser call.
type IdentityResolver interface {
	CurrentUser(ctx context.Context) (*model.User, error)
}

// Store holds the authenticated identity for the whole application session.
// The token survives restarts via the encrypted token file; the user is
// resolved once per process.
type Store struct {
	mu       sync.RWMutex
	profile  string
	token    string
	user     *model.User
	watchers []func()
}

func NewStore(profile string) *Store {
	return &Store{
		profile: profile,
		token:   LoadToken(profile),
	}
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && s.user != nil
}

// SetToken persists the credential. Called at the point a token is received
// from the guest-login or OTP-verify responses.
func (s *Store) SetToken(token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	s.notify()
	return SaveToken(s.profile, token)
}

func (s *Store) Login(u *model.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
	s.notify()
}

// Update overwrites the user after a profile edit.
func (s *Store) Update(u *model.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
	s.notify()
}

// Logout clears the identity and discards the durable token.
func (s *Store) Logout() {
	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.mu.Unlock()
	ClearToken(s.profile)
	s.notify()
}

// Resolve rehydrates the user from the stored token. Fail-closed: any
// resolution error drops both the token and the partial session state.
func (s *Store) Resolve(ctx context.Context, r IdentityResolver) error {
	s.mu.RLock()
	token, user := s.token, s.user
	s.mu.RUnlock()

	if token == "" {
		return ErrNoSession
	}
	if user != nil {
		return nil
	}

	u, err := r.CurrentUser(ctx)
	if err != nil {
		debug.Log("session: identity resolution failed: %v", err)
		s.Logout()
		return err
	}
	s.Login(u)
	return nil
}

// Subscribe registers a change callback and returns its removal func.
func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	s.watchers = append(s.watchers, fn)
	i := len(s.watchers) - 1
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.watchers[i] = nil
		s.mu.Unlock()
	}
}

func (s *Store) notify() {
	s.mu.RLock()
	watchers := make([]func(), len(s.watchers))
	copy(watchers, s.watchers)
	s.mu.RUnlock()
	for _, fn := range watchers {
		if fn != nil {
			fn()
		}
	}
}
