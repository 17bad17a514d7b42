package ebay

import (
	"errors"
	"sync"

	"github.com/cardlister/cardlister/internal/model"
)

// ErrNotAuthenticated is returned when a marketplace call is attempted
// before any OAuth exchange has succeeded.
var ErrNotAuthenticated = errors.New("ebay: not authenticated")

// SessionStore holds the current OAuth credential. The credential is
// replaced wholesale on each successful exchange and handed out as a
// copy, so readers never observe a partially updated token.
type SessionStore struct {
	mu   sync.RWMutex
	cred *model.OAuthCredential
}

// NewSessionStore creates an empty, unauthenticated store.
func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

// Replace installs a new credential, discarding any previous one.
func (s *SessionStore) Replace(cred model.OAuthCredential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := cred
	s.cred = &c
}

// Snapshot returns a copy of the current credential, or
// ErrNotAuthenticated when none has been installed.
func (s *SessionStore) Snapshot() (model.OAuthCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred == nil {
		return model.OAuthCredential{}, ErrNotAuthenticated
	}
	return *s.cred, nil
}

// Clear drops the credential, returning the store to the
// unauthenticated state.
func (s *SessionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = nil
}
