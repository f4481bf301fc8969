package tokenstore

import (
	"context"
	"errors"
	"sync"

	domainauth "github.com/almazgeobur/felix-portal/internal/domain/auth"
)

// MemoryStore is a process-local TokenStore. It does not survive restarts.
type MemoryStore struct {
	mu   sync.RWMutex
	cred domainauth.Credential
}

// NewMemoryStore returns a store pre-seeded with cred (which may be empty).
func NewMemoryStore(cred domainauth.Credential) *MemoryStore {
	return &MemoryStore{cred: cred}
}

func (s *MemoryStore) Get(_ context.Context) (domainauth.Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred, !s.cred.IsZero()
}

func (s *MemoryStore) Set(_ context.Context, cred domainauth.Credential) error {
	if cred.IsZero() {
		return errors.New("credential cannot be empty")
	}
	s.mu.Lock()
	s.cred = cred
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.cred = ""
	s.mu.Unlock()
	return nil
}
