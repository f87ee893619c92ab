package storage

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory UserStore for tests and local development
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*GoogleUser
}

var _ UserStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*GoogleUser),
	}
}

// Get returns a copy of the stored user, or ErrUserNotFound
func (s *MemoryStore) Get(_ context.Context, id string) (*GoogleUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	clone := *user
	clone.Scope = append([]string(nil), user.Scope...)
	return &clone, nil
}

// Upsert stores a copy of the user keyed by its id
func (s *MemoryStore) Upsert(_ context.Context, user *GoogleUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *user
	clone.Scope = append([]string(nil), user.Scope...)
	s.users[user.ID] = &clone
	return nil
}

// ListUsers returns copies of all stored users
func (s *MemoryStore) ListUsers(_ context.Context) ([]*GoogleUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*GoogleUser, 0, len(s.users))
	for _, user := range s.users {
		clone := *user
		clone.Scope = append([]string(nil), user.Scope...)
		users = append(users, &clone)
	}
	return users, nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}
