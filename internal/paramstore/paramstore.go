// Package paramstore provides the shared parameter store used to cache
// one-time setup values such as the resolved blueprint identifier.
package paramstore

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound indicates a missing parameter.
var ErrNotFound = errors.New("parameter not found")

// Store defines the parameter store interface.
type Store interface {
	Get(ctx context.Context, name string) (string, error)
	Put(ctx context.Context, name, value string) error
}

// MemoryStore implements an in-memory parameter store for tests and
// offline runs.
type MemoryStore struct {
	mu     sync.RWMutex
	params map[string]string
}

// NewMemoryStore creates a new in-memory parameter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{params: make(map[string]string)}
}

// Get retrieves a parameter value.
func (s *MemoryStore) Get(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.params[name]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Put stores a parameter value, overwriting any existing one.
func (s *MemoryStore) Put(ctx context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.params[name] = value
	return nil
}
