// Package blobstore provides blob storage for the invoice pipeline.
package blobstore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound indicates a missing object.
var ErrNotFound = errors.New("object not found")

// Ref is an opaque location of a stored object.
type Ref struct {
	Bucket string
	Key    string
}

// Store defines the blob storage interface.
type Store interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, data []byte) error
	List(ctx context.Context, bucket, prefix string) ([]string, error)
}

// MemoryStore implements an in-memory blob store for tests and offline runs.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStore creates a new in-memory blob store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Get retrieves an object.
func (s *MemoryStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[bucket+"/"+key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Put stores an object, overwriting any existing one.
func (s *MemoryStore) Put(ctx context.Context, bucket, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	s.objects[bucket+"/"+key] = stored
	return nil
}

// List returns all keys in bucket with the given prefix, sorted.
func (s *MemoryStore) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	bucketPrefix := bucket + "/"
	for name := range s.objects {
		if !strings.HasPrefix(name, bucketPrefix) {
			continue
		}
		key := strings.TrimPrefix(name, bucketPrefix)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
