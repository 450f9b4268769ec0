package cache

import (
	"context"
	"sync"
)

// MemoryStore is a Cache held in process memory. It is safe for concurrent
// use and forgets everything when the process exits.
type MemoryStore[V any] struct {
	mu      sync.RWMutex
	records map[Key]V
}

// NewMemoryStore returns an empty in-memory cache.
func NewMemoryStore[V any]() *MemoryStore[V] {
	return &MemoryStore[V]{records: make(map[Key]V)}
}

// Get implements Cache.
func (m *MemoryStore[V]) Get(ctx context.Context, key Key) (V, bool, error) {
	var zero V
	if err := ctx.Err(); err != nil {
		return zero, false, &ReadError{Key: key, Err: err}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.records[key]
	return value, ok, nil
}

// Save implements Cache.
func (m *MemoryStore[V]) Save(ctx context.Context, key Key, value V) error {
	if err := ctx.Err(); err != nil {
		return &WriteError{Key: key, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[key] = value
	return nil
}

// Len returns the number of stored records.
func (m *MemoryStore[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
