package store

import (
	"context"
	"sort"
	"sync"
)

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory Store implementation.
// It is safe for concurrent use. Counters are lost on process restart.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]map[string]*Entry
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]map[string]*Entry),
	}
}

// Add atomically adds n to the counter for key in bucket b.
func (m *MemoryStore) Add(_ context.Context, key string, b Bucket, n int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addLocked(key, b, n), nil
}

// Caller must hold mu.
func (m *MemoryStore) addLocked(key string, b Bucket, n int64) int64 {
	byBucket, ok := m.buckets[key]
	if !ok {
		byBucket = make(map[string]*Entry)
		m.buckets[key] = byBucket
	}
	e, ok := byBucket[b.Key]
	if !ok {
		e = &Entry{Key: key, Bucket: b}
		byBucket[b.Key] = e
	}
	e.Count += n
	return e.Count
}

// Get returns the counter for key in bucket b.
func (m *MemoryStore) Get(_ context.Context, key string, b Bucket) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.buckets[key][b.Key]; ok {
		return e.Count, nil
	}
	return 0, nil
}

// List returns every counter ordered by key, then bucket.
func (m *MemoryStore) List(_ context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Entry
	for _, byBucket := range m.buckets {
		for _, e := range byBucket {
			out = append(out, *e)
		}
	}
	SortEntries(out)
	return out, nil
}

// Reset removes all buckets for the given key.
func (m *MemoryStore) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.buckets, key)
	return nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}

// SortEntries orders entries by key, then bucket key.
func SortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Key != entries[j].Key {
			return entries[i].Key < entries[j].Key
		}
		return entries[i].Bucket.Key < entries[j].Bucket.Key
	})
}

func (m *MemoryStore) set(key string, b Bucket, n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.addLocked(key, b, 0)
	m.addLocked(key, b, n-current)
}
