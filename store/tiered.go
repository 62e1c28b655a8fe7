package store

import "context"

// Compile-time interface check.
var _ Store = (*TieredStore)(nil)

// TieredStore wraps an in-memory store (fast path) with a persistent backend
// (durable path). Writes go to both stores (write-through); reads check memory
// first and fall back to the persistent store on a miss.
type TieredStore struct {
	memory     *MemoryStore
	persistent Store
}

// NewTieredStore creates a TieredStore backed by the given persistent store.
func NewTieredStore(persistent Store) *TieredStore {
	return &TieredStore{
		memory:     NewMemoryStore(),
		persistent: persistent,
	}
}

// Add writes through to both stores. The persistent store is the source of
// truth for the returned count, and memory is realigned to it.
func (t *TieredStore) Add(ctx context.Context, key string, b Bucket, n int64) (int64, error) {
	count, err := t.persistent.Add(ctx, key, b, n)
	if err != nil {
		return 0, err
	}
	t.memory.set(key, b, count)
	return count, nil
}

// Get reads from memory first. On a miss it falls back to the persistent
// store and backfills memory.
func (t *TieredStore) Get(ctx context.Context, key string, b Bucket) (int64, error) {
	count, err := t.memory.Get(ctx, key, b)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return count, nil
	}

	count, err = t.persistent.Get(ctx, key, b)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		t.memory.set(key, b, count)
	}
	return count, nil
}

// List reads from the persistent store, which holds every bucket.
func (t *TieredStore) List(ctx context.Context) ([]Entry, error) {
	return t.persistent.List(ctx)
}

// Reset removes the counters from both stores.
func (t *TieredStore) Reset(ctx context.Context, key string) error {
	t.memory.Reset(ctx, key)
	return t.persistent.Reset(ctx, key)
}

// Close closes the persistent backend. The in-memory store needs no cleanup.
func (t *TieredStore) Close() error {
	return t.persistent.Close()
}
