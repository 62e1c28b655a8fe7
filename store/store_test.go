package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryhazerus/throttle/store"
	"github.com/ryhazerus/throttle/store/storetest"
)

func newTestSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return store.NewMemoryStore()
	})
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return newTestSQLiteStore(t)
	})
}

func TestTieredStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		ts := store.NewTieredStore(newTestSQLiteStore(t))
		return ts
	})
}

func TestTieredStorePersistentFallback(t *testing.T) {
	persistent := newTestSQLiteStore(t)
	ctx := context.Background()
	b := store.BucketFor(time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC), time.Minute)

	ts1 := store.NewTieredStore(persistent)
	for i := 0; i < 3; i++ {
		_, err := ts1.Add(ctx, "key", b, 1)
		require.NoError(t, err)
	}

	// A fresh tiered store has an empty memory tier.
	ts2 := store.NewTieredStore(persistent)
	got, err := ts2.Get(ctx, "key", b)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got)

	// Writes through the second store stay in step with the first.
	got, err = ts2.Add(ctx, "key", b, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := t.TempDir() + "/ledger.db"
	ctx := context.Background()
	b := store.BucketFor(time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC), time.Minute)

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	_, err = s.Add(ctx, "api/admitted", b, 9)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "api/admitted", b)
	require.NoError(t, err)
	assert.Equal(t, int64(9), got)
}

func TestSQLiteStoreWrapsErrors(t *testing.T) {
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.Reset(context.Background(), "api/admitted")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttle/store: reset api/admitted")
}

func TestBucketFor(t *testing.T) {
	at := time.Date(2024, 1, 15, 14, 30, 42, 500, time.FixedZone("CET", 3600))

	b := store.BucketFor(at, time.Minute)
	assert.Equal(t, "2024-01-15T13:30:00Z", b.Key)
	assert.True(t, b.Start.Equal(time.Date(2024, 1, 15, 13, 30, 0, 0, time.UTC)))

	hourly := store.BucketFor(at, time.Hour)
	assert.Equal(t, "2024-01-15T13:00:00Z", hourly.Key)

	parsed, err := store.ParseBucket(b.Key)
	require.NoError(t, err)
	assert.True(t, parsed.Start.Equal(b.Start))

	_, err = store.ParseBucket("yesterday")
	assert.Error(t, err)
}
