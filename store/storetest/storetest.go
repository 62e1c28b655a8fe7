// Package storetest holds the behaviour every store.Store backend must
// share, so each backend's tests can run the same suite.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryhazerus/throttle/store"
)

// Factory returns a fresh, empty store. It should register its own cleanup.
type Factory func(t *testing.T) store.Store

var (
	first  = store.BucketFor(time.Date(2024, 1, 15, 14, 30, 12, 0, time.UTC), time.Minute)
	second = store.BucketFor(time.Date(2024, 1, 15, 14, 31, 3, 0, time.UTC), time.Minute)
)

// Run exercises newStore against the store.Store contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("Add", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for i := int64(1); i <= 5; i++ {
			got, err := s.Add(ctx, "test", first, 1)
			require.NoError(t, err)
			assert.Equal(t, i, got, "add %d", i)
		}

		got, err := s.Add(ctx, "test", first, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(15), got)
	})

	t.Run("BucketsAreIndependent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Add(ctx, "key", first, 2)
		require.NoError(t, err)

		got, err := s.Add(ctx, "key", second, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), got)

		got, err = s.Get(ctx, "key", first)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got, "earlier bucket is kept")
	})

	t.Run("Get", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		got, err := s.Get(ctx, "key", first)
		require.NoError(t, err)
		assert.Zero(t, got)

		_, err = s.Add(ctx, "key", first, 1)
		require.NoError(t, err)
		_, err = s.Add(ctx, "key", first, 1)
		require.NoError(t, err)

		got, err = s.Get(ctx, "key", first)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got)
	})

	t.Run("List", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Add(ctx, "b/rejected", second, 4)
		require.NoError(t, err)
		_, err = s.Add(ctx, "a/admitted", second, 3)
		require.NoError(t, err)
		_, err = s.Add(ctx, "a/admitted", first, 7)
		require.NoError(t, err)

		entries, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 3)

		assert.Equal(t, "a/admitted", entries[0].Key)
		assert.Equal(t, first.Key, entries[0].Bucket.Key)
		assert.True(t, first.Start.Equal(entries[0].Bucket.Start))
		assert.Equal(t, int64(7), entries[0].Count)

		assert.Equal(t, "a/admitted", entries[1].Key)
		assert.Equal(t, second.Key, entries[1].Bucket.Key)
		assert.Equal(t, "b/rejected", entries[2].Key)
		assert.Equal(t, int64(4), entries[2].Count)
	})

	t.Run("Reset", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Add(ctx, "key", first, 1)
		require.NoError(t, err)
		_, err = s.Add(ctx, "key", second, 1)
		require.NoError(t, err)
		_, err = s.Add(ctx, "other", first, 1)
		require.NoError(t, err)

		require.NoError(t, s.Reset(ctx, "key"))

		got, err := s.Get(ctx, "key", first)
		require.NoError(t, err)
		assert.Zero(t, got)

		entries, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "other", entries[0].Key)
	})
}
