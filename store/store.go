package store

import (
	"context"
	"time"
)

// bucketLayout keeps bucket keys lexically sortable.
const bucketLayout = "2006-01-02T15:04:05Z"

// Bucket identifies the time slice a tally is counted in.
type Bucket struct {
	Key   string
	Start time.Time
}

// BucketFor returns the bucket of the given width that contains t. Buckets
// are aligned to the Unix epoch in UTC.
func BucketFor(t time.Time, width time.Duration) Bucket {
	start := t.UTC()
	if width > 0 {
		start = start.Truncate(width)
	}
	return Bucket{Key: start.Format(bucketLayout), Start: start}
}

// ParseBucket rebuilds a Bucket from its key.
func ParseBucket(key string) (Bucket, error) {
	start, err := time.Parse(bucketLayout, key)
	if err != nil {
		return Bucket{}, err
	}
	return Bucket{Key: key, Start: start.UTC()}, nil
}

// Entry is one counter in one bucket.
type Entry struct {
	Key    string
	Bucket Bucket
	Count  int64
}

// Store defines the interface for usage ledger backends.
type Store interface {
	// Add atomically adds n to the counter for key in bucket b and returns
	// the new total for that bucket.
	Add(ctx context.Context, key string, b Bucket, n int64) (current int64, err error)

	// Get returns the counter for key in bucket b, or zero.
	Get(ctx context.Context, key string, b Bucket) (current int64, err error)

	// List returns every counter ordered by key, then bucket.
	List(ctx context.Context) ([]Entry, error)

	// Reset removes all buckets for the given key.
	Reset(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}
