package throttle

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidConfig is returned when a limiter is constructed with a
	// non-positive call limit or period, or registered without a name.
	ErrInvalidConfig = errors.New("throttle: invalid limiter configuration")

	// ErrDuplicateLimiter is returned when a name is registered twice.
	ErrDuplicateLimiter = errors.New("throttle: limiter already registered")

	// ErrUnknownLimiter is returned when a registry lookup misses.
	ErrUnknownLimiter = errors.New("throttle: limiter not found")

	// ErrRejected marks a call that was refused because its limiter is
	// saturated. It only surfaces at boundaries that can't return an absent
	// value, such as an http.RoundTripper.
	ErrRejected = errors.New("throttle: call rejected")

	// ErrClosed is returned by Registry.Flush after Registry.Close.
	ErrClosed = errors.New("throttle: registry closed")
)

// RejectedError describes which limiter refused a call and when it is
// expected to admit again.
type RejectedError struct {
	Limiter    string
	MaxCalls   int64
	Period     time.Duration
	RetryAfter time.Duration
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("throttle: %s rejected call (limit %d per %s)", e.Limiter, e.MaxCalls, e.Period)
}

func (e *RejectedError) Unwrap() error {
	return ErrRejected
}

// Wait blocks until RetryAfter has elapsed or the context is cancelled.
// Whether to wait at all is up to the caller; the limiter never does.
func (e *RejectedError) Wait(ctx context.Context) error {
	if e.RetryAfter <= 0 {
		return nil
	}
	t := time.NewTimer(e.RetryAfter)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
