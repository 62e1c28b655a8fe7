package throttle

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RateLimiter admits at most MaxCalls calls per Period. It never blocks a
// caller beyond its own short critical section: a call over the limit is
// refused immediately and the caller decides what to do about it.
//
// A RateLimiter is safe for concurrent use. Create one per guarded
// operation and share it among all of that operation's callers.
type RateLimiter struct {
	name       string
	maxCalls   int64
	period     time.Duration
	policy     Policy
	clock      Clock
	logger     *zap.Logger
	metrics    *Metrics
	onRejected func(string)

	mu          sync.Mutex
	windowStart time.Time
	count       int64
	calls       *callLog // SlidingLog only
	admitted    int64
	rejected    int64
}

// Stats is a point-in-time view of a limiter.
type Stats struct {
	MaxCalls int64
	Period   time.Duration
	Policy   Policy
	// InWindow is the number of admissions counted against the limit right now.
	InWindow int64
	// WindowStart is the start of the current fixed window, or the time of
	// the oldest remembered admission for SlidingLog.
	WindowStart time.Time
	// Admitted and Rejected are totals over the limiter's lifetime.
	Admitted int64
	Rejected int64
}

// New creates a limiter admitting maxCalls calls per period. Both must be
// positive; anything else is a programming error reported as
// ErrInvalidConfig.
func New(maxCalls int64, period time.Duration, opts ...Option) (*RateLimiter, error) {
	if maxCalls <= 0 {
		return nil, fmt.Errorf("%w: max calls must be positive, got %d", ErrInvalidConfig, maxCalls)
	}
	if period <= 0 {
		return nil, fmt.Errorf("%w: period must be positive, got %s", ErrInvalidConfig, period)
	}

	s := newSettings(opts)
	if !s.policy.valid() {
		return nil, fmt.Errorf("%w: unknown policy %s", ErrInvalidConfig, s.policy)
	}
	if s.policy == PolicyDefault {
		s.policy = FixedWindow
	}

	l := &RateLimiter{
		name:       s.name,
		maxCalls:   maxCalls,
		period:     period,
		policy:     s.policy,
		clock:      s.clock,
		logger:     s.logger,
		metrics:    s.metrics,
		onRejected: s.onRejected,
	}
	l.windowStart = l.clock.Now()
	if l.policy == SlidingLog {
		l.calls = newCallLog(maxCalls)
	}
	return l, nil
}

// MustNew is like New but panics on an invalid configuration.
func MustNew(maxCalls int64, period time.Duration, opts ...Option) *RateLimiter {
	l, err := New(maxCalls, period, opts...)
	if err != nil {
		panic(err)
	}
	return l
}

// TryAcquire reports whether the caller may run the guarded work now. A
// true result counts against the limit; false leaves the state as it was.
func (l *RateLimiter) TryAcquire() bool {
	l.mu.Lock()
	now := l.clock.Now()
	var ok, reset bool
	if l.policy == SlidingLog {
		ok = l.acquireSlidingLocked(now)
	} else {
		ok, reset = l.acquireFixedLocked(now)
	}
	if ok {
		l.admitted++
	} else {
		l.rejected++
	}
	l.mu.Unlock()

	l.observe(ok, reset)
	return ok
}

// acquireFixedLocked restarts the window once a full period has elapsed
// (inclusive) and then checks and counts the call. Caller must hold mu.
func (l *RateLimiter) acquireFixedLocked(now time.Time) (ok, reset bool) {
	if now.Sub(l.windowStart) >= l.period {
		l.windowStart = now
		l.count = 0
		reset = true
	}
	if l.count < l.maxCalls {
		l.count++
		return true, reset
	}
	return false, reset
}

// Caller must hold mu.
func (l *RateLimiter) acquireSlidingLocked(now time.Time) bool {
	l.calls.prune(now, l.period)
	if int64(l.calls.len()) >= l.maxCalls {
		return false
	}
	l.calls.push(now)
	return true
}

func (l *RateLimiter) observe(admitted, reset bool) {
	if reset {
		if ce := l.logger.Check(zap.DebugLevel, "throttle window reset"); ce != nil {
			ce.Write(zap.String("limiter", l.name), zap.Duration("period", l.period))
		}
	}
	l.metrics.observe(l.name, admitted, reset)
	if admitted {
		return
	}
	if ce := l.logger.Check(zap.DebugLevel, "throttle rejected call"); ce != nil {
		ce.Write(
			zap.String("limiter", l.name),
			zap.Int64("max_calls", l.maxCalls),
			zap.Duration("period", l.period),
		)
	}
	if l.onRejected != nil {
		l.onRejected(l.name)
	}
}

// RetryAfter estimates how long until the limiter admits again. It is zero
// when a call made now would be admitted.
func (l *RateLimiter) RetryAfter() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if l.policy == SlidingLog {
		l.calls.prune(now, l.period)
		if int64(l.calls.len()) < l.maxCalls {
			return 0
		}
		return l.calls.oldest().Add(l.period).Sub(now)
	}

	elapsed := now.Sub(l.windowStart)
	if elapsed >= l.period || l.count < l.maxCalls {
		return 0
	}
	return l.period - elapsed
}

// Stats returns a snapshot of the limiter's state.
func (l *RateLimiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := Stats{
		MaxCalls: l.maxCalls,
		Period:   l.period,
		Policy:   l.policy,
		Admitted: l.admitted,
		Rejected: l.rejected,
	}

	now := l.clock.Now()
	if l.policy == SlidingLog {
		l.calls.prune(now, l.period)
		st.InWindow = int64(l.calls.len())
		st.WindowStart = l.calls.oldest()
		return st
	}

	st.WindowStart = l.windowStart
	if now.Sub(l.windowStart) < l.period {
		st.InWindow = l.count
	}
	return st
}

// Name returns the label set with WithName, if any.
func (l *RateLimiter) Name() string { return l.name }

// MaxCalls returns the number of calls admitted per period.
func (l *RateLimiter) MaxCalls() int64 { return l.maxCalls }

// Period returns the window length.
func (l *RateLimiter) Period() time.Duration { return l.period }

// Policy returns the counting policy.
func (l *RateLimiter) Policy() Policy { return l.policy }

func (l *RateLimiter) rejectedError() *RejectedError {
	return &RejectedError{
		Limiter:    l.name,
		MaxCalls:   l.maxCalls,
		Period:     l.period,
		RetryAfter: l.RetryAfter(),
	}
}
