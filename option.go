package throttle

import (
	"time"

	"go.uber.org/zap"

	"github.com/ryhazerus/throttle/store"
)

// DefaultLedgerGranularity is the bucket width used by WithLedger when no
// positive granularity is given.
const DefaultLedgerGranularity = time.Minute

// Option configures a RateLimiter or a Registry. Options that only make
// sense for one of them are ignored by the other.
type Option func(*settings)

type settings struct {
	name        string
	policy      Policy
	clock       Clock
	logger      *zap.Logger
	metrics     *Metrics
	onRejected  func(name string)
	ledger      store.Store
	granularity time.Duration
}

func newSettings(opts []Option) settings {
	s := settings{}
	for _, o := range opts {
		o(&s)
	}
	if s.clock == nil {
		s.clock = systemClock{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.granularity <= 0 {
		s.granularity = DefaultLedgerGranularity
	}
	return s
}

// WithName labels a limiter in logs, metrics and rejection errors.
// Registry.Register sets it from the resource name.
func WithName(name string) Option {
	return func(s *settings) {
		s.name = name
	}
}

// WithPolicy selects the counting policy. FixedWindow is the default. On a
// Registry it applies to every resource that leaves Policy unset.
func WithPolicy(p Policy) Option {
	return func(s *settings) {
		s.policy = p
	}
}

// WithClock replaces the time source, mostly for tests.
func WithClock(c Clock) Option {
	return func(s *settings) {
		s.clock = c
	}
}

// WithLogger sets the logger. Window resets and rejections are logged at
// debug level; nothing is logged by default.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithMetrics records admission decisions on m.
func WithMetrics(m *Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

// WithOnRejected sets a callback fired after each rejected call, outside
// the limiter's lock.
func WithOnRejected(fn func(name string)) Option {
	return func(s *settings) {
		s.onRejected = fn
	}
}

// WithLedger makes a Registry publish usage tallies to st on Flush, in
// buckets of the given granularity.
func WithLedger(st store.Store, granularity time.Duration) Option {
	return func(s *settings) {
		s.ledger = st
		s.granularity = granularity
	}
}
