package throttle

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name     string
		maxCalls int64
		period   time.Duration
		opts     []Option
	}{
		{name: "zero calls", maxCalls: 0, period: time.Second},
		{name: "negative calls", maxCalls: -3, period: time.Second},
		{name: "zero period", maxCalls: 1, period: 0},
		{name: "negative period", maxCalls: 1, period: -time.Millisecond},
		{name: "unknown policy", maxCalls: 1, period: time.Second, opts: []Option{WithPolicy(Policy(9))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.maxCalls, tt.period, tt.opts...)
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Nil(t, l)

			assert.Panics(t, func() { MustNew(tt.maxCalls, tt.period, tt.opts...) })
		})
	}
}

func TestFixedWindowScenario(t *testing.T) {
	clock := newManualClock()
	l := MustNew(2, 100*time.Millisecond, WithClock(clock))

	steps := []struct {
		at   time.Duration
		want bool
	}{
		{0, true},
		{10 * time.Millisecond, true},
		{20 * time.Millisecond, false},
		{150 * time.Millisecond, true},
		{160 * time.Millisecond, true},
		{170 * time.Millisecond, false},
	}

	for _, s := range steps {
		clock.At(s.at)
		assert.Equal(t, s.want, l.TryAcquire(), "call at %s", s.at)
	}
}

func TestCapacityBoundWithinWindow(t *testing.T) {
	clock := newManualClock()
	l := MustNew(5, time.Minute, WithClock(clock))

	var admitted int
	for i := 0; i < 1000; i++ {
		if l.TryAcquire() {
			admitted++
		}
		clock.Advance(time.Millisecond)
	}
	assert.Equal(t, 5, admitted)
}

func TestResetAfterIdlePeriod(t *testing.T) {
	clock := newManualClock()
	l := MustNew(3, time.Second, WithClock(clock))

	for i := 0; i < 3; i++ {
		require.True(t, l.TryAcquire())
	}
	require.False(t, l.TryAcquire())

	clock.Advance(2 * time.Second)
	assert.True(t, l.TryAcquire())

	st := l.Stats()
	assert.Equal(t, int64(1), st.InWindow)
	assert.True(t, st.WindowStart.Equal(epoch.Add(2*time.Second)))
}

func TestWindowBoundaryIsInclusive(t *testing.T) {
	clock := newManualClock()
	l := MustNew(1, 100*time.Millisecond, WithClock(clock))

	require.True(t, l.TryAcquire())

	clock.At(99 * time.Millisecond)
	assert.False(t, l.TryAcquire())

	clock.At(100 * time.Millisecond)
	assert.True(t, l.TryAcquire(), "elapsed == period starts a new window")
}

func TestFixedWindowAllowsBoundaryBurst(t *testing.T) {
	clock := newManualClock()
	l := MustNew(2, 100*time.Millisecond, WithClock(clock))

	clock.At(95 * time.Millisecond)
	// The window started at 0, so these two land in the first window...
	assert.True(t, l.TryAcquire())
	assert.True(t, l.TryAcquire())

	// ...and these two in the next one, 5ms later.
	clock.At(100 * time.Millisecond)
	assert.True(t, l.TryAcquire())
	assert.True(t, l.TryAcquire())
	assert.False(t, l.TryAcquire())
}

func TestIndependentLimitersAgree(t *testing.T) {
	c1, c2 := newManualClock(), newManualClock()
	a := MustNew(3, 50*time.Millisecond, WithClock(c1))
	b := MustNew(3, 50*time.Millisecond, WithClock(c2))

	for i := 0; i < 200; i++ {
		offset := time.Duration(i*7%13) * time.Millisecond
		c1.Advance(offset)
		c2.Advance(offset)
		require.Equal(t, a.TryAcquire(), b.TryAcquire(), "call %d", i)
	}
	assert.Equal(t, a.Stats(), b.Stats())
}

func TestConcurrentAdmission(t *testing.T) {
	for _, policy := range []Policy{FixedWindow, SlidingLog} {
		t.Run(policy.String(), func(t *testing.T) {
			l := MustNew(10, time.Second, WithClock(newManualClock()), WithPolicy(policy))

			var (
				wg       sync.WaitGroup
				admitted atomic.Int64
				start    = make(chan struct{})
			)
			for i := 0; i < 100; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					if l.TryAcquire() {
						admitted.Add(1)
					}
				}()
			}
			close(start)
			wg.Wait()

			assert.Equal(t, int64(10), admitted.Load())
			st := l.Stats()
			assert.Equal(t, int64(10), st.Admitted)
			assert.Equal(t, int64(90), st.Rejected)
		})
	}
}

func TestConcurrentAdmissionRealClock(t *testing.T) {
	l := MustNew(10, time.Hour)

	var (
		wg       sync.WaitGroup
		admitted atomic.Int64
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.TryAcquire() {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(10), admitted.Load())
}

func TestSlidingLog(t *testing.T) {
	clock := newManualClock()
	l := MustNew(2, 100*time.Millisecond, WithClock(clock), WithPolicy(SlidingLog))

	steps := []struct {
		at   time.Duration
		want bool
	}{
		{0, true},
		{10 * time.Millisecond, true},
		{20 * time.Millisecond, false},
		{99 * time.Millisecond, false},
		{100 * time.Millisecond, true}, // the call at 0 has aged out
		{105 * time.Millisecond, false},
		{110 * time.Millisecond, true},
		{150 * time.Millisecond, false},
	}

	for _, s := range steps {
		clock.At(s.at)
		assert.Equal(t, s.want, l.TryAcquire(), "call at %s", s.at)
	}
}

func TestSlidingLogHasNoBoundaryBurst(t *testing.T) {
	clock := newManualClock()
	l := MustNew(2, 100*time.Millisecond, WithClock(clock), WithPolicy(SlidingLog))

	clock.At(95 * time.Millisecond)
	assert.True(t, l.TryAcquire())
	assert.True(t, l.TryAcquire())

	clock.At(100 * time.Millisecond)
	assert.False(t, l.TryAcquire())
	assert.False(t, l.TryAcquire())
}

func TestSlidingLogGrowsToCapacity(t *testing.T) {
	clock := newManualClock()
	l := MustNew(100, time.Minute, WithClock(clock), WithPolicy(SlidingLog))

	for round := 0; round < 3; round++ {
		for i := 0; i < 100; i++ {
			require.True(t, l.TryAcquire(), "round %d call %d", round, i)
			clock.Advance(time.Millisecond)
		}
		require.False(t, l.TryAcquire(), "round %d", round)
		assert.Equal(t, int64(100), l.Stats().InWindow)

		clock.Advance(time.Minute)
	}
	assert.LessOrEqual(t, len(l.calls.times), 100)
}

func TestRetryAfter(t *testing.T) {
	t.Run("fixed window", func(t *testing.T) {
		clock := newManualClock()
		l := MustNew(1, 100*time.Millisecond, WithClock(clock))

		assert.Zero(t, l.RetryAfter())
		require.True(t, l.TryAcquire())

		clock.At(30 * time.Millisecond)
		assert.Equal(t, 70*time.Millisecond, l.RetryAfter())

		clock.At(100 * time.Millisecond)
		assert.Zero(t, l.RetryAfter())
	})

	t.Run("sliding log", func(t *testing.T) {
		clock := newManualClock()
		l := MustNew(2, 100*time.Millisecond, WithClock(clock), WithPolicy(SlidingLog))

		require.True(t, l.TryAcquire())
		clock.At(40 * time.Millisecond)
		assert.Zero(t, l.RetryAfter())
		require.True(t, l.TryAcquire())

		clock.At(50 * time.Millisecond)
		assert.Equal(t, 50*time.Millisecond, l.RetryAfter())
	})
}

func TestStats(t *testing.T) {
	clock := newManualClock()
	l := MustNew(2, time.Second, WithClock(clock), WithName("api"))

	for i := 0; i < 5; i++ {
		l.TryAcquire()
	}

	st := l.Stats()
	assert.Equal(t, Stats{
		MaxCalls:    2,
		Period:      time.Second,
		Policy:      FixedWindow,
		InWindow:    2,
		WindowStart: epoch,
		Admitted:    2,
		Rejected:    3,
	}, st)

	clock.Advance(time.Second)
	assert.Zero(t, l.Stats().InWindow, "an expired window counts nothing")
	assert.Equal(t, "api", l.Name())
	assert.Equal(t, int64(2), l.MaxCalls())
	assert.Equal(t, time.Second, l.Period())
	assert.Equal(t, FixedWindow, l.Policy())
}

func TestRejectionHooks(t *testing.T) {
	clock := newManualClock()
	core, logs := observer.New(zapcore.DebugLevel)
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	var rejectedNames []string
	l := MustNew(1, time.Second,
		WithName("search"),
		WithClock(clock),
		WithLogger(zap.New(core)),
		WithMetrics(metrics),
		WithOnRejected(func(name string) { rejectedNames = append(rejectedNames, name) }),
	)

	require.True(t, l.TryAcquire())
	require.False(t, l.TryAcquire())
	clock.Advance(time.Second)
	require.True(t, l.TryAcquire())

	assert.Equal(t, []string{"search"}, rejectedNames)

	assert.Equal(t, 1, logs.FilterMessage("throttle rejected call").Len())
	resets := logs.FilterMessage("throttle window reset").All()
	require.Len(t, resets, 1)
	assert.Equal(t, "search", resets[0].ContextMap()["limiter"])

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.decisions.WithLabelValues("search", "admitted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.decisions.WithLabelValues("search", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.resets.WithLabelValues("search")))
}

func TestNilMetricsAreIgnored(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observe("x", true, true)
		m.flushFailed()
	})
}

func BenchmarkTryAcquire(b *testing.B) {
	l := MustNew(1<<40, time.Hour)
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			l.TryAcquire()
		}
	})
}
