package throttle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/ryhazerus/throttle/store"
)

// Registry owns one RateLimiter per guarded operation, keyed by name. It
// replaces process-wide limiter variables: whoever issues the guarded calls
// holds the registry and passes it where it is needed.
type Registry struct {
	mu      sync.RWMutex
	entries []*registryEntry
	byName  map[string]*registryEntry

	opts     []Option
	settings settings

	flushMu sync.Mutex
	flushed map[string]int64 // ledger key -> total already written
	closed  bool

	closeOnce sync.Once
	closeErr  error
}

type registryEntry struct {
	resource Resource
	pattern  urlPattern
	limiter  *RateLimiter
}

// Status holds a point-in-time view of one registered limiter.
type Status struct {
	Resource Resource
	Stats    Stats
}

// NewRegistry creates an empty registry. The options are applied to every
// limiter it creates; WithLedger enables Flush.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		byName:   make(map[string]*registryEntry),
		opts:     opts,
		settings: newSettings(opts),
		flushed:  make(map[string]int64),
	}
}

// Register creates and stores the limiter for r. The name must be unique.
func (g *Registry) Register(r Resource) (*RateLimiter, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.byName[r.Name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateLimiter, r.Name)
	}

	opts := make([]Option, 0, len(g.opts)+2)
	opts = append(opts, g.opts...)
	opts = append(opts, WithName(r.Name))
	if r.Policy != PolicyDefault {
		opts = append(opts, WithPolicy(r.Policy))
	}
	l, err := New(r.MaxCalls, r.Period, opts...)
	if err != nil {
		return nil, err
	}

	e := &registryEntry{resource: r, pattern: compilePattern(r.Pattern), limiter: l}
	g.entries = append(g.entries, e)
	g.byName[r.Name] = e

	g.settings.logger.Info("throttle limiter registered",
		zap.String("limiter", r.Name),
		zap.Int64("max_calls", r.MaxCalls),
		zap.Duration("period", r.Period),
		zap.Stringer("policy", l.Policy()),
	)
	return l, nil
}

// MustRegister is like Register but panics on error.
func (g *Registry) MustRegister(r Resource) *RateLimiter {
	l, err := g.Register(r)
	if err != nil {
		panic(err)
	}
	return l
}

// Limiter returns the limiter registered under name.
func (g *Registry) Limiter(name string) (*RateLimiter, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	e, ok := g.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLimiter, name)
	}
	return e.limiter, nil
}

// TryAcquire asks the named limiter for admission. The error is only set
// when no such limiter exists; a rejection is (false, nil).
func (g *Registry) TryAcquire(name string) (bool, error) {
	l, err := g.Limiter(name)
	if err != nil {
		return false, err
	}
	return l.TryAcquire(), nil
}

// Check applies the first registered resource whose pattern matches
// rawURL. It returns a *RejectedError when that limiter refuses the call
// and nil when it admits it or nothing matches. A done ctx is reported
// without consuming a slot.
func (g *Registry) Check(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	return g.checkURL(ctx, u)
}

func (g *Registry) checkURL(ctx context.Context, u *url.URL) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.RLock()
	var l *RateLimiter
	for _, e := range g.entries {
		if e.pattern.matchURL(u) {
			l = e.limiter
			break
		}
	}
	g.mu.RUnlock()

	if l == nil || l.TryAcquire() {
		return nil
	}
	return l.rejectedError()
}

// Transport wraps an http.RoundTripper so that every request made through
// it is checked against the registered URL patterns.
func (g *Registry) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &transport{registry: g, base: base}
}

// Middleware guards an http.Handler with the limiter registered under name.
// See the package-level Middleware.
func (g *Registry) Middleware(name string) (func(http.Handler) http.Handler, error) {
	l, err := g.Limiter(name)
	if err != nil {
		return nil, err
	}
	return Middleware(l), nil
}

// Resources returns a copy of all registered resources in registration order.
func (g *Registry) Resources() []Resource {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Resource, len(g.entries))
	for i, e := range g.entries {
		out[i] = e.resource
	}
	return out
}

// Snapshot returns the current state of every registered limiter.
func (g *Registry) Snapshot() []Status {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Status, 0, len(g.entries))
	for _, e := range g.entries {
		out = append(out, Status{Resource: e.resource, Stats: e.limiter.Stats()})
	}
	return out
}

// Flush writes the admissions and rejections counted since the previous
// flush to the ledger configured with WithLedger, under the keys
// "<name>/admitted" and "<name>/rejected". It is a no-op without a ledger
// and returns ErrClosed once Close has run.
func (g *Registry) Flush(ctx context.Context) error {
	ledger := g.settings.ledger
	if ledger == nil {
		return nil
	}

	bucket := store.BucketFor(g.settings.clock.Now(), g.settings.granularity)
	snapshot := g.Snapshot()

	g.flushMu.Lock()
	defer g.flushMu.Unlock()
	if g.closed {
		return ErrClosed
	}

	var errs []error
	for _, st := range snapshot {
		totals := []struct {
			key   string
			total int64
		}{
			{st.Resource.Name + "/admitted", st.Stats.Admitted},
			{st.Resource.Name + "/rejected", st.Stats.Rejected},
		}
		for _, t := range totals {
			delta := t.total - g.flushed[t.key]
			if delta <= 0 {
				continue
			}
			if _, err := ledger.Add(ctx, t.key, bucket, delta); err != nil {
				g.settings.metrics.flushFailed()
				g.settings.logger.Warn("throttle ledger flush failed",
					zap.String("key", t.key),
					zap.Int64("delta", delta),
					zap.Error(err),
				)
				errs = append(errs, fmt.Errorf("throttle: flush %s: %w", t.key, err))
				continue
			}
			g.flushed[t.key] = t.total
		}
	}
	return errors.Join(errs...)
}

// Close flushes pending tallies and closes the ledger, if any. Later calls
// return the result of the first.
func (g *Registry) Close() error {
	g.closeOnce.Do(func() {
		if g.settings.ledger == nil {
			return
		}
		flushErr := g.Flush(context.Background())

		g.flushMu.Lock()
		g.closed = true
		g.flushMu.Unlock()

		g.closeErr = errors.Join(flushErr, g.settings.ledger.Close())
	})
	return g.closeErr
}
