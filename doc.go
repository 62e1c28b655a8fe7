// Package throttle bounds how many times a unit of work runs within a time
// window. A call over the limit is not queued or delayed: the limiter says
// no right away and the caller skips the work.
//
// # Key Concepts
//
//   - [RateLimiter] admits at most MaxCalls calls per Period. [RateLimiter.TryAcquire]
//     is called right before the guarded work; it never blocks beyond a short
//     critical section and never fails.
//   - [Policy] picks the counting scheme. [FixedWindow] restarts its count once
//     a full period has passed since the window began, which can admit up to
//     twice the limit across a window boundary. [SlidingLog] counts only the
//     admissions made during the last period.
//   - [Call], [Wrap] and [Wrap1] guard a function explicitly and report a
//     rejection as an absent result rather than an error.
//   - [Registry] holds one limiter per named operation, matches outgoing HTTP
//     requests against URL patterns, and can publish usage tallies to a
//     [store.Store] ledger.
//
// # Quick Start
//
//	limiter := throttle.MustNew(10, time.Second)
//
//	fetch := throttle.Wrap1(limiter, func(id string) Item {
//		return load(id)
//	})
//
//	if item, ok := fetch("42"); ok {
//		use(item)
//	}
//
// See the [Registry] documentation for named limiters and HTTP integration.
package throttle
