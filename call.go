package throttle

// Call runs fn if l admits the call. On rejection fn is skipped and Call
// returns the zero T and false.
func Call[T any](l *RateLimiter, fn func() T) (T, bool) {
	if !l.TryAcquire() {
		var zero T
		return zero, false
	}
	return fn(), true
}

// CallErr is Call for functions that can fail. A rejection is reported by
// the boolean, never through the error.
func CallErr[T any](l *RateLimiter, fn func() (T, error)) (T, bool, error) {
	if !l.TryAcquire() {
		var zero T
		return zero, false, nil
	}
	v, err := fn()
	return v, true, err
}

// Wrap returns a guarded version of fn. Every call of the returned function
// goes through l.
func Wrap[T any](l *RateLimiter, fn func() T) func() (T, bool) {
	return func() (T, bool) {
		return Call(l, fn)
	}
}

// Wrap1 is Wrap for single-argument functions.
func Wrap1[A, T any](l *RateLimiter, fn func(A) T) func(A) (T, bool) {
	return func(a A) (T, bool) {
		if !l.TryAcquire() {
			var zero T
			return zero, false
		}
		return fn(a), true
	}
}
