package throttle

import "time"

// callLog is a FIFO ring of admission times, oldest first. It grows on
// demand up to the limiter's capacity, so a large limit doesn't cost
// memory until it is actually used.
type callLog struct {
	times    []time.Time
	head     int
	n        int
	capacity int
}

const initialCallLogSize = 16

func newCallLog(capacity int64) *callLog {
	size := initialCallLogSize
	if capacity < int64(size) {
		size = int(capacity)
	}
	return &callLog{
		times:    make([]time.Time, size),
		capacity: int(capacity),
	}
}

func (c *callLog) len() int { return c.n }

// oldest returns the earliest remembered admission, or the zero time.
func (c *callLog) oldest() time.Time {
	if c.n == 0 {
		return time.Time{}
	}
	return c.times[c.head]
}

// prune forgets admissions whose age has reached period.
func (c *callLog) prune(now time.Time, period time.Duration) {
	for c.n > 0 && now.Sub(c.times[c.head]) >= period {
		c.times[c.head] = time.Time{}
		c.head = (c.head + 1) % len(c.times)
		c.n--
	}
}

func (c *callLog) push(t time.Time) {
	if c.n == len(c.times) {
		c.grow()
	}
	c.times[(c.head+c.n)%len(c.times)] = t
	c.n++
}

func (c *callLog) grow() {
	size := len(c.times) * 2
	if size > c.capacity {
		size = c.capacity
	}
	if size <= len(c.times) {
		// Callers never push past capacity.
		size = len(c.times) + 1
	}
	times := make([]time.Time, size)
	for i := 0; i < c.n; i++ {
		times[i] = c.times[(c.head+i)%len(c.times)]
	}
	c.times = times
	c.head = 0
}
