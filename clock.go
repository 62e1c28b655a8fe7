package throttle

import "time"

// Clock supplies the current time to a limiter.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
