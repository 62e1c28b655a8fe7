package throttle

import (
	"fmt"
	"strings"
)

// Policy selects how a limiter counts admissions over its period.
type Policy int

const (
	// PolicyDefault defers the choice: a Resource inherits the policy given
	// to its Registry, and a limiter without one uses FixedWindow.
	PolicyDefault Policy = iota
	// FixedWindow counts admissions since the start of the current window
	// and restarts from zero once a full period has elapsed. Up to twice
	// the limit can be admitted in a short span straddling a reset.
	FixedWindow
	// SlidingLog remembers the time of each admission and only counts the
	// ones younger than the period, so no boundary burst is possible.
	SlidingLog
)

func (p Policy) String() string {
	switch p {
	case PolicyDefault:
		return "default"
	case FixedWindow:
		return "fixed_window"
	case SlidingLog:
		return "sliding_log"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy converts a policy name to a Policy. The empty string maps to
// PolicyDefault.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return PolicyDefault, nil
	case "fixed_window", "fixed":
		return FixedWindow, nil
	case "sliding_log", "sliding":
		return SlidingLog, nil
	default:
		return PolicyDefault, fmt.Errorf("%w: unknown policy %q", ErrInvalidConfig, s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p Policy) valid() bool {
	return p == PolicyDefault || p == FixedWindow || p == SlidingLog
}
