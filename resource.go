package throttle

import (
	"fmt"
	"strings"
	"time"
)

// Resource names a guarded operation and its limit.
type Resource struct {
	Name     string        `yaml:"name"`      // unique identifier, e.g. "stripe-api"
	Pattern  string        `yaml:"pattern"`   // optional URL pattern, e.g. "api.stripe.com/*"
	MaxCalls int64         `yaml:"max_calls"` // calls admitted per period
	Period   time.Duration `yaml:"period"`    // window length
	Policy   Policy        `yaml:"policy"`    // zero inherits the registry's policy
}

func (r Resource) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: resource name is required", ErrInvalidConfig)
	}
	if r.MaxCalls <= 0 {
		return fmt.Errorf("%w: %s: max_calls must be positive, got %d", ErrInvalidConfig, r.Name, r.MaxCalls)
	}
	if r.Period <= 0 {
		return fmt.Errorf("%w: %s: period must be positive, got %s", ErrInvalidConfig, r.Name, r.Period)
	}
	if !r.Policy.valid() {
		return fmt.Errorf("%w: %s: unknown policy %s", ErrInvalidConfig, r.Name, r.Policy)
	}
	return nil
}
