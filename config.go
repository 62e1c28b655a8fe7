package throttle

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config lists the limiters to register, usually loaded from YAML:
//
//	limiters:
//	  - name: stripe
//	    pattern: api.stripe.com/*
//	    max_calls: 100
//	    period: 1m
//	    policy: fixed_window
type Config struct {
	Limiters []Resource `yaml:"limiters"`
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("throttle: open config: %w", err)
	}
	defer f.Close()

	cfg, err := ParseConfig(f)
	if err != nil {
		return nil, fmt.Errorf("throttle: %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes and validates YAML from r. Unknown fields are errors.
func ParseConfig(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid or duplicated limiter.
func (c *Config) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(c.Limiters))
	for i, r := range c.Limiters {
		if err := r.validate(); err != nil {
			errs = append(errs, fmt.Errorf("limiters[%d]: %w", i, err))
			continue
		}
		if seen[r.Name] {
			errs = append(errs, fmt.Errorf("limiters[%d]: %w: %s", i, ErrDuplicateLimiter, r.Name))
		}
		seen[r.Name] = true
	}
	return errors.Join(errs...)
}

// NewRegistryFromConfig registers every limiter in cfg on a new registry.
func NewRegistryFromConfig(cfg *Config, opts ...Option) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := NewRegistry(opts...)
	for _, r := range cfg.Limiters {
		if _, err := g.Register(r); err != nil {
			return nil, err
		}
	}
	return g, nil
}
