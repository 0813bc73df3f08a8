package serde

import (
	"context"

	"github.com/pasqal-io/textserde/config"
)

// An option for a single call.
type Option func(*settings)

type settings struct {
	ctx       context.Context
	cfg       *config.Config
	overrides []func(*config.Config)
	safe      bool
}

// Use `cfg` instead of the process-wide configuration.
func WithConfig(cfg config.Config) Option {
	return func(s *settings) {
		s.cfg = &cfg
	}
}

// Alter the configuration for this call only.
//
// Overrides apply in order, after WithConfig and WithContext.
func WithOverrides(mutate func(*config.Config)) Option {
	return func(s *settings) {
		s.overrides = append(s.overrides, mutate)
	}
}

// Read the configuration attached to `ctx` with `config.NewContext`.
//
// Falls back to the process-wide configuration if there is none.
func WithContext(ctx context.Context) Option {
	return func(s *settings) {
		s.ctx = ctx
	}
}

// Replace cyclic references with `shared.CircularReferenceMarker` instead
// of recursing until MaxDepth.
func WithCycleSafety() Option {
	return func(s *settings) {
		s.safe = true
	}
}

func resolve(opts []Option) settings {
	s := settings{ctx: context.Background(), cfg: nil, overrides: nil, safe: false}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// The configuration for this call.
func (s settings) config() config.Config {
	var cfg config.Config
	if s.cfg != nil {
		cfg = *s.cfg
	} else {
		cfg = config.Resolve(s.ctx)
	}
	for _, mutate := range s.overrides {
		mutate(&cfg)
	}
	return cfg
}
