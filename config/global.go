package config

import (
	"context"
	"sync"

	"go.uber.org/atomic"
)

var global = atomic.NewPointer(ptr(Default()))

func ptr(cfg Config) *Config {
	return &cfg
}

// Return a copy of the process-wide configuration.
func Get() Config {
	return *global.Load()
}

// Replace the process-wide configuration.
//
// The caller is responsible for restoring it. Prefer `With` or `Scoped`.
func Set(cfg Config) {
	global.Store(ptr(cfg))
}

// Restore the default configuration and drop every open scope.
func Reset() {
	scopes.Lock()
	defer scopes.Unlock()
	for _, s := range scopes.stack {
		s.closed = true
	}
	scopes.stack = nil
	Set(Default())
}

// A scoped override of the process-wide configuration.
//
// Scopes live on an explicit process-wide stack: concurrent scopes opened
// from different goroutines race each other. Use `NewContext` to isolate
// goroutines.
type Scope struct {
	prev   Config
	cfg    Config
	closed bool
}

var scopes struct {
	sync.Mutex
	stack []*Scope
}

// Push a scoped override: `mutate` receives a copy of the current
// configuration, which becomes the process-wide configuration until the
// scope is closed.
func With(mutate func(*Config)) *Scope {
	scopes.Lock()
	defer scopes.Unlock()
	prev := Get()
	cfg := prev
	if mutate != nil {
		mutate(&cfg)
	}
	scope := &Scope{prev: prev, cfg: cfg, closed: false}
	scopes.stack = append(scopes.stack, scope)
	Set(cfg)
	return scope
}

// The configuration installed by this scope.
func (s *Scope) Config() Config {
	return s.cfg
}

// Restore the configuration that was active when the scope was opened.
//
// Scopes opened after this one are closed too. Closing a scope twice is a
// no-op.
func (s *Scope) Close() {
	scopes.Lock()
	defer scopes.Unlock()
	if s.closed {
		return
	}
	for i := len(scopes.stack) - 1; i >= 0; i-- {
		top := scopes.stack[i]
		top.closed = true
		if top == s {
			scopes.stack = scopes.stack[:i]
			break
		}
	}
	Set(s.prev)
}

// The number of open scopes.
func Depth() int {
	scopes.Lock()
	defer scopes.Unlock()
	return len(scopes.stack)
}

// Run `fn` with a scoped override. The previous configuration is restored
// when `fn` returns or panics.
func Scoped(mutate func(*Config), fn func() error) error {
	scope := With(mutate)
	defer scope.Close()
	return fn()
}

type contextKey struct{}

// Attach a configuration to a context.
func NewContext(ctx context.Context, cfg Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// Extract the configuration attached with `NewContext`.
func FromContext(ctx context.Context) (Config, bool) {
	if ctx == nil {
		return Config{}, false //nolint:exhaustruct
	}
	cfg, ok := ctx.Value(contextKey{}).(Config)
	return cfg, ok
}

// The configuration attached to `ctx`, or the process-wide one.
func Resolve(ctx context.Context) Config {
	if cfg, ok := FromContext(ctx); ok {
		return cfg
	}
	return Get()
}
