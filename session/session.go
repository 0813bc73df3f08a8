// Package session holds the state of one top-level (de)serialization call.
//
// A session snapshots the configuration, tracks the nesting depth and,
// for cycle-safe calls, the references currently being written.
package session

import (
	"reflect"

	"github.com/cockroachdb/errors"

	"github.com/pasqal-io/textserde/config"
	"github.com/pasqal-io/textserde/shape"
	"github.com/pasqal-io/textserde/shared"
)

type state uint8

const (
	unvisited state = iota
	visiting
	done
)

// The identity of a reference: pointers, maps and slices.
type identity struct {
	ptr uintptr
	typ reflect.Type
	// Two slices sharing their first element are distinct if their lengths differ.
	len int
}

func identify(v reflect.Value) (identity, bool) {
	switch v.Kind() {
	case reflect.Pointer:
		// Distinct zero-sized values may share an address.
		if v.IsNil() || v.Type().Elem().Size() == 0 {
			return identity{}, false //nolint:exhaustruct
		}
		return identity{ptr: v.Pointer(), typ: v.Type(), len: 0}, true
	case reflect.Map:
		if v.IsNil() {
			return identity{}, false //nolint:exhaustruct
		}
		return identity{ptr: v.Pointer(), typ: v.Type(), len: 0}, true
	case reflect.Slice:
		if v.IsNil() || v.Cap() == 0 || v.Type().Elem().Size() == 0 {
			return identity{}, false //nolint:exhaustruct
		}
		return identity{ptr: v.Pointer(), typ: v.Type(), len: v.Len()}, true
	default:
		return identity{}, false //nolint:exhaustruct
	}
}

// The state of one top-level call.
//
// A Session is not safe for concurrent use.
type Session struct {
	Config config.Config

	// If true, cycles are detected and broken. Otherwise, a cycle ends
	// with ErrMaxDepthExceeded.
	Safe bool

	depth  int
	guard  map[identity]state
	cycles int
}

func New(cfg config.Config, safe bool) *Session {
	var guard map[identity]state
	if safe {
		guard = make(map[identity]state)
	}
	return &Session{
		Config: cfg,
		Safe:   safe,
		depth:  0,
		guard:  guard,
		cycles: 0,
	}
}

// Go one level deeper.
func (s *Session) Push() error {
	s.depth++
	if s.Config.MaxDepth > 0 && s.depth > s.Config.MaxDepth {
		return errors.Wrapf(shared.ErrMaxDepthExceeded, "more than %d levels", s.Config.MaxDepth)
	}
	return nil
}

// Go one level up.
func (s *Session) Pop() {
	s.depth--
}

func (s *Session) Depth() int {
	return s.depth
}

// Start writing the reference `v`.
//
// Returns true if `v` is already being written, i.e. we have found a cycle.
// In that case, do not call Leave. Outside of safe sessions, always false.
func (s *Session) Enter(v reflect.Value) bool {
	if !s.Safe {
		return false
	}
	id, ok := identify(v)
	if !ok {
		return false
	}
	if s.guard[id] == visiting {
		s.cycles++
		return true
	}
	s.guard[id] = visiting
	return false
}

// Done writing the reference `v`.
func (s *Session) Leave(v reflect.Value) {
	if !s.Safe {
		return
	}
	if id, ok := identify(v); ok {
		s.guard[id] = done
	}
}

// The number of cycles broken so far.
func (s *Session) Cycles() int {
	return s.cycles
}

// Return true if the object graph of `value` contains a cycle.
//
// Only members that would be serialized with IncludePublicFields are
// followed. Shared references that do not form a cycle are fine.
func HasCycle(value any) bool {
	if value == nil {
		return false
	}
	walker := cycleWalker{states: make(map[identity]state)}
	return walker.walk(reflect.ValueOf(value))
}

type cycleWalker struct {
	states map[identity]state
}

func (w *cycleWalker) walk(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return false
		}
		return w.walk(v.Elem())
	case reflect.Pointer, reflect.Map, reflect.Slice:
		id, ok := identify(v)
		if !ok {
			return false
		}
		switch w.states[id] {
		case visiting:
			return true
		case done:
			return false
		case unvisited:
		}
		w.states[id] = visiting
		if w.children(v) {
			return true
		}
		w.states[id] = done
		return false
	case reflect.Struct, reflect.Array:
		return w.children(v)
	default:
		return false
	}
}

func (w *cycleWalker) children(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer:
		return w.walk(v.Elem())
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if w.walk(iter.Key()) || w.walk(iter.Value()) {
				return true
			}
		}
	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return false
		}
		for i := range v.Len() {
			if w.walk(v.Index(i)) {
				return true
			}
		}
	case reflect.Struct:
		for _, member := range shape.Of(v.Type(), true).Members {
			field, ok := member.Get(v)
			if ok && w.walk(field) {
				return true
			}
		}
	default:
	}
	return false
}
