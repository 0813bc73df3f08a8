// Package typeinfo names concrete types, so that values held by interfaces
// can be read back with their original type.
//
// When a registered type is written through an interface (a member of type
// `any`, an item of `[]Shape`...), its object gains a leading `__type` key
// holding the registered name. Reading an interface slot looks the name up
// and decodes the object into the registered type.
package typeinfo

import (
	"reflect"
	"sync"

	"github.com/cockroachdb/errors"
)

// The key holding the type name.
const Key = "__type"

var registry = struct {
	sync.RWMutex
	byName map[string]reflect.Type
	byType map[reflect.Type]string
}{
	byName: make(map[string]reflect.Type),
	byType: make(map[reflect.Type]string),
}

func concrete(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// Register `name` for T. Registering `T` and `*T` is the same.
//
// Registering T again replaces its previous name. Fails if `name` is
// already used by another type.
func Register[T any](name string) error {
	t := concrete(reflect.TypeFor[T]())
	if name == "" {
		return errors.Newf("empty type name for %s", t)
	}
	if t.Kind() == reflect.Interface {
		return errors.Newf("cannot register interface type %s", t)
	}
	registry.Lock()
	defer registry.Unlock()
	if existing, ok := registry.byName[name]; ok && existing != t {
		return errors.Newf("type name %q is already used by %s", name, existing)
	}
	if previous, ok := registry.byType[t]; ok {
		delete(registry.byName, previous)
	}
	registry.byName[name] = t
	registry.byType[t] = name
	return nil
}

// Forget the name of T.
func Unregister[T any]() {
	t := concrete(reflect.TypeFor[T]())
	registry.Lock()
	defer registry.Unlock()
	if name, ok := registry.byType[t]; ok {
		delete(registry.byName, name)
		delete(registry.byType, t)
	}
}

// The name registered for `t`, or for the type `t` points to.
func NameOf(t reflect.Type) (string, bool) {
	t = concrete(t)
	registry.RLock()
	defer registry.RUnlock()
	name, ok := registry.byType[t]
	return name, ok
}

// The type registered under `name`.
func Lookup(name string) (reflect.Type, bool) {
	registry.RLock()
	defer registry.RUnlock()
	t, ok := registry.byName[name]
	return t, ok
}

// The type to decode into so that the result fits a slot of type `slot`:
// `t` itself if it implements `slot`, else `*t`.
func Fit(t reflect.Type, slot reflect.Type) (reflect.Type, error) {
	if t.AssignableTo(slot) {
		return t, nil
	}
	if ptr := reflect.PointerTo(t); ptr.AssignableTo(slot) {
		return ptr, nil
	}
	return nil, errors.Newf("%s does not implement %s", t, slot)
}
