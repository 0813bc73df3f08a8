// Package hooks lets callers run code around the (de)serialization of a type.
//
// Hooks are registered per type. A type without its own hooks inherits the
// hooks of the first embedded struct that has some, then those of the first
// registered interface it implements. Hooks do not chain: only the first
// match runs.
package hooks

import (
	"reflect"
	"slices"
	"sync"

	"go.uber.org/atomic"

	"github.com/pasqal-io/textserde/internal/logging"
)

// The hooks for type `T`. Any of them may be nil.
type Set[T any] struct {
	// Called before the members of a value are written. The result is
	// written instead of the original value.
	OnSerializing func(T) T

	// Called once a value has been written.
	OnSerialized func(T)

	// Called once every member of a value has been read and validated.
	// The result replaces the value.
	OnDeserialized func(T) T
}

type entry struct {
	serializing  func(any) any
	serialized   func(any)
	deserialized func(any) any
}

var (
	registry sync.Map // reflect.Type -> *entry

	interfacesMu sync.RWMutex
	// Interface types with hooks, in registration order.
	interfaces []reflect.Type

	// Bumped on each change, invalidates `resolved`.
	generation = atomic.NewUint64(0)
	resolved   sync.Map // reflect.Type -> resolution
)

type resolution struct {
	generation uint64
	result     Resolved
	ok         bool
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Register the hooks of `T`, replacing any previous registration.
//
// `T` may be an interface type, in which case the hooks apply to every
// type implementing it that has no hooks of its own.
func Register[T any](set Set[T]) {
	t := typeOf[T]()
	e := &entry{
		serializing:  nil,
		serialized:   nil,
		deserialized: nil,
	}
	if set.OnSerializing != nil {
		e.serializing = func(v any) any {
			return set.OnSerializing(v.(T)) //nolint:forcetypeassert
		}
	}
	if set.OnSerialized != nil {
		e.serialized = func(v any) {
			set.OnSerialized(v.(T)) //nolint:forcetypeassert
		}
	}
	if set.OnDeserialized != nil {
		e.deserialized = func(v any) any {
			return set.OnDeserialized(v.(T)) //nolint:forcetypeassert
		}
	}
	registry.Store(t, e)
	if t.Kind() == reflect.Interface {
		interfacesMu.Lock()
		if !slices.Contains(interfaces, t) {
			interfaces = append(interfaces, t)
		}
		interfacesMu.Unlock()
	}
	generation.Inc()
	logging.L().Debug("registered hooks", logging.FieldType(t))
}

// Remove the hooks of `T`.
func Reset[T any]() {
	t := typeOf[T]()
	registry.Delete(t)
	interfacesMu.Lock()
	interfaces = slices.DeleteFunc(interfaces, func(i reflect.Type) bool { return i == t })
	interfacesMu.Unlock()
	generation.Inc()
}

// Remove all hooks.
func ResetAll() {
	registry.Range(func(key, _ any) bool {
		registry.Delete(key)
		return true
	})
	interfacesMu.Lock()
	interfaces = nil
	interfacesMu.Unlock()
	generation.Inc()
}

func lookupEntry(t reflect.Type) (*entry, bool) {
	e, ok := registry.Load(t)
	if !ok {
		return nil, false
	}
	return e.(*entry), true //nolint:forcetypeassert
}

// The hooks applying to some type, once resolved.
type Resolved struct {
	entry *entry

	// If non-nil, the hooks belong to the embedded struct at this index.
	embedded []int

	// If true, the hooks belong to an interface implemented by pointers
	// to the type but not by the type itself.
	viaPointer bool
}

// Find the hooks applying to values of type `t`.
func Lookup(t reflect.Type) (Resolved, bool) {
	gen := generation.Load()
	if cached, ok := resolved.Load(t); ok {
		r := cached.(resolution) //nolint:forcetypeassert
		if r.generation == gen {
			return r.result, r.ok
		}
	}
	result, ok := resolve(t)
	resolved.Store(t, resolution{generation: gen, result: result, ok: ok})
	return result, ok
}

func resolve(t reflect.Type) (Resolved, bool) {
	if e, ok := lookupEntry(t); ok {
		return Resolved{entry: e, embedded: nil, viaPointer: false}, true
	}
	if t.Kind() == reflect.Struct {
		if path, e, ok := findEmbedded(t, nil, map[reflect.Type]bool{t: true}); ok {
			return Resolved{entry: e, embedded: path, viaPointer: false}, true
		}
	}
	interfacesMu.RLock()
	defer interfacesMu.RUnlock()
	for _, iface := range interfaces {
		e, ok := lookupEntry(iface)
		if !ok {
			continue
		}
		if t.Implements(iface) {
			return Resolved{entry: e, embedded: nil, viaPointer: false}, true
		}
		if t.Kind() != reflect.Pointer && reflect.PointerTo(t).Implements(iface) {
			return Resolved{entry: e, embedded: nil, viaPointer: true}, true
		}
	}
	return Resolved{}, false //nolint:exhaustruct
}

// Depth-first, in declaration order.
func findEmbedded(t reflect.Type, prefix []int, visiting map[reflect.Type]bool) ([]int, *entry, bool) {
	for i := range t.NumField() {
		field := t.Field(i)
		if !field.Anonymous || !field.IsExported() {
			continue
		}
		ft := field.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() != reflect.Struct || visiting[ft] {
			continue
		}
		path := append(slices.Clone(prefix), i)
		if e, ok := lookupEntry(ft); ok {
			return path, e, true
		}
		visiting[ft] = true
		if found, e, ok := findEmbedded(ft, path, visiting); ok {
			return found, e, true
		}
	}
	return nil, nil, false
}

// The value the hooks should receive, along with a function storing their
// result back into `holder`.
//
// `holder` must be addressable.
func (r Resolved) target(holder reflect.Value) (reflect.Value, func(any), bool) {
	if r.embedded != nil {
		field, err := holder.FieldByIndexErr(r.embedded)
		if err != nil {
			// Nil embedded pointer, nothing to hook.
			return reflect.Value{}, nil, false
		}
		if field.Kind() == reflect.Pointer {
			if field.IsNil() {
				return reflect.Value{}, nil, false
			}
			field = field.Elem()
		}
		return field, func(result any) { store(field, result) }, true
	}
	if r.viaPointer {
		return holder.Addr(), func(result any) { store(holder, result) }, true
	}
	return holder, func(result any) { store(holder, result) }, true
}

// Store the result of a hook into `slot`, dereferencing if the hook
// returned a pointer. Results of an unexpected type are ignored.
func store(slot reflect.Value, result any) {
	if result == nil {
		return
	}
	v := reflect.ValueOf(result)
	if v.Type() != slot.Type() && v.Kind() == reflect.Pointer && !v.IsNil() && v.Elem().Type() == slot.Type() {
		v = v.Elem()
	}
	if !slot.CanSet() {
		return
	}
	if v.Type().AssignableTo(slot.Type()) {
		if v.Kind() == reflect.Pointer && slot.Kind() == reflect.Pointer && v.Pointer() == slot.Pointer() {
			return
		}
		slot.Set(v)
	}
}

// Replace the pointers along `path` with copies, so that writing through
// them leaves the original value alone.
func detach(holder reflect.Value, path []int) {
	v := holder
	for _, i := range path {
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return
			}
			v = v.Elem()
		}
		v = v.Field(i)
		if v.Kind() == reflect.Pointer && !v.IsNil() && v.CanSet() {
			clone := reflect.New(v.Type().Elem())
			clone.Elem().Set(v.Elem())
			v.Set(clone)
		}
	}
}

func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v
	}
	c := reflect.New(v.Type()).Elem()
	c.Set(v)
	return c
}

// True if at least one hook runs before serialization.
func (r Resolved) HasSerializing() bool {
	return r.entry != nil && r.entry.serializing != nil
}

// Run `OnSerializing` on `v`, returning the value to write.
//
// `v` itself is never modified.
func (r Resolved) Serializing(v reflect.Value) reflect.Value {
	if !r.HasSerializing() {
		return v
	}
	c := reflect.New(v.Type()).Elem()
	c.Set(v)
	detach(c, r.embedded)
	target, set, ok := r.target(c)
	if !ok {
		return v
	}
	set(r.entry.serializing(target.Interface()))
	return c
}

// Run `OnSerialized` on `v`.
func (r Resolved) Serialized(v reflect.Value) {
	if r.entry == nil || r.entry.serialized == nil {
		return
	}
	target, _, ok := r.target(addressable(v))
	if !ok {
		return
	}
	r.entry.serialized(target.Interface())
}

// Run `OnDeserialized` on `v`, in place. `v` must be addressable.
func (r Resolved) Deserialized(v reflect.Value) {
	if r.entry == nil || r.entry.deserialized == nil {
		return
	}
	target, set, ok := r.target(v)
	if !ok {
		return
	}
	set(r.entry.deserialized(target.Interface()))
}
