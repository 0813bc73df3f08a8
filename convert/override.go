package convert

import (
	"reflect"
	"sync"

	"github.com/cockroachdb/errors"
)

type override struct {
	serialize   func(reflect.Value) (string, error)
	deserialize func(string) (reflect.Value, error)
}

var overrides sync.Map // reflect.Type -> *override

// Register custom text conversions for `T`.
//
// `T` is then written as a single string, even if it is a struct. For
// scalar types, either function may be nil to keep the built-in conversion
// in that direction. Registering again replaces the previous functions.
func RegisterScalar[T any](serialize func(T) string, deserialize func(string) (T, error)) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	o := &override{serialize: nil, deserialize: nil}
	if serialize != nil {
		o.serialize = func(v reflect.Value) (string, error) {
			value, ok := v.Interface().(T)
			if !ok {
				return "", errors.Newf("expected %s, got %s", t, v.Type())
			}
			return serialize(value), nil
		}
	}
	if deserialize != nil {
		o.deserialize = func(text string) (reflect.Value, error) {
			value, err := deserialize(text)
			if err != nil {
				return reflect.Value{}, err
			}
			result := reflect.New(t).Elem()
			result.Set(reflect.ValueOf(&value).Elem())
			return result, nil
		}
	}
	overrides.Store(t, o)
}

// Remove the custom conversions registered for `T`.
func ClearScalar[T any]() {
	overrides.Delete(reflect.TypeOf((*T)(nil)).Elem())
}

func lookupOverride(t reflect.Type) (*override, bool) {
	o, ok := overrides.Load(t)
	if !ok {
		return nil, false
	}
	return o.(*override), true //nolint:forcetypeassert
}

// Return true if custom conversions are registered for `t`.
func HasOverride(t reflect.Type) bool {
	_, ok := overrides.Load(t)
	return ok
}
