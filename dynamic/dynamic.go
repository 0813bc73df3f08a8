// Package dynamic provides Bag, an ordered set of named values whose types
// are only known at runtime.
//
// A Bag serializes as an object, in insertion order. When read back, each
// value is deserialized untyped: text, numbers, booleans, lists as `[]any`
// and objects as `map[string]any`.
package dynamic

import (
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/pasqal-io/textserde/format/jsv"
	"github.com/pasqal-io/textserde/shared"
)

// An ordered map of values.
//
// The zero value is an empty bag.
type Bag struct {
	keys   []string
	values map[string]any
}

func New() *Bag {
	return &Bag{keys: nil, values: make(map[string]any)}
}

// Set a value, keeping the original position of `key` if it is already present.
func (b *Bag) Set(key string, value any) {
	if b.values == nil {
		b.values = make(map[string]any)
	}
	if _, ok := b.values[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.values[key] = value
}

func (b *Bag) Get(key string) (any, bool) {
	value, ok := b.values[key]
	return value, ok
}

// Get a value, converted to T.
//
// Fails if the value is absent or has another type.
func Get[T any](b *Bag, key string) (T, error) {
	var zero T
	value, ok := b.Get(key)
	if !ok {
		return zero, errors.Newf("missing key %q", key)
	}
	typed, ok := value.(T)
	if !ok {
		return zero, errors.Newf("at %s, expected a %T, got %T", key, zero, value)
	}
	return typed, nil
}

// Remove a value. Returns false if it was absent.
func (b *Bag) Delete(key string) bool {
	if _, ok := b.values[key]; !ok {
		return false
	}
	delete(b.values, key)
	b.keys = lo.Without(b.keys, key)
	return true
}

// The keys, in insertion order.
func (b *Bag) Keys() []string {
	return append([]string{}, b.keys...)
}

func (b *Bag) Len() int {
	return len(b.keys)
}

func (b Bag) MarshalTree() any {
	return shared.Pairs(lo.Map(b.keys, func(key string, _ int) shared.Pair {
		return shared.Pair{Key: key, Value: b.values[key]}
	}))
}

func (b *Bag) UnmarshalTree(v shared.Value, bind shared.BindFunc) error {
	*b = Bag{keys: nil, values: make(map[string]any)}
	if shared.IsNull(v) {
		return nil
	}
	if scalar, ok := v.(shared.Scalar); ok {
		if scalar.Text == "" {
			return nil
		}
		// CSV cells and query-string values carry nested objects as JSV.
		parsed, err := jsv.Parse(scalar.Text)
		if err != nil {
			return errors.Wrap(err, "expected an object")
		}
		v = parsed
	}
	dict, ok := v.AsDict()
	if !ok {
		return errors.New("expected an object")
	}
	for _, key := range dict.Keys() {
		item, _ := dict.Lookup(key)
		var value any
		if err := bind(item, &value); err != nil {
			return errors.Wrapf(err, "cannot read %q", key)
		}
		b.Set(key, value)
	}
	return nil
}

var (
	_ shared.TreeMarshaler   = Bag{}  //nolint:exhaustruct
	_ shared.TreeUnmarshaler = &Bag{} //nolint:exhaustruct
)
