// Package shared defines the format-neutral value tree exchanged between
// the format drivers and the (de)serializers.
//
// Every driver parses its input into a tree of `Value` and writes its output
// from such a tree. Scalars keep their text untouched: converting text into
// typed Go values is the job of package convert.
package shared

import (
	"io"
	"reflect"
	"strings"
)

// A value in the tree.
//
// We use this type instead of raw type conversions to decrease the risk
// of confusion whenever manipulating `any`.
type Value interface {
	AsDict() (Dict, bool)
	AsSlice() ([]Value, bool)
	Interface() any
}

// A dictionary.
type Dict interface {
	Lookup(key string) (Value, bool)
	AsValue() Value
	Keys() []string
}

// What we know about the text of a scalar.
type ScalarKind uint8

const (
	// Unquoted text of unknown type, as produced by JSV, CSV and query strings.
	KindRaw ScalarKind = iota
	// Text that is explicitly a string.
	KindString
	KindNumber
	KindBool
)

func (k ScalarKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "raw"
	}
}

// A scalar, i.e. the textual encoding of a leaf value.
type Scalar struct {
	Text string
	Kind ScalarKind
}

func String(text string) Scalar {
	return Scalar{Text: text, Kind: KindString}
}

func Number(text string) Scalar {
	return Scalar{Text: text, Kind: KindNumber}
}

func Bool(b bool) Scalar {
	if b {
		return Scalar{Text: "true", Kind: KindBool}
	}
	return Scalar{Text: "false", Kind: KindBool}
}

func Raw(text string) Scalar {
	return Scalar{Text: text, Kind: KindRaw}
}

func (s Scalar) AsDict() (Dict, bool) {
	return nil, false
}
func (s Scalar) AsSlice() ([]Value, bool) {
	return nil, false
}
func (s Scalar) Interface() any {
	return s.Text
}

// An explicit null.
type Null struct{}

func (Null) AsDict() (Dict, bool) {
	return nil, false
}
func (Null) AsSlice() ([]Value, bool) {
	return nil, false
}
func (Null) Interface() any {
	return nil
}

// Return true if `v` is absent or an explicit null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// A list of values.
type List []Value

func (l List) AsDict() (Dict, bool) {
	return nil, false
}
func (l List) AsSlice() ([]Value, bool) {
	return l, true
}
func (l List) Interface() any {
	result := make([]any, len(l))
	for i, v := range l {
		if v != nil {
			result[i] = v.Interface()
		}
	}
	return result
}

// A dictionary that remembers insertion order.
type Object struct {
	keys   []string
	values map[string]Value
}

func NewObject() *Object {
	return &Object{
		keys:   nil,
		values: make(map[string]Value),
	}
}

// Set a key. Setting an existing key keeps its original position.
func (o *Object) Set(key string, value Value) {
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

func (o *Object) Lookup(key string) (Value, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Lookup a key, ignoring case.
func (o *Object) LookupFold(key string) (Value, bool) {
	if v, ok := o.values[key]; ok {
		return v, true
	}
	for _, k := range o.keys {
		if strings.EqualFold(k, key) {
			return o.values[k], true
		}
	}
	return nil, false
}

func (o *Object) Keys() []string {
	return append([]string(nil), o.keys...)
}

func (o *Object) Len() int {
	return len(o.keys)
}

func (o *Object) AsValue() Value {
	return o
}
func (o *Object) AsDict() (Dict, bool) {
	return o, true
}
func (o *Object) AsSlice() ([]Value, bool) {
	return nil, false
}
func (o *Object) Interface() any {
	result := make(map[string]any, len(o.keys))
	for _, k := range o.keys {
		if v := o.values[k]; v != nil {
			result[k] = v.Interface()
		} else {
			result[k] = nil
		}
	}
	return result
}

var (
	_ Value = Scalar{}  //nolint:exhaustruct
	_ Value = Null{}    //nolint:exhaustruct
	_ Value = List{}    //nolint:exhaustruct
	_ Dict  = &Object{} //nolint:exhaustruct
)

// An ordered list of key/value pairs, serialized as an object.
//
// Types that behave like string-keyed maps but must preserve their order
// return this from `MarshalTree`.
type Pairs []Pair

type Pair struct {
	Key   string
	Value any
}

// A type that presents itself as another Go value during serialization.
//
// The returned value is serialized in place of the receiver.
type TreeMarshaler interface {
	MarshalTree() any
}

// Bind the tree `v` into `target`, which must be a non-nil pointer.
type BindFunc func(v Value, target any) error

// A type that builds itself from a tree during deserialization.
//
// Implement it on the pointer type.
type TreeUnmarshaler interface {
	UnmarshalTree(v Value, bind BindFunc) error
}

// A driver for a specific wire format.
type Driver interface {
	// A short lowercase name, e.g. "json".
	Name() string

	// Write a tree to `w`.
	Encode(w io.Writer, v Value) error

	// Parse a tree from `r`.
	Decode(r io.Reader) (Value, error)
}

// A driver whose parsing depends on the type being decoded.
//
// CSV is the typical example: whether the first row is a header depends
// on the target.
type TypedDecoder interface {
	DecodeAs(r io.Reader, t reflect.Type) (Value, error)
}
