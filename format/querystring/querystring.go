// Code specific to query strings, e.g. `Id=1&Name=Ada+Lovelace&Tags=a,b`.
//
// Collections are written inline, comma-separated. Nested objects are
// written as JSV. Repeated keys on input are merged into a list.
package querystring

import (
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/pasqal-io/textserde/format/jsv"
	"github.com/pasqal-io/textserde/shared"
)

const Name = "querystring"

// The driver for query strings.
type Driver struct{}

func (Driver) Name() string {
	return Name
}

// Write an object as a query string. Other trees cannot be written.
func (Driver) Encode(w io.Writer, v shared.Value) error {
	text, err := Format(v)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, text)
	return errors.Wrap(err, "cannot write query string")
}

// Format an object as a query string.
func Format(v shared.Value) (string, error) {
	if shared.IsNull(v) {
		return "", nil
	}
	dict, ok := v.AsDict()
	if !ok {
		return "", errors.Wrap(shared.ErrUnsupportedType, "a query string can only hold an object")
	}
	parts := lo.Map(dict.Keys(), func(key string, _ int) string {
		value, _ := dict.Lookup(key)
		return url.QueryEscape(key) + "=" + formatValue(value)
	})
	return strings.Join(parts, "&"), nil
}

func formatValue(v shared.Value) string {
	switch typed := v.(type) {
	case nil, shared.Null:
		return ""
	case shared.Scalar:
		return url.QueryEscape(typed.Text)
	}
	if items, ok := v.AsSlice(); ok {
		return strings.Join(lo.Map(items, func(item shared.Value, _ int) string {
			return url.QueryEscape(jsv.Format(item))
		}), ",")
	}
	return url.QueryEscape(jsv.Format(v))
}

// Parse a query string. A leading `?` is ignored.
func (Driver) Decode(r io.Reader) (shared.Value, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read query string")
	}
	obj, err := Parse(string(buf))
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// Parse a query string into an object of raw scalars, preserving the
// order of first appearance.
func Parse(text string) (*shared.Object, error) {
	input := text
	text = strings.TrimPrefix(strings.TrimSpace(text), "?")
	obj := shared.NewObject()
	offset := max(strings.Index(input, text), 0)
	for _, part := range strings.Split(text, "&") {
		if part == "" {
			offset++
			continue
		}
		rawKey, rawValue, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, shared.NewParseError(Name, input, offset, "invalid key escape")
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, shared.NewParseError(Name, input, offset+len(rawKey)+1, "invalid value escape")
		}
		add(obj, key, shared.Raw(value))
		offset += len(part) + 1
	}
	return obj, nil
}

func add(obj *shared.Object, key string, value shared.Value) {
	previous, ok := obj.Lookup(key)
	if !ok {
		obj.Set(key, value)
		return
	}
	if list, ok := previous.(shared.List); ok {
		obj.Set(key, append(list, value))
		return
	}
	obj.Set(key, shared.List{previous, value})
}

// A (key, value list) store, as produced by `net/url`.
type KVList map[string][]string

// Convert a `url.Values` into a tree. Keys are sorted.
func FromValues(values url.Values) shared.Value {
	return KVList(values).AsValue()
}

func lookupValue(values []string) shared.Value {
	if len(values) == 1 {
		return shared.Raw(values[0])
	}
	return shared.List(lo.Map(values, func(v string, _ int) shared.Value {
		return shared.Raw(v)
	}))
}

func (list KVList) Lookup(key string) (shared.Value, bool) {
	if values, ok := list[key]; ok {
		return lookupValue(values), true
	}
	return nil, false
}

func (list KVList) AsValue() shared.Value {
	obj := shared.NewObject()
	for _, key := range list.Keys() {
		obj.Set(key, lookupValue(list[key]))
	}
	return obj
}

func (list KVList) Keys() []string {
	keys := lo.Keys(list)
	sort.Strings(keys)
	return keys
}

var (
	_ shared.Dict   = make(KVList, 0)
	_ shared.Driver = Driver{}
)
