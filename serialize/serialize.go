// Package serialize turns Go object graphs into `shared.Value` trees.
//
// The tree is then handed to a format driver. Structs are walked through
// their cached shape, leaves through `convert`, and per-type hooks run
// around each struct.
package serialize

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/pasqal-io/textserde/config"
	"github.com/pasqal-io/textserde/convert"
	"github.com/pasqal-io/textserde/hooks"
	"github.com/pasqal-io/textserde/internal/logging"
	"github.com/pasqal-io/textserde/metrics"
	"github.com/pasqal-io/textserde/session"
	"github.com/pasqal-io/textserde/shape"
	"github.com/pasqal-io/textserde/shared"
	"github.com/pasqal-io/textserde/typeinfo"
)

var treeMarshalerInterface = reflect.TypeOf((*shared.TreeMarshaler)(nil)).Elem()

type serializer struct {
	sess *session.Session
	opts convert.Options
}

// Convert `value` into a tree.
//
// `culture` only affects floating point numbers; use
// `config.InvariantCulture` for every format but CSV.
func ToTree(value any, sess *session.Session, culture config.Culture) (shared.Value, error) {
	s := serializer{
		sess: sess,
		opts: convert.Options{Config: sess.Config, Culture: culture},
	}
	v := reflect.ValueOf(value)
	path := ""
	if v.IsValid() {
		path = v.Type().String()
	}
	return s.walk(v, path)
}

func rootPath(path string) string {
	if path == "" {
		return "<root>"
	}
	return path
}

func (s *serializer) walk(v reflect.Value, path string) (shared.Value, error) {
	if !v.IsValid() || v.Kind() != reflect.Interface {
		return s.concrete(v, path)
	}
	for v.Kind() == reflect.Interface {
		if v.IsNil() {
			return shared.Null{}, nil
		}
		v = v.Elem()
	}
	result, err := s.concrete(v, path)
	if err != nil || s.sess.Config.ExcludeTypeInfo {
		return result, err
	}
	if name, ok := typeinfo.NameOf(v.Type()); ok {
		return withTypeName(result, name), nil
	}
	return result, nil
}

// Prepend the `__type` key to an object.
func withTypeName(v shared.Value, name string) shared.Value {
	obj, ok := v.(*shared.Object)
	if !ok {
		return v
	}
	tagged := shared.NewObject()
	tagged.Set(typeinfo.Key, shared.String(name))
	for _, key := range obj.Keys() {
		value, _ := obj.Lookup(key)
		tagged.Set(key, value)
	}
	return tagged
}

// Walk a value that is not an interface.
func (s *serializer) concrete(v reflect.Value, path string) (shared.Value, error) {
	if !v.IsValid() {
		return shared.Null{}, nil
	}
	t := v.Type()
	switch t.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice:
		if v.IsNil() {
			return shared.Null{}, nil
		}
	default:
	}

	if convert.IsScalar(t) {
		scalar, err := convert.Write(v, s.opts)
		if err != nil {
			return nil, fmt.Errorf("at %s, cannot write a %s:\n\t * %w", rootPath(path), t, err)
		}
		return scalar, nil
	}
	if marshaler, ok := asTreeMarshaler(v); ok {
		return s.replacement(marshaler.MarshalTree(), path)
	}

	switch t.Kind() {
	case reflect.Pointer:
		return s.reference(v, path, func() (shared.Value, error) {
			return s.walk(v.Elem(), path)
		})
	case reflect.Struct:
		return s.nested(func() (shared.Value, error) {
			return s.object(v, path)
		})
	case reflect.Map:
		return s.reference(v, path, func() (shared.Value, error) {
			return s.nested(func() (shared.Value, error) {
				return s.dictionary(v, path)
			})
		})
	case reflect.Slice:
		return s.reference(v, path, func() (shared.Value, error) {
			return s.nested(func() (shared.Value, error) {
				return s.list(v, path)
			})
		})
	case reflect.Array:
		return s.nested(func() (shared.Value, error) {
			return s.list(v, path)
		})
	case reflect.Func:
		return shared.Null{}, nil
	default:
		return nil, errors.Wrapf(shared.ErrUnsupportedType, "at %s, cannot serialize a %s", rootPath(path), t)
	}
}

// Find a `MarshalTree` method, on the value or on its address.
func asTreeMarshaler(v reflect.Value) (shared.TreeMarshaler, bool) {
	t := v.Type()
	if t.Implements(treeMarshalerInterface) {
		return v.Interface().(shared.TreeMarshaler), true //nolint:forcetypeassert
	}
	if t.Kind() == reflect.Pointer || !reflect.PointerTo(t).Implements(treeMarshalerInterface) {
		return nil, false
	}
	if !v.CanAddr() {
		copied := reflect.New(t).Elem()
		copied.Set(v)
		v = copied
	}
	return v.Addr().Interface().(shared.TreeMarshaler), true //nolint:forcetypeassert
}

// Serialize the value a `TreeMarshaler` stands for.
func (s *serializer) replacement(value any, path string) (shared.Value, error) {
	switch typed := value.(type) {
	case shared.Value:
		return typed, nil
	case shared.Pairs:
		return s.nested(func() (shared.Value, error) {
			obj := shared.NewObject()
			for i := range typed {
				pair := &typed[i]
				// Through the interface, so that registered types keep their name.
				entry, err := s.walk(reflect.ValueOf(&pair.Value).Elem(), fmt.Sprint(path, ".", pair.Key))
				if err != nil {
					return nil, err
				}
				if shared.IsNull(entry) && !s.includeNullEntries() {
					continue
				}
				obj.Set(pair.Key, entry)
			}
			return obj, nil
		})
	default:
		return s.walk(reflect.ValueOf(value), path)
	}
}

// Walk a reference, replacing it with the circular marker if we are
// already writing it.
func (s *serializer) reference(v reflect.Value, path string, walk func() (shared.Value, error)) (shared.Value, error) {
	if s.sess.Enter(v) {
		metrics.CyclesBroken.Inc()
		logging.L().Debug("breaking circular reference",
			logging.FieldType(v.Type()), logging.FieldPath(rootPath(path)))
		return shared.String(shared.CircularReferenceMarker), nil
	}
	defer s.sess.Leave(v)
	return walk()
}

func (s *serializer) nested(walk func() (shared.Value, error)) (shared.Value, error) {
	if err := s.sess.Push(); err != nil {
		return nil, err //nolint:wrapcheck
	}
	defer s.sess.Pop()
	return walk()
}

func (s *serializer) includeNullEntries() bool {
	return s.sess.Config.IncludeNullValues || s.sess.Config.IncludeNullValuesInDictionaries
}

func (s *serializer) object(v reflect.Value, path string) (shared.Value, error) {
	t := v.Type()
	resolved, hooked := hooks.Lookup(t)
	original := v
	if hooked {
		v = resolved.Serializing(v)
	}
	cfg := s.sess.Config
	sh := shape.Of(t, cfg.IncludePublicFields)
	obj := shared.NewObject()
	for i := range sh.Members {
		member := &sh.Members[i]
		name := member.NameFor(cfg.TextCase)
		entry, ok, err := s.member(member, v, fmt.Sprint(path, ".", name))
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		obj.Set(name, entry)
	}
	if hooked {
		resolved.Serialized(original)
	}
	return obj, nil
}

// Serialize one member. Returns false if the member should be omitted.
//
// A member that panics while being read or written is omitted.
func (s *serializer) member(member *shape.Member, holder reflect.Value, path string) (result shared.Value, ok bool, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logging.L().Warn("skipping member that cannot be read",
				logging.FieldType(holder.Type()), logging.FieldPath(path), zap.Any("panic", recovered))
			metrics.MembersSkipped.Inc()
			result, ok, err = nil, false, nil
		}
	}()
	field, reachable := member.Get(holder)
	if !reachable {
		// Promoted through a nil embedded pointer.
		return nil, false, nil
	}
	cfg := s.sess.Config
	if cfg.ExcludeDefaultValues && field.IsZero() {
		return nil, false, nil
	}
	if member.OmitEmpty && isEmpty(field) {
		return nil, false, nil
	}
	result, err = s.walk(field, path)
	if err != nil {
		return nil, false, err
	}
	if shared.IsNull(result) && !cfg.IncludeNullValues {
		return nil, false, nil
	}
	return result, true, nil
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Slice, reflect.Map, reflect.String, reflect.Array:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}

func (s *serializer) dictionary(v reflect.Value, path string) (shared.Value, error) {
	type entry struct {
		key   string
		value reflect.Value
	}
	entries := make([]entry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		key, err := s.key(iter.Key(), path)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{key: key, value: iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].key < entries[j].key
	})

	obj := shared.NewObject()
	for _, e := range entries {
		value, err := s.walk(e.value, fmt.Sprint(path, ".", e.key))
		if err != nil {
			return nil, err
		}
		if shared.IsNull(value) && !s.includeNullEntries() {
			continue
		}
		obj.Set(e.key, value)
	}
	return obj, nil
}

func (s *serializer) key(k reflect.Value, path string) (string, error) {
	for k.Kind() == reflect.Interface && !k.IsNil() {
		k = k.Elem()
	}
	if k.Kind() == reflect.String && !convert.HasOverride(k.Type()) {
		return k.String(), nil
	}
	if k.IsValid() && convert.IsScalar(k.Type()) {
		scalar, err := convert.Write(k, convert.InvariantOptions(s.sess.Config))
		if err != nil {
			return "", fmt.Errorf("at %s, cannot write key %v:\n\t * %w", rootPath(path), k, err)
		}
		return scalar.Text, nil
	}
	return "", errors.Wrapf(shared.ErrUnsupportedType, "at %s, map keys must be scalars", rootPath(path))
}

func (s *serializer) list(v reflect.Value, path string) (shared.Value, error) {
	result := make(shared.List, v.Len())
	for i := range v.Len() {
		item, err := s.walk(v.Index(i), fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		result[i] = item
	}
	return result, nil
}
