// Package shape computes and caches the serializable members of Go types.
//
// A `Shape` lists, in declaration order, the members of a struct type along
// with closures reading and writing them. Shapes are built once per
// (type, includeFields) pair and shared by every caller.
package shape

import (
	"encoding"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/pasqal-io/textserde/config"
	"github.com/pasqal-io/textserde/internal/logging"
	"github.com/pasqal-io/textserde/tags"
)

// A serializable member of a struct.
type Member struct {
	// The name used on the wire.
	Name string
	// The name of the Go field.
	GoName string
	Type   reflect.Type
	// The index path, as used by `reflect.Value.FieldByIndex`.
	Index []int
	// True for members tagged `,field`, included only with IncludePublicFields.
	IsField bool
	// True if the wire name comes from a tag.
	Renamed   bool
	OmitEmpty bool
	// The text of tag `default`, if any.
	Default *string

	// Read the member from a struct or a pointer to a struct.
	//
	// Returns false if the member is unreachable, i.e. it is promoted
	// through a nil embedded pointer.
	Get func(instance reflect.Value) (reflect.Value, bool)

	// Write the member of a struct.
	//
	// If `instance` is a struct that is not addressable (e.g. a copy),
	// Set does nothing and returns false: use SetRef to mutate a struct in
	// place. If `instance` is a pointer, this is SetRef.
	Set func(instance reflect.Value, value reflect.Value) bool

	// Write the member of the struct `ptr` points to, allocating nil
	// embedded pointers on the way.
	SetRef func(ptr reflect.Value, value reflect.Value) error
}

// The name written for this member under a naming policy.
//
// Names coming from a tag are never altered.
func (m *Member) NameFor(textCase config.TextCase) string {
	if m.Renamed {
		return m.Name
	}
	switch textCase {
	case config.TextCaseCamelCase:
		return lo.CamelCase(m.Name)
	case config.TextCaseSnakeCase:
		return lo.SnakeCase(m.Name)
	default:
		return m.Name
	}
}

// The serializable members of a type.
type Shape struct {
	Type          reflect.Type
	IncludeFields bool
	Members       []Member

	byName map[string]int
	byFold map[string]int
}

// Find a member by wire name or Go name.
//
// Exact matches win, then matches ignoring case, `_` and `-`.
func (s *Shape) Lookup(name string) (*Member, bool) {
	i, ok := s.IndexOf(name)
	if !ok {
		return nil, false
	}
	return &s.Members[i], true
}

// Like Lookup, returning the position of the member in Members.
func (s *Shape) IndexOf(name string) (int, bool) {
	if i, ok := s.byName[name]; ok {
		return i, true
	}
	if i, ok := s.byFold[fold(name)]; ok {
		return i, true
	}
	return -1, false
}

func (s *Shape) IsEmpty() bool {
	return len(s.Members) == 0
}

func fold(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		if r == '_' || r == '-' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var textMarshalerInterface = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()

// Types implementing encoding.TextMarshaler are scalars, never flattened.
func isTextual(t reflect.Type) bool {
	return t.Implements(textMarshalerInterface) || reflect.PointerTo(t).Implements(textMarshalerInterface)
}

type candidate struct {
	member Member
	depth  int
}

func build(t reflect.Type, includeFields bool) *Shape {
	result := &Shape{
		Type:          t,
		IncludeFields: includeFields,
		Members:       nil,
		byName:        make(map[string]int),
		byFold:        make(map[string]int),
	}
	if t.Kind() != reflect.Struct {
		return result
	}

	var candidates []candidate
	collect(t, nil, 0, includeFields, map[reflect.Type]bool{t: true}, &candidates)

	// Shallowest wins. Ambiguous names at the same depth are dropped,
	// unless exactly one of them is renamed by a tag.
	winners := make(map[string]int)
	dropped := make(map[string]bool)
	for i, c := range candidates {
		prev, seen := winners[c.member.Name]
		switch {
		case !seen:
			winners[c.member.Name] = i
		case c.depth < candidates[prev].depth:
			winners[c.member.Name] = i
			delete(dropped, c.member.Name)
		case c.depth == candidates[prev].depth:
			prevRenamed := candidates[prev].member.Renamed
			switch {
			case c.member.Renamed && !prevRenamed:
				winners[c.member.Name] = i
			case prevRenamed && !c.member.Renamed:
			default:
				dropped[c.member.Name] = true
			}
		}
	}
	for i, c := range candidates {
		if winners[c.member.Name] != i || dropped[c.member.Name] {
			continue
		}
		member := c.member
		bind(&member)
		result.Members = append(result.Members, member)
	}
	for i, m := range result.Members {
		result.byName[m.Name] = i
		if _, exists := result.byName[m.GoName]; !exists {
			result.byName[m.GoName] = i
		}
		if _, exists := result.byFold[fold(m.Name)]; !exists {
			result.byFold[fold(m.Name)] = i
		}
	}
	return result
}

func collect(t reflect.Type, index []int, depth int, includeFields bool, visiting map[reflect.Type]bool, out *[]candidate) {
	for i := range t.NumField() {
		field := t.Field(i)
		fieldTags, err := tags.Parse(field.Tag)
		if err != nil {
			logging.L().Warn("ignoring member with invalid tags",
				logging.FieldType(t), zap.String("member", field.Name), zap.Error(err))
			continue
		}
		if fieldTags.IsSkipped(tags.NameKeys...) {
			continue
		}
		fieldIndex := append(append([]int(nil), index...), i)
		name, renamed := fieldTags.Name(tags.NameKeys...)

		if (field.Anonymous && !renamed) || fieldTags.IsFlattened() {
			inner := field.Type
			if inner.Kind() == reflect.Pointer {
				inner = inner.Elem()
			}
			if inner.Kind() == reflect.Struct && !isTextual(inner) {
				if !field.IsExported() && field.Type.Kind() == reflect.Pointer {
					// We could never allocate it.
					continue
				}
				if visiting[inner] {
					continue
				}
				visiting[inner] = true
				collect(inner, fieldIndex, depth+1, includeFields, visiting, out)
				delete(visiting, inner)
				continue
			}
		}
		if !field.IsExported() {
			continue
		}
		isField := fieldTags.HasOption("field", tags.NameKeys...)
		if isField && !includeFields {
			continue
		}
		if !renamed {
			name = field.Name
		}
		*out = append(*out, candidate{
			member: Member{
				Name:      name,
				GoName:    field.Name,
				Type:      field.Type,
				Index:     fieldIndex,
				IsField:   isField,
				Renamed:   renamed,
				OmitEmpty: fieldTags.HasOption("omitempty", tags.NameKeys...),
				Default:   fieldTags.Default(),
				Get:       nil,
				Set:       nil,
				SetRef:    nil,
			},
			depth: depth,
		})
	}
}

func bind(m *Member) {
	index := m.Index
	name := m.GoName
	m.Get = func(instance reflect.Value) (reflect.Value, bool) {
		for instance.IsValid() && instance.Kind() == reflect.Pointer {
			if instance.IsNil() {
				return reflect.Value{}, false
			}
			instance = instance.Elem()
		}
		if !instance.IsValid() || instance.Kind() != reflect.Struct {
			return reflect.Value{}, false
		}
		field, err := instance.FieldByIndexErr(index)
		if err != nil {
			return reflect.Value{}, false
		}
		return field, true
	}
	m.SetRef = func(ptr reflect.Value, value reflect.Value) error {
		if !ptr.IsValid() || ptr.Kind() != reflect.Pointer || ptr.IsNil() {
			return errors.Newf("cannot set member %s: expected a non-nil pointer", name)
		}
		field, ok := fieldForWrite(ptr.Elem(), index)
		if !ok {
			return errors.Newf("cannot set member %s of %s", name, ptr.Type().Elem())
		}
		if !assign(field, value) {
			return errors.Newf("cannot assign %s to member %s of type %s", value.Type(), name, field.Type())
		}
		return nil
	}
	m.Set = func(instance reflect.Value, value reflect.Value) bool {
		if instance.Kind() == reflect.Pointer {
			return m.SetRef(instance, value) == nil
		}
		if !instance.CanAddr() {
			return false
		}
		field, ok := fieldForWrite(instance, index)
		if !ok {
			return false
		}
		return assign(field, value)
	}
}

func fieldForWrite(v reflect.Value, index []int) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}, false
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, v.CanSet()
}

func assign(field reflect.Value, value reflect.Value) bool {
	if !value.IsValid() {
		field.SetZero()
		return true
	}
	switch {
	case value.Type().AssignableTo(field.Type()):
		field.Set(value)
	case value.Kind() == field.Kind() && value.Type().ConvertibleTo(field.Type()):
		field.Set(value.Convert(field.Type()))
	default:
		return false
	}
	return true
}
