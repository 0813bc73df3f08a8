package convert

import (
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/constraints"

	"github.com/pasqal-io/textserde/shared"
)

type enumMember struct {
	name string
	bits uint64
}

type enumInfo struct {
	flags bool
	// Sorted by bits.
	members []enumMember
	byBits  map[uint64]string
	byName  map[string]uint64
}

var enums sync.Map // reflect.Type -> *enumInfo

// Register the names of an enum type. Values are then written by name
// unless TreatEnumAsInteger is set.
//
//	type Color int
//	const (Red Color = iota; Green)
//	convert.RegisterEnum(map[Color]string{Red: "Red", Green: "Green"})
func RegisterEnum[T constraints.Integer](names map[T]string) {
	registerEnum(names, false)
}

// Register the names of a flags type, i.e. an enum whose values combine
// with `|`. Values are written as integers unless FlagsAsNames is set.
func RegisterFlags[T constraints.Integer](names map[T]string) {
	registerEnum(names, true)
}

func registerEnum[T constraints.Integer](names map[T]string, flags bool) {
	info := &enumInfo{
		flags:   flags,
		members: make([]enumMember, 0, len(names)),
		byBits:  make(map[uint64]string, len(names)),
		byName:  make(map[string]uint64, len(names)),
	}
	for value, name := range names {
		bits := uint64(value)
		info.members = append(info.members, enumMember{name: name, bits: bits})
		info.byBits[bits] = name
		info.byName[strings.ToLower(name)] = bits
	}
	sort.Slice(info.members, func(i, j int) bool {
		return info.members[i].bits < info.members[j].bits
	})
	enums.Store(reflect.TypeOf((*T)(nil)).Elem(), info)
}

// Forget the names of an enum type.
func UnregisterEnum[T constraints.Integer]() {
	enums.Delete(reflect.TypeOf((*T)(nil)).Elem())
}

func lookupEnum(t reflect.Type) (*enumInfo, bool) {
	info, ok := enums.Load(t)
	if !ok {
		return nil, false
	}
	return info.(*enumInfo), true //nolint:forcetypeassert
}

func isEnum(t reflect.Type) bool {
	_, ok := enums.Load(t)
	return ok
}

func enumBits(v reflect.Value) uint64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return uint64(v.Int())
	default:
		return v.Uint()
	}
}

func integerText(v reflect.Value) string {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	default:
		return strconv.FormatUint(v.Uint(), 10)
	}
}

func writeEnum(v reflect.Value, opts Options) shared.Scalar {
	info, _ := lookupEnum(v.Type())
	bits := enumBits(v)
	if info == nil || opts.TreatEnumAsInteger {
		return shared.Number(integerText(v))
	}
	if !info.flags {
		if name, ok := info.byBits[bits]; ok {
			return shared.String(name)
		}
		return shared.Number(integerText(v))
	}
	if !opts.FlagsAsNames {
		return shared.Number(integerText(v))
	}
	if name, ok := info.byBits[bits]; ok {
		return shared.String(name)
	}
	var names []string
	remaining := bits
	for _, member := range info.members {
		if member.bits == 0 || member.bits&bits != member.bits {
			continue
		}
		names = append(names, member.name)
		remaining &^= member.bits
	}
	if remaining != 0 || len(names) == 0 {
		return shared.Number(integerText(v))
	}
	return shared.String(strings.Join(names, ", "))
}

func readEnum(t reflect.Type, text string) (reflect.Value, error) {
	info, _ := lookupEnum(t)
	text = strings.TrimSpace(text)
	result := reflect.New(t).Elem()
	if text == "" {
		return result, nil
	}
	if isInteger(text) {
		switch t.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			i, err := strconv.ParseInt(text, 10, t.Bits())
			if err != nil {
				return reflect.Value{}, errors.Wrap(err, "invalid enum value")
			}
			result.SetInt(i)
		default:
			u, err := strconv.ParseUint(text, 10, t.Bits())
			if err != nil {
				return reflect.Value{}, errors.Wrap(err, "invalid enum value")
			}
			result.SetUint(u)
		}
		return result, nil
	}
	if info == nil {
		return reflect.Value{}, errors.Newf("unknown enum %s", t)
	}
	parts := strings.Split(text, ",")
	if !info.flags && len(parts) > 1 {
		return reflect.Value{}, errors.Newf("%s is not a flags enum, cannot combine %q", t, text)
	}
	var bits uint64
	for _, part := range parts {
		part = strings.ToLower(strings.TrimSpace(part))
		value, ok := info.byName[part]
		if !ok {
			return reflect.Value{}, errors.Newf("%q is not a member of %s", part, t)
		}
		bits |= value
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		result.SetInt(int64(bits))
	default:
		result.SetUint(bits)
	}
	return result, nil
}
