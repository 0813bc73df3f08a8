// Package convert turns leaf Go values into their canonical text and back.
//
// Numbers use the invariant culture unless `Options.Culture` says otherwise,
// dates and durations follow the configured handlers, registered enums use
// their names and per-type overrides win over everything else.
package convert

import (
	"encoding"
	"encoding/base64"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/pasqal-io/textserde/config"
	"github.com/pasqal-io/textserde/shared"
)

// Options for a conversion.
type Options struct {
	config.Config

	// The culture for floating point numbers. The zero value is invariant.
	Culture config.Culture
}

// Options using the invariant culture.
func InvariantOptions(cfg config.Config) Options {
	return Options{Config: cfg, Culture: config.InvariantCulture}
}

var (
	timeType            = reflect.TypeOf(time.Time{})
	durationType        = reflect.TypeOf(time.Duration(0))
	textMarshalerType   = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

func isBytes(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 && !isTextual(t.Elem())
}

func isTextual(t reflect.Type) bool {
	return (t.Implements(textMarshalerType) || reflect.PointerTo(t).Implements(textMarshalerType)) &&
		reflect.PointerTo(t).Implements(textUnmarshalerType)
}

// Return true if values of type `t` are written as a single scalar.
func IsScalar(t reflect.Type) bool {
	return HasOverride(t) || IsBuiltinScalar(t)
}

// Like IsScalar, ignoring overrides registered with RegisterScalar.
func IsBuiltinScalar(t reflect.Type) bool {
	switch {
	case t == timeType, t == durationType:
		return true
	case isEnum(t):
		return true
	case isTextual(t):
		return true
	case isBytes(t):
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// Write a scalar value.
func Write(v reflect.Value, opts Options) (shared.Scalar, error) {
	t := v.Type()
	if o, ok := lookupOverride(t); ok && o.serialize != nil {
		text, err := o.serialize(v)
		if err != nil {
			return shared.Scalar{}, errors.Wrapf(err, "custom serializer for %s failed", t) //nolint:exhaustruct
		}
		return shared.String(text), nil
	}
	switch {
	case t == timeType:
		return writeTime(v.Interface().(time.Time), opts), nil //nolint:forcetypeassert
	case t == durationType:
		return shared.String(FormatDuration(time.Duration(v.Int()), opts.TimeSpanHandler)), nil
	case isEnum(t):
		return writeEnum(v, opts), nil
	case isTextual(t):
		marshaler, ok := v.Interface().(encoding.TextMarshaler)
		if !ok {
			ptr := reflect.New(t)
			ptr.Elem().Set(v)
			marshaler = ptr.Interface().(encoding.TextMarshaler) //nolint:forcetypeassert
		}
		text, err := marshaler.MarshalText()
		if err != nil {
			return shared.Scalar{}, errors.Wrapf(err, "cannot marshal %s", t) //nolint:exhaustruct
		}
		return shared.String(string(text)), nil
	case isBytes(t):
		return shared.String(base64.StdEncoding.EncodeToString(v.Bytes())), nil
	}

	switch t.Kind() {
	case reflect.Bool:
		return shared.Bool(v.Bool()), nil
	case reflect.String:
		return shared.String(v.String()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return shared.Number(strconv.FormatInt(v.Int(), 10)), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return shared.Number(strconv.FormatUint(v.Uint(), 10)), nil
	case reflect.Float32:
		return writeFloat(v.Float(), 32, opts.Culture), nil
	case reflect.Float64:
		return writeFloat(v.Float(), 64, opts.Culture), nil
	default:
		return shared.Scalar{}, errors.Wrapf(shared.ErrUnsupportedType, "%s is not a scalar", t) //nolint:exhaustruct
	}
}

// Read a scalar of type `t` from its text.
//
// Empty text decodes to the zero value of numbers and booleans.
func Read(t reflect.Type, s shared.Scalar, opts Options) (reflect.Value, error) {
	result, err := read(t, s, opts)
	if err != nil {
		var conversion *shared.ConversionError
		if errors.As(err, &conversion) {
			return reflect.Value{}, err
		}
		return reflect.Value{}, &shared.ConversionError{Type: t, Text: s.Text, Cause: err}
	}
	return result, nil
}

func read(t reflect.Type, s shared.Scalar, opts Options) (reflect.Value, error) {
	text := s.Text
	if o, ok := lookupOverride(t); ok && o.deserialize != nil {
		return o.deserialize(text)
	}
	switch {
	case t == timeType:
		parsed, err := ParseTime(text)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(parsed), nil
	case t == durationType:
		parsed, err := ParseDuration(text)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(parsed), nil
	case isEnum(t):
		return readEnum(t, text)
	case isTextual(t):
		ptr := reflect.New(t)
		if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(text)); err != nil { //nolint:forcetypeassert
			return reflect.Value{}, err //nolint:wrapcheck
		}
		return ptr.Elem(), nil
	case isBytes(t):
		decoded, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			decoded, err = base64.RawStdEncoding.DecodeString(text)
			if err != nil {
				return reflect.Value{}, err //nolint:wrapcheck
			}
		}
		return reflect.ValueOf(decoded).Convert(t), nil
	}

	result := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.String:
		result.SetString(text)
	case reflect.Bool:
		b, err := ParseBool(text)
		if err != nil {
			return reflect.Value{}, err
		}
		result.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := parseInt(text, t.Bits(), opts.Culture)
		if err != nil {
			return reflect.Value{}, err
		}
		result.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u, err := parseUint(text, t.Bits(), opts.Culture)
		if err != nil {
			return reflect.Value{}, err
		}
		result.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := parseFloat(text, t.Bits(), opts.Culture)
		if err != nil {
			return reflect.Value{}, err
		}
		result.SetFloat(f)
	default:
		return reflect.Value{}, errors.Wrapf(shared.ErrUnsupportedType, "%s is not a scalar", t)
	}
	return result, nil
}

// Read a byte slice written as a list of integers, e.g. `[1,2,255]`.
func ReadBytesList(t reflect.Type, items []shared.Value) (reflect.Value, error) {
	result := make([]byte, len(items))
	for i, item := range items {
		s, ok := item.(shared.Scalar)
		if !ok {
			return reflect.Value{}, errors.Newf("expected a byte at index %d", i)
		}
		b, err := strconv.ParseUint(strings.TrimSpace(s.Text), 10, 8)
		if err != nil {
			return reflect.Value{}, &shared.ConversionError{Type: t.Elem(), Text: s.Text, Cause: err}
		}
		result[i] = byte(b)
	}
	return reflect.ValueOf(result).Convert(t), nil
}

// Parse a boolean.
//
// Accepts, ignoring case: 1/0, true/false, t/f, yes/no, y/n, on/off.
// The empty string is false.
func ParseBool(text string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off", "":
		return false, nil
	default:
		return false, errors.Newf("invalid boolean %q", text)
	}
}
