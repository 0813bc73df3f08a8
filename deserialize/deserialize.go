// Bind `shared.Value` trees onto Go types.
//
// Format drivers produce untyped trees: JSON knows strings from numbers,
// JSV, CSV and query strings only know text. This package walks the target
// type and converts each node as it goes.
//
// # Recommended use
//
// If you have a struct `FooSchema` that you wish to deserialize:
//
// - To define default values for fields (in particular private fields), implement `Initializer`
//
//	func (result *FooSchema) Initialize() err {
//	   result.MyField1 = defaultValue1
//	   result.MyField2 = defaultValue2
//	   ...
//	   return err
//	}
//
// - To define a validator, implement `Validator`
//
//	func (result *FooSchema) Validate() err {
//	   if result.MyField1 > 100 {
//	      return fmt.Errorf("invalid value for MyField1!") // The error will be visible to end users.
//	   }
//	   ...
//	   return nil
//	}
//
// Other behaviors:
//   - keys are matched against wire names first, then ignoring case, `_` and `-`;
//   - keys that match no member are ignored;
//   - members absent from the input keep their value, unless tag `default:"XXX"`
//     provides one (written in JSV, e.g. `default:"[a,b]"`);
//   - a type implementing `shared.TreeUnmarshaler` on its pointer builds itself;
//   - `OnDeserialized` hooks run after validation and may replace the result;
//   - an empty value (e.g. `Tags:` in JSV) read into a collection yields an
//     empty collection.
//
// Deserializers are compiled once per type and cached.
package deserialize

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/pasqal-io/textserde/config"
	"github.com/pasqal-io/textserde/convert"
	"github.com/pasqal-io/textserde/format/jsv"
	"github.com/pasqal-io/textserde/hooks"
	"github.com/pasqal-io/textserde/internal/logging"
	"github.com/pasqal-io/textserde/session"
	"github.com/pasqal-io/textserde/shape"
	"github.com/pasqal-io/textserde/shared"
	"github.com/pasqal-io/textserde/typeinfo"
	"github.com/pasqal-io/textserde/validation"
)

// -------- Public API --------

// Options for a deserialization.
type Options struct {
	Config config.Config

	// The culture for floating point numbers. The zero value is invariant.
	Culture config.Culture

	// Human-readable information on the nature of data
	// you'll be deserializing.
	//
	// Used for logging and error messages.
	//
	// Optional. If you leave this blank, the name of the
	// target type is used.
	RootPath string
}

// Bind `tree` onto `out`, which must be a non-nil pointer.
func Into(tree shared.Value, out any, options Options) error {
	ptr := reflect.ValueOf(out)
	if ptr.Kind() != reflect.Pointer || ptr.IsNil() {
		return errors.Newf("expected a non-nil pointer, got %T", out)
	}
	slot := ptr.Elem()
	return run(tree, slot, options)
}

// Build a value of type `typ` from `tree`.
func Value(tree shared.Value, typ reflect.Type, options Options) (reflect.Value, error) {
	slot := reflect.New(typ).Elem()
	if err := run(tree, slot, options); err != nil {
		return reflect.Value{}, err
	}
	return slot, nil
}

// Build a `T` from `tree`.
func As[T any](tree shared.Value, options Options) (T, error) {
	var result T
	err := Into(tree, &result, options)
	return result, err
}

// An error that arises because of a bug in a custom deserializer.
type CustomDeserializerError struct {
	// The operation that failed, e.g. "initializer", "unmarshalTree".
	Operation string

	// The kind of value we were applying it to, e.g. "struct".
	Structure string

	// The underlying error.
	Wrapped error
}

// Return the user-facing message.
func (e CustomDeserializerError) Error() string {
	return e.Wrapped.Error()
}

// Unwrap the error.
func (e CustomDeserializerError) Unwrap() error {
	return e.Wrapped
}

var _ error = CustomDeserializerError{} //nolint:exhaustruct

// ----------------- Private

// The state of a single call.
type state struct {
	sess     *session.Session
	convert  convert.Options
	compiler *compiler
}

// A type of deserializers using reflection to perform any conversions.
//
// `slot` is settable. `data` is nil if the value is absent from the input,
// in which case `slot` is left alone.
type reflectDeserializer func(st *state, path string, slot reflect.Value, data shared.Value) error

// The interfaces we use throughout the code.
var (
	initializerInterface     = reflect.TypeOf((*validation.Initializer)(nil)).Elem()
	validatorInterface       = reflect.TypeOf((*validation.Validator)(nil)).Elem()
	treeUnmarshalerInterface = reflect.TypeOf((*shared.TreeUnmarshaler)(nil)).Elem()
	anyType                  = reflect.TypeOf((*any)(nil)).Elem()
)

func run(tree shared.Value, slot reflect.Value, options Options) error {
	if tree == nil {
		tree = shared.Null{}
	}
	typ := slot.Type()
	path := options.RootPath
	if path == "" {
		path = typeName(typ)
	}
	st := &state{
		sess:     session.New(options.Config, false),
		convert:  convert.Options{Config: options.Config, Culture: options.Culture},
		compiler: compilerFor(options.Config.IncludePublicFields),
	}
	return st.compiler.compile(typ)(st, path, slot, tree)
}

func (st *state) nested(fn func() error) error {
	if err := st.sess.Push(); err != nil {
		return err //nolint:wrapcheck
	}
	defer st.sess.Pop()
	return fn()
}

// A BindFunc for custom deserializers found at `path`.
func (st *state) binder(path string) shared.BindFunc {
	return func(v shared.Value, target any) error {
		ptr := reflect.ValueOf(target)
		if ptr.Kind() != reflect.Pointer || ptr.IsNil() {
			return errors.Newf("at %s, cannot bind into %T, expected a non-nil pointer", path, target)
		}
		if v == nil {
			v = shared.Null{}
		}
		return st.compiler.compile(ptr.Type().Elem())(st, path, ptr.Elem(), v)
	}
}

type cacheKey struct {
	typ           reflect.Type
	includeFields bool
}

var deserializers sync.Map // cacheKey -> reflectDeserializer

// Compiles deserializers. Shared between concurrent calls.
type compiler struct {
	includeFields bool

	// Types being compiled, to handle recursive types.
	mu         sync.Mutex
	inProgress map[reflect.Type]*reflectDeserializer
}

var (
	compilerWithFields    = &compiler{includeFields: true, inProgress: make(map[reflect.Type]*reflectDeserializer)}    //nolint:exhaustruct
	compilerWithoutFields = &compiler{includeFields: false, inProgress: make(map[reflect.Type]*reflectDeserializer)} //nolint:exhaustruct
)

func compilerFor(includeFields bool) *compiler {
	if includeFields {
		return compilerWithFields
	}
	return compilerWithoutFields
}

// Forget every compiled deserializer. Used by tests.
func Reset() {
	deserializers.Range(func(key, _ any) bool {
		deserializers.Delete(key)
		return true
	})
}

func (c *compiler) compile(typ reflect.Type) reflectDeserializer {
	key := cacheKey{typ: typ, includeFields: c.includeFields}
	if cached, ok := deserializers.Load(key); ok {
		return cached.(reflectDeserializer) //nolint:forcetypeassert
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compileLocked(typ)
}

func (c *compiler) compileLocked(typ reflect.Type) reflectDeserializer {
	key := cacheKey{typ: typ, includeFields: c.includeFields}
	if cached, ok := deserializers.Load(key); ok {
		return cached.(reflectDeserializer) //nolint:forcetypeassert
	}
	if pending, ok := c.inProgress[typ]; ok {
		// A recursive type, the deserializer will be ready by the time we call it.
		return func(st *state, path string, slot reflect.Value, data shared.Value) error {
			return (*pending)(st, path, slot, data)
		}
	}
	pending := new(reflectDeserializer)
	c.inProgress[typ] = pending
	defer delete(c.inProgress, typ)

	result := c.build(typ)
	*pending = result
	deserializers.Store(key, result)
	return result
}

func (c *compiler) build(typ reflect.Type) reflectDeserializer {
	scalar := makeScalarDeserializer(typ)
	if convert.IsBuiltinScalar(typ) {
		return scalar
	}

	var structural reflectDeserializer
	switch {
	case typ.Kind() != reflect.Pointer && reflect.PointerTo(typ).Implements(treeUnmarshalerInterface):
		structural = makeTreeUnmarshalerDeserializer(typ)
	default:
		switch typ.Kind() {
		case reflect.Pointer:
			structural = c.makePointerDeserializer(typ)
		case reflect.Struct:
			structural = c.makeStructDeserializer(typ)
		case reflect.Map:
			structural = c.makeMapDeserializer(typ)
		case reflect.Slice:
			structural = c.makeSliceDeserializer(typ)
		case reflect.Array:
			structural = c.makeArrayDeserializer(typ)
		case reflect.Interface:
			structural = makeInterfaceDeserializer(typ)
		default:
			structural = func(_ *state, path string, _ reflect.Value, data shared.Value) error {
				if data == nil {
					return nil
				}
				return errors.Wrapf(shared.ErrUnsupportedType, "at %s, cannot deserialize a %s", path, typeName(typ))
			}
		}
	}

	// Scalar overrides may be registered at any time.
	return func(st *state, path string, slot reflect.Value, data shared.Value) error {
		if convert.HasOverride(typ) {
			return scalar(st, path, slot, data)
		}
		return structural(st, path, slot, data)
	}
}

// True for values that stand for "nothing": null, or an empty unquoted
// value as written by JSV, CSV and query strings.
func isNullish(data shared.Value) bool {
	if shared.IsNull(data) {
		return true
	}
	scalar, ok := data.(shared.Scalar)
	return ok && scalar.Kind == shared.KindRaw && scalar.Text == ""
}

func describe(data shared.Value) string {
	switch typed := data.(type) {
	case nil, shared.Null:
		return "null"
	case shared.Scalar:
		return fmt.Sprintf("%s %q", typed.Kind, typed.Text)
	case shared.List:
		return "a list"
	default:
		if _, ok := data.AsDict(); ok {
			return "an object"
		}
		return fmt.Sprintf("%T", data)
	}
}

func makeScalarDeserializer(typ reflect.Type) reflectDeserializer {
	return func(st *state, path string, slot reflect.Value, data shared.Value) error {
		switch typed := data.(type) {
		case nil:
			return nil
		case shared.Null:
			slot.SetZero()
			return nil
		case shared.Scalar:
			value, err := convert.Read(typ, typed, st.convert)
			if err != nil {
				return fmt.Errorf("invalid value at %s, expected %s:\n\t * %w", path, typeName(typ), err)
			}
			slot.Set(value)
			return nil
		}
		if items, ok := data.AsSlice(); ok && typ.Kind() == reflect.Slice && typ.Elem().Kind() == reflect.Uint8 {
			value, err := convert.ReadBytesList(typ, items)
			if err != nil {
				return fmt.Errorf("invalid value at %s, expected %s:\n\t * %w", path, typeName(typ), err)
			}
			slot.Set(value)
			return nil
		}
		return fmt.Errorf("invalid value at %s, expected %s, got %s", path, typeName(typ), describe(data))
	}
}

func makeTreeUnmarshalerDeserializer(typ reflect.Type) reflectDeserializer {
	return func(st *state, path string, slot reflect.Value, data shared.Value) error {
		if data == nil {
			return nil
		}
		if shared.IsNull(data) {
			slot.SetZero()
			return nil
		}
		resultPtr := reflect.New(typ)
		unmarshaler := resultPtr.Interface().(shared.TreeUnmarshaler) //nolint:forcetypeassert
		err := st.nested(func() error {
			return unmarshaler.UnmarshalTree(data, st.binder(path))
		})
		if err != nil {
			return fmt.Errorf("at %s, expected to be able to parse a %s:\n\t * %w", path, typeName(typ), err)
		}
		slot.Set(resultPtr.Elem())
		return nil
	}
}

func (c *compiler) makePointerDeserializer(typ reflect.Type) reflectDeserializer {
	elem := c.compileLocked(typ.Elem())
	return func(st *state, path string, slot reflect.Value, data shared.Value) error {
		if data == nil {
			return nil
		}
		if isNullish(data) {
			slot.SetZero()
			return nil
		}
		target := reflect.New(typ.Elem())
		if !slot.IsNil() {
			target.Elem().Set(slot.Elem())
		}
		if err := elem(st, path, target.Elem(), data); err != nil {
			return err
		}
		slot.Set(target)
		return nil
	}
}

// Read a dictionary, reparsing text written as JSV.
func asDict(path string, typ reflect.Type, data shared.Value) (shared.Dict, error) {
	if dict, ok := data.AsDict(); ok {
		return dict, nil
	}
	if scalar, ok := data.(shared.Scalar); ok {
		parsed, err := jsv.Parse(scalar.Text)
		if err != nil {
			return nil, fmt.Errorf("invalid value at %s, expected an object of type %s:\n\t * %w", path, typeName(typ), err)
		}
		if dict, ok := parsed.AsDict(); ok {
			return dict, nil
		}
	}
	return nil, fmt.Errorf("invalid value at %s, expected an object of type %s, got %s", path, typeName(typ), describe(data))
}

// Read a list, reparsing text written as a JSV list or a comma-separated line.
func asList(path string, typ reflect.Type, data shared.Value) ([]shared.Value, error) {
	if items, ok := data.AsSlice(); ok {
		return items, nil
	}
	if scalar, ok := data.(shared.Scalar); ok {
		items, err := jsv.ParseList(scalar.Text)
		if err != nil {
			return nil, fmt.Errorf("invalid value at %s, expected a list of type %s:\n\t * %w", path, typeName(typ), err)
		}
		return items, nil
	}
	return nil, fmt.Errorf("invalid value at %s, expected a list of type %s, got %s", path, typeName(typ), describe(data))
}

type memberDeserializer struct {
	member       *shape.Member
	deserializer reflectDeserializer
}

// Construct a dynamically-typed deserializer for structs.
func (c *compiler) makeStructDeserializer(typ reflect.Type) reflectDeserializer {
	sh := shape.Of(typ, c.includeFields)
	members := make([]memberDeserializer, len(sh.Members))
	for i := range sh.Members {
		members[i] = memberDeserializer{
			member:       &sh.Members[i],
			deserializer: c.compileLocked(sh.Members[i].Type),
		}
	}
	canInitialize := reflect.PointerTo(typ).Implements(initializerInterface)
	canValidate := reflect.PointerTo(typ).Implements(validatorInterface)

	return func(st *state, path string, slot reflect.Value, data shared.Value) error {
		if data == nil {
			return nil
		}
		if isNullish(data) {
			slot.SetZero()
			return nil
		}
		dict, err := asDict(path, typ, data)
		if err != nil {
			return err
		}
		return st.nested(func() error {
			resultPtr := reflect.New(typ)
			result := resultPtr.Elem()
			result.Set(slot)

			// If possible, perform pre-initialization with default values.
			if canInitialize && slot.IsZero() {
				initializer := resultPtr.Interface().(validation.Initializer) //nolint:forcetypeassert
				if err := initializer.Initialize(); err != nil {
					err = fmt.Errorf("at %s, encountered an error while initializing optional fields:\n\t * %w", path, err)
					logging.L().Error("internal error during deserialization", zap.Error(err))
					return CustomDeserializerError{
						Wrapped:   err,
						Operation: "initializer",
						Structure: "struct",
					}
				}
			}

			seen := make([]bool, len(members))
			for _, key := range dict.Keys() {
				if key == typeinfo.Key {
					continue
				}
				i, ok := sh.IndexOf(key)
				if !ok {
					// Unknown keys are ignored.
					continue
				}
				value, _ := dict.Lookup(key)
				seen[i] = true
				if err := members[i].set(st, path, resultPtr, value); err != nil {
					return err
				}
			}
			for i, m := range members {
				if seen[i] || m.member.Default == nil {
					continue
				}
				value, err := defaultValue(*m.member.Default)
				if err != nil {
					return fmt.Errorf("at %s.%s, invalid `default` value %q:\n\t * %w", path, m.member.Name, *m.member.Default, err)
				}
				if err := m.set(st, path, resultPtr, value); err != nil {
					return err
				}
			}

			if canValidate {
				validator := resultPtr.Interface().(validation.Validator) //nolint:forcetypeassert
				if err := validator.Validate(); err != nil {
					// Validation error, abort struct construction, wrap the error so that we can catch it.
					return validation.WrapError(path, err)
				}
			}
			if resolved, ok := hooks.Lookup(typ); ok {
				resolved.Deserialized(result)
			}
			slot.Set(result)
			return nil
		})
	}
}

func (m memberDeserializer) set(st *state, path string, resultPtr reflect.Value, value shared.Value) error {
	memberPath := fmt.Sprint(path, ".", m.member.Name)
	tmp := reflect.New(m.member.Type).Elem()
	if current, ok := m.member.Get(resultPtr); ok {
		tmp.Set(current)
	}
	if err := m.deserializer(st, memberPath, tmp, value); err != nil {
		return err
	}
	if err := m.member.SetRef(resultPtr, tmp); err != nil {
		return fmt.Errorf("at %s, cannot store value:\n\t * %w", memberPath, err)
	}
	return nil
}

// Default values are written in JSV.
func defaultValue(source string) (shared.Value, error) {
	trimmed := strings.TrimSpace(source)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return jsv.Parse(trimmed) //nolint:wrapcheck
	}
	return shared.Raw(source), nil
}

func (c *compiler) makeMapDeserializer(typ reflect.Type) reflectDeserializer {
	keyType := typ.Key()
	elem := c.compileLocked(typ.Elem())
	if keyType.Kind() != reflect.String && !convert.IsScalar(keyType) {
		return func(_ *state, path string, _ reflect.Value, data shared.Value) error {
			if data == nil {
				return nil
			}
			return errors.Wrapf(shared.ErrUnsupportedType, "at %s, map keys must be scalars, got %s", path, typeName(keyType))
		}
	}
	return func(st *state, path string, slot reflect.Value, data shared.Value) error {
		switch {
		case data == nil:
			return nil
		case shared.IsNull(data):
			slot.SetZero()
			return nil
		case isNullish(data):
			slot.Set(reflect.MakeMap(typ))
			return nil
		}
		dict, err := asDict(path, typ, data)
		if err != nil {
			return err
		}
		return st.nested(func() error {
			keys := dict.Keys()
			result := reflect.MakeMapWithSize(typ, len(keys))
			for _, key := range keys {
				keyPath := fmt.Sprint(path, ".", key)
				k, err := readKey(st, keyType, key)
				if err != nil {
					return fmt.Errorf("invalid key at %s, expected %s:\n\t * %w", keyPath, typeName(keyType), err)
				}
				input, _ := dict.Lookup(key)
				value := reflect.New(typ.Elem()).Elem()
				if err := elem(st, keyPath, value, input); err != nil {
					return err
				}
				result.SetMapIndex(k, value)
			}
			slot.Set(result)
			return nil
		})
	}
}

func readKey(st *state, keyType reflect.Type, key string) (reflect.Value, error) {
	if keyType.Kind() == reflect.String && !convert.HasOverride(keyType) {
		return reflect.ValueOf(key).Convert(keyType), nil
	}
	return convert.Read(keyType, shared.Raw(key), convert.InvariantOptions(st.convert.Config)) //nolint:wrapcheck
}

func (c *compiler) makeSliceDeserializer(typ reflect.Type) reflectDeserializer {
	elem := c.compileLocked(typ.Elem())
	return func(st *state, path string, slot reflect.Value, data shared.Value) error {
		switch {
		case data == nil:
			return nil
		case shared.IsNull(data):
			slot.SetZero()
			return nil
		case isNullish(data):
			slot.Set(reflect.MakeSlice(typ, 0, 0))
			return nil
		}
		items, err := asList(path, typ, data)
		if err != nil {
			return err
		}
		return st.nested(func() error {
			result := reflect.MakeSlice(typ, len(items), len(items))
			for i, item := range items {
				if err := elem(st, fmt.Sprintf("%s[%d]", path, i), result.Index(i), item); err != nil {
					return err
				}
			}
			slot.Set(result)
			return nil
		})
	}
}

func (c *compiler) makeArrayDeserializer(typ reflect.Type) reflectDeserializer {
	elem := c.compileLocked(typ.Elem())
	return func(st *state, path string, slot reflect.Value, data shared.Value) error {
		if data == nil {
			return nil
		}
		if isNullish(data) {
			slot.SetZero()
			return nil
		}
		items, err := asList(path, typ, data)
		if err != nil {
			return err
		}
		if len(items) != typ.Len() {
			return fmt.Errorf("invalid value at %s, expected %d items, got %d", path, typ.Len(), len(items))
		}
		return st.nested(func() error {
			result := reflect.New(typ).Elem()
			for i, item := range items {
				if err := elem(st, fmt.Sprintf("%s[%d]", path, i), result.Index(i), item); err != nil {
					return err
				}
			}
			slot.Set(result)
			return nil
		})
	}
}

func makeInterfaceDeserializer(typ reflect.Type) reflectDeserializer {
	return func(st *state, path string, slot reflect.Value, data shared.Value) error {
		if data == nil {
			return nil
		}
		if isNullish(data) {
			slot.SetZero()
			return nil
		}
		typed, ok, err := st.polymorphic(path, typ, data)
		if err != nil {
			return err
		}
		if ok {
			slot.Set(typed)
			return nil
		}
		var value any
		err = st.nested(func() error {
			var err error
			value, err = st.dynamic(path, data)
			return err
		})
		if err != nil {
			return err
		}
		if value == nil {
			slot.SetZero()
			return nil
		}
		reflected := reflect.ValueOf(value)
		if !reflected.Type().AssignableTo(typ) {
			return fmt.Errorf("invalid value at %s, expected %s, got %s", path, typeName(typ), describe(data))
		}
		slot.Set(reflected)
		return nil
	}
}

// Decode an object naming a registered type in its `__type` key into that
// type, or into a pointer to it if only the pointer fits `slotType`.
//
// Returns false if `data` names no registered type.
func (st *state) polymorphic(path string, slotType reflect.Type, data shared.Value) (reflect.Value, bool, error) {
	if st.sess.Config.ExcludeTypeInfo {
		return reflect.Value{}, false, nil
	}
	if scalar, ok := data.(shared.Scalar); ok && scalar.Kind == shared.KindRaw && strings.HasPrefix(scalar.Text, "{") {
		// Nested objects in CSV cells and query strings.
		parsed, err := jsv.Parse(scalar.Text)
		if err != nil {
			return reflect.Value{}, false, nil //nolint:nilerr
		}
		data = parsed
	}
	dict, ok := data.AsDict()
	if !ok {
		return reflect.Value{}, false, nil
	}
	tag, ok := dict.Lookup(typeinfo.Key)
	if !ok {
		return reflect.Value{}, false, nil
	}
	name, ok := tag.(shared.Scalar)
	if !ok {
		return reflect.Value{}, false, fmt.Errorf("invalid value at %s.%s, expected a type name, got %s", path, typeinfo.Key, describe(tag))
	}
	concrete, ok := typeinfo.Lookup(name.Text)
	if !ok {
		logging.L().Debug("unknown type name, reading untyped",
			logging.FieldPath(path), zap.String("name", name.Text))
		return reflect.Value{}, false, nil
	}
	target, err := typeinfo.Fit(concrete, slotType)
	if err != nil {
		return reflect.Value{}, false, fmt.Errorf("invalid value at %s:\n\t * %w", path, err)
	}
	result := reflect.New(target).Elem()
	if err := st.compiler.compile(target)(st, path, result, data); err != nil {
		return reflect.Value{}, false, err
	}
	return result, true, nil
}

// Convert a tree into plain Go values: strings, numbers, booleans,
// `[]any` and `map[string]any`.
func (st *state) dynamic(path string, data shared.Value) (any, error) {
	switch typed := data.(type) {
	case nil, shared.Null:
		return nil, nil
	case shared.Scalar:
		return st.dynamicScalar(typed), nil
	}
	if items, ok := data.AsSlice(); ok {
		result := make([]any, len(items))
		for i, item := range items {
			value, err := st.dynamicNested(fmt.Sprintf("%s[%d]", path, i), item)
			if err != nil {
				return nil, err
			}
			result[i] = value
		}
		return result, nil
	}
	if dict, ok := data.AsDict(); ok {
		typed, ok, err := st.polymorphic(path, anyType, data)
		if err != nil {
			return nil, err
		}
		if ok {
			return typed.Interface(), nil
		}
		result := make(map[string]any, len(dict.Keys()))
		for _, key := range dict.Keys() {
			item, _ := dict.Lookup(key)
			value, err := st.dynamicNested(fmt.Sprint(path, ".", key), item)
			if err != nil {
				return nil, err
			}
			result[key] = value
		}
		return result, nil
	}
	return nil, errors.Wrapf(shared.ErrUnsupportedType, "at %s, cannot convert %T", path, data)
}

func (st *state) dynamicNested(path string, data shared.Value) (any, error) {
	var result any
	err := st.nested(func() error {
		var err error
		result, err = st.dynamic(path, data)
		return err
	})
	return result, err
}

func (st *state) dynamicScalar(s shared.Scalar) any {
	switch s.Kind {
	case shared.KindString:
		return s.Text
	case shared.KindBool:
		return s.Text == "true"
	case shared.KindNumber:
		return parseNumber(s.Text, s.Text)
	default:
		if s.Text == "" {
			return nil
		}
		if !st.convert.TryToParsePrimitiveTypeValues {
			return s.Text
		}
		switch strings.ToLower(s.Text) {
		case "true":
			return true
		case "false":
			return false
		}
		return parseNumber(s.Text, s.Text)
	}
}

// Integers become int64, other numbers float64. Anything else is `fallback`.
func parseNumber(text string, fallback any) any {
	if text == "" || !strings.ContainsAny(text[:1], "0123456789+-.") {
		return fallback
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f
	}
	return fallback
}

// Return a human-readable name for a type.
func typeName(typ reflect.Type) string {
	name := typ.Name()
	if name == "" {
		name = typ.String()
	}
	return name
}
