// Package serde is the entry point of the engine: it turns Go values into
// JSON, JSV, CSV or query strings and back.
//
// # Recommended use
//
//	type Customer struct {
//		Id   uuid.UUID
//		Name string `text:"name"`
//		Tags []string
//	}
//
//	text, err := serde.ToJSON(customer)
//	...
//	customer, err := serde.FromJSON[Customer](text)
//
// The configuration is read from the process-wide default (see package
// config) unless a call passes WithConfig, WithContext or WithOverrides.
package serde

import (
	"bytes"
	"io"
	"net/url"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/pasqal-io/textserde/config"
	"github.com/pasqal-io/textserde/convert"
	"github.com/pasqal-io/textserde/deserialize"
	"github.com/pasqal-io/textserde/format/csv"
	"github.com/pasqal-io/textserde/format/json"
	"github.com/pasqal-io/textserde/format/jsv"
	"github.com/pasqal-io/textserde/format/querystring"
	"github.com/pasqal-io/textserde/hooks"
	"github.com/pasqal-io/textserde/internal/logging"
	"github.com/pasqal-io/textserde/metrics"
	"github.com/pasqal-io/textserde/serialize"
	"github.com/pasqal-io/textserde/session"
	"github.com/pasqal-io/textserde/shape"
	"github.com/pasqal-io/textserde/shared"
	"github.com/pasqal-io/textserde/typeinfo"
)

// A wire format.
type Format string

const (
	JSON        Format = json.Name
	JSV         Format = jsv.Name
	CSV         Format = csv.Name
	QueryString Format = querystring.Name
)

// Every supported format.
var Formats = []Format{JSON, JSV, CSV, QueryString}

// Parse a format name, ignoring case.
func ParseFormat(name string) (Format, error) {
	for _, format := range Formats {
		if strings.EqualFold(string(format), name) {
			return format, nil
		}
	}
	return "", errors.Wrapf(shared.ErrUnknownFormat, "%q", name)
}

// The driver for `format`, configured by `cfg`.
func driverFor(format Format, cfg config.Config) (shared.Driver, error) {
	switch format {
	case JSON:
		return json.Driver{}, nil
	case JSV:
		return jsv.Driver{}, nil
	case CSV:
		return csv.New(cfg.CSV), nil
	case QueryString:
		return querystring.Driver{}, nil
	default:
		return nil, errors.Wrapf(shared.ErrUnknownFormat, "%q", string(format))
	}
}

// Per-format adjustments.
func adjust(format Format, cfg config.Config) (config.Config, config.Culture) {
	if format == CSV {
		// Columns must line up across rows.
		cfg.IncludeNullValues = true
		return cfg, cfg.CSV.RealNumberCulture
	}
	return cfg, config.InvariantCulture
}

// Counts bytes going through.
type counter struct {
	w io.Writer
	r io.Reader
	n int
}

func (c *counter) Write(buf []byte) (int, error) {
	n, err := c.w.Write(buf)
	c.n += n
	return n, err //nolint:wrapcheck
}

func (c *counter) Read(buf []byte) (int, error) {
	n, err := c.r.Read(buf)
	c.n += n
	return n, err //nolint:wrapcheck
}

// Serialize `value` to `w`.
func SerializeToWriter(value any, w io.Writer, format Format, opts ...Option) error {
	s := resolve(opts)
	cfg, culture := adjust(format, s.config())
	sink := &counter{w: w, r: nil, n: 0}
	err := encode(value, sink, format, cfg, culture, s.safe)
	metrics.ObserveOperation(string(format), metrics.DirectionSerialize, sink.n, err)
	if err != nil {
		logging.L().Debug("serialization failed",
			logging.FieldFormat(string(format)),
			logging.FieldType(reflect.TypeOf(value)),
			zap.Error(err))
	}
	return err
}

func encode(value any, w io.Writer, format Format, cfg config.Config, culture config.Culture, safe bool) error {
	driver, err := driverFor(format, cfg)
	if err != nil {
		return err
	}
	sess := session.New(cfg, safe)
	tree, err := serialize.ToTree(value, sess, culture)
	if err != nil {
		return err //nolint:wrapcheck
	}
	if sess.Cycles() > 0 {
		logging.L().Debug("broke circular references",
			logging.FieldFormat(driver.Name()),
			zap.Int("cycles", sess.Cycles()))
	}
	return driver.Encode(w, tree) //nolint:wrapcheck
}

// Serialize `value` to bytes, as UTF-8.
func SerializeToBytes(value any, format Format, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	if err := SerializeToWriter(value, &buf, format, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Serialize `value` to a string.
//
// Cyclic values recurse until MaxDepth, then fail with
// `shared.ErrMaxDepthExceeded`. See SerializeToStringSafe.
func SerializeToString[T any](value T, format Format, opts ...Option) (string, error) {
	var buf strings.Builder
	if err := SerializeToWriter(value, &buf, format, opts...); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Serialize `value` to a string, replacing cyclic references with
// `shared.CircularReferenceMarker`.
func SerializeToStringSafe[T any](value T, format Format, opts ...Option) (string, error) {
	return SerializeToString(value, format, append(opts, WithCycleSafety())...)
}

// Deserialize a value of type `t` from `r`.
func DeserializeFromReader(r io.Reader, t reflect.Type, format Format, opts ...Option) (any, error) {
	result, err := decode(r, t, format, resolve(opts))
	if err != nil {
		return nil, err
	}
	return result.Interface(), nil
}

func decode(r io.Reader, t reflect.Type, format Format, s settings) (reflect.Value, error) {
	cfg, culture := adjust(format, s.config())
	source := &counter{w: nil, r: r, n: 0}
	result, err := decodeTree(source, t, format, cfg, culture)
	metrics.ObserveOperation(string(format), metrics.DirectionDeserialize, source.n, err)
	if err != nil {
		logging.L().Debug("deserialization failed",
			logging.FieldFormat(string(format)),
			logging.FieldType(t),
			zap.Error(err))
	}
	return result, err
}

func decodeTree(r io.Reader, t reflect.Type, format Format, cfg config.Config, culture config.Culture) (reflect.Value, error) {
	driver, err := driverFor(format, cfg)
	if err != nil {
		return reflect.Value{}, err
	}
	var tree shared.Value
	if typed, ok := driver.(shared.TypedDecoder); ok {
		tree, err = typed.DecodeAs(r, t)
	} else {
		tree, err = driver.Decode(r)
	}
	if err != nil {
		return reflect.Value{}, err //nolint:wrapcheck
	}
	return deserialize.Value(tree, t, deserialize.Options{ //nolint:wrapcheck
		Config:   cfg,
		Culture:  culture,
		RootPath: "",
	})
}

// Deserialize a T from `r`.
func DeserializeFromReaderTo[T any](r io.Reader, format Format, opts ...Option) (T, error) {
	var zero T
	result, err := decode(r, reflect.TypeFor[T](), format, resolve(opts))
	if err != nil {
		return zero, err
	}
	// Comma-ok, as a nil `any` fails a plain assertion.
	typed, _ := result.Interface().(T)
	return typed, nil
}

// Deserialize a T from UTF-8 bytes.
func DeserializeFromBytes[T any](buf []byte, format Format, opts ...Option) (T, error) {
	return DeserializeFromReaderTo[T](bytes.NewReader(buf), format, opts...)
}

// Deserialize a T from a string.
func DeserializeFromString[T any](text string, format Format, opts ...Option) (T, error) {
	return DeserializeFromReaderTo[T](strings.NewReader(text), format, opts...)
}

// Deserialize a T from parsed query values, e.g. `(*http.Request).URL.Query()`.
func DeserializeFromValues[T any](values url.Values, opts ...Option) (T, error) {
	var zero T
	s := resolve(opts)
	cfg := s.config()
	result, err := deserialize.As[T](querystring.FromValues(values), deserialize.Options{
		Config:   cfg,
		Culture:  config.InvariantCulture,
		RootPath: "",
	})
	metrics.ObserveOperation(QueryString.String(), metrics.DirectionDeserialize, len(values.Encode()), err)
	if err != nil {
		return zero, err //nolint:wrapcheck
	}
	return result, nil
}

func (f Format) String() string {
	return string(f)
}

func ToJSON[T any](value T, opts ...Option) (string, error) {
	return SerializeToString(value, JSON, opts...)
}

func ToJSV[T any](value T, opts ...Option) (string, error) {
	return SerializeToString(value, JSV, opts...)
}

func ToCSV[T any](value T, opts ...Option) (string, error) {
	return SerializeToString(value, CSV, opts...)
}

func ToQueryString[T any](value T, opts ...Option) (string, error) {
	return SerializeToString(value, QueryString, opts...)
}

func FromJSON[T any](text string, opts ...Option) (T, error) {
	return DeserializeFromString[T](text, JSON, opts...)
}

func FromJSV[T any](text string, opts ...Option) (T, error) {
	return DeserializeFromString[T](text, JSV, opts...)
}

func FromCSV[T any](text string, opts ...Option) (T, error) {
	return DeserializeFromString[T](text, CSV, opts...)
}

func FromQueryString[T any](text string, opts ...Option) (T, error) {
	return DeserializeFromString[T](text, QueryString, opts...)
}

// Return true if `value` references itself through pointers, maps or slices.
func HasCircularReferences(value any) bool {
	return session.HasCycle(value)
}

// Register hooks for T. A later registration replaces an earlier one.
func RegisterHooks[T any](set hooks.Set[T]) {
	hooks.Register(set)
}

// Read and write T as a single string.
//
// Takes precedence over the built-in conversions and over the structure of T.
func RegisterScalarOverride[T any](serialize func(T) string, deserialize func(string) (T, error)) {
	convert.RegisterScalar(serialize, deserialize)
}

// Undo RegisterScalarOverride.
func ClearScalarOverride[T any]() {
	convert.ClearScalar[T]()
}

// Name T, so that values of T held by interfaces are written with a
// `__type` key and read back as T. See package typeinfo.
func RegisterType[T any](name string) error {
	return typeinfo.Register[T](name) //nolint:wrapcheck
}

// Undo RegisterType.
func UnregisterType[T any]() {
	typeinfo.Unregister[T]()
}

// The members of `t`, as seen with the process-wide configuration.
func GetTypeShape(t reflect.Type) *shape.Shape {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return shape.Of(t, config.Get().IncludePublicFields)
}
