package shared

import (
	"fmt"
	"reflect"

	"github.com/cockroachdb/errors"
)

// The text substituted for a cyclic reference by the cycle-safe entry points.
const CircularReferenceMarker = "<circular>"

var (
	// The value has no reasonable textual representation (channels, unsafe pointers...).
	ErrUnsupportedType = errors.New("unsupported type")

	// Nesting went deeper than `MaxDepth`. Without cycle safety, this is how
	// a cyclic graph ends up.
	ErrMaxDepthExceeded = errors.New("maximum depth exceeded")

	ErrUnknownFormat = errors.New("unknown format")
)

// A structural failure while parsing a wire format.
type ParseError struct {
	// e.g. "json", "jsv".
	Format string

	// Byte offset into the input, or -1 if unknown.
	Offset int

	// A short excerpt of the input around Offset.
	Near string

	Msg string
}

const nearRadius = 12

// Create a ParseError for `input` at `offset`.
func NewParseError(format string, input string, offset int, msg string) *ParseError {
	near := ""
	if offset >= 0 {
		start := max(offset-nearRadius, 0)
		end := min(offset+nearRadius, len(input))
		if start < end {
			near = input[start:end]
		}
	}
	return &ParseError{
		Format: format,
		Offset: offset,
		Near:   near,
		Msg:    msg,
	}
}

func (e *ParseError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("invalid %s: %s", e.Format, e.Msg)
	}
	return fmt.Sprintf("invalid %s at offset %d near %q: %s", e.Format, e.Offset, e.Near, e.Msg)
}

// A scalar text that cannot be converted into the target type.
type ConversionError struct {
	Type  reflect.Type
	Text  string
	Cause error
}

func (e *ConversionError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("cannot convert %q to %s", e.Text, e.Type)
	}
	return fmt.Sprintf("cannot convert %q to %s: %s", e.Text, e.Type, e.Cause)
}

func (e *ConversionError) Unwrap() error {
	return e.Cause
}
