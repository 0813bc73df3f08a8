// Mechanisms to deal with initialization and validation of values.
//
// These interfaces are primarily designed to be implemented by
// deserialization targets.
package validation

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// A type that supports initialization.
//
// Our deserialization library automatically runs any call to `Initialize()`
// at every depth of the tree, **before** populating the node. Members
// absent from the input keep the values set here.
//
// Important: We expect `Initializer` to be implemented on **pointers**,
// rather than on structs.
//
// Otherwise, all its operations are performed on a copy of the struct and
// the result is lost immediately.
type Initializer interface {
	// Setup the contents of the struct.
	Initialize() error
}

// A type that supports validation.
//
// Our deserialization library automatically runs any call to `Validate()`,
// at every depth of the tree, **after** populating the node and before
// any `OnDeserialized` hook.
//
// Important: We expect `Validator` to be implemented on **pointers**,
// rather than on structs.
//
// This lets `Validate()` perform any necessary changes to the data
// structure. In particular, if necessary, it may be used to populate
// private fields from the contents of public fields.
type Validator interface {
	// Confirm that the data is valid.
	//
	// Return an error if it is invalid.
	//
	// If necessary, this method may alter the contents of the struct.
	Validate() error
}

// A validation error, tagged with the path at which it happened.
type Error struct {
	// e.g. "Order.Lines[2]".
	Path string

	Wrapped error
}

func (e *Error) Error() string {
	return fmt.Sprintf("at %s, validation failed:\n\t * %s", e.Path, e.Wrapped.Error())
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Tag a validation error with its path.
//
// An error that is already a validation error is returned unchanged, so
// that the innermost path wins.
func WrapError(path string, err error) error {
	if err == nil {
		return nil
	}
	var already *Error
	if errors.As(err, &already) {
		return err
	}
	return &Error{Path: path, Wrapped: err}
}

var _ error = &Error{} //nolint:exhaustruct
