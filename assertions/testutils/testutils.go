package testutils

import (
	"fmt"
	"reflect"
	"regexp"
	"testing"

	"github.com/pasqal-io/textserde/config"
	"github.com/pasqal-io/textserde/deserialize"
	"github.com/pasqal-io/textserde/format/json"
)

// Fail if two values are different.
//
// Does not stop the test.
func AssertEqual[T comparable](t *testing.T, actual, expected T, explanation string) {
	t.Helper()
	if expected != actual {
		t.Errorf("got: %+v; want: %+v (%s)", actual, expected, explanation)
		if reflect.ValueOf(expected).Kind() == reflect.Pointer {
			t.Error("Warning: you're comparing two pointers -- pointers are only equal if they point to the same physical object")
		}
	}
}

// Fail if two slices differ in length or in any item.
//
// Does not stop the test.
func AssertEqualArrays[T comparable](t *testing.T, actual, expected []T, explanation string) {
	t.Helper()
	AssertEqual(t, len(actual), len(expected), fmt.Sprintf("%s - invalid length", explanation))
	for i := 0; i < min(len(actual), len(expected)); i++ {
		AssertEqual(t, actual[i], expected[i], fmt.Sprintf("%s - invalid item %d", explanation, i))
	}
}

// Fail unless `pattern` matches somewhere in `actual`.
func AssertRegexp(t *testing.T, actual string, pattern regexp.Regexp, explanation string) {
	t.Helper()
	if pattern.FindStringIndex(actual) != nil {
		return
	}
	t.Errorf("got: %q; expected a match for /%s/ (%s)", actual, pattern.String(), explanation)
}

// Parse a JSON payload into a T.
//
// On failure, the error tells apart a payload that is valid JSON of the
// wrong shape from a payload that is not JSON at all.
func Unmarshal[T any](t *testing.T, payload []byte) (*T, error) {
	t.Helper()

	tree, errJSON := json.Parse(payload)
	if errJSON != nil {
		return nil, fmt.Errorf("payload is invalid JSON, got %s\n\t%w", string(payload), errJSON)
	}

	result, errT := deserialize.As[T](tree, deserialize.Options{Config: config.Default()}) //nolint:exhaustruct
	if errT == nil {
		return &result, nil
	}
	return nil, fmt.Errorf("payload is valid JSON but not in expected format, got: %+v\n\t%w", tree.Interface(), errT)
}
