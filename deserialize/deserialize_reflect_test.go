package deserialize_test

import (
	"net/url"
	"reflect"
	"strconv"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/pasqal-io/textserde/config"
	"github.com/pasqal-io/textserde/deserialize"
	"github.com/pasqal-io/textserde/format/querystring"
	"github.com/pasqal-io/textserde/serialize"
	"github.com/pasqal-io/textserde/session"
)

func twoWaysReflect[Input any, Output any](t *testing.T, sample Input) (*Output, error) {
	t.Helper()
	var placeholderOutput Output
	typeOutput := reflect.TypeOf(placeholderOutput)

	tree, err := serialize.ToTree(sample, session.New(config.Default(), false), config.InvariantCulture)
	if err != nil {
		t.Error(err)
		return nil, err //nolint:wrapcheck
	}
	deserialized, err := deserialize.Value(tree, typeOutput, deserialize.Options{Config: config.Default()}) //nolint:exhaustruct
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	result, _ := deserialized.Interface().(Output)
	return &result, nil
}

func TestReflectDeserializer(t *testing.T) {
	type Test struct {
		String string
		Int    int
	}
	sample := Test{
		String: "abc",
		Int:    123,
	}
	out, err := twoWaysReflect[Test, Test](t, sample)
	if err != nil {
		t.Fatal(err)
	}
	assert.DeepEqual(t, &sample, out)
}

func TestReflectEmbeddedDeserializer(t *testing.T) {
	type Inner struct {
		Nested string
	}
	type Outer struct {
		Inner
		String string
		Int    int
	}
	sample := Outer{
		Inner: Inner{
			Nested: "def",
		},
		String: "abc",
		Int:    123,
	}
	out, err := twoWaysReflect[Outer, Outer](t, sample)
	if err != nil {
		t.Fatal(err)
	}
	assert.DeepEqual(t, &sample, out)
}

func TestReflectQueryDeserializer(t *testing.T) {
	type Test struct {
		String string
		Int    int
	}
	sample := Test{
		String: "abc",
		Int:    123,
	}
	values := url.Values{}
	values.Set("String", sample.String)
	values.Set("Int", strconv.Itoa(sample.Int))

	deserialized := new(Test)
	err := deserialize.Into(querystring.FromValues(values), deserialized, deserialize.Options{Config: config.Default()}) //nolint:exhaustruct
	assert.NilError(t, err)
	assert.Equal(t, *deserialized, sample)
}

// Should be useful for books, as we wouldn't have to recreate a Pagination struct for each route for example.
func TestNestedStructQueryDeserializer(t *testing.T) {
	type NestedStruct struct {
		BBB string
	}
	type MainStruct struct {
		AAA          string
		NestedStruct NestedStruct `flatten:""`
	}
	sample := MainStruct{
		AAA: "aaa",
		NestedStruct: NestedStruct{
			BBB: "bbb",
		},
	}

	parsed, err := querystring.Parse("AAA=aaa&BBB=bbb")
	assert.NilError(t, err)
	deserialized, err := deserialize.Value(parsed, reflect.TypeOf(sample), deserialize.Options{Config: config.Default()}) //nolint:exhaustruct
	assert.NilError(t, err)
	assert.Equal(t, deserialized.Interface(), any(sample))
}

func TestAnonymStructQueryDeserializer(t *testing.T) {
	type EmbeddedStruct struct {
		BBB string
	}
	type MainStruct struct {
		AAA            string
		EmbeddedStruct // Embedded struct are anonymous fields in reflection, flattened automatically.
	}
	sample := MainStruct{
		AAA:            "aaa",
		EmbeddedStruct: EmbeddedStruct{BBB: "bbb"},
	}

	// Embedded struct fields can be accessed like if it was at root level.
	parsed, err := querystring.Parse("AAA=aaa&BBB=bbb")
	assert.NilError(t, err)
	deserialized := new(MainStruct)
	err = deserialize.Into(parsed, deserialized, deserialize.Options{Config: config.Default()}) //nolint:exhaustruct
	assert.NilError(t, err)
	assert.Equal(t, *deserialized, sample)
}
