package shared_test

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/pasqal-io/textserde/shared"
)

func TestObjectKeepsInsertionOrder(t *testing.T) {
	obj := shared.NewObject()
	obj.Set("b", shared.Number("1"))
	obj.Set("a", shared.String("x"))
	obj.Set("b", shared.Number("2"))

	assert.DeepEqual(t, obj.Keys(), []string{"b", "a"})
	value, ok := obj.Lookup("b")
	assert.Assert(t, ok)
	assert.Equal(t, value, shared.Value(shared.Number("2")))

	_, ok = obj.Lookup("B")
	assert.Assert(t, !ok)
	value, ok = obj.LookupFold("A")
	assert.Assert(t, ok)
	assert.Equal(t, value.Interface(), "x")
}

func TestInterface(t *testing.T) {
	obj := shared.NewObject()
	obj.Set("list", shared.List{shared.Number("1"), shared.Null{}})
	obj.Set("flag", shared.Bool(true))

	assert.DeepEqual(t, obj.Interface(), map[string]any{
		"list": []any{"1", nil},
		"flag": "true",
	})
}

func TestIsNull(t *testing.T) {
	assert.Assert(t, shared.IsNull(nil))
	assert.Assert(t, shared.IsNull(shared.Null{}))
	assert.Assert(t, !shared.IsNull(shared.Raw("")))
	assert.Assert(t, !shared.IsNull(shared.List{}))
}

func TestParseErrorMessage(t *testing.T) {
	err := shared.NewParseError("jsv", "{Name:\"unterminated", 6, "unterminated quoted string")
	assert.Equal(t, err.Near, "{Name:\"unterminate")
	assert.ErrorContains(t, err, "invalid jsv at offset 6")

	unknown := shared.NewParseError("json", "", -1, "unexpected end of input")
	assert.Equal(t, unknown.Error(), "invalid json: unexpected end of input")
}
