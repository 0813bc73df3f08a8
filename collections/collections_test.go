package collections_test

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/pasqal-io/textserde/collections"
	"github.com/pasqal-io/textserde/config"
	"github.com/pasqal-io/textserde/deserialize"
	"github.com/pasqal-io/textserde/format/jsv"
	"github.com/pasqal-io/textserde/serialize"
	"github.com/pasqal-io/textserde/session"
)

type Inventory struct {
	Labels  collections.Set[string]
	Pending collections.Queue[int]
	Undo    collections.Stack[string]
}

func write(t *testing.T, value any) string {
	t.Helper()
	tree, err := serialize.ToTree(value, session.New(config.Default(), false), config.InvariantCulture)
	assert.NilError(t, err)
	return jsv.Format(tree)
}

func read[T any](t *testing.T, text string) T {
	t.Helper()
	tree, err := jsv.Parse(text)
	assert.NilError(t, err)
	result, err := deserialize.As[T](tree, deserialize.Options{Config: config.Default()}) //nolint:exhaustruct
	assert.NilError(t, err)
	return result
}

func TestSet(t *testing.T) {
	set := collections.NewSet("b", "a", "b")
	assert.Equal(t, set.Len(), 2)
	assert.Assert(t, set.Has("a"))
	assert.Assert(t, !set.Add("a"))
	assert.Assert(t, set.Remove("b"))
	assert.Assert(t, !set.Remove("b"))
	assert.DeepEqual(t, set.Items(), []string{"a"})

	var zero collections.Set[int]
	assert.Assert(t, !zero.Has(1))
	assert.Assert(t, zero.Add(1))
}

func TestQueue(t *testing.T) {
	queue := collections.NewQueue(1, 2)
	queue.Enqueue(3)
	head, ok := queue.Peek()
	assert.Assert(t, ok)
	assert.Equal(t, head, 1)
	first, _ := queue.Dequeue()
	assert.Equal(t, first, 1)
	assert.DeepEqual(t, queue.Items(), []int{2, 3})

	var empty collections.Queue[int]
	_, ok = empty.Dequeue()
	assert.Assert(t, !ok)
}

func TestStack(t *testing.T) {
	stack := collections.NewStack("a", "b")
	stack.Push("c")
	top, ok := stack.Peek()
	assert.Assert(t, ok)
	assert.Equal(t, top, "c")
	assert.DeepEqual(t, stack.Items(), []string{"c", "b", "a"})
	popped, _ := stack.Pop()
	assert.Equal(t, popped, "c")
	assert.Equal(t, stack.Len(), 2)
}

func TestSerializeInEnumerationOrder(t *testing.T) {
	inventory := Inventory{
		Labels:  *collections.NewSet("x", "y"),
		Pending: *collections.NewQueue(3, 1, 2),
		Undo:    *collections.NewStack("first", "second"),
	}
	assert.Equal(t, write(t, inventory), "{Labels:[x,y],Pending:[3,1,2],Undo:[second,first]}")
}

func TestRoundTrip(t *testing.T) {
	inventory := read[Inventory](t, "{Labels:[x,y,x],Pending:[3,1,2],Undo:[second,first]}")
	assert.DeepEqual(t, inventory.Labels.Items(), []string{"x", "y"})
	assert.DeepEqual(t, inventory.Pending.Items(), []int{3, 1, 2})
	assert.DeepEqual(t, inventory.Undo.Items(), []string{"second", "first"})

	top, _ := inventory.Undo.Pop()
	assert.Equal(t, top, "second")

	// Writing back gives the same order.
	assert.Equal(t, write(t, inventory), "{Labels:[x,y],Pending:[3,1,2],Undo:[first]}")
}

func TestRoundTripPointer(t *testing.T) {
	stack := read[*collections.Stack[int]](t, "[3,2,1]")
	assert.DeepEqual(t, stack.Items(), []int{3, 2, 1})
	assert.Equal(t, write(t, stack), "[3,2,1]")
}

func TestBadItems(t *testing.T) {
	tree, err := jsv.Parse("[1,two]")
	assert.NilError(t, err)
	_, err = deserialize.As[collections.Set[int]](tree, deserialize.Options{Config: config.Default()}) //nolint:exhaustruct
	assert.ErrorContains(t, err, "cannot read set")
}
