//nolint:exhaustruct
package session_test

import (
	"reflect"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/pasqal-io/textserde/config"
	"github.com/pasqal-io/textserde/session"
	"github.com/pasqal-io/textserde/shared"
)

type Node struct {
	Name     string
	Next     *Node
	Children []*Node
}

type Holder struct {
	Items map[string]any
}

func TestDepthLimit(t *testing.T) {
	cfg := config.Default()
	cfg.MaxDepth = 2
	s := session.New(cfg, false)
	assert.NilError(t, s.Push())
	assert.NilError(t, s.Push())
	assert.ErrorIs(t, s.Push(), shared.ErrMaxDepthExceeded)
	s.Pop()
	s.Pop()
	s.Pop()
	assert.Equal(t, s.Depth(), 0)
}

func TestUnlimitedDepth(t *testing.T) {
	cfg := config.Default()
	cfg.MaxDepth = 0
	s := session.New(cfg, false)
	for range 2 * config.DefaultMaxDepth {
		assert.NilError(t, s.Push())
	}
}

func TestEnterOutsideSafeSessions(t *testing.T) {
	s := session.New(config.Default(), false)
	node := &Node{}
	assert.Assert(t, !s.Enter(reflect.ValueOf(node)))
	assert.Assert(t, !s.Enter(reflect.ValueOf(node)))
}

func TestEnterDetectsCycles(t *testing.T) {
	s := session.New(config.Default(), true)
	node := &Node{Name: "a"}
	v := reflect.ValueOf(node)
	assert.Assert(t, !s.Enter(v))
	assert.Assert(t, s.Enter(v))
	assert.Equal(t, s.Cycles(), 1)

	// Once done, meeting the reference again is not a cycle.
	s.Leave(v)
	assert.Assert(t, !s.Enter(v))
	s.Leave(v)
	assert.Equal(t, s.Cycles(), 1)
}

func TestEnterIgnoresValuesWithoutIdentity(t *testing.T) {
	s := session.New(config.Default(), true)
	type empty struct{}
	a, b := &empty{}, &empty{}
	assert.Assert(t, !s.Enter(reflect.ValueOf(a)))
	assert.Assert(t, !s.Enter(reflect.ValueOf(b)))
	assert.Assert(t, !s.Enter(reflect.ValueOf((*Node)(nil))))
	assert.Assert(t, !s.Enter(reflect.ValueOf(3)))
}

func TestHasCycle(t *testing.T) {
	assert.Assert(t, !session.HasCycle(nil))
	assert.Assert(t, !session.HasCycle(42))

	chain := &Node{Name: "a", Next: &Node{Name: "b"}}
	assert.Assert(t, !session.HasCycle(chain))

	chain.Next.Next = chain
	assert.Assert(t, session.HasCycle(chain))
	assert.Assert(t, session.HasCycle(*chain))

	self := &Node{Name: "self"}
	self.Children = []*Node{self}
	assert.Assert(t, session.HasCycle(self))
}

func TestSharedReferencesAreNotCycles(t *testing.T) {
	common := &Node{Name: "common"}
	root := &Node{Children: []*Node{common, common}, Next: common}
	assert.Assert(t, !session.HasCycle(root))
}

func TestHasCycleThroughMaps(t *testing.T) {
	h := &Holder{Items: map[string]any{}}
	assert.Assert(t, !session.HasCycle(h))
	h.Items["me"] = h
	assert.Assert(t, session.HasCycle(h))

	list := []any{1, nil}
	list[1] = list
	assert.Assert(t, session.HasCycle(list))
}
