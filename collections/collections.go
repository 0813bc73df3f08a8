// Package collections provides sets, queues and stacks that serialize as
// lists, in enumeration order.
//
// A Stack enumerates from the top, i.e. the most recent push comes first.
// Reading a list back into a Stack restores the same enumeration order.
package collections

import (
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/pasqal-io/textserde/shared"
)

// A set preserving insertion order.
//
// The zero value is an empty set.
type Set[T comparable] struct {
	items []T
	index map[T]struct{}
}

func NewSet[T comparable](items ...T) *Set[T] {
	s := &Set[T]{items: nil, index: nil}
	for _, item := range items {
		s.Add(item)
	}
	return s
}

// Add an item. Returns false if it was already present.
func (s *Set[T]) Add(item T) bool {
	if s.index == nil {
		s.index = make(map[T]struct{})
	}
	if _, ok := s.index[item]; ok {
		return false
	}
	s.index[item] = struct{}{}
	s.items = append(s.items, item)
	return true
}

func (s *Set[T]) Has(item T) bool {
	_, ok := s.index[item]
	return ok
}

// Remove an item. Returns false if it was absent.
func (s *Set[T]) Remove(item T) bool {
	if _, ok := s.index[item]; !ok {
		return false
	}
	delete(s.index, item)
	s.items = slices.DeleteFunc(s.items, func(other T) bool { return other == item })
	return true
}

func (s *Set[T]) Len() int {
	return len(s.items)
}

// The items, in insertion order.
func (s *Set[T]) Items() []T {
	return append([]T{}, s.items...)
}

func (s Set[T]) MarshalTree() any {
	return append([]T{}, s.items...)
}

func (s *Set[T]) UnmarshalTree(v shared.Value, bind shared.BindFunc) error {
	var items []T
	if err := bind(v, &items); err != nil {
		return errors.Wrap(err, "cannot read set")
	}
	*s = Set[T]{items: nil, index: nil}
	for _, item := range lo.Uniq(items) {
		s.Add(item)
	}
	return nil
}

// A first-in first-out queue.
//
// The zero value is an empty queue.
type Queue[T any] struct {
	items []T
}

func NewQueue[T any](items ...T) *Queue[T] {
	return &Queue[T]{items: append([]T{}, items...)}
}

func (q *Queue[T]) Enqueue(item T) {
	q.items = append(q.items, item)
}

// Remove the oldest item.
func (q *Queue[T]) Dequeue() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return item, true
}

func (q *Queue[T]) Peek() (T, bool) {
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	return q.items[0], true
}

func (q *Queue[T]) Len() int {
	return len(q.items)
}

// The items, oldest first.
func (q *Queue[T]) Items() []T {
	return append([]T{}, q.items...)
}

func (q Queue[T]) MarshalTree() any {
	return append([]T{}, q.items...)
}

func (q *Queue[T]) UnmarshalTree(v shared.Value, bind shared.BindFunc) error {
	var items []T
	if err := bind(v, &items); err != nil {
		return errors.Wrap(err, "cannot read queue")
	}
	q.items = items
	return nil
}

// A last-in first-out stack.
//
// The zero value is an empty stack.
type Stack[T any] struct {
	// Top is last.
	items []T
}

// Create a stack, pushing `items` in order.
func NewStack[T any](items ...T) *Stack[T] {
	return &Stack[T]{items: append([]T{}, items...)}
}

func (s *Stack[T]) Push(item T) {
	s.items = append(s.items, item)
}

// Remove the most recent item.
func (s *Stack[T]) Pop() (T, bool) {
	var zero T
	if len(s.items) == 0 {
		return zero, false
	}
	last := len(s.items) - 1
	item := s.items[last]
	s.items[last] = zero
	s.items = s.items[:last]
	return item, true
}

func (s *Stack[T]) Peek() (T, bool) {
	if len(s.items) == 0 {
		var zero T
		return zero, false
	}
	return s.items[len(s.items)-1], true
}

func (s *Stack[T]) Len() int {
	return len(s.items)
}

// The items, top first.
func (s *Stack[T]) Items() []T {
	items := append([]T{}, s.items...)
	slices.Reverse(items)
	return items
}

func (s Stack[T]) MarshalTree() any {
	return s.Items()
}

func (s *Stack[T]) UnmarshalTree(v shared.Value, bind shared.BindFunc) error {
	var items []T
	if err := bind(v, &items); err != nil {
		return errors.Wrap(err, "cannot read stack")
	}
	slices.Reverse(items)
	s.items = items
	return nil
}

var (
	_ shared.TreeMarshaler   = Set[int]{}    //nolint:exhaustruct
	_ shared.TreeUnmarshaler = &Set[int]{}   //nolint:exhaustruct
	_ shared.TreeMarshaler   = Queue[int]{}  //nolint:exhaustruct
	_ shared.TreeUnmarshaler = &Queue[int]{} //nolint:exhaustruct
	_ shared.TreeMarshaler   = Stack[int]{}  //nolint:exhaustruct
	_ shared.TreeUnmarshaler = &Stack[int]{} //nolint:exhaustruct
)
