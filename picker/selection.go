//
// Tencent is pleased to support the open source community by making trpc-pagescript-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-pagescript-go is licensed under the Apache License Version 2.0.
//
//

package picker

// Selection tracks the highlighted entry of a suggestion list. Moving past
// either end wraps around.
type Selection[T any] struct {
	items []T
	index int
}

// NewSelection highlights the first of items.
func NewSelection[T any](items []T) *Selection[T] {
	return &Selection[T]{items: items}
}

// Items returns the entries.
func (s *Selection[T]) Items() []T {
	return s.items
}

// Index returns the highlighted position.
func (s *Selection[T]) Index() int {
	return s.index
}

// Set highlights position i, wrapped into range.
func (s *Selection[T]) Set(i int) {
	s.index = wrapAround(i, len(s.items))
}

// Next moves the highlight down.
func (s *Selection[T]) Next() {
	s.Set(s.index + 1)
}

// Prev moves the highlight up.
func (s *Selection[T]) Prev() {
	s.Set(s.index - 1)
}

// Selected returns the highlighted entry. ok is false for an empty list.
func (s *Selection[T]) Selected() (item T, ok bool) {
	if len(s.items) == 0 {
		return item, false
	}
	return s.items[s.index], true
}

func wrapAround(value, size int) int {
	if size == 0 {
		return 0
	}
	return ((value % size) + size) % size
}
