//
// Tencent is pleased to support the open source community by making trpc-pagescript-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-pagescript-go is licensed under the Apache License Version 2.0.
//
//

// Package buffer provides an in-memory document.Editor over a line slice.
// Headless hosts (the CLI and the HTTP bridge) load a document into a Buffer,
// let the pipeline edit it, and then persist Value.
package buffer

import (
	"strings"
	"sync"
	"unicode/utf8"

	"trpc.group/trpc-go/trpc-pagescript-go/document"
)

var _ document.Editor = (*Buffer)(nil)

// Buffer is a text buffer with a cursor and an optional selection.
// The selection spans anchor..head; an empty selection has anchor == head.
type Buffer struct {
	mu     sync.Mutex
	lines  []string
	anchor document.Position
	head   document.Position
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithCursor places the caret.
func WithCursor(pos document.Position) Option {
	return func(b *Buffer) {
		b.head = b.clamp(pos)
		b.anchor = b.head
	}
}

// WithSelection selects anchor..head; the caret ends at head.
func WithSelection(anchor, head document.Position) Option {
	return func(b *Buffer) {
		b.anchor = b.clamp(anchor)
		b.head = b.clamp(head)
	}
}

// New creates a buffer holding text with the caret at the start.
func New(text string, opts ...Option) *Buffer {
	b := &Buffer{lines: strings.Split(text, "\n")}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Value implements document.Editor.
func (b *Buffer) Value() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.lines, "\n")
}

// SetValue implements document.Editor. The caret moves to the start.
func (b *Buffer) SetValue(text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = strings.Split(text, "\n")
	b.anchor = document.Position{}
	b.head = document.Position{}
	return nil
}

// Selection implements document.Editor.
func (b *Buffer) Selection() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	from, to := b.ordered()
	return b.textBetween(from, to)
}

// SelectionStart implements document.Editor.
func (b *Buffer) SelectionStart() document.Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	from, _ := b.ordered()
	return from
}

// SelectionEnd returns the end of the selection, or the caret.
func (b *Buffer) SelectionEnd() document.Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, to := b.ordered()
	return to
}

// Cursor implements document.Editor.
func (b *Buffer) Cursor() document.Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.head
}

// SetCursor implements document.Editor.
func (b *Buffer) SetCursor(pos document.Position) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = b.clamp(pos)
	b.anchor = b.head
	return nil
}

// ReplaceSelection implements document.Editor. With nothing selected the
// text is inserted at the caret. The caret ends after the inserted text.
func (b *Buffer) ReplaceSelection(text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	from, to := b.ordered()
	end := b.replace(from, to, text)
	b.anchor, b.head = end, end
	return nil
}

// ReplaceRange implements document.Editor. The caret is kept where it was,
// clamped to the new content.
func (b *Buffer) ReplaceRange(text string, pos document.Position) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	at := b.clamp(pos)
	b.replace(at, at, text)
	b.anchor = b.clamp(b.anchor)
	b.head = b.clamp(b.head)
	return nil
}

// LastLine implements document.Editor.
func (b *Buffer) LastLine() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines) - 1
}

// Line implements document.Editor. Out-of-range lines are "".
func (b *Buffer) Line(n int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n < 0 || n >= len(b.lines) {
		return ""
	}
	return b.lines[n]
}

// ordered returns the selection bounds in document order.
func (b *Buffer) ordered() (document.Position, document.Position) {
	if less(b.head, b.anchor) {
		return b.head, b.anchor
	}
	return b.anchor, b.head
}

func less(a, c document.Position) bool {
	if a.Line != c.Line {
		return a.Line < c.Line
	}
	return a.Column < c.Column
}

func (b *Buffer) clamp(pos document.Position) document.Position {
	if pos.Line < 0 {
		return document.Position{}
	}
	if pos.Line >= len(b.lines) {
		last := len(b.lines) - 1
		return document.Position{Line: last, Column: utf8.RuneCountInString(b.lines[last])}
	}
	width := utf8.RuneCountInString(b.lines[pos.Line])
	switch {
	case pos.Column < 0:
		pos.Column = 0
	case pos.Column > width:
		pos.Column = width
	}
	return pos
}

// split cuts line at a rune column.
func split(line string, column int) (string, string) {
	i := 0
	for off := range line {
		if i == column {
			return line[:off], line[off:]
		}
		i++
	}
	return line, ""
}

func (b *Buffer) textBetween(from, to document.Position) string {
	if from == to {
		return ""
	}
	if from.Line == to.Line {
		_, rest := split(b.lines[from.Line], from.Column)
		mid, _ := split(rest, to.Column-from.Column)
		return mid
	}
	_, first := split(b.lines[from.Line], from.Column)
	parts := []string{first}
	parts = append(parts, b.lines[from.Line+1:to.Line]...)
	last, _ := split(b.lines[to.Line], to.Column)
	parts = append(parts, last)
	return strings.Join(parts, "\n")
}

// replace swaps from..to for text and returns the position after text.
func (b *Buffer) replace(from, to document.Position, text string) document.Position {
	prefix, _ := split(b.lines[from.Line], from.Column)
	_, suffix := split(b.lines[to.Line], to.Column)
	inserted := strings.Split(prefix+text+suffix, "\n")

	lines := make([]string, 0, len(b.lines)-(to.Line-from.Line)+len(inserted)-1)
	lines = append(lines, b.lines[:from.Line]...)
	lines = append(lines, inserted...)
	lines = append(lines, b.lines[to.Line+1:]...)
	b.lines = lines
	return document.Advance(from, text)
}
