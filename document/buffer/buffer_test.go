//
// Tencent is pleased to support the open source community by making trpc-pagescript-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-pagescript-go is licensed under the Apache License Version 2.0.
//
//

package buffer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-pagescript-go/document"
	"trpc.group/trpc-go/trpc-pagescript-go/document/buffer"
)

func pos(line, column int) document.Position {
	return document.Position{Line: line, Column: column}
}

func TestBufferSelection(t *testing.T) {
	b := buffer.New("alpha\nbeta\ngamma", buffer.WithSelection(pos(2, 2), pos(0, 3)))

	assert.Equal(t, "ha\nbeta\nga", b.Selection())
	assert.Equal(t, pos(0, 3), b.SelectionStart())
	assert.Equal(t, pos(2, 2), b.SelectionEnd())
	assert.Equal(t, pos(0, 3), b.Cursor())

	b = buffer.New("alpha", buffer.WithSelection(pos(0, 1), pos(0, 4)))
	assert.Equal(t, "lph", b.Selection())
}

func TestBufferReplaceSelection(t *testing.T) {
	b := buffer.New("one two three", buffer.WithSelection(pos(0, 4), pos(0, 7)))
	require.NoError(t, b.ReplaceSelection("2\n2b"))

	assert.Equal(t, "one 2\n2b three", b.Value())
	assert.Equal(t, pos(1, 2), b.Cursor())
	assert.Equal(t, "", b.Selection())
}

func TestBufferReplaceSelectionWithoutSelectionInserts(t *testing.T) {
	b := buffer.New("ab", buffer.WithCursor(pos(0, 1)))
	require.NoError(t, b.ReplaceSelection("X"))
	assert.Equal(t, "aXb", b.Value())
	assert.Equal(t, pos(0, 2), b.Cursor())
}

func TestBufferReplaceRange(t *testing.T) {
	b := buffer.New("first\nsecond", buffer.WithCursor(pos(1, 3)))
	require.NoError(t, b.ReplaceRange("\nthird", pos(b.LastLine(), len(b.Line(b.LastLine())))))

	assert.Equal(t, "first\nsecond\nthird", b.Value())
	assert.Equal(t, 2, b.LastLine())
	assert.Equal(t, "third", b.Line(2))
	assert.Equal(t, "", b.Line(7))
	assert.Equal(t, pos(1, 3), b.Cursor())
}

func TestBufferMultibyteColumns(t *testing.T) {
	b := buffer.New("héllo wörld", buffer.WithCursor(pos(0, 6)))
	require.NoError(t, b.ReplaceRange("→", b.Cursor()))
	assert.Equal(t, "héllo →wörld", b.Value())

	b = buffer.New("héllo", buffer.WithSelection(pos(0, 1), pos(0, 2)))
	assert.Equal(t, "é", b.Selection())
}

func TestBufferClampsPositions(t *testing.T) {
	b := buffer.New("ab\ncd")
	require.NoError(t, b.SetCursor(pos(9, 9)))
	assert.Equal(t, pos(1, 2), b.Cursor())

	require.NoError(t, b.SetCursor(pos(0, -4)))
	assert.Equal(t, pos(0, 0), b.Cursor())

	require.NoError(t, b.SetCursor(pos(-1, 5)))
	assert.Equal(t, pos(0, 0), b.Cursor())
}

func TestBufferSetValue(t *testing.T) {
	b := buffer.New("old", buffer.WithCursor(pos(0, 3)))
	require.NoError(t, b.SetValue("new\ncontent"))
	assert.Equal(t, "new\ncontent", b.Value())
	assert.Equal(t, pos(0, 0), b.Cursor())
	assert.Equal(t, 1, b.LastLine())
}
