//
// Tencent is pleased to support the open source community by making trpc-pagescript-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-pagescript-go is licensed under the Apache License Version 2.0.
//
//

package document

import (
	"strings"
	"unicode/utf8"
)

// Position is a zero-based line/column location in an editor. Columns count
// Unicode code points.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Advance returns where the cursor lands after inserting text at p.
//
// Single-line text moves the column by its length. Multi-line text moves to
// the last inserted line, with the column at that line's length.
func Advance(p Position, text string) Position {
	lines := strings.Split(text, "\n")
	if len(lines) == 1 {
		return Position{Line: p.Line, Column: p.Column + Len(text)}
	}
	last := lines[len(lines)-1]
	return Position{
		Line:   p.Line + len(lines) - 1,
		Column: Len(last),
	}
}

// Len returns the width of s in columns.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}
