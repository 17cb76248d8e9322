//
// Tencent is pleased to support the open source community by making trpc-pagescript-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-pagescript-go is licensed under the Apache License Version 2.0.
//
//

package document

// Editor is the text view the user is working in.
//
// Reads never fail. Mutations return an error when the host could not apply
// them (for example a remote editor that went away).
type Editor interface {
	// Value returns the whole buffer.
	Value() string
	// SetValue replaces the whole buffer.
	SetValue(text string) error
	// Selection returns the selected text, "" when nothing is selected.
	Selection() string
	// SelectionStart returns the start of the selection, or the cursor when
	// nothing is selected.
	SelectionStart() Position
	// Cursor returns the caret position.
	Cursor() Position
	// SetCursor moves the caret and clears any selection.
	SetCursor(pos Position) error
	// ReplaceSelection replaces the selected text.
	ReplaceSelection(text string) error
	// ReplaceRange inserts text at pos.
	ReplaceRange(text string, pos Position) error
	// LastLine returns the index of the last line.
	LastLine() int
	// Line returns the text of line n without its newline.
	Line(n int) string
}

// Workspace reports what the user currently has open.
type Workspace interface {
	// ActiveEditor returns the focused markdown editor, if any.
	ActiveEditor() (Editor, bool)
	// ActiveDocument returns the document shown in the focused editor, if any.
	ActiveDocument() (Document, bool)
}

// StaticWorkspace is a Workspace with a fixed editor and document. A nil
// Editor means nothing is open.
type StaticWorkspace struct {
	Editor   Editor
	Document *Document
}

// ActiveEditor implements Workspace.
func (w StaticWorkspace) ActiveEditor() (Editor, bool) {
	return w.Editor, w.Editor != nil
}

// ActiveDocument implements Workspace.
func (w StaticWorkspace) ActiveDocument() (Document, bool) {
	if w.Document == nil {
		return Document{}, false
	}
	return *w.Document, true
}
