//
// Tencent is pleased to support the open source community by making trpc-pagescript-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-pagescript-go is licensed under the Apache License Version 2.0.
//
//

package bridge

import (
	"trpc.group/trpc-go/trpc-pagescript-go/capability"
	"trpc.group/trpc-go/trpc-pagescript-go/codeexecutor"
	"trpc.group/trpc-go/trpc-pagescript-go/document"
	"trpc.group/trpc-go/trpc-pagescript-go/document/buffer"
	"trpc.group/trpc-go/trpc-pagescript-go/picker"
	"trpc.group/trpc-go/trpc-pagescript-go/router"
)

// RunRequest is the body of POST /v1/run.
type RunRequest struct {
	// Script is the store path of the PageScript document.
	Script string `json:"script"`
	// Mode is "insert" (default) or "newfile".
	Mode router.InvocationMode `json:"mode,omitempty"`
	// Editor is the caller's active editor; omit it when none is open.
	Editor *EditorState `json:"editor,omitempty"`
	// Answers maps prompt texts to replies. Unlisted prompts are canceled.
	Answers map[string]string `json:"answers,omitempty"`
}

// EditorState is a snapshot of an editor.
type EditorState struct {
	Path   string             `json:"path,omitempty"`
	Text   string             `json:"text"`
	Cursor document.Position  `json:"cursor"`
	Anchor *document.Position `json:"anchor,omitempty"`
}

func (e *EditorState) buffer() *buffer.Buffer {
	if e.Anchor != nil {
		return buffer.New(e.Text, buffer.WithSelection(*e.Anchor, e.Cursor))
	}
	return buffer.New(e.Text, buffer.WithCursor(e.Cursor))
}

// snapshot captures b; a selection that survived the run keeps its anchor.
func snapshot(b *buffer.Buffer, path string) *EditorState {
	st := &EditorState{Path: path, Text: b.Value(), Cursor: b.Cursor()}
	from, to := b.SelectionStart(), b.SelectionEnd()
	if from != to {
		anchor := from
		if st.Cursor == from {
			anchor = to
		}
		st.Anchor = &anchor
	}
	return st
}

// RunResponse is the body returned by POST /v1/run.
type RunResponse struct {
	InvocationID string                     `json:"invocationId"`
	Outcome      router.Outcome             `json:"outcome"`
	Output       string                     `json:"output"`
	DeclaredMode codeexecutor.OutputMode    `json:"declaredMode,omitempty"`
	Blocks       []codeexecutor.BlockResult `json:"blocks,omitempty"`
	// Editor is the editor state after routing, absent when none was sent.
	Editor  *EditorState        `json:"editor,omitempty"`
	Notices []capability.Notice `json:"notices"`
}

// ScriptsResponse is the body returned by GET /v1/scripts.
type ScriptsResponse struct {
	Folder      string          `json:"folder"`
	Placeholder string          `json:"placeholder"`
	Scripts     []picker.Script `json:"scripts"`
}
