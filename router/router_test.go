//
// Tencent is pleased to support the open source community by making trpc-pagescript-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-pagescript-go is licensed under the Apache License Version 2.0.
//
//

package router_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"trpc.group/trpc-go/trpc-pagescript-go/codeexecutor"
	"trpc.group/trpc-go/trpc-pagescript-go/document"
	"trpc.group/trpc-go/trpc-pagescript-go/document/buffer"
	"trpc.group/trpc-go/trpc-pagescript-go/document/inmemory"
	"trpc.group/trpc-go/trpc-pagescript-go/router"
	atrace "trpc.group/trpc-go/trpc-pagescript-go/telemetry/trace"
)

var fixedTime = time.Date(2024, 1, 2, 11, 4, 5, 0, time.FixedZone("UTC+8", 8*3600))

func pos(line, col int) document.Position {
	return document.Position{Line: line, Column: col}
}

func newRouter(ed document.Editor, store document.Store) *router.Router {
	opts := []router.Option{router.WithClock(func() time.Time { return fixedTime })}
	if ed != nil {
		opts = append(opts, router.WithWorkspace(document.StaticWorkspace{Editor: ed}))
	}
	if store != nil {
		opts = append(opts, router.WithStore(store))
	}
	return router.New(opts...)
}

func result(text string, mode codeexecutor.OutputMode) codeexecutor.ExecutionResult {
	return codeexecutor.ExecutionResult{Text: text, DeclaredMode: mode}
}

func TestNewFileName(t *testing.T) {
	assert.Equal(t, "Script Output 2024-01-02T03-04-05.md", router.NewFileName(fixedTime))
}

func TestRouteEmptyResult(t *testing.T) {
	ed := buffer.New("keep me", buffer.WithCursor(pos(0, 4)))
	store := inmemory.NewStore()
	r := newRouter(ed, store)

	for _, inv := range []router.InvocationMode{router.InvocationInsert, router.InvocationNewFile} {
		out, err := r.Route(context.Background(), result("", codeexecutor.ModePage), inv)
		require.NoError(t, err)
		assert.Equal(t, router.StateReported, out.State)
		assert.Equal(t, router.MsgNoOutput, out.Message)
	}
	assert.Equal(t, "keep me", ed.Value())
	assert.Equal(t, pos(0, 4), ed.Cursor())
	docs, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestRouteNewFile(t *testing.T) {
	tests := []struct {
		name string
		inv  router.InvocationMode
		mode codeexecutor.OutputMode
	}{
		{"from invocation", router.InvocationNewFile, ""},
		{"from declared mode", router.InvocationInsert, codeexecutor.ModeNewFile},
		{"invocation wins over page", router.InvocationNewFile, codeexecutor.ModePage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ed := buffer.New("untouched")
			store := inmemory.NewStore()
			r := newRouter(ed, store)

			out, err := r.Route(context.Background(), result("# Out\nbody", tt.mode), tt.inv)
			require.NoError(t, err)
			assert.Equal(t, router.StateApplied, out.State)
			assert.Equal(t, codeexecutor.ModeNewFile, out.Mode)
			assert.Equal(t, "Created new file: Script Output 2024-01-02T03-04-05.md", out.Message)
			require.NotNil(t, out.Document)

			content, err := store.Read(context.Background(), *out.Document)
			require.NoError(t, err)
			assert.Equal(t, "# Out\nbody", content)
			assert.Equal(t, "untouched", ed.Value())
		})
	}
}

func TestRouteNewFileWithoutEditor(t *testing.T) {
	store := inmemory.NewStore()
	out, err := newRouter(nil, store).Route(context.Background(), result("x", ""), router.InvocationNewFile)
	require.NoError(t, err)
	assert.Equal(t, router.StateApplied, out.State)
}

func TestRouteNewFileErrors(t *testing.T) {
	_, err := newRouter(nil, nil).Route(context.Background(), result("x", ""), router.InvocationNewFile)
	assert.ErrorIs(t, err, router.ErrNoStore)

	store := inmemory.NewStore()
	_, err = store.Put(router.NewFileName(fixedTime), "old")
	require.NoError(t, err)
	_, err = newRouter(nil, store).Route(context.Background(), result("x", ""), router.InvocationNewFile)
	assert.ErrorIs(t, err, document.ErrExists)
}

func TestRouteNoActiveEditor(t *testing.T) {
	for _, mode := range []codeexecutor.OutputMode{"", codeexecutor.ModePage, codeexecutor.ModeAppend} {
		out, err := newRouter(nil, inmemory.NewStore()).Route(context.Background(), result("x", mode), router.InvocationInsert)
		require.NoError(t, err)
		assert.Equal(t, router.StateReported, out.State)
		assert.Equal(t, router.MsgNoActiveView, out.Message)
	}
}

func TestRouteEditorBranches(t *testing.T) {
	withSelection := func() *buffer.Buffer {
		return buffer.New("hello world", buffer.WithSelection(pos(0, 6), pos(0, 11)))
	}
	withCursor := func() *buffer.Buffer {
		return buffer.New("hello world", buffer.WithCursor(pos(0, 5)))
	}
	tests := []struct {
		name     string
		ed       *buffer.Buffer
		text     string
		mode     codeexecutor.OutputMode
		wantText string
		wantMode codeexecutor.OutputMode
		wantMsg  string
		wantCur  *document.Position
	}{
		{
			name: "page", ed: withSelection(), text: "new page", mode: codeexecutor.ModePage,
			wantText: "new page", wantMode: codeexecutor.ModePage, wantMsg: router.MsgPageReplaced,
		},
		{
			name: "selection replaced", ed: withSelection(), text: "a\nbb", mode: codeexecutor.ModeSelection,
			wantText: "hello a\nbb", wantMode: codeexecutor.ModeSelection, wantMsg: router.MsgSelectionReplaced,
			wantCur: &document.Position{Line: 1, Column: 2},
		},
		{
			name: "selection falls back to cursor", ed: withCursor(), text: "!", mode: codeexecutor.ModeSelection,
			wantText: "hello! world", wantMode: codeexecutor.ModeCursor, wantMsg: router.MsgInsertedNoSel,
			wantCur: &document.Position{Line: 0, Column: 6},
		},
		{
			name: "cursor ignores selection", ed: withSelection(), text: "xyz", mode: codeexecutor.ModeCursor,
			wantText: "hello worldxyz", wantMode: codeexecutor.ModeCursor, wantMsg: router.MsgInserted,
			wantCur: &document.Position{Line: 0, Column: 14},
		},
		{
			name: "append", ed: buffer.New("l1\nl2", buffer.WithCursor(pos(0, 0))), text: "x\ny", mode: codeexecutor.ModeAppend,
			wantText: "l1\nl2\nx\ny", wantMode: codeexecutor.ModeAppend, wantMsg: router.MsgAppended,
			wantCur: &document.Position{Line: 3, Column: 1},
		},
		{
			name: "default with selection", ed: withSelection(), text: "there", mode: "",
			wantText: "hello there", wantMode: codeexecutor.ModeSelection, wantMsg: router.MsgSelectionReplaced,
			wantCur: &document.Position{Line: 0, Column: 11},
		},
		{
			name: "default without selection", ed: withCursor(), text: ",", mode: "",
			wantText: "hello, world", wantMode: codeexecutor.ModeCursor, wantMsg: router.MsgInserted,
			wantCur: &document.Position{Line: 0, Column: 6},
		},
		{
			name: "unknown mode uses default", ed: withCursor(), text: "~", mode: "sideways",
			wantText: "hello~ world", wantMode: codeexecutor.ModeCursor, wantMsg: router.MsgInserted,
			wantCur: &document.Position{Line: 0, Column: 6},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := newRouter(tt.ed, nil).Route(context.Background(), result(tt.text, tt.mode), router.InvocationInsert)
			require.NoError(t, err)
			assert.Equal(t, router.StateApplied, out.State)
			assert.Equal(t, tt.wantMode, out.Mode)
			assert.Equal(t, tt.wantMsg, out.Message)
			assert.Equal(t, tt.wantText, tt.ed.Value())
			assert.Equal(t, tt.wantCur, out.Cursor)
			if tt.wantCur != nil {
				assert.Equal(t, *tt.wantCur, tt.ed.Cursor())
			}
		})
	}
}

type brokenEditor struct {
	*buffer.Buffer
}

var errDetached = errors.New("editor detached")

func (brokenEditor) ReplaceRange(string, document.Position) error { return errDetached }

func TestRouteEditorError(t *testing.T) {
	ed := brokenEditor{buffer.New("text")}
	_, err := newRouter(ed, nil).Route(context.Background(), result("x", codeexecutor.ModeCursor), router.InvocationInsert)
	assert.ErrorIs(t, err, errDetached)
}

func TestRouteSpans(t *testing.T) {
	origProvider := atrace.TracerProvider
	t.Cleanup(func() { atrace.SetProvider(origProvider) })
	rec := tracetest.NewSpanRecorder()
	atrace.SetProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))

	_, err := newRouter(nil, inmemory.NewStore()).Route(context.Background(), result("x", ""), router.InvocationNewFile)
	require.NoError(t, err)

	ended := rec.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, atrace.SpanStoreCreate, ended[0].Name())
	assert.Equal(t, atrace.SpanRoute, ended[1].Name())
	assert.Equal(t, ended[1].SpanContext().SpanID(), ended[0].Parent().SpanID())
}
