//
// Tencent is pleased to support the open source community by making trpc-pagescript-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-pagescript-go is licensed under the Apache License Version 2.0.
//
//

package capability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-pagescript-go/capability"
	"trpc.group/trpc-go/trpc-pagescript-go/document"
	"trpc.group/trpc-go/trpc-pagescript-go/document/buffer"
	"trpc.group/trpc-go/trpc-pagescript-go/document/inmemory"
)

func TestAppWithoutWorkspace(t *testing.T) {
	app := capability.App{ScriptsFolder: "PageScripts"}

	_, ok := app.ActiveDocument()
	assert.False(t, ok)
	assert.Equal(t, "", app.Selection())
	_, ok = app.EditorText()
	assert.False(t, ok)
}

func TestAppReadsActiveEditor(t *testing.T) {
	doc := document.New("notes/today.md")
	ed := buffer.New("hello world", buffer.WithSelection(
		document.Position{Line: 0, Column: 6},
		document.Position{Line: 0, Column: 11},
	))
	app := capability.App{Workspace: &document.StaticWorkspace{Editor: ed, Document: &doc}}

	got, ok := app.ActiveDocument()
	require.True(t, ok)
	assert.Equal(t, "notes/today.md", got.Path)
	assert.Equal(t, "world", app.Selection())
	text, ok := app.EditorText()
	require.True(t, ok)
	assert.Equal(t, "hello world", text)
}

func TestRecorder(t *testing.T) {
	rec := &capability.Recorder{}
	ctx := capability.Context{Notifier: rec}

	ctx.Notify("first", 0)
	ctx.Notify("second", 3*time.Second)

	assert.Equal(t, []string{"first", "second"}, rec.Messages())
	assert.Equal(t, 3*time.Second, rec.Notices()[1].Timeout)
}

func TestContextNotifyWithoutNotifier(t *testing.T) {
	assert.NotPanics(t, func() {
		capability.Context{}.Notify("dropped", 0)
	})
}

func TestHelperPrompt(t *testing.T) {
	tests := []struct {
		name     string
		prompter capability.Prompter
		want     *string
		wantErr  error
	}{
		{
			name: "answered",
			prompter: capability.PrompterFunc(func(_ context.Context, text, def string, multi bool) (string, bool, error) {
				return text + ":" + def, true, nil
			}),
			want: ptr("Name?:bob"),
		},
		{
			name: "canceled",
			prompter: capability.PrompterFunc(func(context.Context, string, string, bool) (string, bool, error) {
				return "", false, nil
			}),
		},
		{
			name:    "no prompter",
			wantErr: capability.ErrNoPrompter,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []capability.HelperOption
			if tt.prompter != nil {
				opts = append(opts, capability.WithPrompter(tt.prompter))
			}
			h := capability.NewHelper(nil, opts...)
			got, err := h.Prompt(context.Background(), "Name?", "bob", false)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHelperPromptError(t *testing.T) {
	boom := errors.New("dialog closed")
	h := capability.NewHelper(nil, capability.WithPrompter(
		capability.PrompterFunc(func(context.Context, string, string, bool) (string, bool, error) {
			return "", false, boom
		})))
	_, err := h.Prompt(context.Background(), "x", "", true)
	assert.ErrorIs(t, err, boom)
}

func TestHelperDocuments(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStore()
	doc, err := store.Put("notes/a.md", "alpha")
	require.NoError(t, err)
	h := capability.NewHelper(store,
		capability.WithWorkspace(&document.StaticWorkspace{Document: &doc}),
	)

	cur, ok := h.CurrentDocument()
	require.True(t, ok)
	assert.Equal(t, doc, cur)

	text, err := h.ReadDocument(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, "alpha", text)

	require.NoError(t, h.WriteDocument(ctx, doc, "beta"))
	moved, err := h.RenameDocument(ctx, doc, "notes/b.md")
	require.NoError(t, err)
	assert.Equal(t, "notes/b.md", moved.Path)

	text, err = h.ReadDocument(ctx, moved)
	require.NoError(t, err)
	assert.Equal(t, "beta", text)

	_, err = h.ReadDocument(ctx, doc)
	assert.ErrorIs(t, err, document.ErrNotFound)
}

func TestHelperWithoutStore(t *testing.T) {
	h := capability.NewHelper(nil)
	_, err := h.ReadDocument(context.Background(), document.New("a.md"))
	assert.ErrorIs(t, err, document.ErrNotFound)
	_, ok := h.CurrentDocument()
	assert.False(t, ok)
}

func ptr(s string) *string { return &s }
