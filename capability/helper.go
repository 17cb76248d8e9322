//
// Tencent is pleased to support the open source community by making trpc-pagescript-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-pagescript-go is licensed under the Apache License Version 2.0.
//
//

package capability

import (
	"context"
	"errors"
	"fmt"

	"trpc.group/trpc-go/trpc-pagescript-go/document"
)

// ErrNoPrompter is returned by Helper.Prompt when the host cannot show dialogs.
var ErrNoPrompter = errors.New("no prompt dialog available")

// Helper backs the `ps` object: prompts and document I/O. Its methods may be
// called from several goroutines at once.
type Helper struct {
	store     document.Store
	workspace document.Workspace
	prompter  Prompter
}

// HelperOption configures a Helper.
type HelperOption func(*Helper)

// WithPrompter sets the dialog used by Prompt.
func WithPrompter(p Prompter) HelperOption {
	return func(h *Helper) { h.prompter = p }
}

// WithWorkspace sets where CurrentDocument looks.
func WithWorkspace(ws document.Workspace) HelperOption {
	return func(h *Helper) { h.workspace = ws }
}

// NewHelper creates a Helper over store.
func NewHelper(store document.Store, opts ...HelperOption) *Helper {
	h := &Helper{store: store}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Prompt asks the user for text. A nil result means the dialog was canceled.
func (h *Helper) Prompt(ctx context.Context, text, defaultValue string, multiLine bool) (*string, error) {
	if h.prompter == nil {
		return nil, ErrNoPrompter
	}
	value, ok, err := h.prompter.Prompt(ctx, text, defaultValue, multiLine)
	if err != nil {
		return nil, fmt.Errorf("prompt: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &value, nil
}

// CurrentDocument returns the document open in the focused editor.
func (h *Helper) CurrentDocument() (document.Document, bool) {
	if h.workspace == nil {
		return document.Document{}, false
	}
	return h.workspace.ActiveDocument()
}

// ReadDocument returns the content of doc.
func (h *Helper) ReadDocument(ctx context.Context, doc document.Document) (string, error) {
	if h.store == nil {
		return "", fmt.Errorf("read %q: %w", doc.Path, document.ErrNotFound)
	}
	return h.store.Read(ctx, doc)
}

// WriteDocument replaces the content of doc.
func (h *Helper) WriteDocument(ctx context.Context, doc document.Document, text string) error {
	if h.store == nil {
		return fmt.Errorf("write %q: %w", doc.Path, document.ErrNotFound)
	}
	return h.store.Write(ctx, doc, text)
}

// RenameDocument moves doc to newPath.
func (h *Helper) RenameDocument(ctx context.Context, doc document.Document, newPath string) (document.Document, error) {
	if h.store == nil {
		return document.Document{}, fmt.Errorf("rename %q: %w", doc.Path, document.ErrNotFound)
	}
	return h.store.Rename(ctx, doc, newPath)
}
