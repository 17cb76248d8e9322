//
// Tencent is pleased to support the open source community by making trpc-pagescript-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-pagescript-go is licensed under the Apache License Version 2.0.
//
//

// Package router delivers script output to its destination: the page, the
// selection, the cursor, the end of the document or a new file.
package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"trpc.group/trpc-go/trpc-pagescript-go/codeexecutor"
	"trpc.group/trpc-go/trpc-pagescript-go/document"
	"trpc.group/trpc-go/trpc-pagescript-go/log"
	atrace "trpc.group/trpc-go/trpc-pagescript-go/telemetry/trace"
)

// InvocationMode is the command the user picked.
type InvocationMode string

// Invocation modes.
const (
	InvocationInsert  InvocationMode = "insert"
	InvocationNewFile InvocationMode = "newfile"
)

// State is where routing ended.
type State string

// Terminal states.
const (
	// StateApplied means output was written to the editor or a new file.
	StateApplied State = "applied"
	// StateReported means nothing was written and only a message is shown.
	StateReported State = "reported"
)

// User-facing confirmations.
const (
	MsgNoOutput          = "Script executed successfully (no return value)"
	MsgNoActiveView      = "No active markdown view. Use 'Run Script to New File' instead."
	MsgPageReplaced      = "Page content replaced with script output"
	MsgSelectionReplaced = "Selection replaced with script output"
	MsgInsertedNoSel     = "Script output inserted at cursor (no selection found)"
	MsgInserted          = "Script output inserted at cursor"
	MsgAppended          = "Script output appended to end of document"
	msgCreatedFormat     = "Created new file: %s"
)

// ErrNoStore is returned when new-file output is requested without a store.
var ErrNoStore = errors.New("no document store for new file output")

// Outcome describes what Route did.
type Outcome struct {
	State State `json:"state"`
	// Mode is the branch that was applied, "" when reported.
	Mode    codeexecutor.OutputMode `json:"mode,omitempty"`
	Message string                  `json:"message"`
	// Cursor is where the caret was left, nil when it was not moved.
	Cursor *document.Position `json:"cursor,omitempty"`
	// Document is the file created for new-file output.
	Document *document.Document `json:"document,omitempty"`
}

// Router routes execution results.
type Router struct {
	store     document.Store
	workspace document.Workspace
	now       func() time.Time
}

// Option configures a Router.
type Option func(*Router)

// WithStore sets the store new files are created in.
func WithStore(s document.Store) Option {
	return func(r *Router) { r.store = s }
}

// WithWorkspace sets where the active editor is looked up.
func WithWorkspace(ws document.Workspace) Option {
	return func(r *Router) { r.workspace = ws }
}

// WithClock overrides the time used to name new files.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// New creates a Router.
func New(opts ...Option) *Router {
	r := &Router{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewFileName returns the name new-file output is stored under.
func NewFileName(t time.Time) string {
	return "Script Output " + t.UTC().Format("2006-01-02T15-04-05") + ".md"
}

// Route applies res according to the invocation and the declared mode.
func (r *Router) Route(ctx context.Context, res codeexecutor.ExecutionResult, inv InvocationMode) (Outcome, error) {
	ctx, span := atrace.Tracer.Start(ctx, atrace.SpanRoute)
	span.SetAttributes(
		attribute.String(atrace.AttrInvocation, string(inv)),
		attribute.String(atrace.AttrMode, string(res.DeclaredMode)),
	)
	defer span.End()

	out, err := r.route(ctx, res, inv)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Outcome{}, err
	}
	span.SetAttributes(attribute.String(atrace.AttrState, string(out.State)))
	return out, nil
}

func (r *Router) route(ctx context.Context, res codeexecutor.ExecutionResult, inv InvocationMode) (Outcome, error) {
	text := res.Text
	if text == "" {
		return Outcome{State: StateReported, Message: MsgNoOutput}, nil
	}
	if inv == InvocationNewFile || res.DeclaredMode == codeexecutor.ModeNewFile {
		return r.createFile(ctx, text)
	}

	var ed document.Editor
	if r.workspace != nil {
		ed, _ = r.workspace.ActiveEditor()
	}
	if ed == nil {
		return Outcome{State: StateReported, Message: MsgNoActiveView}, nil
	}

	mode := res.DeclaredMode
	if mode != "" && !mode.IsKnown() {
		log.WarnfContext(ctx, "unrecognized output mode %q, using default placement", mode)
	}
	switch mode {
	case codeexecutor.ModePage:
		if err := ed.SetValue(text); err != nil {
			return Outcome{}, fmt.Errorf("replace page: %w", err)
		}
		return Outcome{State: StateApplied, Mode: mode, Message: MsgPageReplaced}, nil
	case codeexecutor.ModeSelection:
		if ed.Selection() == "" {
			return insertAtCursor(ed, text, MsgInsertedNoSel)
		}
		return replaceSelection(ed, text)
	case codeexecutor.ModeCursor:
		return insertAtCursor(ed, text, MsgInserted)
	case codeexecutor.ModeAppend:
		return appendToEnd(ed, text)
	default:
		if ed.Selection() != "" {
			return replaceSelection(ed, text)
		}
		return insertAtCursor(ed, text, MsgInserted)
	}
}

func (r *Router) createFile(ctx context.Context, text string) (Outcome, error) {
	if r.store == nil {
		return Outcome{}, ErrNoStore
	}
	name := NewFileName(r.now())
	ctx, span := atrace.Tracer.Start(ctx, atrace.SpanStoreCreate)
	span.SetAttributes(attribute.String(atrace.AttrPath, name))
	defer span.End()

	doc, err := r.store.Create(ctx, name, text)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Outcome{}, fmt.Errorf("create output file: %w", err)
	}
	return Outcome{
		State:    StateApplied,
		Mode:     codeexecutor.ModeNewFile,
		Message:  fmt.Sprintf(msgCreatedFormat, doc.Name()),
		Document: &doc,
	}, nil
}

func replaceSelection(ed document.Editor, text string) (Outcome, error) {
	start := ed.SelectionStart()
	if err := ed.ReplaceSelection(text); err != nil {
		return Outcome{}, fmt.Errorf("replace selection: %w", err)
	}
	return placeCursor(ed, document.Advance(start, text), codeexecutor.ModeSelection, MsgSelectionReplaced)
}

func insertAtCursor(ed document.Editor, text, msg string) (Outcome, error) {
	pos := ed.Cursor()
	if err := ed.ReplaceRange(text, pos); err != nil {
		return Outcome{}, fmt.Errorf("insert at cursor: %w", err)
	}
	return placeCursor(ed, document.Advance(pos, text), codeexecutor.ModeCursor, msg)
}

func appendToEnd(ed document.Editor, text string) (Outcome, error) {
	last := ed.LastLine()
	pos := document.Position{Line: last, Column: document.Len(ed.Line(last))}
	text = "\n" + text
	if err := ed.ReplaceRange(text, pos); err != nil {
		return Outcome{}, fmt.Errorf("append: %w", err)
	}
	return placeCursor(ed, document.Advance(pos, text), codeexecutor.ModeAppend, MsgAppended)
}

func placeCursor(ed document.Editor, pos document.Position, mode codeexecutor.OutputMode, msg string) (Outcome, error) {
	if err := ed.SetCursor(pos); err != nil {
		return Outcome{}, fmt.Errorf("move cursor: %w", err)
	}
	return Outcome{State: StateApplied, Mode: mode, Message: msg, Cursor: &pos}, nil
}
