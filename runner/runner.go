//
// Tencent is pleased to support the open source community by making trpc-pagescript-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-pagescript-go is licensed under the Apache License Version 2.0.
//
//

// Package runner wires extraction, execution and routing into the two
// PageScript commands.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"trpc.group/trpc-go/trpc-pagescript-go/capability"
	"trpc.group/trpc-go/trpc-pagescript-go/codeexecutor"
	"trpc.group/trpc-go/trpc-pagescript-go/codeexecutor/javascript"
	"trpc.group/trpc-go/trpc-pagescript-go/config"
	"trpc.group/trpc-go/trpc-pagescript-go/document"
	"trpc.group/trpc-go/trpc-pagescript-go/log"
	"trpc.group/trpc-go/trpc-pagescript-go/router"
	ametric "trpc.group/trpc-go/trpc-pagescript-go/telemetry/metric"
	atrace "trpc.group/trpc-go/trpc-pagescript-go/telemetry/trace"
)

// Notices emitted by the pipeline itself.
const (
	MsgNoBlocks      = "No JavaScript code blocks found in the selected file."
	msgFailurePrefix = "Error executing script: "
)

// ErrBusy is returned when an invocation is already running.
var ErrBusy = errors.New("a script is already running")

// Runner executes PageScripts.
type Runner interface {
	// Run executes the script stored in doc and routes its output.
	Run(ctx context.Context, doc document.Document, inv router.InvocationMode) (Result, error)
	// Close releases resources the runner created.
	Close() error
}

// Result summarizes one invocation.
type Result struct {
	InvocationID string                       `json:"invocationId"`
	Script       document.Document            `json:"script"`
	Execution    codeexecutor.ExecutionResult `json:"execution"`
	Outcome      router.Outcome               `json:"outcome"`
}

// Option configures a Runner.
type Option func(*Options)

// Options holds the Runner collaborators.
type Options struct {
	executor      codeexecutor.CodeExecutor
	workspace     document.Workspace
	notifier      capability.Notifier
	prompter      capability.Prompter
	scriptsFolder string
	clock         func() time.Time
}

// WithExecutor sets the script engine. A goja engine is created by default.
func WithExecutor(e codeexecutor.CodeExecutor) Option {
	return func(o *Options) { o.executor = e }
}

// WithWorkspace sets the editor surface output is routed to.
func WithWorkspace(ws document.Workspace) Option {
	return func(o *Options) { o.workspace = ws }
}

// WithNotifier sets where notices are shown.
func WithNotifier(n capability.Notifier) Option {
	return func(o *Options) { o.notifier = n }
}

// WithPrompter sets the dialog behind ps.prompt.
func WithPrompter(p capability.Prompter) Option {
	return func(o *Options) { o.prompter = p }
}

// WithScriptsFolder sets the folder reported to scripts as app.scriptsFolder.
func WithScriptsFolder(folder string) Option {
	return func(o *Options) { o.scriptsFolder = config.NormalizeFolder(folder) }
}

// WithClock overrides the time used to name new files.
func WithClock(now func() time.Time) Option {
	return func(o *Options) { o.clock = now }
}

type runner struct {
	store   document.Store
	opts    Options
	router  *router.Router
	mu      sync.Mutex
	ownExec *javascript.CodeExecutor

	closeOnce sync.Once
}

// NewRunner creates a Runner reading scripts from and creating files in store.
func NewRunner(store document.Store, opts ...Option) (Runner, error) {
	o := Options{
		scriptsFolder: config.DefaultScriptsFolder,
		clock:         time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	r := &runner{store: store, opts: o}
	if o.executor == nil {
		exec, err := javascript.New()
		if err != nil {
			return nil, err
		}
		r.ownExec = exec
		r.opts.executor = exec
	}
	r.router = router.New(
		router.WithStore(store),
		router.WithWorkspace(o.workspace),
		router.WithClock(o.clock),
	)
	return r, nil
}

// Run implements Runner.
func (r *runner) Run(ctx context.Context, doc document.Document, inv router.InvocationMode) (Result, error) {
	if !r.mu.TryLock() {
		return Result{}, ErrBusy
	}
	defer r.mu.Unlock()

	res := Result{InvocationID: uuid.NewString(), Script: doc}
	ctx, span := atrace.Tracer.Start(ctx, atrace.SpanRun)
	span.SetAttributes(
		attribute.String(atrace.AttrInvocationID, res.InvocationID),
		attribute.String(atrace.AttrScriptPath, doc.Path),
		attribute.String(atrace.AttrInvocation, string(inv)),
	)
	defer span.End()

	start := time.Now()
	err := r.run(ctx, doc, inv, &res)
	ametric.RecordRun(ctx, string(inv), string(res.Outcome.State), time.Since(start), err != nil)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		r.notify(msgFailurePrefix + err.Error())
		log.ErrorfContext(ctx, "pagescript %s (%s) failed: %v", doc.Path, res.InvocationID, err)
		return res, err
	}
	span.SetAttributes(attribute.String(atrace.AttrState, string(res.Outcome.State)))
	r.notify(res.Outcome.Message)
	return res, nil
}

func (r *runner) run(ctx context.Context, doc document.Document, inv router.InvocationMode, res *Result) error {
	content, err := r.store.Read(ctx, doc)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	blocks := codeexecutor.ExtractScriptBlocks(content)
	if len(blocks) == 0 {
		res.Outcome = router.Outcome{State: router.StateReported, Message: MsgNoBlocks}
		return nil
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int(atrace.AttrBlockCount, len(blocks)))
	log.DebugfContext(ctx, "pagescript %s: running %d block(s)", doc.Path, len(blocks))

	caps := capability.Context{
		App: capability.App{
			Workspace:     r.opts.workspace,
			ScriptsFolder: r.opts.scriptsFolder,
		},
		Notifier: r.opts.notifier,
		Helper: capability.NewHelper(r.store,
			capability.WithPrompter(r.opts.prompter),
			capability.WithWorkspace(r.opts.workspace),
		),
	}
	res.Execution, err = r.opts.executor.Run(ctx, blocks, caps)
	if err != nil {
		return fmt.Errorf("run script: %w", err)
	}
	res.Outcome, err = r.router.Route(ctx, res.Execution, inv)
	if err != nil {
		return fmt.Errorf("route output: %w", err)
	}
	return nil
}

func (r *runner) notify(msg string) {
	if r.opts.notifier != nil && msg != "" {
		r.opts.notifier.Notify(msg, 0)
	}
}

// Close implements Runner.
func (r *runner) Close() error {
	r.closeOnce.Do(func() {
		if r.ownExec != nil {
			r.ownExec.Close()
		}
	})
	return nil
}
