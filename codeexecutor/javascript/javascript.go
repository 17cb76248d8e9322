//
// Tencent is pleased to support the open source community by making trpc-pagescript-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-pagescript-go is licensed under the Apache License Version 2.0.
//
//

// Package javascript runs PageScript blocks on the goja ECMAScript engine.
//
// Every block gets a fresh runtime, so top-level declarations never leak from
// one block into the next. Host operations that may block (dialogs, document
// I/O) run on a worker pool and settle their promises back on the goroutine
// that owns the runtime.
package javascript

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"trpc.group/trpc-go/trpc-pagescript-go/capability"
	"trpc.group/trpc-go/trpc-pagescript-go/codeexecutor"
	"trpc.group/trpc-go/trpc-pagescript-go/log"
	ametric "trpc.group/trpc-go/trpc-pagescript-go/telemetry/metric"
	atrace "trpc.group/trpc-go/trpc-pagescript-go/telemetry/trace"
)

const defaultPoolSize = 8

var _ codeexecutor.CodeExecutor = (*CodeExecutor)(nil)

// CodeExecutor executes script blocks with goja.
type CodeExecutor struct {
	pool     *ants.Pool
	ownsPool bool
	poolSize int
}

// Option configures a CodeExecutor.
type Option func(*CodeExecutor)

// WithPoolSize sets how many host operations may run at once.
func WithPoolSize(size int) Option {
	return func(e *CodeExecutor) {
		if size > 0 {
			e.poolSize = size
		}
	}
}

// WithPool shares an existing pool. The caller keeps ownership and must
// release it after the executor is closed.
func WithPool(pool *ants.Pool) Option {
	return func(e *CodeExecutor) {
		e.pool = pool
	}
}

// New creates a CodeExecutor.
func New(opts ...Option) (*CodeExecutor, error) {
	e := &CodeExecutor{poolSize: defaultPoolSize}
	for _, opt := range opts {
		opt(e)
	}
	if e.pool == nil {
		pool, err := ants.NewPool(e.poolSize)
		if err != nil {
			return nil, fmt.Errorf("create host operation pool: %w", err)
		}
		e.pool = pool
		e.ownsPool = true
	}
	return e, nil
}

// Close releases the worker pool if the executor created it.
func (e *CodeExecutor) Close() {
	if e.ownsPool {
		e.pool.Release()
	}
}

// Run implements codeexecutor.CodeExecutor.
func (e *CodeExecutor) Run(
	ctx context.Context,
	blocks []codeexecutor.CodeBlock,
	caps capability.Context,
) (codeexecutor.ExecutionResult, error) {
	var (
		mode    codeexecutor.OutputMode
		results = make([]codeexecutor.BlockResult, 0, len(blocks))
	)
	for i, block := range blocks {
		if err := ctx.Err(); err != nil {
			return codeexecutor.ExecutionResult{}, err
		}
		res, err := e.runBlock(ctx, i, block, caps, &mode)
		if err != nil {
			return codeexecutor.ExecutionResult{}, err
		}
		results = append(results, res)
	}
	return codeexecutor.ExecutionResult{
		Text:         codeexecutor.JoinOutputs(results),
		DeclaredMode: mode,
		Blocks:       results,
	}, nil
}

// runBlock runs one block to completion. The returned error is non-nil only
// when ctx ended; script failures are folded into the BlockResult.
func (e *CodeExecutor) runBlock(
	ctx context.Context,
	i int,
	block codeexecutor.CodeBlock,
	caps capability.Context,
	mode *codeexecutor.OutputMode,
) (codeexecutor.BlockResult, error) {
	ctx, span := atrace.Tracer.Start(ctx, atrace.SpanBlock)
	span.SetAttributes(attribute.Int(atrace.AttrBlockIndex, i))
	defer span.End()

	start := time.Now()
	s := newSession(ctx, e.pool, caps, mode)
	defer s.close()

	val, runErr := s.call(block.Code)
	// Operations a block started are finished before the next block begins,
	// whether or not the block itself succeeded.
	promise, _ := exportPromise(val, runErr)
	waitErr := s.drain(promise)

	res := codeexecutor.BlockResult{Index: i, Duration: time.Since(start)}
	if ctx.Err() != nil {
		span.SetStatus(codes.Error, ctx.Err().Error())
		return res, ctx.Err()
	}

	var (
		failure  error
		out      string
		ok       bool
		declared codeexecutor.OutputMode
	)
	switch {
	case runErr != nil:
		failure = runErr
	case waitErr != nil:
		failure = waitErr
	case promise != nil && promise.State() == goja.PromiseStateRejected:
		failure = &rejection{value: promise.Result()}
	case promise != nil:
		val = promise.Result()
	}
	if failure == nil {
		out, ok, declared, failure = s.interpret(val)
	}
	if failure != nil {
		msg := s.errorMessage(failure)
		res.Error = msg
		res.Output = codeexecutor.BlockError(i, msg)
		span.SetStatus(codes.Error, msg)
		log.DebugfContext(ctx, "script block %d failed: %s", i+1, msg)
		ametric.RecordBlock(ctx, string(*mode), res.Duration, true)
		return res, nil
	}

	if !ok {
		res.Skipped = true
		ametric.RecordBlock(ctx, string(*mode), res.Duration, false)
		return res, nil
	}
	if declared != "" {
		*mode = declared
		span.SetAttributes(attribute.String(atrace.AttrMode, string(declared)))
	}
	res.Output = out
	ametric.RecordBlock(ctx, string(*mode), res.Duration, false)
	return res, nil
}

// exportPromise returns the promise a block returned, if any.
func exportPromise(val goja.Value, err error) (*goja.Promise, bool) {
	if err != nil || val == nil {
		return nil, false
	}
	p, ok := val.Export().(*goja.Promise)
	return p, ok
}

// interpret converts a settled block value into its contribution. ok is false
// for undefined. declared is non-empty when a structured return carried a
// truthy mode. Conversions run in the runtime, so a throwing toString or a
// value without a primitive form is reported as err.
func (s *session) interpret(val goja.Value) (out string, ok bool, declared codeexecutor.OutputMode, err error) {
	if val == nil || goja.IsUndefined(val) {
		return "", false, "", nil
	}
	target, modeVal := val, goja.Value(nil)
	if ex := s.vm.Try(func() {
		obj, isObj := val.(*goja.Object)
		if !isObj {
			return
		}
		if _, isFn := goja.AssertFunction(obj); isFn {
			return
		}
		content := obj.Get("content")
		if content == nil {
			return
		}
		target = content
		if m := obj.Get("mode"); m != nil && m.ToBoolean() {
			modeVal = m
		}
	}); ex != nil {
		return "", false, "", ex
	}
	if modeVal != nil {
		m, err := s.stringify(modeVal)
		if err != nil {
			return "", false, "", err
		}
		declared = codeexecutor.OutputMode(m)
	}
	if out, err = s.stringify(target); err != nil {
		return "", false, "", err
	}
	return out, true, declared, nil
}

// errNeverSettled reports a promise that nothing can resolve any more.
var errNeverSettled = errors.New("promise never settled")

// rejection carries the reason of a rejected block promise.
type rejection struct {
	value goja.Value
}

func (r *rejection) Error() string {
	return "promise rejected"
}

// msgUnprintable stands in for thrown values that have no string form.
const msgUnprintable = "thrown value cannot be converted to a string"

// errorMessage extracts what a script author would read as err.message.
func (s *session) errorMessage(err error) string {
	var (
		ex  *goja.Exception
		syn *goja.CompilerSyntaxError
		rej *rejection
	)
	switch {
	case errors.As(err, &rej):
		return s.valueMessage(rej.value)
	case errors.As(err, &ex):
		return s.valueMessage(ex.Value())
	case errors.As(err, &syn):
		return syn.Message
	}
	return err.Error()
}

// valueMessage returns the message property of thrown objects and the string
// form of anything else, as String() would produce it in the script.
func (s *session) valueMessage(v goja.Value) string {
	if v == nil {
		return "undefined"
	}
	msgVal := v
	if obj, ok := v.(*goja.Object); ok {
		if ex := s.vm.Try(func() {
			if msg := obj.Get("message"); msg != nil && !goja.IsUndefined(msg) {
				msgVal = msg
			}
		}); ex != nil {
			return msgUnprintable
		}
	}
	str, err := s.stringify(msgVal)
	if err != nil {
		return msgUnprintable
	}
	return strings.TrimSpace(str)
}
