//
// Tencent is pleased to support the open source community by making trpc-pagescript-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-pagescript-go is licensed under the Apache License Version 2.0.
//
//

package javascript

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja/parser"
	"github.com/panjf2000/ants/v2"

	"trpc.group/trpc-go/trpc-pagescript-go/capability"
	"trpc.group/trpc-go/trpc-pagescript-go/codeexecutor"
)

// session owns the runtime of a single block. Only the goroutine that
// created it may touch vm; pool workers hand results back through post.
type session struct {
	ctx     context.Context
	vm      *goja.Runtime
	pool    *ants.Pool
	caps    capability.Context
	mode    *codeexecutor.OutputMode
	str     goja.Callable
	pending int
	stop    func() bool

	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

func newSession(
	ctx context.Context,
	pool *ants.Pool,
	caps capability.Context,
	mode *codeexecutor.OutputMode,
) *session {
	s := &session{
		ctx:   ctx,
		vm:    goja.New(),
		pool:  pool,
		caps:  caps,
		mode:  mode,
		wake:  make(chan struct{}, 1),
	}
	// Captured before any script can reassign the global.
	s.str, _ = goja.AssertFunction(s.vm.Get("String"))
	s.stop = context.AfterFunc(ctx, func() {
		s.vm.Interrupt(ctx.Err())
	})
	return s
}

func (s *session) close() {
	s.stop()
}

// post queues task for the runtime goroutine. Workers never block on it.
func (s *session) post(task func()) {
	s.mu.Lock()
	s.queue = append(s.queue, task)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *session) take() []func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := s.queue
	s.queue = nil
	return tasks
}

// blockName is the file name compile errors are reported under.
const blockName = "block"

// blockHeader opens the function expression a block body is wrapped in. The
// body starts on the same line so reported line numbers match the block.
var blockHeader = "(function(" + strings.Join(capability.Names, ", ") + ") {"

func wrapSource(code string) string {
	return blockHeader + code + "\n})"
}

// shiftHeader moves first-line syntax error columns back by the header
// width so they point into the block body.
func shiftHeader(err error) error {
	var list parser.ErrorList
	if !errors.As(err, &list) {
		return err
	}
	for _, e := range list {
		if e.Position.Line == 1 {
			e.Position.Column = max(e.Position.Column-len(blockHeader), 1)
		}
	}
	return list
}

// call compiles code and invokes it with the capability values.
func (s *session) call(code string) (goja.Value, error) {
	program, err := parser.ParseFile(nil, blockName, wrapSource(code), 0, parser.WithDisableSourceMaps)
	if err != nil {
		return nil, shiftHeader(err)
	}
	prog, err := goja.CompileAST(program, false)
	if err != nil {
		return nil, err
	}
	fnVal, err := s.vm.RunProgram(prog)
	if err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return nil, fmt.Errorf("block did not compile to a function")
	}
	return fn(goja.Undefined(), s.bindings()...)
}

// stringify converts v the way String(v) does in the script.
func (s *session) stringify(v goja.Value) (string, error) {
	res, err := s.str(goja.Undefined(), v)
	if err != nil {
		return "", err
	}
	return res.String(), nil
}

// drain runs completed host operations until the block's promise has settled
// and nothing it started is still outstanding.
func (s *session) drain(promise *goja.Promise) error {
	for {
		settled := promise == nil || promise.State() != goja.PromiseStatePending
		if s.pending == 0 {
			if settled {
				return nil
			}
			return errNeverSettled
		}
		tasks := s.take()
		if len(tasks) == 0 {
			select {
			case <-s.wake:
			case <-s.ctx.Done():
				return s.ctx.Err()
			}
			continue
		}
		for _, task := range tasks {
			task()
		}
	}
}

// async starts work on the pool and returns a promise for its result.
// export converts the result on the runtime goroutine.
func (s *session) async(work func(ctx context.Context) (any, error), export func(any) goja.Value) goja.Value {
	promise, resolve, reject := s.vm.NewPromise()
	settle := func(v any, err error) {
		s.pending--
		if err != nil {
			reject(s.vm.NewGoError(err))
			return
		}
		resolve(export(v))
	}
	s.pending++
	err := s.pool.Submit(func() {
		v, err := work(s.ctx)
		s.post(func() { settle(v, err) })
	})
	if err != nil {
		settle(nil, fmt.Errorf("schedule host operation: %w", err))
	}
	return s.vm.ToValue(promise)
}

// rejected returns a promise already rejected with err.
func (s *session) rejected(err error) goja.Value {
	promise, _, reject := s.vm.NewPromise()
	reject(s.vm.NewGoError(err))
	return s.vm.ToValue(promise)
}

// optionalString reads v as a string, def when absent.
func optionalString(v goja.Value, def string) string {
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return def
	}
	return v.String()
}

// timeout reads a duration given in milliseconds, 0 when absent or invalid.
func timeout(v goja.Value) time.Duration {
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return 0
	}
	n := v.ToFloat()
	if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
		return 0
	}
	return time.Duration(n * float64(time.Millisecond))
}
