// Package executor runs kernel tasks one at a time on a dedicated goroutine.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kilianp07/agvkernel/core/logger"
)

var (
	// ErrKernelRuntime wraps panics raised by a task.
	ErrKernelRuntime = errors.New("kernel runtime failure")
	// ErrStopped is returned for tasks submitted after Stop.
	ErrStopped = errors.New("executor stopped")
)

type task struct {
	fn   func() error
	done chan error
}

// Executor serializes every mutation of kernel state. Tasks run in
// submission order and never concurrently.
type Executor struct {
	tasks chan task
	quit  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
	log   logger.Logger
}

// New starts an executor with the given queue size.
func New(queue int, log logger.Logger) *Executor {
	if queue <= 0 {
		queue = 64
	}
	e := &Executor{
		tasks: make(chan task, queue),
		quit:  make(chan struct{}),
		log:   log,
	}
	e.wg.Add(1)
	go e.loop()
	return e
}

func (e *Executor) loop() {
	defer e.wg.Done()
	for {
		select {
		case t := <-e.tasks:
			err := e.run(t.fn)
			if t.done != nil {
				t.done <- err
			}
		case <-e.quit:
			return
		}
	}
}

func (e *Executor) run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrKernelRuntime, r)
			if e.log != nil {
				e.log.Errorf("task panicked: %v", r)
			}
		}
	}()
	return fn()
}

// Call enqueues fn and waits for its result. Errors returned by fn are
// forwarded unchanged. If ctx ends before fn ran to completion, Call returns
// the context error; fn may still run later. An already ended ctx never
// enqueues fn.
func (e *Executor) Call(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := task{fn: fn, done: make(chan error, 1)}
	select {
	case <-e.quit:
		return ErrStopped
	default:
	}
	select {
	case e.tasks <- t:
	case <-e.quit:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-t.done:
		return err
	case <-e.quit:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CallResult runs fn like Call and returns its value. The value travels
// through a channel filled by fn itself, so a caller whose ctx ended first
// returns the zero value and never touches what fn produces later.
func CallResult[T any](ctx context.Context, e *Executor, fn func() (T, error)) (T, error) {
	out := make(chan T, 1)
	err := e.Call(ctx, func() error {
		v, err := fn()
		out <- v
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return <-out, nil
}

// Submit enqueues fn without waiting. Failures are logged.
func (e *Executor) Submit(fn func() error) error {
	wrapped := func() error {
		err := fn()
		if err != nil && e.log != nil {
			e.log.Warnf("submitted task failed: %v", err)
		}
		return err
	}
	select {
	case <-e.quit:
		return ErrStopped
	default:
	}
	select {
	case e.tasks <- task{fn: wrapped}:
		return nil
	case <-e.quit:
		return ErrStopped
	}
}

// Stop terminates the executor goroutine. Queued tasks that did not start are
// discarded.
func (e *Executor) Stop() {
	e.once.Do(func() {
		close(e.quit)
	})
	e.wg.Wait()
}
