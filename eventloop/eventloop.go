// Package eventloop runs DOM work on one goroutine. Host pages are
// single-threaded: observer callbacks, event handlers and timer steps
// each run to completion before the next starts. Loop makes that
// assumption explicit for the Go side.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrClosed is returned by Do once the loop has stopped.
var ErrClosed = errors.New("eventloop: closed")

// Task is a unit of DOM work.
type Task func(ctx context.Context)

// Executor serialises tasks. Do must not be called from inside a task.
type Executor interface {
	// Post enqueues t without waiting for it.
	Post(t Task)
	// Do runs fn on the executor and waits for its result.
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Loop is a single-goroutine Executor.
type Loop struct {
	tasks  chan Task
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

// New creates a Loop with a task queue of the given size. Default: 256.
func New(size int, logger *slog.Logger) *Loop {
	if size <= 0 {
		size = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		tasks:  make(chan Task, size),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Run processes tasks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	defer l.once.Do(func() { close(l.done) })
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-l.tasks:
			l.run(ctx, t)
		}
	}
}

// Post enqueues t. It drops t when the loop has stopped.
func (l *Loop) Post(t Task) {
	select {
	case <-l.done:
		l.logger.Warn("eventloop: task dropped, loop closed")
	case l.tasks <- t:
	}
}

// Do runs fn on the loop and returns its error.
func (l *Loop) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	result := make(chan error, 1)
	task := func(ctx context.Context) {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("eventloop: panic: %v", r)
			}
			result <- err
		}()
		err = fn(ctx)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrClosed
	case l.tasks <- task:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrClosed
	case err := <-result:
		return err
	}
}

// run executes one task. A panicking task is logged and the loop keeps
// going.
func (l *Loop) run(ctx context.Context, t Task) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("eventloop: task panicked", "panic", r)
		}
	}()
	t(ctx)
}

// Inline runs tasks on the caller's goroutine. Callers must not use it
// from more than one goroutine at a time.
type Inline struct {
	Ctx context.Context
}

func (in Inline) Post(t Task) {
	ctx := in.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	t(ctx)
}

func (in Inline) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}
