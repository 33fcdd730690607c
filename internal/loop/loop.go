// Package loop implements the single-threaded cooperative event loop the data
// browser runs on.
//
// Two queues feed the loop. Posted functions are events: they run in FIFO
// order, and functions posted while the queue drains run in the same turn.
// Scheduled tasks are idle work: they run once per turn after the event queue
// is empty, and a task scheduled from inside an idle task waits for the next
// turn. Deferred destruction uses idle tasks so it never runs while a
// notification handler that caused it is still on the stack.
//
// Post, Schedule and Call are safe to call from any goroutine. Pump and Run
// must be driven by one goroutine, which is the only goroutine allowed to
// touch state owned by the loop.
package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Call when the loop has stopped.
var ErrClosed = errors.New("loop: closed")

const (
	taskPending int32 = iota
	taskDone
	taskCancelled
)

// Task is a handle to a scheduled idle task.
type Task struct {
	fn    func()
	state atomic.Int32
}

// Pending reports whether the task has neither run nor been cancelled.
func (t *Task) Pending() bool {
	return t.state.Load() == taskPending
}

// Cancel prevents a pending task from running. It reports whether the task
// was still pending.
func (t *Task) Cancel() bool {
	return t.state.CompareAndSwap(taskPending, taskCancelled)
}

// Loop is a cooperative event loop. The zero value is not usable; use New.
type Loop struct {
	logger *slog.Logger

	mu     sync.Mutex
	posted []func()
	idle   []*Task
	closed bool
	signal chan struct{}
	done   chan struct{}
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger used to report recovered task panics.
func WithLogger(l *slog.Logger) Option {
	return func(lp *Loop) {
		lp.logger = l
	}
}

// New creates an empty loop.
func New(opts ...Option) *Loop {
	l := &Loop{
		logger: slog.Default(),
		posted: make([]func(), 0, 64),
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Post enqueues fn as an event. It returns false if the loop is closed.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.posted = append(l.posted, fn)
	l.wake()
	return true
}

// Schedule enqueues fn as an idle task for the next turn.
func (l *Loop) Schedule(fn func()) *Task {
	t := &Task{fn: fn}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		t.state.Store(taskCancelled)
		return t
	}
	l.idle = append(l.idle, t)
	l.wake()
	return t
}

// wake signals availability without blocking; the buffer of one coalesces
// signals. Callers hold l.mu.
func (l *Loop) wake() {
	select {
	case l.signal <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued events and idle tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.posted) + len(l.idle)
}

// Pump runs one turn: every posted event, then the idle tasks that were queued
// when the event queue ran dry. It returns how many functions ran.
func (l *Loop) Pump() int {
	n := 0
	for {
		fn, ok := l.nextPosted()
		if !ok {
			break
		}
		l.run(fn)
		n++
	}

	l.mu.Lock()
	idle := l.idle
	l.idle = nil
	l.mu.Unlock()

	for _, t := range idle {
		if !t.state.CompareAndSwap(taskPending, taskDone) {
			continue
		}
		l.run(t.fn)
		n++
	}
	return n
}

func (l *Loop) nextPosted() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.posted) == 0 {
		return nil, false
	}
	fn := l.posted[0]
	l.posted[0] = nil
	l.posted = l.posted[1:]
	if len(l.posted) == 0 {
		l.posted = l.posted[:0:0]
	}
	return fn, true
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("loop: task panicked", slog.String("panic", fmt.Sprint(r)))
		}
	}()
	fn()
}

// Run drives the loop until ctx is cancelled, then closes it and drains what
// is left so that Call waiters are released.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	for {
		l.Pump()
		select {
		case <-ctx.Done():
			l.mu.Lock()
			l.closed = true
			l.mu.Unlock()
			l.Pump()
			return nil
		case <-l.signal:
		}
	}
}

// Call runs fn on the loop and waits for it to finish. It must not be called
// from the loop goroutine. A panic inside fn is returned as an error.
func (l *Loop) Call(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	posted := l.Post(func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("loop: call panicked: %v", r)
			}
			result <- err
		}()
		err = fn()
	})
	if !posted {
		return ErrClosed
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		select {
		case err := <-result:
			return err
		default:
			return ErrClosed
		}
	}
}
