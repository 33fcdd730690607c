package loop

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPump_EventsBeforeIdle(t *testing.T) {
	l := New()
	var order []string

	l.Schedule(func() { order = append(order, "idle") })
	l.Post(func() {
		order = append(order, "a")
		l.Post(func() { order = append(order, "b") })
	})

	n := l.Pump()
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"a", "b", "idle"}, order)
	assert.Equal(t, 0, l.Pending())
}

func TestPump_TaskScheduledFromIdleWaitsForNextTurn(t *testing.T) {
	l := New()
	ran := 0
	l.Schedule(func() {
		l.Schedule(func() { ran++ })
	})

	l.Pump()
	assert.Equal(t, 0, ran, "nested idle task must not run in the same turn")
	l.Pump()
	assert.Equal(t, 1, ran)
}

func TestTask_Cancel(t *testing.T) {
	l := New()
	ran := false
	task := l.Schedule(func() { ran = true })
	require.True(t, task.Pending())

	assert.True(t, task.Cancel())
	assert.False(t, task.Cancel())
	assert.False(t, task.Pending())

	l.Pump()
	assert.False(t, ran)
}

func TestTask_NotPendingAfterRun(t *testing.T) {
	l := New()
	task := l.Schedule(func() {})
	l.Pump()
	assert.False(t, task.Pending())
	assert.False(t, task.Cancel())
}

func TestPump_RecoversPanics(t *testing.T) {
	l := New()
	after := false
	l.Post(func() { panic("boom") })
	l.Post(func() { after = true })

	l.Pump()
	assert.True(t, after)
}

func TestCall_RunsOnLoop(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = l.Run(ctx)
	}()

	counter := 0
	for i := 0; i < 10; i++ {
		err := l.Call(ctx, func() error {
			counter++
			return nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 10, counter)

	want := errors.New("failed")
	assert.ErrorIs(t, l.Call(ctx, func() error { return want }), want)

	err := l.Call(ctx, func() error { panic("bad") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")

	cancel()
	wg.Wait()
	assert.ErrorIs(t, l.Call(context.Background(), func() error { return nil }), ErrClosed)
}

func TestCall_ContextCancelled(t *testing.T) {
	l := New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// Nobody drives the loop, so the call can only end through ctx.
	err := l.Call(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSchedule_AfterClose(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, l.Run(ctx))

	task := l.Schedule(func() {})
	assert.False(t, task.Pending())
	assert.False(t, l.Post(func() {}))
}
