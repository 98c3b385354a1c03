package threadpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJob_IsFinished(t *testing.T) {
	p := New(2)
	defer func() { require.NoError(t, p.Close(context.Background())) }()

	release := make(chan struct{})
	var ran atomic.Int32
	job := NewJob(WorkFunc(func(*Pool) {
		<-release
		ran.Add(1)
	}))
	assert.False(t, job.IsFinished())

	require.NoError(t, job.QueueInPool(p))
	for range 100 {
		require.False(t, job.IsFinished(), "finished before work returned")
	}

	close(release)
	require.Eventually(t, job.IsFinished, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), ran.Load())
	assert.NoError(t, job.Err())
}

func TestJob_Requeue(t *testing.T) {
	p := New(1)
	defer func() { require.NoError(t, p.Close(context.Background())) }()

	var runs atomic.Int32
	gate := make(chan struct{})
	job := NewJob(WorkFunc(func(*Pool) {
		<-gate
		runs.Add(1)
	}))

	for i := range 3 {
		require.NoError(t, job.QueueInPool(p))
		assert.False(t, job.IsFinished(), "flag reset on requeue, run %d", i)
		gate <- struct{}{}
		require.Eventually(t, job.IsFinished, time.Second, time.Millisecond)
	}
	assert.Equal(t, int32(3), runs.Load())
}

func TestJob_Panic(t *testing.T) {
	p := New(1)
	defer func() { require.NoError(t, p.Close(context.Background())) }()

	job := NewJob(WorkFunc(func(*Pool) { panic("boom") }))
	require.NoError(t, job.QueueInPool(p))
	require.Eventually(t, job.IsFinished, time.Second, time.Millisecond)

	err := job.Err()
	require.Error(t, err)
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "boom", pe.Value)
	assert.Equal(t, 0, p.Metrics().GetStats().Panics, "job keeps the panic to itself")

	// successful rerun clears the error
	job.work = WorkFunc(func(*Pool) {})
	require.NoError(t, job.QueueInPool(p))
	require.Eventually(t, job.IsFinished, time.Second, time.Millisecond)
	assert.NoError(t, job.Err())
}

func TestJob_Errors(t *testing.T) {
	p := New(1)

	t.Run("nil work", func(t *testing.T) {
		assert.ErrorIs(t, NewJob(nil).QueueInPool(p), ErrNilWork)
		var f WorkFunc
		assert.ErrorIs(t, NewJob(f).QueueInPool(p), ErrNilWork)
	})

	t.Run("closed pool", func(t *testing.T) {
		require.NoError(t, p.Close(context.Background()))
		job := NewJob(WorkFunc(func(*Pool) {}))
		err := job.QueueInPool(p)
		require.ErrorIs(t, err, ErrClosed)
		assert.False(t, job.IsFinished())
	})
}

func TestJob_RunInline(t *testing.T) {
	var got *Pool
	job := NewJob(WorkFunc(func(p *Pool) { got = p }))

	p := New(1)
	defer func() { require.NoError(t, p.Close(context.Background())) }()

	job.Run(p)
	assert.True(t, job.IsFinished())
	assert.Same(t, p, got)
}
