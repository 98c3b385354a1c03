package threadpool

import (
	"fmt"
	"runtime/debug"
	"sync/atomic"
)

// Job wraps work with a finished flag, so the submitter can poll for completion without blocking.
// A job can be queued again once IsFinished reports true, never while a previous run may still be executing.
type Job struct {
	work     Work
	finished atomic.Bool
	err      atomic.Pointer[PanicError]
}

// NewJob makes a job for the given work
func NewJob(w Work) *Job {
	return &Job{work: w}
}

// IsFinished reports whether the last queued run has completed. Never blocks.
func (j *Job) IsFinished() bool {
	return j.finished.Load()
}

// Err returns the panic of the last run, if it panicked
func (j *Job) Err() error {
	if e := j.err.Load(); e != nil {
		return e
	}
	return nil
}

// QueueInPool resets the finished flag and submits the job to p.
// On error the job is not queued and stays unfinished.
func (j *Job) QueueInPool(p *Pool) error {
	if j == nil || isNilWork(j.work) {
		return ErrNilWork
	}
	j.finished.Store(false)
	j.err.Store(nil)
	if err := p.Submit(j); err != nil {
		return fmt.Errorf("queue job: %w", err)
	}
	return nil
}

// Run executes the wrapped work and marks the job finished.
// A panic is kept as the job error, the job is marked finished regardless.
func (j *Job) Run(p *Pool) {
	defer j.finished.Store(true)
	defer func() {
		if r := recover(); r != nil {
			j.err.Store(newPanicError(r))
		}
	}()
	j.work.Run(p)
}

// PanicError is a panic recovered from work
type PanicError struct {
	Value any
	Stack []byte
}

func newPanicError(v any) *PanicError {
	return &PanicError{Value: v, Stack: debug.Stack()}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic recovered: %v", e.Value)
}

// Unwrap returns the panic value if it is an error
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
