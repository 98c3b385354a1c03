package threadpool

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParallelFor calls fn for every index in [start, end) and returns when all calls are done.
//
// One driver job per pool thread is queued, and the calling goroutine drives too, so the loop
// makes progress even if every worker is busy, and ParallelFor can be called from inside work.
// Drivers claim indexes one at a time from a shared counter; each index is claimed exactly once,
// in increasing order, while completion order is not defined.
//
// A panic in fn stops the run: indexes claimed after it are skipped and ParallelFor returns
// a *PanicError for the first panic. fn is never running once ParallelFor has returned.
// If the pool is closed the whole range is processed by the calling goroutine.
func ParallelFor(p *Pool, start, end int, fn func(i int)) error {
	if start >= end {
		return nil
	}
	if fn == nil {
		return ErrNilFunc
	}

	r := newForRun(start, end, fn)
	log := p.logger
	if log.Core().Enabled(zapcore.DebugLevel) {
		log = log.With(zap.String("run", uuid.NewString()))
		log.Debug("parallel for started", zap.Int("start", start), zap.Int("end", end), zap.Int("threads", p.Threads()))
	}

	for range p.Threads() {
		if err := NewJob(forDriver{run: r}).QueueInPool(p); err != nil {
			log.Debug("driver not queued, running in caller", zap.Error(err))
			break
		}
	}

	r.drive()
	<-r.joined

	if f := r.failure.Load(); f != nil {
		log.Warn("parallel for aborted", zap.Int("start", start), zap.Int("end", end), zap.Error(f))
		return fmt.Errorf("parallel for [%d, %d): %w", start, end, f)
	}
	log.Debug("parallel for completed")
	return nil
}

// forRun is the state shared by all drivers of one ParallelFor call
type forRun struct {
	first int64
	units int64
	fn    func(i int)

	cursor   atomic.Int64 // next unit to claim, grows past units as drivers stop
	finished atomic.Int64 // units done or skipped
	aborted  atomic.Bool
	failure  atomic.Pointer[PanicError]
	joined   chan struct{} // closed by the driver finishing the last unit
}

func newForRun(start, end int, fn func(i int)) *forRun {
	return &forRun{
		first:  int64(start),
		units:  int64(end) - int64(start),
		fn:     fn,
		joined: make(chan struct{}),
	}
}

// drive claims and runs units until none are left
func (r *forRun) drive() {
	for {
		idx := r.cursor.Add(1) - 1
		if idx >= r.units {
			return
		}
		r.runUnit(idx)
		if r.finished.Add(1) == r.units {
			close(r.joined)
		}
	}
}

func (r *forRun) runUnit(idx int64) {
	if r.aborted.Load() {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.failure.CompareAndSwap(nil, newPanicError(rec))
			r.aborted.Store(true)
		}
	}()
	r.fn(int(r.first + idx))
}

// forDriver is the work queued to the pool for a ParallelFor run
type forDriver struct {
	run *forRun
}

func (d forDriver) Run(*Pool) { d.run.drive() }
