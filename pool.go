package threadpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/go-pkgz/threadpool/metrics"
)

var (
	// ErrNilWork returned by Submit for nil work. Nil is reserved for the internal shutdown token.
	ErrNilWork = errors.New("nil work submitted")
	// ErrClosed returned by Submit once Close has been called.
	ErrClosed = errors.New("pool closed")
	// ErrNilFunc returned by ParallelFor for a nil iteration func.
	ErrNilFunc = errors.New("nil iteration func")
)

// Work is the interface that wraps the Run method.
// Run gets the pool executing it, so work can submit more work.
type Work interface {
	Run(p *Pool)
}

// WorkFunc is an adapter to allow the use of ordinary functions as Work.
type WorkFunc func(p *Pool)

// Run calls f(p).
func (f WorkFunc) Run(p *Pool) { f(p) }

// Middleware wraps work and adds functionality
type Middleware func(Work) Work

// Pool is a fixed set of worker goroutines sharing a pending queue.
// Submitted work goes directly to a parked worker if there is one, otherwise it waits in the queue.
// Both the queue and the list of parked workers are guarded by a single mutex.
type Pool struct {
	threads int

	mu      sync.Mutex
	pending queue[Work]    // FIFO of work waiting for a worker, nil entry is a shutdown token
	idle    queue[*worker] // FIFO of parked workers
	closing bool

	countdown atomic.Int32  // workers yet to acknowledge shutdown
	joined    chan struct{} // closed by the last worker acknowledging shutdown
	live      atomic.Int32  // worker goroutines not returned yet
	eg        errgroup.Group
	closeOnce sync.Once

	logger       *zap.Logger
	panicHandler func(any)
	middlewares  []Middleware
	metrics      *metrics.Value
}

// New creates a pool and starts threads workers right away.
// Threads below 1 is treated as 1.
func New(threads int, opts ...Option) *Pool {
	if threads < 1 {
		threads = 1
	}

	p := &Pool{
		threads: threads,
		joined:  make(chan struct{}),
		logger:  zap.NewNop(),
		metrics: metrics.New(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.countdown.Store(int32(threads)) //nolint:gosec // thread count fits int32
	p.live.Store(int32(threads))      //nolint:gosec // thread count fits int32
	for id := range threads {
		w := &worker{id: id, wake: make(chan Work, 1)}
		p.eg.Go(p.workerProc(w))
	}
	p.logger.Debug("pool started", zap.Int("threads", threads))
	return p
}

// Submit work to the pool. It never blocks: the work is either handed to a parked worker
// or appended to the pending queue. Returns ErrNilWork for nil work and ErrClosed after Close.
func (p *Pool) Submit(w Work) error {
	if isNilWork(w) {
		return ErrNilWork
	}

	// apply middlewares from last to first, so the first one is outermost
	for i := len(p.middlewares) - 1; i >= 0; i-- {
		w = p.middlewares[i](w)
	}
	return p.submit(w)
}

// submit delivers work or, for nil w, a shutdown token.
// Taking an idle worker and deciding between handoff and enqueue happen in one critical section.
func (p *Pool) submit(w Work) error {
	p.mu.Lock()
	if w != nil && p.closing {
		p.mu.Unlock()
		return ErrClosed
	}

	if p.idle.Len() == 0 {
		p.pending.Push(w)
		if w != nil {
			p.metrics.IncQueued()
		}
		p.mu.Unlock()
		return nil
	}

	wk := p.idle.Pop()
	if w != nil {
		p.metrics.IncDispatched()
	}
	p.mu.Unlock()

	wk.wake <- w // never blocks, the worker was parked and its slot is empty
	return nil
}

// Close shuts the pool down. It sends one shutdown token per worker and waits until
// every worker has acknowledged it and returned. Work already queued runs before the tokens.
// In-flight work is never interrupted; ctx only limits how long the caller waits.
// Close can be called many times, shutdown happens once and every call waits for it.
func (p *Pool) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closing = true
		p.mu.Unlock()

		p.logger.Debug("pool shutting down", zap.Int("threads", p.threads))
		for range p.threads {
			_ = p.submit(nil) // tokens bypass the closing check
		}
	})

	// joined wins over a done ctx, a pool already shut down always reports success
	select {
	case <-p.joined:
	default:
		select {
		case <-p.joined:
		case <-ctx.Done():
			return fmt.Errorf("wait for workers: %w", ctx.Err())
		}
	}

	if err := p.eg.Wait(); err != nil {
		return fmt.Errorf("workers failed: %w", err)
	}
	return nil
}

// Threads returns the number of workers
func (p *Pool) Threads() int {
	return p.threads
}

// Idle returns the number of currently parked workers
func (p *Pool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idle.Len()
}

// Pending returns the number of queued items not picked up by workers yet
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending.Len()
}

// Live returns the number of worker goroutines which haven't exited
func (p *Pool) Live() int {
	return int(p.live.Load())
}

// Metrics returns pool metrics
func (p *Pool) Metrics() *metrics.Value {
	return p.metrics
}

// isNilWork detects nil interfaces and nil values of the package's own Work types.
// Typed nil pointers of other Work implementations are not detected.
func isNilWork(w Work) bool {
	switch v := w.(type) {
	case nil:
		return true
	case WorkFunc:
		return v == nil
	case *Job:
		return v == nil
	}
	return false
}
