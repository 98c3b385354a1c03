// Package threadpool provides a fixed-size worker pool, a Job wrapper tracking completion,
// and ParallelFor running an index range across the pool.
//
// Workers float freely and only interact with the pool when they run out of work. An idle worker
// first tries to take pending work, and if there is none it parks in the idle queue until work
// is handed to it. Submit hands work to a parked worker directly, or queues it when all workers
// are busy. Both operations run under a single pool mutex, so no work item is lost or delivered twice.
//
// # Basic Usage
//
//	p := threadpool.New(runtime.NumCPU())
//	defer p.Close(context.Background())
//
//	err := p.Submit(threadpool.WorkFunc(func(p *threadpool.Pool) {
//	    // do work, submitting more to p if needed
//	}))
//
// Submit never blocks. It returns ErrNilWork for nil work and ErrClosed after Close.
// Close sends a shutdown token to every worker and waits until all of them exit.
// Work queued before Close still runs, in-flight work is never interrupted.
//
// # Jobs
//
// Job wraps work with a finished flag, which can be polled without blocking:
//
//	job := threadpool.NewJob(threadpool.WorkFunc(func(p *threadpool.Pool) { build() }))
//	if err := job.QueueInPool(p); err != nil {
//	    return err
//	}
//	for !job.IsFinished() {
//	    renderFrame()
//	}
//
// A job may be queued again once it reports finished.
//
// # Parallel For
//
// ParallelFor calls a function for each index of a range and returns when all calls are done:
//
//	err := threadpool.ParallelFor(p, 0, len(items), func(i int) {
//	    items[i] = transform(items[i])
//	})
//
// One driver job per worker is queued and the calling goroutine drives as well, so the loop
// completes even when every worker is busy. Indexes are claimed one by one from a shared
// atomic counter. A panic in the function stops claiming new indexes and is returned as *PanicError.
//
// # Options
//
//	p := threadpool.New(4,
//	    threadpool.WithLogger(logger),                // *zap.Logger
//	    threadpool.WithPanicHandler(func(v any) {}), // called for panics escaping work
//	    threadpool.WithMiddleware(middleware.Recovery(nil)),
//	)
//
// # Metrics
//
// The pool collects counts of work dispatched directly to idle workers, queued, executed
// and panicked, plus processing and idle time:
//
//	stats := p.Metrics().GetStats()
//	fmt.Printf("dispatched: %d, queued: %d", stats.Dispatched, stats.Queued)
package threadpool
