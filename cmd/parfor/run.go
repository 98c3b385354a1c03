package main

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/go-pkgz/threadpool"
	"github.com/go-pkgz/threadpool/metrics"
)

type result struct {
	Primes  int64
	Chunks  int // jobs completed in jobs mode
	Elapsed time.Duration
	Stats   metrics.Stats
}

const chunksKey = "chunks"

// run counts primes in the configured range with a fresh pool
func run(cfg Config, logger *zap.Logger) (res result, err error) {
	p := threadpool.New(cfg.Threads, threadpool.WithLogger(logger))
	defer func() {
		if e := p.Close(context.Background()); e != nil && err == nil {
			err = fmt.Errorf("close pool: %w", e)
		}
		res.Stats = p.Metrics().GetStats()
	}()

	st := time.Now()
	switch cfg.Mode {
	case modeSequential:
		for i := cfg.Start; i < cfg.End; i++ {
			if isPrime(i) {
				res.Primes++
			}
		}
	case modeParallel:
		var count atomic.Int64
		if err := threadpool.ParallelFor(p, cfg.Start, cfg.End, func(i int) {
			if isPrime(i) {
				count.Add(1)
			}
		}); err != nil {
			return res, err
		}
		res.Primes = count.Load()
	case modeJobs:
		if res.Primes, err = countWithJobs(p, cfg); err != nil {
			return res, err
		}
		res.Chunks = p.Metrics().Get(chunksKey)
	default:
		return res, fmt.Errorf("unknown mode %q", cfg.Mode)
	}
	res.Elapsed = time.Since(st)
	return res, nil
}

// countWithJobs splits the range into chunks, queues a job per chunk and polls them
func countWithJobs(p *threadpool.Pool, cfg Config) (int64, error) {
	size := cfg.End - cfg.Start
	if size <= 0 {
		return 0, nil
	}
	chunks := min(cfg.Chunks, size)
	step := (size + chunks - 1) / chunks

	var count atomic.Int64
	jobs := make([]*threadpool.Job, 0, chunks)
	for lo := cfg.Start; lo < cfg.End; lo += step {
		hi := min(lo+step, cfg.End)
		job := threadpool.NewJob(threadpool.WorkFunc(func(p *threadpool.Pool) {
			var n int64
			for i := lo; i < hi; i++ {
				if isPrime(i) {
					n++
				}
			}
			count.Add(n)
			p.Metrics().Inc(chunksKey)
		}))
		if err := job.QueueInPool(p); err != nil {
			return 0, err
		}
		jobs = append(jobs, job)
	}

	for _, job := range jobs {
		for !job.IsFinished() {
			runtime.Gosched()
		}
		if err := job.Err(); err != nil {
			return 0, err
		}
	}
	return count.Load(), nil
}

func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 {
		return n == 2
	}
	for d := 3; d*d <= n; d += 2 {
		if n%d == 0 {
			return false
		}
	}
	return true
}
