// Package middleware provides common middleware implementations for the threadpool package.
package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/go-pkgz/threadpool"
)

// Recovery returns a middleware that recovers from panics in work and drops them.
// If handler is provided, it will be called with the panic value.
// A Job is the innermost wrapper of its work and keeps its own panic in Job.Err,
// so Recovery never sees panics of jobs or of ParallelFor drivers.
func Recovery(handler func(any)) threadpool.Middleware {
	return func(next threadpool.Work) threadpool.Work {
		return threadpool.WorkFunc(func(p *threadpool.Pool) {
			defer func() {
				if r := recover(); r != nil && handler != nil {
					handler(r)
				}
			}()
			next.Run(p)
		})
	}
}

// Retry returns a middleware that reruns panicking work up to maxAttempts times
// with exponential backoff between attempts, starting at baseDelay with 20% jitter.
// When all attempts panic, it panics with an error wrapping the last one.
// A panicking Job is not rerun: the job recovers the panic itself and reports it in Job.Err.
// The same goes for ParallelFor, which stops at the first panic of its func.
func Retry(maxAttempts int, baseDelay time.Duration) threadpool.Middleware {
	if maxAttempts <= 0 {
		maxAttempts = 3 // default to 3 attempts
	}
	if baseDelay <= 0 {
		baseDelay = time.Second // default to 1 second
	}

	return func(next threadpool.Work) threadpool.Work {
		return threadpool.WorkFunc(func(p *threadpool.Pool) {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = baseDelay
			bo.RandomizationFactor = 0.2
			bo.Multiplier = 2

			op := func() (struct{}, error) { return struct{}{}, runSafe(next, p) }
			_, err := backoff.Retry(context.Background(), op,
				backoff.WithBackOff(bo), backoff.WithMaxTries(uint(maxAttempts))) //nolint:gosec // positive
			if err != nil {
				panic(fmt.Errorf("failed after %d attempts: %w", maxAttempts, err))
			}
		})
	}
}

// RateLimit returns a middleware that waits for the limiter before running work.
// Waiting happens on the worker goroutine, so a slow limiter holds the worker.
func RateLimit(limiter *rate.Limiter) threadpool.Middleware {
	return func(next threadpool.Work) threadpool.Work {
		return threadpool.WorkFunc(func(p *threadpool.Pool) {
			if err := limiter.Wait(context.Background()); err != nil {
				panic(fmt.Errorf("rate limit: %w", err))
			}
			next.Run(p)
		})
	}
}

// Logging returns a middleware that logs each work run with its duration at debug level
func Logging(logger *zap.Logger) threadpool.Middleware {
	return func(next threadpool.Work) threadpool.Work {
		return threadpool.WorkFunc(func(p *threadpool.Pool) {
			st := time.Now()
			defer func() {
				logger.Debug("work completed", zap.Duration("duration", time.Since(st)))
			}()
			next.Run(p)
		})
	}
}

// runSafe runs work, converting a panic to an error
func runSafe(w threadpool.Work, p *threadpool.Pool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch rt := r.(type) {
			case error:
				err = fmt.Errorf("panic recovered: %w", rt)
			default:
				err = fmt.Errorf("panic recovered: %v", rt)
			}
		}
	}()
	w.Run(p)
	return nil
}
