package threadpool

import (
	"go.uber.org/zap"

	"github.com/go-pkgz/threadpool/metrics"
)

// worker is a single pool goroutine.
// wake has room for exactly one delivery, made only while the worker sits in the idle queue.
type worker struct {
	id   int
	wake chan Work
}

// workerProc returns the worker loop: take work from the queue or park until some is handed over,
// exit on the shutdown token.
func (p *Pool) workerProc(w *worker) func() error {
	return func() error {
		defer p.live.Add(-1)
		for {
			work := p.nextWork(w)
			if work == nil {
				p.logger.Debug("worker stopped", zap.Int("worker", w.id))
				if p.countdown.Add(-1) == 0 {
					close(p.joined)
				}
				return nil
			}
			p.execute(w, work)
		}
	}
}

// nextWork dequeues pending work, or registers w as idle and waits for a handoff.
func (p *Pool) nextWork(w *worker) Work {
	p.mu.Lock()
	if p.pending.Len() > 0 {
		work := p.pending.Pop()
		p.mu.Unlock()
		return work
	}
	p.idle.Push(w)
	p.mu.Unlock()

	idleEnd := p.metrics.StartTimer(metrics.DurationIdle)
	work := <-w.wake
	idleEnd()
	return work
}

// execute runs work, recovering a panic so the worker survives it
func (p *Pool) execute(w *worker, work Work) {
	procEnd := p.metrics.StartTimer(metrics.DurationProc)
	defer func() {
		procEnd()
		if r := recover(); r != nil {
			p.metrics.IncPanics()
			p.logger.Error("work panicked", zap.Int("worker", w.id), zap.Any("panic", r), zap.Stack("stack"))
			if p.panicHandler != nil {
				p.panicHandler(r)
			}
			return
		}
		p.metrics.IncExecuted()
	}()
	work.Run(p)
}
