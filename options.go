package threadpool

import "go.uber.org/zap"

// Option represents a configuration option for Pool
type Option func(*Pool)

// WithLogger sets the logger. Pool logs lifecycle at debug level and recovered panics at error level.
// Default: no-op logger
func WithLogger(l *zap.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithPanicHandler sets a function called with the value of any panic escaping submitted work.
// The worker recovers the panic and keeps running either way.
// Default: none
func WithPanicHandler(fn func(any)) Option {
	return func(p *Pool) {
		p.panicHandler = fn
	}
}

// WithMiddleware adds middlewares wrapping every submitted work. Middlewares are applied
// in the same order as they are provided, the first one is the outermost wrapper.
// Default: none
func WithMiddleware(mw ...Middleware) Option {
	return func(p *Pool) {
		p.middlewares = append(p.middlewares, mw...)
	}
}
