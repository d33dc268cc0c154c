package worker

import (
	"github.com/okian/survivor/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithErrorHandler sets the callback receiving failed batches.
func WithErrorHandler(fn func(error)) Option {
	return func(w *InMemoryWorker) {
		if fn != nil {
			w.onError = fn
		}
	}
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithQueueCapacity bounds how many batches wait for a worker.
func WithQueueCapacity(capacity int) ExecutorOption {
	return func(e *Executor) {
		if capacity > 0 {
			e.capacity = capacity
		}
	}
}

// WithExecutorLogger sets the logger handed to the pool.
func WithExecutorLogger(l logger.Logger) ExecutorOption {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}
