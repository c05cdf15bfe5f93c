package observer

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxUpdateCount is how many times a single watcher may re-queue itself
// within one flush before the flush is abandoned as a runaway update cycle.
const DefaultMaxUpdateCount = 100

// DefaultTaskQueueSize bounds the number of tasks Submit can buffer for Run.
const DefaultTaskQueueSize = 256

// ErrorHandler receives every contained evaluator, callback and scheduler error.
// info describes where the error happened, e.g. `callback for watcher "a.b"`.
type ErrorHandler func(err error, owner Owner, info string)

// WarnHandler receives non-fatal diagnostics such as malformed watch paths.
type WarnHandler func(msg string, owner Owner)

// Config holds the runtime configuration.
type Config struct {
	// Logger backs the default error and warn handlers.
	// Default: slog.Default()
	Logger *slog.Logger

	// ErrorHandler is the centralized error handler.
	// Default: logs at error level through Logger.
	ErrorHandler ErrorHandler

	// WarnHandler is the diagnostic channel.
	// Default: logs at warn level through Logger.
	WarnHandler WarnHandler

	// MaxUpdateCount is the per-flush re-trigger bound of a single watcher.
	// Default: DefaultMaxUpdateCount
	MaxUpdateCount int

	// Async defers flushes to the next tick. When false QueueWatcher flushes
	// synchronously.
	// Default: true
	Async bool

	// Registry receives the scheduler metrics. Nil disables metrics.
	Registry prometheus.Registerer

	// Tracer starts one span per flush.
	// Default: the global provider's tracer
	Tracer trace.Tracer

	// TaskQueueSize is the buffer of the Run loop's task channel.
	// Default: DefaultTaskQueueSize
	TaskQueueSize int
}

// Option configures a Runtime.
type Option func(*Config)

// WithLogger sets the logger used by the default handlers.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithErrorHandler replaces the centralized error handler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithWarnHandler replaces the diagnostic channel.
func WithWarnHandler(h WarnHandler) Option {
	return func(c *Config) {
		c.WarnHandler = h
	}
}

// WithMaxUpdateCount sets the runaway update bound.
func WithMaxUpdateCount(n int) Option {
	return func(c *Config) {
		c.MaxUpdateCount = n
	}
}

// WithAsync toggles deferred flushing.
func WithAsync(async bool) Option {
	return func(c *Config) {
		c.Async = async
	}
}

// WithRegistry enables scheduler metrics on the given registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// WithTracer sets the tracer used for flush spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Config) {
		c.Tracer = tracer
	}
}

// WithTaskQueueSize sets the Run loop's task buffer.
func WithTaskQueueSize(n int) Option {
	return func(c *Config) {
		c.TaskQueueSize = n
	}
}

func defaultConfig() Config {
	return Config{
		Logger:         slog.Default(),
		MaxUpdateCount: DefaultMaxUpdateCount,
		Async:          true,
		TaskQueueSize:  DefaultTaskQueueSize,
	}
}
