package observer

import (
	"context"
	"log/slog"
	"sync/atomic"

	mapset "github.com/deckarep/golang-set/v2"
	"go.opentelemetry.io/otel"
)

const tracerName = "github.com/2oops/vue-collections/observer"

// Runtime owns every piece of mutable state the reactive core shares: the
// active watcher stack, the scheduler queue, the next-tick callbacks and the
// deep traversal scratch set.
//
// A Runtime must only be used from one goroutine at a time. Run turns it into a
// loop that other goroutines can feed through Submit.
type Runtime struct {
	config Config

	// targets is the stack of watchers currently evaluating. The top is the
	// watcher that reads register with. A nil entry disables tracking.
	targets []*Watcher

	scheduler scheduler

	// next tick
	callbacks []func()
	pending   bool

	// deep traversal
	seen      mapset.Set[uint64]
	seenPtrs  mapset.Set[uintptr]
	traversal int

	paths pathCache

	metrics *metrics

	// loop
	ctx     context.Context
	tasks   chan func()
	running atomic.Bool
}

// NewRuntime creates a runtime with an empty target stack and an idle scheduler.
func NewRuntime(opts ...Option) *Runtime {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.MaxUpdateCount <= 0 {
		config.MaxUpdateCount = DefaultMaxUpdateCount
	}
	if config.TaskQueueSize <= 0 {
		config.TaskQueueSize = DefaultTaskQueueSize
	}
	if config.Tracer == nil {
		config.Tracer = otel.Tracer(tracerName)
	}

	rt := &Runtime{
		config:   config,
		seen:     mapset.NewThreadUnsafeSet[uint64](),
		seenPtrs: mapset.NewThreadUnsafeSet[uintptr](),
		paths:    pathCache{},
		metrics:  newMetrics(config.Registry),
		ctx:      context.Background(),
		tasks:    make(chan func(), config.TaskQueueSize),
	}
	rt.scheduler.init()

	if rt.config.ErrorHandler == nil {
		logger := config.Logger
		rt.config.ErrorHandler = func(err error, owner Owner, info string) {
			logger.Error("observer: error in "+info,
				slog.String("owner", ownerName(owner)),
				slog.String("info", info),
				slog.Any("err", err),
			)
		}
	}
	if rt.config.WarnHandler == nil {
		logger := config.Logger
		rt.config.WarnHandler = func(msg string, owner Owner) {
			logger.Warn("observer: "+msg, slog.String("owner", ownerName(owner)))
		}
	}

	return rt
}

// Config returns a copy of the runtime configuration.
func (rt *Runtime) Config() Config {
	return rt.config
}

// Target returns the watcher currently collecting dependencies, or nil.
func (rt *Runtime) Target() *Watcher {
	if len(rt.targets) == 0 {
		return nil
	}
	return rt.targets[len(rt.targets)-1]
}

// Depth reports how many evaluations are currently nested. It is zero whenever
// no evaluator is running.
func (rt *Runtime) Depth() int {
	return len(rt.targets)
}

func (rt *Runtime) pushTarget(w *Watcher) {
	rt.targets = append(rt.targets, w)
}

func (rt *Runtime) popTarget() {
	last := len(rt.targets) - 1
	rt.targets[last] = nil
	rt.targets = rt.targets[:last]
}

// Untrack runs fn with dependency collection disabled. Reads inside fn register
// with nobody, even when called from inside an evaluator.
func (rt *Runtime) Untrack(fn func()) {
	rt.pushTarget(nil)
	defer rt.popTarget()
	fn()
}
