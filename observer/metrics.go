package observer

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "observer"

// metrics holds the scheduler's Prometheus collectors. A nil *metrics records
// nothing.
type metrics struct {
	flushesTotal   prometheus.Counter
	watcherRuns    prometheus.Counter
	flushDuration  prometheus.Histogram
	watchersQueued prometheus.Counter
	infiniteLoops  prometheus.Counter
	errorsTotal    *prometheus.CounterVec
}

// newMetrics registers the collectors with reg. It returns nil when reg is nil.
func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}
	factory := promauto.With(reg)

	return &metrics{
		flushesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "flushes_total",
			Help:      "Total number of scheduler flushes",
		}),
		watcherRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "watcher_runs_total",
			Help:      "Total number of watcher runs performed by flushes",
		}),
		flushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "flush_duration_seconds",
			Help:      "Scheduler flush duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		watchersQueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "watchers_queued_total",
			Help:      "Total number of watchers added to the scheduler queue",
		}),
		infiniteLoops: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "infinite_loops_total",
			Help:      "Total number of flushes aborted by the update limit",
		}),
		errorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "errors_total",
			Help:      "Total number of errors reported through the runtime",
		}, []string{"kind"}),
	}
}

func (m *metrics) flushed(runs int, d time.Duration) {
	if m == nil {
		return
	}
	m.flushesTotal.Inc()
	m.watcherRuns.Add(float64(runs))
	m.flushDuration.Observe(d.Seconds())
}

func (m *metrics) watcherQueued() {
	if m == nil {
		return
	}
	m.watchersQueued.Inc()
}

func (m *metrics) cycleDetected() {
	if m == nil {
		return
	}
	m.infiniteLoops.Inc()
}

func (m *metrics) errorReported(err error) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(errorKind(err)).Inc()
}

// errorKind maps err to a low-cardinality label value.
func errorKind(err error) string {
	var (
		werr *WatcherError
		perr *PanicError
	)
	switch {
	case errors.Is(err, ErrInfiniteUpdate):
		return "cycle"
	case errors.As(err, &werr):
		return string(werr.Phase)
	case errors.As(err, &perr):
		return "panic"
	}
	return "other"
}
