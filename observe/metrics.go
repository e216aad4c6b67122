package observe

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/alt-coder/pocketflow-go/v2/core"
)

// Metrics is a core.Observer that records prometheus metrics.
type Metrics struct {
	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	retriesTotal *prometheus.CounterVec
	fallbacks    *prometheus.CounterVec
	warnings     *prometheus.CounterVec
}

// NewMetrics registers the engine metrics with reg under namespace. A nil
// reg uses prometheus.DefaultRegisterer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_runs_total",
				Help:      "Total number of node and flow runs",
			},
			[]string{"node", "action", "status"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "node_run_duration_seconds",
				Help:      "Node and flow run duration in seconds",
				Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"node"},
		),
		retriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_retries_total",
				Help:      "Total number of failed exec attempts that were retried",
			},
			[]string{"node"},
		),
		fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_fallbacks_total",
				Help:      "Total number of exec fallbacks",
			},
			[]string{"node"},
		),
		warnings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graph_warnings_total",
				Help:      "Total number of graph warnings by kind",
			},
			[]string{"node", "kind"},
		),
	}
}

// OnEvent implements core.Observer.
func (m *Metrics) OnEvent(_ context.Context, ev core.Event) {
	switch ev.Kind {
	case core.EventRunFinished:
		status := "success"
		if ev.Err != nil {
			status = "error"
		}
		m.runsTotal.WithLabelValues(ev.Node, string(ev.Action), status).Inc()
		m.runDuration.WithLabelValues(ev.Node).Observe(ev.Duration.Seconds())
	case core.EventRetry:
		m.retriesTotal.WithLabelValues(ev.Node).Inc()
	case core.EventFallback:
		m.fallbacks.WithLabelValues(ev.Node).Inc()
	case core.EventSuccessorOverwritten, core.EventUnmatchedAction, core.EventSuccessorsIgnored:
		m.warnings.WithLabelValues(ev.Node, string(ev.Kind)).Inc()
	}
}
