// Package metrics instruments the workflow engine with Prometheus
// counters, histograms, and gauges: node executions by kind and outcome,
// per-node duration, and the size of the most recent dispatch matrix.
// Where the teacher's pkg/metrics queried an already-running Prometheus
// server for aggregated story metrics, this package is the emitting side —
// the workflow engine has no upstream metrics source of its own to query.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/iota-uz/foundry/internal/graph"
)

// Recorder implements graph.Observer and exposes the dispatch-side gauges
// separately, so callers outside the engine loop (the dispatch resolver)
// can report without needing a WorkflowState.
type Recorder struct {
	nodeExecutions  *prometheus.CounterVec
	nodeDuration    *prometheus.HistogramVec
	dispatchReady   prometheus.Gauge
	dispatchBlocked prometheus.Gauge
	dispatchMatrix  prometheus.Gauge
}

// NewRecorder registers its collectors against reg and returns the
// Recorder. Passing prometheus.NewRegistry() per process keeps tests free
// of the global default registry's cross-test state.
func NewRecorder(reg *prometheus.Registry) *Recorder {
	r := &Recorder{
		nodeExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "graph_node_executions_total",
			Help: "Count of node executions by kind and outcome.",
		}, []string{"kind", "outcome"}),
		nodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "graph_node_duration_seconds",
			Help:    "Node execution duration in seconds, by kind.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		dispatchReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "graph_dispatch_ready_issues",
			Help: "Number of issues the last dispatch run judged ready to dispatch.",
		}),
		dispatchBlocked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "graph_dispatch_blocked_issues",
			Help: "Number of issues the last dispatch run judged blocked.",
		}),
		dispatchMatrix: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "graph_dispatch_matrix_size",
			Help: "Number of entries emitted in the last dispatch matrix, after maxConcurrent bounding.",
		}),
	}

	reg.MustRegister(r.nodeExecutions, r.nodeDuration, r.dispatchReady, r.dispatchBlocked, r.dispatchMatrix)
	return r
}

// NodeExecuted implements graph.Observer.
func (r *Recorder) NodeExecuted(_, _ string, kind graph.Kind, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	r.nodeExecutions.WithLabelValues(string(kind), outcome).Inc()
	r.nodeDuration.WithLabelValues(string(kind)).Observe(duration.Seconds())
}

// ObserveDispatch records the shape of a completed dispatch run.
func (r *Recorder) ObserveDispatch(ready, blocked, matrixSize int) {
	r.dispatchReady.Set(float64(ready))
	r.dispatchBlocked.Set(float64(blocked))
	r.dispatchMatrix.Set(float64(matrixSize))
}
