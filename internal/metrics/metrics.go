// Package metrics exports strategy and maintenance counters to Prometheus.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/splitq/internal/engine"
	"github.com/roach88/splitq/internal/optimize"
	"github.com/roach88/splitq/internal/split"
)

// Metrics implements engine.Metrics, split.Recorder and optimize.Recorder.
type Metrics struct {
	outcomes     *prometheus.CounterVec
	subQueries   *prometheus.CounterVec
	direct       prometheus.Counter
	overflow     prometheus.Counter
	partDuration *prometheus.HistogramVec
}

var (
	_ engine.Metrics    = (*Metrics)(nil)
	_ split.Recorder    = (*Metrics)(nil)
	_ optimize.Recorder = (*Metrics)(nil)
)

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		outcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splitq_strategy_outcomes_total",
				Help: "Strategy attempts by outcome (declined, succeeded, failed_retryable)",
			},
			[]string{"strategy", "outcome"},
		),
		subQueries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splitq_subqueries_total",
				Help: "Physical queries issued by split strategies",
			},
			[]string{"strategy"},
		),
		direct: f.NewCounter(prometheus.CounterOpts{
			Name: "splitq_direct_executions_total",
			Help: "Queries executed directly after every strategy declined or failed",
		}),
		overflow: f.NewCounter(prometheus.CounterOpts{
			Name: "splitq_column_split_intermediate_overflow_total",
			Help: "Column splits abandoned because the first query returned too many identifiers",
		}),
		partDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "splitq_optimize_partition_duration_seconds",
				Help:    "Time to optimize one partition",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
			[]string{"table", "host"},
		),
	}
}

// Default returns the process-wide instance registered with
// prometheus.DefaultRegisterer.
var Default = sync.OnceValue(func() *Metrics {
	return New(prometheus.DefaultRegisterer)
})

func (m *Metrics) StrategyOutcome(strategy, outcome string) {
	m.outcomes.WithLabelValues(strategy, outcome).Inc()
}

func (m *Metrics) DirectExecution() { m.direct.Inc() }

func (m *Metrics) SubQuery(strategy string) {
	m.subQueries.WithLabelValues(strategy).Inc()
}

func (m *Metrics) ColumnSplitOverflow() { m.overflow.Inc() }

func (m *Metrics) PartOptimized(tags map[string]string, elapsed time.Duration) {
	m.partDuration.WithLabelValues(tags["table"], tags["host"]).Observe(elapsed.Seconds())
}
