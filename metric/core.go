package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the controller-level metrics
type Metrics struct {
	// Pool metrics
	PoolBorrows *prometheus.CounterVec
	PoolReturns *prometheus.CounterVec
	PoolIdle    *prometheus.GaugeVec
	PoolActive  *prometheus.GaugeVec

	// Process metrics
	ProcessesRegistered prometheus.Gauge
	QueriesTotal        *prometheus.CounterVec
	QueryDuration       *prometheus.HistogramVec

	// Autoload metrics
	AutoloadTotal *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all controller metrics
func NewMetrics() *Metrics {
	return &Metrics{
		PoolBorrows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "carrot2",
				Subsystem: "pool",
				Name:      "borrows_total",
				Help:      "Total number of component borrows by instance source (idle, created)",
			},
			[]string{"component", "source"},
		),

		PoolReturns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "carrot2",
				Subsystem: "pool",
				Name:      "returns_total",
				Help:      "Total number of component returns by outcome (retained, discarded)",
			},
			[]string{"component", "outcome"},
		),

		PoolIdle: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "carrot2",
				Subsystem: "pool",
				Name:      "idle_instances",
				Help:      "Idle component instances retained by the pool",
			},
			[]string{"component"},
		),

		PoolActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "carrot2",
				Subsystem: "pool",
				Name:      "active_instances",
				Help:      "Component instances currently checked out",
			},
			[]string{"component"},
		),

		ProcessesRegistered: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "carrot2",
				Subsystem: "controller",
				Name:      "processes_registered",
				Help:      "Number of registered processes",
			},
		),

		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "carrot2",
				Subsystem: "controller",
				Name:      "queries_total",
				Help:      "Total number of dispatched queries by status (success, error)",
			},
			[]string{"process", "status"},
		),

		QueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "carrot2",
				Subsystem: "controller",
				Name:      "query_duration_seconds",
				Help:      "Query dispatch duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"process"},
		),

		AutoloadTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "carrot2",
				Subsystem: "autoload",
				Name:      "resolutions_total",
				Help:      "Component autoload attempts by outcome (loaded, not_found, loader_error)",
			},
			[]string{"component", "outcome"},
		),
	}
}

// RecordBorrow increments the borrow counter and the active gauge
func (c *Metrics) RecordBorrow(component, source string) {
	c.PoolBorrows.WithLabelValues(component, source).Inc()
	c.PoolActive.WithLabelValues(component).Inc()
}

// RecordReturn increments the return counter and updates pool gauges
func (c *Metrics) RecordReturn(component, outcome string, idle int) {
	c.PoolReturns.WithLabelValues(component, outcome).Inc()
	c.PoolActive.WithLabelValues(component).Dec()
	c.PoolIdle.WithLabelValues(component).Set(float64(idle))
}

// RecordIdle sets the idle gauge for a component
func (c *Metrics) RecordIdle(component string, idle int) {
	c.PoolIdle.WithLabelValues(component).Set(float64(idle))
}

// RecordProcesses sets the registered process gauge
func (c *Metrics) RecordProcesses(count int) {
	c.ProcessesRegistered.Set(float64(count))
}

// RecordQuery records the outcome and duration of a dispatched query
func (c *Metrics) RecordQuery(process, status string, duration time.Duration) {
	c.QueriesTotal.WithLabelValues(process, status).Inc()
	c.QueryDuration.WithLabelValues(process).Observe(duration.Seconds())
}

// RecordAutoload increments the autoload counter
func (c *Metrics) RecordAutoload(component, outcome string) {
	c.AutoloadTotal.WithLabelValues(component, outcome).Inc()
}
