package natsclient

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gluonch/carrot2/metric"
)

const metricsService = "natsclient"

// clientMetrics holds Prometheus metrics for connection attempts and bucket
// management. A nil *clientMetrics records nothing.
type clientMetrics struct {
	registrar metric.MetricsRegistrar

	connectAttempts *prometheus.CounterVec   // by outcome: connected, failed, rejected
	connectDuration *prometheus.HistogramVec // by outcome: connected, failed
	circuitOpen     prometheus.Gauge         // 1 while the breaker rejects attempts
	bucketsCreated  prometheus.Counter
}

// newClientMetrics creates and registers the client metrics with registrar
func newClientMetrics(registrar metric.MetricsRegistrar) (*clientMetrics, error) {
	m := &clientMetrics{
		registrar: registrar,
		connectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carrot2",
			Subsystem: "nats",
			Name:      "connect_attempts_total",
			Help:      "NATS connection attempts by outcome",
		}, []string{"outcome"}),
		connectDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "carrot2",
			Subsystem: "nats",
			Name:      "connect_duration_seconds",
			Help:      "Time spent dialing NATS",
			Buckets:   []float64{.005, .01, .05, .1, .5, 1, 5},
		}, []string{"outcome"}),
		circuitOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "carrot2",
			Subsystem: "nats",
			Name:      "circuit_open",
			Help:      "Whether the connection circuit breaker is open (1) or closed (0)",
		}),
		bucketsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "carrot2",
			Subsystem: "nats",
			Name:      "kv_buckets_created_total",
			Help:      "Key-value buckets created by this client",
		}),
	}

	registered := make([]string, 0, 4)
	register := func(name string, fn func() error) error {
		if err := fn(); err != nil {
			for _, prev := range registered {
				registrar.Unregister(metricsService, prev)
			}
			return err
		}
		registered = append(registered, name)
		return nil
	}

	if err := register("connect_attempts", func() error {
		return registrar.RegisterCounterVec(metricsService, "connect_attempts", m.connectAttempts)
	}); err != nil {
		return nil, err
	}
	if err := register("connect_duration", func() error {
		return registrar.RegisterHistogramVec(metricsService, "connect_duration", m.connectDuration)
	}); err != nil {
		return nil, err
	}
	if err := register("circuit_open", func() error {
		return registrar.RegisterGauge(metricsService, "circuit_open", m.circuitOpen)
	}); err != nil {
		return nil, err
	}
	if err := register("kv_buckets_created", func() error {
		return registrar.RegisterCounter(metricsService, "kv_buckets_created", m.bucketsCreated)
	}); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *clientMetrics) recordConnect(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.connectAttempts.WithLabelValues(outcome).Inc()
	if outcome != "rejected" {
		m.connectDuration.WithLabelValues(outcome).Observe(d.Seconds())
	}
}

func (m *clientMetrics) setCircuitOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.circuitOpen.Set(1)
		return
	}
	m.circuitOpen.Set(0)
}

func (m *clientMetrics) recordBucketCreated() {
	if m == nil {
		return
	}
	m.bucketsCreated.Inc()
}

// unregister removes the client metrics so another client can register them
func (m *clientMetrics) unregister() {
	if m == nil {
		return
	}
	for _, name := range []string{"connect_attempts", "connect_duration", "circuit_open", "kv_buckets_created"} {
		m.registrar.Unregister(metricsService, name)
	}
}
