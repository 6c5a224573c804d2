// Package metric provides Prometheus-based metrics for the orchestration controller.
//
// MetricsRegistry wraps a dedicated prometheus.Registry. It registers the
// controller metrics (Metrics type) on construction and lets callers add
// their own collectors under a service name, rejecting duplicates:
//
//	registry := metric.NewMetricsRegistry()
//	registry.CoreMetrics().RecordQuery("search", "success", elapsed)
//
//	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "stemmer_cache_hits_total"})
//	if err := registry.RegisterCounter("stemmer", "cache_hits", counter); err != nil {
//	    return err
//	}
//
// The controller metrics cover pool usage (borrows by source, returns by
// outcome, idle and active instances), process registration, query outcomes
// and durations, and autoload resolutions by outcome.
package metric
