// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the scanner.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Hub metrics
	EventsReceived   *prometheus.CounterVec
	EventsDelivered  *prometheus.CounterVec
	EventsDuplicated *prometheus.CounterVec
	SourceErrors     *prometheus.CounterVec
	SourceConnected  *prometheus.GaugeVec
	DedupCacheSize   prometheus.Gauge
	DedupCacheClears prometheus.Counter
	ConsumerLatency  prometheus.Histogram

	// Connector metrics
	ConnectAttempts *prometheus.CounterVec
	PollTicks       *prometheus.CounterVec
	Downgrades      *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastEventTimestamp *prometheus.GaugeVec
	UptimeSeconds      prometheus.Counter
}

// NewMetrics creates a Metrics instance registered on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "scanner"
	}
	f := promauto.With(reg)

	return &Metrics{
		EventsReceived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "events_received_total",
			Help:      "Total number of events emitted by connectors, before dedup",
		}, []string{"source"}),
		EventsDelivered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "events_delivered_total",
			Help:      "Total number of events delivered to the consumer",
		}, []string{"source", "event_type"}),
		EventsDuplicated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "events_duplicate_total",
			Help:      "Total number of events suppressed by the dedup window",
		}, []string{"source"}),
		SourceErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "source_errors_total",
			Help:      "Total number of errors by source and kind",
		}, []string{"source", "kind"}),
		SourceConnected: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "source_connected",
			Help:      "1 when the source's transport is currently healthy",
		}, []string{"source"}),
		DedupCacheSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "dedup_cache_size",
			Help:      "Current number of keys in the dedup window",
		}),
		DedupCacheClears: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "dedup_cache_clears_total",
			Help:      "Total number of full dedup window clears",
		}),
		ConsumerLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "consumer_latency_seconds",
			Help:      "Consumer callback latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		ConnectAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connector",
			Name:      "connect_attempts_total",
			Help:      "Total number of streaming connection attempts by result",
		}, []string{"source", "result"}),
		PollTicks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connector",
			Name:      "poll_ticks_total",
			Help:      "Total number of polling ticks by result",
		}, []string{"source", "result"}),
		Downgrades: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connector",
			Name:      "downgrades_total",
			Help:      "Total number of streaming to polling downgrades",
		}, []string{"source"}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastEventTimestamp: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_event_timestamp",
			Help:      "Unix timestamp of the last delivered event by source",
		}, []string{"source"}),
		UptimeSeconds: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// NewRegistry returns a registry carrying the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordReceived counts an emitted event before dedup.
func (m *Metrics) RecordReceived(source string) {
	if m == nil {
		return
	}
	m.EventsReceived.WithLabelValues(source).Inc()
}

// RecordDelivered counts a delivered event and stamps its time.
func (m *Metrics) RecordDelivered(source, eventType string, at time.Time) {
	if m == nil {
		return
	}
	m.EventsDelivered.WithLabelValues(source, eventType).Inc()
	m.LastEventTimestamp.WithLabelValues(source).Set(float64(at.Unix()))
}

// RecordDuplicate counts a suppressed event.
func (m *Metrics) RecordDuplicate(source string) {
	if m == nil {
		return
	}
	m.EventsDuplicated.WithLabelValues(source).Inc()
}

// RecordError counts an error of the given kind for source.
func (m *Metrics) RecordError(source, kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "other"
	}
	m.SourceErrors.WithLabelValues(source, kind).Inc()
}

// SetConnected mirrors the hub's connected flag.
func (m *Metrics) SetConnected(source string, connected bool) {
	if m == nil {
		return
	}
	v := 0.0
	if connected {
		v = 1
	}
	m.SourceConnected.WithLabelValues(source).Set(v)
}

// SetCacheSize reports the dedup window size.
func (m *Metrics) SetCacheSize(n int) {
	if m == nil {
		return
	}
	m.DedupCacheSize.Set(float64(n))
}

// RecordCacheClear counts a full dedup window clear.
func (m *Metrics) RecordCacheClear() {
	if m == nil {
		return
	}
	m.DedupCacheClears.Inc()
}

// ObserveConsumer records consumer callback latency.
func (m *Metrics) ObserveConsumer(d time.Duration) {
	if m == nil {
		return
	}
	m.ConsumerLatency.Observe(d.Seconds())
}

// RecordConnectAttempt counts a streaming connection attempt.
func (m *Metrics) RecordConnectAttempt(source string, ok bool) {
	if m == nil {
		return
	}
	m.ConnectAttempts.WithLabelValues(source, result(ok)).Inc()
}

// RecordPollTick counts a polling tick.
func (m *Metrics) RecordPollTick(source string, ok bool) {
	if m == nil {
		return
	}
	m.PollTicks.WithLabelValues(source, result(ok)).Inc()
}

// RecordDowngrade counts a streaming to polling downgrade.
func (m *Metrics) RecordDowngrade(source string) {
	if m == nil {
		return
	}
	m.Downgrades.WithLabelValues(source).Inc()
}

// ObserveDBQuery records one database operation.
func (m *Metrics) ObserveDBQuery(database, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(d.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// AddUptime increments the uptime counter.
func (m *Metrics) AddUptime(d time.Duration) {
	if m == nil {
		return
	}
	m.UptimeSeconds.Add(d.Seconds())
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
