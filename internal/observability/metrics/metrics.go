package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bluecarbon_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bluecarbon_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bluecarbon_commands_total",
		Help: "Workflow commands by audit action and result",
	}, []string{"action", "result"})

	tonsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bluecarbon_tons_issued_total",
		Help: "Tons of CO2e minted as credits",
	}, []string{"ecosystem"})

	tonsTraded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bluecarbon_tons_traded_total",
		Help: "Tons of CO2e moved by purchase or retirement",
	}, []string{"operation"})

	scorerCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bluecarbon_scorer_calls_total",
		Help: "Photo scoring attempts by outcome (ok, cached, fallback)",
	}, []string{"outcome"})

	scorerDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bluecarbon_scorer_duration_seconds",
		Help:    "Duration of remote scoring calls",
		Buckets: prometheus.DefBuckets,
	})

	persistenceWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bluecarbon_persistence_writes_total",
		Help: "State saves by result (ok, degraded, failed)",
	}, []string{"result"})

	syncOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bluecarbon_sync_operations_total",
		Help: "Remote resynchronization attempts by result",
	}, []string{"result"})

	submissionsByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bluecarbon_submissions",
		Help: "Current submissions per status",
	}, []string{"status"})

	auditSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bluecarbon_audit_stream_subscribers",
		Help: "Connected audit stream clients",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveCommand counts a workflow command outcome
func ObserveCommand(action, result string) {
	commandsTotal.WithLabelValues(action, result).Inc()
}

// ObserveIssuance adds minted tons for an ecosystem
func ObserveIssuance(ecosystem string, tons float64) {
	tonsIssued.WithLabelValues(ecosystem).Add(tons)
}

// ObserveTrade adds tons moved by "purchase" or "retire"
func ObserveTrade(operation string, tons float64) {
	tonsTraded.WithLabelValues(operation).Add(tons)
}

// ObserveScorer records a scoring attempt. Duration is ignored for cache hits.
func ObserveScorer(outcome string, duration time.Duration) {
	scorerCalls.WithLabelValues(outcome).Inc()
	if outcome != "cached" {
		scorerDuration.Observe(duration.Seconds())
	}
}

// ObservePersistence counts a state save result
func ObservePersistence(result string) {
	persistenceWrites.WithLabelValues(result).Inc()
}

// ObserveSync counts a sync worker attempt
func ObserveSync(result string) {
	syncOperations.WithLabelValues(result).Inc()
}

// SetSubmissionCounts replaces the per-status gauge values
func SetSubmissionCounts(counts map[string]int) {
	for status, n := range counts {
		submissionsByStatus.WithLabelValues(status).Set(float64(n))
	}
}

// IncrementSubscribers increments the audit stream gauge.
func IncrementSubscribers() {
	auditSubscribers.Inc()
}

// DecrementSubscribers decrements the audit stream gauge.
func DecrementSubscribers() {
	auditSubscribers.Dec()
}
