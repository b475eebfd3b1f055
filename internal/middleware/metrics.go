package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Message metrics
	messagesScanned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toxguard_messages_scanned_total",
		Help: "Total number of messages scanned for toxicity",
	}, []string{"chat_type"})

	messagesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toxguard_messages_skipped_total",
		Help: "Total number of messages skipped without analysis",
	}, []string{"reason"})

	// Command metrics
	commandsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toxguard_commands_executed_total",
		Help: "Total number of commands executed",
	}, []string{"command"})

	// Violation metrics
	violationsDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "toxguard_violations_detected_total",
		Help: "Total number of toxic messages detected above threshold",
	})

	moderationActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toxguard_moderation_actions_total",
		Help: "Total number of moderation actions applied",
	}, []string{"action", "status"})

	// Classifier metrics
	classifierRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "toxguard_classifier_request_duration_seconds",
		Help:    "Duration of classifier inference requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})

	classifierRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toxguard_classifier_requests_total",
		Help: "Total number of classifier inference requests",
	}, []string{"status"})

	// Prediction cache metrics
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "toxguard_prediction_cache_hits_total",
		Help: "Total number of prediction cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "toxguard_prediction_cache_misses_total",
		Help: "Total number of prediction cache misses",
	})

	// Moderation log metrics
	logAppends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toxguard_modlog_appends_total",
		Help: "Total number of moderation log appends",
	}, []string{"status"})

	// Rate limit metrics
	rateLimitExceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "toxguard_rate_limit_exceeded_total",
		Help: "Total number of rate limit exceeded events",
	})
)

// Metrics provides methods to record metrics
type Metrics struct{}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordMessageScanned records a scanned message
func (m *Metrics) RecordMessageScanned(chatType string) {
	messagesScanned.WithLabelValues(chatType).Inc()
}

// RecordMessageSkipped records a message skipped without analysis
func (m *Metrics) RecordMessageSkipped(reason string) {
	messagesSkipped.WithLabelValues(reason).Inc()
}

// RecordCommandExecuted records an executed command
func (m *Metrics) RecordCommandExecuted(command string) {
	commandsExecuted.WithLabelValues(command).Inc()
}

// RecordViolationDetected records a toxic message above threshold
func (m *Metrics) RecordViolationDetected() {
	violationsDetected.Inc()
}

// RecordModerationAction records an applied moderation action
func (m *Metrics) RecordModerationAction(action, status string) {
	moderationActions.WithLabelValues(action, status).Inc()
}

// RecordClassifierRequest records one classifier inference request
func (m *Metrics) RecordClassifierRequest(status string, duration time.Duration) {
	classifierRequestDuration.WithLabelValues(status).Observe(duration.Seconds())
	classifierRequestsTotal.WithLabelValues(status).Inc()
}

// RecordCacheHit records a prediction cache hit
func (m *Metrics) RecordCacheHit() {
	cacheHits.Inc()
}

// RecordCacheMiss records a prediction cache miss
func (m *Metrics) RecordCacheMiss() {
	cacheMisses.Inc()
}

// RecordLogAppend records a moderation log append
func (m *Metrics) RecordLogAppend(status string) {
	logAppends.WithLabelValues(status).Inc()
}

// RecordRateLimitExceeded records a rate limit exceeded event
func (m *Metrics) RecordRateLimitExceeded() {
	rateLimitExceeded.Inc()
}

// StartMetricsServer starts the metrics HTTP server
func StartMetricsServer(port int, path string) error {
	router := mux.NewRouter()
	router.Handle(path, promhttp.Handler())

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
