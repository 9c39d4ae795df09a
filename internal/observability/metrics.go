package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestsActive  prometheus.Gauge

	// Audit metrics
	AuditsTotal      *prometheus.CounterVec
	AuditDuration    *prometheus.HistogramVec
	AuditScores      *prometheus.HistogramVec
	FallbackReviews  prometheus.Counter
	ScoreDropAlerts  prometheus.Counter
	DiffComputations prometheus.Counter

	// Capture metrics
	CapturesTotal   *prometheus.CounterVec
	CaptureDuration prometheus.Histogram

	// Claude API metrics
	ClaudeRequestsTotal   *prometheus.CounterVec
	ClaudeRequestDuration *prometheus.HistogramVec
	ClaudeTokensUsed      *prometheus.CounterVec
	ClaudeCostTotal       prometheus.Counter

	// System metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
}

// NewMetrics creates a new metrics instance with all Prometheus metrics registered
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "sitepulse"
	}

	m := &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_active",
				Help:      "Number of active HTTP requests",
			},
		),

		AuditsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "audits_total",
				Help:      "Total number of audits run",
			},
			[]string{"trigger", "status"},
		),
		AuditDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "audit_duration_seconds",
				Help:      "End-to-end audit duration in seconds",
				Buckets:   []float64{5, 10, 20, 30, 60, 120, 300},
			},
			[]string{"trigger"},
		),
		AuditScores: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "audit_score",
				Help:      "Distribution of audit scores",
				Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			},
			[]string{"dimension"},
		),
		FallbackReviews: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fallback_reviews_total",
				Help:      "Total number of reviews generated without the model",
			},
		),
		ScoreDropAlerts: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "score_drop_alerts_total",
				Help:      "Total number of score-drop alerts fired",
			},
		),
		DiffComputations: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "diff_computations_total",
				Help:      "Total number of audit diffs computed",
			},
		),

		CapturesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "captures_total",
				Help:      "Total number of page captures",
			},
			[]string{"mode", "status"},
		),
		CaptureDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "capture_duration_seconds",
				Help:      "Page capture duration in seconds",
				Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60},
			},
		),

		ClaudeRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "claude_requests_total",
				Help:      "Total number of Claude API requests",
			},
			[]string{"model", "status"},
		),
		ClaudeRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "claude_request_duration_seconds",
				Help:      "Claude API request duration in seconds",
				Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
			},
			[]string{"model"},
		),
		ClaudeTokensUsed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "claude_tokens_used_total",
				Help:      "Total number of tokens used",
			},
			[]string{"model", "type"}, // type: input, output
		),
		ClaudeCostTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "claude_cost_usd_total",
				Help:      "Total estimated cost in USD",
			},
		),

		DBConnectionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections_active",
				Help:      "Number of active database connections",
			},
		),
		DBConnectionsIdle: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections_idle",
				Help:      "Number of idle database connections",
			},
		),
	}

	return m
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordAudit records a completed audit
func (m *Metrics) RecordAudit(trigger, status string, duration time.Duration) {
	m.AuditsTotal.WithLabelValues(trigger, status).Inc()
	m.AuditDuration.WithLabelValues(trigger).Observe(duration.Seconds())
}

// RecordScores records the score distribution of a finished audit
func (m *Metrics) RecordScores(overall, health int) {
	m.AuditScores.WithLabelValues("overall").Observe(float64(overall))
	m.AuditScores.WithLabelValues("health").Observe(float64(health))
}

// RecordCapture records a page capture attempt
func (m *Metrics) RecordCapture(mode, status string, duration time.Duration) {
	m.CapturesTotal.WithLabelValues(mode, status).Inc()
	m.CaptureDuration.Observe(duration.Seconds())
}

// RecordClaudeRequest records a Claude API call
func (m *Metrics) RecordClaudeRequest(model, status string, duration time.Duration, inputTokens, outputTokens int, cost float64) {
	m.ClaudeRequestsTotal.WithLabelValues(model, status).Inc()
	m.ClaudeRequestDuration.WithLabelValues(model).Observe(duration.Seconds())
	m.ClaudeTokensUsed.WithLabelValues(model, "input").Add(float64(inputTokens))
	m.ClaudeTokensUsed.WithLabelValues(model, "output").Add(float64(outputTokens))
	m.ClaudeCostTotal.Add(cost)
}

// HTTPMiddleware wraps an http.Handler to record metrics
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.HTTPRequestsActive.Inc()
		defer m.HTTPRequestsActive.Dec()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		m.RecordHTTPRequest(r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

var globalMetrics *Metrics

// InitMetrics initializes the global metrics instance
func InitMetrics(namespace string) *Metrics {
	globalMetrics = NewMetrics(namespace)
	return globalMetrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}
