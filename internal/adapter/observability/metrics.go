package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI requests by provider and operation",
		},
		[]string{"provider", "operation"},
	)
	AIRequestFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_request_failures_total",
			Help: "Total number of failed AI requests by provider, operation and reason",
		},
		[]string{"provider", "operation", "reason"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider", "operation"},
	)
	AITokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_total",
			Help: "Tokens consumed by provider and kind (prompt, completion)",
		},
		[]string{"provider", "kind"},
	)

	SessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_sessions_total",
			Help: "Session lifecycle transitions by stage reached and interview stage",
		},
		[]string{"stage", "interview_stage"},
	)
	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_messages_total",
			Help: "Conversation messages persisted by role",
		},
		[]string{"role"},
	)
	MessagesTruncatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "interview_messages_truncated_total",
			Help: "User messages truncated at the boundary",
		},
	)
	FeedbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_feedback_total",
			Help: "Feedback records produced by source (model, partial, synthesized)",
		},
		[]string{"source"},
	)
	OverallScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "interview_overall_score",
			Help:    "Distribution of overall feedback scores ([7,35])",
			Buckets: []float64{7, 10, 14, 18, 21, 25, 28, 32, 35},
		},
	)
	SessionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "interview_session_duration_seconds",
			Help:    "Time between start and completion of a session",
			Buckets: prometheus.ExponentialBuckets(30, 2, 10),
		},
	)
	ProviderCircuitStateGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ai_provider_circuit_state",
			Help: "Circuit breaker state per backend (0 closed, 1 open, 2 half-open)",
		},
		[]string{"provider"},
	)
	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_events_published_total",
			Help: "Session events published by type and result",
		},
		[]string{"type", "result"},
	)
)

func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(AIRequestsTotal)
	prometheus.MustRegister(AIRequestFailuresTotal)
	prometheus.MustRegister(AIRequestDuration)
	prometheus.MustRegister(AITokensTotal)
	prometheus.MustRegister(SessionsTotal)
	prometheus.MustRegister(MessagesTotal)
	prometheus.MustRegister(MessagesTruncatedTotal)
	prometheus.MustRegister(FeedbackTotal)
	prometheus.MustRegister(OverallScoreHistogram)
	prometheus.MustRegister(SessionDurationSeconds)
	prometheus.MustRegister(ProviderCircuitStateGauge)
	prometheus.MustRegister(EventsPublishedTotal)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}

// ObserveAIRequest records a provider call outcome. reason is empty on success.
func ObserveAIRequest(provider, operation string, dur time.Duration, reason string) {
	AIRequestsTotal.WithLabelValues(provider, operation).Inc()
	AIRequestDuration.WithLabelValues(provider, operation).Observe(dur.Seconds())
	if reason != "" {
		AIRequestFailuresTotal.WithLabelValues(provider, operation, reason).Inc()
	}
}

// ObserveTokens adds reported token usage for a provider.
func ObserveTokens(provider string, prompt, completion int) {
	if prompt > 0 {
		AITokensTotal.WithLabelValues(provider, "prompt").Add(float64(prompt))
	}
	if completion > 0 {
		AITokensTotal.WithLabelValues(provider, "completion").Add(float64(completion))
	}
}

// SessionTransition counts a session reaching stage.
func SessionTransition(stage, interviewStage string) {
	SessionsTotal.WithLabelValues(stage, interviewStage).Inc()
}

// MessagesPersisted counts appended messages by role.
func MessagesPersisted(role string, n int) {
	MessagesTotal.WithLabelValues(role).Add(float64(n))
}

// MessageTruncated counts a user message cut to the configured cap.
func MessageTruncated() {
	MessagesTruncatedTotal.Inc()
}

// ObserveFeedback records the outcome of a completed session.
func ObserveFeedback(source string, overall int, durationSeconds int) {
	FeedbackTotal.WithLabelValues(source).Inc()
	if overall >= 7 && overall <= 35 {
		OverallScoreHistogram.Observe(float64(overall))
	}
	if durationSeconds >= 0 {
		SessionDurationSeconds.Observe(float64(durationSeconds))
	}
}

// EventPublished records a session event publish attempt.
func EventPublished(eventType string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	EventsPublishedTotal.WithLabelValues(eventType, result).Inc()
}

// ProviderCircuitState exports a breaker transition.
func ProviderCircuitState(provider string, state int) {
	ProviderCircuitStateGauge.WithLabelValues(provider).Set(float64(state))
}
