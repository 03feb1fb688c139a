package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	loginAttemptsTotal    *prometheus.CounterVec
	accessDenialsTotal    *prometheus.CounterVec
	identifierAttempts    *prometheus.CounterVec
	identifierCollisions  *prometheus.CounterVec
	identifierEscalations *prometheus.CounterVec
	identifierExhaustions *prometheus.CounterVec
	uploadRejectedTotal   *prometheus.CounterVec
	uploadLatencySeconds  prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors exposed on /metrics.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		loginAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Login attempts partitioned by outcome.",
		}, []string{"outcome"})

		accessDenialsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "policy_denials_total",
			Help: "Access policy denials partitioned by resource and reason.",
		}, []string{"resource", "reason"})

		identifierAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identifier_attempts_total",
			Help: "Candidate identifiers drawn by the generator.",
		}, []string{"kind"})

		identifierCollisions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identifier_collisions_total",
			Help: "Candidate identifiers that were already taken.",
		}, []string{"kind"})

		identifierEscalations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identifier_width_escalations_total",
			Help: "Times the identifier width grew because a width was full.",
		}, []string{"kind"})

		identifierExhaustions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identifier_exhaustions_total",
			Help: "Generations that ran out of attempts.",
		}, []string{"kind"})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profile_picture_rejected_total",
			Help: "Profile picture uploads rejected, by reason.",
		}, []string{"reason"})

		uploadLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "profile_picture_upload_seconds",
			Help:    "Time spent validating and storing profile pictures.",
			Buckets: prometheus.DefBuckets,
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			loginAttemptsTotal,
			accessDenialsTotal,
			identifierAttempts,
			identifierCollisions,
			identifierEscalations,
			identifierExhaustions,
			uploadRejectedTotal,
			uploadLatencySeconds,
		)
	})
}

// APIRequests exposes the request counter.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the request latency histogram.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// LoginAttempts counts logins by outcome (success, invalid_credentials, inactive).
func LoginAttempts() *prometheus.CounterVec {
	RegisterMetrics()
	return loginAttemptsTotal
}

// AccessDenials counts policy denials.
func AccessDenials() *prometheus.CounterVec {
	RegisterMetrics()
	return accessDenialsTotal
}

func IdentifierAttempts() *prometheus.CounterVec {
	RegisterMetrics()
	return identifierAttempts
}

func IdentifierCollisions() *prometheus.CounterVec {
	RegisterMetrics()
	return identifierCollisions
}

func IdentifierEscalations() *prometheus.CounterVec {
	RegisterMetrics()
	return identifierEscalations
}

func IdentifierExhaustions() *prometheus.CounterVec {
	RegisterMetrics()
	return identifierExhaustions
}

// UploadRejected counts rejected profile picture uploads.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}

// UploadLatency observes profile picture upload duration.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatencySeconds
}
