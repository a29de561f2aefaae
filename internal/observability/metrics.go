package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	apiRequestsTotal  *prometheus.CounterVec
	apiLatencySeconds *prometheus.HistogramVec
	apiErrorsTotal    *prometheus.CounterVec

	backendHealthy      prometheus.Gauge
	backendProbeUp      *prometheus.GaugeVec
	backendProbeLatency *prometheus.GaugeVec
	backendChecksTotal  *prometheus.CounterVec
	healthStreamClients prometheus.Gauge
	uploadRequestsTotal *prometheus.CounterVec
	uploadRejectedTotal *prometheus.CounterVec
	uploadLatency       prometheus.Histogram
	donationsTotal      *prometheus.CounterVec
	donationAmountTotal *prometheus.CounterVec
	allocationsTotal    prometheus.Counter
	signInsTotal        *prometheus.CounterVec
	auditAppendFailures prometheus.Counter
	adminRollbacksTotal prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "waqf_api_requests_total",
			Help: "API requests served, by surface.",
		}, []string{"surface", "method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "waqf_api_latency_seconds",
			Help:    "Latency distribution of API requests, by surface.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"surface", "method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "waqf_api_errors_total",
			Help: "Error responses returned by the API, by surface.",
		}, []string{"surface", "method", "route", "status"})

		backendHealthy = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "backend_healthy",
			Help: "1 when every backend probe of the last health check passed.",
		})

		backendProbeUp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "backend_probe_up",
			Help: "Result of the last backend probe by name.",
		}, []string{"probe"})

		backendProbeLatency = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "backend_probe_latency_seconds",
			Help: "Latency of the last backend probe by name.",
		}, []string{"probe"})

		backendChecksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backend_health_checks_total",
			Help: "Backend health checks run, by outcome.",
		}, []string{"outcome"})

		healthStreamClients = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "health_stream_clients_active",
			Help: "Websocket clients subscribed to backend health updates.",
		})

		uploadRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upload_requests_total",
			Help: "Stored uploads by detected type.",
		}, []string{"type"})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upload_rejected_total",
			Help: "Rejected uploads by reason.",
		}, []string{"reason"})

		uploadLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "upload_latency_seconds",
			Help:    "Time spent validating and storing uploads.",
			Buckets: prometheus.DefBuckets,
		})

		donationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "waqf_donations_total",
			Help: "Donations recorded, by currency.",
		}, []string{"currency"})

		donationAmountTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "waqf_donation_amount_total",
			Help: "Sum of recorded donation amounts, by currency.",
		}, []string{"currency"})

		allocationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "waqf_allocations_total",
			Help: "Allocation groups recorded.",
		})

		signInsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_sign_ins_total",
			Help: "Completed sign-in attempts by outcome.",
		}, []string{"outcome"})

		auditAppendFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "admin_audit_append_failures_total",
			Help: "Audit entries that could not be written.",
		})

		adminRollbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "admin_removal_rollbacks_total",
			Help: "Admin removals reverted because the audit entry failed.",
		})

		prometheus.MustRegister(
			apiRequestsTotal, apiLatencySeconds, apiErrorsTotal,
			backendHealthy, backendProbeUp, backendProbeLatency, backendChecksTotal, healthStreamClients,
			uploadRequestsTotal, uploadRejectedTotal, uploadLatency,
			donationsTotal, donationAmountTotal, allocationsTotal,
			signInsTotal, auditAppendFailures, adminRollbacksTotal,
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

// APIErrors exposes the error response counter.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// BackendHealthy exposes the composite backend health gauge.
func BackendHealthy() prometheus.Gauge {
	RegisterMetrics()
	return backendHealthy
}

// BackendProbeUp exposes per-probe results.
func BackendProbeUp() *prometheus.GaugeVec {
	RegisterMetrics()
	return backendProbeUp
}

// BackendProbeLatency exposes per-probe latency.
func BackendProbeLatency() *prometheus.GaugeVec {
	RegisterMetrics()
	return backendProbeLatency
}

// BackendChecks exposes the health check counter.
func BackendChecks() *prometheus.CounterVec {
	RegisterMetrics()
	return backendChecksTotal
}

// HealthStreamClients exposes the websocket subscriber gauge.
func HealthStreamClients() prometheus.Gauge {
	RegisterMetrics()
	return healthStreamClients
}

// UploadRequests exposes the stored upload counter.
func UploadRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRequestsTotal
}

// UploadRejected exposes the rejected upload counter.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}

// UploadLatency exposes the upload latency histogram.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatency
}

// Donations exposes the donation counter.
func Donations() *prometheus.CounterVec {
	RegisterMetrics()
	return donationsTotal
}

// DonationAmount exposes the donated amount counter.
func DonationAmount() *prometheus.CounterVec {
	RegisterMetrics()
	return donationAmountTotal
}

// Allocations exposes the allocation counter.
func Allocations() prometheus.Counter {
	RegisterMetrics()
	return allocationsTotal
}

// SignIns exposes the sign-in counter.
func SignIns() *prometheus.CounterVec {
	RegisterMetrics()
	return signInsTotal
}

// AuditAppendFailures exposes the audit failure counter.
func AuditAppendFailures() prometheus.Counter {
	RegisterMetrics()
	return auditAppendFailures
}

// AdminRollbacks exposes the removal rollback counter.
func AdminRollbacks() prometheus.Counter {
	RegisterMetrics()
	return adminRollbacksTotal
}
