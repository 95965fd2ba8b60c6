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
	gradingsTotal         *prometheus.CounterVec
	gradingDuration       prometheus.Histogram
	gradingsInFlight      prometheus.Gauge
	gradingJobsEnqueued   *prometheus.CounterVec
	gradingJobsDispatched *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API and the grading pipeline.
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

		gradingsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gradings_total",
			Help: "Grading runs by terminal status and error code.",
		}, []string{"status", "code"})

		gradingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "grading_duration_seconds",
			Help:    "Wall clock duration of complete grading runs.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		})

		gradingsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gradings_in_flight",
			Help: "Grading runs currently executing.",
		})

		gradingJobsEnqueued = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_jobs_enqueued_total",
			Help: "Grading jobs accepted by the scheduler.",
		}, []string{"backend"})

		gradingJobsDispatched = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_jobs_dispatched_total",
			Help: "Grading jobs handed to a worker.",
		}, []string{"backend"})

		prometheus.MustRegister(
			apiRequestsTotal, apiLatencySeconds, apiErrorsTotal,
			gradingsTotal, gradingDuration, gradingsInFlight,
			gradingJobsEnqueued, gradingJobsDispatched,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// Gradings exposes the counter of finished grading runs.
func Gradings() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingsTotal
}

// GradingDuration exposes the grading run duration histogram.
func GradingDuration() prometheus.Histogram {
	RegisterMetrics()
	return gradingDuration
}

// GradingsInFlight exposes the gauge of running gradings.
func GradingsInFlight() prometheus.Gauge {
	RegisterMetrics()
	return gradingsInFlight
}

// GradingJobsEnqueued exposes the counter of scheduled grading jobs.
func GradingJobsEnqueued() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingJobsEnqueued
}

// GradingJobsDispatched exposes the counter of grading jobs picked up by workers.
func GradingJobsDispatched() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingJobsDispatched
}
