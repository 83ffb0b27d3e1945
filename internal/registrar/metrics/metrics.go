// Package metrics registers the Prometheus metrics for the registrar feature.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for registrar job tracking.
type Metrics struct {
	JobsInitiated     *prometheus.CounterVec
	JobsFinalized     *prometheus.CounterVec
	JobsExpired       prometheus.Counter
	JobsNotFound      prometheus.Counter
	SignatureFailures prometheus.Counter
	ActiveJobs        prometheus.Gauge
}

// New creates a Metrics instance with all registrar metrics registered.
func New() *Metrics {
	return &Metrics{
		JobsInitiated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "didreg_jobs_initiated_total",
			Help: "Total number of registration jobs initiated, by operation",
		}, []string{"operation"}),
		JobsFinalized: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "didreg_jobs_finalized_total",
			Help: "Total number of registration jobs finalized, by operation",
		}, []string{"operation"}),
		JobsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "didreg_jobs_expired_total",
			Help: "Total number of registration jobs reclaimed by the expiry sweep",
		}),
		JobsNotFound: promauto.NewCounter(prometheus.CounterOpts{
			Name: "didreg_jobs_not_found_total",
			Help: "Total number of finalize calls that referenced an unknown job",
		}),
		SignatureFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "didreg_signature_failures_total",
			Help: "Total number of finalize calls rejected for a bad signature",
		}),
		// ActiveJobs is maintained from lifecycle deltas (initiate, finalize,
		// sweep). With the Redis job table, expiry happens through key TTL
		// and never reports through the sweep, so the gauge only reflects the
		// in-memory store accurately.
		ActiveJobs: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "didreg_active_jobs",
			Help: "Number of jobs awaiting a signed response, tracked from lifecycle deltas; approximate when the job table expires entries natively",
		}),
	}
}

// IncInitiated records a new job for the given operation.
func (m *Metrics) IncInitiated(operation string) {
	if m == nil {
		return
	}
	m.JobsInitiated.WithLabelValues(operation).Inc()
	m.ActiveJobs.Inc()
}

// IncFinalized records a successful finalize for the given operation.
func (m *Metrics) IncFinalized(operation string) {
	if m == nil {
		return
	}
	m.JobsFinalized.WithLabelValues(operation).Inc()
	m.ActiveJobs.Dec()
}

// AddExpired records jobs reclaimed by the sweep.
func (m *Metrics) AddExpired(n int) {
	if m == nil || n == 0 {
		return
	}
	m.JobsExpired.Add(float64(n))
	m.ActiveJobs.Sub(float64(n))
}

// IncNotFound records a finalize against an unknown job id.
func (m *Metrics) IncNotFound() {
	if m == nil {
		return
	}
	m.JobsNotFound.Inc()
}

// IncSignatureFailure records a rejected signing response.
func (m *Metrics) IncSignatureFailure() {
	if m == nil {
		return
	}
	m.SignatureFailures.Inc()
}
