package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "routing"

// Outcome labels for upstream calls.
const (
	OutcomeOK          = "ok"
	OutcomeError       = "error"
	OutcomeRateLimited = "rate_limited"
	OutcomeTimeout     = "timeout"
)

// Recorder groups the service's Prometheus collectors. A nil *Recorder is a
// valid no-op, which keeps tests free of registry plumbing.
type Recorder struct {
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	acceptedRoutes   *prometheus.CounterVec
	summaries        *prometheus.CounterVec
}

// NewRecorder creates the collectors and registers them on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Requests to upstream services by operation and outcome.",
		}, []string{"service", "operation", "outcome"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of upstream requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "operation"}),
		acceptedRoutes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accepted_routes_total",
			Help:      "Unique route candidates accepted per acquisition stage.",
		}, []string{"stage"}),
		summaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_total",
			Help:      "Summary bridge invocations by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(r.upstreamRequests, r.upstreamLatency, r.acceptedRoutes, r.summaries)
	return r
}

// ObserveUpstream records one upstream call.
func (r *Recorder) ObserveUpstream(service, operation, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.upstreamRequests.WithLabelValues(service, operation, outcome).Inc()
	r.upstreamLatency.WithLabelValues(service, operation).Observe(elapsed.Seconds())
}

// RouteAccepted counts a unique candidate accepted by a stage.
func (r *Recorder) RouteAccepted(stage string) {
	if r == nil {
		return
	}
	r.acceptedRoutes.WithLabelValues(stage).Inc()
}

// SummaryResult counts a summary invocation outcome.
func (r *Recorder) SummaryResult(result string) {
	if r == nil {
		return
	}
	r.summaries.WithLabelValues(result).Inc()
}
