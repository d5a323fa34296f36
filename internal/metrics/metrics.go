// Package metrics provides Prometheus metrics for the update agent.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric names use the noip_ prefix.
const (
	Namespace = "noip"
)

var (
	// BuildInfo exposes version information as labels.
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "build_info",
			Help:      "Build information, value is always 1.",
		},
		[]string{"version", "go_version"},
	)

	// CyclesTotal counts update cycles by result (success, failure, error, cancelled).
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "update_cycles_total",
			Help:      "Total number of update cycles by result.",
		},
		[]string{"result"},
	)

	// CycleDuration observes how long a cycle took, including any 911 pause.
	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "update_cycle_duration_seconds",
			Help:      "Duration of update cycles in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 1800, 3600},
		},
	)

	// ResponsesTotal counts response lines by verb and outcome.
	ResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "responses_total",
			Help:      "Total number of provider response lines by verb and outcome.",
		},
		[]string{"verb", "outcome"},
	)

	// ServerErrorPausesTotal counts pauses triggered by a 911 response.
	ServerErrorPausesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "server_error_pauses_total",
			Help:      "Total number of pauses caused by provider-side errors.",
		},
	)

	// LastSuccessTimestamp is the unix time of the last successful cycle.
	LastSuccessTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix timestamp of the last successful update cycle.",
		},
	)
)

// Cycle results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultError   = "error"

	// ResultCancelled is a cycle cut short by shutdown.
	ResultCancelled = "cancelled"
)

// unknownVerb replaces verbs outside the protocol to keep label cardinality bounded.
const unknownVerb = "unknown"

// SetBuildInfo sets the build info metric.
func SetBuildInfo(version, goVersion string) {
	BuildInfo.WithLabelValues(version, goVersion).Set(1)
}

// Recorder records scheduler events into the package metrics.
type Recorder struct {
	// KnownVerb reports whether a verb may be used as a label value.
	// If nil, every verb is recorded as-is.
	KnownVerb func(string) bool
}

// ObserveResponse records one classified response line.
func (r Recorder) ObserveResponse(verb, outcome string) {
	if r.KnownVerb != nil && !r.KnownVerb(verb) {
		verb = unknownVerb
	}
	ResponsesTotal.WithLabelValues(verb, outcome).Inc()
}

// ObservePause records a provider-requested pause.
func (r Recorder) ObservePause(time.Duration) {
	ServerErrorPausesTotal.Inc()
}

// ObserveCycle records a finished cycle. Cancelled cycles are counted but
// their truncated duration is not observed.
func (r Recorder) ObserveCycle(result string, duration time.Duration, finished time.Time) {
	CyclesTotal.WithLabelValues(result).Inc()
	if result == ResultCancelled {
		return
	}
	CycleDuration.Observe(duration.Seconds())
	if result == ResultSuccess {
		LastSuccessTimestamp.Set(float64(finished.Unix()))
	}
}
