// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"solana-token-launcher/internal/domain"
)

// Launch results recorded by RecordLaunch.
const (
	LaunchResultCompleted  = "completed"
	LaunchResultMintFailed = "mint_failed"
	LaunchResultCancelled  = "cancelled"
	LaunchResultRejected   = "rejected"
)

// Metrics holds all Prometheus metrics for the launcher.
type Metrics struct {
	// Listing metrics
	AttemptsTotal   *prometheus.CounterVec
	AttemptDuration *prometheus.HistogramVec
	PlatformResults *prometheus.CounterVec

	// Launch metrics
	LaunchesTotal  *prometheus.CounterVec
	MintRetries    prometheus.Counter
	MintDuration   prometheus.Histogram
	ActiveLaunches prometheus.Gauge

	// Storage metrics
	StoreConflicts prometheus.Counter
}

// NewMetrics creates a Metrics instance registered on reg.
// A nil reg registers on the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "token_launcher"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		AttemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listing",
			Name:      "attempts_total",
			Help:      "Total number of provider attempts by platform, provider and outcome",
		}, []string{"platform", "provider", "outcome"}),
		AttemptDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "listing",
			Name:      "attempt_duration_seconds",
			Help:      "Provider attempt duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"platform", "provider"}),
		PlatformResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listing",
			Name:      "platform_results_total",
			Help:      "Terminal platform states reached by chain runs",
		}, []string{"platform", "state"}),

		LaunchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "launch",
			Name:      "launches_total",
			Help:      "Total number of launch and resume calls by result",
		}, []string{"result"}),
		MintRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "mint_retries_total",
			Help:      "Total number of mint retries after a retryable ledger error",
		}),
		MintDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "mint_duration_seconds",
			Help:      "Mint duration in seconds including confirmation",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		ActiveLaunches: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "launch",
			Name:      "active",
			Help:      "Number of launches currently running",
		}),

		StoreConflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "update_conflicts_total",
			Help:      "Total number of optimistic concurrency conflicts in token updates",
		}),
	}
}

// ObserveAttempt records one provider attempt.
func (m *Metrics) ObserveAttempt(platform string, rec domain.AttemptRecord) {
	m.AttemptsTotal.WithLabelValues(platform, rec.ProviderID, string(rec.Outcome)).Inc()
	m.AttemptDuration.WithLabelValues(platform, rec.ProviderID).Observe(float64(rec.DurationMs) / 1000)
}

// RecordPlatformResult records the state a chain run ended in.
func (m *Metrics) RecordPlatformResult(platform string, state domain.PlatformState) {
	m.PlatformResults.WithLabelValues(platform, string(state)).Inc()
}

// RecordLaunch records a finished launch or resume.
func (m *Metrics) RecordLaunch(result string) {
	m.LaunchesTotal.WithLabelValues(result).Inc()
}

// RecordMint records a mint call duration.
func (m *Metrics) RecordMint(d time.Duration) {
	m.MintDuration.Observe(d.Seconds())
}

// RecordMintRetry increments the mint retry counter.
func (m *Metrics) RecordMintRetry() {
	m.MintRetries.Inc()
}

// RecordStoreConflict has the signature of the stores' OnConflict hook.
func (m *Metrics) RecordStoreConflict(string) {
	m.StoreConflicts.Inc()
}

// Handler returns an HTTP handler for the /metrics endpoint over g.
// A nil g serves the default registry.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
