package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// TokensIssued counts successful token grants per role
	TokensIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rangectl",
			Name:      "tokens_issued_total",
			Help:      "Total number of access tokens issued by the gateway",
		},
		[]string{"role"},
	)

	// TokenFailures counts failed token requests per role
	TokenFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rangectl",
			Name:      "token_failures_total",
			Help:      "Total number of failed token requests",
		},
		[]string{"role"},
	)

	// EventsProcessed counts push-channel events applied to the registry
	EventsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rangectl",
			Name:      "events_processed_total",
			Help:      "Total number of push-channel events processed",
		},
		[]string{"type"},
	)

	// EventsIgnored counts malformed or unrecognized push-channel events
	EventsIgnored = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rangectl",
			Name:      "events_ignored_total",
			Help:      "Total number of malformed or unrecognized events ignored",
		},
	)

	// StatusPolls counts status poll passes by outcome
	StatusPolls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rangectl",
			Name:      "status_polls_total",
			Help:      "Total number of status poll passes",
		},
		[]string{"outcome"},
	)

	// StaleCorrections counts reconciliation updates discarded as stale
	StaleCorrections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rangectl",
			Name:      "stale_corrections_dropped_total",
			Help:      "Total number of out-of-order corrections discarded",
		},
	)

	// HealthProbes counts idle-session validation probes by outcome
	HealthProbes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rangectl",
			Name:      "health_probes_total",
			Help:      "Total number of idle-session validation probes",
		},
		[]string{"role", "outcome"},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry.
// This function is idempotent and can be called multiple times safely.
func InitMetrics() {
	once.Do(func() {
		// Register metrics, ignoring errors if already registered
		prometheus.DefaultRegisterer.Register(TokensIssued)
		prometheus.DefaultRegisterer.Register(TokenFailures)
		prometheus.DefaultRegisterer.Register(EventsProcessed)
		prometheus.DefaultRegisterer.Register(EventsIgnored)
		prometheus.DefaultRegisterer.Register(StatusPolls)
		prometheus.DefaultRegisterer.Register(StaleCorrections)
		prometheus.DefaultRegisterer.Register(HealthProbes)
	})
}
