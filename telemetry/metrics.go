// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	Orchestrations        prometheus.Counter
	OrchestrationsPartial prometheus.Counter
	OrchestrationsFailed  prometheus.Counter
	StreamsCreated        prometheus.Counter
	StreamsReused         prometheus.Counter
	BroadcastsCreated     prometheus.Counter
	BroadcastsOrphaned    prometheus.Counter
	BroadcastsEnded       prometheus.Counter
	LiveTransitions       prometheus.Counter
	LiveTransitionRetries prometheus.Counter
	LiveTransitionsFailed prometheus.Counter

	// Histograms (seconds)
	OrchestrationDuration  prometheus.Observer
	LiveTransitionDuration prometheus.Observer

	// Gauges
	ActiveTransitionsGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		Orchestrations = promauto.NewCounter(prometheus.CounterOpts{Name: "broadcast_orchestrations_total", Help: "Number of dual-channel go-live orchestrations started"})
		OrchestrationsPartial = promauto.NewCounter(prometheus.CounterOpts{Name: "broadcast_orchestrations_partial_total", Help: "Orchestrations where exactly one channel succeeded"})
		OrchestrationsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "broadcast_orchestrations_failed_total", Help: "Orchestrations where no channel succeeded"})
		StreamsCreated = promauto.NewCounter(prometheus.CounterOpts{Name: "broadcast_streams_created_total", Help: "Ingestion streams created on the remote platform"})
		StreamsReused = promauto.NewCounter(prometheus.CounterOpts{Name: "broadcast_streams_reused_total", Help: "Ingestion streams resolved from remembered ids"})
		BroadcastsCreated = promauto.NewCounter(prometheus.CounterOpts{Name: "broadcast_broadcasts_created_total", Help: "Broadcast events created on the remote platform"})
		BroadcastsOrphaned = promauto.NewCounter(prometheus.CounterOpts{Name: "broadcast_broadcasts_orphaned_total", Help: "Broadcasts created remotely but left unbound after a bind failure"})
		BroadcastsEnded = promauto.NewCounter(prometheus.CounterOpts{Name: "broadcast_broadcasts_ended_total", Help: "Broadcasts transitioned to complete by the terminator"})
		LiveTransitions = promauto.NewCounter(prometheus.CounterOpts{Name: "broadcast_live_transitions_total", Help: "bringLive invocations"})
		LiveTransitionRetries = promauto.NewCounter(prometheus.CounterOpts{Name: "broadcast_live_transition_retries_total", Help: "Retried live transition attempts"})
		LiveTransitionsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "broadcast_live_transitions_failed_total", Help: "bringLive calls that exhausted retries or failed fast"})
		OrchestrationDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "broadcast_orchestration_duration_seconds", Help: "Dual-channel orchestration duration seconds", Buckets: prometheus.DefBuckets})
		LiveTransitionDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "broadcast_live_transition_duration_seconds", Help: "bringLive duration seconds", Buckets: prometheus.DefBuckets})
		ActiveTransitionsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "broadcast_active_live_transitions", Help: "Live transitions currently in flight"})
	})
}

// TrackTransition adjusts the in-flight transition gauge.
func TrackTransition(delta float64) {
	if ActiveTransitionsGauge != nil {
		ActiveTransitionsGauge.Add(delta)
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
