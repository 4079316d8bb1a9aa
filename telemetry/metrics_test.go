package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestInitIdempotent(t *testing.T) {
	Init()
	// A second Init must not re-register collectors (promauto panics on duplicates).
	Init()
	if Orchestrations == nil || LiveTransitionDuration == nil || ActiveTransitionsGauge == nil {
		t.Fatalf("metrics not initialized")
	}
}

func TestTimeFunc(t *testing.T) {
	Init()
	d := TimeFunc(LiveTransitionDuration, func() { time.Sleep(5 * time.Millisecond) })
	if d < 5*time.Millisecond {
		t.Errorf("TimeFunc duration = %v, want >= 5ms", d)
	}
	// nil observer must be safe
	if d := TimeFunc(nil, func() {}); d < 0 {
		t.Errorf("negative duration %v", d)
	}
}

func TestCorrelation(t *testing.T) {
	ctx := context.Background()
	if got := GetCorrelation(ctx); got != "" {
		t.Errorf("GetCorrelation on empty ctx = %q", got)
	}
	ctx = WithCorrelation(ctx, "corr-123")
	if got := GetCorrelation(ctx); got != "corr-123" {
		t.Errorf("GetCorrelation = %q, want corr-123", got)
	}
	if LoggerWithCorr(ctx) == nil {
		t.Fatalf("LoggerWithCorr returned nil")
	}
}
