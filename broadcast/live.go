package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/pitchside-live/backend/telemetry"
	"github.com/pitchside-live/backend/ytlive"
)

// Fast-fail conditions of the live transition. Neither is retried: the
// operator has to fix ingestion before the broadcast can be promoted.
var (
	ErrStreamNotActive = errors.New("stream not active")
	ErrStreamUnhealthy = errors.New("stream health not good")
)

// StatusSnapshot is the last observed broadcast/stream state, attached to
// failures for diagnostics.
type StatusSnapshot struct {
	Lifecycle    string `json:"lifecycle"`
	StreamStatus string `json:"streamStatus"`
	StreamHealth string `json:"streamHealth"`
	Attempts     int    `json:"attempts"`
}

// TransitionError wraps a live-transition failure with its diagnostic snapshot.
type TransitionError struct {
	Snapshot         StatusSnapshot
	RetriesExhausted bool
	Err              error
}

func (e *TransitionError) Error() string {
	if e.RetriesExhausted {
		return fmt.Sprintf("live transition failed after %d attempts (lifecycle=%s stream=%s health=%s): %v",
			e.Snapshot.Attempts, e.Snapshot.Lifecycle, e.Snapshot.StreamStatus, e.Snapshot.StreamHealth, e.Err)
	}
	return fmt.Sprintf("live transition failed (lifecycle=%s stream=%s health=%s): %v",
		e.Snapshot.Lifecycle, e.Snapshot.StreamStatus, e.Snapshot.StreamHealth, e.Err)
}

func (e *TransitionError) Unwrap() error { return e.Err }

// LiveOptions tunes the live-transition state machine.
type LiveOptions struct {
	// MaxRetries bounds retries of transient failures; total attempts are MaxRetries+1.
	MaxRetries int
	// RetryBase is the first retry delay; subsequent delays double, with jitter.
	// The system this replaces used a fixed delay; exponential backoff is a
	// deliberate upgrade.
	RetryBase time.Duration
	// SettleDelay is how long to wait after requesting the testing state
	// before promoting to live, letting the platform stabilize the preview.
	SettleDelay time.Duration
}

// BringLive drives a broadcast from its current lifecycle state to live.
// Already-live broadcasts return immediately. An inactive or unhealthy bound
// stream fails fast without issuing any transition. Transient failures restart
// the whole attempt from the status poll, up to MaxRetries retries; exhaustion
// surfaces the last observed snapshot.
func BringLive(ctx context.Context, api ytlive.API, broadcastID string, opts LiveOptions) (StatusSnapshot, error) {
	if broadcastID == "" {
		return StatusSnapshot{}, fmt.Errorf("bring live: missing broadcast id: %w", ErrInvalid)
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = 2 * time.Second
	}
	telemetry.LiveTransitions.Inc()
	telemetry.TrackTransition(1)
	defer telemetry.TrackTransition(-1)

	logger := telemetry.LoggerWithCorr(ctx).With(slog.String("broadcast_id", broadcastID), slog.String("component", "live_transition"))

	var snap StatusSnapshot
	var lastErr error
	start := time.Now()
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if attempt > 0 {
			telemetry.LiveTransitionRetries.Inc()
			delay := backoffDelay(opts.RetryBase, attempt-1)
			logger.Warn("retrying live transition", slog.Int("attempt", attempt+1), slog.Duration("delay", delay), slog.Any("err", lastErr))
			if err := wait(ctx, delay); err != nil {
				telemetry.LiveTransitionsFailed.Inc()
				return snap, &TransitionError{Snapshot: snap, Err: err}
			}
		}
		snap.Attempts = attempt + 1

		done, err := attemptTransition(ctx, api, broadcastID, &snap, opts, logger)
		if done {
			telemetry.LiveTransitionDuration.Observe(time.Since(start).Seconds())
			logger.Info("broadcast is live", slog.Int("attempts", snap.Attempts))
			return snap, nil
		}
		if !IsRetryable(err) || ctx.Err() != nil {
			telemetry.LiveTransitionsFailed.Inc()
			return snap, &TransitionError{Snapshot: snap, Err: err}
		}
		lastErr = err
	}
	telemetry.LiveTransitionsFailed.Inc()
	return snap, &TransitionError{Snapshot: snap, RetriesExhausted: true, Err: lastErr}
}

// attemptTransition runs one pass of the state machine: poll, gate on stream
// health, stage through testing, then request live. done=true means the
// broadcast is live; otherwise err says whether the pass is worth retrying.
func attemptTransition(ctx context.Context, api ytlive.API, broadcastID string, snap *StatusSnapshot, opts LiveOptions, logger *slog.Logger) (done bool, err error) {
	bs, err := api.GetBroadcastStatus(ctx, broadcastID)
	if err != nil {
		return false, fmt.Errorf("poll broadcast: %w", err)
	}
	snap.Lifecycle = bs.Lifecycle

	// Idempotent no-op when already live.
	if bs.Lifecycle == ytlive.LifecycleLive {
		return true, nil
	}
	if bs.Lifecycle == ytlive.LifecycleComplete || bs.Lifecycle == ytlive.LifecycleRevoked {
		return false, fmt.Errorf("broadcast in terminal state %s: %w", bs.Lifecycle, ErrInvalid)
	}
	if bs.BoundStreamID == "" {
		return false, fmt.Errorf("broadcast %s has no bound stream: %w", broadcastID, ErrInvalid)
	}

	ss, err := api.GetStreamStatus(ctx, bs.BoundStreamID)
	if err != nil {
		return false, fmt.Errorf("poll stream: %w", err)
	}
	snap.StreamStatus = ss.Status
	snap.StreamHealth = ss.Health

	// A dead or degraded ingest must not be promoted; the caller has to fix
	// the encoder side first, so no amount of retrying here helps.
	if ss.Status != ytlive.StreamActive {
		return false, fmt.Errorf("stream %s: %w", bs.BoundStreamID, ErrStreamNotActive)
	}
	if ss.Health != ytlive.HealthGood {
		return false, fmt.Errorf("stream %s health %s: %w", bs.BoundStreamID, ss.Health, ErrStreamUnhealthy)
	}

	if bs.Lifecycle != ytlive.LifecycleTesting {
		b, err := api.TransitionBroadcast(ctx, broadcastID, ytlive.LifecycleTesting)
		if err != nil {
			return false, fmt.Errorf("transition to testing: %w", err)
		}
		snap.Lifecycle = b.Lifecycle
		logger.Debug("testing requested, settling", slog.Duration("settle", opts.SettleDelay))
		if err := wait(ctx, opts.SettleDelay); err != nil {
			return false, err
		}
	}

	b, err := api.TransitionBroadcast(ctx, broadcastID, ytlive.LifecycleLive)
	if err != nil {
		return false, fmt.Errorf("transition to live: %w", err)
	}
	snap.Lifecycle = b.Lifecycle
	return true, nil
}

// wait sleeps for d unless the context is canceled first. A canceled caller
// stops retrying but never unwinds already-issued remote creations.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// backoffDelay doubles the base per retry and adds up to 50% jitter.
func backoffDelay(base time.Duration, retry int) time.Duration {
	d := base << uint(retry)
	//nolint:gosec // G404: math/rand is sufficient for retry jitter, not used for security
	return d + time.Duration(rand.Int63n(int64(d/2)+1))
}
