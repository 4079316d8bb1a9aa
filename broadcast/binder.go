package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pitchside-live/backend/telemetry"
	"github.com/pitchside-live/backend/ytlive"
)

// Meta is the logical event metadata shared by both channels of one go-live request.
type Meta struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time // optional
}

func (m Meta) validate() error {
	if m.Title == "" {
		return fmt.Errorf("broadcast meta: missing title: %w", ErrInvalid)
	}
	if m.Start.IsZero() {
		return fmt.Errorf("broadcast meta: missing start time: %w", ErrInvalid)
	}
	return nil
}

// Profile selects the auto-start/auto-stop behavior of created broadcasts.
// Historical deployments disagreed on these flags, so they are explicit
// per-deployment configuration.
type Profile struct {
	AutoStart bool
	AutoStop  bool
}

// BoundBroadcast is the composite descriptor returned after a successful
// create + bind: the broadcast id plus the resolved stream's ingestion details.
type BoundBroadcast struct {
	BroadcastID string
	Stream      ytlive.Stream
}

// CreateAndBind creates a fresh public broadcast for the event metadata and
// binds it to the resolved stream. Creation failure aborts before bind. A bind
// failure leaves an orphaned broadcast on the remote platform; this is accepted
// operational debt, counted and logged distinctly, and reported to the caller.
func CreateAndBind(ctx context.Context, api ytlive.API, stream *ytlive.Stream, meta Meta, profile Profile) (*BoundBroadcast, error) {
	if stream == nil || stream.ID == "" {
		return nil, fmt.Errorf("bind: missing stream: %w", ErrInvalid)
	}
	if err := meta.validate(); err != nil {
		return nil, err
	}
	logger := telemetry.LoggerWithCorr(ctx).With(slog.String("stream_id", stream.ID), slog.String("component", "broadcast_binder"))

	b, err := api.CreateBroadcast(ctx, ytlive.BroadcastSpec{
		Title:       meta.Title,
		Description: meta.Description,
		Start:       meta.Start,
		End:         meta.End,
		AutoStart:   profile.AutoStart,
		AutoStop:    profile.AutoStop,
	})
	if err != nil {
		return nil, fmt.Errorf("create broadcast %q: %w", meta.Title, err)
	}
	telemetry.BroadcastsCreated.Inc()
	logger.Info("created broadcast", slog.String("broadcast_id", b.ID), slog.String("title", meta.Title))

	if err := api.BindBroadcastToStream(ctx, b.ID, stream.ID); err != nil {
		telemetry.BroadcastsOrphaned.Inc()
		logger.Error("bind failed, broadcast left orphaned on platform",
			slog.String("broadcast_id", b.ID), slog.String("kind", KindInconsistent.String()), slog.Any("err", err))
		return nil, fmt.Errorf("broadcast %s created but unbound: %w", b.ID, err)
	}
	logger.Info("bound broadcast to stream", slog.String("broadcast_id", b.ID))
	return &BoundBroadcast{BroadcastID: b.ID, Stream: *stream}, nil
}
