package broadcast

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/pitchside-live/backend/db"
	"github.com/pitchside-live/backend/telemetry"
	"github.com/pitchside-live/backend/ytlive"
)

// GroundStore is the persistence boundary the resolver and orchestrator need.
// Implemented by SQLStore; tests substitute an in-memory fake.
type GroundStore interface {
	GetGround(ctx context.Context, id string) (*db.Ground, error)
	RememberStreamID(ctx context.Context, groundID, role, streamID string) (string, error)
}

// SQLStore backs GroundStore with Postgres.
type SQLStore struct{ DB *sql.DB }

func (s *SQLStore) GetGround(ctx context.Context, id string) (*db.Ground, error) {
	return db.GetGround(ctx, s.DB, id)
}

func (s *SQLStore) RememberStreamID(ctx context.Context, groundID, role, streamID string) (string, error) {
	return db.RememberStreamID(ctx, s.DB, groundID, role, streamID)
}

// Resolution is the outcome of resolving a (ground, role) pair to a stream.
type Resolution struct {
	Stream *ytlive.Stream
	// Created is true when a new remote stream was created on this call.
	Created bool
	// Warning carries a non-fatal inconsistency note (e.g. remote stream
	// created but the persistence write failed).
	Warning string
}

// StreamTitle derives the deterministic stream name for a (ground, role) pair
// so operators can recognize it on the remote platform.
func StreamTitle(ground *db.Ground, role string) string {
	return fmt.Sprintf("%s [%s] %s", ground.Title, role, ground.ID)
}

// ResolveStream returns the ground's reusable ingestion stream for a channel
// role, creating one if no remembered id exists or the remembered id no longer
// resolves. Unauthenticated and malformed-input errors propagate; fetch
// failures on the remembered id degrade to the creation path.
func ResolveStream(ctx context.Context, api ytlive.API, store GroundStore, ground *db.Ground, role string, defaults ytlive.StreamSpec) (*Resolution, error) {
	if ground == nil || ground.ID == "" {
		return nil, fmt.Errorf("resolve stream: missing ground: %w", ErrInvalid)
	}
	remembered, err := ground.StreamIDForRole(role)
	if err != nil {
		return nil, fmt.Errorf("resolve stream: %w: %v", ErrInvalid, err)
	}
	logger := telemetry.LoggerWithCorr(ctx).With(slog.String("ground_id", ground.ID), slog.String("role", role), slog.String("component", "stream_resolver"))

	if remembered != "" {
		s, err := api.GetStream(ctx, remembered)
		if err == nil {
			logger.Debug("reusing remembered stream", slog.String("stream_id", remembered))
			telemetry.StreamsReused.Inc()
			return &Resolution{Stream: s}, nil
		}
		if Classify(err) == KindUnauthenticated {
			return nil, err
		}
		// Expected degrade path: the remembered id no longer resolves
		// (deleted remotely, permission change, or a transient fetch error).
		logger.Warn("remembered stream no longer resolves, creating a new one",
			slog.String("stream_id", remembered), slog.String("kind", Classify(err).String()), slog.Any("err", err))
	}

	spec := defaults
	spec.Title = StreamTitle(ground, role)
	created, err := api.CreateStream(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("create stream for ground %s role %s: %w", ground.ID, role, err)
	}
	telemetry.StreamsCreated.Inc()
	logger.Info("created ingestion stream", slog.String("stream_id", created.ID), slog.String("title", spec.Title))

	winner, err := store.RememberStreamID(ctx, ground.ID, role, created.ID)
	if err != nil {
		// The stream exists remotely but the local write failed. Surface as a
		// warning on an otherwise successful result, not an error.
		warn := fmt.Sprintf("stream %s created but not persisted: %v", created.ID, err)
		logger.Error("stream id persistence failed", slog.String("stream_id", created.ID), slog.String("kind", KindInconsistent.String()), slog.Any("err", err))
		return &Resolution{Stream: created, Created: true, Warning: warn}, nil
	}
	if winner != created.ID {
		// A concurrent request won the first-write race; converge on its stream.
		logger.Warn("lost stream creation race, reusing winner", slog.String("created", created.ID), slog.String("winner", winner))
		if ws, werr := api.GetStream(ctx, winner); werr == nil {
			return &Resolution{Stream: ws, Warning: fmt.Sprintf("concurrent creation, stream %s left unused", created.ID)}, nil
		}
		// Winner unreadable; fall back to the stream we just created.
		return &Resolution{Stream: created, Created: true, Warning: "persisted stream id unreadable, using freshly created stream"}, nil
	}
	return &Resolution{Stream: created, Created: true}, nil
}
