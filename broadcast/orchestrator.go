package broadcast

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/pitchside-live/backend/config"
	"github.com/pitchside-live/backend/db"
	"github.com/pitchside-live/backend/telemetry"
	"github.com/pitchside-live/backend/ytlive"
)

// CredentialProvider supplies an authorized platform client per channel key.
// Implemented by ytlive.Auth.
type CredentialProvider interface {
	API(ctx context.Context, channelKey string) (ytlive.API, error)
}

// Orchestration result statuses.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// ChannelOutcome is the per-channel result of one go-live orchestration.
type ChannelOutcome struct {
	Role        string
	ChannelKey  string
	BroadcastID string
	Stream      *ytlive.Stream
	Warning     string
	Err         error
}

// GoLiveResult aggregates both channel outcomes. Status is success when both
// channels succeeded, partial when exactly one did, failed when neither did.
type GoLiveResult struct {
	Status  string
	Academy ChannelOutcome
	Company ChannelOutcome
}

// GoLiveRequest asks for the event to be mirrored from a ground onto both channels.
type GoLiveRequest struct {
	GroundID string
	Meta     Meta
}

// Orchestrator runs the resolve + create + bind sequence for the academy and
// company channels of one logical event. The company channel key is an
// explicit, configuration-resolved tenant reference.
type Orchestrator struct {
	Creds          CredentialProvider
	Store          GroundStore
	CompanyKey     string
	StreamDefaults ytlive.StreamSpec
	Profile        Profile
}

// NewOrchestrator wires an orchestrator from deployment config.
func NewOrchestrator(cfg *config.Config, creds CredentialProvider, store GroundStore) *Orchestrator {
	return &Orchestrator{
		Creds:      creds,
		Store:      store,
		CompanyKey: config.CompanyChannelKey,
		StreamDefaults: ytlive.StreamSpec{
			Resolution:    cfg.StreamResolution,
			FrameRate:     cfg.StreamFrameRate,
			IngestionType: cfg.StreamIngestionType,
		},
		Profile: Profile{AutoStart: cfg.BroadcastAutoStart, AutoStop: cfg.BroadcastAutoStop},
	}
}

// GoLive runs both channel sub-flows independently. A failure on one channel
// never prevents the other from being attempted; partial success is a valid,
// reportable outcome. The returned error is non-nil only when neither channel
// succeeded (or the request itself was unusable).
func (o *Orchestrator) GoLive(ctx context.Context, req GoLiveRequest) (*GoLiveResult, error) {
	if req.GroundID == "" {
		return nil, fmt.Errorf("go live: missing ground id: %w", ErrInvalid)
	}
	if err := req.Meta.validate(); err != nil {
		return nil, err
	}
	telemetry.Orchestrations.Inc()

	ground, err := o.Store.GetGround(ctx, req.GroundID)
	if err != nil {
		return nil, fmt.Errorf("load ground %s: %w", req.GroundID, err)
	}

	result := &GoLiveResult{
		Academy: ChannelOutcome{Role: db.RoleAcademy, ChannelKey: config.AcademyChannelKey(ground.AcademyID)},
		Company: ChannelOutcome{Role: db.RoleCompany, ChannelKey: o.CompanyKey},
	}

	// Plain errgroup without WithContext: the two sub-flows must stay
	// independent, so one failure must not cancel the sibling.
	telemetry.TimeFunc(telemetry.OrchestrationDuration, func() {
		var g errgroup.Group
		g.Go(func() error {
			o.runChannel(ctx, ground, &result.Academy, req.Meta)
			return nil
		})
		g.Go(func() error {
			o.runChannel(ctx, ground, &result.Company, req.Meta)
			return nil
		})
		_ = g.Wait()
	})

	successes := 0
	for _, out := range []*ChannelOutcome{&result.Academy, &result.Company} {
		if out.Err == nil {
			successes++
		}
	}
	switch successes {
	case 2:
		result.Status = StatusSuccess
	case 1:
		result.Status = StatusPartial
		telemetry.OrchestrationsPartial.Inc()
	default:
		result.Status = StatusFailed
		telemetry.OrchestrationsFailed.Inc()
		return result, fmt.Errorf("go live for ground %s: both channels failed (academy: %v; company: %v)",
			req.GroundID, result.Academy.Err, result.Company.Err)
	}
	return result, nil
}

// runChannel executes resolve + create + bind for a single channel, recording
// the outcome in place. All failures are absorbed into the outcome.
func (o *Orchestrator) runChannel(ctx context.Context, ground *db.Ground, out *ChannelOutcome, meta Meta) {
	logger := telemetry.LoggerWithCorr(ctx).With(
		slog.String("ground_id", ground.ID), slog.String("role", out.Role), slog.String("component", "orchestrator"))

	api, err := o.Creds.API(ctx, out.ChannelKey)
	if err != nil {
		logger.Warn("channel credential unavailable", slog.String("kind", Classify(err).String()), slog.Any("err", err))
		out.Err = err
		return
	}
	res, err := ResolveStream(ctx, api, o.Store, ground, out.Role, o.StreamDefaults)
	if err != nil {
		logger.Warn("stream resolution failed", slog.String("kind", Classify(err).String()), slog.Any("err", err))
		out.Err = err
		return
	}
	out.Stream = res.Stream
	out.Warning = res.Warning

	bound, err := CreateAndBind(ctx, api, res.Stream, meta, o.Profile)
	if err != nil {
		logger.Warn("broadcast create/bind failed", slog.String("kind", Classify(err).String()), slog.Any("err", err))
		out.Err = err
		return
	}
	out.BroadcastID = bound.BroadcastID
	logger.Info("channel ready", slog.String("broadcast_id", bound.BroadcastID), slog.String("stream_id", res.Stream.ID))
}
