package broadcast

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pitchside-live/backend/telemetry"
	"github.com/pitchside-live/backend/ytlive"
)

// Terminator outcomes, reported independently per channel.
const (
	OutcomeEnded         = "ended"
	OutcomeNotFound      = "not_found"
	OutcomeNoCredentials = "no_credentials"
	OutcomeError         = "error"
)

// EndReport is one channel's termination result. A missing broadcast is a
// normal outcome, not an error.
type EndReport struct {
	Outcome     string `json:"outcome"`
	BroadcastID string `json:"broadcastId,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// Ended reports whether the channel's broadcast was transitioned to complete.
func (r EndReport) Ended() bool { return r.Outcome == OutcomeEnded }

// MatchOptions controls terminator title comparison. Whitespace normalization
// always applies; case sensitivity is a deployment choice.
type MatchOptions struct {
	CaseInsensitive bool
}

// NormalizeTitle trims the title and collapses internal whitespace runs to
// single spaces, so operator-entered titles compare predictably.
func NormalizeTitle(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TitlesMatch compares two titles under the normalization rules.
func TitlesMatch(a, b string, opts MatchOptions) bool {
	na, nb := NormalizeTitle(a), NormalizeTitle(b)
	if opts.CaseInsensitive {
		return strings.EqualFold(na, nb)
	}
	return na == nb
}

// EndByTitle finds the active broadcast matching title on each channel and
// transitions it to complete. Channels are searched independently; one
// channel's failure never blocks the others. The result maps channel key to report.
func EndByTitle(ctx context.Context, creds CredentialProvider, title string, channelKeys []string, opts MatchOptions) map[string]EndReport {
	reports := make([]EndReport, len(channelKeys))

	var g errgroup.Group
	for i, key := range channelKeys {
		g.Go(func() error {
			reports[i] = endOnChannel(ctx, creds, title, key, opts)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]EndReport, len(channelKeys))
	for i, key := range channelKeys {
		out[key] = reports[i]
	}
	return out
}

func endOnChannel(ctx context.Context, creds CredentialProvider, title, channelKey string, opts MatchOptions) EndReport {
	logger := telemetry.LoggerWithCorr(ctx).With(slog.String("channel", channelKey), slog.String("component", "terminator"))

	api, err := creds.API(ctx, channelKey)
	if err != nil {
		if Classify(err) == KindUnauthenticated {
			logger.Warn("no credentials for channel")
			return EndReport{Outcome: OutcomeNoCredentials, Detail: err.Error()}
		}
		logger.Warn("credential provider failed", slog.Any("err", err))
		return EndReport{Outcome: OutcomeError, Detail: err.Error()}
	}

	active, err := api.ListActiveBroadcasts(ctx)
	if err != nil {
		logger.Warn("list active broadcasts failed", slog.String("kind", Classify(err).String()), slog.Any("err", err))
		return EndReport{Outcome: OutcomeError, Detail: err.Error()}
	}

	for _, b := range active {
		if !TitlesMatch(b.Title, title, opts) {
			continue
		}
		if _, err := api.TransitionBroadcast(ctx, b.ID, ytlive.LifecycleComplete); err != nil {
			logger.Warn("transition to complete failed", slog.String("broadcast_id", b.ID), slog.Any("err", err))
			return EndReport{Outcome: OutcomeError, BroadcastID: b.ID, Detail: err.Error()}
		}
		telemetry.BroadcastsEnded.Inc()
		logger.Info("broadcast ended", slog.String("broadcast_id", b.ID), slog.String("title", b.Title))
		return EndReport{Outcome: OutcomeEnded, BroadcastID: b.ID}
	}
	logger.Info("no active broadcast matched title", slog.String("title", NormalizeTitle(title)))
	return EndReport{Outcome: OutcomeNotFound}
}
