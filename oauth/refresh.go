// Package oauth schedules background token refresh for every connected
// channel. It wakes on a jittered interval, scans the persisted token rows,
// and refreshes those whose remaining lifetime falls within the window.
package oauth

import (
	"context"
	"database/sql"
	"log/slog"
	"math/rand"
	"time"

	dbpkg "github.com/pitchside-live/backend/db"
)

// RefreshFunc performs a provider-specific refresh for one channel and returns
// the new (access, refresh, expiry, scope).
type RefreshFunc func(ctx context.Context, channelKey, refreshToken string) (string, string, time.Time, string, error)

// StartRefresher launches a goroutine that periodically scans all channel
// token rows and refreshes the ones expiring within window. Scheduling is
// jittered so multiple instances do not stampede the provider.
func StartRefresher(ctx context.Context, dbx *sql.DB, interval, window time.Duration, fn RefreshFunc) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	// Randomize initial delay to spread load across instances.
	//nolint:gosec // G404: math/rand is sufficient for scheduling jitter, not used for security
	initialJitter := time.Duration(rand.Int63n(int64(interval / 2)))
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(initialJitter):
		}
		for {
			jitterRange := int64(interval / 5)
			//nolint:gosec // G404: math/rand is sufficient for scheduling jitter, not used for security
			jitter := time.Duration(rand.Int63n(jitterRange*2) - jitterRange)
			nextSleep := interval + jitter
			if nextSleep < interval/2 {
				nextSleep = interval / 2
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(nextSleep):
			}
			RefreshDueChannels(ctx, dbx, window, fn)
		}
	}()
}

// RefreshDueChannels runs one refresh sweep over every channel row. Split out
// of the scheduling loop so it can be invoked directly.
func RefreshDueChannels(ctx context.Context, dbx *sql.DB, window time.Duration, fn RefreshFunc) {
	channels, err := dbpkg.ListTokenChannels(ctx, dbx)
	if err != nil {
		slog.Warn("listing token channels failed", slog.Any("err", err))
		return
	}
	for _, key := range channels {
		refreshChannel(ctx, dbx, key, window, fn)
		if ctx.Err() != nil {
			return
		}
	}
}

func refreshChannel(ctx context.Context, dbx *sql.DB, channelKey string, window time.Duration, fn RefreshFunc) {
	_, rt, exp, scope, err := dbpkg.GetOAuthToken(ctx, dbx, channelKey)
	if err != nil {
		slog.Warn("reading token row failed", slog.String("channel", channelKey), slog.Any("err", err))
		return
	}
	if rt == "" {
		return
	}
	if time.Until(exp) > window {
		return
	}
	// Small pre-refresh jitter to avoid stampedes when many pods see the same expiry.
	//nolint:gosec // G404: math/rand is sufficient for jitter, not used for security
	pre := time.Duration(rand.Int63n(int64(5 * time.Second)))
	select {
	case <-ctx.Done():
		return
	case <-time.After(pre):
	}
	ctx2, cancel := context.WithTimeout(ctx, 15*time.Second)
	newAT, newRT, newExp, newScope, err := fn(ctx2, channelKey, rt)
	cancel()
	if err != nil {
		slog.Warn("token refresh failed", slog.String("channel", channelKey), slog.Any("err", err))
		return
	}
	if newRT == "" {
		newRT = rt
	}
	if newScope == "" {
		newScope = scope
	}
	if err := dbpkg.UpsertOAuthToken(ctx, dbx, channelKey, newAT, newRT, newExp, newScope); err != nil {
		slog.Warn("token persist failed", slog.String("channel", channelKey), slog.Any("err", err))
		return
	}
	slog.Info("token refreshed", slog.String("channel", channelKey))
}
