package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pitchside-live/backend/broadcast"
	"github.com/pitchside-live/backend/config"
	dbpkg "github.com/pitchside-live/backend/db"
	"github.com/pitchside-live/backend/telemetry"
	"github.com/pitchside-live/backend/ytlive"
)

// startBroadcastRequest is the POST /broadcasts/start body.
type startBroadcastRequest struct {
	GroundID    string    `json:"groundId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
}

func (r *startBroadcastRequest) validate() error {
	if r.GroundID == "" {
		return errors.New("groundId is required")
	}
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("title is required")
	}
	if r.StartTime.IsZero() {
		return errors.New("startTime is required")
	}
	return nil
}

// channelOutcomeJSON is the wire form of one channel's result.
type channelOutcomeJSON struct {
	Role             string `json:"role"`
	BroadcastID      string `json:"broadcastId,omitempty"`
	StreamID         string `json:"streamId,omitempty"`
	IngestionAddress string `json:"ingestionAddress,omitempty"`
	StreamName       string `json:"streamName,omitempty"`
	Warning          string `json:"warning,omitempty"`
	Error            string `json:"error,omitempty"`
	ErrorKind        string `json:"errorKind,omitempty"`
}

func outcomeJSON(out broadcast.ChannelOutcome) channelOutcomeJSON {
	j := channelOutcomeJSON{
		Role:        out.Role,
		BroadcastID: out.BroadcastID,
		Warning:     out.Warning,
	}
	if out.Stream != nil {
		j.StreamID = out.Stream.ID
		j.IngestionAddress = out.Stream.IngestionAddress
		j.StreamName = out.Stream.StreamName
	}
	if out.Err != nil {
		j.Error = out.Err.Error()
		j.ErrorKind = broadcast.Classify(out.Err).String()
	}
	return j
}

// HandleBroadcastStart mirrors one event from a ground onto the academy and
// company channels. Partial success returns 200 with per-channel detail; only
// a total failure is an error status.
func (h *Handlers) HandleBroadcastStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req startBroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.orch.GoLive(r.Context(), broadcast.GoLiveRequest{
		GroundID: req.GroundID,
		Meta: broadcast.Meta{
			Title:       req.Title,
			Description: req.Description,
			Start:       req.StartTime,
			End:         req.EndTime,
		},
	})
	if err != nil && result == nil {
		status := http.StatusInternalServerError
		if errors.Is(err, dbpkg.ErrGroundNotFound) {
			status = http.StatusNotFound
		} else if broadcast.Classify(err) == broadcast.KindInvalid {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	if result.Status != broadcast.StatusFailed {
		if kerr := dbpkg.SetKV(r.Context(), h.db, "job_orchestrate_last", time.Now().UTC().Format(time.RFC3339)); kerr != nil {
			slog.Warn("failed to record orchestration marker", slog.Any("err", kerr))
		}
	}

	code := http.StatusOK
	if result.Status == broadcast.StatusFailed {
		code = http.StatusBadGateway
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]any{
		"status":  result.Status,
		"academy": outcomeJSON(result.Academy),
		"company": outcomeJSON(result.Company),
	}); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}

// endBroadcastRequest is the POST /broadcasts/end body. The event is named by
// title; matching tolerates whitespace differences.
type endBroadcastRequest struct {
	GroundID string `json:"groundId"`
	Title    string `json:"title"`
}

func (r *endBroadcastRequest) validate() error {
	if r.GroundID == "" {
		return errors.New("groundId is required")
	}
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("title is required")
	}
	return nil
}

// HandleBroadcastEnd ends the active broadcasts matching a title on both of
// the ground's channels. Always 200 with a per-channel report; a channel with
// no matching broadcast reports not_found rather than failing.
func (h *Handlers) HandleBroadcastEnd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req endBroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ground, err := dbpkg.GetGround(r.Context(), h.db, req.GroundID)
	if err != nil {
		if errors.Is(err, dbpkg.ErrGroundNotFound) {
			http.Error(w, "unknown ground", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	keys := []string{config.AcademyChannelKey(ground.AcademyID), config.CompanyChannelKey}
	reports := broadcast.EndByTitle(r.Context(), h.auth, req.Title, keys,
		broadcast.MatchOptions{CaseInsensitive: h.cfg.TitleMatchCaseInsensitive})

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"academy": reports[config.AcademyChannelKey(ground.AcademyID)],
		"company": reports[config.CompanyChannelKey],
	}); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}

// liveBroadcastRequest is the POST /broadcasts/{id}/live body. The channel key
// selects whose credential drives the transition.
type liveBroadcastRequest struct {
	ChannelKey string `json:"channelKey"`
}

// HandleBroadcastsDispatcher routes /broadcasts/{id}/live.
func (h *Handlers) HandleBroadcastsDispatcher(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/broadcasts/")
	parts := strings.Split(rest, "/")
	if len(parts) == 2 && parts[1] == "live" && parts[0] != "" {
		h.handleBroadcastLive(w, r, parts[0])
		return
	}
	http.NotFound(w, r)
}

// handleBroadcastLive drives one broadcast to the live state. Failures carry
// the last observed lifecycle and ingest snapshot so the operator can see why.
func (h *Handlers) handleBroadcastLive(w http.ResponseWriter, r *http.Request, broadcastID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req liveBroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.ChannelKey == "" {
		http.Error(w, "channelKey is required", http.StatusBadRequest)
		return
	}

	api, err := h.auth.API(r.Context(), req.ChannelKey)
	if err != nil {
		if errors.Is(err, ytlive.ErrUnauthenticated) {
			http.Error(w, "channel not connected", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	snap, err := broadcast.BringLive(r.Context(), api, broadcastID, broadcast.LiveOptions{
		MaxRetries:  h.cfg.LiveMaxRetries,
		RetryBase:   h.cfg.LiveRetryBase,
		SettleDelay: h.cfg.LiveSettleDelay,
	})
	if err != nil {
		telemetry.LoggerWithCorr(r.Context()).Warn("live transition failed",
			slog.String("broadcast_id", broadcastID), slog.Any("err", err))
		status := http.StatusBadGateway
		switch broadcast.Classify(err) {
		case broadcast.KindInvalid:
			status = http.StatusConflict
		case broadcast.KindNotFound:
			status = http.StatusNotFound
		case broadcast.KindUnauthenticated:
			status = http.StatusConflict
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		resp := map[string]any{"error": err.Error(), "kind": broadcast.Classify(err).String()}
		var terr *broadcast.TransitionError
		if errors.As(err, &terr) {
			resp["snapshot"] = terr.Snapshot
			resp["retriesExhausted"] = terr.RetriesExhausted
		}
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"status": "live", "snapshot": snap}); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}
