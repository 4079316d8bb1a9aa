package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	dbpkg "github.com/pitchside-live/backend/db"
)

// upsertAcademyRequest is the POST /admin/academies body.
type upsertAcademyRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// HandleAdminAcademies creates or renames an academy.
func (h *Handlers) HandleAdminAcademies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req upsertAcademyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.ID == "" || strings.TrimSpace(req.Name) == "" {
		http.Error(w, "id and name are required", http.StatusBadRequest)
		return
	}
	if err := dbpkg.UpsertAcademy(r.Context(), h.db, req.ID, req.Name); err != nil {
		slog.Error("academy upsert failed", slog.String("id", req.ID), slog.Any("err", err))
		http.Error(w, "failed to save academy", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// upsertGroundRequest is the POST /admin/grounds body.
type upsertGroundRequest struct {
	ID        string `json:"id"`
	AcademyID string `json:"academyId"`
	Title     string `json:"title"`
}

// HandleAdminGrounds creates or retitles a ground. Remembered stream ids are
// never touched through this endpoint.
func (h *Handlers) HandleAdminGrounds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req upsertGroundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.ID == "" || req.AcademyID == "" || strings.TrimSpace(req.Title) == "" {
		http.Error(w, "id, academyId and title are required", http.StatusBadRequest)
		return
	}
	if err := dbpkg.UpsertGround(r.Context(), h.db, req.ID, req.AcademyID, req.Title); err != nil {
		slog.Error("ground upsert failed", slog.String("id", req.ID), slog.Any("err", err))
		http.Error(w, "failed to save ground", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGroundGet returns one ground with its remembered stream ids.
func (h *Handlers) HandleGroundGet(w http.ResponseWriter, r *http.Request, groundID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	g, err := dbpkg.GetGround(r.Context(), h.db, groundID)
	if err != nil {
		if errors.Is(err, dbpkg.ErrGroundNotFound) {
			http.Error(w, "unknown ground", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"id":              g.ID,
		"academyId":       g.AcademyID,
		"title":           g.Title,
		"academyStreamId": g.AcademyStreamID,
		"companyStreamId": g.CompanyStreamID,
	}); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}

// HandleStatus returns a lightweight status summary: connected channels,
// ground counts, tuning in effect, and job heartbeats.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	resp := map[string]any{}

	var academies, grounds, withAcademyStream, withCompanyStream int
	_ = h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM academies`).Scan(&academies)
	_ = h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM grounds`).Scan(&grounds)
	_ = h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM grounds WHERE COALESCE(academy_stream_id,'')<>''`).Scan(&withAcademyStream)
	_ = h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM grounds WHERE COALESCE(company_stream_id,'')<>''`).Scan(&withCompanyStream)
	resp["academies"] = academies
	resp["grounds"] = grounds
	resp["grounds_with_academy_stream"] = withAcademyStream
	resp["grounds_with_company_stream"] = withCompanyStream

	if channels, err := dbpkg.ListTokenChannels(ctx, h.db); err == nil {
		resp["connected_channels"] = channels
	}

	resp["live_config"] = map[string]any{
		"max_retries":  h.cfg.LiveMaxRetries,
		"retry_base":   h.cfg.LiveRetryBase.String(),
		"settle_delay": h.cfg.LiveSettleDelay.String(),
	}
	resp["broadcast_profile"] = map[string]bool{
		"auto_start": h.cfg.BroadcastAutoStart,
		"auto_stop":  h.cfg.BroadcastAutoStop,
	}

	// Job heartbeats
	for _, k := range []string{"job_heartbeat", "job_token_refresh_last", "job_orchestrate_last"} {
		if v, err := dbpkg.GetKV(ctx, h.db, k); err == nil && v != "" {
			resp[k] = v
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}
