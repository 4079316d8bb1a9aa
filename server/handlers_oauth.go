package server

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pitchside-live/backend/config"
)

// channelKeyFromQuery resolves the channel query parameter to a token-store
// key. Accepts "company", "academy:<id>", or a literal channel key.
func channelKeyFromQuery(r *http.Request) string {
	ch := strings.TrimSpace(r.URL.Query().Get("channel"))
	switch {
	case ch == "" || ch == "company":
		return config.CompanyChannelKey
	case strings.HasPrefix(ch, "academy:"):
		return config.AcademyChannelKey(strings.TrimPrefix(ch, "academy:"))
	case ch == config.CompanyChannelKey || strings.HasPrefix(ch, "youtube:academy:"):
		return ch
	default:
		return ""
	}
}

// HandleYouTubeOAuthStart initiates the consent flow for one channel. The
// generated state remembers which channel the resulting tokens belong to.
func (h *Handlers) HandleYouTubeOAuthStart(w http.ResponseWriter, r *http.Request) {
	if h.cfg.YTClientID == "" || h.cfg.YTRedirectURI == "" {
		http.Error(w, "youtube oauth not configured (need YT_CLIENT_ID + YT_REDIRECT_URI)", http.StatusBadRequest)
		return
	}
	channelKey := channelKeyFromQuery(r)
	if channelKey == "" {
		http.Error(w, "invalid channel", http.StatusBadRequest)
		return
	}
	// generate state
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		http.Error(w, "state gen error", 500)
		return
	}
	st := hex.EncodeToString(b)
	h.addOAuthState(st, channelKey, time.Now().Add(10*time.Minute))
	http.Redirect(w, r, h.auth.AuthCodeURL(st), http.StatusFound)
}

// HandleYouTubeOAuthCallback completes the consent flow and persists the
// tokens under the channel key the state was issued for.
func (h *Handlers) HandleYouTubeOAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	st := r.URL.Query().Get("state")
	if code == "" || st == "" {
		http.Error(w, "missing code/state", 400)
		return
	}
	channelKey, ok := h.takeOAuthState(st)
	if !ok {
		http.Error(w, "invalid state", 400)
		return
	}
	tok, err := h.auth.Exchange(r.Context(), channelKey, code)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"status":                "ok",
		"channel":               channelKey,
		"expiry":                tok.Expiry,
		"access_token_present":  tok.AccessToken != "",
		"refresh_token_present": tok.RefreshToken != "",
	}); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}
