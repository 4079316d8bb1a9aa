// Package server exposes the HTTP control plane: go-live orchestration,
// termination, per-channel OAuth connect flows, health, status, and metrics.
// It injects correlation IDs into request contexts for consistent logging.
package server

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/pitchside-live/backend/broadcast"
	"github.com/pitchside-live/backend/config"
	dbpkg "github.com/pitchside-live/backend/db"
	"github.com/pitchside-live/backend/ytlive"
)

const (
	// Maximum number of pending OAuth states to keep in memory
	maxOAuthStates = 10000
)

// oauthState is one pending consent flow: which channel the resulting tokens
// belong to, and when the state expires.
type oauthState struct {
	channelKey string
	expiry     time.Time
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	db         *sql.DB
	ctx        context.Context
	cfg        *config.Config
	auth       *ytlive.Auth
	orch       *broadcast.Orchestrator
	stateStore map[string]oauthState
	stateMu    sync.RWMutex
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(ctx context.Context, db *sql.DB) *Handlers {
	cfg, _ := config.Load()
	auth := ytlive.NewAuth(cfg, &dbpkg.TokenStoreAdapter{DB: db})
	return &Handlers{
		db:         db,
		ctx:        ctx,
		cfg:        cfg,
		auth:       auth,
		orch:       broadcast.NewOrchestrator(cfg, auth, &broadcast.SQLStore{DB: db}),
		stateStore: make(map[string]oauthState),
	}
}

// addOAuthState records a pending state with cleanup if needed.
func (h *Handlers) addOAuthState(state, channelKey string, expiry time.Time) {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()

	// Clean expired states periodically to prevent unbounded growth
	if len(h.stateStore)%100 == 0 {
		h.cleanExpiredStates()
	}

	// Over the cap, refuse to add more; the flow fails rather than the process
	// being exhausted by unconsumed states.
	if len(h.stateStore) >= maxOAuthStates {
		return
	}

	h.stateStore[state] = oauthState{channelKey: channelKey, expiry: expiry}
}

// takeOAuthState consumes a pending state, returning its channel key. ok is
// false for unknown or expired states.
func (h *Handlers) takeOAuthState(state string) (string, bool) {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	st, ok := h.stateStore[state]
	if !ok {
		return "", false
	}
	delete(h.stateStore, state)
	if time.Now().After(st.expiry) {
		return "", false
	}
	return st.channelKey, true
}

// cleanExpiredStates removes expired OAuth states from the store.
// This should be called with stateMu locked.
func (h *Handlers) cleanExpiredStates() {
	now := time.Now()
	for state, st := range h.stateStore {
		if now.After(st.expiry) {
			delete(h.stateStore, state)
		}
	}
}
