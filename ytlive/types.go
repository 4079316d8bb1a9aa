// Package ytlive wraps Google OAuth2 client config and the YouTube Live
// Streaming API for creating ingestion streams, creating and binding broadcast
// events, and driving broadcast lifecycle transitions. Tokens are persisted per
// channel key via the provided TokenStore interface so they can be refreshed
// and reused by workers.
package ytlive

import (
	"context"
	"time"
)

// Broadcast lifecycle states as reported by the platform.
const (
	LifecycleCreated  = "created"
	LifecycleReady    = "ready"
	LifecycleTesting  = "testing"
	LifecycleLive     = "live"
	LifecycleComplete = "complete"
	LifecycleRevoked  = "revoked"
)

// Stream status values.
const (
	StreamActive   = "active"
	StreamInactive = "inactive"
)

// Stream health values.
const (
	HealthGood   = "good"
	HealthOK     = "ok"
	HealthBad    = "bad"
	HealthNoData = "noData"
)

// Stream describes a long-lived ingestion endpoint. Streams are reused across
// broadcasts and never deleted by this service.
type Stream struct {
	ID               string
	Title            string
	IngestionAddress string
	StreamName       string
	Resolution       string
	FrameRate        string
	IngestionType    string
}

// StreamSpec describes a stream to create.
type StreamSpec struct {
	Title         string
	Resolution    string
	FrameRate     string
	IngestionType string
}

// Broadcast describes a schedulable live event. A broadcast is created fresh
// for every go-live request, unlike streams.
type Broadcast struct {
	ID             string
	Title          string
	Description    string
	Lifecycle      string
	BoundStreamID  string
	ScheduledStart time.Time
	ScheduledEnd   time.Time
}

// BroadcastSpec describes a broadcast to create. Visibility is always public
// and the event is always declared not made for kids; auto-start/stop follow
// the deployment profile.
type BroadcastSpec struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time // zero means no scheduled end
	AutoStart   bool
	AutoStop    bool
}

// StreamStatus is the platform's live signal for an ingestion stream.
type StreamStatus struct {
	Status string // active | inactive
	Health string // good | ok | bad | noData
}

// BroadcastStatus is the platform's current view of a broadcast.
type BroadcastStatus struct {
	Lifecycle     string
	BoundStreamID string
}

// API is the remote platform boundary. Implementations are authorized for a
// single channel identity; obtain one per channel via a CredentialProvider.
type API interface {
	CreateStream(ctx context.Context, spec StreamSpec) (*Stream, error)
	GetStream(ctx context.Context, id string) (*Stream, error)
	CreateBroadcast(ctx context.Context, spec BroadcastSpec) (*Broadcast, error)
	BindBroadcastToStream(ctx context.Context, broadcastID, streamID string) error
	ListActiveBroadcasts(ctx context.Context) ([]Broadcast, error)
	TransitionBroadcast(ctx context.Context, id, target string) (*Broadcast, error)
	GetBroadcastStatus(ctx context.Context, id string) (BroadcastStatus, error)
	GetStreamStatus(ctx context.Context, id string) (StreamStatus, error)
}
