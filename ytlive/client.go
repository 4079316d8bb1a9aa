package ytlive

import (
	"context"
	"fmt"
	"time"

	yt "google.golang.org/api/youtube/v3"
)

// NotFoundError reports a stream or broadcast id that does not resolve on the platform.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found on platform", e.Resource, e.ID)
}

// Client implements API over a per-channel authorized *yt.Service.
type Client struct {
	svc *yt.Service
}

// NewClient wraps an authorized YouTube service.
func NewClient(svc *yt.Service) *Client { return &Client{svc: svc} }

func (c *Client) CreateStream(ctx context.Context, spec StreamSpec) (*Stream, error) {
	ls := &yt.LiveStream{
		Snippet: &yt.LiveStreamSnippet{Title: spec.Title},
		Cdn: &yt.CdnSettings{
			Resolution:    spec.Resolution,
			FrameRate:     spec.FrameRate,
			IngestionType: spec.IngestionType,
		},
	}
	res, err := c.svc.LiveStreams.Insert([]string{"snippet", "cdn", "status"}, ls).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("create stream: %w", err)
	}
	return streamFromPlatform(res), nil
}

func (c *Client) GetStream(ctx context.Context, id string) (*Stream, error) {
	res, err := c.svc.LiveStreams.List([]string{"snippet", "cdn", "status"}).Id(id).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get stream: %w", err)
	}
	if len(res.Items) == 0 {
		return nil, &NotFoundError{Resource: "stream", ID: id}
	}
	return streamFromPlatform(res.Items[0]), nil
}

func (c *Client) CreateBroadcast(ctx context.Context, spec BroadcastSpec) (*Broadcast, error) {
	lb := &yt.LiveBroadcast{
		Snippet: &yt.LiveBroadcastSnippet{
			Title:              spec.Title,
			Description:        spec.Description,
			ScheduledStartTime: spec.Start.UTC().Format(time.RFC3339),
		},
		Status: &yt.LiveBroadcastStatus{
			PrivacyStatus:           "public",
			SelfDeclaredMadeForKids: false,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
		ContentDetails: &yt.LiveBroadcastContentDetails{
			EnableAutoStart: spec.AutoStart,
			EnableAutoStop:  spec.AutoStop,
		},
	}
	if !spec.End.IsZero() {
		lb.Snippet.ScheduledEndTime = spec.End.UTC().Format(time.RFC3339)
	}
	res, err := c.svc.LiveBroadcasts.Insert([]string{"snippet", "status", "contentDetails"}, lb).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("create broadcast: %w", err)
	}
	return broadcastFromPlatform(res), nil
}

func (c *Client) BindBroadcastToStream(ctx context.Context, broadcastID, streamID string) error {
	_, err := c.svc.LiveBroadcasts.Bind(broadcastID, []string{"id", "contentDetails"}).
		StreamId(streamID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("bind broadcast %s to stream %s: %w", broadcastID, streamID, err)
	}
	return nil
}

func (c *Client) ListActiveBroadcasts(ctx context.Context) ([]Broadcast, error) {
	res, err := c.svc.LiveBroadcasts.List([]string{"id", "snippet", "status", "contentDetails"}).
		BroadcastStatus("active").BroadcastType("all").MaxResults(50).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list active broadcasts: %w", err)
	}
	out := make([]Broadcast, 0, len(res.Items))
	for _, item := range res.Items {
		out = append(out, *broadcastFromPlatform(item))
	}
	return out, nil
}

func (c *Client) TransitionBroadcast(ctx context.Context, id, target string) (*Broadcast, error) {
	res, err := c.svc.LiveBroadcasts.Transition(target, id, []string{"id", "snippet", "status"}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("transition broadcast %s to %s: %w", id, target, err)
	}
	return broadcastFromPlatform(res), nil
}

func (c *Client) GetBroadcastStatus(ctx context.Context, id string) (BroadcastStatus, error) {
	res, err := c.svc.LiveBroadcasts.List([]string{"id", "status", "contentDetails"}).Id(id).Context(ctx).Do()
	if err != nil {
		return BroadcastStatus{}, fmt.Errorf("get broadcast status: %w", err)
	}
	if len(res.Items) == 0 {
		return BroadcastStatus{}, &NotFoundError{Resource: "broadcast", ID: id}
	}
	item := res.Items[0]
	if item.Status == nil {
		return BroadcastStatus{}, fmt.Errorf("broadcast %s has no status part", id)
	}
	st := BroadcastStatus{Lifecycle: item.Status.LifeCycleStatus}
	if item.ContentDetails != nil {
		st.BoundStreamID = item.ContentDetails.BoundStreamId
	}
	return st, nil
}

func (c *Client) GetStreamStatus(ctx context.Context, id string) (StreamStatus, error) {
	res, err := c.svc.LiveStreams.List([]string{"id", "status"}).Id(id).Context(ctx).Do()
	if err != nil {
		return StreamStatus{}, fmt.Errorf("get stream status: %w", err)
	}
	if len(res.Items) == 0 {
		return StreamStatus{}, &NotFoundError{Resource: "stream", ID: id}
	}
	st := res.Items[0].Status
	if st == nil {
		return StreamStatus{}, fmt.Errorf("stream %s has no status part", id)
	}
	out := StreamStatus{Status: st.StreamStatus, Health: HealthNoData}
	if st.HealthStatus != nil && st.HealthStatus.Status != "" {
		out.Health = st.HealthStatus.Status
	}
	return out, nil
}

func streamFromPlatform(ls *yt.LiveStream) *Stream {
	s := &Stream{ID: ls.Id}
	if ls.Snippet != nil {
		s.Title = ls.Snippet.Title
	}
	if ls.Cdn != nil {
		s.Resolution = ls.Cdn.Resolution
		s.FrameRate = ls.Cdn.FrameRate
		s.IngestionType = ls.Cdn.IngestionType
		if ls.Cdn.IngestionInfo != nil {
			s.IngestionAddress = ls.Cdn.IngestionInfo.IngestionAddress
			s.StreamName = ls.Cdn.IngestionInfo.StreamName
		}
	}
	return s
}

func broadcastFromPlatform(lb *yt.LiveBroadcast) *Broadcast {
	b := &Broadcast{ID: lb.Id}
	if lb.Snippet != nil {
		b.Title = lb.Snippet.Title
		b.Description = lb.Snippet.Description
		if t, err := time.Parse(time.RFC3339, lb.Snippet.ScheduledStartTime); err == nil {
			b.ScheduledStart = t
		}
		if t, err := time.Parse(time.RFC3339, lb.Snippet.ScheduledEndTime); err == nil {
			b.ScheduledEnd = t
		}
	}
	if lb.Status != nil {
		b.Lifecycle = lb.Status.LifeCycleStatus
	}
	if lb.ContentDetails != nil {
		b.BoundStreamID = lb.ContentDetails.BoundStreamId
	}
	return b
}
