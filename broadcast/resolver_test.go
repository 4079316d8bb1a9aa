package broadcast

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/api/googleapi"

	"github.com/pitchside-live/backend/db"
	"github.com/pitchside-live/backend/ytlive"
)

var testDefaults = ytlive.StreamSpec{Resolution: "1080p", FrameRate: "30fps", IngestionType: "rtmp"}

func testGround() *db.Ground {
	return &db.Ground{ID: "g1", AcademyID: "aca-1", Title: "Main Pitch"}
}

func TestResolveStreamCreatesWhenNoRememberedID(t *testing.T) {
	api := &fakeAPI{}
	store := newMemStore(testGround())

	res, err := ResolveStream(context.Background(), api, store, testGround(), db.RoleAcademy, testDefaults)
	if err != nil {
		t.Fatalf("ResolveStream: %v", err)
	}
	if !res.Created {
		t.Errorf("expected Created=true")
	}
	if api.createStreamCalls != 1 || api.getStreamCalls != 0 {
		t.Errorf("calls: create=%d get=%d", api.createStreamCalls, api.getStreamCalls)
	}
	g, _ := store.GetGround(context.Background(), "g1")
	if g.AcademyStreamID != res.Stream.ID {
		t.Errorf("persisted id %q != resolved %q", g.AcademyStreamID, res.Stream.ID)
	}
}

func TestResolveStreamIdempotent(t *testing.T) {
	api := &fakeAPI{}
	store := newMemStore(testGround())
	ctx := context.Background()

	first, err := ResolveStream(ctx, api, store, testGround(), db.RoleCompany, testDefaults)
	if err != nil {
		t.Fatal(err)
	}
	// Second resolution sees the persisted id on a fresh ground read.
	g, _ := store.GetGround(ctx, "g1")
	second, err := ResolveStream(ctx, api, store, g, db.RoleCompany, testDefaults)
	if err != nil {
		t.Fatal(err)
	}
	if first.Stream.ID != second.Stream.ID {
		t.Errorf("ids differ: %q vs %q", first.Stream.ID, second.Stream.ID)
	}
	if api.createStreamCalls != 1 {
		t.Errorf("createStream called %d times, want 1", api.createStreamCalls)
	}
	if second.Created {
		t.Errorf("second resolution should reuse, not create")
	}
}

func TestResolveStreamDegradesOnStaleID(t *testing.T) {
	g := testGround()
	g.AcademyStreamID = "stale-stream"
	api := &fakeAPI{
		getStreamFn: func(id string) (*ytlive.Stream, error) {
			return nil, &ytlive.NotFoundError{Resource: "stream", ID: id}
		},
	}
	store := newMemStore(g)

	res, err := ResolveStream(context.Background(), api, store, g, db.RoleAcademy, testDefaults)
	if err != nil {
		t.Fatalf("expected degrade to creation, got %v", err)
	}
	if !res.Created {
		t.Errorf("expected a fresh stream after stale id")
	}
	if res.Stream.ID == "stale-stream" {
		t.Errorf("stale id should not be returned")
	}
}

func TestResolveStreamPropagatesUnauthenticated(t *testing.T) {
	g := testGround()
	g.AcademyStreamID = "s-1"
	api := &fakeAPI{
		getStreamFn: func(string) (*ytlive.Stream, error) {
			return nil, fmt.Errorf("channel: %w", ytlive.ErrUnauthenticated)
		},
	}
	store := newMemStore(g)

	_, err := ResolveStream(context.Background(), api, store, g, db.RoleAcademy, testDefaults)
	if !errors.Is(err, ytlive.ErrUnauthenticated) {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
	if api.createStreamCalls != 0 {
		t.Errorf("must not create a stream on auth failure")
	}
}

func TestResolveStreamInvalidInput(t *testing.T) {
	api := &fakeAPI{}
	store := newMemStore()
	if _, err := ResolveStream(context.Background(), api, store, nil, db.RoleAcademy, testDefaults); !errors.Is(err, ErrInvalid) {
		t.Errorf("nil ground: err = %v, want ErrInvalid", err)
	}
	if _, err := ResolveStream(context.Background(), api, store, testGround(), "spectator", testDefaults); !errors.Is(err, ErrInvalid) {
		t.Errorf("bad role: err = %v, want ErrInvalid", err)
	}
}

func TestResolveStreamPersistFailureIsWarning(t *testing.T) {
	api := &fakeAPI{}
	store := newMemStore(testGround())
	store.rememberErr = errors.New("db down")

	res, err := ResolveStream(context.Background(), api, store, testGround(), db.RoleAcademy, testDefaults)
	if err != nil {
		t.Fatalf("inconsistency must not fail the resolution: %v", err)
	}
	if res.Warning == "" {
		t.Errorf("expected a warning about the unpersisted stream")
	}
	if res.Stream == nil || res.Stream.ID == "" {
		t.Errorf("stream descriptor missing: %+v", res)
	}
}

func TestResolveStreamDegradesOnTransientFetch(t *testing.T) {
	g := testGround()
	g.CompanyStreamID = "s-old"
	api := &fakeAPI{
		getStreamFn: func(string) (*ytlive.Stream, error) {
			return nil, &googleapi.Error{Code: 503, Message: "backend error"}
		},
	}
	store := newMemStore(g)

	res, err := ResolveStream(context.Background(), api, store, g, db.RoleCompany, testDefaults)
	if err != nil {
		t.Fatalf("transient fetch should degrade to creation: %v", err)
	}
	if !res.Created {
		t.Errorf("expected creation after transient fetch failure")
	}
}

func TestStreamTitleDeterministic(t *testing.T) {
	g := testGround()
	a := StreamTitle(g, db.RoleAcademy)
	b := StreamTitle(g, db.RoleAcademy)
	if a != b {
		t.Errorf("titles differ: %q vs %q", a, b)
	}
	if a == StreamTitle(g, db.RoleCompany) {
		t.Errorf("roles must produce distinct titles")
	}
}
