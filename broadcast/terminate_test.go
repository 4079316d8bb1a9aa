package broadcast

import (
	"context"
	"errors"
	"testing"

	"github.com/pitchside-live/backend/ytlive"
)

func TestNormalizeTitle(t *testing.T) {
	cases := []struct{ in, want string }{
		{"U15 vs U17", "U15 vs U17"},
		{"  U15   vs\tU17  ", "U15 vs U17"},
		{"U15\nvs U17", "U15 vs U17"},
		{"", ""},
		{"   ", ""},
	}
	for _, c := range cases {
		if got := NormalizeTitle(c.in); got != c.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTitlesMatch(t *testing.T) {
	insensitive := MatchOptions{CaseInsensitive: true}
	sensitive := MatchOptions{}

	if !TitlesMatch("Team A  vs   Team B", "Team A vs Team B", sensitive) {
		t.Error("whitespace runs should not affect matching")
	}
	if !TitlesMatch("u15 VS u17", "U15 vs U17", insensitive) {
		t.Error("case-insensitive match failed")
	}
	if TitlesMatch("u15 vs u17", "U15 vs U17", sensitive) {
		t.Error("case-sensitive comparison matched differing case")
	}
	if TitlesMatch("U15 vs U17", "U15 vs U18", insensitive) {
		t.Error("different titles matched")
	}
}

func activeAPI(broadcasts ...ytlive.Broadcast) *fakeAPI {
	return &fakeAPI{
		listActiveFn: func() ([]ytlive.Broadcast, error) { return broadcasts, nil },
	}
}

func TestEndByTitleEndsMatchingBroadcast(t *testing.T) {
	api := activeAPI(
		ytlive.Broadcast{ID: "b-other", Title: "Training session"},
		ytlive.Broadcast{ID: "b-match", Title: " U15  vs U17 "},
	)
	creds := &fakeCreds{apis: map[string]ytlive.API{"youtube:company": api}}

	reports := EndByTitle(context.Background(), creds, "U15 vs U17", []string{"youtube:company"}, MatchOptions{CaseInsensitive: true})

	r := reports["youtube:company"]
	if !r.Ended() || r.BroadcastID != "b-match" {
		t.Fatalf("report = %+v", r)
	}
	if api.transitionCalls != 1 {
		t.Errorf("transitionCalls = %d, want 1", api.transitionCalls)
	}
}

func TestEndByTitleNotFoundIsNormal(t *testing.T) {
	api := activeAPI(ytlive.Broadcast{ID: "b-1", Title: "Something else"})
	creds := &fakeCreds{apis: map[string]ytlive.API{"youtube:company": api}}

	reports := EndByTitle(context.Background(), creds, "U15 vs U17", []string{"youtube:company"}, MatchOptions{CaseInsensitive: true})

	if got := reports["youtube:company"].Outcome; got != OutcomeNotFound {
		t.Errorf("outcome = %q, want %q", got, OutcomeNotFound)
	}
	if api.transitionCalls != 0 {
		t.Errorf("no broadcast should have been ended, got %d transitions", api.transitionCalls)
	}
}

func TestEndByTitleNoCredentials(t *testing.T) {
	creds := &fakeCreds{}

	reports := EndByTitle(context.Background(), creds, "U15 vs U17", []string{"youtube:academy:g1"}, MatchOptions{})

	if got := reports["youtube:academy:g1"].Outcome; got != OutcomeNoCredentials {
		t.Errorf("outcome = %q, want %q", got, OutcomeNoCredentials)
	}
}

func TestEndByTitleChannelsIndependent(t *testing.T) {
	okAPI := activeAPI(ytlive.Broadcast{ID: "b-1", Title: "U15 vs U17"})
	brokenAPI := &fakeAPI{
		listActiveFn: func() ([]ytlive.Broadcast, error) { return nil, errors.New("service unavailable") },
	}
	creds := &fakeCreds{apis: map[string]ytlive.API{
		"youtube:academy:g1": brokenAPI,
		"youtube:company":    okAPI,
	}}

	reports := EndByTitle(context.Background(), creds, "U15 vs U17",
		[]string{"youtube:academy:g1", "youtube:company"}, MatchOptions{CaseInsensitive: true})

	if got := reports["youtube:academy:g1"].Outcome; got != OutcomeError {
		t.Errorf("academy outcome = %q, want %q", got, OutcomeError)
	}
	if r := reports["youtube:company"]; !r.Ended() || r.BroadcastID != "b-1" {
		t.Errorf("company failure independence violated: %+v", r)
	}
}

func TestEndByTitleTransitionFailure(t *testing.T) {
	api := &fakeAPI{
		listActiveFn: func() ([]ytlive.Broadcast, error) {
			return []ytlive.Broadcast{{ID: "b-1", Title: "U15 vs U17"}}, nil
		},
		transitionFn: func(id, target string) (*ytlive.Broadcast, error) {
			return nil, errors.New("backend error")
		},
	}
	creds := &fakeCreds{apis: map[string]ytlive.API{"youtube:company": api}}

	r := EndByTitle(context.Background(), creds, "U15 vs U17", []string{"youtube:company"}, MatchOptions{})["youtube:company"]
	if r.Outcome != OutcomeError || r.BroadcastID != "b-1" {
		t.Errorf("report = %+v", r)
	}
}

func TestEndByTitleBothChannelsEnd(t *testing.T) {
	academy := activeAPI(ytlive.Broadcast{ID: "b-a", Title: "U15 vs U17"})
	company := activeAPI(ytlive.Broadcast{ID: "b-c", Title: "u15 vs u17"})
	creds := &fakeCreds{apis: map[string]ytlive.API{
		"youtube:academy:g1": academy,
		"youtube:company":    company,
	}}

	reports := EndByTitle(context.Background(), creds, "U15 vs U17",
		[]string{"youtube:academy:g1", "youtube:company"}, MatchOptions{CaseInsensitive: true})

	if !reports["youtube:academy:g1"].Ended() || !reports["youtube:company"].Ended() {
		t.Fatalf("reports = %+v", reports)
	}
	if reports["youtube:academy:g1"].BroadcastID != "b-a" || reports["youtube:company"].BroadcastID != "b-c" {
		t.Errorf("wrong broadcasts ended: %+v", reports)
	}
}
