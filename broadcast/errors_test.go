package broadcast

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/api/googleapi"

	"github.com/pitchside-live/backend/ytlive"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"unauthenticated sentinel", ytlive.ErrUnauthenticated, KindUnauthenticated},
		{"wrapped unauthenticated", fmt.Errorf("channel youtube:company: %w", ytlive.ErrUnauthenticated), KindUnauthenticated},
		{"invalid sentinel", fmt.Errorf("missing title: %w", ErrInvalid), KindInvalid},
		{"stream not active", fmt.Errorf("stream s-1: %w", ErrStreamNotActive), KindInvalid},
		{"stream unhealthy", fmt.Errorf("stream s-1 health bad: %w", ErrStreamUnhealthy), KindInvalid},
		{"platform not found", &ytlive.NotFoundError{Resource: "stream", ID: "s-1"}, KindNotFound},
		{"context canceled", context.Canceled, KindTransient},
		{"googleapi 401", &googleapi.Error{Code: 401}, KindUnauthenticated},
		{"googleapi 403 plain", &googleapi.Error{Code: 403}, KindPermission},
		{"googleapi 403 rate limit", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "rateLimitExceeded"}}}, KindTransient},
		{"googleapi 403 quota", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "quotaExceeded"}}}, KindTransient},
		{"googleapi 404", &googleapi.Error{Code: 404}, KindNotFound},
		{"googleapi 429", &googleapi.Error{Code: 429}, KindTransient},
		{"googleapi 503", &googleapi.Error{Code: 503}, KindTransient},
		{"googleapi 400", &googleapi.Error{Code: 400}, KindInvalid},
		{"wrapped googleapi", fmt.Errorf("poll broadcast: %w", &googleapi.Error{Code: 500}), KindTransient},
		{"invalid_grant string", errors.New("oauth2: \"invalid_grant\" token revoked"), KindUnauthenticated},
		{"not found string", errors.New("broadcast not found"), KindNotFound},
		{"forbidden string", errors.New("access denied for channel"), KindPermission},
		{"timeout string", errors.New("dial tcp: i/o timeout"), KindTransient},
		{"connection reset", errors.New("read: connection reset by peer"), KindTransient},
		{"backend error string", errors.New("googleapi: backend error"), KindTransient},
		{"unknown", errors.New("something odd happened"), KindUnknown},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Classify(c.err); got != c.want {
				t.Errorf("Classify(%v) = %v, want %v", c.err, got, c.want)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(&googleapi.Error{Code: 503}) {
		t.Error("server errors should be retryable")
	}
	if !IsRetryable(errors.New("no idea what this is")) {
		t.Error("unknown errors should be retryable")
	}
	if IsRetryable(ytlive.ErrUnauthenticated) {
		t.Error("auth failures must not be retried")
	}
	if IsRetryable(fmt.Errorf("stream s-1: %w", ErrStreamNotActive)) {
		t.Error("inactive stream must fail fast")
	}
	if IsRetryable(&ytlive.NotFoundError{Resource: "broadcast", ID: "b-1"}) {
		t.Error("not found must not be retried")
	}
}

func TestKindString(t *testing.T) {
	kinds := map[Kind]string{
		KindUnknown:         "unknown",
		KindUnauthenticated: "unauthenticated",
		KindNotFound:        "not_found",
		KindPermission:      "permission",
		KindTransient:       "transient",
		KindInvalid:         "invalid",
		KindInconsistent:    "inconsistent",
	}
	for k, want := range kinds {
		if k.String() != want {
			t.Errorf("%d.String() = %q, want %q", k, k.String(), want)
		}
	}
}
