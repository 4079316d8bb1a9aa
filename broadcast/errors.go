// Package broadcast implements the dual-channel go-live orchestration core:
// stream resolution, broadcast creation and binding, the live-transition state
// machine, and title-matched termination.
package broadcast

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/api/googleapi"

	"github.com/pitchside-live/backend/ytlive"
)

// Kind buckets an error by how callers should react to it.
type Kind int

const (
	// KindUnknown means the error matched no known pattern; treated as retryable for safety.
	KindUnknown Kind = iota
	// KindUnauthenticated means no usable credential; surfaced to the caller to re-auth, never retried.
	KindUnauthenticated
	// KindNotFound means the remote or local resource is absent; often an expected outcome.
	KindNotFound
	// KindPermission means the credential lacks access to the resource.
	KindPermission
	// KindTransient means a network/server/rate-limit failure worth retrying with bounded attempts.
	KindTransient
	// KindInvalid means malformed input; fails fast, never retried.
	KindInvalid
	// KindInconsistent means remote and local state diverged (e.g. resource created
	// remotely but the persistence write failed); logged distinctly, surfaced as a warning.
	KindInconsistent
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindNotFound:
		return "not_found"
	case KindPermission:
		return "permission"
	case KindTransient:
		return "transient"
	case KindInvalid:
		return "invalid"
	case KindInconsistent:
		return "inconsistent"
	default:
		return "unknown"
	}
}

// ErrInvalid marks malformed orchestration input (missing ground, unknown role).
var ErrInvalid = errors.New("invalid input")

// Classify buckets err into the error taxonomy. Platform errors are classified
// by HTTP status code first; everything else falls back to message patterns.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, ytlive.ErrUnauthenticated) {
		return KindUnauthenticated
	}
	if errors.Is(err, ErrInvalid) {
		return KindInvalid
	}
	// Fast-fail gates of the live transition: ingestion has to be fixed by the
	// operator, retrying cannot help.
	if errors.Is(err, ErrStreamNotActive) || errors.Is(err, ErrStreamUnhealthy) {
		return KindInvalid
	}
	var nf *ytlive.NotFoundError
	if errors.As(err, &nf) {
		return KindNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == 401:
			return KindUnauthenticated
		case gerr.Code == 403:
			for _, item := range gerr.Errors {
				if strings.Contains(item.Reason, "ateLimit") || strings.Contains(item.Reason, "uota") {
					return KindTransient
				}
			}
			return KindPermission
		case gerr.Code == 404:
			return KindNotFound
		case gerr.Code == 429:
			return KindTransient
		case gerr.Code >= 500:
			return KindTransient
		case gerr.Code >= 400:
			return KindInvalid
		}
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "unauthenticated") || strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid_grant"):
		return KindUnauthenticated
	case strings.Contains(lower, "not found") || strings.Contains(lower, "notfound"):
		return KindNotFound
	case strings.Contains(lower, "permission") || strings.Contains(lower, "forbidden") || strings.Contains(lower, "access denied"):
		return KindPermission
	case strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "timed out") ||
		strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "temporarily") ||
		strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "too many requests") ||
		strings.Contains(lower, "internal server error") ||
		strings.Contains(lower, "bad gateway") ||
		strings.Contains(lower, "service unavailable") ||
		strings.Contains(lower, "gateway timeout") ||
		strings.Contains(lower, "backend error"):
		return KindTransient
	}
	return KindUnknown
}

// IsRetryable reports whether err is worth another attempt. Unknown errors are
// retried so a new failure shape does not wedge a broadcast.
func IsRetryable(err error) bool {
	switch Classify(err) {
	case KindTransient, KindUnknown:
		return true
	default:
		return false
	}
}
