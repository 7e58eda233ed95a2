package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Kind classifies a probe failure.
type Kind string

// Probe failure kinds.
const (
	KindTransport Kind = "transport"
	KindAuth      Kind = "auth"
	KindQuota     Kind = "quota"
	KindInvalid   Kind = "invalid"
)

var quotaReasons = map[string]struct{}{
	"quotaExceeded":         {},
	"rateLimitExceeded":     {},
	"dailyLimitExceeded":    {},
	"userRateLimitExceeded": {},
}

// ErrInvalidSource is returned for identifiers that are neither channel nor video ids.
var ErrInvalidSource = errors.New("unrecognized source identifier")

// ProbeError reports a source read that failed for a reason other than
// the source having nothing to offer.
type ProbeError struct {
	SourceID string
	Kind     Kind
	Cause    error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s (%s): %v", e.SourceID, e.Kind, e.Cause)
}

func (e *ProbeError) Unwrap() error { return e.Cause }

// ErrorKind returns the failure class.
func (e *ProbeError) ErrorKind() string { return string(e.Kind) }

// PublishError reports a failed upload. The source video stays unpublished.
type PublishError struct {
	Path  string
	Kind  Kind
	Cause error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s (%s): %v", e.Path, e.Kind, e.Cause)
}

func (e *PublishError) Unwrap() error { return e.Cause }

// classify maps an API client error onto a Kind.
func classify(err error) Kind {
	if errors.Is(err, ErrInvalidSource) {
		return KindInvalid
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindTransport
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return KindTransport
	}
	switch gerr.Code {
	case http.StatusTooManyRequests:
		return KindQuota
	case http.StatusForbidden:
		for _, item := range gerr.Errors {
			if _, ok := quotaReasons[item.Reason]; ok {
				return KindQuota
			}
		}
		return KindAuth
	case http.StatusUnauthorized:
		return KindAuth
	default:
		return KindTransport
	}
}
