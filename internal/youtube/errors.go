package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
)

var (
	// ErrUnauthenticated means the API key is missing, invalid or not enabled
	// for the YouTube Data API. The user has to reconfigure.
	ErrUnauthenticated = errors.New("youtube: missing or invalid API key")

	// ErrQuotaExceeded means the daily budget is spent. It stays set until the
	// daily reset, callers should stop retrying.
	ErrQuotaExceeded = errors.New("youtube: daily quota exceeded")
)

// UpstreamError is an unexpected provider failure. It is never retried here;
// callers may try again later.
type UpstreamError struct {
	Status  int
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("youtube: upstream error: %s", e.Message)
	}
	return fmt.Sprintf("youtube: upstream error (status %d): %s", e.Status, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

var quotaReasons = map[string]bool{
	"quotaExceeded":         true,
	"dailyLimitExceeded":    true,
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
}

var authReasons = map[string]bool{
	"keyInvalid":          true,
	"keyExpired":          true,
	"accessNotConfigured": true,
	"ipRefererBlocked":    true,
	"authError":           true,
	"forbidden":           true,
}

// classify maps a raw client error onto the error taxonomy. Context errors
// pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrUnauthenticated) ||
		errors.Is(err, ErrChannelNotFound) || errors.Is(err, ErrUnsupportedURL) {
		return err
	}
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return err
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return &UpstreamError{Message: err.Error(), Err: err}
	}

	for _, item := range gerr.Errors {
		if quotaReasons[item.Reason] {
			return fmt.Errorf("%w: %s", ErrQuotaExceeded, gerr.Message)
		}
	}
	if gerr.Code == http.StatusTooManyRequests ||
		(gerr.Code == http.StatusForbidden && strings.Contains(strings.ToLower(gerr.Message), "quota")) {
		return fmt.Errorf("%w: %s", ErrQuotaExceeded, gerr.Message)
	}

	if gerr.Code == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", ErrUnauthenticated, gerr.Message)
	}
	for _, item := range gerr.Errors {
		if authReasons[item.Reason] {
			return fmt.Errorf("%w: %s", ErrUnauthenticated, gerr.Message)
		}
	}

	return &UpstreamError{Status: gerr.Code, Message: gerr.Message, Err: err}
}

// errorKind labels an error for telemetry.
func errorKind(err error) string {
	var upErr *UpstreamError
	switch {
	case errors.Is(err, ErrQuotaExceeded):
		return "quota"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &upErr):
		return "upstream"
	case errors.Is(err, ErrChannelNotFound):
		return "not_found"
	}
	return "other"
}
