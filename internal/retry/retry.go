// Package retry runs best-effort network calls with a bounded number of
// retries on transient failures.
package retry

import (
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Config controls retry behavior.
type Config struct {
	MaxRetries  int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// Once retries a single time after a short pause. Enrichment calls use it:
// they are optional and must not hold up a discovery run.
var Once = Config{
	MaxRetries:  1,
	InitialWait: 250 * time.Millisecond,
	MaxWait:     time.Second,
	Multiplier:  2.0,
}

// Do calls fn until it succeeds, fails with a non-transient error, or
// MaxRetries retries are spent. Cancellation of ctx stops it immediately.
func Do[T any](ctx context.Context, rc Config, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= rc.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsTransient(err) {
			return zero, err
		}

		if attempt < rc.MaxRetries {
			wait := time.Duration(float64(rc.InitialWait) * math.Pow(rc.Multiplier, float64(attempt)))
			if wait > rc.MaxWait {
				wait = rc.MaxWait
			}
			log.Debug().Int("attempt", attempt+1).Dur("wait", wait).Err(err).Msg("retrying")
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}
	}
	return zero, lastErr
}

// StatusError reports an unexpected HTTP status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return "unexpected status: " + http.StatusText(e.StatusCode)
}

// Transient reports whether the status is worth another attempt.
func (e *StatusError) Transient() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsTransient returns true for errors worth retrying: retryable statuses,
// connection failures, DNS failures and timeouts.
func IsTransient(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Transient()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout || dnsErr.IsTemporary
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
