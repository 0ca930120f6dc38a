package youtube

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	ytv3 "google.golang.org/api/youtube/v3"

	"github.com/yt-discovery/internal/quota"
	"github.com/yt-discovery/internal/telemetry"
)

// Metered wraps an API with quota accounting and client-side pacing. Every
// issued call is recorded against the tracker whether or not it succeeds; a
// call refused because the budget is spent costs nothing and never reaches
// the network.
type Metered struct {
	api         API
	tracker     *quota.Tracker
	limiter     *rate.Limiter
	callTimeout time.Duration
	logger      zerolog.Logger
}

// DefaultCallTimeout bounds a single API round trip.
const DefaultCallTimeout = 10 * time.Second

// MeteredOption configures a Metered decorator.
type MeteredOption func(*Metered)

// WithCallTimeout sets the per-call deadline; zero or less keeps the default.
func WithCallTimeout(d time.Duration) MeteredOption {
	return func(m *Metered) {
		if d > 0 {
			m.callTimeout = d
		}
	}
}

// NewMetered decorates api. A nil limiter disables pacing.
func NewMetered(api API, tracker *quota.Tracker, limiter *rate.Limiter, logger zerolog.Logger, opts ...MeteredOption) *Metered {
	m := &Metered{
		api:         api,
		tracker:     tracker,
		limiter:     limiter,
		callTimeout: DefaultCallTimeout,
		logger:      logger.With().Str("component", "youtube").Logger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Tracker exposes the shared quota tracker.
func (m *Metered) Tracker() *quota.Tracker { return m.tracker }

// Search meters one search.list page
func (m *Metered) Search(ctx context.Context, q SearchQuery) (*SearchPage, error) {
	return meter(ctx, m, "search", CostSearch, func(ctx context.Context) (*SearchPage, error) {
		return m.api.Search(ctx, q)
	})
}

// Channels meters one channels.list lookup
func (m *Metered) Channels(ctx context.Context, ids []string) ([]*ytv3.Channel, error) {
	return meter(ctx, m, "channels", CostList, func(ctx context.Context) ([]*ytv3.Channel, error) {
		return m.api.Channels(ctx, ids)
	})
}

// Videos meters one videos.list lookup
func (m *Metered) Videos(ctx context.Context, ids []string) ([]*ytv3.Video, error) {
	return meter(ctx, m, "videos", CostList, func(ctx context.Context) ([]*ytv3.Video, error) {
		return m.api.Videos(ctx, ids)
	})
}

func meter[T any](ctx context.Context, m *Metered, endpoint string, cost int, call func(context.Context) (T, error)) (T, error) {
	var zero T

	if !m.tracker.CanProceed() {
		return zero, ErrQuotaExceeded
	}
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return zero, err
		}
	}

	telemetry.Metrics.APICalls.WithLabelValues(endpoint).Inc()
	m.tracker.RecordUsage(cost)

	callCtx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()

	res, err := call(callCtx)
	if err == nil {
		return res, nil
	}

	err = classify(err)
	if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		err = &UpstreamError{Status: http.StatusGatewayTimeout, Message: "call timed out after " + m.callTimeout.String(), Err: err}
	}
	kind := errorKind(err)
	telemetry.Metrics.APIErrors.WithLabelValues(endpoint, kind).Inc()
	if errors.Is(err, ErrQuotaExceeded) {
		m.tracker.MarkExceeded()
	}
	m.logger.Warn().Err(err).Str("endpoint", endpoint).Str("kind", kind).Msg("YouTube API call failed")
	return zero, err
}
