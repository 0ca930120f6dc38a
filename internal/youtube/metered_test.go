package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
	ytv3 "google.golang.org/api/youtube/v3"

	"github.com/yt-discovery/internal/quota"
)

type stubAPI struct {
	calls     atomic.Int32
	searchErr error
}

func (s *stubAPI) Search(ctx context.Context, q SearchQuery) (*SearchPage, error) {
	s.calls.Add(1)
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return &SearchPage{ChannelIDs: []string{"UC1"}}, nil
}

func (s *stubAPI) Channels(ctx context.Context, ids []string) ([]*ytv3.Channel, error) {
	s.calls.Add(1)
	return []*ytv3.Channel{{Id: "UC1"}}, nil
}

func (s *stubAPI) Videos(ctx context.Context, ids []string) ([]*ytv3.Video, error) {
	s.calls.Add(1)
	return nil, nil
}

func TestMeteredRecordsCosts(t *testing.T) {
	api := &stubAPI{}
	tracker := quota.NewTracker(10000)
	m := NewMetered(api, tracker, nil, zerolog.Nop())
	ctx := context.Background()

	_, err := m.Search(ctx, SearchQuery{Query: "q"})
	require.NoError(t, err)
	_, err = m.Channels(ctx, []string{"UC1"})
	require.NoError(t, err)
	_, err = m.Videos(ctx, []string{"v1"})
	require.NoError(t, err)

	assert.Equal(t, CostSearch+2*CostList, tracker.Status().Used)
	assert.Equal(t, int32(3), api.calls.Load())
}

func TestMeteredFailedCallStillCosts(t *testing.T) {
	api := &stubAPI{searchErr: &UpstreamError{Status: 500, Message: "boom"}}
	tracker := quota.NewTracker(10000)
	m := NewMetered(api, tracker, nil, zerolog.Nop())

	_, err := m.Search(context.Background(), SearchQuery{Query: "q"})
	require.Error(t, err)
	assert.Equal(t, CostSearch, tracker.Status().Used)
	assert.False(t, tracker.Exceeded())
}

func TestMeteredQuotaErrorStopsFurtherCalls(t *testing.T) {
	api := &stubAPI{searchErr: fmt.Errorf("%w: provider says no", ErrQuotaExceeded)}
	tracker := quota.NewTracker(10000)
	m := NewMetered(api, tracker, nil, zerolog.Nop())
	ctx := context.Background()

	_, err := m.Search(ctx, SearchQuery{Query: "q"})
	require.ErrorIs(t, err, ErrQuotaExceeded)
	assert.True(t, tracker.Exceeded())
	assert.Equal(t, int32(1), api.calls.Load())

	_, err = m.Channels(ctx, []string{"UC1"})
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, int32(1), api.calls.Load(), "refused call must not reach the API")
	assert.Equal(t, CostSearch, tracker.Status().Used, "refused call must not cost quota")
}

func TestMeteredRefusesWhenBudgetSpent(t *testing.T) {
	api := &stubAPI{}
	tracker := quota.NewTracker(150)
	m := NewMetered(api, tracker, nil, zerolog.Nop())
	ctx := context.Background()

	_, err := m.Search(ctx, SearchQuery{Query: "q"})
	require.NoError(t, err)
	_, err = m.Search(ctx, SearchQuery{Query: "q"})
	require.NoError(t, err, "estimate is checked before the call, not projected")

	_, err = m.Search(ctx, SearchQuery{Query: "q"})
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, int32(2), api.calls.Load())
}

func TestMeteredHonoursCancelledContextWhilePacing(t *testing.T) {
	api := &stubAPI{}
	limiter := rate.NewLimiter(rate.Every(1e12), 1)
	require.True(t, limiter.Allow())

	m := NewMetered(api, quota.NewTracker(10000), limiter, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Channels(ctx, []string{"UC1"})
	assert.Error(t, err)
	assert.Equal(t, int32(0), api.calls.Load())
	assert.Zero(t, m.Tracker().Status().Used)
}

type blockingAPI struct {
	stubAPI
}

func (b *blockingAPI) Search(ctx context.Context, q SearchQuery) (*SearchPage, error) {
	b.calls.Add(1)
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestMeteredCallTimeout(t *testing.T) {
	tracker := quota.NewTracker(10000)
	m := NewMetered(&blockingAPI{}, tracker, nil, zerolog.Nop(), WithCallTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := m.Search(context.Background(), SearchQuery{Query: "q"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusGatewayTimeout, upErr.Status)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, CostSearch, tracker.Status().Used)
	assert.False(t, tracker.Exceeded())
}

func TestMeteredCallerCancellationPassesThrough(t *testing.T) {
	m := NewMetered(&blockingAPI{}, quota.NewTracker(10000), nil, zerolog.Nop(), WithCallTimeout(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := m.Search(ctx, SearchQuery{Query: "q"})
	require.ErrorIs(t, err, context.Canceled)
	var upErr *UpstreamError
	assert.False(t, errors.As(err, &upErr))
}

func TestMeteredDefaultCallTimeout(t *testing.T) {
	m := NewMetered(&stubAPI{}, quota.NewTracker(10), nil, zerolog.Nop(), WithCallTimeout(0))
	assert.Equal(t, DefaultCallTimeout, m.callTimeout)
}
