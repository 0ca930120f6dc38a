package quality

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ytv3 "google.golang.org/api/youtube/v3"

	"github.com/yt-discovery/internal/models"
	"github.com/yt-discovery/internal/youtube"
)

type fakeAPI struct {
	videoIDs  []string
	videos    []*ytv3.Video
	searchErr error
	videosErr error

	lastSearch youtube.SearchQuery
	videoCalls int
}

func (f *fakeAPI) Search(ctx context.Context, q youtube.SearchQuery) (*youtube.SearchPage, error) {
	f.lastSearch = q
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return &youtube.SearchPage{VideoIDs: f.videoIDs}, nil
}

func (f *fakeAPI) Channels(ctx context.Context, ids []string) ([]*ytv3.Channel, error) {
	return nil, errors.New("not used")
}

func (f *fakeAPI) Videos(ctx context.Context, ids []string) ([]*ytv3.Video, error) {
	f.videoCalls++
	if f.videosErr != nil {
		return nil, f.videosErr
	}
	return f.videos, nil
}

func video(id string, views, likes, comments uint64, published string) *ytv3.Video {
	return &ytv3.Video{
		Id:         id,
		Statistics: &ytv3.VideoStatistics{ViewCount: views, LikeCount: likes, CommentCount: comments},
		Snippet:    &ytv3.VideoSnippet{Title: id, PublishedAt: published},
	}
}

func TestComputeZeroVideos(t *testing.T) {
	api := &fakeAPI{}
	m, err := NewCalculator(api).Compute(context.Background(), "UC1")
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.Equal(t, models.QualityMetrics{}, *m)
	assert.Zero(t, api.videoCalls, "no videos means no lookup")
	assert.Equal(t, youtube.SearchQuery{
		Type:       youtube.TypeVideo,
		Order:      "date",
		ChannelID:  "UC1",
		MaxResults: DefaultSampleSize,
	}, api.lastSearch)
}

func TestComputeMetrics(t *testing.T) {
	api := &fakeAPI{
		videoIDs: []string{"a", "b", "c"},
		videos: []*ytv3.Video{
			video("a", 1000, 90, 10, "2024-03-15T18:30:00Z"),
			video("b", 2001, 20, 0, "2024-03-08T09:00:00Z"),
			video("c", 0, 5, 5, "2024-03-01T23:59:00Z"),
		},
	}

	m, err := NewCalculator(api).Compute(context.Background(), "UC1")
	require.NoError(t, err)

	assert.Equal(t, 3, m.TotalRecentVideos)
	assert.Equal(t, int64(1000), m.AvgViews, "3001/3 floors")
	// (10.00 + 1.00 + 0) / 3
	assert.InDelta(t, 3.67, m.AvgEngagementRate, 1e-9)
	// 3 videos over 13 whole days (13d 18h31m)
	assert.InDelta(t, 1.62, m.UploadFrequency, 1e-9)
	require.NotNil(t, m.LastUploadDate)
	assert.Equal(t, time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC), *m.LastUploadDate)
}

func TestComputeSameDayUploads(t *testing.T) {
	api := &fakeAPI{
		videoIDs: []string{"a", "b"},
		videos: []*ytv3.Video{
			video("a", 10, 1, 0, "2024-03-15T18:30:00Z"),
			video("b", 10, 1, 0, "2024-03-15T08:00:00Z"),
		},
	}

	m, err := NewCalculator(api).Compute(context.Background(), "UC1")
	require.NoError(t, err)
	assert.InDelta(t, 14.0, m.UploadFrequency, 1e-9, "range clamps to one day")
}

func TestSummarizeCountsWholeDaysBetweenUploads(t *testing.T) {
	at := func(s string) time.Time {
		ts, err := time.Parse(time.RFC3339, s)
		require.NoError(t, err)
		return ts
	}

	overnight := Summarize([]models.Video{
		{PublishedAt: at("2024-03-15T23:00:00Z")},
		{PublishedAt: at("2024-03-16T01:00:00Z")},
	})
	assert.InDelta(t, 14.0, overnight.UploadFrequency, 1e-9, "two hours apart clamps to one day")

	almostWeek := Summarize([]models.Video{
		{PublishedAt: at("2024-03-01T12:00:00Z")},
		{PublishedAt: at("2024-03-08T11:00:00Z")},
	})
	// 6 whole days
	assert.InDelta(t, 2.33, almostWeek.UploadFrequency, 1e-9)
}

func TestComputeSingleVideoHasNoFrequency(t *testing.T) {
	api := &fakeAPI{
		videoIDs: []string{"a"},
		videos:   []*ytv3.Video{video("a", 0, 0, 0, "2024-03-15T18:30:00Z")},
	}

	m, err := NewCalculator(api).Compute(context.Background(), "UC1")
	require.NoError(t, err)
	assert.Zero(t, m.UploadFrequency)
	assert.Zero(t, m.AvgEngagementRate, "zero views means zero engagement")
	assert.NotNil(t, m.LastUploadDate)
}

func TestComputeFailures(t *testing.T) {
	boom := errors.New("boom")

	_, err := NewCalculator(&fakeAPI{searchErr: boom}).Compute(context.Background(), "UC1")
	assert.ErrorIs(t, err, boom)

	_, err = NewCalculator(&fakeAPI{videoIDs: []string{"a"}, videosErr: youtube.ErrQuotaExceeded}).
		Compute(context.Background(), "UC1")
	assert.ErrorIs(t, err, youtube.ErrQuotaExceeded)
}

func TestSummarizeIgnoresUndatedVideos(t *testing.T) {
	m := Summarize([]models.Video{
		{Views: 100, Likes: 10},
		{Views: 300, Likes: 30, PublishedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
	})
	assert.Equal(t, int64(200), m.AvgViews)
	assert.Zero(t, m.UploadFrequency, "fewer than two dated uploads")
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), *m.LastUploadDate)
}
