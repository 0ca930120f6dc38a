// Package quality derives activity metrics from a channel's recent uploads.
package quality

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	ytv3 "google.golang.org/api/youtube/v3"

	"github.com/yt-discovery/internal/models"
	"github.com/yt-discovery/internal/youtube"
)

// DefaultSampleSize is the number of recent uploads inspected per channel.
const DefaultSampleSize = 10

// Calculator costs one search and one videos lookup per channel.
type Calculator struct {
	api    youtube.API
	sample int64
	logger zerolog.Logger
}

// Option configures a Calculator
type Option func(*Calculator)

// WithSampleSize sets how many recent uploads are inspected, at most one lookup batch
func WithSampleSize(n int64) Option {
	return func(c *Calculator) {
		if n > 0 && n <= youtube.MaxIDsPerLookup {
			c.sample = n
		}
	}
}

// WithLogger sets the calculator logger
func WithLogger(l zerolog.Logger) Option { return func(c *Calculator) { c.logger = l } }

// NewCalculator creates a calculator reading from api
func NewCalculator(api youtube.API, opts ...Option) *Calculator {
	c := &Calculator{api: api, sample: DefaultSampleSize, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compute returns metrics over the channel's most recent uploads. A channel
// without uploads gets a zero-valued record; any API failure is returned so
// the caller can treat metrics as unavailable.
func (c *Calculator) Compute(ctx context.Context, channelID string) (*models.QualityMetrics, error) {
	page, err := c.api.Search(ctx, youtube.SearchQuery{
		Type:       youtube.TypeVideo,
		Order:      "date",
		ChannelID:  channelID,
		MaxResults: c.sample,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list recent uploads: %w", err)
	}
	if len(page.VideoIDs) == 0 {
		return &models.QualityMetrics{}, nil
	}

	items, err := c.api.Videos(ctx, page.VideoIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch video statistics: %w", err)
	}

	videos := make([]models.Video, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		videos = append(videos, toVideo(item))
	}
	m := Summarize(videos)
	c.logger.Debug().Str("channel_id", channelID).Int("videos", m.TotalRecentVideos).
		Float64("upload_frequency", m.UploadFrequency).Msg("quality metrics computed")
	return m, nil
}

// Summarize computes metrics for an already fetched set of videos.
func Summarize(videos []models.Video) *models.QualityMetrics {
	m := &models.QualityMetrics{TotalRecentVideos: len(videos)}
	if len(videos) == 0 {
		return m
	}

	var totalViews int64
	var totalEngagement float64
	var first, last time.Time
	dated := 0

	for i := range videos {
		v := &videos[i]
		totalViews += v.Views
		totalEngagement += v.EngagementRate()

		if v.PublishedAt.IsZero() {
			continue
		}
		if dated == 0 || v.PublishedAt.Before(first) {
			first = v.PublishedAt
		}
		if dated == 0 || v.PublishedAt.After(last) {
			last = v.PublishedAt
		}
		dated++
	}

	count := int64(len(videos))
	m.AvgViews = totalViews / count
	m.AvgEngagementRate = models.Round2(totalEngagement / float64(count))

	if dated > 0 {
		lastUpload := last
		m.LastUploadDate = &lastUpload
	}
	if dated > 1 {
		// whole days between the oldest and newest upload
		rangeDays := int(last.Sub(first).Hours() / 24)
		if rangeDays < 1 {
			rangeDays = 1
		}
		m.UploadFrequency = models.Round2(float64(count) / float64(rangeDays) * 7)
	}
	return m
}

func toVideo(item *ytv3.Video) models.Video {
	v := models.Video{ID: item.Id}
	if item.Statistics != nil {
		v.Views = int64(item.Statistics.ViewCount)
		v.Likes = int64(item.Statistics.LikeCount)
		v.Comments = int64(item.Statistics.CommentCount)
	}
	if item.Snippet != nil {
		v.Title = item.Snippet.Title
		if t, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
			v.PublishedAt = t
		}
	}
	return v
}
