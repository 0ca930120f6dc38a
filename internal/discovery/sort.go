package discovery

import (
	"cmp"
	"slices"
	"strings"

	"github.com/yt-discovery/internal/models"
)

type compareFunc func(a, b *models.ChannelRecord) int

// relevanceKeys is the relevance policy: email presence first, then average
// engagement, then subscribers. Keys compare lexicographically.
var relevanceKeys = []compareFunc{
	byEmail,
	byEngagement,
	bySubscribers,
}

var sortKeys = map[models.SortOrder][]compareFunc{
	models.SortBySubscribers:     {bySubscribers},
	models.SortByRelevance:       relevanceKeys,
	models.SortByViews:           {byViews},
	models.SortByVideos:          {byVideos},
	models.SortByEngagement:      {byEngagement, bySubscribers},
	models.SortByUploadFrequency: {byUploadFrequency, bySubscribers},
}

// SortChannels orders channels in place, best first. Ties fall back to the
// channel id so the order is deterministic.
func SortChannels(channels []*models.ChannelRecord, order models.SortOrder) {
	keys, ok := sortKeys[order]
	if !ok {
		keys = sortKeys[models.SortBySubscribers]
	}
	slices.SortStableFunc(channels, func(a, b *models.ChannelRecord) int {
		for _, key := range keys {
			if c := key(a, b); c != 0 {
				return c
			}
		}
		return strings.Compare(a.ChannelID, b.ChannelID)
	})
}

// Every key sorts descending.

func bySubscribers(a, b *models.ChannelRecord) int { return cmp.Compare(b.SubscriberCount, a.SubscriberCount) }

func byViews(a, b *models.ChannelRecord) int { return cmp.Compare(b.ViewCount, a.ViewCount) }

func byVideos(a, b *models.ChannelRecord) int { return cmp.Compare(b.VideoCount, a.VideoCount) }

func byEmail(a, b *models.ChannelRecord) int { return cmp.Compare(boolRank(b.HasEmail()), boolRank(a.HasEmail())) }

func byEngagement(a, b *models.ChannelRecord) int {
	return cmp.Compare(engagement(b), engagement(a))
}

func byUploadFrequency(a, b *models.ChannelRecord) int {
	return cmp.Compare(frequency(b), frequency(a))
}

func engagement(c *models.ChannelRecord) float64 {
	if c.QualityMetrics == nil {
		return 0
	}
	return c.QualityMetrics.AvgEngagementRate
}

func frequency(c *models.ChannelRecord) float64 {
	if c.QualityMetrics == nil {
		return 0
	}
	return c.QualityMetrics.UploadFrequency
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
