package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yt-discovery/internal/models"
)

func record(id string, subs int64, email bool, engagement float64) *models.ChannelRecord {
	rec := &models.ChannelRecord{
		ChannelID:       id,
		SubscriberCount: subs,
		ViewCount:       subs * 3,
		VideoCount:      subs / 100,
		ContactInfo:     models.NewContactInfo(),
		QualityMetrics:  &models.QualityMetrics{AvgEngagementRate: engagement, UploadFrequency: engagement / 2},
	}
	if email {
		rec.ContactInfo.AddEmails(id + "@example.com")
	}
	return rec
}

func TestSortChannels(t *testing.T) {
	tests := []struct {
		name  string
		order models.SortOrder
		want  []string
	}{
		{name: "subscribers", order: models.SortBySubscribers, want: []string{"r1", "r3", "r2", "r4"}},
		{name: "unknown falls back to subscribers", order: "bogus", want: []string{"r1", "r3", "r2", "r4"}},
		{name: "relevance", order: models.SortByRelevance, want: []string{"r4", "r3", "r2", "r1"}},
		{name: "engagement", order: models.SortByEngagement, want: []string{"r1", "r4", "r3", "r2"}},
		{name: "upload frequency", order: models.SortByUploadFrequency, want: []string{"r1", "r4", "r3", "r2"}},
		{name: "views", order: models.SortByViews, want: []string{"r1", "r3", "r2", "r4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := []*models.ChannelRecord{
				record("r2", 10_000, true, 1),
				record("r1", 1_000_000, false, 9),
				record("r4", 5_000, true, 5),
				record("r3", 50_000, true, 1),
			}
			SortChannels(recs, tt.order)
			assert.Equal(t, tt.want, ids(recs))
		})
	}
}

func TestSortTieBreaksOnChannelID(t *testing.T) {
	recs := []*models.ChannelRecord{
		record("UCb", 100, false, 0),
		record("UCc", 100, false, 0),
		record("UCa", 100, false, 0),
	}
	SortChannels(recs, models.SortBySubscribers)
	assert.Equal(t, []string{"UCa", "UCb", "UCc"}, ids(recs))
}

func TestSortMissingMetricsRankLast(t *testing.T) {
	withMetrics := record("UCm", 10, false, 0.5)
	without := record("UCn", 1_000, false, 0)
	without.QualityMetrics = nil

	recs := []*models.ChannelRecord{without, withMetrics}
	SortChannels(recs, models.SortByEngagement)
	assert.Equal(t, []string{"UCm", "UCn"}, ids(recs))
}
