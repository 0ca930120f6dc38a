package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngagementRate(t *testing.T) {
	tests := []struct {
		name  string
		video Video
		want  float64
	}{
		{name: "no views", video: Video{Likes: 10, Comments: 5}, want: 0},
		{name: "rounded", video: Video{Views: 300, Likes: 10, Comments: 1}, want: 3.67},
		{name: "whole", video: Video{Views: 200, Likes: 3}, want: 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.video.EngagementRate())
		})
	}
}

func TestContactInfoMerging(t *testing.T) {
	ci := NewContactInfo()
	ci.AddEmails("Jane@Example.com", " ", "jane@example.com", "bob@example.com")
	ci.AddSocial(map[string]string{"twitter": "jane"})
	ci.AddSocial(map[string]string{"twitter": "other", "instagram": "jane.ig"})

	assert.Equal(t, []string{"jane@example.com", "bob@example.com"}, ci.Emails)
	assert.Equal(t, map[string]string{"twitter": "jane", "instagram": "jane.ig"}, ci.SocialMedia)
}

func TestChannelRecordCloneIsDeep(t *testing.T) {
	last := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	orig := &ChannelRecord{
		ChannelID:      "UC1",
		ContactInfo:    NewContactInfo(),
		QualityMetrics: &QualityMetrics{AvgViews: 10, LastUploadDate: &last},
	}
	orig.ContactInfo.AddEmails("a@b.co")

	cp := orig.Clone()
	cp.ContactInfo.AddEmails("c@d.co")
	cp.ContactInfo.SocialMedia["twitter"] = "x"
	cp.QualityMetrics.AvgViews = 99
	*cp.QualityMetrics.LastUploadDate = last.AddDate(0, 0, 1)

	assert.Equal(t, []string{"a@b.co"}, orig.ContactInfo.Emails)
	assert.Empty(t, orig.ContactInfo.SocialMedia)
	assert.EqualValues(t, 10, orig.QualityMetrics.AvgViews)
	assert.Equal(t, last, *orig.QualityMetrics.LastUploadDate)
}

func TestSearchFilters(t *testing.T) {
	minSubs, maxVideos := int64(1000), int64(50)
	minFreq, maxDays := 1.0, 30
	f := SearchFilters{MinSubscribers: &minSubs, MaxVideos: &maxVideos, MinUploadFrequency: &minFreq, MaxDaysSinceUpload: &maxDays}
	now := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	recent := now.AddDate(0, 0, -3)
	stale := now.AddDate(0, 0, -45)

	assert.False(t, f.IsEmpty())
	assert.True(t, SearchFilters{}.IsEmpty())

	assert.True(t, f.PassesStructural(1000, 50), "bounds are inclusive")
	assert.False(t, f.PassesStructural(999, 10))
	assert.False(t, f.PassesStructural(5000, 51))

	assert.True(t, f.PassesActivity(nil, now))
	assert.True(t, f.PassesActivity(&QualityMetrics{UploadFrequency: 2, LastUploadDate: &recent}, now))
	assert.False(t, f.PassesActivity(&QualityMetrics{UploadFrequency: 0.5, LastUploadDate: &recent}, now))
	assert.False(t, f.PassesActivity(&QualityMetrics{UploadFrequency: 2, LastUploadDate: &stale}, now))
	assert.True(t, f.PassesActivity(&QualityMetrics{UploadFrequency: 2}, now), "undated uploads are not stale")
}

func TestParseSortOrder(t *testing.T) {
	assert.Equal(t, SortByEngagement, ParseSortOrder("engagement"))
	assert.Equal(t, SortByUploadFrequency, ParseSortOrder("upload_frequency"))
	assert.Equal(t, SortBySubscribers, ParseSortOrder(""))
	assert.Equal(t, SortBySubscribers, ParseSortOrder("popularity"))
}

func TestMaskConnectionString(t *testing.T) {
	assert.Equal(t,
		"sqlitecloud://host.sqlite.cloud:8860/yt.sqlite?apikey=***",
		maskConnectionString("sqlitecloud://host.sqlite.cloud:8860/yt.sqlite?apikey=s3cret"))
	assert.Equal(t, "sqlitecloud://local/db", maskConnectionString("sqlitecloud://local/db"))
}

func TestDecodeHistoryRow(t *testing.T) {
	entry, err := decodeHistoryRow([]string{"id-1", "minecraft", "12", `{"min_subscribers":500}`, "2024-05-01T10:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, "id-1", entry.ID)
	assert.Equal(t, 12, entry.ResultCount)
	require.NotNil(t, entry.Filters.MinSubscribers)
	assert.EqualValues(t, 500, *entry.Filters.MinSubscribers)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), entry.Timestamp)

	_, err = decodeHistoryRow([]string{"id-2", "x", "many", "{}", "2024-05-01T10:00:00Z"})
	assert.Error(t, err)
}

func TestDecodeKeywordRow(t *testing.T) {
	stats, err := decodeKeywordRow([]string{"cooking", "3", "70", "2024-05-02T08:30:00Z"})
	require.NoError(t, err)
	assert.Equal(t, KeywordStats{
		Keyword:      "cooking",
		SearchCount:  3,
		TotalResults: 70,
		LastSearched: time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC),
	}, stats)
}
