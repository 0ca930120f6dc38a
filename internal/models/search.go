package models

import "time"

// SearchFilters are the caller supplied bounds for one search. Every bound is
// inclusive; a nil bound is unbounded.
type SearchFilters struct {
	MinSubscribers     *int64   `json:"min_subscribers,omitempty"`
	MaxSubscribers     *int64   `json:"max_subscribers,omitempty"`
	MinVideos          *int64   `json:"min_videos,omitempty"`
	MaxVideos          *int64   `json:"max_videos,omitempty"`
	MinUploadFrequency *float64 `json:"min_upload_frequency,omitempty"`
	MaxDaysSinceUpload *int     `json:"max_days_since_upload,omitempty"`
}

// PassesStructural checks the bounds that only need channel statistics.
func (f SearchFilters) PassesStructural(subscribers, videos int64) bool {
	if f.MinSubscribers != nil && subscribers < *f.MinSubscribers {
		return false
	}
	if f.MaxSubscribers != nil && subscribers > *f.MaxSubscribers {
		return false
	}
	if f.MinVideos != nil && videos < *f.MinVideos {
		return false
	}
	if f.MaxVideos != nil && videos > *f.MaxVideos {
		return false
	}
	return true
}

// PassesActivity checks the bounds that need quality metrics. Channels
// without metrics pass.
func (f SearchFilters) PassesActivity(m *QualityMetrics, now time.Time) bool {
	if m == nil {
		return true
	}
	if f.MinUploadFrequency != nil && m.UploadFrequency < *f.MinUploadFrequency {
		return false
	}
	if f.MaxDaysSinceUpload != nil {
		if days, ok := m.DaysSinceUpload(now); ok && days > *f.MaxDaysSinceUpload {
			return false
		}
	}
	return true
}

// HasActivityBounds reports whether any bound needs quality metrics.
func (f SearchFilters) HasActivityBounds() bool {
	return f.MinUploadFrequency != nil || f.MaxDaysSinceUpload != nil
}

// IsEmpty reports whether no bound is set.
func (f SearchFilters) IsEmpty() bool {
	return f.MinSubscribers == nil && f.MaxSubscribers == nil &&
		f.MinVideos == nil && f.MaxVideos == nil &&
		f.MinUploadFrequency == nil && f.MaxDaysSinceUpload == nil
}

// SortOrder selects how discovery results are ordered
type SortOrder string

const (
	SortBySubscribers     SortOrder = "subscribers"
	SortByRelevance       SortOrder = "relevance"
	SortByViews           SortOrder = "views"
	SortByVideos          SortOrder = "videos"
	SortByEngagement      SortOrder = "engagement"
	SortByUploadFrequency SortOrder = "upload_frequency"
)

// ParseSortOrder maps user input to a SortOrder, defaulting to subscribers.
func ParseSortOrder(s string) SortOrder {
	switch SortOrder(s) {
	case SortByRelevance, SortByViews, SortByVideos, SortByEngagement, SortByUploadFrequency:
		return SortOrder(s)
	}
	return SortBySubscribers
}

// DiscoveryResult is the outcome of one discovery run
type DiscoveryResult struct {
	SearchID         string           `json:"search_id,omitempty"`
	Keyword          string           `json:"keyword"`
	Channels         []*ChannelRecord `json:"channels"`
	TotalFound       int              `json:"total_found"`
	KeywordsSearched []string         `json:"keywords_searched"`
	QuotaStatus      QuotaStatus      `json:"quota_status"`
	Cached           bool             `json:"cached,omitempty"`
	GeneratedAt      time.Time        `json:"generated_at"`
}

// SearchHistoryEntry is the event persisted for every completed search
type SearchHistoryEntry struct {
	ID          string        `json:"id"`
	Keyword     string        `json:"keyword"`
	ResultCount int           `json:"results_count"`
	Filters     SearchFilters `json:"filters"`
	Timestamp   time.Time     `json:"timestamp"`
}

// KeywordStats aggregates history per keyword
type KeywordStats struct {
	Keyword      string    `json:"keyword"`
	SearchCount  int64     `json:"search_count"`
	TotalResults int64     `json:"total_results"`
	LastSearched time.Time `json:"last_searched"`
}

// DatabaseStats summarises the persisted data
type DatabaseStats struct {
	TotalSearches  int64 `json:"total_searches"`
	TotalChannels  int64 `json:"total_channels"`
	UniqueKeywords int64 `json:"unique_keywords"`
}
