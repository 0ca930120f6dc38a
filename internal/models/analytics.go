package models

import "time"

// QualityMetrics summarises a channel's recent upload activity
type QualityMetrics struct {
	UploadFrequency   float64    `json:"upload_frequency"` // videos per week
	AvgViews          int64      `json:"avg_views"`
	AvgEngagementRate float64    `json:"avg_engagement_rate"` // percent
	LastUploadDate    *time.Time `json:"last_upload_date"`
	TotalRecentVideos int        `json:"total_recent_videos"`
}

// DaysSinceUpload returns whole days between the last upload and now, or
// false when the channel has no dated upload.
func (m *QualityMetrics) DaysSinceUpload(now time.Time) (int, bool) {
	if m == nil || m.LastUploadDate == nil {
		return 0, false
	}
	return int(now.Sub(*m.LastUploadDate).Hours() / 24), true
}

// Quota tiers reported by QuotaStatus
const (
	QuotaHealthy  = "healthy"
	QuotaWarning  = "warning"
	QuotaCritical = "critical"
)

// QuotaStatus is a point-in-time view of the daily API budget
type QuotaStatus struct {
	Used       int     `json:"quota_used"`
	Limit      int     `json:"quota_limit"`
	Remaining  int     `json:"quota_remaining"`
	Percentage float64 `json:"quota_percentage"`
	Tier       string  `json:"status"`
	Exceeded   bool    `json:"quota_exceeded"`
	ResetDate  string  `json:"reset_date"`
}
