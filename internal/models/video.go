package models

import (
	"math"
	"time"
)

// Video represents one of a channel's recent uploads
type Video struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Views       int64     `json:"views"`
	Likes       int64     `json:"likes"`
	Comments    int64     `json:"comments"`
	PublishedAt time.Time `json:"publishedAt"`
}

// EngagementRate returns (likes + comments) / views as a percentage,
// rounded to two decimals. A video without views has no engagement.
func (v *Video) EngagementRate() float64 {
	if v.Views <= 0 {
		return 0
	}
	return Round2(float64(v.Likes+v.Comments) / float64(v.Views) * 100)
}

// Round2 rounds to two decimal places.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}
