package api

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yt-discovery/internal/models"
)

const notAvailable = "N/A"

var csvHeader = []string{
	"Channel Name", "URL", "Subscribers", "Video Count", "Total Views",
	"Upload Frequency (per week)", "Avg Views per Video", "Avg Engagement Rate (%)",
	"Last Upload Date", "Days Since Last Upload", "Description", "Country",
	"Website URL", "Emails Found", "Social Media", "Contact Pages",
	"WHOIS Emails", "Channel Age (days)", "Custom URL",
}

// ChannelsCSV renders channels as a spreadsheet-friendly CSV. Relative
// columns are computed against now.
func ChannelsCSV(channels []*models.ChannelRecord, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, ch := range channels {
		if err := w.Write(csvRow(ch, now)); err != nil {
			return nil, fmt.Errorf("write %s: %w", ch.ChannelID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func csvRow(ch *models.ChannelRecord, now time.Time) []string {
	freq, avgViews, engagement, lastUpload, daysSince := notAvailable, notAvailable, notAvailable, notAvailable, notAvailable
	if m := ch.QualityMetrics; m != nil {
		freq = strconv.FormatFloat(m.UploadFrequency, 'f', -1, 64)
		avgViews = strconv.FormatInt(m.AvgViews, 10)
		engagement = strconv.FormatFloat(m.AvgEngagementRate, 'f', -1, 64)
		if m.LastUploadDate != nil {
			lastUpload = m.LastUploadDate.UTC().Format(time.RFC3339)
		}
		if days, ok := m.DaysSinceUpload(now); ok {
			daysSince = strconv.Itoa(days)
		}
	}

	age := notAvailable
	if !ch.PublishedAt.IsZero() {
		age = strconv.Itoa(int(now.Sub(ch.PublishedAt).Hours() / 24))
	}
	country := ch.Country
	if country == "" {
		country = "Unknown"
	}
	title := ch.Title
	if title == "" {
		title = notAvailable
	}

	ci := ch.ContactInfo
	return []string{
		title,
		ch.URL,
		strconv.FormatInt(ch.SubscriberCount, 10),
		strconv.FormatInt(ch.VideoCount, 10),
		strconv.FormatInt(ch.ViewCount, 10),
		freq,
		avgViews,
		engagement,
		lastUpload,
		daysSince,
		truncate(ch.Description, 200),
		country,
		ch.WebsiteURL,
		strings.Join(ci.Emails, ", "),
		formatSocial(ci.SocialMedia),
		strings.Join(ci.WebsiteContacts.ContactPages, ", "),
		strings.Join(ci.WhoisInfo.Emails, ", "),
		age,
		ch.CustomURL,
	}
}

func formatSocial(handles map[string]string) string {
	platforms := make([]string, 0, len(handles))
	for p := range handles {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)

	parts := make([]string, len(platforms))
	for i, p := range platforms {
		parts[i] = p + ": " + handles[p]
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

type exportInfo struct {
	Keyword       string    `json:"keyword"`
	ExportDate    time.Time `json:"export_date"`
	TotalChannels int       `json:"total_channels"`
	Format        string    `json:"format"`
}

// ChannelsJSON renders channels with export metadata.
func ChannelsJSON(keyword string, channels []*models.ChannelRecord, now time.Time) ([]byte, error) {
	if channels == nil {
		channels = []*models.ChannelRecord{}
	}
	return json.MarshalIndent(struct {
		ExportInfo exportInfo              `json:"export_info"`
		Channels   []*models.ChannelRecord `json:"channels"`
	}{
		ExportInfo: exportInfo{Keyword: keyword, ExportDate: now, TotalChannels: len(channels), Format: "json"},
		Channels:   channels,
	}, "", "  ")
}

func exportFilename(keyword, ext string, now time.Time) string {
	name := strings.Join(strings.Fields(keyword), "_")
	if name == "" {
		name = "search"
	}
	return fmt.Sprintf("youtube_channels_%s_%s.%s", name, now.Format("20060102_150405"), ext)
}
