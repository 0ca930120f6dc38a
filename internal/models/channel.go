package models

import (
	"strings"
	"time"
)

// ChannelRecord represents one discovered YouTube channel
type ChannelRecord struct {
	ChannelID       string          `json:"channel_id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	PublishedAt     time.Time       `json:"published_at"`
	Country         string          `json:"country"`
	CustomURL       string          `json:"custom_url"`
	ThumbnailURL    string          `json:"thumbnail_url"`
	URL             string          `json:"url"`
	SubscriberCount int64           `json:"subscriber_count"`
	VideoCount      int64           `json:"video_count"`
	ViewCount       int64           `json:"view_count"`
	WebsiteURL      string          `json:"website_url,omitempty"`
	ContactInfo     ContactInfo     `json:"contact_info"`
	QualityMetrics  *QualityMetrics `json:"quality_metrics,omitempty"`
}

// ChannelURL returns the canonical channel page for an id.
func ChannelURL(channelID string) string {
	return "https://www.youtube.com/channel/" + channelID
}

// Clone returns a deep copy so enrichment workers never share maps or slices.
func (c *ChannelRecord) Clone() *ChannelRecord {
	cp := *c
	cp.ContactInfo = c.ContactInfo.Clone()
	if c.QualityMetrics != nil {
		m := *c.QualityMetrics
		if m.LastUploadDate != nil {
			d := *m.LastUploadDate
			m.LastUploadDate = &d
		}
		cp.QualityMetrics = &m
	}
	return &cp
}

// HasEmail reports whether any contact email was found for the channel.
func (c *ChannelRecord) HasEmail() bool {
	return len(c.ContactInfo.Emails) > 0
}

// ContactInfo groups everything learned about how to reach a channel
type ContactInfo struct {
	Emails          []string          `json:"emails"`
	SocialMedia     map[string]string `json:"social_media"`
	WebsiteContacts WebsiteContacts   `json:"website_contacts"`
	WhoisInfo       WhoisInfo         `json:"whois_info"`
}

// NewContactInfo returns an empty, ready to use ContactInfo.
func NewContactInfo() ContactInfo {
	return ContactInfo{
		Emails:      []string{},
		SocialMedia: map[string]string{},
		WebsiteContacts: WebsiteContacts{
			ContactPages: []string{},
			Emails:       []string{},
		},
		WhoisInfo: WhoisInfo{Emails: []string{}},
	}
}

// AddEmails merges emails, keeping the list lower-cased and free of duplicates.
func (ci *ContactInfo) AddEmails(emails ...string) {
	ci.Emails = MergeEmails(ci.Emails, emails...)
}

// AddSocial records a handle for platforms not seen yet; the first handle wins.
func (ci *ContactInfo) AddSocial(handles map[string]string) {
	if len(handles) == 0 {
		return
	}
	if ci.SocialMedia == nil {
		ci.SocialMedia = make(map[string]string, len(handles))
	}
	for platform, handle := range handles {
		if _, ok := ci.SocialMedia[platform]; !ok {
			ci.SocialMedia[platform] = handle
		}
	}
}

// Clone returns a deep copy.
func (ci ContactInfo) Clone() ContactInfo {
	out := ContactInfo{
		Emails: append([]string{}, ci.Emails...),
		WebsiteContacts: WebsiteContacts{
			ContactPages: append([]string{}, ci.WebsiteContacts.ContactPages...),
			Emails:       append([]string{}, ci.WebsiteContacts.Emails...),
			SocialMedia:  cloneMap(ci.WebsiteContacts.SocialMedia),
		},
		WhoisInfo: WhoisInfo{
			Emails:       append([]string{}, ci.WhoisInfo.Emails...),
			Registrar:    ci.WhoisInfo.Registrar,
			CreationDate: ci.WhoisInfo.CreationDate,
		},
		SocialMedia: cloneMap(ci.SocialMedia),
	}
	if out.SocialMedia == nil {
		out.SocialMedia = map[string]string{}
	}
	return out
}

// WebsiteContacts is what the scraper found on a channel's website
type WebsiteContacts struct {
	ContactPages []string          `json:"contact_pages"`
	Emails       []string          `json:"emails"`
	SocialMedia  map[string]string `json:"social_media,omitempty"`
}

// IsEmpty reports whether the scrape produced nothing.
func (w WebsiteContacts) IsEmpty() bool {
	return len(w.ContactPages) == 0 && len(w.Emails) == 0 && len(w.SocialMedia) == 0
}

// WhoisInfo is the best-effort domain registration record
type WhoisInfo struct {
	Emails       []string `json:"emails"`
	Registrar    string   `json:"registrar,omitempty"`
	CreationDate string   `json:"creation_date,omitempty"`
}

// MergeEmails appends emails to dst, lower-casing and skipping duplicates.
func MergeEmails(dst []string, emails ...string) []string {
	out := make([]string, 0, len(dst)+len(emails))
	seen := make(map[string]struct{}, len(dst)+len(emails))
	for _, list := range [][]string{dst, emails} {
		for _, e := range list {
			e = strings.ToLower(strings.TrimSpace(e))
			if e == "" {
				continue
			}
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			out = append(out, e)
		}
	}
	return out
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
