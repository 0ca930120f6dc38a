// Package youtube adapts the YouTube Data API v3 client to the calls the
// discovery pipeline needs, and classifies provider failures.
package youtube

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	ytv3 "google.golang.org/api/youtube/v3"
)

// Declared quota cost of each endpoint, in units.
const (
	CostSearch = 100
	CostList   = 1
)

// MaxIDsPerLookup is the provider limit for batched channel/video lookups.
const MaxIDsPerLookup = 50

// Result types accepted by search
const (
	TypeChannel = "channel"
	TypeVideo   = "video"
)

// SearchQuery is one page request against search.list
type SearchQuery struct {
	Query      string
	Type       string // TypeChannel or TypeVideo
	Order      string // relevance, viewCount, date, rating, title, videoCount
	ChannelID  string // restrict to one channel
	PageToken  string
	MaxResults int64
}

// SearchPage is one page of search results. ChannelIDs holds the owning
// channel for video results, deduplicated in result order.
type SearchPage struct {
	ChannelIDs    []string
	VideoIDs      []string
	NextPageToken string
}

// API is the subset of the YouTube Data API used by discovery and the
// quality calculator.
type API interface {
	Search(ctx context.Context, q SearchQuery) (*SearchPage, error)
	// Channels resolves at most MaxIDsPerLookup ids to snippet, statistics
	// and branding settings.
	Channels(ctx context.Context, ids []string) ([]*ytv3.Channel, error)
	// Videos resolves at most MaxIDsPerLookup ids to snippet and statistics.
	Videos(ctx context.Context, ids []string) ([]*ytv3.Video, error)
}

// Client implements API over the generated Google client
type Client struct {
	service *ytv3.Service
}

// NewClient creates a client authenticated with an API key. Extra options are
// applied after the key (tests use option.WithEndpoint).
func NewClient(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, ErrUnauthenticated
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := ytv3.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	return &Client{service: service}, nil
}

// Search runs one page of search.list
func (c *Client) Search(ctx context.Context, q SearchQuery) (*SearchPage, error) {
	if q.Type == "" {
		q.Type = TypeChannel
	}
	if q.MaxResults <= 0 || q.MaxResults > MaxIDsPerLookup {
		q.MaxResults = MaxIDsPerLookup
	}

	call := c.service.Search.List([]string{"snippet"}).
		Type(q.Type).
		MaxResults(q.MaxResults)
	if q.Query != "" {
		call = call.Q(q.Query)
	}
	if q.Order != "" {
		call = call.Order(q.Order)
	}
	if q.ChannelID != "" {
		call = call.ChannelId(q.ChannelID)
	}
	if q.PageToken != "" {
		call = call.PageToken(q.PageToken)
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, classify(err)
	}

	page := &SearchPage{NextPageToken: resp.NextPageToken}
	seen := make(map[string]struct{}, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil {
			continue
		}
		channelID := ""
		if item.Id != nil {
			channelID = item.Id.ChannelId
			if item.Id.VideoId != "" {
				page.VideoIDs = append(page.VideoIDs, item.Id.VideoId)
			}
		}
		if channelID == "" && item.Snippet != nil {
			channelID = item.Snippet.ChannelId
		}
		if channelID == "" {
			continue
		}
		if _, ok := seen[channelID]; ok {
			continue
		}
		seen[channelID] = struct{}{}
		page.ChannelIDs = append(page.ChannelIDs, channelID)
	}
	return page, nil
}

// Channels fetches channel details for a batch of ids
func (c *Client) Channels(ctx context.Context, ids []string) ([]*ytv3.Channel, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxIDsPerLookup {
		return nil, fmt.Errorf("youtube: at most %d ids per lookup, got %d", MaxIDsPerLookup, len(ids))
	}

	resp, err := c.service.Channels.List([]string{"snippet", "statistics", "brandingSettings"}).
		Id(ids...).
		MaxResults(MaxIDsPerLookup).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(err)
	}
	return resp.Items, nil
}

// Videos fetches statistics and snippet for a batch of video ids
func (c *Client) Videos(ctx context.Context, ids []string) ([]*ytv3.Video, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxIDsPerLookup {
		return nil, fmt.Errorf("youtube: at most %d ids per lookup, got %d", MaxIDsPerLookup, len(ids))
	}

	resp, err := c.service.Videos.List([]string{"statistics", "snippet"}).
		Id(ids...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(err)
	}
	return resp.Items, nil
}

// Batch splits ids into chunks of at most size elements.
func Batch(ids []string, size int) [][]string {
	if size <= 0 {
		size = MaxIDsPerLookup
	}
	var out [][]string
	for i := 0; i < len(ids); i += size {
		end := i + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[i:end])
	}
	return out
}
