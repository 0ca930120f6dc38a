package discovery

import (
	"context"
	"strings"

	"github.com/yt-discovery/internal/models"
	"github.com/yt-discovery/internal/youtube"
)

// Lookup fetches and fully enriches a single channel. Unlike Discover it
// ignores the subscriber floors: the caller asked for this channel by name.
func (e *Engine) Lookup(ctx context.Context, channelID string) (*models.ChannelRecord, error) {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return nil, youtube.ErrChannelNotFound
	}
	if e.api == nil {
		return nil, youtube.ErrUnauthenticated
	}
	if !e.tracker.CanProceed() {
		return nil, youtube.ErrQuotaExceeded
	}

	items, err := e.api.Channels(ctx, []string{channelID})
	if err != nil {
		return nil, err
	}
	for _, ch := range items {
		if ch == nil || ch.Id != channelID {
			continue
		}
		single := *e
		single.metricsFloor, single.contactFloor = 0, 0
		return single.enrichBatch(ctx, []*models.ChannelRecord{NewRecord(ch)})[0], nil
	}
	return nil, youtube.ErrChannelNotFound
}
