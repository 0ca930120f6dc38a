package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yt-discovery/internal/models"
	"github.com/yt-discovery/internal/quota"
	"github.com/yt-discovery/internal/youtube"
)

func TestLookupEnrichesBelowFloors(t *testing.T) {
	api := newFakeAPI()
	api.addChannels(channel("UCsmall", 300, "tiny channel, site https://small.example"))
	metrics := &fakeMetrics{byID: map[string]*models.QualityMetrics{"UCsmall": {AvgViews: 42}}}
	scraped := 0
	e := newTestEngine(api, quota.NewTracker(1000),
		WithMetrics(metrics),
		WithScraper(scraperFunc(func(ctx context.Context, url string) (models.WebsiteContacts, error) {
			scraped++
			return models.WebsiteContacts{Emails: []string{"owner@small.example"}}, nil
		})),
	)

	rec, err := e.Lookup(context.Background(), "UCsmall")
	require.NoError(t, err)
	assert.Equal(t, "UCsmall", rec.ChannelID)
	require.NotNil(t, rec.QualityMetrics)
	assert.EqualValues(t, 42, rec.QualityMetrics.AvgViews)
	assert.Equal(t, 1, scraped)
	assert.Contains(t, rec.ContactInfo.Emails, "owner@small.example")
}

func TestLookupErrors(t *testing.T) {
	ctx := context.Background()

	_, err := newTestEngine(newFakeAPI(), nil).Lookup(ctx, "UCmissing")
	assert.ErrorIs(t, err, youtube.ErrChannelNotFound)

	_, err = newTestEngine(newFakeAPI(), nil).Lookup(ctx, " ")
	assert.ErrorIs(t, err, youtube.ErrChannelNotFound)

	_, err = newTestEngine(nil, nil).Lookup(ctx, "UC1")
	assert.ErrorIs(t, err, youtube.ErrUnauthenticated)

	spent := quota.NewTracker(100)
	spent.MarkExceeded()
	_, err = newTestEngine(newFakeAPI(), spent).Lookup(ctx, "UC1")
	assert.ErrorIs(t, err, youtube.ErrQuotaExceeded)
}
