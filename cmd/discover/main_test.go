package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yt-discovery/internal/models"
)

func TestFiltersFromOnlySetsChangedFlags(t *testing.T) {
	f := searchFlags{minSubs: 0, maxSubs: 5000, minVideos: 3, maxDaysSinceUpload: 30}
	changed := map[string]bool{"min-subscribers": true, "max-days-since-upload": true}

	sf := filtersFrom(f, func(name string) bool { return changed[name] })
	require.NotNil(t, sf.MinSubscribers)
	assert.Equal(t, int64(0), *sf.MinSubscribers)
	require.NotNil(t, sf.MaxDaysSinceUpload)
	assert.Equal(t, 30, *sf.MaxDaysSinceUpload)
	assert.Nil(t, sf.MaxSubscribers)
	assert.Nil(t, sf.MinVideos)
	assert.Nil(t, sf.MinUploadFrequency)
}

func TestRender(t *testing.T) {
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	channels := []*models.ChannelRecord{{ChannelID: "UC1", Title: "Chess Club", URL: "https://www.youtube.com/channel/UC1"}}

	out, err := render("CSV", "chess", channels, now)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("Channel Name,URL,")))
	assert.Contains(t, string(out), "Chess Club")

	out, err = render("json", "chess", channels, now)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"UC1"`)

	_, err = render("xlsx", "chess", channels, now)
	assert.Error(t, err)
}

func TestRootCommandRequiresKeyword(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{})
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)
	cmd.SetOut(&stderr)

	err := cmd.Execute()
	assert.ErrorContains(t, err, "keyword")
}
