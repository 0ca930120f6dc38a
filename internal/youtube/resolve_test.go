package youtube

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yt-discovery/internal/quota"
)

const testChannelID = "UCabcdefghijklmnopqrstuv"

func TestParseChannelURL(t *testing.T) {
	tests := []struct {
		in   string
		want ChannelRef
	}{
		{in: testChannelID, want: ChannelRef{ID: testChannelID}},
		{in: "@janedoe", want: ChannelRef{Handle: "janedoe"}},
		{in: "https://www.youtube.com/channel/" + testChannelID, want: ChannelRef{ID: testChannelID}},
		{in: "https://www.youtube.com/channel/" + testChannelID + "/videos", want: ChannelRef{ID: testChannelID}},
		{in: "youtube.com/@janedoe/featured", want: ChannelRef{Handle: "janedoe"}},
		{in: "https://m.youtube.com/c/JaneDoe", want: ChannelRef{Username: "JaneDoe"}},
		{in: "https://youtube.com/user/janedoe1", want: ChannelRef{Username: "janedoe1"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseChannelURL(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseChannelURLRejects(t *testing.T) {
	for _, in := range []string{
		"",
		"https://youtu.be/dQw4w9WgXcQ",
		"https://vimeo.com/@someone",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://www.youtube.com/channel/not-an-id",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseChannelURL(in)
			assert.ErrorIs(t, err, ErrUnsupportedURL)
		})
	}
}

func TestResolveChannel(t *testing.T) {
	var gotHandle, gotUsername string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/channels"), r.URL.Path)
		gotHandle = r.URL.Query().Get("forHandle")
		gotUsername = r.URL.Query().Get("forUsername")
		w.Header().Set("Content-Type", "application/json")
		if gotHandle == "@ghost" {
			fmt.Fprint(w, `{"items": []}`)
			return
		}
		fmt.Fprintf(w, `{"items": [{"id": %q}]}`, testChannelID)
	})
	ctx := context.Background()

	id, err := c.ResolveChannel(ctx, ChannelRef{Handle: "janedoe"})
	require.NoError(t, err)
	assert.Equal(t, testChannelID, id)
	assert.Equal(t, "@janedoe", gotHandle)

	id, err = c.ResolveChannel(ctx, ChannelRef{Username: "JaneDoe"})
	require.NoError(t, err)
	assert.Equal(t, testChannelID, id)
	assert.Equal(t, "JaneDoe", gotUsername)

	_, err = c.ResolveChannel(ctx, ChannelRef{Handle: "ghost"})
	assert.ErrorIs(t, err, ErrChannelNotFound)
}

func TestMeteredResolveChannel(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"items": [{"id": %q}]}`, testChannelID)
	})
	tracker := quota.NewTracker(100)
	m := NewMetered(c, tracker, nil, zerolog.Nop())

	id, err := m.ResolveChannel(context.Background(), ChannelRef{ID: testChannelID})
	require.NoError(t, err)
	assert.Equal(t, testChannelID, id)
	assert.Equal(t, 0, calls, "a known id needs no lookup")

	_, err = m.ResolveChannel(context.Background(), ChannelRef{Handle: "janedoe"})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, CostList, tracker.Status().Used)
}
