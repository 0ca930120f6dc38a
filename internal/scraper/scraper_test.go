package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yt-discovery/internal/retry"
)

var fastRetry = retry.Config{MaxRetries: 1, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond, Multiplier: 2}

func TestScrapeFollowsContactPages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla")
		fmt.Fprint(w, `<html><body>
			<p>Say hi: hello@brand.com</p>
			<a href="/contact">Contact</a>
			<a href="/about">About</a>
			<a href="/missing-contact">Broken</a>
			<a href="/about/contact">Too many</a>
			<a href="https://www.instagram.com/brandgram">ig</a>
			<p>twitter.com/brandtweets</p>
		</body></html>`)
	})
	mux.HandleFunc("/contact", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<p>press [at] brand [dot] com</p><a href="mailto:Sales@Brand.com">sales</a>`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<p>Contact: hello@brand.com</p>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := New(WithRetry(fastRetry))
	got, err := s.Scrape(context.Background(), srv.URL+"/")
	require.NoError(t, err)

	assert.Equal(t, []string{"hello@brand.com", "press@brand.com", "sales@brand.com"}, got.Emails)
	assert.Equal(t, []string{srv.URL + "/contact", srv.URL + "/about", srv.URL + "/missing-contact"}, got.ContactPages)
	assert.Equal(t, map[string]string{"instagram": "brandgram", "twitter": "brandtweets"}, got.SocialMedia)
}

func TestScrapeNon200ReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	got, err := New(WithRetry(fastRetry)).Scrape(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, got.IsEmpty())
}

func TestScrapeRetriesTransientStatusOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `<p>ok@brand.com</p>`)
	}))
	defer srv.Close()

	got, err := New(WithRetry(fastRetry)).Scrape(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok@brand.com"}, got.Emails)
	assert.Equal(t, int32(2), calls.Load())
}

func TestScrapeTimeout(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	s := New(WithTimeout(50*time.Millisecond), WithRetry(fastRetry))
	start := time.Now()
	got, err := s.Scrape(context.Background(), srv.URL)

	require.Error(t, err)
	assert.True(t, got.IsEmpty())
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int32(2), calls.Load(), "a timeout is retried once")
}

func TestScrapeCapsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<p>early@brand.com</p>")
		fmt.Fprint(w, strings.Repeat("x", 4096))
		fmt.Fprint(w, "<p>late@brand.com</p>")
	}))
	defer srv.Close()

	got, err := New(WithMaxBody(1024)).Scrape(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{"early@brand.com"}, got.Emails)
}

func TestScrapeRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://brand.com", "not a url"} {
		_, err := New().Scrape(context.Background(), raw)
		assert.Error(t, err, raw)
	}
}
