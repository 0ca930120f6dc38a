// Package scraper fetches a channel's website and its contact pages and
// extracts reachable contact details.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/yt-discovery/internal/extract"
	"github.com/yt-discovery/internal/models"
	"github.com/yt-discovery/internal/retry"
)

const (
	DefaultTimeout     = 8 * time.Second
	DefaultPageTimeout = 4 * time.Second
	DefaultMaxBody     = 2 << 20
	DefaultMaxPages    = 3

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// Scraper is safe for concurrent use.
type Scraper struct {
	client      *http.Client
	timeout     time.Duration
	pageTimeout time.Duration
	maxBody     int64
	maxPages    int
	retry       retry.Config
	logger      zerolog.Logger
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option { return func(s *Scraper) { s.client = c } }

// WithTimeout bounds each request for the main page.
func WithTimeout(d time.Duration) Option {
	return func(s *Scraper) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithPageTimeout bounds each contact page request.
func WithPageTimeout(d time.Duration) Option {
	return func(s *Scraper) {
		if d > 0 {
			s.pageTimeout = d
		}
	}
}

// WithMaxBody caps the bytes read per page
func WithMaxBody(n int64) Option { return func(s *Scraper) { s.maxBody = n } }

// WithRetry sets the retry policy for transient failures
func WithRetry(rc retry.Config) Option { return func(s *Scraper) { s.retry = rc } }

// WithLogger sets the scraper logger
func WithLogger(l zerolog.Logger) Option { return func(s *Scraper) { s.logger = l } }

// New creates a scraper with default timeouts
func New(opts ...Option) *Scraper {
	s := &Scraper{
		client:      &http.Client{},
		timeout:     DefaultTimeout,
		pageTimeout: DefaultPageTimeout,
		maxBody:     DefaultMaxBody,
		maxPages:    DefaultMaxPages,
		retry:       retry.Once,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scrape fetches rawURL and up to three of its contact pages. Any failure
// on the main page returns an empty result with the error; contact page
// failures are skipped.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (models.WebsiteContacts, error) {
	out := models.WebsiteContacts{
		ContactPages: []string{},
		Emails:       []string{},
	}

	base, err := url.Parse(rawURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return out, fmt.Errorf("invalid website URL %q", rawURL)
	}

	doc, err := s.fetch(ctx, base.String(), s.timeout)
	if err != nil {
		return out, fmt.Errorf("failed to fetch %s: %w", base.Host, err)
	}

	text := extract.PageText(doc)
	out.Emails = models.MergeEmails(out.Emails, extract.Emails(text)...)
	out.Emails = models.MergeEmails(out.Emails, extract.MailtoEmails(doc)...)

	social := extract.SocialHandles(extract.Hrefs(doc))
	for platform, handle := range extract.SocialHandles(text) {
		if _, ok := social[platform]; !ok {
			social[platform] = handle
		}
	}
	if len(social) > 0 {
		out.SocialMedia = social
	}

	if pages := extract.ContactLinks(doc, base, s.maxPages); pages != nil {
		out.ContactPages = pages
	}

	for _, page := range out.ContactPages {
		if ctx.Err() != nil {
			break
		}
		pageDoc, err := s.fetch(ctx, page, s.pageTimeout)
		if err != nil {
			s.logger.Debug().Err(err).Str("url", page).Msg("contact page skipped")
			continue
		}
		out.Emails = models.MergeEmails(out.Emails, extract.Emails(extract.PageText(pageDoc))...)
		out.Emails = models.MergeEmails(out.Emails, extract.MailtoEmails(pageDoc)...)
	}

	return out, nil
}

func (s *Scraper) fetch(ctx context.Context, target string, timeout time.Duration) (*goquery.Document, error) {
	return retry.Do(ctx, s.retry, func() (*goquery.Document, error) {
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, &retry.StatusError{StatusCode: resp.StatusCode}
		}
		return goquery.NewDocumentFromReader(io.LimitReader(resp.Body, s.maxBody))
	})
}
