// Package domaininfo looks up WHOIS registration details for a channel's
// website domain.
package domaininfo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"

	"github.com/yt-discovery/internal/extract"
	"github.com/yt-discovery/internal/models"
	"github.com/yt-discovery/internal/retry"
)

const (
	DefaultTimeout = 5 * time.Second
	maxEmails      = 3
)

// ErrInvalidHost is returned when a host has no registrable domain
var ErrInvalidHost = errors.New("domaininfo: host has no registrable domain")

// Fetcher returns the raw WHOIS record for a registrable domain.
type Fetcher func(ctx context.Context, domain string) (string, error)

// Parser turns a raw WHOIS record into structured fields.
type Parser func(raw string) (whoisparser.WhoisInfo, error)

// Client looks up WHOIS registration details
type Client struct {
	fetch   Fetcher
	parse   Parser
	timeout time.Duration
	retry   retry.Config
	logger  zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithFetcher replaces the raw WHOIS query
func WithFetcher(f Fetcher) Option { return func(c *Client) { c.fetch = f } }

// WithParser replaces the WHOIS response parser
func WithParser(p Parser) Option { return func(c *Client) { c.parse = p } }

// WithTimeout bounds each WHOIS query
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetry sets the retry policy for timeouts
func WithRetry(rc retry.Config) Option { return func(c *Client) { c.retry = rc } }

// WithLogger sets the client logger
func WithLogger(l zerolog.Logger) Option { return func(c *Client) { c.logger = l } }

// New creates a client using the public WHOIS servers
func New(opts ...Option) *Client {
	c := &Client{
		parse:   whoisparser.Parse,
		timeout: DefaultTimeout,
		retry:   retry.Once,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fetch == nil {
		c.fetch = whoisFetcher(c.timeout)
	}
	return c
}

// whoisFetcher queries the registry WHOIS servers. The whois client has no
// context support, so cancellation abandons the in-flight query.
func whoisFetcher(timeout time.Duration) Fetcher {
	client := whois.NewClient().SetTimeout(timeout)
	return func(ctx context.Context, domain string) (string, error) {
		type result struct {
			raw string
			err error
		}
		done := make(chan result, 1)
		go func() {
			raw, err := client.Whois(domain)
			done <- result{raw: raw, err: err}
		}()
		select {
		case r := <-done:
			return r.raw, r.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// Lookup resolves host (a hostname or URL) to its registrable domain and
// returns the registrar, creation date and up to three contact emails.
// Failures return an empty record alongside the error.
func (c *Client) Lookup(ctx context.Context, host string) (models.WhoisInfo, error) {
	out := models.WhoisInfo{Emails: []string{}}

	domain, err := RegistrableDomain(host)
	if err != nil {
		return out, err
	}

	raw, err := retry.Do(ctx, c.retry, func() (string, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return c.fetch(attemptCtx, domain)
	})
	if err != nil {
		return out, fmt.Errorf("whois query for %s failed: %w", domain, err)
	}

	info, err := c.parse(raw)
	if err != nil {
		return out, fmt.Errorf("whois record for %s unparseable: %w", domain, err)
	}

	if info.Registrar != nil {
		out.Registrar = strings.TrimSpace(info.Registrar.Name)
	}
	if info.Domain != nil {
		out.CreationDate = strings.TrimSpace(info.Domain.CreatedDate)
	}

	for _, contact := range []*whoisparser.Contact{info.Registrant, info.Administrative, info.Technical, info.Registrar} {
		if contact == nil || contact.Email == "" {
			continue
		}
		addr, ok := extract.Normalize(contact.Email)
		if !ok {
			continue
		}
		out.Emails = models.MergeEmails(out.Emails, addr)
		if len(out.Emails) == maxEmails {
			break
		}
	}

	c.logger.Debug().Str("domain", domain).Int("emails", len(out.Emails)).Msg("whois lookup done")
	return out, nil
}

// RegistrableDomain returns the eTLD+1 for a hostname or URL, e.g.
// "https://shop.brand.co.uk/x" => "brand.co.uk".
func RegistrableDomain(host string) (string, error) {
	host = strings.TrimSpace(host)
	if strings.Contains(host, "://") {
		u, err := url.Parse(host)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidHost, host)
		}
		host = u.Host
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" || net.ParseIP(host) != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidHost, host)
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidHost, host)
	}
	return domain, nil
}
