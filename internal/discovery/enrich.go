package discovery

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yt-discovery/internal/models"
	"github.com/yt-discovery/internal/telemetry"
)

// MetricsSource computes quality metrics for a channel.
type MetricsSource interface {
	Compute(ctx context.Context, channelID string) (*models.QualityMetrics, error)
}

// ContactScraper fetches contact details from a website.
type ContactScraper interface {
	Scrape(ctx context.Context, url string) (models.WebsiteContacts, error)
}

// WhoisLookup resolves domain registration details for a website.
type WhoisLookup interface {
	Lookup(ctx context.Context, host string) (models.WhoisInfo, error)
}

// EnrichmentCache stores enrichment results across runs.
type EnrichmentCache interface {
	LoadEnrichment(channelID string, kind models.EnrichmentType, maxAge time.Duration, dst any) (bool, error)
	StoreEnrichment(channelID string, kind models.EnrichmentType, v any) error
}

// contactEnrichment is the cached form of website and WHOIS results.
type contactEnrichment struct {
	Website models.WebsiteContacts `json:"website_contacts"`
	Whois   models.WhoisInfo       `json:"whois_info"`
}

type enriched struct {
	idx  int
	rec  *models.ChannelRecord
	errs []*EnrichmentError
}

// enrichBatch runs enrichment for one page of channels on the worker pool.
// Workers own a clone of their record and hand it back on a channel; only
// the caller touches the returned slice.
func (e *Engine) enrichBatch(ctx context.Context, recs []*models.ChannelRecord) []*models.ChannelRecord {
	results := make(chan enriched, len(recs))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, rec := range recs {
		if !e.wantsEnrichment(rec) {
			results <- enriched{idx: i, rec: rec}
			continue
		}
		work := rec.Clone()
		g.Go(func() error {
			unitCtx, cancel := context.WithTimeout(ctx, e.unitTimeout)
			defer cancel()
			results <- enriched{idx: i, rec: work, errs: e.enrich(unitCtx, work)}
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	out := make([]*models.ChannelRecord, len(recs))
	for res := range results {
		out[res.idx] = res.rec
		for _, err := range res.errs {
			e.reportFailure(err)
		}
	}
	return out
}

func (e *Engine) wantsEnrichment(rec *models.ChannelRecord) bool {
	if e.metrics != nil && rec.SubscriberCount >= e.metricsFloor {
		return true
	}
	return e.wantsContacts(rec)
}

func (e *Engine) wantsContacts(rec *models.ChannelRecord) bool {
	return (e.scraper != nil || e.whois != nil) &&
		rec.SubscriberCount >= e.contactFloor &&
		rec.WebsiteURL != ""
}

// enrich fills metrics and website contacts on rec. Failures are returned,
// never fatal; rec keeps whatever succeeded.
func (e *Engine) enrich(ctx context.Context, rec *models.ChannelRecord) []*EnrichmentError {
	var errs []*EnrichmentError

	if e.metrics != nil && rec.SubscriberCount >= e.metricsFloor {
		if err := e.enrichMetrics(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	if e.wantsContacts(rec) {
		errs = append(errs, e.enrichContacts(ctx, rec)...)
	}
	return errs
}

func (e *Engine) enrichMetrics(ctx context.Context, rec *models.ChannelRecord) *EnrichmentError {
	var cached models.QualityMetrics
	if e.loadCached(rec.ChannelID, models.EnrichmentMetrics, &cached) {
		rec.QualityMetrics = &cached
		return nil
	}

	m, err := e.metrics.Compute(ctx, rec.ChannelID)
	if err != nil {
		return &EnrichmentError{ChannelID: rec.ChannelID, Stage: StageMetrics, Err: err}
	}
	rec.QualityMetrics = m
	e.storeCached(rec.ChannelID, models.EnrichmentMetrics, m)
	return nil
}

func (e *Engine) enrichContacts(ctx context.Context, rec *models.ChannelRecord) []*EnrichmentError {
	var cached contactEnrichment
	if e.loadCached(rec.ChannelID, models.EnrichmentContacts, &cached) {
		applyContacts(rec, cached)
		return nil
	}

	var errs []*EnrichmentError
	found := contactEnrichment{
		Website: models.WebsiteContacts{ContactPages: []string{}, Emails: []string{}},
		Whois:   models.WhoisInfo{Emails: []string{}},
	}

	if e.scraper != nil {
		wc, err := e.scraper.Scrape(ctx, rec.WebsiteURL)
		if err != nil {
			errs = append(errs, &EnrichmentError{ChannelID: rec.ChannelID, Stage: StageScrape, Err: err})
		} else {
			found.Website = wc
		}
	}
	if e.whois != nil {
		info, err := e.whois.Lookup(ctx, rec.WebsiteURL)
		if err != nil {
			errs = append(errs, &EnrichmentError{ChannelID: rec.ChannelID, Stage: StageWhois, Err: err})
		} else {
			found.Whois = info
		}
	}

	applyContacts(rec, found)
	if len(errs) == 0 {
		e.storeCached(rec.ChannelID, models.EnrichmentContacts, found)
	}
	return errs
}

func applyContacts(rec *models.ChannelRecord, found contactEnrichment) {
	wc := found.Website
	if wc.ContactPages == nil {
		wc.ContactPages = []string{}
	}
	if wc.Emails == nil {
		wc.Emails = []string{}
	}
	rec.ContactInfo.WebsiteContacts = wc
	rec.ContactInfo.AddEmails(wc.Emails...)
	rec.ContactInfo.AddSocial(wc.SocialMedia)

	whois := found.Whois
	if whois.Emails == nil {
		whois.Emails = []string{}
	}
	rec.ContactInfo.WhoisInfo = whois
	rec.ContactInfo.AddEmails(whois.Emails...)
}

func (e *Engine) loadCached(channelID string, kind models.EnrichmentType, dst any) bool {
	if e.cache == nil {
		return false
	}
	ok, err := e.cache.LoadEnrichment(channelID, kind, e.cacheAge, dst)
	if err != nil {
		e.logger.Warn().Err(err).Str("channel_id", channelID).Str("type", string(kind)).Msg("enrichment cache read failed")
		return false
	}
	return ok
}

func (e *Engine) storeCached(channelID string, kind models.EnrichmentType, v any) {
	if e.cache == nil {
		return
	}
	if err := e.cache.StoreEnrichment(channelID, kind, v); err != nil {
		e.logger.Warn().Err(err).Str("channel_id", channelID).Str("type", string(kind)).Msg("enrichment cache write failed")
	}
}

func (e *Engine) reportFailure(err *EnrichmentError) {
	telemetry.Metrics.EnrichmentFailures.WithLabelValues(string(err.Stage)).Inc()
	e.logger.Warn().
		Err(err.Err).
		Str("channel_id", err.ChannelID).
		Str("stage", string(err.Stage)).
		Msg("Enrichment failed, keeping channel")
}
