// Package discovery finds YouTube channels for a keyword across several search
// strategies, deduplicates them, filters them and enriches them with contact
// details and quality metrics.
package discovery

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	ytv3 "google.golang.org/api/youtube/v3"

	"github.com/yt-discovery/internal/extract"
	"github.com/yt-discovery/internal/models"
	"github.com/yt-discovery/internal/quota"
	"github.com/yt-discovery/internal/telemetry"
	"github.com/yt-discovery/internal/youtube"
)

const (
	DefaultTargetCount  = 50
	DefaultPageSize     = 50
	DefaultPageCap      = 5
	DefaultSearchBudget = 90 * time.Second
	DefaultWorkers      = 4
	DefaultUnitTimeout  = 10 * time.Second
	DefaultCacheAge     = 24 * time.Hour

	// Subscriber floors gating the costly enrichment steps.
	DefaultMetricsFloor = 1_000
	DefaultContactFloor = 10_000
)

// Strategy is one (order, result type) search combination.
type Strategy struct {
	Order string
	Type  string
}

// DefaultStrategies are tried in order for every keyword
var DefaultStrategies = []Strategy{
	{Order: "relevance", Type: youtube.TypeChannel},
	{Order: "viewCount", Type: youtube.TypeChannel},
	{Order: "date", Type: youtube.TypeChannel},
	{Order: "relevance", Type: youtube.TypeVideo},
}

// Request describes one discovery run
type Request struct {
	Keyword     string
	TargetCount int
	Filters     models.SearchFilters
	Sort        models.SortOrder
}

// Engine runs discovery. It is safe for concurrent use; each Discover call
// keeps its own dedup set.
type Engine struct {
	api     youtube.API
	tracker *quota.Tracker
	metrics MetricsSource
	scraper ContactScraper
	whois   WhoisLookup
	cache   EnrichmentCache
	expand  Expander

	strategies   []Strategy
	pageSize     int64
	pageCap      int
	workers      int
	unitTimeout  time.Duration
	searchBudget time.Duration
	cacheAge     time.Duration
	metricsFloor int64
	contactFloor int64

	now    func() time.Time
	logger zerolog.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithMetrics enables quality metrics enrichment
func WithMetrics(m MetricsSource) Option { return func(e *Engine) { e.metrics = m } }

// WithScraper enables website contact scraping
func WithScraper(s ContactScraper) Option { return func(e *Engine) { e.scraper = s } }

// WithWhois enables WHOIS lookups for channel websites
func WithWhois(w WhoisLookup) Option { return func(e *Engine) { e.whois = w } }

// WithEnrichmentCache reuses enrichment results younger than maxAge
func WithEnrichmentCache(c EnrichmentCache, maxAge time.Duration) Option {
	return func(e *Engine) {
		e.cache = c
		if maxAge > 0 {
			e.cacheAge = maxAge
		}
	}
}

// WithExpander replaces the keyword expansion heuristics; nil disables
// expansion.
func WithExpander(x Expander) Option { return func(e *Engine) { e.expand = x } }

// WithStrategies replaces the search strategies
func WithStrategies(s ...Strategy) Option {
	return func(e *Engine) {
		if len(s) > 0 {
			e.strategies = s
		}
	}
}

// WithPageCap limits the pages fetched per strategy
func WithPageCap(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pageCap = n
		}
	}
}

// WithWorkers sets the enrichment concurrency
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithUnitTimeout bounds the enrichment of one channel
func WithUnitTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.unitTimeout = d
		}
	}
}

// WithSearchBudget bounds the whole search phase
func WithSearchBudget(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.searchBudget = d
		}
	}
}

// WithFloors sets the subscriber counts required for metrics and contact enrichment
func WithFloors(metrics, contacts int64) Option {
	return func(e *Engine) {
		e.metricsFloor = metrics
		e.contactFloor = contacts
	}
}

// WithClock sets the time source
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithLogger sets the engine logger
func WithLogger(l zerolog.Logger) Option { return func(e *Engine) { e.logger = l } }

// New creates an engine. api may be nil when no credential is configured;
// Discover then fails with youtube.ErrUnauthenticated.
func New(api youtube.API, tracker *quota.Tracker, opts ...Option) *Engine {
	if tracker == nil {
		tracker = quota.NewTracker(quota.DefaultDailyLimit)
	}
	e := &Engine{
		api:          api,
		tracker:      tracker,
		expand:       DefaultRegistry().Expand,
		strategies:   DefaultStrategies,
		pageSize:     DefaultPageSize,
		pageCap:      DefaultPageCap,
		workers:      DefaultWorkers,
		unitTimeout:  DefaultUnitTimeout,
		searchBudget: DefaultSearchBudget,
		cacheAge:     DefaultCacheAge,
		metricsFloor: DefaultMetricsFloor,
		contactFloor: DefaultContactFloor,
		now:          time.Now,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// QuotaStatus returns the shared tracker snapshot.
func (e *Engine) QuotaStatus() models.QuotaStatus {
	return e.tracker.Status()
}

// errStop ends the search phase early while keeping what was found.
var errStop = errors.New("stop searching")

// run is the state of one Discover call. Only the calling goroutine touches
// it.
type run struct {
	e        *Engine
	req      Request
	target   int
	seen     map[string]struct{}
	accepted []*models.ChannelRecord
}

// Discover searches for channels matching req.Keyword. Provider failures on
// search or channel lookups abort the run with a typed error; enrichment
// failures are swallowed. Running out of quota or search budget mid-run
// returns what was found so far.
func (e *Engine) Discover(ctx context.Context, req Request) (result *models.DiscoveryResult, err error) {
	start := time.Now()
	defer func() {
		telemetry.Metrics.DiscoveryDuration.Observe(time.Since(start).Seconds())
		telemetry.Metrics.Discoveries.WithLabelValues(outcome(err)).Inc()
	}()

	keyword := strings.TrimSpace(req.Keyword)
	if keyword == "" {
		return nil, ErrEmptyKeyword
	}
	if e.api == nil {
		return nil, youtube.ErrUnauthenticated
	}
	if !e.tracker.CanProceed() {
		return nil, youtube.ErrQuotaExceeded
	}

	r := &run{
		e:      e,
		req:    req,
		target: req.TargetCount,
		seen:   make(map[string]struct{}),
	}
	if r.target <= 0 {
		r.target = DefaultTargetCount
	}

	budgetCtx, cancel := context.WithTimeout(ctx, e.searchBudget)
	defer cancel()

	log := e.logger.With().Str("keyword", keyword).Int("target", r.target).Logger()
	keywords := e.keywords(keyword)
	var searched []string

search:
	for _, kw := range keywords {
		if r.full() {
			break
		}
		searched = append(searched, kw)
		for _, strategy := range e.strategies {
			if r.full() {
				break search
			}
			serr := r.runStrategy(budgetCtx, kw, strategy)
			switch {
			case serr == nil:
			case errors.Is(serr, errStop):
				log.Info().Msg("Quota budget reached, returning partial results")
				break search
			case ctx.Err() != nil:
				return nil, ctx.Err()
			case budgetCtx.Err() != nil:
				log.Warn().Dur("budget", e.searchBudget).Msg("Search budget exhausted, returning partial results")
				break search
			default:
				if errors.Is(serr, youtube.ErrQuotaExceeded) {
					e.tracker.MarkExceeded()
				}
				log.Error().Err(serr).Str("order", strategy.Order).Str("type", strategy.Type).Msg("Discovery aborted")
				return nil, serr
			}
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	SortChannels(r.accepted, req.Sort)
	total := len(r.accepted)
	channels := r.accepted
	if len(channels) > r.target {
		channels = channels[:r.target]
	}
	if channels == nil {
		channels = []*models.ChannelRecord{}
	}

	log.Info().
		Int("found", total).
		Int("returned", len(channels)).
		Strs("keywords", searched).
		Dur("took", time.Since(start)).
		Msg("Discovery finished")

	return &models.DiscoveryResult{
		SearchID:         uuid.NewString(),
		Keyword:          keyword,
		Channels:         channels,
		TotalFound:       total,
		KeywordsSearched: searched,
		QuotaStatus:      e.tracker.Status(),
		GeneratedAt:      e.now().UTC(),
	}, nil
}

func (e *Engine) keywords(base string) []string {
	out := []string{base}
	if e.expand == nil {
		return out
	}
	seen := map[string]struct{}{strings.ToLower(base): {}}
	for _, kw := range e.expand(base) {
		kw = strings.TrimSpace(kw)
		key := strings.ToLower(kw)
		if _, dup := seen[key]; dup || kw == "" {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, kw)
		if len(out) == MaxExpansions+1 {
			break
		}
	}
	return out
}

func (r *run) full() bool { return len(r.accepted) >= r.target }

func (r *run) runStrategy(ctx context.Context, keyword string, s Strategy) error {
	token := ""
	for page := 0; page < r.e.pageCap; page++ {
		if r.full() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !r.e.tracker.CanProceed() {
			return errStop
		}

		res, err := r.e.api.Search(ctx, youtube.SearchQuery{
			Query:      keyword,
			Type:       s.Type,
			Order:      s.Order,
			PageToken:  token,
			MaxResults: r.e.pageSize,
		})
		if err != nil {
			return err
		}
		if err := r.processPage(ctx, res.ChannelIDs); err != nil {
			return err
		}

		token = res.NextPageToken
		if token == "" {
			return nil
		}
	}
	return nil
}

// processPage resolves ids not seen in this run, filters and enriches them,
// and appends survivors to the accepted list until the target is met.
func (r *run) processPage(ctx context.Context, ids []string) error {
	var fresh []string
	for _, id := range ids {
		if _, ok := r.seen[id]; ok {
			continue
		}
		r.seen[id] = struct{}{}
		fresh = append(fresh, id)
	}
	if len(fresh) == 0 {
		return nil
	}

	byID := make(map[string]*ytv3.Channel, len(fresh))
	for _, batch := range youtube.Batch(fresh, youtube.MaxIDsPerLookup) {
		if !r.e.tracker.CanProceed() {
			return errStop
		}
		items, err := r.e.api.Channels(ctx, batch)
		if err != nil {
			return err
		}
		for _, ch := range items {
			if ch != nil && ch.Id != "" {
				byID[ch.Id] = ch
			}
		}
	}

	var candidates []*models.ChannelRecord
	for _, id := range fresh {
		ch, ok := byID[id]
		if !ok {
			continue
		}
		rec := NewRecord(ch)
		if !r.req.Filters.PassesStructural(rec.SubscriberCount, rec.VideoCount) {
			continue
		}
		candidates = append(candidates, rec)
	}
	if len(candidates) == 0 {
		return nil
	}

	now := r.e.now()
	for len(candidates) > 0 && !r.full() {
		n := min(r.chunkSize(), len(candidates))
		chunk := candidates[:n]
		candidates = candidates[n:]
		for _, rec := range r.e.enrichBatch(ctx, chunk) {
			if !r.req.Filters.PassesActivity(rec.QualityMetrics, now) {
				continue
			}
			r.accepted = append(r.accepted, rec)
		}
	}
	return nil
}

// chunkSize is how many candidates to enrich next: the shortfall, or at
// least one round of workers when activity filters may reject some.
func (r *run) chunkSize() int {
	need := r.target - len(r.accepted)
	if r.req.Filters.HasActivityBounds() {
		return max(need, r.e.workers)
	}
	return need
}

// NewRecord maps a channel resource onto a ChannelRecord and runs the free
// description-based extraction.
func NewRecord(ch *ytv3.Channel) *models.ChannelRecord {
	rec := &models.ChannelRecord{
		ChannelID:   ch.Id,
		URL:         models.ChannelURL(ch.Id),
		ContactInfo: models.NewContactInfo(),
	}
	if s := ch.Snippet; s != nil {
		rec.Title = s.Title
		rec.Description = s.Description
		rec.Country = s.Country
		rec.CustomURL = s.CustomUrl
		if t, err := time.Parse(time.RFC3339, s.PublishedAt); err == nil {
			rec.PublishedAt = t
		}
		if th := s.Thumbnails; th != nil {
			switch {
			case th.High != nil:
				rec.ThumbnailURL = th.High.Url
			case th.Medium != nil:
				rec.ThumbnailURL = th.Medium.Url
			case th.Default != nil:
				rec.ThumbnailURL = th.Default.Url
			}
		}
	}
	if b := ch.BrandingSettings; b != nil && b.Channel != nil && rec.Country == "" {
		rec.Country = b.Channel.Country
	}
	if st := ch.Statistics; st != nil {
		if !st.HiddenSubscriberCount {
			rec.SubscriberCount = int64(st.SubscriberCount)
		}
		rec.VideoCount = int64(st.VideoCount)
		rec.ViewCount = int64(st.ViewCount)
	}

	rec.ContactInfo.AddEmails(extract.Emails(rec.Description)...)
	rec.ContactInfo.AddSocial(extract.SocialHandles(rec.Description))
	rec.WebsiteURL = extract.WebsiteURL(rec.Description)
	return rec
}

func outcome(err error) string {
	var upErr *youtube.UpstreamError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, youtube.ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, youtube.ErrUnauthenticated):
		return "unauthenticated"
	case errors.As(err, &upErr):
		return "upstream_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "invalid"
}
