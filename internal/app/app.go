// Package app wires configuration into the discovery components shared by the
// HTTP server and the command line tool.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/yt-discovery/internal/api"
	"github.com/yt-discovery/internal/cache"
	"github.com/yt-discovery/internal/config"
	"github.com/yt-discovery/internal/discovery"
	"github.com/yt-discovery/internal/domaininfo"
	"github.com/yt-discovery/internal/models"
	"github.com/yt-discovery/internal/quality"
	"github.com/yt-discovery/internal/quota"
	"github.com/yt-discovery/internal/scraper"
	"github.com/yt-discovery/internal/telemetry"
	"github.com/yt-discovery/internal/youtube"
)

// App holds the long-lived components
type App struct {
	Config  *config.Config
	Tracker *quota.Tracker
	Engine  *discovery.Engine
	Results *cache.Results

	// YouTube is nil when no API key is configured.
	YouTube *youtube.Metered
	// DB is nil when DB_PATH is empty or unreachable.
	DB *models.Database

	redis  *redis.Client
	logger zerolog.Logger
}

// New builds every component from cfg. Missing optional backends (database,
// Redis, API key) are logged and left disabled rather than failing startup.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	telemetry.Register(prometheus.DefaultRegisterer)

	a := &App{Config: cfg, logger: logger}

	trackerOpts := []quota.Option{quota.WithObserver(telemetry.QuotaObserver)}
	if loc, err := time.LoadLocation(cfg.QuotaResetTZ); err != nil {
		logger.Warn().Err(err).Str("tz", cfg.QuotaResetTZ).Msg("Unknown quota reset zone, using default")
	} else {
		trackerOpts = append(trackerOpts, quota.WithLocation(loc))
	}
	a.Tracker = quota.NewTracker(cfg.QuotaDailyLimit, trackerOpts...)

	engineOpts := []discovery.Option{
		discovery.WithWorkers(cfg.EnrichWorkers),
		discovery.WithUnitTimeout(cfg.EnrichTimeout),
		discovery.WithSearchBudget(cfg.SearchBudget),
		discovery.WithScraper(scraper.New(
			scraper.WithTimeout(cfg.ScrapeTimeout),
			scraper.WithLogger(logger.With().Str("component", "scraper").Logger()),
		)),
		discovery.WithWhois(domaininfo.New(
			domaininfo.WithTimeout(cfg.WhoisTimeout),
			domaininfo.WithLogger(logger.With().Str("component", "whois").Logger()),
		)),
		discovery.WithLogger(logger.With().Str("component", "discovery").Logger()),
	}
	if !cfg.KeywordExpansion {
		engineOpts = append(engineOpts, discovery.WithExpander(nil))
	}

	var ytAPI youtube.API
	if err := cfg.Validate(); err != nil {
		logger.Warn().Err(err).Msg("Searches will fail until an API key is configured")
	} else {
		client, err := youtube.NewClient(ctx, cfg.YouTubeAPIKey)
		if err != nil {
			return nil, err
		}
		var limiter *rate.Limiter
		if cfg.APIRatePerSecond > 0 {
			limiter = rate.NewLimiter(rate.Limit(cfg.APIRatePerSecond), 1)
		}
		a.YouTube = youtube.NewMetered(client, a.Tracker, limiter, logger, youtube.WithCallTimeout(cfg.APICallTimeout))
		ytAPI = a.YouTube
		engineOpts = append(engineOpts, discovery.WithMetrics(quality.NewCalculator(a.YouTube,
			quality.WithLogger(logger.With().Str("component", "quality").Logger()),
		)))
	}

	if cfg.DBPath != "" {
		db, err := models.NewDatabase(cfg.DBPath, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Database unavailable, history and enrichment cache disabled")
		} else {
			a.DB = db
			engineOpts = append(engineOpts, discovery.WithEnrichmentCache(db, cfg.CacheTTL))
		}
	}

	cacheOpts := []cache.Option{cache.WithLogger(logger.With().Str("component", "cache").Logger())}
	if rdb, err := cache.Connect(ctx, cfg.RedisURL); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable, result cache is in-memory only")
	} else if rdb != nil {
		a.redis = rdb
		cacheOpts = append(cacheOpts, cache.WithRedis(rdb))
	}
	a.Results = cache.New(cfg.CacheTTL, cfg.CacheMaxEntries, cacheOpts...)

	a.Engine = discovery.New(ytAPI, a.Tracker, engineOpts...)
	return a, nil
}

// ServerOptions returns the api options matching the configured backends.
func (a *App) ServerOptions() []api.Option {
	opts := []api.Option{
		api.WithResultCache(a.Results),
		api.WithLogger(a.logger.With().Str("component", "api").Logger()),
	}
	if a.DB != nil {
		opts = append(opts, api.WithStore(a.DB))
	}
	if a.YouTube != nil {
		opts = append(opts, api.WithResolver(a.YouTube))
	}
	return opts
}

// Close releases the database and Redis connections.
func (a *App) Close() error {
	var errs []error
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	return errors.Join(errs...)
}
