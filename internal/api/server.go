package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/yt-discovery/internal/cache"
	"github.com/yt-discovery/internal/config"
	"github.com/yt-discovery/internal/discovery"
	"github.com/yt-discovery/internal/models"
	"github.com/yt-discovery/internal/youtube"
)

const (
	DefaultMaxResults   = 50
	DefaultHistoryLimit = 50
	popularKeywordLimit = 10
	storedChannelLimit  = 500

	requestIDHeader = "X-Request-ID"
)

// Discoverer runs searches and single channel lookups
type Discoverer interface {
	Discover(ctx context.Context, req discovery.Request) (*models.DiscoveryResult, error)
	Lookup(ctx context.Context, channelID string) (*models.ChannelRecord, error)
	QuotaStatus() models.QuotaStatus
}

// Store persists searches and discovered channels
type Store interface {
	UpsertChannels(keyword string, records []*models.ChannelRecord) error
	GetCachedChannels(keyword string, limit int) ([]*models.ChannelRecord, error)
	SaveSearchHistory(entry models.SearchHistoryEntry) error
	GetSearchHistory(limit int) ([]models.SearchHistoryEntry, error)
	ClearSearchHistory() error
	GetPopularKeywords(limit int) ([]models.KeywordStats, error)
	GetStats() (models.DatabaseStats, error)
}

// Server represents the API server
type Server struct {
	router     *gin.Engine
	httpServer *http.Server

	engine   Discoverer
	resolver youtube.Resolver
	store    Store
	results  *cache.Results
	gatherer prometheus.Gatherer

	maxResults int
	now        func() time.Time
	logger     zerolog.Logger
}

// Option configures a Server
type Option func(*Server)

// WithStore enables history, stats and channel persistence.
func WithStore(st Store) Option { return func(s *Server) { s.store = st } }

// WithResultCache shares a result cache with the server
func WithResultCache(c *cache.Results) Option { return func(s *Server) { s.results = c } }

// WithResolver enables GET /channel/url.
func WithResolver(r youtube.Resolver) Option { return func(s *Server) { s.resolver = r } }

// WithGatherer sets the registry served on /metrics
func WithGatherer(g prometheus.Gatherer) Option { return func(s *Server) { s.gatherer = g } }

// WithClock sets the time source
func WithClock(now func() time.Time) Option { return func(s *Server) { s.now = now } }

// WithLogger sets the server logger
func WithLogger(l zerolog.Logger) Option { return func(s *Server) { s.logger = l } }

// NewServer creates a new API server
func NewServer(cfg *config.Config, engine Discoverer, opts ...Option) *Server {
	s := &Server{
		engine:     engine,
		gatherer:   prometheus.DefaultGatherer,
		maxResults: cfg.MaxResultsCap,
		now:        time.Now,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxResults <= 0 {
		s.maxResults = 200
	}
	if s.results == nil {
		s.results = cache.New(cfg.CacheTTL, cfg.CacheMaxEntries, cache.WithLogger(s.logger))
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(s.logger))
	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", requestIDHeader},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition", requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	s.router = router
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all the routes for the server
func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.router.POST("/search", s.search)
	s.router.GET("/results/:id", s.getResults)
	s.router.GET("/export/:id/:format", s.export)

	s.router.GET("/channel/url", s.getChannelByURL)
	s.router.GET("/channel/:id", s.getChannelByID)

	s.router.GET("/history", s.getHistory)
	s.router.DELETE("/history", s.clearHistory)
	s.router.GET("/stats", s.getStats)
	s.router.GET("/api/quota-status", s.getQuotaStatus)

	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves on the configured port until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("Server starting")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		evt := logger.Info()
		if status >= 500 {
			evt = logger.Error()
		} else if status >= 400 {
			evt = logger.Warn()
		}
		evt.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("request_id", c.GetString("request_id")).
			Int("bytes", c.Writer.Size()).
			Msg("request")
	}
}
