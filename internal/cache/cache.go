// Package cache keeps finished discovery results so repeated searches and
// result lookups by search id skip the YouTube API. L1 is an in-process LRU
// with expiry; L2 is an optional Redis instance that survives restarts.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/yt-discovery/internal/models"
	"github.com/yt-discovery/internal/telemetry"
)

const (
	DefaultTTL        = 24 * time.Hour
	DefaultMaxEntries = 256

	keyPrefix = "ytd:"
	idPrefix  = "ytd:id:"
)

// Results is a two-tier cache of discovery results
type Results struct {
	l1     *expirable.LRU[string, []byte]
	rdb    *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// Option configures a Results cache
type Option func(*Results)

// WithRedis enables the L2 tier. A nil client leaves it disabled.
func WithRedis(rdb *redis.Client) Option { return func(r *Results) { r.rdb = rdb } }

// WithLogger sets the cache logger
func WithLogger(l zerolog.Logger) Option { return func(r *Results) { r.logger = l } }

// New creates a cache holding at most maxEntries results in memory, each for ttl.
func New(ttl time.Duration, maxEntries int, opts ...Option) *Results {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	r := &Results{
		ttl:    ttl,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.l1 = expirable.NewLRU[string, []byte](maxEntries, nil, ttl)
	return r
}

// Connect parses redisURL and pings the server. An empty URL returns nil
// without error so callers can pass the result straight to WithRedis.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis unreachable at %s: %w", opts.Addr, err)
	}
	return rdb, nil
}

// Key builds a deterministic cache key from parts.
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%s%x", keyPrefix, sum[:12])
}

// SearchKey identifies a search by everything that changes its outcome.
func SearchKey(keyword string, filters models.SearchFilters, sort models.SortOrder, count int) string {
	f, _ := json.Marshal(filters)
	return Key("search", strings.ToLower(strings.TrimSpace(keyword)), string(f), string(sort), fmt.Sprint(count))
}

// Get returns the result stored under key.
func (r *Results) Get(ctx context.Context, key string) (*models.DiscoveryResult, bool) {
	res, ok := r.load(ctx, key)
	if ok {
		telemetry.Metrics.CacheHits.Inc()
	} else {
		telemetry.Metrics.CacheMisses.Inc()
	}
	return res, ok
}

// ByID returns the result of the search with the given id.
func (r *Results) ByID(ctx context.Context, searchID string) (*models.DiscoveryResult, bool) {
	if searchID == "" {
		return nil, false
	}
	return r.load(ctx, idPrefix+searchID)
}

// Put stores res under key and under its search id. An empty key stores it
// by id only.
func (r *Results) Put(ctx context.Context, key string, res *models.DiscoveryResult) {
	if res == nil {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		r.logger.Warn().Err(err).Msg("cache: encode failed")
		return
	}
	if key != "" {
		r.store(ctx, key, data)
	}
	if res.SearchID != "" {
		r.store(ctx, idPrefix+res.SearchID, data)
	}
}

// Len reports the number of L1 entries.
func (r *Results) Len() int { return r.l1.Len() }

func (r *Results) load(ctx context.Context, key string) (*models.DiscoveryResult, bool) {
	if data, ok := r.l1.Get(key); ok {
		if res, err := decode(data); err == nil {
			r.logger.Debug().Str("key", key).Msg("cache: L1 hit")
			return res, true
		}
		r.l1.Remove(key)
	}

	if r.rdb == nil {
		return nil, false
	}
	data, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn().Err(err).Msg("cache: L2 get failed")
		}
		return nil, false
	}
	res, err := decode(data)
	if err != nil {
		return nil, false
	}
	r.logger.Debug().Str("key", key).Msg("cache: L2 hit")
	r.l1.Add(key, data)
	return res, true
}

func (r *Results) store(ctx context.Context, key string, data []byte) {
	r.l1.Add(key, data)
	if r.rdb == nil {
		return
	}
	if err := r.rdb.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.logger.Warn().Err(err).Msg("cache: L2 set failed")
	}
}

func decode(data []byte) (*models.DiscoveryResult, error) {
	var res models.DiscoveryResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
