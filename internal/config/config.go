package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	ErrMissingAPIKey = errors.New("YouTube API key is required")
)

// Config holds the application configuration
type Config struct {
	YouTubeAPIKey string
	DBPath        string
	RedisURL      string
	Port          string
	LogLevel      string
	LogFormat     string
	CORSOrigins   []string

	QuotaDailyLimit  int
	QuotaResetTZ     string
	APIRatePerSecond float64
	APICallTimeout   time.Duration

	EnrichWorkers    int
	EnrichTimeout    time.Duration
	ScrapeTimeout    time.Duration
	WhoisTimeout     time.Duration
	SearchBudget     time.Duration
	KeywordExpansion bool

	CacheTTL        time.Duration
	CacheMaxEntries int
	MaxResultsCap   int

	// EnvFileLoaded reports whether a .env file was found.
	EnvFileLoaded bool
}

// Load loads the configuration from the environment. A .env file in the
// working directory is read first when present.
func Load() (*Config, error) {
	return LoadViper(NewViper())
}

// LoadViper is Load over a caller supplied viper instance, so command line
// flags bound to v take precedence over the environment.
func LoadViper(v *viper.Viper) (*Config, error) {
	loadedEnv := godotenv.Load() == nil
	return fromViper(v, loadedEnv)
}

// NewViper returns a viper instance reading the environment, with defaults.
func NewViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:3001")
	v.SetDefault("QUOTA_DAILY_LIMIT", 10000)
	v.SetDefault("QUOTA_RESET_TZ", "America/Los_Angeles")
	v.SetDefault("API_RATE_PER_SECOND", 5.0)
	v.SetDefault("API_CALL_TIMEOUT", 10*time.Second)
	v.SetDefault("ENRICH_WORKERS", 4)
	v.SetDefault("ENRICH_TIMEOUT", 10*time.Second)
	v.SetDefault("SCRAPE_TIMEOUT", 8*time.Second)
	v.SetDefault("WHOIS_TIMEOUT", 5*time.Second)
	v.SetDefault("SEARCH_BUDGET", 90*time.Second)
	v.SetDefault("KEYWORD_EXPANSION", true)
	v.SetDefault("CACHE_TTL", 24*time.Hour)
	v.SetDefault("CACHE_MAX_ENTRIES", 256)
	v.SetDefault("MAX_RESULTS_CAP", 200)
	return v
}

func fromViper(v *viper.Viper, loadedEnv bool) (*Config, error) {
	apiKey := v.GetString("YOUTUBE_API_KEY")
	if apiKey == "" {
		// legacy name
		apiKey = v.GetString("GOOGLE_API_KEY")
	}

	cfg := &Config{
		YouTubeAPIKey:    apiKey,
		DBPath:           v.GetString("DB_PATH"),
		RedisURL:         v.GetString("REDIS_URL"),
		Port:             v.GetString("PORT"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		LogFormat:        v.GetString("LOG_FORMAT"),
		CORSOrigins:      splitList(v.GetString("CORS_ORIGINS")),
		QuotaDailyLimit:  v.GetInt("QUOTA_DAILY_LIMIT"),
		QuotaResetTZ:     v.GetString("QUOTA_RESET_TZ"),
		APIRatePerSecond: v.GetFloat64("API_RATE_PER_SECOND"),
		APICallTimeout:   v.GetDuration("API_CALL_TIMEOUT"),
		EnrichWorkers:    v.GetInt("ENRICH_WORKERS"),
		EnrichTimeout:    v.GetDuration("ENRICH_TIMEOUT"),
		ScrapeTimeout:    v.GetDuration("SCRAPE_TIMEOUT"),
		WhoisTimeout:     v.GetDuration("WHOIS_TIMEOUT"),
		SearchBudget:     v.GetDuration("SEARCH_BUDGET"),
		KeywordExpansion: v.GetBool("KEYWORD_EXPANSION"),
		CacheTTL:         v.GetDuration("CACHE_TTL"),
		CacheMaxEntries:  v.GetInt("CACHE_MAX_ENTRIES"),
		MaxResultsCap:    v.GetInt("MAX_RESULTS_CAP"),
		EnvFileLoaded:    loadedEnv,
	}

	if cfg.QuotaDailyLimit <= 0 {
		return nil, fmt.Errorf("QUOTA_DAILY_LIMIT must be positive, got %d", cfg.QuotaDailyLimit)
	}
	if cfg.EnrichWorkers <= 0 {
		return nil, fmt.Errorf("ENRICH_WORKERS must be positive, got %d", cfg.EnrichWorkers)
	}
	if cfg.MaxResultsCap <= 0 {
		cfg.MaxResultsCap = 200
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.YouTubeAPIKey == "" {
		return fmt.Errorf("%w: YOUTUBE_API_KEY environment variable is not set", ErrMissingAPIKey)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
