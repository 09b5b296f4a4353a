package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fenilmodi00/flight-deals-backend/shared"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerPort         string
	DatabaseURL        string
	AdminToken         string
	LogLevel           string
	LogFormat          string
	ProviderEnv        string
	ProviderBaseURL    string
	HTTPRequestTimeout string
	SearchTimeout      string
	PollInterval       string
	PollMaxRetries     string
	RequestRateLimit   string
	WatchInterval      string
	WatchRoutes        string
	SearchCacheTTL     string
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		logrus.Warn("Error loading .env file, using system environment variables")
	}

	return &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		AdminToken:         getEnv("ADMIN_TOKEN", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		ProviderEnv:        getEnv("PROVIDER_ENV", "production"),
		ProviderBaseURL:    getEnv("PROVIDER_BASE_URL", ""),
		HTTPRequestTimeout: getEnv("HTTP_REQUEST_TIMEOUT", "30s"),
		SearchTimeout:      getEnv("SEARCH_TIMEOUT", "60s"),
		PollInterval:       getEnv("POLL_INTERVAL", "1s"),
		PollMaxRetries:     getEnv("POLL_MAX_RETRIES", "20"),
		RequestRateLimit:   getEnv("REQUEST_RATE_LIMIT", "0s"),
		WatchInterval:      getEnv("WATCH_INTERVAL", "6h"),
		WatchRoutes:        getEnv("WATCH_ROUTES", ""),
		SearchCacheTTL:     getEnv("SEARCH_CACHE_TTL", "5m"),
	}
}

// GetBaseURL returns PROVIDER_BASE_URL when set, otherwise the host for PROVIDER_ENV
func (c *Config) GetBaseURL() string {
	if c.ProviderBaseURL != "" {
		return strings.TrimSuffix(c.ProviderBaseURL, "/")
	}
	return shared.BaseURLForEnvironment(c.ProviderEnv)
}

func (c *Config) GetHTTPRequestTimeout() time.Duration {
	return parseDuration("HTTP_REQUEST_TIMEOUT", c.HTTPRequestTimeout, 30*time.Second, false)
}

func (c *Config) GetSearchTimeout() time.Duration {
	return parseDuration("SEARCH_TIMEOUT", c.SearchTimeout, 60*time.Second, false)
}

// GetPollInterval returns the wait between polls. Zero is allowed and polls back to back.
func (c *Config) GetPollInterval() time.Duration {
	return parseDuration("POLL_INTERVAL", c.PollInterval, time.Second, true)
}

func (c *Config) GetRequestRateLimit() time.Duration {
	return parseDuration("REQUEST_RATE_LIMIT", c.RequestRateLimit, 0, true)
}

func (c *Config) GetWatchInterval() time.Duration {
	return parseDuration("WATCH_INTERVAL", c.WatchInterval, 6*time.Hour, false)
}

// GetSearchCacheTTL returns how long API search results are reused. Zero disables the cache.
func (c *Config) GetSearchCacheTTL() time.Duration {
	return parseDuration("SEARCH_CACHE_TTL", c.SearchCacheTTL, 0, true)
}

// GetMaxPollRetries returns the poll budget, at least 1
func (c *Config) GetMaxPollRetries() int {
	if c.PollMaxRetries == "" {
		return 20
	}

	retries, err := strconv.Atoi(c.PollMaxRetries)
	if err != nil || retries < 1 {
		logrus.Warnf("Invalid POLL_MAX_RETRIES value: %s, using default 20", c.PollMaxRetries)
		return 20
	}
	return retries
}

// ProviderConfig assembles the retrieval settings
func (c *Config) ProviderConfig() shared.ProviderConfig {
	return shared.ProviderConfig{
		BaseURL:            c.GetBaseURL(),
		HTTPRequestTimeout: c.GetHTTPRequestTimeout(),
		SearchTimeout:      c.GetSearchTimeout(),
		RequestRateLimit:   c.GetRequestRateLimit(),
		PollInterval:       c.GetPollInterval(),
		MaxPollRetries:     c.GetMaxPollRetries(),
	}
}

// UnifiedConfiguration assembles every section with defaults applied
func (c *Config) UnifiedConfiguration() *shared.UnifiedConfiguration {
	unified := shared.NewDefaultUnifiedConfiguration()
	unified.Provider = c.ProviderConfig()
	unified.Watch.Interval = c.GetWatchInterval()
	unified.Logging.Level = c.LogLevel
	unified.Logging.Format = c.LogFormat
	unified.ValidateAndApplyDefaults()
	return unified
}

// ConfigureLogging applies the level and json/text format to the standard logger
func ConfigureLogging(cfg shared.LoggingConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logrus.Warnf("Invalid LOG_LEVEL value: %s, using info", cfg.Level)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if strings.EqualFold(cfg.Format, "text") {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}

func parseDuration(key, value string, fallback time.Duration, allowZero bool) time.Duration {
	if value == "" {
		return fallback
	}

	d, err := time.ParseDuration(value)
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		logrus.Warnf("Invalid %s value: %s, using default %v", key, value, fallback)
		return fallback
	}
	return d
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
