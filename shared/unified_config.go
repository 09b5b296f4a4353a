package shared

import (
	"time"

	"github.com/sirupsen/logrus"
)

const (
	ProductionBaseURL = "https://www.flightsfinder.com"
	FakeBaseURL       = "http://localhost:3000"
)

// UnifiedConfiguration holds all configuration parameters for the entire application
type UnifiedConfiguration struct {
	Provider ProviderConfig `json:"provider"`
	Database DatabaseConfig `json:"database"`
	Watch    WatchConfig    `json:"watch"`
	Logging  LoggingConfig  `json:"logging"`
}

// ProviderConfig holds the retrieval settings shared by every provider family
type ProviderConfig struct {
	BaseURL            string        `json:"base_url"`
	HTTPRequestTimeout time.Duration `json:"http_timeout"`
	SearchTimeout      time.Duration `json:"search_timeout"`
	RequestRateLimit   time.Duration `json:"rate_limit"`
	PollInterval       time.Duration `json:"poll_interval"`
	MaxPollRetries     int           `json:"max_poll_retries"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	PingTimeout     time.Duration `json:"ping_timeout"`
}

// WatchConfig holds the price-watch job schedule
type WatchConfig struct {
	Interval time.Duration `json:"interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level       string `json:"level"`
	Format      string `json:"format"`
	ServiceName string `json:"service_name"`
}

// NewDefaultUnifiedConfiguration returns production-ready default configuration
func NewDefaultUnifiedConfiguration() *UnifiedConfiguration {
	return &UnifiedConfiguration{
		Provider: NewDefaultProviderConfig(),
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			PingTimeout:     5 * time.Second,
		},
		Watch: WatchConfig{
			Interval: 6 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "flight-deals-backend",
		},
	}
}

// NewDefaultProviderConfig returns the retrieval defaults: 1s between polls, 20 polls at most
func NewDefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		BaseURL:            ProductionBaseURL,
		HTTPRequestTimeout: 30 * time.Second,
		SearchTimeout:      60 * time.Second,
		RequestRateLimit:   0,
		PollInterval:       1 * time.Second,
		MaxPollRetries:     20,
	}
}

// ValidateAndApplyDefaults validates configuration and applies defaults for invalid values
func (c *UnifiedConfiguration) ValidateAndApplyDefaults() {
	logger := logrus.WithField("component", "UnifiedConfiguration")

	c.Provider.ApplyDefaults()

	// Validate Database Config
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 25
		logger.Debug("Applied default Database.MaxOpenConns")
	}

	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = 5
		logger.Debug("Applied default Database.MaxIdleConns")
	}

	if c.Database.ConnMaxLifetime <= 0 {
		c.Database.ConnMaxLifetime = 5 * time.Minute
		logger.Debug("Applied default Database.ConnMaxLifetime")
	}

	if c.Database.PingTimeout <= 0 {
		c.Database.PingTimeout = 5 * time.Second
		logger.Debug("Applied default Database.PingTimeout")
	}

	if c.Watch.Interval <= 0 {
		c.Watch.Interval = 6 * time.Hour
		logger.Debug("Applied default Watch.Interval")
	}

	// Validate Logging Config
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
		logger.Debug("Applied default Logging.Level")
	}

	if c.Logging.Format == "" {
		c.Logging.Format = "json"
		logger.Debug("Applied default Logging.Format")
	}

	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = "flight-deals-backend"
		logger.Debug("Applied default Logging.ServiceName")
	}
}

// ApplyDefaults fills zero or invalid provider settings
func (p *ProviderConfig) ApplyDefaults() {
	logger := logrus.WithField("component", "ProviderConfig")
	defaults := NewDefaultProviderConfig()

	if p.BaseURL == "" {
		p.BaseURL = defaults.BaseURL
		logger.Debug("Applied default Provider.BaseURL")
	}

	if p.HTTPRequestTimeout <= 0 {
		p.HTTPRequestTimeout = defaults.HTTPRequestTimeout
		logger.Debug("Applied default Provider.HTTPRequestTimeout")
	}

	if p.SearchTimeout <= 0 {
		p.SearchTimeout = defaults.SearchTimeout
		logger.Debug("Applied default Provider.SearchTimeout")
	}

	if p.RequestRateLimit < 0 {
		p.RequestRateLimit = defaults.RequestRateLimit
		logger.Debug("Applied default Provider.RequestRateLimit")
	}

	if p.PollInterval < 0 {
		p.PollInterval = defaults.PollInterval
		logger.Debug("Applied default Provider.PollInterval")
	}

	if p.MaxPollRetries <= 0 {
		p.MaxPollRetries = defaults.MaxPollRetries
		logger.Debug("Applied default Provider.MaxPollRetries")
	}
}

// BaseURLForEnvironment selects the provider host for "production" or "fake"
func BaseURLForEnvironment(env string) string {
	if env == "fake" {
		return FakeBaseURL
	}
	return ProductionBaseURL
}
