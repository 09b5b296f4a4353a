package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateAndApplyDefaults(t *testing.T) {
	cfg := &UnifiedConfiguration{
		Provider: ProviderConfig{MaxPollRetries: -1, PollInterval: -time.Second},
	}
	cfg.ValidateAndApplyDefaults()

	assert.Equal(t, ProductionBaseURL, cfg.Provider.BaseURL)
	assert.Equal(t, 20, cfg.Provider.MaxPollRetries)
	assert.Equal(t, time.Second, cfg.Provider.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.Provider.HTTPRequestTimeout)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 6*time.Hour, cfg.Watch.Interval)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	p := ProviderConfig{BaseURL: FakeBaseURL, MaxPollRetries: 3, PollInterval: 0}
	p.ApplyDefaults()

	assert.Equal(t, FakeBaseURL, p.BaseURL)
	assert.Equal(t, 3, p.MaxPollRetries)
	assert.Equal(t, time.Duration(0), p.PollInterval)
}

func TestBaseURLForEnvironment(t *testing.T) {
	assert.Equal(t, FakeBaseURL, BaseURLForEnvironment("fake"))
	assert.Equal(t, ProductionBaseURL, BaseURLForEnvironment("production"))
	assert.Equal(t, ProductionBaseURL, BaseURLForEnvironment(""))
}
