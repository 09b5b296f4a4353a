package jobs

import (
	"testing"
	"time"

	"github.com/fenilmodi00/flight-deals-backend/models"
	"github.com/fenilmodi00/flight-deals-backend/services"
	"github.com/stretchr/testify/assert"
)

func TestCacheCleanupJobRemovesExpired(t *testing.T) {
	cache := services.NewCacheService(-time.Second, 10)
	cache.Set("expired", &models.SearchResult{})

	job := NewCacheCleanupJob(cache, 0)
	assert.Equal(t, 1, job.Run())
	assert.Equal(t, 0, cache.Size())
	assert.Equal(t, 5*time.Minute, job.interval)
}
