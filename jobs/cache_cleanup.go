package jobs

import (
	"context"
	"time"

	"github.com/fenilmodi00/flight-deals-backend/services"
	"github.com/sirupsen/logrus"
)

type CacheCleanupJob struct {
	CacheService *services.CacheService
	interval     time.Duration
}

func NewCacheCleanupJob(cacheService *services.CacheService, interval time.Duration) *CacheCleanupJob {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &CacheCleanupJob{CacheService: cacheService, interval: interval}
}

// Start runs Run on every interval until ctx is done
func (j *CacheCleanupJob) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				j.Run()
			}
		}
	}()
}

// Run drops expired search results
func (j *CacheCleanupJob) Run() int {
	removed := j.CacheService.CleanupExpired()
	logrus.WithFields(logrus.Fields{
		"removed":   removed,
		"remaining": j.CacheService.Size(),
	}).Debug("Cache cleanup job completed")
	return removed
}
