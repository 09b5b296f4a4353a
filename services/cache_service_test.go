package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fenilmodi00/flight-deals-backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSearcher struct {
	calls int
	err   error
}

func (s *countingSearcher) Search(_ context.Context, provider string, _ models.SearchInput) (*models.SearchResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &models.SearchResult{Metadata: models.SearchMetadata{Provider: provider, RunID: "run-1"}}, nil
}

func TestSearchCacheKey(t *testing.T) {
	oneWay := models.SearchInput{Origin: "BER", Destination: "MAD", DepartureDate: "2026-02-01"}
	emptyReturn := oneWay
	emptyReturn.ReturnDate = strPtr("")
	roundTrip := oneWay
	roundTrip.ReturnDate = strPtr("2026-02-04")

	assert.Equal(t, SearchCacheKey("Skyscanner", oneWay), SearchCacheKey("skyscanner", emptyReturn))
	assert.NotEqual(t, SearchCacheKey("skyscanner", oneWay), SearchCacheKey("skyscanner", roundTrip))
	assert.NotEqual(t, SearchCacheKey("skyscanner", oneWay), SearchCacheKey("kiwi", oneWay))
}

func TestCacheServiceExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cache := NewCacheService(time.Minute, 10)
	cache.now = func() time.Time { return now }

	cache.Set("a", &models.SearchResult{})
	_, ok := cache.Get("a")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = cache.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, cache.CleanupExpired())
	assert.Equal(t, 0, cache.Size())
}

func TestCacheServiceEvictsWhenFull(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cache := NewCacheService(time.Minute, 2)
	cache.now = func() time.Time { return now }

	cache.Set("first", &models.SearchResult{})
	now = now.Add(time.Second)
	cache.Set("second", &models.SearchResult{})
	now = now.Add(time.Second)
	cache.Set("third", &models.SearchResult{})

	assert.Equal(t, 2, cache.Size())
	_, ok := cache.Get("first")
	assert.False(t, ok)
	_, ok = cache.Get("third")
	assert.True(t, ok)
}

func TestCachedSearchServiceReusesSuccess(t *testing.T) {
	searcher := &countingSearcher{}
	svc := NewCachedSearchService(searcher, NewCacheService(time.Minute, 10))
	input := models.SearchInput{Origin: "BER", Destination: "MAD", DepartureDate: "2026-02-01"}

	first, err := svc.Search(context.Background(), "skyscanner", input)
	require.NoError(t, err)
	second, err := svc.Search(context.Background(), "skyscanner", input)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, searcher.calls)
}

func TestCachedSearchServiceDoesNotCacheFailures(t *testing.T) {
	searcher := &countingSearcher{err: errors.New("boom")}
	cache := NewCacheService(time.Minute, 10)
	svc := NewCachedSearchService(searcher, cache)
	input := models.SearchInput{Origin: "BER", Destination: "MAD", DepartureDate: "2026-02-01"}

	_, err := svc.Search(context.Background(), "skyscanner", input)
	assert.Error(t, err)
	_, err = svc.Search(context.Background(), "skyscanner", input)
	assert.Error(t, err)

	assert.Equal(t, 2, searcher.calls)
	assert.Equal(t, 0, cache.Size())
}
