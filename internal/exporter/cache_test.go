package exporter

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewResultCacheDefaultTTL(t *testing.T) {
	assert.Equal(t, defaultCacheTTL, NewResultCache(0).TTL())
	assert.Equal(t, defaultCacheTTL, NewResultCache(-5*time.Minute).TTL())
	assert.Equal(t, 2*time.Minute, NewResultCache(2*time.Minute).TTL())
}

func TestResultCacheGetSet(t *testing.T) {
	cache := NewResultCache(5 * time.Minute)

	_, found := cache.Get()
	assert.False(t, found)

	cycle := CycleResult{Items: []interface{}{"a", "b"}, Duration: time.Second}
	cache.Set(cycle)

	retrieved, found := cache.Get()
	assert.True(t, found)
	assert.Equal(t, cycle, retrieved)
}

func TestResultCacheKeepsFailures(t *testing.T) {
	cache := NewResultCache(5 * time.Minute)
	cache.Set(CycleResult{Err: errors.New("down")})

	retrieved, found := cache.Get()
	assert.True(t, found)
	assert.EqualError(t, retrieved.Err, "down")
}

func TestResultCacheExpiration(t *testing.T) {
	cache := NewResultCache(50 * time.Millisecond)
	cache.Set(CycleResult{Items: []interface{}{1}})

	_, found := cache.Get()
	assert.True(t, found)

	time.Sleep(100 * time.Millisecond)
	_, found = cache.Get()
	assert.False(t, found, "entry should expire after TTL")
}

func TestResultCacheLastCollectionTime(t *testing.T) {
	cache := NewResultCache(5 * time.Minute)
	assert.True(t, cache.GetLastCollectionTime().IsZero())

	before := time.Now()
	cache.Set(CycleResult{})
	after := time.Now()

	last := cache.GetLastCollectionTime()
	assert.False(t, last.Before(before))
	assert.False(t, last.After(after))
}

func TestResultCacheFlush(t *testing.T) {
	cache := NewResultCache(5 * time.Minute)
	cache.Set(CycleResult{Items: []interface{}{1}})

	cache.Flush()
	_, found := cache.Get()
	assert.False(t, found)
}

func TestResultCacheConcurrentAccess(t *testing.T) {
	cache := NewResultCache(5 * time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			cache.Set(CycleResult{Items: []interface{}{n}})
		}(i)
		go func() {
			defer wg.Done()
			_, _ = cache.Get()
		}()
	}
	wg.Wait()

	_, found := cache.Get()
	assert.True(t, found)
}
