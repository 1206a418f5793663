package cache

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biomed-dq-validator/internal/domain"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func report(id string, score float64) *domain.ValidationReport {
	return &domain.ValidationReport{
		Metadata:     domain.ReportMetadata{ReportID: id, DatasetName: "adni", Mode: "full"},
		QualityScore: domain.QualityScore{Overall: score, MaxScore: 100, Grade: domain.GradeFor(score)},
	}
}

// deadRedis points at a port nothing listens on.
func deadRedis(trips uint32) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	return NewRedisCache(client, domain.CacheConfig{BreakerTrips: trips, BreakerTimeout: time.Minute}, quietLogger())
}

func TestMemoryCache(t *testing.T) {
	m := NewMemoryCache(2, time.Minute)

	m.Set(report("a", 90))
	m.Set(report("b", 80))
	m.Set(report("c", 70))
	m.Set(nil)
	m.Set(report("", 50))

	assert.Equal(t, 2, m.Len())
	_, ok := m.Get("a")
	assert.False(t, ok, "oldest entry is evicted")

	got, ok := m.Get("c")
	require.True(t, ok)
	assert.Equal(t, 70.0, got.QualityScore.Overall)

	m.Remove("c")
	_, ok = m.Get("c")
	assert.False(t, ok)
}

func TestMemoryCache_Expiry(t *testing.T) {
	m := NewMemoryCache(10, 20*time.Millisecond)
	m.Set(report("a", 90))

	assert.Eventually(t, func() bool {
		_, ok := m.Get("a")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryCache_Defaults(t *testing.T) {
	m := NewMemoryCache(0, 0)
	m.Set(report("a", 90))
	_, ok := m.Get("a")
	assert.True(t, ok)
}

func TestReportCache_MemoryOnly(t *testing.T) {
	c, err := New(domain.CacheConfig{MemorySize: 8, MemoryTTL: time.Minute}, quietLogger())
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, report("r-1", 91))

	got, ok := c.Get(ctx, "r-1")
	require.True(t, ok)
	assert.Equal(t, domain.GRADE_A, got.QualityScore.Grade)

	_, ok = c.Get(ctx, "r-2")
	assert.False(t, ok)

	c.Invalidate(ctx, "r-1")
	_, ok = c.Get(ctx, "r-1")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(3), stats.Requests)
	assert.Equal(t, int64(1), stats.MemoryHits)
	assert.Equal(t, int64(2), stats.MemoryMisses)
	assert.False(t, stats.RedisEnabled)
	assert.Empty(t, stats.BreakerState)
	assert.InDelta(t, 1.0/3.0, stats.HitRatio(), 1e-9)
}

func TestReportCache_BadRedisURL(t *testing.T) {
	_, err := New(domain.CacheConfig{RedisURL: "not-a-url"}, quietLogger())
	assert.Error(t, err)
}

func TestReportCache_RedisOutageDegradesToMemory(t *testing.T) {
	c := NewReportCache(NewMemoryCache(8, time.Minute), deadRedis(2), quietLogger())
	ctx := context.Background()

	// Step 1: writes still land in memory even though Redis is down
	c.Set(ctx, report("r-1", 88))
	got, ok := c.Get(ctx, "r-1")
	require.True(t, ok)
	assert.Equal(t, 88.0, got.QualityScore.Overall)

	// Step 2: misses fall through to Redis and fail until the breaker opens
	_, ok = c.Get(ctx, "missing")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "missing")
	assert.False(t, ok)

	stats := c.Stats()
	assert.True(t, stats.RedisEnabled)
	assert.Equal(t, "open", stats.BreakerState)
	assert.GreaterOrEqual(t, stats.RedisErrors, int64(2))
	assert.Zero(t, stats.RedisHits)
}

func TestRedisCache_OpenBreakerFailsFast(t *testing.T) {
	rc := deadRedis(1)
	ctx := context.Background()

	_, err := rc.Get(ctx, "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
	assert.Equal(t, "open", rc.State())

	start := time.Now()
	_, err = rc.Get(ctx, "x")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestRedisCache_Integration(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set, skipping Redis integration tests")
	}

	cfg := domain.CacheConfig{RedisURL: url, RedisTTL: time.Minute, KeyPrefix: "dq:test:" + uuid.NewString() + ":"}
	rc, err := NewRedisCacheFromURL(cfg, quietLogger())
	require.NoError(t, err)
	defer rc.Close()
	ctx := context.Background()
	require.NoError(t, rc.Ping(ctx))

	_, err = rc.Get(ctx, "r-1")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, rc.Set(ctx, report("r-1", 77)))
	got, err := rc.Get(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, domain.GRADE_C, got.QualityScore.Grade)

	// A Redis hit is promoted into a fresh memory tier.
	c := NewReportCache(NewMemoryCache(4, time.Minute), rc, quietLogger())
	_, ok := c.Get(ctx, "r-1")
	require.True(t, ok)
	assert.Equal(t, 1, c.memory.Len())
	assert.Equal(t, int64(1), c.Stats().RedisHits)

	require.NoError(t, rc.Delete(ctx, "r-1"))
	_, err = rc.Get(ctx, "r-1")
	assert.ErrorIs(t, err, ErrMiss)
	assert.Equal(t, "closed", rc.State())
}
