package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/biomed-dq-validator/internal/domain"
)

// Stats represents cache performance statistics
type Stats struct {
	Requests     int64     `json:"requests"`
	MemoryHits   int64     `json:"memory_hits"`
	MemoryMisses int64     `json:"memory_misses"`
	RedisHits    int64     `json:"redis_hits"`
	RedisMisses  int64     `json:"redis_misses"`
	RedisErrors  int64     `json:"redis_errors"`
	MemoryItems  int       `json:"memory_items"`
	RedisEnabled bool      `json:"redis_enabled"`
	BreakerState string    `json:"breaker_state,omitempty"`
	Since        time.Time `json:"since"`
}

// HitRatio returns the fraction of requests served from either tier.
func (s Stats) HitRatio() float64 {
	if s.Requests == 0 {
		return 0
	}
	return float64(s.MemoryHits+s.RedisHits) / float64(s.Requests)
}

// ReportCache is the two-tier report cache: memory first, then Redis when
// configured. Redis failures are logged and counted but never surface to
// callers.
type ReportCache struct {
	memory *MemoryCache
	redis  *RedisCache
	logger *logrus.Logger

	statsMu sync.Mutex
	stats   Stats
}

// New builds the cache described by cfg. Redis is attached only when
// cfg.RedisURL is set.
func New(cfg domain.CacheConfig, logger *logrus.Logger) (*ReportCache, error) {
	var redisTier *RedisCache
	if cfg.RedisURL != "" {
		rc, err := NewRedisCacheFromURL(cfg, logger)
		if err != nil {
			return nil, err
		}
		redisTier = rc
	}
	return NewReportCache(NewMemoryCache(cfg.MemorySize, cfg.MemoryTTL), redisTier, logger), nil
}

// NewReportCache assembles a cache from explicit tiers. redisTier may be nil.
func NewReportCache(memory *MemoryCache, redisTier *RedisCache, logger *logrus.Logger) *ReportCache {
	return &ReportCache{
		memory: memory,
		redis:  redisTier,
		logger: logger,
		stats:  Stats{Since: time.Now()},
	}
}

// Get looks a report up in memory, then in Redis. A Redis hit is promoted to
// the memory tier.
func (c *ReportCache) Get(ctx context.Context, id string) (*domain.ValidationReport, bool) {
	c.record(func(s *Stats) { s.Requests++ })

	if report, ok := c.memory.Get(id); ok {
		c.record(func(s *Stats) { s.MemoryHits++ })
		return report, true
	}
	c.record(func(s *Stats) { s.MemoryMisses++ })

	if c.redis == nil {
		return nil, false
	}

	report, err := c.redis.Get(ctx, id)
	switch {
	case err == nil:
		c.record(func(s *Stats) { s.RedisHits++ })
		c.memory.Set(report)
		c.logger.WithFields(logrus.Fields{
			"report_id":  id,
			"cache_tier": "redis",
		}).Debug("Cache hit in Redis")
		return report, true
	case errors.Is(err, ErrMiss):
		c.record(func(s *Stats) { s.RedisMisses++ })
	default:
		c.record(func(s *Stats) { s.RedisErrors++ })
		c.logger.WithError(err).WithField("report_id", id).Warn("Redis cache lookup failed")
	}
	return nil, false
}

// Set writes a report to every tier.
func (c *ReportCache) Set(ctx context.Context, report *domain.ValidationReport) {
	if report == nil || report.Metadata.ReportID == "" {
		return
	}
	c.memory.Set(report)
	if c.redis == nil {
		return
	}
	if err := c.redis.Set(ctx, report); err != nil {
		c.record(func(s *Stats) { s.RedisErrors++ })
		c.logger.WithError(err).WithField("report_id", report.Metadata.ReportID).Warn("Redis cache write failed")
	}
}

// Invalidate removes a report from every tier.
func (c *ReportCache) Invalidate(ctx context.Context, id string) {
	c.memory.Remove(id)
	if c.redis == nil {
		return
	}
	if err := c.redis.Delete(ctx, id); err != nil {
		c.record(func(s *Stats) { s.RedisErrors++ })
		c.logger.WithError(err).WithField("report_id", id).Warn("Redis cache invalidation failed")
	}
}

// Stats returns a snapshot of the counters.
func (c *ReportCache) Stats() Stats {
	c.statsMu.Lock()
	stats := c.stats
	c.statsMu.Unlock()

	stats.MemoryItems = c.memory.Len()
	stats.RedisEnabled = c.redis != nil
	if c.redis != nil {
		stats.BreakerState = c.redis.State()
	}
	return stats
}

// Close releases the Redis client, if any.
func (c *ReportCache) Close() error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Close()
}

func (c *ReportCache) record(update func(*Stats)) {
	c.statsMu.Lock()
	update(&c.stats)
	c.statsMu.Unlock()
}
