package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/biomed-dq-validator/internal/domain"
)

// ErrMiss is returned when Redis has no entry for a key.
var ErrMiss = errors.New("cache miss")

// RedisCache is the shared tier. Every call goes through a circuit breaker so
// an unreachable Redis fails fast instead of stalling each request.
type RedisCache struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	prefix  string
	ttl     time.Duration
	logger  *logrus.Logger
}

// NewRedisCacheFromURL parses cfg.RedisURL and builds a client from it.
func NewRedisCacheFromURL(cfg domain.CacheConfig, logger *logrus.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	if cfg.MaxRetries != 0 {
		opts.MaxRetries = cfg.MaxRetries
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.PoolTimeout > 0 {
		opts.PoolTimeout = cfg.PoolTimeout
	}
	opts.DialTimeout = 2 * time.Second
	opts.ReadTimeout = time.Second
	opts.WriteTimeout = time.Second

	return NewRedisCache(redis.NewClient(opts), cfg, logger), nil
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client *redis.Client, cfg domain.CacheConfig, logger *logrus.Logger) *RedisCache {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	ttl := cfg.RedisTTL
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	trips := cfg.BreakerTrips
	if trips == 0 {
		trips = 5
	}
	timeout := cfg.BreakerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "ReportCacheRedis",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= trips
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit_breaker": name,
				"from_state":      from.String(),
				"to_state":        to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}

	return &RedisCache{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker(settings),
		prefix:  prefix,
		ttl:     ttl,
		logger:  logger,
	}
}

func (r *RedisCache) key(id string) string {
	return r.prefix + id
}

// Get loads a report. A missing key returns ErrMiss.
func (r *RedisCache) Get(ctx context.Context, id string) (*domain.ValidationReport, error) {
	raw, err := r.breaker.Execute(func() (interface{}, error) {
		return r.client.Get(ctx, r.key(id)).Bytes()
	})
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var report domain.ValidationReport
	if err := json.Unmarshal(raw.([]byte), &report); err != nil {
		return nil, fmt.Errorf("decoding cached report: %w", err)
	}
	return &report, nil
}

// Set stores a report with the configured TTL.
func (r *RedisCache) Set(ctx context.Context, report *domain.ValidationReport) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	_, err = r.breaker.Execute(func() (interface{}, error) {
		return nil, r.client.Set(ctx, r.key(report.Metadata.ReportID), raw, r.ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes a report.
func (r *RedisCache) Delete(ctx context.Context, id string) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, r.client.Del(ctx, r.key(id)).Err()
	})
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ping checks connectivity without going through the breaker.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// State returns the breaker state name.
func (r *RedisCache) State() string {
	return r.breaker.State().String()
}

// Close closes the client.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
