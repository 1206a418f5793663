// Package cache keeps recently produced validation reports close at hand so
// report lookups do not hit the archive on every request.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/biomed-dq-validator/internal/domain"
)

// Defaults applied when the configuration leaves a field unset.
const (
	DefaultMemorySize = 256
	DefaultMemoryTTL  = 15 * time.Minute
	DefaultRedisTTL   = 24 * time.Hour
	DefaultKeyPrefix  = "dq:report:"
)

// MemoryCache is the in-process tier: a size-bounded LRU whose entries expire
// after a fixed TTL.
type MemoryCache struct {
	lru *expirable.LRU[string, *domain.ValidationReport]
}

// NewMemoryCache creates an LRU holding at most size reports for ttl each.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = DefaultMemorySize
	}
	if ttl <= 0 {
		ttl = DefaultMemoryTTL
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, *domain.ValidationReport](size, nil, ttl),
	}
}

// Get returns a cached report.
func (m *MemoryCache) Get(id string) (*domain.ValidationReport, bool) {
	return m.lru.Get(id)
}

// Set stores a report under its report ID.
func (m *MemoryCache) Set(report *domain.ValidationReport) {
	if report == nil || report.Metadata.ReportID == "" {
		return
	}
	m.lru.Add(report.Metadata.ReportID, report)
}

// Remove evicts a report.
func (m *MemoryCache) Remove(id string) {
	m.lru.Remove(id)
}

// Len returns the number of live entries.
func (m *MemoryCache) Len() int {
	return m.lru.Len()
}
