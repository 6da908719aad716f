// Package cache stores rendered reports keyed by the data version they
// were rendered from.
package cache

import (
	"context"
	"fmt"
	"time"

	"bptracker/internal/models"
	"bptracker/internal/repository"
)

const versionKey = "readings:version"

// ReportCache is safe to use as a nil pointer; every call is then a miss
// or a no-op.
type ReportCache struct {
	repo repository.CacheRepository
	ttl  time.Duration
}

func NewReportCache(repo repository.CacheRepository, ttl time.Duration) *ReportCache {
	if repo == nil {
		return nil
	}
	return &ReportCache{repo: repo, ttl: ttl}
}

// Bump invalidates every cached report by advancing the data version.
func (c *ReportCache) Bump(ctx context.Context) error {
	if c == nil {
		return nil
	}
	_, err := c.repo.Increment(ctx, versionKey)
	return err
}

// Key names the entry for the current data version. Callers compute it
// before reading the data the document is rendered from.
func (c *ReportCache) Key(ctx context.Context, kind, format string, r models.DateRange) (string, error) {
	if c == nil {
		return "", nil
	}
	version, err := c.repo.GetInt(ctx, versionKey)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s:%s:v%d", kind, format, r.Key(), version), nil
}

func (c *ReportCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c == nil || key == "" {
		return nil, false, nil
	}
	return c.repo.Get(ctx, key)
}

func (c *ReportCache) Set(ctx context.Context, key string, data []byte) error {
	if c == nil || key == "" {
		return nil
	}
	return c.repo.Set(ctx, key, data, c.ttl)
}

// GetJSON decodes a cached value into dest.
func (c *ReportCache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if c == nil || key == "" {
		return false, nil
	}
	return c.repo.GetJSON(ctx, key, dest)
}

func (c *ReportCache) SetJSON(ctx context.Context, key string, value interface{}) error {
	if c == nil || key == "" {
		return nil
	}
	return c.repo.SetJSON(ctx, key, value, c.ttl)
}
