// Package cache provides read-through LRU decorators for the file and owner
// settings repositories. Entries expire after a TTL, so writes made by other
// instances become visible within that window.
package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/dmitrijs2005/filegate/internal/server/metrics"
	"github.com/dmitrijs2005/filegate/internal/server/models"
	"github.com/dmitrijs2005/filegate/internal/server/repositories/files"
	"github.com/dmitrijs2005/filegate/internal/server/repositories/settings"
)

// Files caches files.Repository lookups. Misses (not found) are not cached so
// a freshly stored file is served immediately.
type Files struct {
	next  files.Repository
	cache *expirable.LRU[string, *models.FileRecord]
}

func NewFiles(next files.Repository, size int, ttl time.Duration) *Files {
	return &Files{next: next, cache: expirable.NewLRU[string, *models.FileRecord](size, nil, ttl)}
}

func (c *Files) Get(ctx context.Context, ownerID int64, fileUniqueID string) (*models.FileRecord, error) {
	key := strconv.FormatInt(ownerID, 10) + "/" + fileUniqueID

	if f, ok := c.cache.Get(key); ok {
		metrics.CacheHitsTotal.WithLabelValues("files").Inc()
		return f, nil
	}
	metrics.CacheMissesTotal.WithLabelValues("files").Inc()

	f, err := c.next.Get(ctx, ownerID, fileUniqueID)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, f)
	return f, nil
}

// Settings caches owner settings. Absence is not cached because a row may be
// created at any time by registration. Writes go through and drop the entry.
type Settings struct {
	next  settings.Repository
	cache *expirable.LRU[int64, *models.OwnerSettings]
}

func NewSettings(next settings.Repository, size int, ttl time.Duration) *Settings {
	return &Settings{next: next, cache: expirable.NewLRU[int64, *models.OwnerSettings](size, nil, ttl)}
}

func (c *Settings) Get(ctx context.Context, ownerID int64) (*models.OwnerSettings, error) {
	if s, ok := c.cache.Get(ownerID); ok {
		metrics.CacheHitsTotal.WithLabelValues("settings").Inc()
		return s, nil
	}
	metrics.CacheMissesTotal.WithLabelValues("settings").Inc()

	s, err := c.next.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	c.cache.Add(ownerID, s)
	return s, nil
}

func (c *Settings) Update(ctx context.Context, ownerID int64, field string, value any) error {
	err := c.next.Update(ctx, ownerID, field, value)
	c.cache.Remove(ownerID)
	return err
}

func (c *Settings) EnsureDefaults(ctx context.Context, ownerID int64) error {
	err := c.next.EnsureDefaults(ctx, ownerID)
	c.cache.Remove(ownerID)
	return err
}
