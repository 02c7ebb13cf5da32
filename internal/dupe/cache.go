package dupe

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/adrizkya/parkirin/internal/models"
)

const (
	cacheTTL  = 2 * time.Minute
	cacheMiss = "none"
)

// Cache is a short-lived redis cache of duplicate lookups keyed by the
// folded plate. It only serves the advisory pre-check path; it is never
// consulted at write time. Cache failures are swallowed after a debug
// log so redis outages cannot affect ticket operations.
type Cache struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewCache(rdb *redis.Client, log *zap.Logger) *Cache {
	return &Cache{rdb: rdb, log: log}
}

func cacheKey(lotID, fold string) string {
	return "dupe:" + lotID + ":" + fold
}

// get returns the cached lookup result and whether the cache held one.
// A cached negative comes back as (nil, true).
func (c *Cache) get(ctx context.Context, lotID, fold string) (*models.Ticket, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, cacheKey(lotID, fold)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Debug("dupe cache read failed", zap.Error(err))
		}
		return nil, false
	}
	if raw == cacheMiss {
		return nil, true
	}
	var ticket models.Ticket
	if err := json.Unmarshal([]byte(raw), &ticket); err != nil {
		c.log.Debug("dupe cache entry corrupt", zap.Error(err))
		return nil, false
	}
	return &ticket, true
}

func (c *Cache) put(ctx context.Context, lotID, fold string, ticket *models.Ticket) {
	if c == nil || c.rdb == nil {
		return
	}
	value := cacheMiss
	if ticket != nil {
		raw, err := json.Marshal(ticket)
		if err != nil {
			return
		}
		value = string(raw)
	}
	if err := c.rdb.Set(ctx, cacheKey(lotID, fold), value, cacheTTL).Err(); err != nil {
		c.log.Debug("dupe cache write failed", zap.Error(err))
	}
}

// Invalidate drops the cached lookup for a plate after a state change.
func (c *Cache) Invalidate(ctx context.Context, lotID, fold string) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, cacheKey(lotID, fold)).Err(); err != nil {
		c.log.Debug("dupe cache invalidate failed", zap.Error(err))
	}
}
