package directory

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/model"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// KV is the subset of the Redis client used by the cache.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Cache is a read-through Redis cache in front of the pharmacy directory.
// Redis failures degrade to the source; they never fail a lookup.
type Cache struct {
	src    booking.Directory
	kv     KV
	ttl    time.Duration
	prefix string
	logger *slog.Logger
	group  singleflight.Group

	lookupTimeout time.Duration
}

func NewCache(src booking.Directory, kv KV, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		src:           src,
		kv:            kv,
		ttl:           ttl,
		prefix:        "pharmavisit:pharmacy:",
		logger:        logger,
		lookupTimeout: 5 * time.Second,
	}
}

var _ booking.Directory = (*Cache)(nil)

type cachedPharmacy struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	BusinessHoursText string    `json:"business_hours_text"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (c *Cache) GetPharmacy(ctx context.Context, id string) (model.Pharmacy, error) {
	if c.kv == nil {
		return c.src.GetPharmacy(ctx, id)
	}

	raw, err := c.kv.Get(ctx, c.key(id)).Bytes()
	switch {
	case err == nil:
		var cp cachedPharmacy
		if err := json.Unmarshal(raw, &cp); err == nil {
			return model.Pharmacy(cp), nil
		}
		c.logger.Warn("directory cache entry corrupt", "pharmacy_id", id)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("directory cache read failed", "pharmacy_id", id, "err", err)
	}

	// The shared lookup outlives any single caller; each caller still stops
	// waiting when its own ctx ends.
	ch := c.group.DoChan(id, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.lookupTimeout)
		defer cancel()
		return c.load(lctx, id)
	})
	select {
	case <-ctx.Done():
		return model.Pharmacy{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return model.Pharmacy{}, res.Err
		}
		return res.Val.(model.Pharmacy), nil
	}
}

func (c *Cache) load(ctx context.Context, id string) (model.Pharmacy, error) {
	p, err := c.src.GetPharmacy(ctx, id)
	if err != nil {
		return model.Pharmacy{}, err
	}
	if b, err := json.Marshal(cachedPharmacy(p)); err == nil {
		if err := c.kv.Set(ctx, c.key(id), b, c.ttl).Err(); err != nil {
			c.logger.Warn("directory cache write failed", "pharmacy_id", id, "err", err)
		}
	}
	return p, nil
}

// Evict drops a cached pharmacy so the next lookup reads the source.
func (c *Cache) Evict(ctx context.Context, id string) error {
	if c.kv == nil {
		return nil
	}
	return c.kv.Del(ctx, c.key(id)).Err()
}

func (c *Cache) key(id string) string { return c.prefix + id }
