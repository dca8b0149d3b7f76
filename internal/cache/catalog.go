package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"slotbook/internal/booking"
	"slotbook/internal/metrics"
	"slotbook/internal/model"
)

const keyPrefix = "slotbook"

// Catalog is a read-through Redis cache in front of a booking.Catalog.
// Redis failures fall through to the backing catalog.
type Catalog struct {
	next   booking.Catalog
	redis  *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger
}

var _ booking.Catalog = (*Catalog)(nil)

func NewCatalog(next booking.Catalog, rdb *redis.Client, ttl time.Duration, logger *zerolog.Logger) *Catalog {
	l := logger.With().Str("component", "catalog_cache").Logger()
	return &Catalog{next: next, redis: rdb, ttl: ttl, logger: &l}
}

func servicesKey(shopID string) string {
	return fmt.Sprintf("%s:services:%s", keyPrefix, shopID)
}

func promoKey(shopID, code string) string {
	return fmt.Sprintf("%s:promo:%s:%s", keyPrefix, shopID, strings.ToUpper(strings.TrimSpace(code)))
}

func (c *Catalog) GetServices(ctx context.Context, shopID string) ([]model.Service, error) {
	key := servicesKey(shopID)
	var services []model.Service
	if c.readCache(ctx, key, &services) {
		return services, nil
	}

	services, err := c.next.GetServices(ctx, shopID)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, key, services)
	return services, nil
}

// GetPromo caches known codes only; unknown codes always reach the backing catalog.
func (c *Catalog) GetPromo(ctx context.Context, shopID, code string) (*model.Promo, error) {
	key := promoKey(shopID, code)
	var promo model.Promo
	if c.readCache(ctx, key, &promo) {
		return &promo, nil
	}

	p, err := c.next.GetPromo(ctx, shopID, code)
	if err != nil || p == nil {
		return p, err
	}
	c.writeCache(ctx, key, p)
	return p, nil
}

// IncrementPromoUsage writes through and drops the cached promo so the new count is visible.
func (c *Catalog) IncrementPromoUsage(ctx context.Context, shopID, code string) error {
	if err := c.next.IncrementPromoUsage(ctx, shopID, code); err != nil {
		return err
	}
	if c.redis != nil {
		if err := c.redis.Del(ctx, promoKey(shopID, code)).Err(); err != nil {
			c.logger.Warn().Err(err).Str("shop_id", shopID).Msg("drop cached promo")
		}
	}
	return nil
}

// InvalidateShop drops every cached entry of a shop. It runs after a catalog sync.
func (c *Catalog) InvalidateShop(ctx context.Context, shopID string) error {
	if c.redis == nil {
		return nil
	}
	keys := []string{servicesKey(shopID)}
	iter := c.redis.Scan(ctx, 0, fmt.Sprintf("%s:promo:%s:*", keyPrefix, shopID), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan promo keys: %w", err)
	}
	return c.redis.Del(ctx, keys...).Err()
}

func (c *Catalog) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.ttl <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug().Err(err).Str("key", key).Msg("cache read failed")
		}
		metrics.IncCacheLookup(false)
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		metrics.IncCacheLookup(false)
		return false
	}
	metrics.IncCacheLookup(true)
	return true
}

func (c *Catalog) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("cache write failed")
	}
}
