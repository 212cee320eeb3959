package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/GTDGit/keyprice_api/internal/metrics"
	"github.com/GTDGit/keyprice_api/internal/models"
)

// DefaultPriceTTL is used when NewPriceCache is given a non-positive TTL.
const DefaultPriceTTL = time.Hour

// DefaultLoadTimeout bounds a shared load when no timeout is set.
const DefaultLoadTimeout = 30 * time.Second

const priceKeyPrefix = "prices:"

// PriceLoader produces a fresh result on a cache miss.
type PriceLoader func(ctx context.Context) ([]models.GroupedOfferResponse, error)

// PriceCache caches ranked price results. Concurrent loads of the same key
// share one loader call, which runs detached from any single caller's
// cancellation. Store failures fall back to calling the loader.
type PriceCache struct {
	store       Store
	ttl         time.Duration
	loadTimeout time.Duration
	group       singleflight.Group
	metrics     *metrics.Registry
}

// NewPriceCache creates a new PriceCache over store.
func NewPriceCache(store Store, ttl time.Duration, m *metrics.Registry) *PriceCache {
	if ttl <= 0 {
		ttl = DefaultPriceTTL
	}
	return &PriceCache{store: store, ttl: ttl, loadTimeout: DefaultLoadTimeout, metrics: m}
}

// WithLoadTimeout sets the deadline of a shared load. Non-positive values keep the default.
func (c *PriceCache) WithLoadTimeout(d time.Duration) *PriceCache {
	if d > 0 {
		c.loadTimeout = d
	}
	return c
}

// Key derives a cache key from the JSON encoding of v.
func Key(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cache key: %w", err)
	}
	sum := sha256.Sum256(b)
	return priceKeyPrefix + hex.EncodeToString(sum[:]), nil
}

// GetOrLoad returns the cached result for key, or runs loader and caches its
// result. Loader errors are returned as-is and never cached. A caller whose
// ctx ends stops waiting with ctx.Err(); the shared load carries on for the
// other callers.
func (c *PriceCache) GetOrLoad(ctx context.Context, key string, loader PriceLoader) ([]models.GroupedOfferResponse, bool, error) {
	if res, ok := c.get(ctx, key); ok {
		c.metrics.ObserveCache(true)
		return res, true, nil
	}
	c.metrics.ObserveCache(false)

	ch := c.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()

		res, err := loader(loadCtx)
		if err != nil {
			return nil, err
		}
		c.set(loadCtx, key, res)
		return res, nil
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, false, r.Err
		}
		return r.Val.([]models.GroupedOfferResponse), false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Invalidate drops a cached result.
func (c *PriceCache) Invalidate(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}

func (c *PriceCache) get(ctx context.Context, key string) ([]models.GroupedOfferResponse, bool) {
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			log.Warn().Err(err).Str("key", key).Msg("Price cache read failed")
		}
		return nil, false
	}
	var res []models.GroupedOfferResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Discarding undecodable price cache entry")
		return nil, false
	}
	if res == nil {
		res = []models.GroupedOfferResponse{}
	}
	return res, true
}

func (c *PriceCache) set(ctx context.Context, key string, res []models.GroupedOfferResponse) {
	if res == nil {
		res = []models.GroupedOfferResponse{}
	}
	raw, err := json.Marshal(res)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to encode price cache entry")
		return
	}
	if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Price cache write failed")
	}
}
