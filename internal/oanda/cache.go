package oanda

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/oreliousw/lambda-oanda-bridge/models"
)

// Source is the candle-fetching surface the cache decorates.
type Source interface {
	GetCandles(ctx context.Context, instrument, granularity string, count int) ([]models.Candle, error)
}

// Cache TTL per granularity: a cached frame stays valid until roughly the
// next bar close.
var cacheTTLs = map[string]time.Duration{
	models.GranularityM15: 5 * time.Minute,
	models.GranularityH1:  15 * time.Minute,
	models.GranularityH4:  30 * time.Minute,
}

// CachedSource is a read-through Redis cache in front of a candle source.
// Cache failures are logged and degrade to direct fetches; the cache never
// makes a scan fail.
type CachedSource struct {
	inner  Source
	client *redis.Client
	logger zerolog.Logger
}

// NewCachedSource wraps a source with a Redis cache at the given address.
func NewCachedSource(inner Source, addr string, logger zerolog.Logger) *CachedSource {
	return &CachedSource{
		inner:  inner,
		client: redis.NewClient(&redis.Options{Addr: addr}),
		logger: logger.With().Str("component", "candle_cache").Logger(),
	}
}

// GetCandles serves from Redis when a fresh entry exists, otherwise fetches
// from the inner source and stores the result.
func (c *CachedSource) GetCandles(ctx context.Context, instrument, granularity string, count int) ([]models.Candle, error) {
	key := fmt.Sprintf("candles:%s:%s:%d", instrument, granularity, count)

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var candles []models.Candle
		if err := json.Unmarshal([]byte(cached), &candles); err == nil {
			c.logger.Debug().Str("key", key).Msg("cache hit")
			return candles, nil
		}
		c.logger.Warn().Str("key", key).Msg("corrupt cache entry, refetching")
	} else if err != redis.Nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed, fetching direct")
	}

	candles, err := c.inner.GetCandles(ctx, instrument, granularity, count)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(candles); err == nil {
		ttl, ok := cacheTTLs[granularity]
		if !ok {
			ttl = 5 * time.Minute
		}
		if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return candles, nil
}

// Close releases the Redis connection pool.
func (c *CachedSource) Close() error {
	return c.client.Close()
}
