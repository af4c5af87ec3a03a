package montecarlo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/katanaflow/heftsim/pkg/models"
)

// BatchCacheConfig configures BatchCache's Redis-backed cooperative
// cancellation and result memoization.
type BatchCacheConfig struct {
	RedisClient *redis.Client
	ResultTTL   time.Duration
}

// DefaultBatchCacheConfig mirrors the teacher's concurrency-manager
// defaults: a day-long TTL for memoized results.
func DefaultBatchCacheConfig(client *redis.Client) BatchCacheConfig {
	return BatchCacheConfig{RedisClient: client, ResultTTL: 24 * time.Hour}
}

// BatchCache coordinates batch-granularity cancellation across concurrent
// simulation workers and memoizes completed batch results, adapted from
// the teacher's redis-backed ConcurrencyManager (distributed locks via
// SetNX, distributed counters via Incr/Decr) to this domain's one
// cooperative flag per batch plus one cached BatchStatistics per batch ID
// (spec.md §5: "Cancellation at batch granularity is supported by
// checking a cooperative flag between simulations").
type BatchCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewBatchCache builds a BatchCache. A nil RedisClient is valid and makes
// every method a no-op returning zero values — useful for tests and for
// single-process deployments with no shared cancellation surface.
func NewBatchCache(cfg BatchCacheConfig) *BatchCache {
	return &BatchCache{redis: cfg.RedisClient, ttl: cfg.ResultTTL}
}

func cancelKey(batchID string) string { return "heftsim:batch:" + batchID + ":cancel" }
func resultKey(batchID string) string { return "heftsim:batch:" + batchID + ":stats" }

// RequestCancel sets the cooperative cancel flag for batchID. Workers
// polling IsCancelled between simulations observe it on their next check.
func (c *BatchCache) RequestCancel(ctx context.Context, batchID string) error {
	if c.redis == nil {
		return nil
	}
	if err := c.redis.Set(ctx, cancelKey(batchID), "1", c.ttl).Err(); err != nil {
		return fmt.Errorf("batch cache: request cancel: %w", err)
	}
	return nil
}

// IsCancelled reports whether RequestCancel has been called for batchID.
func (c *BatchCache) IsCancelled(ctx context.Context, batchID string) (bool, error) {
	if c.redis == nil {
		return false, nil
	}
	n, err := c.redis.Exists(ctx, cancelKey(batchID)).Result()
	if err != nil {
		return false, fmt.Errorf("batch cache: check cancel: %w", err)
	}
	return n > 0, nil
}

// StoreResult memoizes a completed batch's statistics under batchID.
func (c *BatchCache) StoreResult(ctx context.Context, batchID string, stats models.BatchStatistics) error {
	if c.redis == nil {
		return nil
	}
	payload, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("batch cache: marshal result: %w", err)
	}
	if err := c.redis.Set(ctx, resultKey(batchID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("batch cache: store result: %w", err)
	}
	return nil
}

// LoadResult returns a previously memoized batch result, or ok=false if
// none is cached.
func (c *BatchCache) LoadResult(ctx context.Context, batchID string) (stats models.BatchStatistics, ok bool, err error) {
	if c.redis == nil {
		return models.BatchStatistics{}, false, nil
	}
	payload, err := c.redis.Get(ctx, resultKey(batchID)).Bytes()
	if err == redis.Nil {
		return models.BatchStatistics{}, false, nil
	}
	if err != nil {
		return models.BatchStatistics{}, false, fmt.Errorf("batch cache: load result: %w", err)
	}
	if err := json.Unmarshal(payload, &stats); err != nil {
		return models.BatchStatistics{}, false, fmt.Errorf("batch cache: unmarshal result: %w", err)
	}
	return stats, true, nil
}
