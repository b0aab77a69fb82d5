package report

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AlibekovAA/recordkeeper/internal/common/logger"
	"github.com/AlibekovAA/recordkeeper/internal/observability/metrics"
)

const (
	cacheKeyPrefix     = "recordkeeper:reports:"
	cacheGenerationKey = cacheKeyPrefix + "generation"
)

// Cache keeps rendered reports in Redis for ttl. Redis errors fall through to
// the wrapped renderer so reports keep working while the cache is down.
//
// Entries are keyed by a generation counter that Invalidate bumps. A render
// that started before an invalidation stores under the old generation and is
// never read again.
type Cache struct {
	next   Renderer
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

func NewCache(next Renderer, client *redis.Client, ttl time.Duration, log *logger.Logger) *Cache {
	return &Cache{next: next, client: client, ttl: ttl, log: log}
}

func cacheKey(generation int64, period Period) string {
	return cacheKeyPrefix + strconv.FormatInt(generation, 10) + ":" + string(period)
}

func (c *Cache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, cacheGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *Cache) Render(ctx context.Context, period Period) ([]byte, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		metrics.ReportCacheRequests.WithLabelValues("error").Inc()
		c.log.WithFields(ctx, logger.Fields{
			"period": string(period),
			"action": "report_cache_get_failed",
		}).Warnf("report cache read failed: %v", err)
		return c.next.Render(ctx, period)
	}

	key := cacheKey(gen, period)
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		metrics.ReportCacheRequests.WithLabelValues("hit").Inc()
		return data, nil
	case errors.Is(err, redis.Nil):
		metrics.ReportCacheRequests.WithLabelValues("miss").Inc()
	default:
		metrics.ReportCacheRequests.WithLabelValues("error").Inc()
		c.log.WithFields(ctx, logger.Fields{
			"period": string(period),
			"action": "report_cache_get_failed",
		}).Warnf("report cache read failed: %v", err)
	}

	data, err = c.next.Render(ctx, period)
	if err != nil {
		return nil, err
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.WithFields(ctx, logger.Fields{
			"period": string(period),
			"action": "report_cache_set_failed",
		}).Warnf("report cache write failed: %v", err)
	}
	return data, nil
}

// Invalidate retires every cached period. Old entries are left to expire.
func (c *Cache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, cacheGenerationKey).Err()
}
