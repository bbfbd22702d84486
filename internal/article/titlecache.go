package article

import (
	"context"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/apohrebniak/paket/internal/common/redis"
	"github.com/apohrebniak/paket/internal/metrics"
)

// TitleCache remembers derived titles keyed by URL so re-saving a link does
// not fetch the document again. A nil cache and any Redis failure both
// degrade to a miss; saving never depends on Redis being up.
type TitleCache struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *metrics.MetricsCollector
	logger  *zap.Logger
}

// NewTitleCache wraps the Redis client. Entries expire after ttl.
func NewTitleCache(client *redis.Client, ttl time.Duration, mc *metrics.MetricsCollector, logger *zap.Logger) *TitleCache {
	return &TitleCache{
		client:  client,
		ttl:     ttl,
		metrics: mc,
		logger:  logger,
	}
}

// titleKey hashes the URL so arbitrarily long URLs map to short fixed keys.
func titleKey(url string) string {
	return "title:" + strconv.FormatUint(xxhash.Sum64String(url), 16)
}

// Get returns the cached title for the URL, or ok=false on miss or error.
func (c *TitleCache) Get(ctx context.Context, url string) (string, bool) {
	if c == nil {
		return "", false
	}

	title, err := c.client.Get(ctx, titleKey(url))
	if err != nil {
		c.metrics.RecordTitleCacheError()
		c.logger.Warn("Title cache lookup failed", zap.String("url", url), zap.Error(err))
		return "", false
	}
	if title == "" {
		c.metrics.RecordTitleCacheMiss()
		return "", false
	}

	c.metrics.RecordTitleCacheHit()
	return title, true
}

// Set stores the title for the URL. Failures are logged and dropped.
func (c *TitleCache) Set(ctx context.Context, url, title string) {
	if c == nil {
		return
	}

	if err := c.client.Set(ctx, titleKey(url), title, c.ttl); err != nil {
		c.metrics.RecordTitleCacheError()
		c.logger.Warn("Title cache store failed", zap.String("url", url), zap.Error(err))
	}
}
