package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"crm-insights/internal/common/logger"
	"crm-insights/internal/common/metrics"
	"crm-insights/internal/models"
)

// SegmentCache memoizes revenue-by-segment rollups per tenant and period.
// Redis failures degrade to a miss.
type SegmentCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewSegmentCache(client *redis.Client, ttl time.Duration, log logger.Logger) *SegmentCache {
	return &SegmentCache{client: client, ttl: ttl, logger: log}
}

func segmentKey(businessID string, tf models.Timeframe, r models.DateRange) string {
	if tf == "" {
		tf = models.TimeframeThisMonth
	}
	return fmt.Sprintf("insights:segments:%s:%s:%s:%s", businessID, tf, r.StartDate(), r.EndDate())
}

// Get returns the cached rollup and whether it was found.
func (c *SegmentCache) Get(ctx context.Context, businessID string, tf models.Timeframe, r models.DateRange) ([]models.SegmentRevenue, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, segmentKey(businessID, tf, r)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.SegmentCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		metrics.SegmentCacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("segment cache read failed", map[string]interface{}{
			"businessId": businessID,
			"error":      err.Error(),
		})
		return nil, false
	}

	var out []models.SegmentRevenue
	if err := json.Unmarshal(raw, &out); err != nil {
		metrics.SegmentCacheLookups.WithLabelValues("error").Inc()
		return nil, false
	}
	metrics.SegmentCacheLookups.WithLabelValues("hit").Inc()
	return out, true
}

// Set stores the rollup for the configured TTL.
func (c *SegmentCache) Set(ctx context.Context, businessID string, tf models.Timeframe, r models.DateRange, rows []models.SegmentRevenue) {
	if c == nil || c.client == nil || c.ttl <= 0 {
		return
	}

	raw, err := json.Marshal(rows)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, segmentKey(businessID, tf, r), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("segment cache write failed", map[string]interface{}{
			"businessId": businessID,
			"error":      err.Error(),
		})
	}
}
