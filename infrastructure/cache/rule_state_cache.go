package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"socialhub/infrastructure/logger"
)

// IRuleState holds the rule engine's evaluation state that must be shared
// across instances: which feed events were already consumed, and the last
// observed value of each engagement metric (for threshold-crossing
// detection).
type IRuleState interface {
	// MarkEventSeen records an event id for a rule; returns true when this
	// caller was first (SETNX semantics).
	MarkEventSeen(ctx context.Context, ruleID, eventID string) (bool, error)
	// LastMetricValue returns the previously observed value, or ok=false the
	// first time a metric is seen.
	LastMetricValue(ctx context.Context, ruleID, account, metric string) (float64, bool, error)
	SetMetricValue(ctx context.Context, ruleID, account, metric string, value float64) error
}

const (
	seenTTL   = 7 * 24 * time.Hour
	metricTTL = 30 * 24 * time.Hour
)

// RuleStateCache is the Redis implementation. A nil client falls back to
// process-local maps, which is correct for a single instance and the best
// available answer when Redis is down.
type RuleStateCache struct {
	client *redis.Client

	mu          sync.Mutex
	localSeen   map[string]struct{}
	localMetric map[string]float64
}

func NewRuleStateCache(client *redis.Client) IRuleState {
	return &RuleStateCache{
		client:      client,
		localSeen:   make(map[string]struct{}),
		localMetric: make(map[string]float64),
	}
}

func seenKey(ruleID, eventID string) string {
	return fmt.Sprintf("rulestate:seen:%s:%s", ruleID, eventID)
}

func metricKey(ruleID, account, metric string) string {
	return fmt.Sprintf("rulestate:metric:%s:%s:%s", ruleID, account, metric)
}

func (c *RuleStateCache) MarkEventSeen(ctx context.Context, ruleID, eventID string) (bool, error) {
	key := seenKey(ruleID, eventID)
	if c.client == nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.localSeen[key]; ok {
			return false, nil
		}
		c.localSeen[key] = struct{}{}
		return true, nil
	}
	first, err := c.client.SetNX(ctx, key, 1, seenTTL).Result()
	if err != nil {
		logger.GetLogger().WithField("key", key).WithField("error", err).Warn("redis SETNX failed")
		return false, err
	}
	return first, nil
}

func (c *RuleStateCache) LastMetricValue(ctx context.Context, ruleID, account, metric string) (float64, bool, error) {
	key := metricKey(ruleID, account, metric)
	if c.client == nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		v, ok := c.localMetric[key]
		return v, ok, nil
	}
	v, err := c.client.Get(ctx, key).Float64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func (c *RuleStateCache) SetMetricValue(ctx context.Context, ruleID, account, metric string, value float64) error {
	key := metricKey(ruleID, account, metric)
	if c.client == nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.localMetric[key] = value
		return nil
	}
	return c.client.Set(ctx, key, value, metricTTL).Err()
}
