// Package cache keeps final query answers in Redis so repeated words skip
// the shard fan-out.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/coordinator"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/metrics"
)

const keyPrefix = "freqsearch:answer:"

// Backend is the key-value store behind the cache. *redis.Client from
// pkg/redis satisfies it.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteMatching(ctx context.Context, pattern string) (int64, error)
}

// AnswerCache stores answers for one (root, capacity) scope. Answers that
// carry shard warnings are never stored.
type AnswerCache struct {
	backend Backend
	scope   string
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a cache scoped to the shard root and buffer capacity, since
// either one changes the answer for the same word. m may be nil.
func New(backend Backend, root string, capacity int, ttl time.Duration, m *metrics.Metrics) *AnswerCache {
	sum := sha256.Sum256([]byte(root + "|" + strconv.Itoa(capacity)))
	return &AnswerCache{
		backend: backend,
		scope:   hex.EncodeToString(sum[:8]),
		ttl:     ttl,
		metrics: m,
		logger:  logger.WithComponent("answer-cache"),
	}
}

// Get returns the cached answer for word. Backend and decode failures are
// logged and treated as misses.
func (c *AnswerCache) Get(ctx context.Context, word string) (*coordinator.Answer, bool) {
	key := c.key(word)
	data, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache get failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	if !ok {
		c.miss()
		return nil, false
	}
	var ans coordinator.Answer
	if err := json.Unmarshal(data, &ans); err != nil {
		c.logger.Warn("cache entry undecodable", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "word", word)
	return &ans, true
}

// Set stores ans unless it is partial.
func (c *AnswerCache) Set(ctx context.Context, ans *coordinator.Answer) {
	if len(ans.Warnings) > 0 {
		return
	}
	key := c.key(ans.Word)
	data, err := json.Marshal(ans)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached answer for word or computes and stores
// it. Concurrent misses for the same word share one computation. The bool
// reports a cache hit.
func (c *AnswerCache) GetOrCompute(
	ctx context.Context,
	word string,
	compute func(ctx context.Context, word string) (*coordinator.Answer, error),
) (*coordinator.Answer, bool, error) {
	if ans, ok := c.Get(ctx, word); ok {
		return ans, true, nil
	}
	val, err, _ := c.group.Do(c.key(word), func() (interface{}, error) {
		ans, err := compute(ctx, word)
		if err != nil {
			return nil, err
		}
		c.Set(ctx, ans)
		return ans, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*coordinator.Answer), false, nil
}

// Invalidate drops every answer in this cache's scope.
func (c *AnswerCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.backend.DeleteMatching(ctx, keyPrefix+c.scope+":*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating answer cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *AnswerCache) key(word string) string {
	sum := sha256.Sum256([]byte(word))
	return keyPrefix + c.scope + ":" + hex.EncodeToString(sum[:16])
}

func (c *AnswerCache) miss() {
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}
