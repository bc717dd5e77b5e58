// Package leaderboard ranks donors and caches the ranking in local storage.
package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"donationScope/internal/chain"
	"donationScope/internal/fallback"
	"donationScope/internal/indexer"
	"donationScope/internal/model"
	"donationScope/internal/storage"
)

// DefaultTTL is how long a cached leaderboard is served without touching the chain.
const DefaultTTL = 5 * time.Minute

// Renderer receives the ranked leaderboard.
type Renderer interface {
	RenderLeaderboard(entries []model.LeaderboardEntry)
}

// CacheKey is the storage key of a contract's leaderboard.
func CacheKey(chainName, contract string) string {
	return fmt.Sprintf("donations-%s-%s", chainName, contract)
}

// Options configures a Cache.
type Options struct {
	Chain           string
	Contract        string
	DeploymentBlock uint64
	TTL             time.Duration
	Now             func() time.Time
}

// Cache serves the leaderboard from storage while fresh and rebuilds it from
// Donation logs otherwise.
type Cache struct {
	kv       storage.KV
	pool     *chain.Pool
	scanner  *indexer.Scanner
	renderer Renderer
	logger   *zap.Logger

	key             string
	deploymentBlock uint64
	ttl             time.Duration
	now             func() time.Time
}

func New(kv storage.KV, pool *chain.Pool, scanner *indexer.Scanner, opts Options, renderer Renderer, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache{
		kv:              kv,
		pool:            pool,
		scanner:         scanner,
		renderer:        renderer,
		logger:          logger,
		key:             CacheKey(opts.Chain, opts.Contract),
		deploymentBlock: opts.DeploymentBlock,
		ttl:             opts.TTL,
		now:             opts.Now,
	}
}

// Key returns the storage key used by this cache.
func (c *Cache) Key() string {
	return c.key
}

// Fetch returns the ranked leaderboard and renders it. On RPC failure nothing is
// rendered and the previous leaderboard stays on screen.
func (c *Cache) Fetch(ctx context.Context) ([]model.LeaderboardEntry, error) {
	if entries, ok := c.cached(ctx); ok {
		c.render(entries)
		return entries, nil
	}

	steps := []fallback.Step[[]model.LeaderboardEntry]{
		{Name: "donationLogs", Run: c.scanActive},
		{Name: "fallback.donationLogs", Run: c.scanFallback},
	}
	entries, source, err := fallback.FirstSuccess(ctx, c.logger, steps)
	if err != nil {
		c.logger.Error("fetch donations failed", zap.Error(err))
		return nil, fmt.Errorf("fetch donations: %w", err)
	}

	c.store(ctx, entries)
	c.render(entries)
	c.logger.Info("leaderboard rebuilt", zap.String("source", source), zap.Int("donors", len(entries)))
	return entries, nil
}

// Invalidate drops the cached leaderboard so the next Fetch rescans.
func (c *Cache) Invalidate(ctx context.Context) error {
	if err := c.kv.Delete(ctx, c.key); err != nil {
		return fmt.Errorf("invalidate %s: %w", c.key, err)
	}
	return nil
}

func (c *Cache) cached(ctx context.Context) ([]model.LeaderboardEntry, bool) {
	raw, ok, err := c.kv.Get(ctx, c.key)
	if err != nil {
		c.logger.Warn("read leaderboard cache failed", zap.String("key", c.key), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var record model.LeaderboardCacheRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		c.logger.Warn("ignore corrupt leaderboard cache", zap.String("key", c.key), zap.Error(err))
		return nil, false
	}

	age := c.now().UnixMilli() - record.Timestamp
	if age >= c.ttl.Milliseconds() {
		return nil, false
	}
	if record.Data == nil {
		record.Data = []model.LeaderboardEntry{}
	}
	return record.Data, true
}

func (c *Cache) store(ctx context.Context, entries []model.LeaderboardEntry) {
	data, err := json.Marshal(model.LeaderboardCacheRecord{Data: entries, Timestamp: c.now().UnixMilli()})
	if err != nil {
		c.logger.Warn("encode leaderboard cache failed", zap.Error(err))
		return
	}
	if err := c.kv.Set(ctx, c.key, string(data)); err != nil {
		c.logger.Warn("write leaderboard cache failed", zap.String("key", c.key), zap.Error(err))
	}
}

func (c *Cache) render(entries []model.LeaderboardEntry) {
	if c.renderer != nil {
		c.renderer.RenderLeaderboard(entries)
	}
}

func (c *Cache) scanActive(ctx context.Context) ([]model.LeaderboardEntry, error) {
	backend, err := c.pool.Active(ctx)
	if err != nil {
		return nil, err
	}
	return c.scan(ctx, backend)
}

func (c *Cache) scanFallback(ctx context.Context) ([]model.LeaderboardEntry, error) {
	backend, switched, err := c.pool.SwitchToFallback(ctx)
	if !switched {
		return nil, fallback.ErrSkip
	}
	if err != nil {
		return nil, err
	}
	return c.scan(ctx, backend)
}

func (c *Cache) scan(ctx context.Context, source indexer.LogSource) ([]model.LeaderboardEntry, error) {
	result, err := c.scanner.ScanToLatest(ctx, source, c.deploymentBlock)
	if err != nil {
		return nil, err
	}
	return Aggregate(result.Events), nil
}
