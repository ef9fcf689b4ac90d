package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"optionchain/config"
	"optionchain/metrics"
	"optionchain/models"
)

type Fetcher interface {
	FetchChain(ctx context.Context, symbol, expiry string) (*models.OptionChainResp, error)
}

type Key struct {
	Symbol string
	Expiry string
}

func (k Key) redisKey() string {
	return "optionchain:" + k.Symbol + ":" + k.Expiry
}

type entry struct {
	Chain     *models.OptionChainResp `json:"chain"`
	FetchedAt time.Time               `json:"fetchedAt"`
}

// Gate memoizes successful fetches per (symbol, expiry). Failures never
// touch the cache, so the next call goes upstream again.
type Gate struct {
	fetcher Fetcher
	now     func() time.Time
	remote  *config.RedisClient
	metrics *metrics.Registry

	mu      sync.Mutex
	entries map[Key]entry
}

type Option func(*Gate)

func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithRedis adds a second tier shared with other processes.
func WithRedis(r *config.RedisClient) Option {
	return func(g *Gate) { g.remote = r }
}

func WithMetrics(m *metrics.Registry) Option {
	return func(g *Gate) { g.metrics = m }
}

func New(f Fetcher, opts ...Option) *Gate {
	g := &Gate{
		fetcher: f,
		now:     time.Now,
		entries: make(map[Key]entry),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GetOrFetch returns the cached chain when it is younger than ttl, otherwise
// fetches and stores it. The lock is held across the fetch so concurrent
// callers for a stale key produce a single upstream request.
func (g *Gate) GetOrFetch(ctx context.Context, symbol, expiry string, ttl time.Duration) (*models.OptionChainResp, error) {
	key := Key{Symbol: symbol, Expiry: expiry}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if e, ok := g.entries[key]; ok && now.Sub(e.FetchedAt) < ttl {
		g.metrics.CacheHit("memory")
		return e.Chain, nil
	}
	g.metrics.CacheMiss("memory")

	if e, ok := g.loadRemote(ctx, key); ok && now.Sub(e.FetchedAt) < ttl {
		g.metrics.CacheHit("redis")
		g.entries[key] = e
		return e.Chain, nil
	}

	chain, err := g.fetcher.FetchChain(ctx, symbol, expiry)
	if err != nil {
		return nil, err
	}
	e := entry{Chain: chain, FetchedAt: now}
	g.entries[key] = e
	g.storeRemote(ctx, key, e, ttl)
	return chain, nil
}

// Invalidate drops the in-memory entry for a key.
func (g *Gate) Invalidate(symbol, expiry string) {
	g.mu.Lock()
	delete(g.entries, Key{Symbol: symbol, Expiry: expiry})
	g.mu.Unlock()
}

func (g *Gate) loadRemote(ctx context.Context, key Key) (entry, bool) {
	if g.remote == nil {
		return entry{}, false
	}
	raw, found, err := g.remote.GetVal(ctx, key.redisKey())
	if err != nil {
		log.Warn().Err(err).Str("key", key.redisKey()).Msg("redis cache read failed")
		return entry{}, false
	}
	if !found {
		g.metrics.CacheMiss("redis")
		return entry{}, false
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil || e.Chain == nil {
		log.Warn().Err(err).Str("key", key.redisKey()).Msg("discarding unreadable redis cache entry")
		return entry{}, false
	}
	return e, true
}

func (g *Gate) storeRemote(ctx context.Context, key Key, e entry, ttl time.Duration) {
	if g.remote == nil {
		return
	}
	raw, err := encodeEntry(e)
	if err != nil {
		log.Warn().Err(err).Msg("encoding cache entry")
		return
	}
	if err := g.remote.SetVal(ctx, key.redisKey(), raw, ttl); err != nil {
		log.Warn().Err(err).Str("key", key.redisKey()).Msg("redis cache write failed")
	}
}

func encodeEntry(e entry) ([]byte, error) {
	return json.Marshal(e)
}
