package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optionchain/config"
	"optionchain/metrics"
	"optionchain/models"
)

type countingFetcher struct {
	calls int
	err   error
}

func (f *countingFetcher) FetchChain(ctx context.Context, symbol, expiry string) (*models.OptionChainResp, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	u := 19550.0
	return &models.OptionChainResp{Records: models.ChainRecords{
		ExpiryDates:     []string{expiry},
		UnderlyingValue: &u,
		Timestamp:       "17-Apr-2026 15:30:00",
		Data:            []models.OptionData{{StrikePrice: 19500}},
	}}, nil
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 4, 17, 10, 0, 0, 0, time.UTC)}
}

const ttl = 30 * time.Second

func TestGetOrFetch_MemoizesWithinTTL(t *testing.T) {
	f := &countingFetcher{}
	clock := newClock()
	reg := metrics.New()
	g := New(f, WithClock(clock.now), WithMetrics(reg))
	ctx := context.Background()

	first, err := g.GetOrFetch(ctx, "NIFTY", "28-Apr-2026", ttl)
	require.NoError(t, err)
	clock.advance(29 * time.Second)
	second, err := g.GetOrFetch(ctx, "NIFTY", "28-Apr-2026", ttl)
	require.NoError(t, err)

	assert.Equal(t, 1, f.calls)
	assert.Same(t, first, second)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.CacheHits.WithLabelValues("memory")))

	clock.advance(time.Second)
	_, err = g.GetOrFetch(ctx, "NIFTY", "28-Apr-2026", ttl)
	require.NoError(t, err)
	assert.Equal(t, 2, f.calls, "entry exactly ttl old must be refetched")
}

func TestGetOrFetch_KeyIncludesExpiry(t *testing.T) {
	f := &countingFetcher{}
	g := New(f, WithClock(newClock().now))
	ctx := context.Background()

	_, err := g.GetOrFetch(ctx, "NIFTY", "28-Apr-2026", ttl)
	require.NoError(t, err)
	_, err = g.GetOrFetch(ctx, "NIFTY", "26-May-2026", ttl)
	require.NoError(t, err)
	_, err = g.GetOrFetch(ctx, "BANKNIFTY", "28-Apr-2026", ttl)
	require.NoError(t, err)

	assert.Equal(t, 3, f.calls)
}

func TestGetOrFetch_FailureLeavesCacheUntouched(t *testing.T) {
	f := &countingFetcher{}
	clock := newClock()
	g := New(f, WithClock(clock.now))
	ctx := context.Background()

	_, err := g.GetOrFetch(ctx, "NIFTY", "28-Apr-2026", ttl)
	require.NoError(t, err)

	clock.advance(time.Minute)
	f.err = errors.New("blocked")
	got, err := g.GetOrFetch(ctx, "NIFTY", "28-Apr-2026", ttl)
	require.Error(t, err)
	assert.Nil(t, got, "stale data must not be served on failure")

	f.err = nil
	_, err = g.GetOrFetch(ctx, "NIFTY", "28-Apr-2026", ttl)
	require.NoError(t, err)
	assert.Equal(t, 3, f.calls)
}

func TestGetOrFetch_FailureIsNotCached(t *testing.T) {
	f := &countingFetcher{err: errors.New("blocked")}
	g := New(f, WithClock(newClock().now))
	ctx := context.Background()

	_, err := g.GetOrFetch(ctx, "NIFTY", "28-Apr-2026", ttl)
	require.Error(t, err)
	_, err = g.GetOrFetch(ctx, "NIFTY", "28-Apr-2026", ttl)
	require.Error(t, err)
	assert.Equal(t, 2, f.calls)
}

func TestInvalidate(t *testing.T) {
	f := &countingFetcher{}
	g := New(f, WithClock(newClock().now))
	ctx := context.Background()

	_, _ = g.GetOrFetch(ctx, "NIFTY", "28-Apr-2026", ttl)
	g.Invalidate("NIFTY", "28-Apr-2026")
	_, _ = g.GetOrFetch(ctx, "NIFTY", "28-Apr-2026", ttl)

	assert.Equal(t, 2, f.calls)
}

func TestGetOrFetch_RedisMissThenStore(t *testing.T) {
	db, mock := redismock.NewClientMock()
	f := &countingFetcher{}
	clock := newClock()
	g := New(f, WithClock(clock.now), WithRedis(config.NewRedisClientFrom(db)))

	want, err := f.FetchChain(context.Background(), "NIFTY", "28-Apr-2026")
	require.NoError(t, err)
	f.calls = 0
	raw, err := encodeEntry(entry{Chain: want, FetchedAt: clock.now()})
	require.NoError(t, err)

	key := "optionchain:NIFTY:28-Apr-2026"
	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, raw, ttl).SetVal("OK")

	got, err := g.GetOrFetch(context.Background(), "NIFTY", "28-Apr-2026", ttl)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, f.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrFetch_RedisHitSkipsUpstream(t *testing.T) {
	db, mock := redismock.NewClientMock()
	f := &countingFetcher{}
	clock := newClock()
	g := New(f, WithClock(clock.now), WithRedis(config.NewRedisClientFrom(db)))

	cached, _ := (&countingFetcher{}).FetchChain(context.Background(), "NIFTY", "28-Apr-2026")
	raw, err := encodeEntry(entry{Chain: cached, FetchedAt: clock.now().Add(-10 * time.Second)})
	require.NoError(t, err)

	mock.ExpectGet("optionchain:NIFTY:28-Apr-2026").SetVal(string(raw))

	got, err := g.GetOrFetch(context.Background(), "NIFTY", "28-Apr-2026", ttl)
	require.NoError(t, err)
	assert.Equal(t, 0, f.calls)
	assert.Equal(t, cached.Records.Timestamp, got.Records.Timestamp)
	assert.NoError(t, mock.ExpectationsWereMet())

	// now served from memory without touching redis
	_, err = g.GetOrFetch(context.Background(), "NIFTY", "28-Apr-2026", ttl)
	require.NoError(t, err)
	assert.Equal(t, 0, f.calls)
}

func TestGetOrFetch_RedisErrorFallsThrough(t *testing.T) {
	db, mock := redismock.NewClientMock()
	f := &countingFetcher{}
	g := New(f, WithClock(newClock().now), WithRedis(config.NewRedisClientFrom(db)))

	key := "optionchain:NIFTY:28-Apr-2026"
	mock.ExpectGet(key).SetErr(errors.New("connection refused"))

	// the write-back is unexpected by the mock and fails; that is only logged
	_, err := g.GetOrFetch(context.Background(), "NIFTY", "28-Apr-2026", ttl)
	require.NoError(t, err)
	assert.Equal(t, 1, f.calls)
}
