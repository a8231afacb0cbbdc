package cache_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"stocknotes/internal/market"
	"stocknotes/internal/market/cache"
)

// countingProvider counts upstream calls and replays canned answers.
type countingProvider struct {
	infoCalls    atomic.Int64
	currentCalls atomic.Int64
	historyCalls atomic.Int64

	info    market.StockInfo
	current float64
	history []market.PricePoint
	err     error
}

func (f *countingProvider) GetInfo(_ context.Context, symbol string) (market.StockInfo, error) {
	f.infoCalls.Add(1)
	return f.info, f.err
}

func (f *countingProvider) GetCurrent(_ context.Context, symbol string) (float64, error) {
	f.currentCalls.Add(1)
	return f.current, f.err
}

func (f *countingProvider) GetHistory(_ context.Context, symbol string, start, end time.Time) ([]market.PricePoint, error) {
	f.historyCalls.Add(1)
	return f.history, f.err
}

func TestCachesWithinTTL(t *testing.T) {
	t.Parallel()

	upstream := &countingProvider{info: market.StockInfo{Ticker: "AAPL", Name: "Apple Inc."}, current: 150.0}
	c := &cache.Provider{P: upstream, TTL: time.Minute}

	for i := 0; i < 3; i++ {
		info, err := c.GetInfo(context.Background(), "AAPL")
		require.NoError(t, err)
		require.Equal(t, "Apple Inc.", info.Name)
	}
	require.Equal(t, int64(1), upstream.infoCalls.Load())

	for i := 0; i < 3; i++ {
		price, err := c.GetCurrent(context.Background(), "AAPL")
		require.NoError(t, err)
		require.Equal(t, 150.0, price)
	}
	require.Equal(t, int64(1), upstream.currentCalls.Load())
}

func TestZeroTTLBypasses(t *testing.T) {
	t.Parallel()

	upstream := &countingProvider{current: 150.0}
	c := &cache.Provider{P: upstream}

	_, err := c.GetCurrent(context.Background(), "AAPL")
	require.NoError(t, err)
	_, err = c.GetCurrent(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, int64(2), upstream.currentCalls.Load())
}

func TestHistoryKeyedByRange(t *testing.T) {
	t.Parallel()

	day := func(d int) time.Time { return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC) }
	upstream := &countingProvider{history: []market.PricePoint{{Date: day(2), Price: 100}}}
	c := &cache.Provider{P: upstream, TTL: time.Minute}

	_, err := c.GetHistory(context.Background(), "AAPL", day(1), day(5))
	require.NoError(t, err)
	_, err = c.GetHistory(context.Background(), "AAPL", day(1), day(5))
	require.NoError(t, err)
	require.Equal(t, int64(1), upstream.historyCalls.Load())

	// A different window is a different key.
	_, err = c.GetHistory(context.Background(), "AAPL", day(1), day(10))
	require.NoError(t, err)
	require.Equal(t, int64(2), upstream.historyCalls.Load())
}

func TestErrorsNotCached(t *testing.T) {
	t.Parallel()

	upstream := &countingProvider{err: &market.ProviderError{Op: "chart", Err: errors.New("boom")}}
	c := &cache.Provider{P: upstream, TTL: time.Minute}

	_, err := c.GetCurrent(context.Background(), "AAPL")
	require.Error(t, err)
	require.True(t, market.IsProviderError(err))

	// The failure is retried, not replayed from cache.
	upstream.err = nil
	upstream.current = 150.0
	price, err := c.GetCurrent(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, 150.0, price)
	require.Equal(t, int64(2), upstream.currentCalls.Load())
}

func TestDistinctSymbolsDistinctEntries(t *testing.T) {
	t.Parallel()

	upstream := &countingProvider{current: 150.0}
	c := &cache.Provider{P: upstream, TTL: time.Minute}

	_, err := c.GetCurrent(context.Background(), "AAPL")
	require.NoError(t, err)
	_, err = c.GetCurrent(context.Background(), "MSFT")
	require.NoError(t, err)
	require.Equal(t, int64(2), upstream.currentCalls.Load())
}
