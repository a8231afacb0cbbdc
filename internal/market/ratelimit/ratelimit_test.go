package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"stocknotes/internal/market"
	"stocknotes/internal/market/ratelimit"
)

type stubProvider struct{ calls int }

func (s *stubProvider) GetInfo(_ context.Context, symbol string) (market.StockInfo, error) {
	s.calls++
	return market.StockInfo{Ticker: symbol}, nil
}

func (s *stubProvider) GetCurrent(_ context.Context, symbol string) (float64, error) {
	s.calls++
	return 150.0, nil
}

func (s *stubProvider) GetHistory(_ context.Context, symbol string, start, end time.Time) ([]market.PricePoint, error) {
	s.calls++
	return nil, nil
}

func TestMinInterval_ZeroPassesThrough(t *testing.T) {
	t.Parallel()

	up := &stubProvider{}
	m := &ratelimit.MinInterval{P: up}

	_, err := m.GetCurrent(context.Background(), "AAPL")
	require.NoError(t, err)
	_, err = m.GetCurrent(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, 2, up.calls)
}

func TestMinInterval_CanceledContext(t *testing.T) {
	t.Parallel()

	up := &stubProvider{}
	m := &ratelimit.MinInterval{P: up, Interval: time.Hour}

	// First call goes straight through and arms the gate.
	_, err := m.GetCurrent(context.Background(), "AAPL")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.GetCurrent(ctx, "AAPL")
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, up.calls)
}

func TestTokenBucket_BurstThenRefill(t *testing.T) {
	t.Parallel()

	up := &stubProvider{}
	// High rate so the refill wait stays in the microsecond range.
	tb := ratelimit.NewTokenBucket(10000, 2)
	p := &ratelimit.TokenBucketProvider{P: up, TB: tb}

	for i := 0; i < 5; i++ {
		_, err := p.GetCurrent(context.Background(), "AAPL")
		require.NoError(t, err)
	}
	require.Equal(t, 5, up.calls)
}

func TestTokenBucket_CanceledContext(t *testing.T) {
	t.Parallel()

	up := &stubProvider{}
	// Rate near zero: after the single burst token the bucket never refills.
	tb := ratelimit.NewTokenBucket(0, 1)
	p := &ratelimit.TokenBucketProvider{P: up, TB: tb}

	_, err := p.GetCurrent(context.Background(), "AAPL")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = p.GetInfo(ctx, "AAPL")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, up.calls)
}
