package ratelimit

import (
	"context"
	"sync"
	"time"

	"stocknotes/internal/market"
)

// MinInterval wraps a provider and enforces a minimum time between calls.
// Concurrent calls will wait until the interval has elapsed since the last call,
// or return early if the context is canceled. The gate is shared across all
// three lookup methods since they hit the same upstream.
type MinInterval struct {
	P        market.Provider
	Interval time.Duration
	mu       sync.Mutex
	last     time.Time
}

func (m *MinInterval) GetInfo(ctx context.Context, symbol string) (market.StockInfo, error) {
	if err := m.wait(ctx); err != nil {
		return market.StockInfo{}, err
	}
	defer m.mark()
	return m.P.GetInfo(ctx, symbol)
}

func (m *MinInterval) GetCurrent(ctx context.Context, symbol string) (float64, error) {
	if err := m.wait(ctx); err != nil {
		return 0, err
	}
	defer m.mark()
	return m.P.GetCurrent(ctx, symbol)
}

func (m *MinInterval) GetHistory(ctx context.Context, symbol string, start, end time.Time) ([]market.PricePoint, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	defer m.mark()
	return m.P.GetHistory(ctx, symbol, start, end)
}

func (m *MinInterval) wait(ctx context.Context) error {
	if m.Interval <= 0 {
		return nil
	}
	// simple gate: ensure at least Interval since last
	m.mu.Lock()
	wait := time.Until(m.last.Add(m.Interval))
	m.mu.Unlock()
	if wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

func (m *MinInterval) mark() {
	if m.Interval <= 0 {
		return
	}
	m.mu.Lock()
	m.last = time.Now()
	m.mu.Unlock()
}
