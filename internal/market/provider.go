package market

import (
	"context"
	"time"
)

// Provider is the market-data capability the accessor depends on.
// Production binds a network client; tests bind a mock of the same
// interface.
//
//go:generate mockgen -package=market_test -destination=mock_provider_test.go -source=provider.go Provider
type Provider interface {
	// GetInfo returns the company record for a fully qualified symbol
	// (ticker plus market suffix). ErrNotFound when the provider has no
	// record for the symbol.
	GetInfo(ctx context.Context, symbol string) (StockInfo, error)
	// GetCurrent returns the latest traded price. ErrNoData when the
	// provider returns an empty result for a known symbol.
	GetCurrent(ctx context.Context, symbol string) (float64, error)
	// GetHistory returns daily price points in [start, end]. Ordering of
	// the returned slice is unspecified; the accessor normalizes it.
	GetHistory(ctx context.Context, symbol string, start, end time.Time) ([]PricePoint, error)
}
