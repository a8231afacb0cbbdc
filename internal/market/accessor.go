package market

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Accessor answers ticker lookups against a Provider. It holds no
// cross-call state, so one Accessor may be shared by concurrent callers.
type Accessor struct {
	p       Provider
	markets []Market
}

// AccessorOption configures an Accessor.
type AccessorOption func(*Accessor)

// WithMarkets restricts name resolution to the given markets, probed in
// the given order.
func WithMarkets(markets ...Market) AccessorOption {
	return func(a *Accessor) {
		if len(markets) > 0 {
			a.markets = markets
		}
	}
}

// NewAccessor creates an Accessor over p. By default name resolution
// probes every supported market.
func NewAccessor(p Provider, opts ...AccessorOption) *Accessor {
	a := &Accessor{p: p, markets: Markets()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ResolveCompanyName looks up the display name for a ticker, probing each
// market suffix in order and returning the first non-empty name. The
// ticker alone does not identify the exchange, hence the probing.
// ErrNotFound when every market misses; provider failures surface
// immediately.
func (a *Accessor) ResolveCompanyName(ctx context.Context, ticker string) (string, error) {
	t, err := normalizeTicker(ticker)
	if err != nil {
		return "", err
	}
	for _, m := range a.markets {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		info, err := a.p.GetInfo(ctx, t+m.Suffix())
		if err != nil {
			if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNoData) {
				continue
			}
			return "", err
		}
		if info.Name != "" {
			return info.Name, nil
		}
	}
	return "", ErrNotFound
}

// CurrentPrice looks up the latest traded price for a ticker.
func (a *Accessor) CurrentPrice(ctx context.Context, ticker string) (float64, error) {
	t, err := normalizeTicker(ticker)
	if err != nil {
		return 0, err
	}
	return a.p.GetCurrent(ctx, t)
}

// HistoricalPrices returns the daily price series for [start, end],
// inclusive on both ends. The result is strictly ascending by date with
// duplicate dates collapsed, regardless of provider response ordering.
// A valid ticker with no data in range yields an empty slice, not an
// error.
func (a *Accessor) HistoricalPrices(ctx context.Context, ticker string, start, end time.Time) ([]PricePoint, error) {
	t, err := normalizeTicker(ticker)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end %s before start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	points, err := a.p.GetHistory(ctx, t, start, end)
	if err != nil {
		return nil, err
	}

	out := make([]PricePoint, 0, len(points))
	for _, p := range points {
		if p.Date.Before(start) || p.Date.After(end) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	// Collapse duplicate dates, keeping the first occurrence.
	dedup := out[:0]
	for _, p := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Date.Equal(p.Date) {
			continue
		}
		dedup = append(dedup, p)
	}
	return dedup, nil
}

func normalizeTicker(ticker string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if t == "" {
		return "", fmt.Errorf("ticker must not be empty")
	}
	return t, nil
}
