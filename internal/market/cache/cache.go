package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"stocknotes/internal/market"
)

// entry stores one cached value with expiry.
type entry struct {
	expiresAt time.Time
	value     any
}

// Provider caches lookups per key for a TTL. Concurrent misses for the
// same key are coalesced so only one upstream call is in flight.
// Errors are never cached.
type Provider struct {
	P        market.Provider
	TTL      time.Duration
	MaxItems int

	mu    sync.RWMutex
	items map[string]entry
	sf    singleflight.Group
}

func (c *Provider) GetInfo(ctx context.Context, symbol string) (market.StockInfo, error) {
	v, err := c.lookup(ctx, "info:"+symbol, func(ctx context.Context) (any, error) {
		return c.P.GetInfo(ctx, symbol)
	})
	if err != nil {
		return market.StockInfo{}, err
	}
	return v.(market.StockInfo), nil
}

func (c *Provider) GetCurrent(ctx context.Context, symbol string) (float64, error) {
	v, err := c.lookup(ctx, "current:"+symbol, func(ctx context.Context) (any, error) {
		return c.P.GetCurrent(ctx, symbol)
	})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

func (c *Provider) GetHistory(ctx context.Context, symbol string, start, end time.Time) ([]market.PricePoint, error) {
	key := fmt.Sprintf("history:%s:%d:%d", symbol, start.Unix(), end.Unix())
	v, err := c.lookup(ctx, key, func(ctx context.Context) (any, error) {
		return c.P.GetHistory(ctx, symbol, start, end)
	})
	if err != nil {
		return nil, err
	}
	return v.([]market.PricePoint), nil
}

// lookup returns the cached value for key or fetches it once.
func (c *Provider) lookup(ctx context.Context, key string, fetch func(context.Context) (any, error)) (any, error) {
	if c.TTL <= 0 {
		return fetch(ctx)
	}

	now := time.Now()
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if ok && now.Before(e.expiresAt) {
		return e.value, nil
	}

	v, err, _ := c.sf.Do(key, func() (any, error) {
		// Double check: another caller may have refreshed while we queued.
		c.mu.RLock()
		e, ok := c.items[key]
		c.mu.RUnlock()
		if ok && time.Now().Before(e.expiresAt) {
			return e.value, nil
		}
		val, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.store(key, val)
		return val, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (c *Provider) store(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = make(map[string]entry)
	}
	c.items[key] = entry{expiresAt: time.Now().Add(c.TTL), value: value}

	// best-effort cap cache size: drop expired first, then arbitrary keys
	if c.MaxItems > 0 && len(c.items) > c.MaxItems {
		now := time.Now()
		for k, v := range c.items {
			if now.After(v.expiresAt) {
				delete(c.items, k)
			}
			if len(c.items) <= c.MaxItems {
				break
			}
		}
		for k := range c.items {
			if len(c.items) <= c.MaxItems {
				break
			}
			delete(c.items, k)
		}
	}
}
