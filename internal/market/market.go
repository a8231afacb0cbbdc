package market

import (
	"fmt"
	"strings"
	"time"
)

// Market is a closed set of supported exchanges. Tickers are qualified
// with the exchange suffix before they reach the provider, so invalid
// markets never leak into upstream calls.
type Market string

const (
	MarketSTO Market = "STO" // Stockholm
	MarketUSA Market = "USA"
	MarketITA Market = "ITA" // Milan
	MarketFRA Market = "FRA" // Paris
)

// suffixes maps each market to the ticker suffix the provider expects.
var suffixes = map[Market]string{
	MarketSTO: ".ST",
	MarketUSA: "",
	MarketITA: ".MI",
	MarketFRA: ".PA",
}

// Suffix returns the provider ticker suffix for the market.
func (m Market) Suffix() string { return suffixes[m] }

// Valid reports whether m is a member of the supported set.
func (m Market) Valid() bool {
	_, ok := suffixes[m]
	return ok
}

// Markets returns all supported markets in name-resolution probe order.
func Markets() []Market {
	return []Market{MarketSTO, MarketUSA, MarketITA, MarketFRA}
}

// ParseMarket validates a market name at the input boundary.
func ParseMarket(s string) (Market, error) {
	m := Market(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown market %q", s)
	}
	return m, nil
}

// PricePoint is one (date, price) observation in a historical series.
// Dates are UTC midnight; within one result no two points share a date.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// StockInfo is the transient read model for a single ticker.
// It is recomputed on every call and never persisted.
type StockInfo struct {
	Ticker string  `json:"ticker"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
}
