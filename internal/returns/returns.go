package returns

import (
	"time"

	"stocknotes/internal/market"
)

// Summary carries window returns as fractions (0.05 means 5%). A nil
// field means the window had fewer than two observations, so no return
// can be computed.
type Summary struct {
	OneMonth *float64 `json:"one_month"`
	YTD      *float64 `json:"ytd"`
}

// Simple computes the simple return over a chronologically ordered close
// series: (last - first) / first. Returns nil when fewer than two points
// are available or the first close is zero.
func Simple(points []market.PricePoint) *float64 {
	if len(points) < 2 {
		return nil
	}
	first := points[0].Price
	last := points[len(points)-1].Price
	if first == 0 {
		return nil
	}
	r := (last - first) / first
	return &r
}

// Window filters an ordered series to points with dates in [start, end].
func Window(points []market.PricePoint, start, end time.Time) []market.PricePoint {
	out := make([]market.PricePoint, 0, len(points))
	for _, p := range points {
		if p.Date.Before(start) || p.Date.After(end) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// OneMonthWindow returns the [start, end] bounds of the trailing month.
func OneMonthWindow(now time.Time) (time.Time, time.Time) {
	return now.AddDate(0, -1, 0), now
}

// YTDWindow returns the [start, end] bounds of the year to date.
func YTDWindow(now time.Time) (time.Time, time.Time) {
	return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), now
}

// Compute derives one-month and year-to-date returns from a full YTD
// series plus a trailing-month series, matching what callers fetch.
func Compute(oneMonth, ytd []market.PricePoint) Summary {
	return Summary{
		OneMonth: Simple(oneMonth),
		YTD:      Simple(ytd),
	}
}
