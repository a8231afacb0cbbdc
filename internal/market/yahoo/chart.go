package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"strconv"
	"time"

	"stocknotes/internal/market"
)

var _ market.Provider = (*Client)(nil)

// chartResponse is the top-level container of the chart endpoint.
type chartResponse struct {
	Chart chartData `json:"chart"`
}

type chartData struct {
	Result []chartResult `json:"result"`
	Error  *apiError     `json:"error"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol             string   `json:"symbol"`
	Currency           string   `json:"currency"`
	LongName           string   `json:"longName"`
	ShortName          string   `json:"shortName"`
	RegularMarketPrice *float64 `json:"regularMarketPrice"`
}

type indicators struct {
	Quote []quote `json:"quote"`
}

type quote struct {
	Close []*float64 `json:"close"`
}

// GetInfo retrieves the company record for a symbol from the chart meta.
func (c *Client) GetInfo(ctx context.Context, symbol string) (market.StockInfo, error) {
	res, err := c.getChart(ctx, symbol, map[string]string{"range": "1d", "interval": "1d"})
	if err != nil {
		return market.StockInfo{}, err
	}
	name := res.Meta.LongName
	if name == "" {
		name = res.Meta.ShortName
	}
	info := market.StockInfo{Ticker: res.Meta.Symbol, Name: name}
	if res.Meta.RegularMarketPrice != nil {
		info.Price = *res.Meta.RegularMarketPrice
	}
	return info, nil
}

// GetCurrent retrieves the latest traded price for a symbol.
func (c *Client) GetCurrent(ctx context.Context, symbol string) (float64, error) {
	res, err := c.getChart(ctx, symbol, map[string]string{"range": "1d", "interval": "1d"})
	if err != nil {
		return 0, err
	}
	if res.Meta.RegularMarketPrice == nil {
		return 0, market.ErrNoData
	}
	return *res.Meta.RegularMarketPrice, nil
}

// GetHistory retrieves the daily close series for [start, end]. Dates are
// normalized to UTC midnight; bars without a close are skipped.
func (c *Client) GetHistory(ctx context.Context, symbol string, start, end time.Time) ([]market.PricePoint, error) {
	res, err := c.getChart(ctx, symbol, map[string]string{
		"interval": "1d",
		"period1":  strconv.FormatInt(start.Unix(), 10),
		// period2 is exclusive upstream; push it past the end day.
		"period2": strconv.FormatInt(end.Add(24*time.Hour).Unix(), 10),
	})
	if err != nil {
		return nil, err
	}

	var closes []*float64
	if len(res.Indicators.Quote) > 0 {
		closes = res.Indicators.Quote[0].Close
	}
	points := make([]market.PricePoint, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		d := time.Unix(ts, 0).UTC()
		points = append(points, market.PricePoint{
			Date:  time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC),
			Price: *closes[i],
		})
	}
	return points, nil
}

// getChart performs one chart request and returns the first result.
func (c *Client) getChart(ctx context.Context, symbol string, params map[string]string) (*chartResult, error) {
	query := maps.Clone(c.query)
	for k, v := range params {
		query.Set(k, v)
	}

	url := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, symbol, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, &market.ProviderError{Op: "chart", Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &market.ProviderError{Op: "chart", Err: fmt.Errorf("performing request: %w", err)}
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		break

	case http.StatusNotFound:
		return nil, market.ErrNotFound

	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, &market.ProviderError{Op: "chart", Err: fmt.Errorf("unauthorized")}

	case http.StatusTooManyRequests:
		return nil, &market.ProviderError{Op: "chart", Err: fmt.Errorf("rate limited")}

	default:
		return nil, &market.ProviderError{Op: "chart", Err: fmt.Errorf("unexpected status code: %d", res.StatusCode)}
	}

	var body chartResponse
	dec := json.NewDecoder(res.Body)
	if err := dec.Decode(&body); err != nil {
		return nil, &market.ProviderError{Op: "chart", Err: fmt.Errorf("decoding chart response: %w", err)}
	}
	if body.Chart.Error != nil {
		if body.Chart.Error.Code == "Not Found" {
			return nil, market.ErrNotFound
		}
		return nil, &market.ProviderError{Op: "chart", Err: fmt.Errorf("api error: code=%q msg=%q", body.Chart.Error.Code, body.Chart.Error.Description)}
	}
	if len(body.Chart.Result) == 0 {
		return nil, market.ErrNotFound
	}
	return &body.Chart.Result[0], nil
}
