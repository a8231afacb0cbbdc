package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"stocknotes/internal/config"
	"stocknotes/internal/httpx"
	"stocknotes/internal/market"
	"stocknotes/internal/market/cache"
	"stocknotes/internal/market/ratelimit"
	"stocknotes/internal/market/yahoo"
	"stocknotes/internal/notes"
	"stocknotes/internal/returns"
)

// row is one looked-up watchlist entry.
type row struct {
	Ticker   string   `json:"ticker"`
	Name     string   `json:"name,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	OneMonth *float64 `json:"one_month,omitempty"`
	YTD      *float64 `json:"ytd,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func main() {
	var tickersCSV string
	var dataFile string
	var configPath string
	var timeout int
	var withPrices bool
	var withReturns bool

	flag.StringVar(&tickersCSV, "tickers", getenv("TICKERS", ""), "comma-separated tickers; empty means the watchlist file")
	flag.StringVar(&dataFile, "data", getenv("NOTES_DATA_FILE", ""), "watchlist JSON file (default: last used)")
	flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.json (optional)")
	flag.IntVar(&timeout, "timeout", getenvInt("REQUEST_TIMEOUT_SEC", 15), "request timeout seconds")
	flag.BoolVar(&withPrices, "prices", true, "include current prices")
	flag.BoolVar(&withReturns, "returns", false, "include 1-month and YTD returns")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if timeout != 0 {
		cfg.Server.RequestTimeoutSec = timeout
	}
	if dataFile == "" {
		dataFile = cfg.Notes.DataFile
	}

	tickers := splitCSV(tickersCSV)
	var list *notes.Watchlist
	if len(tickers) == 0 {
		list, err = notes.Load(dataFile)
		if err != nil {
			log.Fatalf("watchlist: %v", err)
		}
		tickers = list.Tickers
	}
	if len(tickers) == 0 {
		log.Fatal("no tickers: pass -tickers or add some to the watchlist")
	}

	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)
	yc, err := yahoo.NewClient(
		yahoo.WithBaseURL(cfg.Yahoo.Endpoint),
		yahoo.WithHTTPClient(httpClient),
	)
	if err != nil {
		log.Fatalf("yahoo client: %v", err)
	}
	var p market.Provider = yc
	if cfg.Yahoo.MaxRequestsPerMinute > 0 {
		rate := float64(cfg.Yahoo.MaxRequestsPerMinute) / 60.0
		burst := cfg.Yahoo.Burst
		if burst <= 0 {
			burst = 1
		}
		p = &ratelimit.TokenBucketProvider{P: p, TB: ratelimit.NewTokenBucket(rate, burst)}
	} else if cfg.Yahoo.MinRequestIntervalSec > 0 {
		p = &ratelimit.MinInterval{P: p, Interval: time.Duration(cfg.Yahoo.MinRequestIntervalSec) * time.Second}
	}
	if cfg.Yahoo.CacheTTLSeconds > 0 {
		p = &cache.Provider{P: p, TTL: time.Duration(cfg.Yahoo.CacheTTLSeconds) * time.Second, MaxItems: cfg.Yahoo.CacheMaxItems}
	}
	accessor := market.NewAccessor(p)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.RequestTimeoutSec)*time.Second*time.Duration(len(tickers)))
	defer cancel()

	rows := make([]row, 0, len(tickers))
	for _, t := range tickers {
		rows = append(rows, lookupOne(ctx, accessor, t, withPrices, withReturns))
	}

	b, _ := json.MarshalIndent(struct {
		Rows []row `json:"rows"`
	}{Rows: rows}, "", "  ")
	fmt.Println(string(b))

	if list != nil {
		if err := notes.SaveLastUsed(list.Path); err != nil {
			log.Printf("save last-used pointer: %v", err)
		}
	}
}

func lookupOne(ctx context.Context, a *market.Accessor, ticker string, withPrices, withReturns bool) row {
	out := row{Ticker: strings.ToUpper(strings.TrimSpace(ticker))}

	name, err := a.ResolveCompanyName(ctx, ticker)
	switch {
	case err == nil:
		out.Name = name
	case errors.Is(err, market.ErrNotFound):
		out.Error = "not found"
		return out
	default:
		out.Error = err.Error()
		return out
	}

	if withPrices {
		if price, err := a.CurrentPrice(ctx, ticker); err == nil {
			out.Price = &price
		} else if !errors.Is(err, market.ErrNoData) {
			out.Error = err.Error()
			return out
		}
	}

	if withReturns {
		now := time.Now().UTC()
		moStart, moEnd := returns.OneMonthWindow(now)
		oneMonth, err := a.HistoricalPrices(ctx, ticker, moStart, moEnd)
		if err != nil {
			out.Error = err.Error()
			return out
		}
		ytdStart, ytdEnd := returns.YTDWindow(now)
		ytd, err := a.HistoricalPrices(ctx, ticker, ytdStart, ytdEnd)
		if err != nil {
			out.Error = err.Error()
			return out
		}
		sum := returns.Compute(oneMonth, ytd)
		out.OneMonth = sum.OneMonth
		out.YTD = sum.YTD
	}
	return out
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var x int
		_, _ = fmt.Sscanf(v, "%d", &x)
		if x != 0 {
			return x
		}
	}
	return def
}
