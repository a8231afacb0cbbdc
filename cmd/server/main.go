package main

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"stocknotes/internal/config"
	"stocknotes/internal/httpx"
	"stocknotes/internal/market"
	"stocknotes/internal/market/cache"
	"stocknotes/internal/market/ratelimit"
	"stocknotes/internal/market/yahoo"
	"stocknotes/internal/returns"
)

// marketAPI is the accessor surface the handlers need.
type marketAPI interface {
	ResolveCompanyName(ctx context.Context, ticker string) (string, error)
	CurrentPrice(ctx context.Context, ticker string) (float64, error)
	HistoricalPrices(ctx context.Context, ticker string, start, end time.Time) ([]market.PricePoint, error)
}

func main() {
	// Config
	cfgPath := os.Getenv("CONFIG_FILE")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	port := cfg.Server.Port
	timeout := time.Duration(cfg.Server.RequestTimeoutSec) * time.Second

	if !cfg.Yahoo.Enabled {
		log.Fatal("yahoo.enabled=false: no market data provider configured")
	}

	httpClient := httpx.New(timeout)

	yc, err := yahoo.NewClient(
		yahoo.WithBaseURL(cfg.Yahoo.Endpoint),
		yahoo.WithHTTPClient(httpClient),
	)
	if err != nil {
		log.Fatalf("yahoo client: %v", err)
	}

	var p market.Provider = yc
	// Prefer token bucket with burst if RPM is set, otherwise use min-interval
	if cfg.Yahoo.MaxRequestsPerMinute > 0 {
		rate := float64(cfg.Yahoo.MaxRequestsPerMinute) / 60.0
		burst := cfg.Yahoo.Burst
		if burst <= 0 {
			burst = 1
		}
		p = &ratelimit.TokenBucketProvider{P: p, TB: ratelimit.NewTokenBucket(rate, burst)}
	} else if cfg.Yahoo.MinRequestIntervalSec > 0 {
		interval := time.Duration(cfg.Yahoo.MinRequestIntervalSec) * time.Second
		p = &ratelimit.MinInterval{P: p, Interval: interval}
	}
	if cfg.Yahoo.CacheTTLSeconds > 0 {
		p = &cache.Provider{P: p, TTL: time.Duration(cfg.Yahoo.CacheTTLSeconds) * time.Second, MaxItems: cfg.Yahoo.CacheMaxItems}
	}

	a := api{m: market.NewAccessor(p), timeout: timeout}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/api/info", a.handleInfo)
	mux.HandleFunc("/api/price", a.handlePrice)
	mux.HandleFunc("/api/history", a.handleHistory)
	mux.HandleFunc("/api/returns", a.handleReturns)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           withJSONHeaders(withGzip(recoverPanic(limitBody(mux)))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("server listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

type api struct {
	m       marketAPI
	timeout time.Duration
}

type infoResponse struct {
	Ticker string   `json:"ticker"`
	Name   string   `json:"name"`
	Price  *float64 `json:"price,omitempty"`
}

func (a api) handleInfo(w http.ResponseWriter, r *http.Request) {
	ticker, ok := tickerParam(w, r)
	if !ok {
		return
	}
	ctx, cancel := a.requestContext(r)
	defer cancel()

	name, err := a.m.ResolveCompanyName(ctx, ticker)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := infoResponse{Ticker: ticker, Name: name}
	// Price is best-effort; the name alone is a valid answer.
	if price, err := a.m.CurrentPrice(ctx, ticker); err == nil {
		resp.Price = &price
	}
	writeJSON(w, resp)
}

type priceResponse struct {
	Ticker string  `json:"ticker"`
	Price  float64 `json:"price"`
}

func (a api) handlePrice(w http.ResponseWriter, r *http.Request) {
	ticker, ok := tickerParam(w, r)
	if !ok {
		return
	}
	ctx, cancel := a.requestContext(r)
	defer cancel()

	price, err := a.m.CurrentPrice(ctx, ticker)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, priceResponse{Ticker: ticker, Price: price})
}

type historyResponse struct {
	Ticker string              `json:"ticker"`
	Points []market.PricePoint `json:"points"`
}

func (a api) handleHistory(w http.ResponseWriter, r *http.Request) {
	ticker, ok := tickerParam(w, r)
	if !ok {
		return
	}
	start, err := time.Parse("2006-01-02", r.URL.Query().Get("start"))
	if err != nil {
		http.Error(w, "invalid or missing start (want YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	end, err := time.Parse("2006-01-02", r.URL.Query().Get("end"))
	if err != nil {
		http.Error(w, "invalid or missing end (want YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	if end.Before(start) {
		http.Error(w, "end before start", http.StatusBadRequest)
		return
	}
	ctx, cancel := a.requestContext(r)
	defer cancel()

	points, err := a.m.HistoricalPrices(ctx, ticker, start, end)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, historyResponse{Ticker: ticker, Points: points})
}

type returnsResponse struct {
	Ticker string `json:"ticker"`
	returns.Summary
}

func (a api) handleReturns(w http.ResponseWriter, r *http.Request) {
	ticker, ok := tickerParam(w, r)
	if !ok {
		return
	}
	ctx, cancel := a.requestContext(r)
	defer cancel()

	now := time.Now().UTC()
	moStart, moEnd := returns.OneMonthWindow(now)
	oneMonth, err := a.m.HistoricalPrices(ctx, ticker, moStart, moEnd)
	if err != nil {
		writeError(w, err)
		return
	}
	ytdStart, ytdEnd := returns.YTDWindow(now)
	ytd, err := a.m.HistoricalPrices(ctx, ticker, ytdStart, ytdEnd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, returnsResponse{Ticker: ticker, Summary: returns.Compute(oneMonth, ytd)})
}

func (a api) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	timeout := a.timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return context.WithTimeout(r.Context(), timeout)
}

func tickerParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return "", false
	}
	ticker := strings.TrimSpace(r.URL.Query().Get("ticker"))
	if ticker == "" {
		http.Error(w, "missing ticker query param", http.StatusBadRequest)
		return "", false
	}
	return ticker, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// writeError maps accessor errors onto HTTP statuses. Provider failures
// surface as 502 rather than an empty result.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, market.ErrNotFound):
		http.Error(w, "ticker not found", http.StatusNotFound)
	case errors.Is(err, market.ErrNoData):
		http.Error(w, "no data for ticker", http.StatusNotFound)
	case market.IsProviderError(err):
		http.Error(w, err.Error(), http.StatusBadGateway)
	case errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "upstream timeout", http.StatusGatewayTimeout)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func withJSONHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		// Basic CORS for browser usage; adjust as needed.
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withGzip compresses response when client supports gzip.
func withGzip(next http.Handler) http.Handler {
	var gzPool = sync.Pool{New: func() any {
		// Prefer best speed to reduce CPU usage since payloads are JSON
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	}}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz := gzPool.Get().(*gzip.Writer)
		gz.Reset(w)
		defer func() {
			_ = gz.Close()
			gz.Reset(io.Discard)
			gzPool.Put(gz)
		}()
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		gw := gzipResponseWriter{ResponseWriter: w, Writer: gz}
		next.ServeHTTP(gw, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
	return g.Writer.Write(b)
}

// limitBody caps request body size to avoid memory abuse.
func limitBody(next http.Handler) http.Handler {
	const maxBody = 1 << 20 // 1MB
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		}
		next.ServeHTTP(w, r)
	})
}

// recoverPanic protects handlers from panics.
func recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
