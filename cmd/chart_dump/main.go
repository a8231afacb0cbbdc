package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"stocknotes/internal/config"
)

// chart_dump fetches raw chart responses for a set of tickers and writes
// them to one JSON file, for inspecting provider payloads offline.

type httpStatusErr struct {
	code int
	body string
}

func (e *httpStatusErr) Error() string { return fmt.Sprintf("http %d: %s", e.code, e.body) }

func main() {
	var (
		tickersCSV  string
		outPath     string
		cfgPath     string
		rangeArg    string
		interval    string
		concurrency int
		timeoutSec  int
		maxRetries  int
	)
	flag.StringVar(&tickersCSV, "tickers", "AAPL", "comma-separated tickers to dump")
	flag.StringVar(&outPath, "out", "chart_dump.json", "output JSON file path")
	flag.StringVar(&cfgPath, "config", "", "path to config.json (optional)")
	flag.StringVar(&rangeArg, "range", "1mo", "chart range (1d, 5d, 1mo, ytd, 1y, ...)")
	flag.StringVar(&interval, "interval", "1d", "bar interval")
	flag.IntVar(&concurrency, "concurrency", 2, "number of parallel requests")
	flag.IntVar(&timeoutSec, "timeout", 20, "HTTP timeout seconds")
	flag.IntVar(&maxRetries, "retries", 3, "max retries on 429/5xx")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	endpoint := cfg.Yahoo.Endpoint
	if endpoint == "" {
		endpoint = "https://query1.finance.yahoo.com"
	}

	tickers := splitCSV(tickersCSV)
	if len(tickers) == 0 {
		log.Fatal("no tickers provided")
	}
	log.Printf("tickers: %d", len(tickers))

	hc := &http.Client{Timeout: time.Duration(timeoutSec) * time.Second}

	outFile, err := os.Create(outPath)
	if err != nil {
		log.Fatalf("create out: %v", err)
	}
	defer outFile.Close()
	bw := bufio.NewWriterSize(outFile, 1<<20)
	defer bw.Flush()

	_, _ = bw.WriteString("{")
	first := true
	var writeMu sync.Mutex

	doReq := func(ctx context.Context, ticker string) (json.RawMessage, error) {
		u := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=%s",
			endpoint, url.PathEscape(ticker), url.QueryEscape(rangeArg), url.QueryEscape(interval))
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "stock-notes/1.0")
		resp, err := hc.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
			return nil, &httpStatusErr{code: resp.StatusCode, body: string(b)}
		}
		var raw json.RawMessage
		dec := json.NewDecoder(resp.Body)
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		return raw, nil
	}

	fetch := func(ctx context.Context, ticker string) (json.RawMessage, error) {
		// retry loop for 429/5xx
		attempt := 0
		for {
			raw, err := doReq(ctx, ticker)
			if err == nil {
				return raw, nil
			}
			var hs *httpStatusErr
			if errors.As(err, &hs) {
				if hs.code == 404 {
					log.Printf("skip unknown ticker: %s", ticker)
					return nil, nil
				}
				if hs.code == 429 || (hs.code >= 500 && hs.code < 600) {
					if attempt < maxRetries {
						back := time.Duration(250*(1<<attempt)) * time.Millisecond
						time.Sleep(back)
						attempt++
						continue
					}
				}
			}
			return nil, err
		}
	}

	jobs := make(chan string, concurrency*2)
	wg := sync.WaitGroup{}
	worker := func() {
		defer wg.Done()
		for t := range jobs {
			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
			raw, err := fetch(ctx, t)
			cancel()
			if err != nil {
				log.Printf("%s error: %v", t, err)
				continue
			}
			if raw == nil {
				continue
			}
			key, _ := json.Marshal(t)
			writeMu.Lock()
			if !first {
				_, _ = bw.WriteString(",")
			} else {
				first = false
			}
			_, _ = bw.Write(key)
			_, _ = bw.WriteString(":")
			_, _ = bw.Write(raw)
			writeMu.Unlock()
		}
	}

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go worker()
	}
	for _, t := range tickers {
		jobs <- t
	}
	close(jobs)
	wg.Wait()

	_, _ = bw.WriteString("}")
	if err := bw.Flush(); err != nil {
		log.Fatalf("flush: %v", err)
	}
	log.Printf("done: wrote %s", outPath)
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
