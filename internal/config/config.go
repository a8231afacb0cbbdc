package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

type Server struct {
	Port              string `json:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec"`
}

type Yahoo struct {
	Enabled               bool   `json:"enabled"`
	Endpoint              string `json:"endpoint"`
	MaxRequestsPerMinute  int    `json:"max_requests_per_minute"`
	MinRequestIntervalSec int    `json:"min_request_interval_sec"`
	Burst                 int    `json:"burst"`
	CacheTTLSeconds       int    `json:"cache_ttl_sec"`
	CacheMaxItems         int    `json:"cache_max_items"`
}

type Notes struct {
	// DataFile points at the watchlist JSON file. Empty means the
	// last-used file (or the default under the user config dir).
	DataFile string `json:"data_file"`
}

type Config struct {
	Server Server `json:"server"`
	Yahoo  Yahoo  `json:"yahoo"`
	Notes  Notes  `json:"notes"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 10},
		Yahoo: Yahoo{
			Enabled:              true,
			Endpoint:             "https://query1.finance.yahoo.com",
			MaxRequestsPerMinute: 60,
			Burst:                5,
			CacheTTLSeconds:      15,
			CacheMaxItems:        10000,
		},
	}
}

// Load reads JSON config from path. If path is empty or file does not exist,
// it returns defaults. Environment variables override select fields.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" { cfg.Server.Port = v }
	if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
		var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Server.RequestTimeoutSec = x }
	}
	if v := os.Getenv("YAHOO_ENABLED"); v != "" {
		switch strings.ToLower(v) {
		case "1","true","yes","y": cfg.Yahoo.Enabled = true
		case "0","false","no","n": cfg.Yahoo.Enabled = false
		}
	}
	if v := os.Getenv("YAHOO_ENDPOINT"); v != "" { cfg.Yahoo.Endpoint = v }
	if v := os.Getenv("YAHOO_MAX_RPM"); v != "" {
		var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Yahoo.MaxRequestsPerMinute = x }
	}
	if v := os.Getenv("YAHOO_MIN_INTERVAL_SEC"); v != "" {
		var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Yahoo.MinRequestIntervalSec = x }
	}
	if v := os.Getenv("YAHOO_BURST"); v != "" {
		var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Yahoo.Burst = x }
	}
	if v := os.Getenv("YAHOO_CACHE_TTL_SEC"); v != "" {
		var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Yahoo.CacheTTLSeconds = x }
	}
	if v := os.Getenv("YAHOO_CACHE_MAX_ITEMS"); v != "" {
		var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Yahoo.CacheMaxItems = x }
	}
	if v := os.Getenv("NOTES_DATA_FILE"); v != "" { cfg.Notes.DataFile = v }
}
