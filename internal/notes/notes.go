package notes

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	appDirName      = "stock-notes"
	defaultFileName = "scn_data.json"
	lastUsedName    = ".last_config"
)

// Watchlist is the persisted ticker list backing the notes app.
// Note bodies are managed elsewhere; only tickers live here.
type Watchlist struct {
	Path    string   `json:"-"`
	Tickers []string `json:"tickers"`
}

// Dir returns the application config directory, creating it if needed.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	dir := filepath.Join(base, appDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// DefaultPath returns the default watchlist file path.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, defaultFileName), nil
}

// Load opens the watchlist at path. An empty path resolves to the
// last-used file when one is recorded, else the default. A missing
// default file is created with an empty ticker list; a missing custom
// path is an error.
func Load(path string) (*Watchlist, error) {
	explicit := path != ""
	if !explicit {
		path = lastUsed()
	}
	if path == "" {
		def, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = def
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			w := &Watchlist{Path: path, Tickers: []string{}}
			if err := w.Save(); err != nil {
				return nil, err
			}
			return w, nil
		}
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read watchlist: %w", err)
	}
	w := &Watchlist{Path: path}
	if err := json.Unmarshal(b, w); err != nil {
		return nil, fmt.Errorf("parse watchlist %s: %w", path, err)
	}
	if w.Tickers == nil {
		w.Tickers = []string{}
	}
	return w, nil
}

// Save writes the watchlist back to its path.
func (w *Watchlist) Save() error {
	b, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return fmt.Errorf("encode watchlist: %w", err)
	}
	if err := os.WriteFile(w.Path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write watchlist: %w", err)
	}
	return nil
}

// Add appends a ticker unless already present. Reports whether the list
// changed.
func (w *Watchlist) Add(ticker string) bool {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if t == "" {
		return false
	}
	for _, have := range w.Tickers {
		if have == t {
			return false
		}
	}
	w.Tickers = append(w.Tickers, t)
	return true
}

// SaveLastUsed records path as the watchlist to reopen on the next run.
func SaveLastUsed(path string) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve watchlist path: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, lastUsedName), []byte(abs+"\n"), 0o644); err != nil {
		return fmt.Errorf("write last-used pointer: %w", err)
	}
	return nil
}

// lastUsed returns the recorded last-used path when it still exists.
func lastUsed() string {
	dir, err := Dir()
	if err != nil {
		return ""
	}
	b, err := os.ReadFile(filepath.Join(dir, lastUsedName))
	if err != nil {
		return ""
	}
	path := strings.TrimSpace(string(b))
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
