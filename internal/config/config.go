// Package config handles persistent user configuration for actionmgr.
//
// Configuration is stored as JSON at ~/.config/actionmgr/config.json (or the
// platform-equivalent path returned by os.UserConfigDir).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"nathanbeddoewebdev/actionmgr/internal/domain"
)

const (
	appDir   = "actionmgr"
	fileName = "config.json"

	defaultLang          = "en_US"
	defaultTZ            = "UTC"
	defaultCacheTTL      = 5 * time.Minute
	defaultRetryAttempts = 3
)

// pathOverride, when non-empty, replaces the default config file path.
// Intended for testing. Use SetPath / ResetPath to manage.
var pathOverride string

// SetPath overrides the config file path. Intended for testing.
func SetPath(p string) { pathOverride = p }

// ResetPath clears the path override, reverting to the default. Intended for testing.
func ResetPath() { pathOverride = "" }

// Config holds user preferences that persist across invocations.
type Config struct {
	Lang          string `json:"lang,omitempty"`
	TZ            string `json:"tz,omitempty"`
	UID           int64  `json:"uid,omitempty"`
	Debug         string `json:"debug,omitempty"`
	LogLevel      string `json:"log_level,omitempty"`
	CacheTTL      string `json:"cache_ttl,omitempty"`
	RetryAttempts int    `json:"retry_attempts,omitempty"`
}

// Path returns the absolute path to the config file.
// If SetPath has been called, that value is returned instead.
// Otherwise it uses os.UserConfigDir which resolves to
// ~/Library/Application Support on macOS, ~/.config on Linux, and
// %AppData% on Windows.
func Path() (string, error) {
	if pathOverride != "" {
		return pathOverride, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: unable to determine config directory: %w", err)
	}
	return filepath.Join(base, appDir, fileName), nil
}

// Load reads the config file from disk and returns the parsed Config.
// If the file does not exist, a zero-value Config is returned (not an error).
func Load() (*Config, error) {
	return loadFrom("")
}

func loadFrom(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = Path()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	return &cfg, nil
}

// Save writes the config to disk, creating the parent directory if needed.
func (c *Config) Save() error {
	return c.saveTo("")
}

func (c *Config) saveTo(path string) error {
	if path == "" {
		var err error
		path, err = Path()
		if err != nil {
			return err
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: failed to create directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: failed to marshal config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: failed to write %s: %w", path, err)
	}

	return nil
}

// LoadFrom reads the config from the given path. Intended for testing.
func LoadFrom(path string) (*Config, error) {
	return loadFrom(path)
}

// SaveTo writes the config to the given path. Intended for testing.
func (c *Config) SaveTo(path string) error {
	return c.saveTo(path)
}

// SessionContext returns the user context every resolved action starts
// from. Unset values fall back to en_US and UTC.
func (c *Config) SessionContext() domain.Context {
	lang, tz := c.Lang, c.TZ
	if lang == "" {
		lang = defaultLang
	}
	if tz == "" {
		tz = defaultTZ
	}
	ctx := domain.Context{"lang": lang, "tz": tz}
	if c.UID != 0 {
		ctx["uid"] = c.UID
	}
	return ctx
}

// CacheTTLDuration is how long a cached action descriptor is served without
// revalidation. Invalid or empty values yield the default.
func (c *Config) CacheTTLDuration() time.Duration {
	if c.CacheTTL == "" {
		return defaultCacheTTL
	}
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil || d < 0 {
		return defaultCacheTTL
	}
	return d
}

// Attempts is the number of tries for a catalog read on a busy database.
func (c *Config) Attempts() int {
	if c.RetryAttempts <= 0 {
		return defaultRetryAttempts
	}
	return c.RetryAttempts
}
