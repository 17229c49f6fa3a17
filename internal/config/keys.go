package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"nathanbeddoewebdev/actionmgr/internal/logging"
)

// KeySpec describes a single configuration key.
type KeySpec struct {
	// Name is the CLI-facing key name (e.g. "log-level").
	Name string

	// Description is a short human-readable explanation shown in help text.
	Description string

	// Default is the effective value when the key is unset, if any.
	Default string

	// Session marks keys that feed the session context.
	Session bool

	// Get returns the current value for this key from a loaded Config.
	Get func(cfg *Config) string

	// Set validates and applies a value for this key to the given Config
	// (in memory only; the caller is responsible for calling Save).
	Set func(cfg *Config, value string) error
}

// Keys is the authoritative list of all supported configuration keys.
// To add a new option: add a field to Config and append a KeySpec here.
var Keys = []KeySpec{
	{
		Name:        "lang",
		Description: "Language code sent in the session context (default en_US)",
		Default:     defaultLang,
		Session:     true,
		Get:         func(cfg *Config) string { return cfg.Lang },
		Set:         func(cfg *Config, v string) error { cfg.Lang = v; return nil },
	},
	{
		Name:        "tz",
		Description: "Time zone sent in the session context (default UTC)",
		Default:     defaultTZ,
		Session:     true,
		Get:         func(cfg *Config) string { return cfg.TZ },
		Set:         setTZ,
	},
	{
		Name:        "uid",
		Description: "User id sent in the session context",
		Session:     true,
		Get: func(cfg *Config) string {
			if cfg.UID == 0 {
				return ""
			}
			return strconv.FormatInt(cfg.UID, 10)
		},
		Set: setUID,
	},
	{
		Name:        "debug",
		Description: "Debug mode appended to same-origin url actions (e.g. 1, assets)",
		Get:         func(cfg *Config) string { return cfg.Debug },
		Set:         func(cfg *Config, v string) error { cfg.Debug = v; return nil },
	},
	{
		Name:        "log-level",
		Description: "Log verbosity: " + strings.Join(logging.LevelNames(), ", "),
		Get:         func(cfg *Config) string { return cfg.LogLevel },
		Set:         setLogLevel,
	},
	{
		Name:        "cache-ttl",
		Description: "How long cached action descriptors stay fresh (e.g. 5m)",
		Default:     defaultCacheTTL.String(),
		Get:         func(cfg *Config) string { return cfg.CacheTTL },
		Set:         setCacheTTL,
	},
	{
		Name:        "retry-attempts",
		Description: "Attempts for catalog reads on a busy database (default 3)",
		Default:     strconv.Itoa(defaultRetryAttempts),
		Get: func(cfg *Config) string {
			if cfg.RetryAttempts == 0 {
				return ""
			}
			return strconv.Itoa(cfg.RetryAttempts)
		},
		Set: setRetryAttempts,
	},
}

func setTZ(cfg *Config, v string) error {
	if v != "" {
		if _, err := time.LoadLocation(v); err != nil {
			return fmt.Errorf("config: invalid time zone %q: %w", v, err)
		}
	}
	cfg.TZ = v
	return nil
}

func setUID(cfg *Config, v string) error {
	if v == "" {
		cfg.UID = 0
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return fmt.Errorf("config: uid must be a non-negative integer, got %q", v)
	}
	cfg.UID = n
	return nil
}

func setLogLevel(cfg *Config, v string) error {
	if v != "" {
		if _, err := logging.ParseLevel(v); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	cfg.LogLevel = strings.ToLower(v)
	return nil
}

func setCacheTTL(cfg *Config, v string) error {
	if v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return fmt.Errorf("config: cache-ttl must be a non-negative duration, got %q", v)
		}
	}
	cfg.CacheTTL = v
	return nil
}

func setRetryAttempts(cfg *Config, v string) error {
	if v == "" {
		cfg.RetryAttempts = 0
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fmt.Errorf("config: retry-attempts must be a positive integer, got %q", v)
	}
	cfg.RetryAttempts = n
	return nil
}

// Lookup returns the KeySpec for the given name, or nil if not found.
// The name is matched case-insensitively after trimming whitespace.
func Lookup(name string) *KeySpec {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for i := range Keys {
		if Keys[i].Name == normalized {
			return &Keys[i]
		}
	}
	return nil
}

// KeyNames returns the names of all registered keys.
func KeyNames() []string {
	names := make([]string, len(Keys))
	for i, k := range Keys {
		names[i] = k.Name
	}
	return names
}

// KeysHelp builds a formatted block listing all available keys and their
// descriptions, suitable for inclusion in Cobra Long help text.
func KeysHelp() string {
	if len(Keys) == 0 {
		return ""
	}

	maxLen := 0
	for _, k := range Keys {
		if len(k.Name) > maxLen {
			maxLen = len(k.Name)
		}
	}

	var b strings.Builder
	b.WriteString("Available keys:\n")
	for _, k := range Keys {
		fmt.Fprintf(&b, "  %-*s   %s\n", maxLen, k.Name, k.Description)
	}
	return b.String()
}
