// Package logging builds the logr loggers used across actionmgr.
//
// Call sites log through logr.Logger and pick a verbosity with the level
// constants below:
//
//	logger.V(logging.DEBUG).Info("controller pushed", "controller", id)
package logging

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
)

// Verbosity levels passed to logr.Logger.V.
const (
	DEFAULT = 0
	VERBOSE = 1
	DEBUG   = 2
	TRACE   = 3
)

// levelNames maps the config "log-level" values to verbosities. "quiet"
// keeps errors only.
var levelNames = map[string]int{
	"quiet":   -1,
	"info":    DEFAULT,
	"verbose": VERBOSE,
	"debug":   DEBUG,
	"trace":   TRACE,
}

// ParseLevel converts a level name to a verbosity. The empty string is
// "info".
func ParseLevel(name string) (int, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DEFAULT, nil
	}
	if v, ok := levelNames[name]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("logging: unknown level %q (want quiet, info, verbose, debug or trace)", name)
}

// LevelNames lists the accepted level names in increasing verbosity.
func LevelNames() []string {
	return []string{"quiet", "info", "verbose", "debug", "trace"}
}

// New returns a logger writing one logfmt-style line per entry to out.
// Entries above verbosity are dropped; a negative verbosity drops Info
// entries entirely and keeps errors.
func New(out io.Writer, verbosity int) logr.Logger {
	if out == nil {
		return logr.Discard()
	}
	var quiet bool
	if verbosity < 0 {
		quiet = true
		verbosity = 0
	}
	return funcr.New(func(prefix, args string) {
		if quiet && !strings.Contains(args, `"error"=`) {
			return
		}
		if prefix != "" {
			fmt.Fprintf(out, "%s: %s\n", prefix, args)
			return
		}
		fmt.Fprintln(out, args)
	}, funcr.Options{
		Verbosity:       verbosity,
		LogTimestamp:    true,
		TimestampFormat: "15:04:05.000",
	})
}

// NewFromLevel is New with a level name. Unknown names fall back to info.
func NewFromLevel(out io.Writer, level string) logr.Logger {
	v, err := ParseLevel(level)
	if err != nil {
		v = DEFAULT
	}
	return New(out, v)
}

// IntoContext stores logger in ctx.
func IntoContext(ctx context.Context, logger logr.Logger) context.Context {
	return logr.NewContext(ctx, logger)
}

// FromContext returns the logger stored in ctx, or a discarding logger.
func FromContext(ctx context.Context) logr.Logger {
	return logr.FromContextOrDiscard(ctx)
}
