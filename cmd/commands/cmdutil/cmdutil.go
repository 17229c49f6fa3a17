// Package cmdutil holds helpers shared by the actionmgr commands.
package cmdutil

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"nathanbeddoewebdev/actionmgr/internal/config"
	"nathanbeddoewebdev/actionmgr/internal/logging"
	"nathanbeddoewebdev/actionmgr/internal/services/session"
)

// Logger returns the logger the root command stored in the context.
func Logger(cmd *cobra.Command) logr.Logger {
	return logging.FromContext(cmd.Context())
}

// OpenService loads the config and opens the stores.
func OpenService(cmd *cobra.Command) (*session.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return session.Open(cfg, Logger(cmd))
}

// PrintJSON encodes v as indented JSON to the command's stdout.
func PrintJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Interactive reports whether both stdin and stdout are terminals.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// Output reads and checks the --output flag.
func Output(cmd *cobra.Command) (string, error) {
	output, _ := cmd.Flags().GetString("output")
	switch output {
	case "", "table":
		return "table", nil
	case "json":
		return "json", nil
	}
	return "", fmt.Errorf("unsupported output format %q", output)
}
