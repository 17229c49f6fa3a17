// Package browse implements the "browse" command, the terminal client.
package browse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"nathanbeddoewebdev/actionmgr/cmd/commands/cmdutil"
	"nathanbeddoewebdev/actionmgr/internal/actions"
	"nathanbeddoewebdev/actionmgr/internal/config"
	"nathanbeddoewebdev/actionmgr/internal/logging"
	"nathanbeddoewebdev/actionmgr/internal/services/session"
	"nathanbeddoewebdev/actionmgr/internal/tui"
)

// NewCommand returns the "browse" command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse [action]",
		Short: "Open the terminal client",
		Long: `Open the terminal client on an action, or on the home menu.

Keys:
  enter      open the selected entry
  v          switch to the next view of the action
  /          search by name
  esc        back to the previous breadcrumb
  h          previous view
  q          quit

The client takes over the terminal, so logs are discarded unless
--log-file is given.

Examples:
  actionmgr browse
  actionmgr browse sale.action_orders
  actionmgr browse --resume
  actionmgr browse --log-file /tmp/actionmgr.log --log-level debug`,
		Args:         cobra.MaximumNArgs(1),
		RunE:         runBrowse,
		SilenceUsage: true,
	}

	cmd.Flags().Int64("resume", 0, "Resume the latest history entry, or --resume=ID")
	cmd.Flags().Lookup("resume").NoOptDefVal = "0"
	cmd.Flags().String("log-file", "", "Append logs to this file")

	return cmd
}

func runBrowse(cmd *cobra.Command, args []string) error {
	resume := cmd.Flags().Changed("resume")
	if resume && len(args) > 0 {
		return errors.New("--resume takes no action argument")
	}
	if !cmdutil.Interactive() {
		return errors.New("browse needs a terminal; use \"actionmgr run\" for scripts")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, closeLog, err := fileLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	svc, err := session.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	s := tui.NewSession(svc.Catalog(), logger)
	m, _ := svc.NewManager(s.Configure)
	s.Bind(m)

	var start tui.Start
	switch {
	case resume:
		id, _ := cmd.Flags().GetInt64("resume")
		start = func(ctx context.Context, m *actions.Manager) error {
			_, err := svc.Resume(ctx, m, id)
			return err
		}
	case len(args) == 1:
		start = tui.StartAction(actions.ParseRef(args[0]))
	}

	res, err := tui.Run(cmd.Context(), s, start)
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), res)
	return nil
}

// fileLogger returns the logger for the session. Without --log-file every
// entry is dropped.
func fileLogger(cmd *cobra.Command, cfg *config.Config) (logr.Logger, func(), error) {
	path, _ := cmd.Flags().GetString("log-file")
	if path == "" {
		return logr.Discard(), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return logr.Discard(), nil, fmt.Errorf("opening log file: %w", err)
	}

	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		level = cfg.LogLevel
	}
	return logging.NewFromLevel(f, level), func() { f.Close() }, nil
}

func printResult(out io.Writer, res *tui.AppResult) {
	for _, url := range res.Opened {
		fmt.Fprintf(out, "Opened: %s\n", url)
	}
	if res.RedirectURL != "" {
		fmt.Fprintf(out, "Redirected to %s\n", res.RedirectURL)
	}
}
