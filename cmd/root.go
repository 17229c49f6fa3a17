package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"nathanbeddoewebdev/actionmgr/cmd/commands/browse"
	catalogcmd "nathanbeddoewebdev/actionmgr/cmd/commands/catalog"
	cfgcmd "nathanbeddoewebdev/actionmgr/cmd/commands/config"
	historycmd "nathanbeddoewebdev/actionmgr/cmd/commands/history"
	"nathanbeddoewebdev/actionmgr/cmd/commands/run"
	"nathanbeddoewebdev/actionmgr/internal/config"
	"nathanbeddoewebdev/actionmgr/internal/logging"
)

// rootCmd represents the base command when called without any subcommands.
func rootCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "actionmgr",
		Short: "Browse and run UI actions from a local action catalog",
		Long: `actionmgr runs window, client, server and url actions the way a web
client would: it resolves descriptors from a local catalog, keeps a
breadcrumb stack of the views they open, and records each navigation
state so it can be resumed later.

Quick start:
  actionmgr catalog import --demo       # Load the demo bundle
  actionmgr browse                      # Open the terminal client
  actionmgr run sale.action_orders      # Run an action headlessly
  actionmgr history list                # Show recorded states`,
		SilenceUsage:      true,
		PersistentPreRunE: setupLogger,
	}

	cmd.PersistentFlags().String("log-level", "", "Log level: "+joinLevels()+" (overrides config)")

	cmd.AddCommand(browse.NewCommand())
	cmd.AddCommand(catalogcmd.NewCommand())
	cmd.AddCommand(cfgcmd.NewCommand())
	cmd.AddCommand(historycmd.NewCommand())
	cmd.AddCommand(run.NewCommand())

	return cmd
}

// setupLogger stores a logger built from the config, or the --log-level
// flag, in the command context.
func setupLogger(cmd *cobra.Command, args []string) error {
	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		level = cfg.LogLevel
	}
	if _, err := logging.ParseLevel(level); err != nil {
		return err
	}

	logger := logging.NewFromLevel(cmd.ErrOrStderr(), level)
	cmd.SetContext(logging.IntoContext(cmd.Context(), logger))
	return nil
}

func joinLevels() string {
	return strings.Join(logging.LevelNames(), ", ")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	var root = rootCmd()
	err := root.Execute()
	if err != nil {
		os.Exit(1)
	}
}
