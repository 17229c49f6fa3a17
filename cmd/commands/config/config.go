package config

import (
	"github.com/spf13/cobra"

	"nathanbeddoewebdev/actionmgr/internal/config"
)

// NewCommand returns the "config" parent command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage actionmgr configuration",
		Long: "View and modify persistent actionmgr settings. lang, tz and uid are\n" +
			"sent to every action as the session context.\n\n" +
			"Configuration is stored at ~/.config/actionmgr/config.json.\n\n" +
			config.KeysHelp(),
	}

	cmd.AddCommand(SetCommand())
	cmd.AddCommand(GetCommand())

	return cmd
}
