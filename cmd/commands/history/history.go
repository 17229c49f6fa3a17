package history

import "github.com/spf13/cobra"

// NewCommand returns the "history" parent command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "View and manage recorded navigation states",
		Long: "Every screen reached through browse or run is recorded so it can be\n" +
			"resumed later with --resume.\n\n" +
			"History is stored locally in ~/.config/actionmgr/actionmgr.db.",
		SilenceUsage: true,
	}

	cmd.AddCommand(ListCommand())
	cmd.AddCommand(ShowCommand())
	cmd.AddCommand(PruneCommand())

	return cmd
}
