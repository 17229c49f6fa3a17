package catalog

import "github.com/spf13/cobra"

// NewCommand returns the "catalog" parent command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the local action catalog",
		Long: "Import action bundles into the local catalog and list what it holds.\n\n" +
			"The catalog is stored locally in ~/.config/actionmgr/actionmgr.db.",
		SilenceUsage: true,
	}

	cmd.AddCommand(ImportCommand())
	cmd.AddCommand(ListCommand())

	return cmd
}
