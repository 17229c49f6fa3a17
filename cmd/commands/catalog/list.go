package catalog

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"nathanbeddoewebdev/actionmgr/cmd/commands/cmdutil"
)

func ListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the catalog actions",
		Long: `List the actions stored in the catalog.

Examples:
  actionmgr catalog list
  actionmgr catalog list -o json`,
		Args:         cobra.NoArgs,
		RunE:         runList,
		SilenceUsage: true,
	}

	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	output, err := cmdutil.Output(cmd)
	if err != nil {
		return err
	}

	svc, err := cmdutil.OpenService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	list, err := svc.Catalog().List(cmd.Context())
	if err != nil {
		return err
	}

	if output == "json" {
		return cmdutil.PrintJSON(cmd, list)
	}

	if len(list) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "The catalog is empty. Import a bundle with: actionmgr catalog import --demo")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tNAME\tXML ID")
	fmt.Fprintln(w, "--\t----\t----\t------")
	for _, a := range list {
		xmlID := a.XMLID
		if xmlID == "" {
			xmlID = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", a.ID, a.Kind, a.Name, xmlID)
	}
	return w.Flush()
}
