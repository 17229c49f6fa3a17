package history

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"nathanbeddoewebdev/actionmgr/cmd/commands/cmdutil"
	"nathanbeddoewebdev/actionmgr/internal/history"
)

func ListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent navigation states",
		Long: `List recent navigation states, newest first.

Examples:
  actionmgr history list
  actionmgr history list --limit 50
  actionmgr history list --session 5f0c...
  actionmgr history list -o json`,
		Args:         cobra.NoArgs,
		RunE:         runList,
		SilenceUsage: true,
	}

	cmd.Flags().Int("limit", 25, "Number of entries to display")
	cmd.Flags().String("session", "", "Only show entries of this session")
	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return fmt.Errorf("limit must be greater than 0")
	}
	output, err := cmdutil.Output(cmd)
	if err != nil {
		return err
	}
	sessionID, _ := cmd.Flags().GetString("session")

	repo, err := history.Open()
	if err != nil {
		return err
	}
	defer repo.Close()

	var entries []history.Entry
	if sessionID != "" {
		entries, err = repo.ListBySession(sessionID, limit)
	} else {
		entries, err = repo.List(limit)
	}
	if err != nil {
		return err
	}

	if output == "json" {
		return cmdutil.PrintJSON(cmd, entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No history entries found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tSESSION\tVIEW\tBREADCRUMBS")
	fmt.Fprintln(w, "--\t----\t-------\t----\t-----------")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			e.ID,
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			shortSession(e.SessionID),
			describeState(e),
			orDash(e.Breadcrumbs),
		)
	}
	return w.Flush()
}

func shortSession(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return orDash(id)
}

// describeState names what an entry displays: the model and view of a
// window, or the tag of a client action.
func describeState(e history.Entry) string {
	st := e.State
	switch {
	case st.Model != "" && st.ID != 0:
		return fmt.Sprintf("%s/%s #%d", st.Model, st.ViewType, st.ID)
	case st.Model != "":
		return st.Model + "/" + st.ViewType
	case st.Tag != "":
		return "client " + st.Tag
	case st.Action != 0:
		return fmt.Sprintf("action %d", st.Action)
	}
	return "-"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
