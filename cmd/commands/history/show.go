package history

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"nathanbeddoewebdev/actionmgr/cmd/commands/cmdutil"
	"nathanbeddoewebdev/actionmgr/internal/history"
)

func ShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Print a navigation state as JSON",
		Long: `Print a recorded navigation state as JSON. Without an id, the latest
entry is shown.

Examples:
  actionmgr history show
  actionmgr history show 12`,
		Args:         cobra.MaximumNArgs(1),
		RunE:         runShow,
		SilenceUsage: true,
	}
	return cmd
}

func runShow(cmd *cobra.Command, args []string) error {
	var id int64
	if len(args) == 1 {
		var err error
		id, err = strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid history id %q", args[0])
		}
	}

	repo, err := history.Open()
	if err != nil {
		return err
	}
	defer repo.Close()

	var entry *history.Entry
	if id == 0 {
		entry, err = repo.Latest()
	} else {
		entry, err = repo.Get(id)
	}
	if err != nil {
		return err
	}
	return cmdutil.PrintJSON(cmd, entry)
}
