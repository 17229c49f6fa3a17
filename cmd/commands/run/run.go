// Package run implements the headless "run" command.
package run

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/huh/spinner"
	"github.com/spf13/cobra"

	"nathanbeddoewebdev/actionmgr/cmd/commands/cmdutil"
	"nathanbeddoewebdev/actionmgr/internal/actions"
	"nathanbeddoewebdev/actionmgr/internal/catalog"
	"nathanbeddoewebdev/actionmgr/internal/domain"
	"nathanbeddoewebdev/actionmgr/internal/logging"
	"nathanbeddoewebdev/actionmgr/internal/services/session"
	"nathanbeddoewebdev/actionmgr/internal/tui"
)

// recordLimit caps the records printed for the displayed window action.
const recordLimit = 20

// NewCommand returns the "run" command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [action]",
		Short: "Run an action without the terminal client",
		Long: `Run an action and print where it leads: the breadcrumbs, the
navigation state, anything it asked to show, and the records of the
window it displays.

The action is a catalog id, an xml id or a client action tag. Without one,
an interactive picker lists the catalog.

Examples:
  actionmgr run sale.action_orders
  actionmgr run 3 --view form --res-id 2
  actionmgr run sale.action_reorder -o json
  actionmgr run base.action_partners --context default_country=BE
  actionmgr run --resume`,
		Args:         cobra.MaximumNArgs(1),
		RunE:         runAction,
		SilenceUsage: true,
	}

	cmd.Flags().String("view", "", "Open a window action on this view type")
	cmd.Flags().Int64("res-id", 0, "Open a window action on this record")
	cmd.Flags().StringArray("context", nil, "Additional context as key=value (repeatable)")
	cmd.Flags().Int64("resume", 0, "Resume the latest history entry, or --resume=ID")
	cmd.Flags().Lookup("resume").NoOptDefVal = "0"
	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")

	return cmd
}

// Result is what a headless run prints.
type Result struct {
	Breadcrumbs []string         `json:"breadcrumbs"`
	State       *actions.State   `json:"state,omitempty"`
	Events      []session.Event  `json:"events,omitempty"`
	Dialog      bool             `json:"dialog_open,omitempty"`
	Model       string           `json:"model,omitempty"`
	Records     []catalog.Record `json:"records,omitempty"`
}

func runAction(cmd *cobra.Command, args []string) error {
	output, err := cmdutil.Output(cmd)
	if err != nil {
		return err
	}
	extra, err := parseContext(cmd)
	if err != nil {
		return err
	}
	resume := cmd.Flags().Changed("resume")
	if resume && len(args) > 0 {
		return errors.New("--resume takes no action argument")
	}

	svc, err := cmdutil.OpenService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx := cmd.Context()
	logger := cmdutil.Logger(cmd)

	var ref actions.Ref
	if !resume {
		if len(args) == 1 {
			ref = actions.ParseRef(args[0])
		} else {
			if !cmdutil.Interactive() {
				return errors.New("no action given: pass an id or xml id, or run in a terminal to pick one")
			}
			id, err := tui.PickAction(ctx, svc.Catalog())
			if err != nil {
				return err
			}
			ref = actions.ByID(id)
		}
	}

	h := &session.Headless{}
	m, rec := svc.NewManager(h.Configure)
	if rec != nil {
		logger.V(logging.VERBOSE).Info("recording history", "session", rec.SessionID())
	}

	exec := func(ctx context.Context) error {
		if resume {
			id, _ := cmd.Flags().GetInt64("resume")
			_, err := svc.Resume(ctx, m, id)
			return err
		}
		view, _ := cmd.Flags().GetString("view")
		resID, _ := cmd.Flags().GetInt64("res-id")
		return m.DoAction(ctx, ref, actions.Options{
			AdditionalContext: extra,
			ViewType:          view,
			ResID:             resID,
			ClearBreadcrumbs:  true,
		})
	}

	if output == "table" && cmdutil.Interactive() {
		err = spinner.New().
			Title("Running action...").
			Accessible(os.Getenv("ACCESSIBLE") != "").
			Output(os.Stderr).
			ActionWithErr(exec).
			Run()
	} else {
		err = exec(ctx)
	}
	if err != nil {
		return err
	}

	res, err := collect(ctx, m, h, svc.Catalog())
	if err != nil {
		return err
	}
	if output == "json" {
		return cmdutil.PrintJSON(cmd, res)
	}
	return printResult(cmd.OutOrStdout(), res)
}

// parseContext reads the --context flags. Values that parse as JSON keep
// their type; anything else is a string.
func parseContext(cmd *cobra.Command) (domain.Context, error) {
	pairs, _ := cmd.Flags().GetStringArray("context")
	if len(pairs) == 0 {
		return nil, nil
	}
	out := domain.Context{}
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --context %q: want key=value", pair)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		out[key] = v
	}
	return out, nil
}

// collect reads what the run left on screen. Records are those of the
// window action owning the top controller, dialog included; a form shows
// its current record only.
func collect(ctx context.Context, m *actions.Manager, h *session.Headless, cat *catalog.Catalog) (*Result, error) {
	res := &Result{Events: h.Events(), Dialog: h.DialogOpen()}
	for _, c := range m.Breadcrumbs() {
		res.Breadcrumbs = append(res.Breadcrumbs, c.Title)
	}
	if st, ok := m.State(); ok {
		res.State = &st
	}

	top, ok := m.Stack().Dialog()
	if !ok {
		top, ok = m.Stack().Top()
	}
	if !ok {
		return res, nil
	}
	env, err := m.Environment(top.ID)
	if errors.Is(err, domain.ErrNoWindowAction) {
		return res, nil
	}
	if err != nil {
		return nil, err
	}

	res.Model = env.Model
	if top.ViewType == "form" {
		if env.CurrentID == 0 {
			return res, nil
		}
		r, err := cat.ReadRecord(ctx, env.Model, env.CurrentID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		if r != nil {
			res.Records = []catalog.Record{*r}
		}
		return res, nil
	}
	res.Records, err = cat.SearchRecords(ctx, env.Model, env.Domain, recordLimit)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func printResult(out io.Writer, res *Result) error {
	if len(res.Breadcrumbs) > 0 {
		fmt.Fprintln(out, strings.Join(res.Breadcrumbs, " › "))
	}
	for _, e := range res.Events {
		fmt.Fprintf(out, "%s: %s\n", e.Kind, eventText(e))
	}
	if res.State != nil {
		data, err := json.Marshal(res.State)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "State: %s\n", data)
	}
	if res.Model == "" {
		return nil
	}

	fmt.Fprintln(out)
	if len(res.Records) == 0 {
		fmt.Fprintf(out, "No %s records.\n", res.Model)
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME")
	fmt.Fprintln(w, "--\t----")
	for _, r := range res.Records {
		fmt.Fprintf(w, "%d\t%s\n", r.ID, r.Name)
	}
	return w.Flush()
}

func eventText(e session.Event) string {
	switch {
	case e.URL != "":
		return e.URL
	case e.Title != "" && e.Message != "":
		return e.Title + ": " + e.Message
	case e.Title != "":
		return e.Title
	}
	return e.Message
}
