package catalog

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nathanbeddoewebdev/actionmgr/cmd/commands/cmdutil"
	"nathanbeddoewebdev/actionmgr/internal/catalog"
)

func ImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Import action bundles",
		Long: `Import one or more JSON or TOML bundles into the catalog. Entries are
upserted: importing a bundle again updates its actions in place.

The format is picked from the file extension (.json, .toml); use --format
to override it, e.g. when reading from stdin with "-".

Examples:
  actionmgr catalog import --demo
  actionmgr catalog import sales.json partners.toml
  cat sales.toml | actionmgr catalog import --format toml -`,
		RunE:         runImport,
		SilenceUsage: true,
	}

	cmd.Flags().Bool("demo", false, "Import the built-in demo bundle")
	cmd.Flags().String("format", "", "Bundle format: json or toml (default: from extension)")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	demo, _ := cmd.Flags().GetBool("demo")
	if !demo && len(args) == 0 {
		return errors.New("nothing to import: pass bundle files or --demo")
	}

	format, _ := cmd.Flags().GetString("format")
	switch catalog.Format(format) {
	case "", catalog.FormatJSON, catalog.FormatTOML:
	default:
		return fmt.Errorf("unsupported bundle format %q", format)
	}

	type source struct {
		name   string
		bundle *catalog.Bundle
	}
	var sources []source

	if demo {
		b, err := catalog.Demo()
		if err != nil {
			return err
		}
		sources = append(sources, source{name: "demo", bundle: b})
	}
	for _, path := range args {
		b, err := readBundle(cmd, path, catalog.Format(format))
		if err != nil {
			return err
		}
		sources = append(sources, source{name: path, bundle: b})
	}

	svc, err := cmdutil.OpenService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	for _, src := range sources {
		stats, err := svc.Catalog().Import(cmd.Context(), src.bundle)
		if err != nil {
			return fmt.Errorf("importing %s: %w", src.name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %s: %d actions, %d server actions, %d methods, %d records\n",
			src.name, stats.Actions, stats.ServerActions, stats.Methods, stats.Records)
	}
	return nil
}

func readBundle(cmd *cobra.Command, path string, format catalog.Format) (*catalog.Bundle, error) {
	if path == "-" {
		if format == "" {
			format = catalog.FormatJSON
		}
		return catalog.DecodeBundle(cmd.InOrStdin(), format)
	}
	if format == "" {
		return catalog.ReadBundleFile(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return catalog.DecodeBundle(f, format)
}
