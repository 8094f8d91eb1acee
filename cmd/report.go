package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/leadledger/internal/export"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the visible analytics archive as CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		user, err := env.currentUser()
		if err != nil {
			return err
		}

		path := exportOut
		if path == "" {
			path = export.FileName(time.Now())
		}
		if path == "-" {
			return env.Service.ExportArchive(ctx, user, os.Stdout)
		}

		f, err := os.Create(path)
		if err != nil {
			return eris.Wrap(err, "create export file")
		}
		if err := env.Service.ExportArchive(ctx, user, f); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return eris.Wrap(err, "close export file")
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
		return nil
	},
}

var statsOwner string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show status counts, win rates and the weekly trend",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		user, err := env.currentUser()
		if err != nil {
			return err
		}
		formatStats(os.Stdout, env.Service.Stats(ctx, user, statsOwner))
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary <company> [type]",
	Short: "Suggest a one-sentence CRM summary for a company",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		category := "N/A"
		if len(args) > 1 {
			category = args[1]
		}
		fmt.Fprintln(os.Stdout, env.Service.Summarize(ctx, args[0], category))
		return nil
	},
}

var inspectFormat string

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Dump the stored ledger document (admin)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		if _, err := env.requireAdmin(); err != nil {
			return err
		}
		return writeState(env, inspectFormat)
	},
}

// writeState prints the ledger document in the requested format.
func writeState(env *appEnv, format string) error {
	st := env.Ledger.State()
	switch strings.ToLower(format) {
	case "", "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	case "yaml":
		// Round-trip through JSON so YAML keys match the stored field names.
		raw, err := json.Marshal(st)
		if err != nil {
			return eris.Wrap(err, "marshal state")
		}
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return eris.Wrap(err, "decode state")
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close() //nolint:errcheck
		return enc.Encode(doc)
	default:
		return eris.Errorf("unknown format %q (json or yaml)", format)
	}
}

var wipeYes bool

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Discard all ledger state (admin)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if !wipeYes {
			return eris.New("refusing to wipe without --yes")
		}

		env, err := initEnv(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		user, err := env.currentUser()
		if err != nil {
			return err
		}
		if err := env.Service.Wipe(ctx, user); err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, "Ledger wiped.")
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output path, - for stdout (default leadledger_export_<date>.csv)")
	statsCmd.Flags().StringVar(&statsOwner, "owner", "", "restrict to one specialist (admin)")
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "json", "json or yaml")
	wipeCmd.Flags().BoolVar(&wipeYes, "yes", false, "confirm the wipe")
	rootCmd.AddCommand(exportCmd, statsCmd, summaryCmd, inspectCmd, wipeCmd)
}
