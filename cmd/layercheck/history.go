package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/go-layercheck/internal/harness"
	"github.com/example/go-layercheck/internal/storage"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored runs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = storage.CloseIfSupported(store) }()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			sb := &strings.Builder{}
			fmt.Fprintf(sb, "%-36s  %-25s  %-18s  %s\n", "ID", "Created", "Engine", "Result")
			fmt.Fprintln(sb, strings.Repeat("-", 92))
			for _, r := range runs {
				result := "ok"
				if r.Failed {
					result = "FAILED"
				}
				fmt.Fprintf(sb, "%-36s  %-25s  %-18s  %s\n", r.ID, r.CreatedAt.Format(time.RFC3339), r.Engine, result)
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), sb.String())

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list (0 = all)")
	cmd.AddCommand(newHistoryShowCmd())

	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a stored run report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			if err := checkFormat(format); err != nil {
				return err
			}

			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = storage.CloseIfSupported(store) }()

			rec, ok, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("run %q not found", args[0])
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			}

			harness.FormatTable(rec.Report, out)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")

	return cmd
}
