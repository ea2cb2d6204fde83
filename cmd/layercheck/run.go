package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/go-layercheck/internal/config"
	"github.com/example/go-layercheck/internal/harness"
	"github.com/example/go-layercheck/internal/storage"
)

func newRunCmd() *cobra.Command {
	var (
		format     string
		reportPath string
		noStore    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate every layout variant against the reference metric",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			if err := checkFormat(format); err != nil {
				return err
			}

			set, err := loadFixtures(cfg)
			if err != nil {
				return err
			}

			ev, closeEv, err := openEvaluator(cfg)
			if err != nil {
				return err
			}
			defer closeEv()

			ctx := cmd.Context()

			rep, err := harness.Run(ctx, ev, set, harnessOptions(cfg))
			if err != nil {
				return err
			}

			// The record is built before printing so the output carries the
			// run ID the store will use.
			var rec *storage.RunRecord
			if !noStore {
				r := storage.NewRunRecord(rep, time.Now())
				rec = &r
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				if err := harness.FormatJSON(rep, out); err != nil {
					return err
				}
			default:
				harness.FormatTable(rep, out)
			}

			if reportPath == "" {
				reportPath = cfg.Paths.ReportPath
			}

			return errors.Join(rep.Err(), persistRun(ctx, cfg, rec, rep, reportPath))
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write the JSON report to this path (overrides paths.report_path)")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "Do not record the run in the run store")

	return cmd
}

// persistRun saves rec (when non-nil) to the run store and writes rep to
// reportPath (when set). Both are attempted; their errors are joined.
func persistRun(ctx context.Context, cfg config.Config, rec *storage.RunRecord, rep *harness.Report, reportPath string) error {
	var errs []error

	if rec != nil {
		if err := storeRun(ctx, cfg, *rec); err != nil {
			errs = append(errs, err)
		}
	}

	if reportPath != "" {
		if err := harness.SaveReport(reportPath, rep); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func storeRun(ctx context.Context, cfg config.Config, rec storage.RunRecord) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = storage.CloseIfSupported(store) }()

	if err := store.SaveRun(ctx, rec); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	slog.Info("run stored", "id", rec.ID, "store", cfg.Store.Kind)

	return nil
}
