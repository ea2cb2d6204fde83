package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/go-layercheck/internal/bench"
)

func newBenchCmd() *cobra.Command {
	var (
		runs      int
		format    string
		maxMeanMS float64
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark evaluation latency per layout variant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if runs < 1 {
				return fmt.Errorf("--runs must be at least 1")
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

			// Timings cover the forward passes only.
			opts := harnessOptions(cfg)
			opts.GradientCheck = nil

			results, err := bench.Run(cmd.Context(), ev, set, opts, runs)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				if err := bench.FormatJSON(results, cmd.OutOrStdout()); err != nil {
					return err
				}
			default:
				bench.FormatTable(results, cmd.OutOrStdout())
			}

			for _, vs := range bench.StatsByVariant(results) {
				if err := bench.CheckMaxMean(vs.Stats.Mean, maxMeanMS); err != nil {
					return fmt.Errorf("%s: %w", vs.Variant, err)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&runs, "runs", 5, "Number of evaluations per variant")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")
	cmd.Flags().Float64Var(&maxMeanMS, "max-mean-ms", 0, "Exit non-zero if a variant's mean latency exceeds this many ms (0 = disabled)")

	return cmd
}
