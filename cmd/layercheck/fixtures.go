package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/example/go-layercheck/internal/config"
	"github.com/example/go-layercheck/internal/fixture"
	"github.com/example/go-layercheck/internal/harness"
)

func newFixturesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fixtures",
		Short: "Export and inspect fixture sets",
	}

	cmd.AddCommand(newFixturesExportCmd())
	cmd.AddCommand(newFixturesShowCmd())

	return cmd
}

func newFixturesExportCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Generate fixtures from the check seed and write them as safetensors",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			dims, err := config.ParseDims(cfg.Check.Dims)
			if err != nil {
				return err
			}

			set, err := harness.GenerateFixtures(cfg.Check.Seed, cfg.Check.Samples, dims)
			if err != nil {
				return err
			}

			if err := set.Save(outPath); err != nil {
				return err
			}

			slog.Info("fixtures exported", "path", outPath, "seed", set.Seed(), "samples", set.NumSamples())
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d samples of %s to %s\n", set.NumSamples(), config.FormatDims(dims), outPath)

			return nil
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "", "Output safetensors file (required)")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func newFixturesShowCmd() *cobra.Command {
	var inPath string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a summary of a fixture file, or of the configured fixtures",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			var set *fixture.Set
			if inPath != "" {
				set, err = fixture.Load(inPath)
			} else {
				set, err = loadFixtures(cfg)
			}
			if err != nil {
				return err
			}

			ref, err := harness.SetReference(set)
			if err != nil {
				return err
			}

			out := struct {
				fixture.Summary
				Reference float64 `json:"reference"`
			}{Summary: set.Summary(), Reference: ref}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVar(&inPath, "in", "", "Fixture file to summarise (default: configured fixtures)")

	return cmd
}
