package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/go-layercheck/internal/config"
	"github.com/example/go-layercheck/internal/doctor"
	"github.com/example/go-layercheck/internal/fixture"
	"github.com/example/go-layercheck/internal/onnx"
	"github.com/example/go-layercheck/internal/storage"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run local runtime, fixture and store checks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			backend, err := config.NormalizeBackend(cfg.Check.Backend)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "backend: %s\n", backend)

			dcfg := doctor.Config{
				Runtime: func() (string, string, error) {
					info, err := onnx.DetectRuntime(cfg.Runtime)
					return info.LibraryPath, info.Version, err
				},
				SkipRuntime: backend != config.BackendONNX,
				FixturePath: cfg.Paths.FixturePath,
				LoadFixture: func(path string) error {
					_, err := fixture.Load(path)
					return err
				},
				Store: func() error {
					store, err := openStore(cmd.Context(), cfg)
					if err != nil {
						return err
					}
					return storage.CloseIfSupported(store)
				},
			}
			if backend == config.BackendONNX {
				dcfg.ModelFiles = []string{cfg.Paths.ONNXModel}
			}

			result := doctor.Run(dcfg, out)

			if result.Failed() {
				for _, f := range result.Failures() {
					fmt.Fprintf(os.Stderr, "FAIL: %s\n", f)
				}

				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(out, "doctor checks passed")

			return nil
		},
	}

	return cmd
}
