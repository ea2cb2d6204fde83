package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/go-layercheck/internal/config"
	"github.com/example/go-layercheck/internal/engine"
	"github.com/example/go-layercheck/internal/fixture"
	"github.com/example/go-layercheck/internal/harness"
	"github.com/example/go-layercheck/internal/onnx"
	"github.com/example/go-layercheck/internal/storage"
)

// loadFixtures reads Paths.FixturePath when set and otherwise generates
// the set from the check seed.
func loadFixtures(cfg config.Config) (*fixture.Set, error) {
	if cfg.Paths.FixturePath != "" {
		set, err := fixture.Load(cfg.Paths.FixturePath)
		if err != nil {
			return nil, err
		}
		slog.Debug("fixtures loaded", "path", cfg.Paths.FixturePath, "samples", set.NumSamples())
		return set, nil
	}

	dims, err := config.ParseDims(cfg.Check.Dims)
	if err != nil {
		return nil, err
	}

	return harness.GenerateFixtures(cfg.Check.Seed, cfg.Check.Samples, dims)
}

func harnessOptions(cfg config.Config) harness.Options {
	opts := harness.Options{
		Factor:        cfg.Check.Factor,
		MiniBatchSize: cfg.Check.MiniBatch,
		Epochs:        cfg.Check.Epochs,
	}
	if cfg.Check.GradientCheck {
		opts.GradientCheck = &engine.CheckGradients{ErrorOnFailure: true}
	}
	// Validate has already rejected bad modes.
	opts.CheckModes, _ = cfg.Check.CheckModes()
	return opts
}

// openEvaluator is the evaluator factory used by run and bench.
var openEvaluator = newEvaluator

// newEvaluator builds the configured backend. The returned close func is
// never nil.
func newEvaluator(cfg config.Config) (harness.Evaluator, func(), error) {
	backend, err := config.NormalizeBackend(cfg.Check.Backend)
	if err != nil {
		return nil, nil, err
	}

	switch backend {
	case config.BackendONNX:
		info, err := onnx.DetectRuntime(cfg.Runtime)
		if err != nil {
			return nil, nil, err
		}
		runner, err := onnx.NewRunner(onnx.ScaleBiasGraph(cfg.Paths.ONNXModel), onnx.RunnerConfig{LibraryPath: info.LibraryPath})
		if err != nil {
			return nil, nil, err
		}
		slog.Info("onnx runtime ready", "library", info.LibraryPath, "version", info.Version, "model", cfg.Paths.ONNXModel)
		ev := onnx.NewEvaluator(runner)
		return ev, ev.Close, nil
	default:
		return engine.NewLocal(engine.Options{Workers: cfg.Runtime.Workers}), func() {}, nil
	}
}

// openStore opens and initialises the configured run store.
func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	store, err := storage.NewStore(cfg.Store.Kind, cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, fmt.Errorf("init %s store: %w", cfg.Store.Kind, err)
	}
	return store, nil
}

func checkFormat(format string) error {
	if format != "table" && format != "json" {
		return fmt.Errorf("--format must be 'table' or 'json'")
	}
	return nil
}
