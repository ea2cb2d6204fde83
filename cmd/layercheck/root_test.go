package main

import (
	"testing"

	"github.com/example/go-layercheck/internal/config"
	"github.com/example/go-layercheck/internal/engine"
)

func TestNewRootCmd_HasExpectedSubcommands(t *testing.T) {
	root := NewRootCmd()

	want := []string{"run", "fixtures", "bench", "history", "doctor"}
	for _, name := range want {
		found := false

		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}

		if !found {
			t.Errorf("expected subcommand %q not found in root", name)
		}
	}
}

func TestNewRootCmd_HasPersistentConfigFlag(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"config", "backend", "check-seed", "store-kind", "log-level"} {
		if root.PersistentFlags().Lookup(name) == nil {
			t.Errorf("expected --%s persistent flag to be registered", name)
		}
	}
}

func TestSetupLogger_DoesNotPanic(_ *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		setupLogger(level)
	}
}

func TestSetupLogger_InvalidLevelFallsBackToInfo(_ *testing.T) {
	// Should not panic on invalid level.
	setupLogger("not-a-level")
}

func TestRequireConfig_FailsWhenNotInitialized(t *testing.T) {
	orig := activeCfg

	t.Cleanup(func() { activeCfg = orig })

	activeCfg = config.Config{}

	_, err := requireConfig()
	if err == nil {
		t.Fatal("expected error when config is not loaded")
	}
}

func TestRequireConfig_SucceedsWhenLoaded(t *testing.T) {
	orig := activeCfg

	t.Cleanup(func() { activeCfg = orig })

	activeCfg = config.DefaultConfig()

	got, err := requireConfig()
	if err != nil {
		t.Fatalf("requireConfig returned unexpected error: %v", err)
	}

	if got.Check.Backend != config.BackendLocal {
		t.Errorf("unexpected backend: %q", got.Check.Backend)
	}
}

func TestHarnessOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Check.Epochs = 2

	opts := harnessOptions(cfg)
	if opts.Factor != 8 || opts.MiniBatchSize != 17 || opts.Epochs != 2 {
		t.Fatalf("unexpected options: %+v", opts)
	}

	if opts.GradientCheck == nil || !opts.GradientCheck.ErrorOnFailure {
		t.Fatal("gradient check should be enabled with ErrorOnFailure")
	}

	if len(opts.CheckModes) != 1 || opts.CheckModes[0] != engine.ModeTesting {
		t.Fatalf("want test-pass checks by default, got %v", opts.CheckModes)
	}

	cfg.Check.GradientCheck = false
	if harnessOptions(cfg).GradientCheck != nil {
		t.Fatal("gradient check should be disabled")
	}

	cfg.Check.Modes = "train,test"
	if got := harnessOptions(cfg).CheckModes; len(got) != 2 || got[0] != engine.ModeTraining {
		t.Fatalf("check modes = %v; want [train test]", got)
	}
}

func TestNewEvaluator_Local(t *testing.T) {
	ev, closeEv, err := newEvaluator(config.DefaultConfig())
	if err != nil {
		t.Fatalf("newEvaluator: %v", err)
	}
	defer closeEv()

	if ev.Name() != "local" {
		t.Fatalf("want local evaluator, got %q", ev.Name())
	}
}

func TestNewEvaluator_RejectsUnknownBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Check.Backend = "tpu"

	if _, _, err := newEvaluator(cfg); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
