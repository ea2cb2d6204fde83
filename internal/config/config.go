package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Paths    PathsConfig   `mapstructure:"paths"`
	Runtime  RuntimeConfig `mapstructure:"runtime"`
	Check    CheckConfig   `mapstructure:"check"`
	Store    StoreConfig   `mapstructure:"store"`
	LogLevel string        `mapstructure:"log_level"`
}

type PathsConfig struct {
	// FixturePath is an optional safetensors fixture file; empty means
	// generate fixtures from Check.Seed.
	FixturePath string `mapstructure:"fixture_path"`
	ONNXModel   string `mapstructure:"onnx_model"`
	// ReportPath receives the JSON report of each run when set.
	ReportPath string `mapstructure:"report_path"`
}

type RuntimeConfig struct {
	Workers        int    `mapstructure:"workers"`
	ORTLibraryPath string `mapstructure:"ort_library_path"`
	ORTVersion     string `mapstructure:"ort_version"`
}

type CheckConfig struct {
	Seed          uint64  `mapstructure:"seed"`
	Samples       int     `mapstructure:"samples"`
	Dims          string  `mapstructure:"dims"`
	MiniBatch     int     `mapstructure:"mini_batch"`
	Epochs        int     `mapstructure:"epochs"`
	Factor        float64 `mapstructure:"factor"`
	GradientCheck bool    `mapstructure:"gradient_check"`
	Backend       string  `mapstructure:"backend"`
	// Modes lists the passes after which the metric bound is enforced,
	// e.g. "test" or "train,test".
	Modes string `mapstructure:"modes"`
}

type StoreConfig struct {
	Kind string `mapstructure:"kind"`
	Path string `mapstructure:"path"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			FixturePath: "",
			ONNXModel:   "models/scale_bias.onnx",
			ReportPath:  "",
		},
		Runtime: RuntimeConfig{
			Workers:        4,
			ORTLibraryPath: "",
			ORTVersion:     "",
		},
		Check: CheckConfig{
			Seed:          20190723,
			Samples:       29,
			Dims:          "7x5x3",
			MiniBatch:     17,
			Epochs:        0,
			Factor:        8,
			GradientCheck: true,
			Backend:       BackendLocal,
			Modes:         "test",
		},
		Store: StoreConfig{
			Kind: "sqlite",
			Path: "layercheck.db",
		},
		LogLevel: "info",
	}
}

// flagKeys maps each CLI flag to the config key it sets.
var flagKeys = []struct {
	flag string
	key  string
}{
	{"paths-fixture-path", "paths.fixture_path"},
	{"paths-onnx-model", "paths.onnx_model"},
	{"paths-report-path", "paths.report_path"},
	{"runtime-workers", "runtime.workers"},
	{"runtime-ort-library-path", "runtime.ort_library_path"},
	{"runtime-ort-version", "runtime.ort_version"},
	{"check-seed", "check.seed"},
	{"check-samples", "check.samples"},
	{"check-dims", "check.dims"},
	{"check-mini-batch", "check.mini_batch"},
	{"check-epochs", "check.epochs"},
	{"check-factor", "check.factor"},
	{"check-gradient-check", "check.gradient_check"},
	{"backend", "check.backend"},
	{"check-modes", "check.modes"},
	{"store-kind", "store.kind"},
	{"store-path", "store.path"},
	{"log-level", "log_level"},
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("paths-fixture-path", defaults.Paths.FixturePath, "Safetensors fixture file (empty: generate from --check-seed)")
	fs.String("paths-onnx-model", defaults.Paths.ONNXModel, "Path to the scale-bias ONNX graph (onnx backend)")
	fs.String("paths-report-path", defaults.Paths.ReportPath, "Write the JSON run report to this path")
	fs.Int("runtime-workers", defaults.Runtime.Workers, "Goroutines per layer in the local engine")
	fs.String("runtime-ort-library-path", defaults.Runtime.ORTLibraryPath, "Path to ONNX Runtime shared library")
	fs.String("runtime-ort-version", defaults.Runtime.ORTVersion, "Expected ONNX Runtime version")
	fs.Uint64("check-seed", defaults.Check.Seed, "Fixture random seed")
	fs.Int("check-samples", defaults.Check.Samples, "Number of fixture samples")
	fs.String("check-dims", defaults.Check.Dims, "Sample dimensions, e.g. 7x5x3")
	fs.Int("check-mini-batch", defaults.Check.MiniBatch, "Engine mini-batch size")
	fs.Int("check-epochs", defaults.Check.Epochs, "Training epochs before the test pass (forward only)")
	fs.Float64("check-factor", defaults.Check.Factor, "Tolerance factor applied to |value| * float32 epsilon")
	fs.Bool("check-gradient-check", defaults.Check.GradientCheck, "Run the engine gradient check")
	fs.String("backend", defaults.Check.Backend, "Engine backend: local|onnx")
	fs.String("check-modes", defaults.Check.Modes, "Passes whose metric is checked against the reference: train,validate,test")
	fs.String("store-kind", defaults.Store.Kind, "Run history store: memory|sqlite")
	fs.String("store-path", defaults.Store.Path, "SQLite run history path")
	fs.String("log-level", defaults.LogLevel, "Log level: debug|info|warn|error")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, err
		}
	}

	v.SetEnvPrefix("LAYERCHECK")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	if err := v.BindEnv("runtime.ort_library_path", "LAYERCHECK_ORT_LIB", "ORT_LIBRARY_PATH"); err != nil {
		return Config{}, fmt.Errorf("bind ort env vars: %w", err)
	}
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("layercheck")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("paths.fixture_path", c.Paths.FixturePath)
	v.SetDefault("paths.onnx_model", c.Paths.ONNXModel)
	v.SetDefault("paths.report_path", c.Paths.ReportPath)
	v.SetDefault("runtime.workers", c.Runtime.Workers)
	v.SetDefault("runtime.ort_library_path", c.Runtime.ORTLibraryPath)
	v.SetDefault("runtime.ort_version", c.Runtime.ORTVersion)
	v.SetDefault("check.seed", c.Check.Seed)
	v.SetDefault("check.samples", c.Check.Samples)
	v.SetDefault("check.dims", c.Check.Dims)
	v.SetDefault("check.mini_batch", c.Check.MiniBatch)
	v.SetDefault("check.epochs", c.Check.Epochs)
	v.SetDefault("check.factor", c.Check.Factor)
	v.SetDefault("check.gradient_check", c.Check.GradientCheck)
	v.SetDefault("check.backend", c.Check.Backend)
	v.SetDefault("check.modes", c.Check.Modes)
	v.SetDefault("store.kind", c.Store.Kind)
	v.SetDefault("store.path", c.Store.Path)
	v.SetDefault("log_level", c.LogLevel)
}

// bindFlags binds every registered config flag present in fs. Unchanged
// flags fall through to env, config file and defaults.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for _, fk := range flagKeys {
		f := fs.Lookup(fk.flag)
		if f == nil {
			continue
		}

		if err := v.BindPFlag(fk.key, f); err != nil {
			return fmt.Errorf("bind flag %q: %w", fk.flag, err)
		}
	}

	return nil
}
