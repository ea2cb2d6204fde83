// Package doctor provides environment preflight checks for layercheck.
package doctor

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/cpu"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// MinORTMinor is the lowest ONNX Runtime 1.x release exposing the C API
// version the runner requests.
const MinORTMinor = 23

// RuntimeFunc returns the detected ONNX Runtime library path and version.
type RuntimeFunc func() (path, version string, err error)

// ProbeFunc performs a check and returns nil on success.
type ProbeFunc func() error

// Config holds injectable dependencies for each doctor check.
type Config struct {
	// Runtime detects the ONNX Runtime shared library.
	Runtime RuntimeFunc
	// SkipRuntime skips the runtime check (local backend mode).
	SkipRuntime bool
	// ModelFiles is the list of ONNX graph paths to verify on disk.
	ModelFiles []string
	// FixturePath names a fixture file to load; empty skips the check.
	FixturePath string
	// LoadFixture loads the fixture file at FixturePath.
	LoadFixture func(path string) error
	// Store opens and initialises the run store; nil skips the check.
	Store ProbeFunc
	// Features reports CPU features; nil uses the host's.
	Features func() []Feature
}

// Feature is a named CPU capability.
type Feature struct {
	Name    string
	Present bool
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	// ---- ONNX Runtime -----------------------------------------------------
	switch {
	case cfg.SkipRuntime:
		fmt.Fprintf(w, "%s onnx runtime: skipped\n", PassMark)
	case cfg.Runtime == nil:
		res.fail("onnx runtime: no detector configured")
		fmt.Fprintf(w, "%s onnx runtime: no detector configured\n", FailMark)
	default:
		path, ver, err := cfg.Runtime()
		if err != nil {
			res.fail(fmt.Sprintf("onnx runtime: %v", err))
			fmt.Fprintf(w, "%s onnx runtime: not found (%v)\n", FailMark, err)
		} else if ver == "" || ver == "unknown" {
			fmt.Fprintf(w, "%s onnx runtime: %s (version unknown)\n", PassMark, path)
		} else if verErr := checkORTVersion(ver); verErr != nil {
			res.fail(fmt.Sprintf("onnx runtime version: %v", verErr))
			fmt.Fprintf(w, "%s onnx runtime %s: %v\n", FailMark, ver, verErr)
		} else {
			fmt.Fprintf(w, "%s onnx runtime: %s (%s)\n", PassMark, path, ver)
		}
	}

	// ---- model files ------------------------------------------------------
	for _, path := range cfg.ModelFiles {
		if _, err := os.Stat(path); err != nil {
			res.fail(fmt.Sprintf("model file %q: %v", path, err))
			fmt.Fprintf(w, "%s model file %s: not found\n", FailMark, path)
		} else {
			fmt.Fprintf(w, "%s model file: %s\n", PassMark, path)
		}
	}

	// ---- fixture file -----------------------------------------------------
	if cfg.FixturePath != "" && cfg.LoadFixture != nil {
		if err := cfg.LoadFixture(cfg.FixturePath); err != nil {
			res.fail(fmt.Sprintf("fixture file %q: %v", cfg.FixturePath, err))
			fmt.Fprintf(w, "%s fixture file %s: %v\n", FailMark, cfg.FixturePath, err)
		} else {
			fmt.Fprintf(w, "%s fixture file: %s\n", PassMark, cfg.FixturePath)
		}
	}

	// ---- run store --------------------------------------------------------
	if cfg.Store != nil {
		if err := cfg.Store(); err != nil {
			res.fail(fmt.Sprintf("run store: %v", err))
			fmt.Fprintf(w, "%s run store: %v\n", FailMark, err)
		} else {
			fmt.Fprintf(w, "%s run store: ok\n", PassMark)
		}
	}

	// ---- CPU features (informational) -------------------------------------
	features := cfg.Features
	if features == nil {
		features = HostFeatures
	}

	fmt.Fprintf(w, "%s cpu features: %s\n", PassMark, formatFeatures(features()))

	return res
}

// HostFeatures lists the SIMD capabilities relevant to float32 kernels.
func HostFeatures() []Feature {
	return []Feature{
		{Name: "avx2", Present: cpu.X86.HasAVX2},
		{Name: "fma", Present: cpu.X86.HasFMA},
		{Name: "avx512f", Present: cpu.X86.HasAVX512F},
		{Name: "asimd", Present: cpu.ARM64.HasASIMD},
	}
}

func formatFeatures(fs []Feature) string {
	var on []string
	for _, f := range fs {
		if f.Present {
			on = append(on, f.Name)
		}
	}

	if len(on) == 0 {
		return "none detected"
	}

	return strings.Join(on, " ")
}

// checkORTVersion returns an error if ver is not a 1.x release at or above
// 1.MinORTMinor. ver is expected to be a string like "1.23.2".
func checkORTVersion(ver string) error {
	major, minor, err := parseMajorMinor(ver)
	if err != nil {
		return fmt.Errorf("cannot parse %q: %w", ver, err)
	}
	if major != 1 {
		return fmt.Errorf("requires ONNX Runtime 1.x, got %d", major)
	}
	if minor < MinORTMinor {
		return fmt.Errorf("requires ONNX Runtime >=1.%d, got 1.%d", MinORTMinor, minor)
	}
	return nil
}

func parseMajorMinor(ver string) (major, minor int, err error) {
	parts := strings.SplitN(ver, ".", 3)
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("unexpected version format %q", ver)
	}
	major, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad major in %q: %w", ver, err)
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("bad minor in %q: %w", ver, err)
	}
	return major, minor, nil
}
