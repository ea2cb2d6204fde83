// Package testutil provides shared skip helpers and numeric assertions for
// tests.
//
// Each skip helper calls tb.Skipf with a clear human-readable reason when
// the named prerequisite is absent, so integration tests remain runnable in
// partial environments without failing noisily.
//
// Typical usage:
//
//	func TestOnnxParity(t *testing.T) {
//	    testutil.RequireONNXRuntime(t)
//	    model := testutil.RequireONNXModel(t)
//	    ...
//	}
package testutil

import (
	"os"
	"testing"

	"github.com/example/go-layercheck/internal/harness"
)

// ortLibraryCandidates are the system locations probed when no env var names
// the ONNX Runtime library.
var ortLibraryCandidates = []string{
	"/usr/lib/libonnxruntime.so",
	"/usr/local/lib/libonnxruntime.so",
	"/usr/lib/x86_64-linux-gnu/libonnxruntime.so",
	"/opt/homebrew/lib/libonnxruntime.dylib",
}

// RequireONNXRuntime skips the test if no ONNX Runtime shared library can be
// located. It checks (in order): the ORT_LIBRARY_PATH env var, then the
// LAYERCHECK_ORT_LIB env var, then common system library paths. It returns
// the library path found.
func RequireONNXRuntime(tb testing.TB) string {
	tb.Helper()

	for _, env := range []string{"ORT_LIBRARY_PATH", "LAYERCHECK_ORT_LIB"} {
		if p := os.Getenv(env); p != "" {
			// #nosec G703 -- Integration tests intentionally accept explicit env-provided local library paths.
			if _, err := os.Stat(p); err == nil {
				return p
			}

			tb.Skipf("ONNX Runtime library not found at %s=%q", env, p)

			return ""
		}
	}

	for _, p := range ortLibraryCandidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	tb.Skipf("ONNX Runtime shared library not found; set ORT_LIBRARY_PATH or LAYERCHECK_ORT_LIB")

	return ""
}

// RequireONNXModel skips the test unless LAYERCHECK_ONNX_MODEL names an
// existing scale-bias graph file, and returns its path.
func RequireONNXModel(tb testing.TB) string {
	tb.Helper()

	p := os.Getenv("LAYERCHECK_ONNX_MODEL")
	if p == "" {
		tb.Skipf("LAYERCHECK_ONNX_MODEL not set; export a scale-bias ONNX graph to run this test")
		return ""
	}

	if _, err := os.Stat(p); err != nil {
		tb.Skipf("ONNX model not available at %q: %v", p, err)
		return ""
	}

	return p
}

// AssertWithinTolerance reports a test error when got is not within tol of
// want.
func AssertWithinTolerance(tb testing.TB, name string, got, want, tol float64) {
	tb.Helper()

	if err := harness.AssertWithinTolerance(name, got, want, tol); err != nil {
		tb.Errorf("%v (diff %.3g, tolerance %.3g)", err, got-want, tol)
	}
}
