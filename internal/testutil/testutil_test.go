package testutil_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/go-layercheck/internal/testutil"
)

func TestRequireONNXRuntime_SkipsWhenAbsent(t *testing.T) {
	// Ensure env vars point nowhere.
	t.Setenv("ORT_LIBRARY_PATH", "/nonexistent/libonnxruntime.so")

	skipped := false
	fakeT := &skipTracker{TB: t, onSkip: func() { skipped = true }}
	testutil.RequireONNXRuntime(fakeT)
	if !skipped {
		t.Error("expected RequireONNXRuntime to skip when library is absent")
	}
}

func TestRequireONNXRuntime_FindsEnvPath(t *testing.T) {
	lib := filepath.Join(t.TempDir(), "libonnxruntime.so")
	if err := os.WriteFile(lib, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv("ORT_LIBRARY_PATH", "")
	t.Setenv("LAYERCHECK_ORT_LIB", lib)

	fakeT := &skipTracker{TB: t, onSkip: func() { t.Error("unexpected skip") }}
	if got := testutil.RequireONNXRuntime(fakeT); got != lib {
		t.Errorf("got %q, want %q", got, lib)
	}
}

func TestRequireONNXModel_SkipsWhenUnset(t *testing.T) {
	t.Setenv("LAYERCHECK_ONNX_MODEL", "")

	skipped := false
	fakeT := &skipTracker{TB: t, onSkip: func() { skipped = true }}
	testutil.RequireONNXModel(fakeT)
	if !skipped {
		t.Error("expected RequireONNXModel to skip when env var is unset")
	}
}

func TestRequireONNXModel_SkipsWhenMissing(t *testing.T) {
	t.Setenv("LAYERCHECK_ONNX_MODEL", filepath.Join(t.TempDir(), "missing.onnx"))

	skipped := false
	fakeT := &skipTracker{TB: t, onSkip: func() { skipped = true }}
	testutil.RequireONNXModel(fakeT)
	if !skipped {
		t.Error("expected RequireONNXModel to skip when file is absent")
	}
}

func TestAssertWithinTolerance(t *testing.T) {
	rec := &errorRecorder{TB: t}
	testutil.AssertWithinTolerance(rec, "m", 10.0005, 10, 1e-3)
	if len(rec.errs) != 0 {
		t.Fatalf("unexpected errors: %v", rec.errs)
	}

	testutil.AssertWithinTolerance(rec, "m", 10.01, 10, 1e-3)
	if len(rec.errs) != 1 {
		t.Fatalf("want 1 error, got %v", rec.errs)
	}
}

// skipTracker is a minimal testing.TB implementation that intercepts Skip calls.
type skipTracker struct {
	testing.TB
	onSkip func()
}

func (s *skipTracker) Helper() {}

func (s *skipTracker) Skipf(_ string, _ ...any) {
	s.onSkip()
	// Do NOT call s.TB.Skip; that would actually skip the outer test.
}

type errorRecorder struct {
	testing.TB
	errs []string
}

func (r *errorRecorder) Helper() {}

func (r *errorRecorder) Errorf(format string, args ...any) {
	r.errs = append(r.errs, fmt.Sprintf(format, args...))
}
