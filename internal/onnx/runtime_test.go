package onnx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/example/go-layercheck/internal/config"
)

func TestDetectRuntimePrefersLAYERCHECKORTLIB(t *testing.T) {
	tmp := t.TempDir()
	lib := filepath.Join(tmp, "libonnxruntime.so")
	if err := os.WriteFile(lib, []byte("fake"), 0o644); err != nil {
		t.Fatalf("write fake lib: %v", err)
	}

	t.Setenv("LAYERCHECK_ORT_LIB", lib)
	t.Setenv("ORT_LIBRARY_PATH", filepath.Join(tmp, "does-not-exist"))

	info, err := DetectRuntime(config.RuntimeConfig{})
	if err != nil {
		t.Fatalf("DetectRuntime failed: %v", err)
	}
	if info.LibraryPath != lib {
		t.Fatalf("expected %q, got %q", lib, info.LibraryPath)
	}

	if info.Source != "LAYERCHECK_ORT_LIB" {
		t.Errorf("Source = %q; want LAYERCHECK_ORT_LIB", info.Source)
	}
}

func TestDetectRuntimeConfigWins(t *testing.T) {
	tmp := t.TempDir()
	lib := filepath.Join(tmp, "libonnxruntime.so.1.22.0")
	if err := os.WriteFile(lib, []byte("fake"), 0o644); err != nil {
		t.Fatalf("write fake lib: %v", err)
	}

	t.Setenv("LAYERCHECK_ORT_LIB", filepath.Join(tmp, "other.so"))
	t.Setenv("ORT_VERSION", "")

	info, err := DetectRuntime(config.RuntimeConfig{ORTLibraryPath: lib})
	if err != nil {
		t.Fatalf("DetectRuntime failed: %v", err)
	}

	if info.LibraryPath != lib {
		t.Errorf("LibraryPath = %q; want %q", info.LibraryPath, lib)
	}

	if info.Version != "1.22.0" {
		t.Errorf("Version = %q; want 1.22.0", info.Version)
	}

	if info.Source != "config" {
		t.Errorf("Source = %q; want config", info.Source)
	}
}

func TestDetectRuntimeExplicitVersion(t *testing.T) {
	lib := filepath.Join(t.TempDir(), "libonnxruntime.so.1.22.0")
	if err := os.WriteFile(lib, []byte("fake"), 0o644); err != nil {
		t.Fatalf("write fake lib: %v", err)
	}

	t.Setenv("ORT_VERSION", "1.24.0")

	info, err := DetectRuntime(config.RuntimeConfig{ORTLibraryPath: lib})
	if err != nil {
		t.Fatalf("DetectRuntime failed: %v", err)
	}

	if info.Version != "1.24.0" {
		t.Errorf("Version = %q; want ORT_VERSION to beat the file name", info.Version)
	}
}

func TestDetectRuntimeMissingPath(t *testing.T) {
	_, err := DetectRuntime(config.RuntimeConfig{ORTLibraryPath: filepath.Join(t.TempDir(), "nope.so")})
	if err == nil {
		t.Fatal("expected error for missing library")
	}
}

func TestInferVersionFromPath(t *testing.T) {
	tests := map[string]string{
		"/usr/lib/libonnxruntime.so.1.23.2":     "1.23.2",
		"onnxruntime-linux-x64-1.20.0/lib/x.so": "",
		"libonnxruntime.1.19.0.dylib":           "1.19.0",
		"libonnxruntime.so":                     "",
	}

	for in, want := range tests {
		if got := inferVersionFromPath(in); got != want {
			t.Errorf("inferVersionFromPath(%q) = %q; want %q", in, got, want)
		}
	}
}
