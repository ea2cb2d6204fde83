package onnx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/example/go-layercheck/internal/config"
)

// RuntimeInfo describes the ONNX Runtime library a runner will load.
type RuntimeInfo struct {
	LibraryPath string
	Version     string
	// Source names where LibraryPath came from: "config", an env var name,
	// or "system".
	Source string
}

var versionPattern = regexp.MustCompile(`([0-9]+\.[0-9]+\.[0-9]+)`)

// libraryCandidates are probed when neither config nor env names a library.
var libraryCandidates = []string{
	"/usr/lib/libonnxruntime.so",
	"/usr/local/lib/libonnxruntime.so",
	"/usr/lib/x86_64-linux-gnu/libonnxruntime.so",
	"/usr/lib/aarch64-linux-gnu/libonnxruntime.so",
	"/opt/homebrew/lib/libonnxruntime.dylib",
	"/usr/local/lib/libonnxruntime.dylib",
}

// libraryEnv lists the env vars consulted after config, in order.
var libraryEnv = []string{"LAYERCHECK_ORT_LIB", "ORT_LIBRARY_PATH"}

// DetectRuntime resolves the ORT library path from config, env, then the
// system candidates. The version comes from config, ORT_VERSION, or the
// file name, and is "unknown" otherwise.
func DetectRuntime(cfg config.RuntimeConfig) (RuntimeInfo, error) {
	path, source := lookupLibrary(cfg)
	if path == "" {
		return RuntimeInfo{LibraryPath: "not found", Version: "unknown"}, errors.New("onnx: no ONNX Runtime library configured or found on the system")
	}

	info := RuntimeInfo{LibraryPath: path, Version: "unknown", Source: source}

	if _, err := os.Stat(path); err != nil {
		return info, fmt.Errorf("onnx: runtime library from %s: %w", source, err)
	}

	for _, v := range []string{cfg.ORTVersion, os.Getenv("ORT_VERSION"), inferVersionFromPath(path)} {
		if v != "" {
			info.Version = v
			break
		}
	}

	return info, nil
}

func lookupLibrary(cfg config.RuntimeConfig) (path, source string) {
	if cfg.ORTLibraryPath != "" {
		return cfg.ORTLibraryPath, "config"
	}

	for _, key := range libraryEnv {
		if v := os.Getenv(key); v != "" {
			return v, key
		}
	}

	for _, c := range libraryCandidates {
		if _, err := os.Stat(c); err == nil {
			return c, "system"
		}
	}

	return "", ""
}

func inferVersionFromPath(path string) string {
	if m := versionPattern.FindStringSubmatch(filepath.Base(path)); len(m) == 2 {
		return m[1]
	}

	return ""
}
