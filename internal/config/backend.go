package config

import (
	"fmt"
	"strings"
)

const (
	BackendLocal = "local"
	BackendONNX  = "onnx"
)

func NormalizeBackend(raw string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(raw))
	if backend == "" {
		backend = BackendLocal
	}
	switch backend {
	case BackendLocal, BackendONNX:
		return backend, nil
	case "go", "native":
		return BackendLocal, nil
	case "ort", "onnxruntime":
		return BackendONNX, nil
	default:
		return "", fmt.Errorf(
			"invalid backend %q (expected %s|%s)",
			raw,
			BackendLocal,
			BackendONNX,
		)
	}
}
