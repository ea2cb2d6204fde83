//go:build windows || (js && wasm)

package onnx

import (
	"context"
	"fmt"

	"github.com/example/go-layercheck/internal/runtime/tensor"
)

// RunnerConfig holds ORT library settings for creating runners.
// On this platform native ORT runner support is unavailable.
type RunnerConfig struct {
	LibraryPath string
	APIVersion  uint32
}

// Runner is unavailable on this platform. Use NewEvaluator with a custom
// GraphRunner implementation.
type Runner struct {
	name string
}

// NewRunner always returns an error on this platform.
func NewRunner(graph Graph, _ RunnerConfig) (*Runner, error) {
	return nil, fmt.Errorf("native onnx runner is unavailable on this platform for graph %q", graph.Name)
}

// Run always returns an error on this platform.
func (r *Runner) Run(_ context.Context, _ map[string]*tensor.Tensor) (map[string]*tensor.Tensor, error) {
	return nil, fmt.Errorf("native onnx runner is unavailable on this platform for graph %q", r.name)
}

// Close is a no-op on this platform.
func (r *Runner) Close() {}

// Name returns the graph name.
func (r *Runner) Name() string {
	return r.name
}
