//go:build !windows && !(js && wasm)

package onnx

import (
	"context"
	"fmt"
	"log/slog"

	ort "github.com/shota3506/onnxruntime-purego/onnxruntime"

	"github.com/example/go-layercheck/internal/runtime/tensor"
)

// DefaultAPIVersion is the ORT C API version requested when RunnerConfig
// leaves it unset.
const DefaultAPIVersion = 23

// RunnerConfig holds ORT library settings for creating runners.
type RunnerConfig struct {
	LibraryPath string
	APIVersion  uint32
}

// Runner owns one ORT session for a graph contract.
type Runner struct {
	graph   Graph
	runtime *ort.Runtime
	env     *ort.Env
	session *ort.Session
}

func NewRunner(graph Graph, cfg RunnerConfig) (*Runner, error) {
	if cfg.APIVersion == 0 {
		cfg.APIVersion = DefaultAPIVersion
	}

	rt, err := ort.NewRuntime(cfg.LibraryPath, cfg.APIVersion)
	if err != nil {
		return nil, fmt.Errorf("onnx: load runtime %s (api %d): %w", cfg.LibraryPath, cfg.APIVersion, err)
	}

	env, err := rt.NewEnv("layercheck-"+graph.Name, ort.LoggingLevelWarning)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("onnx: env for %q: %w", graph.Name, err)
	}

	session, err := rt.NewSession(env, graph.Path, nil)
	if err != nil {
		env.Close()
		_ = rt.Close()

		return nil, fmt.Errorf("onnx: open graph %q at %s: %w", graph.Name, graph.Path, err)
	}

	slog.Debug("onnx session opened", "graph", graph.Name, "path", graph.Path, "api", cfg.APIVersion)

	return &Runner{graph: graph, runtime: rt, env: env, session: session}, nil
}

// Run feeds inputs through the session and returns the contract outputs.
// Inputs must match the graph contract exactly.
func (r *Runner) Run(ctx context.Context, inputs map[string]*tensor.Tensor) (map[string]*tensor.Tensor, error) {
	if r.session == nil {
		return nil, fmt.Errorf("onnx: graph %q: runner closed", r.graph.Name)
	}

	if err := r.graph.checkInputs(inputs); err != nil {
		return nil, err
	}

	feeds := make(map[string]*ort.Value, len(inputs))
	defer closeORTValues(feeds)

	for name, t := range inputs {
		v, err := ort.NewTensorValue(r.runtime, t.RawData(), t.Shape())
		if err != nil {
			return nil, fmt.Errorf("onnx: input %q: %w", name, err)
		}

		feeds[name] = v
	}

	fetched, err := r.session.Run(ctx, feeds)
	if err != nil {
		return nil, fmt.Errorf("onnx: run %q: %w", r.graph.Name, err)
	}
	defer closeORTValues(fetched)

	results := make(map[string]*tensor.Tensor, len(r.graph.Outputs))
	for name, v := range fetched {
		if !r.graph.declaresOutput(name) {
			continue
		}

		t, err := float32Tensor(v)
		if err != nil {
			return nil, fmt.Errorf("onnx: output %q: %w", name, err)
		}

		results[name] = t
	}

	return results, nil
}

// Close releases all ORT resources. Safe to call multiple times.
func (r *Runner) Close() {
	if r.session != nil {
		r.session.Close()
		r.session = nil
	}

	if r.env != nil {
		r.env.Close()
		r.env = nil
	}

	if r.runtime != nil {
		_ = r.runtime.Close()
		r.runtime = nil
	}
}

func (r *Runner) Name() string { return r.graph.Name }

// float32Tensor copies a float ORT value into a tensor; the value is
// released by the caller.
func float32Tensor(v *ort.Value) (*tensor.Tensor, error) {
	elemType, err := v.GetTensorElementType()
	if err != nil {
		return nil, fmt.Errorf("element type: %w", err)
	}

	if elemType != ort.ONNXTensorElementDataTypeFloat {
		return nil, fmt.Errorf("element type %d, want float32", elemType)
	}

	data, shape, err := ort.GetTensorData[float32](v)
	if err != nil {
		return nil, err
	}

	return tensor.New(data, shape)
}

func closeORTValues(vals map[string]*ort.Value) {
	for _, v := range vals {
		if v != nil {
			v.Close()
		}
	}
}
