// Package onnx evaluates the scale-bias test graph through ONNX Runtime.
package onnx

import (
	"context"
	"fmt"

	"github.com/example/go-layercheck/internal/runtime/tensor"
)

// Node names of the scale-bias graph contract.
const (
	InputX     = "x"
	InputScale = "scale"
	InputBias  = "bias"
	OutputZ    = "z"
)

// NodeInfo describes one graph input or output. Symbolic dimensions are
// strings.
type NodeInfo struct {
	Name  string `json:"name"`
	DType string `json:"dtype"`
	Shape []any  `json:"shape"`
}

// Graph is an ONNX file together with the node contract it must satisfy.
type Graph struct {
	Name    string
	Path    string
	Inputs  []NodeInfo
	Outputs []NodeInfo
}

// ScaleBiasGraph is the contract every scale-bias graph implements:
// z[b] = sum_k (scale[k]*x[b,k] + bias[k])^2.
func ScaleBiasGraph(path string) Graph {
	return Graph{
		Name: "scale_bias",
		Path: path,
		Inputs: []NodeInfo{
			{Name: InputX, DType: "float", Shape: []any{"batch", "size"}},
			{Name: InputScale, DType: "float", Shape: []any{"size"}},
			{Name: InputBias, DType: "float", Shape: []any{"size"}},
		},
		Outputs: []NodeInfo{
			{Name: OutputZ, DType: "float", Shape: []any{"batch"}},
		},
	}
}

// checkInputs reports the first contract input missing from inputs, or one
// that inputs carry beyond the contract.
func (g Graph) checkInputs(inputs map[string]*tensor.Tensor) error {
	for _, in := range g.Inputs {
		if inputs[in.Name] == nil {
			return fmt.Errorf("onnx: graph %q: input %q missing", g.Name, in.Name)
		}
	}

	if len(inputs) != len(g.Inputs) {
		return fmt.Errorf("onnx: graph %q takes %d inputs, got %d", g.Name, len(g.Inputs), len(inputs))
	}

	return nil
}

// declaresOutput reports whether name is one of the contract outputs.
func (g Graph) declaresOutput(name string) bool {
	for _, out := range g.Outputs {
		if out.Name == name {
			return true
		}
	}

	return false
}

// GraphRunner runs one graph with named inputs.
type GraphRunner interface {
	Run(ctx context.Context, inputs map[string]*tensor.Tensor) (map[string]*tensor.Tensor, error)
	Name() string
	Close()
}

// perSampleOutput extracts z as one float64 per sample.
func perSampleOutput(outputs map[string]*tensor.Tensor, batch int) ([]float64, error) {
	z, ok := outputs[OutputZ]
	if !ok || z == nil {
		return nil, fmt.Errorf("onnx: graph output %q missing", OutputZ)
	}

	if z.ElemCount() != batch {
		return nil, fmt.Errorf("onnx: graph output %q has shape %v, want %d per-sample values", OutputZ, z.Shape(), batch)
	}

	out := make([]float64, batch)
	for i, v := range z.RawData() {
		out[i] = float64(v)
	}

	return out, nil
}
