package engine

import (
	"fmt"

	"github.com/example/go-layercheck/internal/runtime/ops"
)

type branchParams struct {
	metric string
	layout Layout
	scale  []float32
	bias   []float32
}

// model is a materialised experiment graph.
type model struct {
	size     int
	x0       []float32
	branches []branchParams
	workers  int
}

func newModel(exp Experiment, size, workers int) (*model, error) {
	in := Weights{Name: "input_weights", Init: ConstantInitializer{}}
	if exp.InputWeights != nil {
		in = *exp.InputWeights
	}

	x0, err := in.Values(size)
	if err != nil {
		return nil, err
	}

	m := &model{size: size, x0: x0, workers: max(workers, 1)}

	for _, b := range exp.Branches {
		values, err := b.Weights.Values(2 * size)
		if err != nil {
			return nil, fmt.Errorf("engine: branch %q: %w", b.Metric, err)
		}

		m.branches = append(m.branches, branchParams{
			metric: b.Metric,
			layout: b.Layout,
			scale:  values[:size:size],
			bias:   values[size:],
		})
	}

	return m, nil
}

// forward evaluates every branch on a mini-batch of inputs (each already
// offset by x0) and returns z indexed by branch then sample.
func (m *model) forward(xs [][]float32) [][]float64 {
	out := make([][]float64, len(m.branches))

	for bi := range m.branches {
		b := &m.branches[bi]
		z := make([]float64, len(xs))
		layoutForward(b.layout, m.workers, m.size, xs, b.scale, b.bias, z)
		out[bi] = z
	}

	return out
}

// layoutForward writes z[i] = ||scale ⊙ xs[i] + bias||² using the
// partitioning of layout. z must be zeroed.
func layoutForward[T ops.Float](layout Layout, workers, size int, xs [][]T, scale, bias []T, z []float64) {
	switch layout {
	case ModelParallel:
		forwardModelParallel(workers, size, xs, scale, bias, z)
	default:
		forwardDataParallel(workers, size, xs, scale, bias, z)
	}
}

// forwardDataParallel splits the samples across workers.
func forwardDataParallel[T ops.Float](workers, size int, xs [][]T, scale, bias []T, z []float64) {
	parallelFor(len(xs), workers, func(lo, hi int) {
		y := make([]T, size)
		for i := lo; i < hi; i++ {
			ops.ScaleBiasRange(y, xs[i], scale, bias, 0, size)
			z[i] = ops.L2Norm2(y)
		}
	})
}

// forwardModelParallel splits the element range across workers; every
// worker sees every sample.
func forwardModelParallel[T ops.Float](workers, size int, xs [][]T, scale, bias []T, z []float64) {
	ranges := partitionRanges(size, workers)
	partial := make([][]float64, len(ranges))
	ys := make([]T, len(xs)*size)

	runRanges(ranges, func(p, lo, hi int) {
		sums := make([]float64, len(xs))
		for i, x := range xs {
			y := ys[i*size : (i+1)*size]
			ops.ScaleBiasRange(y, x, scale, bias, lo, hi)
			sums[i] = ops.L2Norm2Range(y, lo, hi)
		}

		partial[p] = sums
	})

	// Reduce in partition order so the result is fixed for a worker count.
	for _, sums := range partial {
		for i, s := range sums {
			z[i] += s
		}
	}
}

// offsetInput writes x0 + sample into dst.
func (m *model) offsetInput(dst, sample []float32) {
	for k := range dst {
		dst[k] = m.x0[k] + sample[k]
	}
}
