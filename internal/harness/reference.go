package harness

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/example/go-layercheck/internal/fixture"
	"github.com/example/go-layercheck/internal/runtime/ops"
	"github.com/example/go-layercheck/internal/runtime/tensor"
)

// GenerateFixtures draws the sample set, scale and bias for one run.
func GenerateFixtures(seed uint64, count int, dims []int64) (*fixture.Set, error) {
	set, err := fixture.Generate(seed, count, dims)
	if err != nil {
		return nil, fmt.Errorf("harness: generate fixtures: %w", err)
	}

	return set, nil
}

// ReferenceMetric is the mean over samples of ||scale ⊙ x + bias||².
// samples carries the sample index as its leading dimension; scale and bias
// hold one sample's elements. The affine step runs in float32 like the
// layer and the reduction runs in float64.
func ReferenceMetric(samples, scale, bias *tensor.Tensor) (float64, error) {
	if samples == nil || scale == nil || bias == nil {
		return 0, fmt.Errorf("harness: reference metric requires non-nil samples/scale/bias")
	}

	if samples.Rank() < 1 || samples.Shape()[0] == 0 {
		return 0, fmt.Errorf("harness: reference metric needs at least one sample, got shape %v", samples.Shape())
	}

	size := scale.ElemCount()
	if bias.ElemCount() != size || size == 0 {
		return 0, fmt.Errorf("harness: scale has %d elements, bias has %d", size, bias.ElemCount())
	}

	n := int(samples.Shape()[0])
	if samples.ElemCount() != n*size {
		return 0, fmt.Errorf("harness: samples shape %v does not hold %d-element samples", samples.Shape(), size)
	}

	y, err := ops.ScaleBias(samples, scale, bias)
	if err != nil {
		return 0, fmt.Errorf("harness: reference metric: %w", err)
	}

	norms := make([]float64, n)
	wide := make([]float64, size)

	for i := range n {
		row, err := y.Row(i)
		if err != nil {
			return 0, fmt.Errorf("harness: sample %d: %w", i, err)
		}

		for k, v := range row {
			wide[k] = float64(v)
		}

		norms[i] = floats.Dot(wide, wide)
	}

	return stat.Mean(norms, nil), nil
}

// SetReference computes ReferenceMetric over a fixture set.
func SetReference(set *fixture.Set) (float64, error) {
	return ReferenceMetric(set.Samples(), set.Scale(), set.Bias())
}
