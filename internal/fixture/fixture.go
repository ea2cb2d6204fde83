// Package fixture generates the seeded sample set and per-element
// scale/bias parameters shared by every execution variant.
package fixture

import (
	"errors"
	"fmt"

	"github.com/seehuhn/mt19937"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/example/go-layercheck/internal/runtime/tensor"
)

// ErrInvalidShape reports a sample count or sample shape that cannot produce
// a fixture set.
var ErrInvalidShape = errors.New("fixture: invalid shape")

// Defaults mirror the layer unit test this harness exercises.
const (
	DefaultSeed    = 20190723
	DefaultSamples = 29
)

// DefaultDims is the per-sample tensor shape.
var DefaultDims = []int64{7, 5, 3}

// Set is an immutable collection of samples plus the scale and bias tensors.
// It satisfies the engine's pull-based reader contract.
type Set struct {
	seed    uint64
	dims    []int64
	samples *tensor.Tensor // [count, size]
	scale   *tensor.Tensor // dims
	bias    *tensor.Tensor // dims
}

// Generate draws count standard-normal samples of shape dims, then a scale
// tensor from N(1, 1) and a bias tensor from N(0, 1), in that order, from a
// single Mersenne Twister seeded with seed. Equal inputs give bit-identical
// sets.
func Generate(seed uint64, count int, dims []int64) (*Set, error) {
	size, err := validate(count, dims)
	if err != nil {
		return nil, err
	}

	src := mt19937.New()
	src.Seed(int64(seed))
	standard := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	shifted := distuv.Normal{Mu: 1, Sigma: 1, Src: src}

	samples := draw(standard, count*size)
	scale := draw(shifted, size)
	bias := draw(standard, size)

	return newSet(seed, dims, samples, scale, bias)
}

func draw(dist distuv.Normal, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(dist.Rand())
	}

	return out
}

func validate(count int, dims []int64) (int, error) {
	if count <= 0 {
		return 0, fmt.Errorf("%w: sample count must be > 0, got %d", ErrInvalidShape, count)
	}

	if len(dims) == 0 {
		return 0, fmt.Errorf("%w: sample dims must not be empty", ErrInvalidShape)
	}

	for i, d := range dims {
		if d <= 0 {
			return 0, fmt.Errorf("%w: sample dim %d must be > 0, got %d", ErrInvalidShape, i, d)
		}
	}

	size, err := tensor.ElemCount(dims)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}

	if count > int(^uint(0)>>1)/size {
		return 0, fmt.Errorf("%w: %d samples of %d elements overflow", ErrInvalidShape, count, size)
	}

	return size, nil
}

func newSet(seed uint64, dims []int64, samples, scale, bias []float32) (*Set, error) {
	size := len(scale)
	count := len(samples) / size

	st, err := tensor.Adopt(samples, []int64{int64(count), int64(size)})
	if err != nil {
		return nil, fmt.Errorf("fixture: samples: %w", err)
	}

	sc, err := tensor.Adopt(scale, dims)
	if err != nil {
		return nil, fmt.Errorf("fixture: scale: %w", err)
	}

	bi, err := tensor.Adopt(bias, dims)
	if err != nil {
		return nil, fmt.Errorf("fixture: bias: %w", err)
	}

	return &Set{
		seed:    seed,
		dims:    append([]int64(nil), dims...),
		samples: st,
		scale:   sc,
		bias:    bi,
	}, nil
}

// Seed returns the seed the set was generated from.
func (s *Set) Seed() uint64 { return s.seed }

// Dims returns the per-sample tensor shape.
func (s *Set) Dims() []int64 { return append([]int64(nil), s.dims...) }

// SampleSize returns the element count of one sample.
func (s *Set) SampleSize() int { return s.scale.ElemCount() }

// NumSamples returns the number of samples.
func (s *Set) NumSamples() int { return int(s.samples.Shape()[0]) }

// SampleDims returns the flattened shape samples are served with.
func (s *Set) SampleDims() []int64 { return []int64{int64(s.SampleSize())} }

// Sample returns a copy of sample i.
func (s *Set) Sample(i int) ([]float32, error) {
	row, err := s.samples.Row(i)
	if err != nil {
		return nil, fmt.Errorf("fixture: sample %d: %w", i, err)
	}

	return append([]float32(nil), row...), nil
}

// Samples returns the [count, size] sample tensor. Callers must not modify it.
func (s *Set) Samples() *tensor.Tensor { return s.samples }

// Scale returns the scale tensor. Callers must not modify it.
func (s *Set) Scale() *tensor.Tensor { return s.scale }

// Bias returns the bias tensor. Callers must not modify it.
func (s *Set) Bias() *tensor.Tensor { return s.bias }

// Summary describes a fixture set for logs and the CLI.
type Summary struct {
	Seed    uint64         `json:"seed"`
	Count   int            `json:"count"`
	Dims    []int64        `json:"dims"`
	Samples tensor.Summary `json:"samples"`
	Scale   tensor.Summary `json:"scale"`
	Bias    tensor.Summary `json:"bias"`
}

func (s *Set) Summary() Summary {
	return Summary{
		Seed:    s.seed,
		Count:   s.NumSamples(),
		Dims:    s.Dims(),
		Samples: tensor.Summarize(s.samples),
		Scale:   tensor.Summarize(s.scale),
		Bias:    tensor.Summarize(s.bias),
	}
}
