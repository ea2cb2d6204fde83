package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/example/go-layercheck/internal/runtime/tensor"
)

// DataReader serves samples by index.
type DataReader interface {
	Sample(i int) ([]float32, error)
	NumSamples() int
	SampleDims() []int64
}

// Initializer produces the initial values of a weights object.
type Initializer interface {
	Initialize(n int) ([]float32, error)
}

// ConstantInitializer fills every value with Value.
type ConstantInitializer struct {
	Value float32
}

func (c ConstantInitializer) Initialize(n int) ([]float32, error) {
	out := make([]float32, n)
	for i := range out {
		out[i] = c.Value
	}

	return out, nil
}

// ValueInitializer copies an explicit value list, which must have exactly
// the requested length.
type ValueInitializer struct {
	Values []float32
}

func (v ValueInitializer) Initialize(n int) ([]float32, error) {
	if len(v.Values) != n {
		return nil, fmt.Errorf("engine: value initializer has %d values, weights need %d", len(v.Values), n)
	}

	return append([]float32(nil), v.Values...), nil
}

// Weights is a trainable parameter tensor.
type Weights struct {
	Name string
	Init Initializer
}

// Values materialises the weights as n float32 values.
func (w Weights) Values(n int) ([]float32, error) {
	if w.Init == nil {
		return nil, fmt.Errorf("engine: weights %q have no initializer", w.Name)
	}

	values, err := w.Init.Initialize(n)
	if err != nil {
		return nil, fmt.Errorf("engine: weights %q: %w", w.Name, err)
	}

	for i, v := range values {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("engine: weights %q value %d is not finite", w.Name, i)
		}
	}

	return values, nil
}

// Branch is one scale-bias layer followed by an L2-norm-squared metric. Its
// weights hold the scale values followed by the bias values.
type Branch struct {
	Metric  string
	Layout  Layout
	Weights Weights
}

// CheckMetric bounds a metric after passes of the listed modes. An empty
// Modes list applies to every mode.
type CheckMetric struct {
	Metric         string
	Lower          float64
	Upper          float64
	ErrorOnFailure bool
	Modes          []Mode
}

func (c CheckMetric) applies(mode Mode) bool {
	if len(c.Modes) == 0 {
		return true
	}

	for _, m := range c.Modes {
		if m == mode {
			return true
		}
	}

	return false
}

// CheckGradients compares analytic gradients against central finite
// differences after the test pass. Zero Step or Tolerance select defaults.
type CheckGradients struct {
	Step           float64
	Tolerance      float64
	ErrorOnFailure bool
}

const (
	DefaultGradientStep      = 1e-4
	DefaultGradientTolerance = 1e-6
)

func (c CheckGradients) withDefaults() CheckGradients {
	if c.Step <= 0 {
		c.Step = DefaultGradientStep
	}

	if c.Tolerance <= 0 {
		c.Tolerance = DefaultGradientTolerance
	}

	return c
}

// Experiment describes one evaluation: readers per mode, the input reshape,
// the scale-bias branches and the checks to run.
type Experiment struct {
	Readers   map[Mode]DataReader
	InputDims []int64
	// InputWeights is added to every input sample; nil means all zeros.
	InputWeights  *Weights
	Branches      []Branch
	MiniBatchSize int
	Epochs        int
	MetricChecks  []CheckMetric
	GradientCheck *CheckGradients
}

// ErrInvalidExperiment wraps every validation failure.
var ErrInvalidExperiment = errors.New("engine: invalid experiment")

// Validate checks the experiment and returns the per-sample element count.
func (e Experiment) Validate() (int, error) {
	size, err := tensor.ElemCount(e.InputDims)
	if err != nil || len(e.InputDims) == 0 || size == 0 {
		return 0, fmt.Errorf("%w: input dims %v", ErrInvalidExperiment, e.InputDims)
	}

	test, ok := e.Readers[ModeTesting]
	if !ok || test == nil {
		return 0, fmt.Errorf("%w: no test reader", ErrInvalidExperiment)
	}

	if e.Epochs < 0 {
		return 0, fmt.Errorf("%w: epochs must be >= 0, got %d", ErrInvalidExperiment, e.Epochs)
	}

	if e.Epochs > 0 {
		if train, ok := e.Readers[ModeTraining]; !ok || train == nil {
			return 0, fmt.Errorf("%w: %d training epochs need a train reader", ErrInvalidExperiment, e.Epochs)
		}
	}

	for mode, rd := range e.Readers {
		if rd == nil {
			continue
		}

		if rd.NumSamples() <= 0 {
			return 0, fmt.Errorf("%w: %s reader has no samples", ErrInvalidExperiment, mode)
		}

		n, err := tensor.ElemCount(rd.SampleDims())
		if err != nil || n != size {
			return 0, fmt.Errorf("%w: %s reader sample dims %v cannot reshape to %v", ErrInvalidExperiment, mode, rd.SampleDims(), e.InputDims)
		}
	}

	if e.MiniBatchSize <= 0 {
		return 0, fmt.Errorf("%w: mini-batch size must be > 0, got %d", ErrInvalidExperiment, e.MiniBatchSize)
	}

	if len(e.Branches) == 0 {
		return 0, fmt.Errorf("%w: no scale-bias branches", ErrInvalidExperiment)
	}

	metrics := make(map[string]bool, len(e.Branches))
	for i, b := range e.Branches {
		if b.Metric == "" {
			return 0, fmt.Errorf("%w: branch %d has no metric name", ErrInvalidExperiment, i)
		}

		if metrics[b.Metric] {
			return 0, fmt.Errorf("%w: duplicate metric %q", ErrInvalidExperiment, b.Metric)
		}

		if b.Layout != DataParallel && b.Layout != ModelParallel {
			return 0, fmt.Errorf("%w: branch %q has unknown layout %v", ErrInvalidExperiment, b.Metric, b.Layout)
		}

		metrics[b.Metric] = true
	}

	for _, c := range e.MetricChecks {
		if !metrics[c.Metric] {
			return 0, fmt.Errorf("%w: check references unknown metric %q", ErrInvalidExperiment, c.Metric)
		}

		if c.Lower > c.Upper {
			return 0, fmt.Errorf("%w: check on %q has lower bound %g above upper bound %g", ErrInvalidExperiment, c.Metric, c.Lower, c.Upper)
		}
	}

	return size, nil
}
