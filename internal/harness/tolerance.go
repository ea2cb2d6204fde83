package harness

import (
	"fmt"
	"math"
)

const (
	// Float32Epsilon is the float32 unit round-off, 2^-23.
	Float32Epsilon = 1.0 / (1 << 23)
	// DefaultFactor absorbs reduction-order differences between the
	// reference and the engine for a few hundred summed elements.
	DefaultFactor = 8.0
)

// Tolerance returns factor * |value| * epsilon.
func Tolerance(value, epsilon, factor float64) float64 {
	return factor * math.Abs(value) * epsilon
}

// MismatchError is a metric outside its tolerance band.
type MismatchError struct {
	Metric   string
	Lower    float64
	Upper    float64
	Observed float64
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("harness: metric %q = %.9g outside expected range [%.9g, %.9g]", e.Metric, e.Observed, e.Lower, e.Upper)
}

// AssertWithinTolerance returns a *MismatchError when |got-want| > tol or
// got is NaN.
func AssertWithinTolerance(name string, got, want, tol float64) error {
	if diff := math.Abs(got - want); diff <= tol {
		return nil
	}

	return &MismatchError{Metric: name, Lower: want - tol, Upper: want + tol, Observed: got}
}
