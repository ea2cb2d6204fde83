package ops

import (
	"fmt"

	"github.com/example/go-layercheck/internal/runtime/tensor"
)

// ScaleBias computes y = scale ⊙ x + bias. scale and bias must share a shape
// and x must hold a whole number of such blocks (a single sample or a
// leading batch dimension).
func ScaleBias(x, scale, bias *tensor.Tensor) (*tensor.Tensor, error) {
	if x == nil || scale == nil || bias == nil {
		return nil, fmt.Errorf("ops: scale bias requires non-nil x/scale/bias")
	}

	if !tensor.EqualShape(scale.Shape(), bias.Shape()) {
		return nil, fmt.Errorf("ops: scale shape %v does not match bias shape %v", scale.Shape(), bias.Shape())
	}

	size := scale.ElemCount()
	if size == 0 {
		return nil, fmt.Errorf("ops: scale bias requires non-empty parameters")
	}

	if x.ElemCount()%size != 0 {
		return nil, fmt.Errorf("ops: scale bias input of %d elements is not a multiple of parameter size %d", x.ElemCount(), size)
	}

	in := x.RawData()
	out := make([]float32, len(in))
	s := scale.RawData()
	b := bias.RawData()

	for base := 0; base < len(in); base += size {
		ScaleBiasRange(out[base:base+size], in[base:base+size], s, b, 0, size)
	}

	return tensor.Adopt(out, x.Shape())
}

// ScaleBiasRange writes dst[k] = scale[k]*x[k] + bias[k] for k in [lo, hi).
// All slices must cover hi elements.
func ScaleBiasRange[T Float](dst, x, scale, bias []T, lo, hi int) {
	for k := lo; k < hi; k++ {
		dst[k] = scale[k]*x[k] + bias[k]
	}
}

// ScaleBiasBackward accumulates parameter gradients of y = scale ⊙ x + bias
// into dScale and dBias and the input gradient into dx for k in
// [lo, hi). dx may be nil when the input gradient is not needed.
func ScaleBiasBackward(dy, x, scale, dx, dScale, dBias []float64, lo, hi int) {
	for k := lo; k < hi; k++ {
		if dx != nil {
			dx[k] += dy[k] * scale[k]
		}

		dScale[k] += dy[k] * x[k]
		dBias[k] += dy[k]
	}
}
