package ops

// Float is the element type the range kernels accept. The engine runs them
// in float32 and the gradient check runs them in float64.
type Float interface {
	~float32 | ~float64
}

// L2Norm2 returns the sum of squares of x, accumulated in float64.
func L2Norm2[T Float](x []T) float64 {
	return L2Norm2Range(x, 0, len(x))
}

// L2Norm2Range returns the sum of squares of x[lo:hi].
func L2Norm2Range[T Float](x []T, lo, hi int) float64 {
	var sum float64

	for _, v := range x[lo:hi] {
		f := float64(v)
		sum += f * f
	}

	return sum
}

// L2Norm2Backward writes dy[k] = 2*y[k]*dz for k in [lo, hi).
func L2Norm2Backward(y []float64, dz float64, dy []float64, lo, hi int) {
	for k := lo; k < hi; k++ {
		dy[k] = 2 * y[k] * dz
	}
}
