package tensor

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Summary describes the value range of a tensor.
type Summary struct {
	Min    float32 `json:"min"`
	Max    float32 `json:"max"`
	AbsMax float32 `json:"abs_max"`
	Mean   float64 `json:"mean"`
}

// Summarize returns min, max, abs-max and mean of t. Mean is accumulated in
// float64.
func Summarize(t *Tensor) Summary {
	if t.ElemCount() == 0 {
		return Summary{}
	}

	s := Summary{Min: t.data[0], Max: t.data[0]}

	var sum float64

	for _, v := range t.data {
		s.Min = min(s.Min, v)
		s.Max = max(s.Max, v)
		s.AbsMax = max(s.AbsMax, math32.Abs(v))
		sum += float64(v)
	}

	s.Mean = sum / float64(len(t.data))

	return s
}

// CheckFinite returns an error naming the first NaN or infinite element.
func CheckFinite(t *Tensor) error {
	for i, v := range t.RawData() {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return fmt.Errorf("tensor: element %d is not finite (%v)", i, v)
		}
	}

	return nil
}
