package ops

import (
	"math"
	"strings"
	"testing"

	"github.com/chewxy/math32"

	"github.com/example/go-layercheck/internal/runtime/tensor"
)

func TestScaleBias(t *testing.T) {
	x := mustTensor(t, []float32{1, 2, 3, 4, 5, 6}, []int64{2, 3})
	scale := mustTensor(t, []float32{2, 0, -1}, []int64{3})
	bias := mustTensor(t, []float32{0.5, 1, 0}, []int64{3})

	out, err := ScaleBias(x, scale, bias)
	if err != nil {
		t.Fatalf("scale bias: %v", err)
	}

	if got := out.Shape(); len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Fatalf("shape = %v, want [2 3]", got)
	}

	want := []float32{2.5, 1, -3, 8.5, 1, -6}
	if got := out.Data(); !closeTo(got, want, 0) {
		t.Fatalf("data = %v, want %v", got, want)
	}
}

func TestScaleBiasIdentity(t *testing.T) {
	data := ramp(105)
	x := mustTensor(t, data, []int64{7, 5, 3})
	ones := make([]float32, 105)

	for i := range ones {
		ones[i] = 1
	}

	scale := mustTensor(t, ones, []int64{7, 5, 3})
	bias := mustTensor(t, make([]float32, 105), []int64{7, 5, 3})

	out, err := ScaleBias(x, scale, bias)
	if err != nil {
		t.Fatalf("scale bias: %v", err)
	}

	if !closeTo(out.RawData(), data, 0) {
		t.Fatal("unit scale and zero bias must leave input unchanged")
	}
}

func TestScaleBiasErrors(t *testing.T) {
	x := mustTensor(t, []float32{1, 2, 3, 4}, []int64{4})
	p3 := mustTensor(t, []float32{1, 1, 1}, []int64{3})
	p2 := mustTensor(t, []float32{1, 1}, []int64{2})

	_, err := ScaleBias(nil, p3, p3)
	requireErrContains(t, err, "non-nil")

	_, err = ScaleBias(x, p3, p2)
	requireErrContains(t, err, "does not match bias shape")

	_, err = ScaleBias(x, p3, p3)
	requireErrContains(t, err, "not a multiple")
}

func TestScaleBiasRangeTouchesOnlyRange(t *testing.T) {
	x := []float32{1, 1, 1, 1}
	s := []float32{2, 2, 2, 2}
	b := []float32{1, 1, 1, 1}
	dst := make([]float32, 4)

	ScaleBiasRange(dst, x, s, b, 1, 3)

	if !closeTo(dst, []float32{0, 3, 3, 0}, 0) {
		t.Fatalf("dst = %v, want [0 3 3 0]", dst)
	}
}

func TestScaleBiasRangeFloat64(t *testing.T) {
	dst := make([]float64, 3)

	ScaleBiasRange(dst, []float64{1, 2, 3}, []float64{0.5, 0.5, 2}, []float64{0, 1, -1}, 0, 3)

	for k, want := range []float64{0.5, 2, 5} {
		if dst[k] != want {
			t.Fatalf("dst = %v, want [0.5 2 5]", dst)
		}
	}
}

func TestScaleBiasBackward(t *testing.T) {
	dy := []float64{1, 2}
	x := []float64{3, -1}
	scale := []float64{0.5, 4}
	dx := make([]float64, 2)
	dScale := make([]float64, 2)
	dBias := make([]float64, 2)

	ScaleBiasBackward(dy, x, scale, dx, dScale, dBias, 0, 2)
	ScaleBiasBackward(dy, x, scale, nil, dScale, dBias, 0, 2)

	wantDX := []float64{0.5, 8}
	wantDScale := []float64{6, -4}
	wantDBias := []float64{2, 4}

	for k := range 2 {
		if dx[k] != wantDX[k] || dScale[k] != wantDScale[k] || dBias[k] != wantDBias[k] {
			t.Fatalf("k=%d: dx=%v dScale=%v dBias=%v", k, dx[k], dScale[k], dBias[k])
		}
	}
}

func TestL2Norm2(t *testing.T) {
	x := []float32{3, 4, -12}

	if got := L2Norm2(x); got != 169 {
		t.Fatalf("L2Norm2 = %v, want 169", got)
	}

	if got := L2Norm2Range(x, 0, 2); got != 25 {
		t.Fatalf("L2Norm2Range(0,2) = %v, want 25", got)
	}

	if got := L2Norm2([]float32(nil)); got != 0 {
		t.Fatalf("L2Norm2(nil) = %v, want 0", got)
	}
}

func TestL2Norm2RangeSumsToTotal(t *testing.T) {
	x := ramp(105)
	total := L2Norm2(x)

	var parts float64
	for lo := 0; lo < len(x); lo += 16 {
		parts += L2Norm2Range(x, lo, min(lo+16, len(x)))
	}

	if math.Abs(parts-total) > 1e-12*total {
		t.Fatalf("partitioned sum %v differs from total %v", parts, total)
	}
}

func TestL2Norm2Backward(t *testing.T) {
	y := []float64{1, -2, 3}
	dy := make([]float64, 3)

	L2Norm2Backward(y, 0.5, dy, 0, 3)

	for k, want := range []float64{1, -2, 3} {
		if dy[k] != want {
			t.Fatalf("dy[%d] = %v, want %v", k, dy[k], want)
		}
	}
}

// ramp returns n values cycling through [-8/17, 8/17].
func ramp(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32((i%17)-8) / 17
	}

	return out
}

func closeTo(got, want []float32, tol float32) bool {
	if len(got) != len(want) {
		return false
	}

	for i := range got {
		if math32.Abs(got[i]-want[i]) > tol {
			return false
		}
	}

	return true
}

func mustTensor(t *testing.T, data []float32, shape []int64) *tensor.Tensor {
	t.Helper()

	tt, err := tensor.New(data, shape)
	if err != nil {
		t.Fatalf("tensor.New(%v, %v): %v", data, shape, err)
	}

	return tt
}

func requireErrContains(t *testing.T, err error, substr string) {
	t.Helper()

	if err == nil || !strings.Contains(err.Error(), substr) {
		t.Fatalf("error = %v, want it to contain %q", err, substr)
	}
}
