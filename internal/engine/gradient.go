package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/example/go-layercheck/internal/runtime/ops"
)

// param is one trainable vector with its analytic gradient.
type param struct {
	name   string
	values []float64
	grad   []float64
}

// objective is the experiment graph evaluated in float64 over a fixed sample
// set: J = sum over branches of mean_i ||scale ⊙ (x0+s_i) + bias||². Each
// branch runs through its own layout kernels.
type objective struct {
	size     int
	workers  int
	samples  [][]float64
	x0       *param
	branches []gradBranch
}

type gradBranch struct {
	layout Layout
	scale  *param
	bias   *param
}

func newObjective(m *model, rd DataReader) (*objective, error) {
	obj := &objective{size: m.size, workers: m.workers}

	for i := range rd.NumSamples() {
		s, err := rd.Sample(i)
		if err != nil {
			return nil, fmt.Errorf("engine: gradient check sample %d: %w", i, err)
		}

		if len(s) != m.size {
			return nil, fmt.Errorf("engine: gradient check sample %d has %d values, want %d", i, len(s), m.size)
		}

		obj.samples = append(obj.samples, widen(s))
	}

	obj.x0 = &param{name: "input_weights", values: widen(m.x0), grad: make([]float64, m.size)}

	for _, b := range m.branches {
		obj.branches = append(obj.branches, gradBranch{
			layout: b.layout,
			scale:  &param{name: b.metric + "/scale", values: widen(b.scale), grad: make([]float64, m.size)},
			bias:   &param{name: b.metric + "/bias", values: widen(b.bias), grad: make([]float64, m.size)},
		})
	}

	return obj, nil
}

func (o *objective) params() []*param {
	out := []*param{o.x0}
	for _, b := range o.branches {
		out = append(out, b.scale, b.bias)
	}

	return out
}

func (o *objective) value() float64 {
	xs := make([][]float64, len(o.samples))
	for i, s := range o.samples {
		x := make([]float64, o.size)
		for k := range x {
			x[k] = o.x0.values[k] + s[k]
		}

		xs[i] = x
	}

	var total float64

	z := make([]float64, len(xs))
	for _, b := range o.branches {
		clear(z)
		layoutForward(b.layout, o.workers, o.size, xs, b.scale.values, b.bias.values, z)

		var sum float64
		for _, v := range z {
			sum += v
		}

		total += sum / float64(len(xs))
	}

	return total
}

// backward fills every param's grad with dJ/dparam.
func (o *objective) backward() {
	for _, p := range o.params() {
		clear(p.grad)
	}

	dz := 1 / float64(len(o.samples))
	x := make([]float64, o.size)
	y := make([]float64, o.size)
	dy := make([]float64, o.size)

	for _, b := range o.branches {
		for _, s := range o.samples {
			for k := range o.size {
				x[k] = o.x0.values[k] + s[k]
				y[k] = b.scale.values[k]*x[k] + b.bias.values[k]
			}

			ops.L2Norm2Backward(y, dz, dy, 0, o.size)
			// dx/dx0 is the identity, so the input gradient lands on x0.
			ops.ScaleBiasBackward(dy, x, b.scale.values, o.x0.grad, b.scale.grad, b.bias.grad, 0, o.size)
		}
	}
}

func checkExperimentGradients(ctx context.Context, m *model, rd DataReader, cfg CheckGradients) (*GradientReport, error) {
	obj, err := newObjective(m, rd)
	if err != nil {
		return nil, err
	}

	obj.backward()

	return compareGradients(ctx, obj.params(), obj.value, cfg)
}

// compareGradients checks each param's grad against a central difference of
// f. An entry fails when |analytic-numeric| > tolerance*(1+|analytic|).
func compareGradients(ctx context.Context, params []*param, f func() float64, cfg CheckGradients) (*GradientReport, error) {
	cfg = cfg.withDefaults()
	rep := &GradientReport{Step: cfg.Step, Tolerance: cfg.Tolerance}

	for _, p := range params {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("engine: gradient check: %w", err)
		}

		for j := range p.values {
			orig := p.values[j]

			p.values[j] = orig + cfg.Step
			fp := f()
			p.values[j] = orig - cfg.Step
			fm := f()
			p.values[j] = orig

			numeric := (fp - fm) / (2 * cfg.Step)
			analytic := p.grad[j]
			diff := math.Abs(analytic - numeric)

			rep.Checked++
			rep.MaxError = max(rep.MaxError, diff)

			if diff > cfg.Tolerance*(1+math.Abs(analytic)) || math.IsNaN(diff) {
				rep.Failed++
				if len(rep.Failures) < maxRecordedGradientFailures {
					rep.Failures = append(rep.Failures, GradientFailure{
						Weights:  p.name,
						Index:    j,
						Analytic: analytic,
						Numeric:  numeric,
					})
				}
			}
		}
	}

	return rep, nil
}

func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}

	return out
}
