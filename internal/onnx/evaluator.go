package onnx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/example/go-layercheck/internal/engine"
	"github.com/example/go-layercheck/internal/runtime/tensor"
)

// Evaluator drives experiments through a scale-bias graph. The graph owns
// its data layout, so branch layouts only label the metrics. ORT exposes no
// gradients; a requested gradient check is reported as skipped.
type Evaluator struct {
	runner GraphRunner
}

func NewEvaluator(runner GraphRunner) *Evaluator {
	return &Evaluator{runner: runner}
}

func (e *Evaluator) Name() string { return "onnx:" + e.runner.Name() }

// Close releases the underlying runner.
func (e *Evaluator) Close() { e.runner.Close() }

type branchInputs struct {
	metric string
	scale  *tensor.Tensor
	bias   *tensor.Tensor
}

func (e *Evaluator) Evaluate(ctx context.Context, exp engine.Experiment) (*engine.Report, error) {
	size, err := exp.Validate()
	if err != nil {
		return nil, err
	}

	x0 := make([]float32, size)
	if exp.InputWeights != nil {
		if x0, err = exp.InputWeights.Values(size); err != nil {
			return nil, err
		}
	}

	branches := make([]branchInputs, 0, len(exp.Branches))
	for _, b := range exp.Branches {
		values, err := b.Weights.Values(2 * size)
		if err != nil {
			return nil, fmt.Errorf("onnx: branch %q: %w", b.Metric, err)
		}

		scale, err := tensor.New(values[:size], []int64{int64(size)})
		if err != nil {
			return nil, err
		}

		bias, err := tensor.New(values[size:], []int64{int64(size)})
		if err != nil {
			return nil, err
		}

		branches = append(branches, branchInputs{metric: b.Metric, scale: scale, bias: bias})
	}

	rep := engine.NewReport()

	var checkErrs []error

	modes := make([]engine.Mode, 0, exp.Epochs+1)
	for range exp.Epochs {
		modes = append(modes, engine.ModeTraining)
	}

	modes = append(modes, engine.ModeTesting)

	for _, mode := range modes {
		if err := e.runPass(ctx, exp, mode, size, x0, branches, rep); err != nil {
			return nil, err
		}

		failures, err := engine.ApplyMetricChecks(mode, rep.Metrics[mode], exp.MetricChecks)
		rep.CheckFailures = append(rep.CheckFailures, failures...)

		var ce *engine.CheckError
		if errors.As(err, &ce) {
			checkErrs = append(checkErrs, err)
		} else if err != nil {
			return nil, err
		}
	}

	if exp.GradientCheck != nil {
		rep.Gradient = &engine.GradientReport{Skipped: true, Reason: "onnx runtime exposes no gradients"}
		slog.Warn("gradient check skipped", "engine", e.Name())
	}

	return rep, errors.Join(checkErrs...)
}

func (e *Evaluator) runPass(ctx context.Context, exp engine.Experiment, mode engine.Mode, size int, x0 []float32, branches []branchInputs, rep *engine.Report) error {
	rd := exp.Readers[mode]
	n := rd.NumSamples()
	sums := make([]float64, len(branches))
	batches := 0

	for start := 0; start < n; start += exp.MiniBatchSize {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("onnx: %s pass: %w", mode, err)
		}

		end := min(start+exp.MiniBatchSize, n)

		x, err := loadBatch(rd, start, end, size, x0)
		if err != nil {
			return fmt.Errorf("onnx: %s pass: %w", mode, err)
		}

		for bi, b := range branches {
			outputs, err := e.runner.Run(ctx, map[string]*tensor.Tensor{
				InputX:     x,
				InputScale: b.scale,
				InputBias:  b.bias,
			})
			if err != nil {
				return fmt.Errorf("onnx: %s pass, branch %q: %w", mode, b.metric, err)
			}

			z, err := perSampleOutput(outputs, end-start)
			if err != nil {
				return err
			}

			for _, v := range z {
				sums[bi] += v
			}
		}

		batches++
	}

	metrics := make(map[string]float64, len(branches))
	for bi, b := range branches {
		metrics[b.metric] = sums[bi] / float64(n)
	}

	rep.Metrics[mode] = metrics
	rep.Passes[mode]++
	rep.Samples[mode] += n
	rep.Batches[mode] += batches

	slog.Debug("onnx pass complete", "mode", mode.String(), "samples", n, "batches", batches)

	return nil
}

// loadBatch packs samples [start, end) offset by x0 into a [batch, size]
// tensor.
func loadBatch(rd engine.DataReader, start, end, size int, x0 []float32) (*tensor.Tensor, error) {
	data := make([]float32, 0, (end-start)*size)

	for i := start; i < end; i++ {
		sample, err := rd.Sample(i)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}

		if len(sample) != size {
			return nil, fmt.Errorf("sample %d has %d values, want %d", i, len(sample), size)
		}

		for k, v := range sample {
			data = append(data, x0[k]+v)
		}
	}

	return tensor.Adopt(data, []int64{int64(end - start), int64(size)})
}
