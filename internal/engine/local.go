package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Options configures the local engine.
type Options struct {
	// Workers bounds goroutines per layer; values < 1 run serially.
	Workers int
}

// Local evaluates experiments in process.
type Local struct {
	workers int
}

func NewLocal(opts Options) *Local {
	return &Local{workers: max(opts.Workers, 1)}
}

func (l *Local) Name() string { return "local" }

// Evaluate runs Epochs forward-only training passes followed by exactly one
// test pass, then the requested checks. Weights never change. When a check
// fails the returned report is still populated.
func (l *Local) Evaluate(ctx context.Context, exp Experiment) (*Report, error) {
	size, err := exp.Validate()
	if err != nil {
		return nil, err
	}

	m, err := newModel(exp, size, l.workers)
	if err != nil {
		return nil, err
	}

	rep := NewReport()

	var checkErrs []error

	runPass := func(mode Mode) error {
		if err := l.runPass(ctx, m, exp, mode, rep); err != nil {
			return err
		}

		failures, err := ApplyMetricChecks(mode, rep.Metrics[mode], exp.MetricChecks)
		rep.CheckFailures = append(rep.CheckFailures, failures...)

		var ce *CheckError
		if errors.As(err, &ce) {
			checkErrs = append(checkErrs, err)
			return nil
		}

		return err
	}

	for epoch := 0; epoch < exp.Epochs; epoch++ {
		if err := runPass(ModeTraining); err != nil {
			return nil, err
		}
	}

	if rd, ok := exp.Readers[ModeValidation]; ok && rd != nil && exp.Epochs > 0 {
		if err := runPass(ModeValidation); err != nil {
			return nil, err
		}
	}

	if err := runPass(ModeTesting); err != nil {
		return nil, err
	}

	if exp.GradientCheck != nil {
		g, err := checkExperimentGradients(ctx, m, exp.Readers[ModeTesting], exp.GradientCheck.withDefaults())
		if err != nil {
			return nil, err
		}

		rep.Gradient = g
		if g.Failed > 0 && exp.GradientCheck.ErrorOnFailure {
			checkErrs = append(checkErrs, &GradientError{Report: g})
		}
	}

	slog.Debug("engine evaluation complete",
		"engine", l.Name(),
		"passes", rep.Passes[ModeTesting]+rep.Passes[ModeTraining]+rep.Passes[ModeValidation],
		"check_failures", len(rep.CheckFailures),
	)

	return rep, errors.Join(checkErrs...)
}

func (l *Local) runPass(ctx context.Context, m *model, exp Experiment, mode Mode, rep *Report) error {
	rd := exp.Readers[mode]
	n := rd.NumSamples()
	sums := make([]float64, len(m.branches))
	batches := 0

	for start := 0; start < n; start += exp.MiniBatchSize {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("engine: %s pass: %w", mode, err)
		}

		end := min(start+exp.MiniBatchSize, n)

		xs, err := loadBatch(rd, m, start, end)
		if err != nil {
			return fmt.Errorf("engine: %s pass: %w", mode, err)
		}

		for bi, z := range m.forward(xs) {
			for _, v := range z {
				sums[bi] += v
			}
		}

		batches++
	}

	metrics := make(map[string]float64, len(m.branches))
	for bi, b := range m.branches {
		metrics[b.metric] = sums[bi] / float64(n)
	}

	rep.Metrics[mode] = metrics
	rep.Passes[mode]++
	rep.Samples[mode] += n
	rep.Batches[mode] += batches

	slog.Debug("engine pass complete", "mode", mode.String(), "samples", n, "batches", batches)

	return nil
}

func loadBatch(rd DataReader, m *model, start, end int) ([][]float32, error) {
	xs := make([][]float32, 0, end-start)

	for i := start; i < end; i++ {
		sample, err := rd.Sample(i)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}

		if len(sample) != m.size {
			return nil, fmt.Errorf("sample %d has %d values, want %d", i, len(sample), m.size)
		}

		x := make([]float32, m.size)
		m.offsetInput(x, sample)
		xs = append(xs, x)
	}

	return xs, nil
}
