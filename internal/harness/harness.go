// Package harness checks an engine's entrywise scale-bias metric against an
// independently computed reference, once per data layout.
package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/go-layercheck/internal/engine"
	"github.com/example/go-layercheck/internal/fixture"
)

// Evaluator is the engine collaborator: it runs one experiment and reports
// metric values. A non-nil report may accompany a check error.
type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, exp engine.Experiment) (*engine.Report, error)
}

// Options tunes a run. The zero value is not useful; start from
// DefaultOptions.
type Options struct {
	Factor        float64
	MiniBatchSize int
	Epochs        int
	// GradientCheck enables the engine gradient check when non-nil.
	GradientCheck *engine.CheckGradients
	// CheckModes lists the passes after which the metric bound is
	// enforced; nil means the test pass only.
	CheckModes []engine.Mode
}

func DefaultOptions() Options {
	return Options{
		Factor:        DefaultFactor,
		MiniBatchSize: 17,
		GradientCheck: &engine.CheckGradients{ErrorOnFailure: true},
	}
}

func (o Options) validate() error {
	if o.Factor <= 0 {
		return fmt.Errorf("harness: tolerance factor must be > 0, got %g", o.Factor)
	}

	if o.MiniBatchSize <= 0 {
		return fmt.Errorf("harness: mini-batch size must be > 0, got %d", o.MiniBatchSize)
	}

	if o.Epochs < 0 {
		return fmt.Errorf("harness: epochs must be >= 0, got %d", o.Epochs)
	}

	return nil
}

// NewExperiment builds the single-branch experiment for v. The branch
// weights hold the scale values followed by the bias values.
func NewExperiment(set *fixture.Set, v Variant, lower, upper float64, opts Options) engine.Experiment {
	values := append(set.Scale().Data(), set.Bias().RawData()...)

	readers := map[engine.Mode]engine.DataReader{engine.ModeTesting: set}
	if opts.Epochs > 0 {
		readers[engine.ModeTraining] = set
	}

	modes := opts.CheckModes
	if len(modes) == 0 {
		modes = []engine.Mode{engine.ModeTesting}
	}

	exp := engine.Experiment{
		Readers:      readers,
		InputDims:    set.Dims(),
		InputWeights: &engine.Weights{Name: "input_weights", Init: engine.ConstantInitializer{Value: 0}},
		Branches: []engine.Branch{{
			Metric:  v.MetricName(),
			Layout:  v.Layout,
			Weights: engine.Weights{Name: v.Name + " scale_bias", Init: engine.ValueInitializer{Values: values}},
		}},
		MiniBatchSize: opts.MiniBatchSize,
		Epochs:        opts.Epochs,
		MetricChecks: []engine.CheckMetric{{
			Metric:         v.MetricName(),
			Lower:          lower,
			Upper:          upper,
			ErrorOnFailure: true,
			Modes:          append([]engine.Mode(nil), modes...),
		}},
	}

	if opts.GradientCheck != nil {
		gc := *opts.GradientCheck
		exp.GradientCheck = &gc
	}

	return exp
}

// Run evaluates every variant against one shared fixture set. The returned
// error covers only problems that stop the whole run; per-variant failures
// are recorded in the report.
func Run(ctx context.Context, ev Evaluator, set *fixture.Set, opts Options) (*Report, error) {
	if ev == nil || set == nil {
		return nil, errors.New("harness: run requires an evaluator and a fixture set")
	}

	if err := opts.validate(); err != nil {
		return nil, err
	}

	ref, err := SetReference(set)
	if err != nil {
		return nil, err
	}

	tol := Tolerance(ref, Float32Epsilon, opts.Factor)
	started := time.Now()

	rep := &Report{
		Engine:        ev.Name(),
		Seed:          set.Seed(),
		Dims:          set.Dims(),
		Samples:       set.NumSamples(),
		MiniBatchSize: opts.MiniBatchSize,
		Epochs:        opts.Epochs,
		Factor:        opts.Factor,
		Epsilon:       Float32Epsilon,
		StartedAt:     started.UTC(),
	}

	for _, v := range Variants {
		res := runVariant(ctx, ev, set, v, ref, tol, opts)
		rep.Variants = append(rep.Variants, res)

		slog.Info("variant evaluated",
			"variant", v.Name,
			"status", string(res.Status),
			"reference", res.Reference,
			"observed", res.Observed,
			"tolerance", res.Tolerance,
			"duration", res.Duration,
		)
	}

	rep.Duration = time.Since(started)

	return rep, nil
}

func runVariant(ctx context.Context, ev Evaluator, set *fixture.Set, v Variant, ref, tol float64, opts Options) VariantResult {
	res := VariantResult{
		Variant:   v.Name,
		Layout:    v.Layout,
		Metric:    v.MetricName(),
		Reference: ref,
		Tolerance: tol,
		Lower:     ref - tol,
		Upper:     ref + tol,
	}

	start := time.Now()
	er, err := ev.Evaluate(ctx, NewExperiment(set, v, res.Lower, res.Upper, opts))
	res.Duration = time.Since(start)

	if er != nil {
		res.Observed, _ = er.Metric(engine.ModeTesting, res.Metric)
		res.Passes = er.Passes[engine.ModeTesting]
		res.Samples = er.Samples[engine.ModeTesting]
		res.Gradient = er.Gradient
	}

	var (
		checkErr *engine.CheckError
		gradErr  *engine.GradientError
	)

	switch {
	case errors.As(err, &checkErr):
		return res.fail(StatusMismatch, err)
	case errors.As(err, &gradErr):
		return res.fail(StatusGradient, err)
	case err != nil:
		return res.fail(StatusError, fmt.Errorf("harness: engine %s: %w", ev.Name(), err))
	}

	if _, ok := er.Metric(engine.ModeTesting, res.Metric); !ok {
		return res.fail(StatusError, fmt.Errorf("harness: engine %s reported no %q metric", ev.Name(), res.Metric))
	}

	if err := AssertWithinTolerance(res.Metric, res.Observed, ref, tol); err != nil {
		return res.fail(StatusMismatch, err)
	}

	if g := res.Gradient; g != nil && !g.Skipped && g.Failed > 0 {
		return res.fail(StatusGradient, &engine.GradientError{Report: g})
	}

	res.Status = StatusOK

	return res
}
