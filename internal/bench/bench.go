// Package bench provides benchmarking primitives for the layercheck bench command.
package bench

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/example/go-layercheck/internal/engine"
	"github.com/example/go-layercheck/internal/fixture"
	"github.com/example/go-layercheck/internal/harness"
)

// ---------------------------------------------------------------------------
// Run result and stats
// ---------------------------------------------------------------------------

// RunResult holds the timing of a single evaluation of one variant.
type RunResult struct {
	Index      int
	Variant    string
	Cold       bool // true for the first run of a variant (cold-start)
	Duration   time.Duration
	Samples    int
	Metric     float64
	Throughput float64 // samples per second
}

// Stats holds aggregate timing statistics across all runs.
type Stats struct {
	Min  time.Duration
	Max  time.Duration
	Mean time.Duration
}

// ComputeStats calculates min, max and mean over a slice of durations.
// The slice must be non-empty.
func ComputeStats(durations []time.Duration) Stats {
	if len(durations) == 0 {
		return Stats{}
	}
	mn, mx := durations[0], durations[0]
	var sum time.Duration
	for _, d := range durations {
		if d < mn {
			mn = d
		}
		if d > mx {
			mx = d
		}
		sum += d
	}
	return Stats{
		Min:  mn,
		Max:  mx,
		Mean: sum / time.Duration(len(durations)),
	}
}

// VariantStats is ComputeStats over one variant's runs.
type VariantStats struct {
	Variant string
	Stats   Stats
}

// StatsByVariant groups runs by variant, preserving first-seen order.
func StatsByVariant(runs []RunResult) []VariantStats {
	var order []string
	durations := map[string][]time.Duration{}
	for _, r := range runs {
		if _, ok := durations[r.Variant]; !ok {
			order = append(order, r.Variant)
		}
		durations[r.Variant] = append(durations[r.Variant], r.Duration)
	}

	out := make([]VariantStats, len(order))
	for i, v := range order {
		out[i] = VariantStats{Variant: v, Stats: ComputeStats(durations[v])}
	}
	return out
}

// ---------------------------------------------------------------------------
// Throughput helpers
// ---------------------------------------------------------------------------

// CalcThroughput returns samples per second.
// Returns 0 if dur is zero to avoid division by zero.
func CalcThroughput(samples int, dur time.Duration) float64 {
	if dur <= 0 {
		return 0
	}
	return float64(samples) / dur.Seconds()
}

// ---------------------------------------------------------------------------
// Runner
// ---------------------------------------------------------------------------

// Run evaluates every variant runs times against set without metric
// bounds and records the wall time of each evaluation.
func Run(ctx context.Context, ev harness.Evaluator, set *fixture.Set, opts harness.Options, runs int) ([]RunResult, error) {
	if runs <= 0 {
		return nil, fmt.Errorf("runs must be > 0, got %d", runs)
	}

	var results []RunResult
	for _, v := range harness.Variants {
		exp := harness.NewExperiment(set, v, math.Inf(-1), math.Inf(1), opts)
		for i := range runs {
			start := time.Now()
			rep, err := ev.Evaluate(ctx, exp)
			dur := time.Since(start)
			if err != nil {
				return results, fmt.Errorf("%s run %d: %w", v.Name, i+1, err)
			}

			metric, _ := rep.Metric(engine.ModeTesting, v.MetricName())
			samples := rep.Samples[engine.ModeTesting]
			results = append(results, RunResult{
				Index:      i,
				Variant:    v.Name,
				Cold:       i == 0,
				Duration:   dur,
				Samples:    samples,
				Metric:     metric,
				Throughput: CalcThroughput(samples, dur),
			})
		}
	}
	return results, nil
}

// ---------------------------------------------------------------------------
// Mean latency gate
// ---------------------------------------------------------------------------

// CheckMaxMean returns an error if mean exceeds maxMS milliseconds.
// A threshold of 0 disables the gate.
func CheckMaxMean(mean time.Duration, maxMS float64) error {
	if maxMS <= 0 {
		return nil
	}
	meanMS := float64(mean) / float64(time.Millisecond)
	if meanMS > maxMS {
		return fmt.Errorf("mean %.3f ms exceeds threshold %.3f ms", meanMS, maxMS)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Output formatters
// ---------------------------------------------------------------------------

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// FormatTable writes a human-readable ASCII table of bench results to w.
func FormatTable(runs []RunResult, w io.Writer) {
	sb := &strings.Builder{}

	fmt.Fprintf(sb, "%-16s  %-5s  %-5s  %10s  %14s  %16s\n", "Variant", "Run", "Cold", "MS", "Samples/s", "Metric")
	fmt.Fprintln(sb, strings.Repeat("-", 76))

	for _, r := range runs {
		cold := ""
		if r.Cold {
			cold = "yes"
		}
		fmt.Fprintf(sb, "%-16s  %-5d  %-5s  %10.3f  %14.1f  %16.6f\n",
			r.Variant,
			r.Index+1,
			cold,
			ms(r.Duration),
			r.Throughput,
			r.Metric,
		)
	}

	fmt.Fprintln(sb, strings.Repeat("-", 76))
	for _, vs := range StatsByVariant(runs) {
		fmt.Fprintf(sb, "%-16s  min %.3f ms  mean %.3f ms  max %.3f ms\n",
			vs.Variant, ms(vs.Stats.Min), ms(vs.Stats.Mean), ms(vs.Stats.Max))
	}

	fmt.Fprint(w, sb.String())
}

// jsonReport is the top-level JSON structure emitted by FormatJSON.
type jsonReport struct {
	Runs  []jsonRun   `json:"runs"`
	Stats []jsonStats `json:"stats"`
}

type jsonRun struct {
	Variant    string           `json:"variant"`
	Index      int              `json:"index"`
	Cold       bool             `json:"cold"`
	DurationMS float64          `json:"duration_ms"`
	Samples    int              `json:"samples"`
	Throughput float64          `json:"samples_per_sec"`
	Metric     engine.JSONFloat `json:"metric"`
}

type jsonStats struct {
	Variant string  `json:"variant"`
	MinMS   float64 `json:"min_ms"`
	MeanMS  float64 `json:"mean_ms"`
	MaxMS   float64 `json:"max_ms"`
}

// FormatJSON writes a JSON report of bench results to w.
func FormatJSON(runs []RunResult, w io.Writer) error {
	jr := jsonReport{Runs: make([]jsonRun, len(runs))}
	for i, r := range runs {
		jr.Runs[i] = jsonRun{
			Variant:    r.Variant,
			Index:      r.Index,
			Cold:       r.Cold,
			DurationMS: ms(r.Duration),
			Samples:    r.Samples,
			Throughput: r.Throughput,
			Metric:     engine.JSONFloat(r.Metric),
		}
	}
	for _, vs := range StatsByVariant(runs) {
		jr.Stats = append(jr.Stats, jsonStats{
			Variant: vs.Variant,
			MinMS:   ms(vs.Stats.Min),
			MeanMS:  ms(vs.Stats.Mean),
			MaxMS:   ms(vs.Stats.Max),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jr)
}
