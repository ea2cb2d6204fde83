package harness

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/go-layercheck/internal/engine"
)

// Status classifies one variant's outcome.
type Status string

const (
	StatusOK       Status = "ok"
	StatusMismatch Status = "mismatch"
	StatusGradient Status = "gradient"
	StatusError    Status = "error"
)

// VariantResult is the outcome of one variant.
type VariantResult struct {
	Variant   string                 `json:"variant"`
	Layout    engine.Layout          `json:"layout"`
	Metric    string                 `json:"metric"`
	Reference float64                `json:"reference"`
	Observed  float64                `json:"observed"`
	Tolerance float64                `json:"tolerance"`
	Lower     float64                `json:"lower"`
	Upper     float64                `json:"upper"`
	Status    Status                 `json:"status"`
	Error     string                 `json:"error,omitempty"`
	Passes    int                    `json:"passes"`
	Samples   int                    `json:"samples"`
	Gradient  *engine.GradientReport `json:"gradient,omitempty"`
	Duration  time.Duration          `json:"duration_ns"`
}

type jsonVariantResult struct {
	Variant   string                 `json:"variant"`
	Layout    engine.Layout          `json:"layout"`
	Metric    string                 `json:"metric"`
	Reference engine.JSONFloat       `json:"reference"`
	Observed  engine.JSONFloat       `json:"observed"`
	Tolerance engine.JSONFloat       `json:"tolerance"`
	Lower     engine.JSONFloat       `json:"lower"`
	Upper     engine.JSONFloat       `json:"upper"`
	Status    Status                 `json:"status"`
	Error     string                 `json:"error,omitempty"`
	Passes    int                    `json:"passes"`
	Samples   int                    `json:"samples"`
	Gradient  *engine.GradientReport `json:"gradient,omitempty"`
	Duration  time.Duration          `json:"duration_ns"`
}

// MarshalJSON writes non-finite metric values as strings so a diverged
// variant can still be reported and stored.
func (r VariantResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonVariantResult{
		Variant:   r.Variant,
		Layout:    r.Layout,
		Metric:    r.Metric,
		Reference: engine.JSONFloat(r.Reference),
		Observed:  engine.JSONFloat(r.Observed),
		Tolerance: engine.JSONFloat(r.Tolerance),
		Lower:     engine.JSONFloat(r.Lower),
		Upper:     engine.JSONFloat(r.Upper),
		Status:    r.Status,
		Error:     r.Error,
		Passes:    r.Passes,
		Samples:   r.Samples,
		Gradient:  r.Gradient,
		Duration:  r.Duration,
	})
}

func (r *VariantResult) UnmarshalJSON(data []byte) error {
	var j jsonVariantResult
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}

	*r = VariantResult{
		Variant:   j.Variant,
		Layout:    j.Layout,
		Metric:    j.Metric,
		Reference: float64(j.Reference),
		Observed:  float64(j.Observed),
		Tolerance: float64(j.Tolerance),
		Lower:     float64(j.Lower),
		Upper:     float64(j.Upper),
		Status:    j.Status,
		Error:     j.Error,
		Passes:    j.Passes,
		Samples:   j.Samples,
		Gradient:  j.Gradient,
		Duration:  j.Duration,
	}

	return nil
}

func (r VariantResult) fail(status Status, err error) VariantResult {
	r.Status = status
	r.Error = err.Error()

	return r
}

// Report is the outcome of one harness run.
type Report struct {
	ID            string          `json:"id,omitempty"`
	Engine        string          `json:"engine"`
	Seed          uint64          `json:"seed"`
	Dims          []int64         `json:"dims"`
	Samples       int             `json:"samples"`
	MiniBatchSize int             `json:"mini_batch_size"`
	Epochs        int             `json:"epochs"`
	Factor        float64         `json:"factor"`
	Epsilon       float64         `json:"epsilon"`
	StartedAt     time.Time       `json:"started_at"`
	Duration      time.Duration   `json:"duration_ns"`
	Variants      []VariantResult `json:"variants"`
}

// Failed reports whether any variant did not pass.
func (r *Report) Failed() bool {
	if r == nil {
		return true
	}

	for _, v := range r.Variants {
		if v.Status != StatusOK {
			return true
		}
	}

	return false
}

// Err summarises failing variants as one error, or nil.
func (r *Report) Err() error {
	if r == nil {
		return errors.New("harness: no report")
	}

	var errs []error

	for _, v := range r.Variants {
		if v.Status != StatusOK {
			errs = append(errs, fmt.Errorf("%s: %s: %s", v.Variant, v.Status, v.Error))
		}
	}

	return errors.Join(errs...)
}

// SaveReport writes r as indented JSON.
func SaveReport(path string, r *Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("harness: create report dir: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("harness: encode report: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("harness: write report: %w", err)
	}

	return nil
}

// LoadReport reads a report written by SaveReport.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("harness: read report: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("harness: decode report %s: %w", path, err)
	}

	return &r, nil
}

// FormatTable writes a human-readable summary of r to w.
func FormatTable(r *Report, w io.Writer) {
	if r == nil {
		fmt.Fprintln(w, "no report")
		return
	}

	sb := &strings.Builder{}

	fmt.Fprintf(sb, "engine=%s seed=%d samples=%d dims=%v mini_batch=%d epochs=%d\n",
		r.Engine, r.Seed, r.Samples, r.Dims, r.MiniBatchSize, r.Epochs)
	fmt.Fprintf(sb, "%-16s  %-9s  %18s  %18s  %12s  %8s\n", "Variant", "Status", "Reference", "Observed", "|Diff|", "Grad")
	fmt.Fprintln(sb, strings.Repeat("-", 92))

	for _, v := range r.Variants {
		grad := "-"
		if g := v.Gradient; g != nil {
			switch {
			case g.Skipped:
				grad = "skipped"
			case g.Failed > 0:
				grad = fmt.Sprintf("%d bad", g.Failed)
			default:
				grad = "ok"
			}
		}

		diff := v.Observed - v.Reference
		if diff < 0 {
			diff = -diff
		}

		fmt.Fprintf(sb, "%-16s  %-9s  %18.9g  %18.9g  %12.3g  %8s\n", v.Variant, v.Status, v.Reference, v.Observed, diff, grad)
	}

	fmt.Fprintln(sb, strings.Repeat("-", 92))

	for _, v := range r.Variants {
		if v.Error != "" {
			fmt.Fprintf(sb, "%s: %s\n", v.Variant, v.Error)
		}
	}

	fmt.Fprint(w, sb.String())
}

// FormatJSON writes r as indented JSON to w.
func FormatJSON(r *Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(r)
}
