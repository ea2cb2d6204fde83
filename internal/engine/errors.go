package engine

import (
	"fmt"
	"strings"
)

// CheckFailure is one metric check whose bound was violated.
type CheckFailure struct {
	Metric   string  `json:"metric"`
	Mode     Mode    `json:"mode"`
	Observed float64 `json:"observed"`
	Lower    float64 `json:"lower"`
	Upper    float64 `json:"upper"`
	Fatal    bool    `json:"fatal"`
}

func (f CheckFailure) String() string {
	return fmt.Sprintf("metric %q (%s) = %.9g outside [%.9g, %.9g]", f.Metric, f.Mode, f.Observed, f.Lower, f.Upper)
}

// CheckError reports metric checks configured with ErrorOnFailure.
type CheckError struct {
	Failures []CheckFailure
}

func (e *CheckError) Error() string {
	if len(e.Failures) == 0 {
		return "engine: metric check failed"
	}

	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.String()
	}

	return "engine: metric check failed: " + strings.Join(parts, "; ")
}

// GradientError reports a failed gradient check configured with
// ErrorOnFailure.
type GradientError struct {
	Report *GradientReport
}

func (e *GradientError) Error() string {
	if e.Report == nil {
		return "engine: gradient check failed"
	}

	msg := fmt.Sprintf("engine: gradient check failed: %d of %d entries exceed tolerance %g (max error %.3g)",
		e.Report.Failed, e.Report.Checked, e.Report.Tolerance, e.Report.MaxError)
	if len(e.Report.Failures) > 0 {
		f := e.Report.Failures[0]
		msg += fmt.Sprintf("; first: %s[%d] analytic=%.9g numeric=%.9g", f.Weights, f.Index, f.Analytic, f.Numeric)
	}

	return msg
}
