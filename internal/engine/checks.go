package engine

import (
	"fmt"
	"math"
)

// ApplyMetricChecks evaluates every check that applies to mode against
// metrics. All violations are returned; the error is a *CheckError when at
// least one violated check has ErrorOnFailure set.
func ApplyMetricChecks(mode Mode, metrics map[string]float64, checks []CheckMetric) ([]CheckFailure, error) {
	var (
		failures []CheckFailure
		fatal    []CheckFailure
	)

	for _, c := range checks {
		if !c.applies(mode) {
			continue
		}

		v, ok := metrics[c.Metric]
		if !ok {
			return failures, fmt.Errorf("engine: check references unknown metric %q", c.Metric)
		}

		if !math.IsNaN(v) && v >= c.Lower && v <= c.Upper {
			continue
		}

		f := CheckFailure{
			Metric:   c.Metric,
			Mode:     mode,
			Observed: v,
			Lower:    c.Lower,
			Upper:    c.Upper,
			Fatal:    c.ErrorOnFailure,
		}

		failures = append(failures, f)
		if f.Fatal {
			fatal = append(fatal, f)
		}
	}

	if len(fatal) > 0 {
		return failures, &CheckError{Failures: fatal}
	}

	return failures, nil
}
