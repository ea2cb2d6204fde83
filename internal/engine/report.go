package engine

// Report is what one evaluation observed.
type Report struct {
	// Metrics holds the last value of every metric per mode.
	Metrics       map[Mode]map[string]float64 `json:"metrics"`
	Passes        map[Mode]int                `json:"passes"`
	Samples       map[Mode]int                `json:"samples"`
	Batches       map[Mode]int                `json:"batches"`
	CheckFailures []CheckFailure              `json:"check_failures,omitempty"`
	Gradient      *GradientReport             `json:"gradient,omitempty"`
}

// NewReport returns an empty report with initialised maps.
func NewReport() *Report {
	return &Report{
		Metrics: make(map[Mode]map[string]float64),
		Passes:  make(map[Mode]int),
		Samples: make(map[Mode]int),
		Batches: make(map[Mode]int),
	}
}

// Metric returns the value of name recorded for mode.
func (r *Report) Metric(mode Mode, name string) (float64, bool) {
	if r == nil {
		return 0, false
	}

	v, ok := r.Metrics[mode][name]

	return v, ok
}

// GradientFailure is one parameter entry whose analytic and numeric
// gradients disagree.
type GradientFailure struct {
	Weights  string  `json:"weights"`
	Index    int     `json:"index"`
	Analytic float64 `json:"analytic"`
	Numeric  float64 `json:"numeric"`
}

// GradientReport summarises a gradient check.
type GradientReport struct {
	Checked   int               `json:"checked"`
	Failed    int               `json:"failed"`
	MaxError  float64           `json:"max_error"`
	Step      float64           `json:"step"`
	Tolerance float64           `json:"tolerance"`
	Failures  []GradientFailure `json:"failures,omitempty"`
	Skipped   bool              `json:"skipped,omitempty"`
	Reason    string            `json:"reason,omitempty"`
}

// OK reports whether the check ran and every entry passed.
func (g *GradientReport) OK() bool {
	return g != nil && !g.Skipped && g.Failed == 0
}

const maxRecordedGradientFailures = 16
