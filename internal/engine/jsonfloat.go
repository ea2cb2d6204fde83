package engine

import (
	"encoding/json"
	"fmt"
	"math"
)

// JSONFloat is a float64 that survives JSON encoding when it is not finite.
// NaN and the infinities are written as the strings "NaN", "+Inf" and "-Inf";
// finite values stay plain JSON numbers.
type JSONFloat float64

func (f JSONFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)

	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Inf"`), nil
	}

	return json.Marshal(v)
}

func (f *JSONFloat) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		switch s {
		case "NaN":
			*f = JSONFloat(math.NaN())
		case "+Inf", "Inf":
			*f = JSONFloat(math.Inf(1))
		case "-Inf":
			*f = JSONFloat(math.Inf(-1))
		default:
			return fmt.Errorf("engine: invalid float %q", s)
		}

		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	*f = JSONFloat(v)

	return nil
}

type jsonCheckFailure struct {
	Metric   string    `json:"metric"`
	Mode     Mode      `json:"mode"`
	Observed JSONFloat `json:"observed"`
	Lower    JSONFloat `json:"lower"`
	Upper    JSONFloat `json:"upper"`
	Fatal    bool      `json:"fatal"`
}

func (f CheckFailure) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonCheckFailure{
		Metric:   f.Metric,
		Mode:     f.Mode,
		Observed: JSONFloat(f.Observed),
		Lower:    JSONFloat(f.Lower),
		Upper:    JSONFloat(f.Upper),
		Fatal:    f.Fatal,
	})
}

func (f *CheckFailure) UnmarshalJSON(data []byte) error {
	var j jsonCheckFailure
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}

	*f = CheckFailure{
		Metric:   j.Metric,
		Mode:     j.Mode,
		Observed: float64(j.Observed),
		Lower:    float64(j.Lower),
		Upper:    float64(j.Upper),
		Fatal:    j.Fatal,
	}

	return nil
}

type jsonGradientFailure struct {
	Weights  string    `json:"weights"`
	Index    int       `json:"index"`
	Analytic JSONFloat `json:"analytic"`
	Numeric  JSONFloat `json:"numeric"`
}

func (f GradientFailure) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonGradientFailure{
		Weights:  f.Weights,
		Index:    f.Index,
		Analytic: JSONFloat(f.Analytic),
		Numeric:  JSONFloat(f.Numeric),
	})
}

func (f *GradientFailure) UnmarshalJSON(data []byte) error {
	var j jsonGradientFailure
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}

	*f = GradientFailure{
		Weights:  j.Weights,
		Index:    j.Index,
		Analytic: float64(j.Analytic),
		Numeric:  float64(j.Numeric),
	}

	return nil
}

type jsonGradientReport struct {
	Checked   int               `json:"checked"`
	Failed    int               `json:"failed"`
	MaxError  JSONFloat         `json:"max_error"`
	Step      JSONFloat         `json:"step"`
	Tolerance JSONFloat         `json:"tolerance"`
	Failures  []GradientFailure `json:"failures,omitempty"`
	Skipped   bool              `json:"skipped,omitempty"`
	Reason    string            `json:"reason,omitempty"`
}

func (g GradientReport) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonGradientReport{
		Checked:   g.Checked,
		Failed:    g.Failed,
		MaxError:  JSONFloat(g.MaxError),
		Step:      JSONFloat(g.Step),
		Tolerance: JSONFloat(g.Tolerance),
		Failures:  g.Failures,
		Skipped:   g.Skipped,
		Reason:    g.Reason,
	})
}

func (g *GradientReport) UnmarshalJSON(data []byte) error {
	var j jsonGradientReport
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}

	*g = GradientReport{
		Checked:   j.Checked,
		Failed:    j.Failed,
		MaxError:  float64(j.MaxError),
		Step:      float64(j.Step),
		Tolerance: float64(j.Tolerance),
		Failures:  j.Failures,
		Skipped:   j.Skipped,
		Reason:    j.Reason,
	}

	return nil
}
