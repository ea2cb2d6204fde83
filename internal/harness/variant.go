package harness

import "github.com/example/go-layercheck/internal/engine"

// Variant is one engine data layout under test. Variants share fixtures
// and differ only in the layout flag handed to the engine.
type Variant struct {
	Name   string
	Layout engine.Layout
}

// MetricName is the metric the engine reports for the variant.
func (v Variant) MetricName() string { return v.Name + " output" }

// Variants lists every layout a run covers, in execution order.
var Variants = []Variant{
	{Name: "data-parallel", Layout: engine.DataParallel},
	{Name: "model-parallel", Layout: engine.ModelParallel},
}
