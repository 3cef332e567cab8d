// Package metrics scores closed-loop runs sample by sample.
package metrics

import (
	"fmt"
	"sort"

	"github.com/san-kum/vescwheel/internal/dynamo"
)

// Params feeds the metric constructors.
type Params struct {
	Settle    float64 // s, ignored by metrics that score the whole run
	DutyLimit float64
}

var registry = map[string]func(Params) dynamo.Metric{
	"tracking_rms":   func(p Params) dynamo.Metric { return NewTrackingRMS(p.Settle) },
	"estimator_rms":  func(p Params) dynamo.Metric { return NewEstimatorRMS(p.Settle) },
	"control_effort": func(Params) dynamo.Metric { return NewControlEffort() },
	"saturation":     func(p Params) dynamo.Metric { return NewSaturation(p.DutyLimit) },
	"faults":         func(Params) dynamo.Metric { return NewFaults() },
}

func New(name string, p Params) (dynamo.Metric, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return factory(p), nil
}

// All returns one instance of every metric, sorted by name.
func All(p Params) []dynamo.Metric {
	names := Names()
	out := make([]dynamo.Metric, len(names))
	for i, name := range names {
		out[i] = registry[name](p)
	}
	return out
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
