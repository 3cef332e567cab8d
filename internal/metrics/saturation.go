package metrics

import (
	"math"

	"github.com/san-kum/vescwheel/internal/dynamo"
)

// Saturation is the fraction of ticks the duty sat at its limit.
type Saturation struct {
	name      string
	limit     float64
	saturated int
	samples   int
}

func NewSaturation(limit float64) *Saturation {
	return &Saturation{
		name:  "saturation",
		limit: limit,
	}
}

func (s *Saturation) Name() string {
	return s.name
}

func (s *Saturation) Observe(sample dynamo.Sample) {
	s.samples++
	if math.Abs(sample.Duty) >= s.limit-1e-12 && s.limit > 0 {
		s.saturated++
	}
}

func (s *Saturation) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.saturated) / float64(s.samples)
}

func (s *Saturation) Reset() {
	s.saturated = 0
	s.samples = 0
}

// Faults counts ticks on which the counter check tripped.
type Faults struct {
	count int
}

func NewFaults() *Faults { return &Faults{} }

func (f *Faults) Name() string { return "faults" }

func (f *Faults) Observe(s dynamo.Sample) {
	if s.Fault {
		f.count++
	}
}

func (f *Faults) Value() float64 { return float64(f.count) }

func (f *Faults) Reset() { f.count = 0 }
