package metrics

import (
	"math"

	"github.com/san-kum/vescwheel/internal/dynamo"
)

// rms accumulates the root mean square of an error signal, skipping
// samples before a settle time.
type rms struct {
	name    string
	settle  float64
	errorOf func(dynamo.Sample) float64
	sumSq   float64
	samples int
}

func (r *rms) Name() string { return r.name }

func (r *rms) Observe(s dynamo.Sample) {
	if s.Time < r.settle {
		return
	}
	e := r.errorOf(s)
	r.sumSq += e * e
	r.samples++
}

func (r *rms) Value() float64 {
	if r.samples == 0 {
		return 0
	}
	return math.Sqrt(r.sumSq / float64(r.samples))
}

func (r *rms) Reset() {
	r.sumSq = 0
	r.samples = 0
}

// NewTrackingRMS measures reference minus true plant speed after settle
// seconds.
func NewTrackingRMS(settle float64) dynamo.Metric {
	return &rms{
		name:   "tracking_rms",
		settle: settle,
		errorOf: func(s dynamo.Sample) float64 {
			return s.Reference - s.PlantVelocity()
		},
	}
}

// NewEstimatorRMS measures the velocity estimate against the true plant
// speed after settle seconds.
func NewEstimatorRMS(settle float64) dynamo.Metric {
	return &rms{
		name:   "estimator_rms",
		settle: settle,
		errorOf: func(s dynamo.Sample) float64 {
			return s.VelocitySens - s.PlantVelocity()
		},
	}
}
