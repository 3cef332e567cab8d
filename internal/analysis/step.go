package analysis

import "math"

// StepResponse summarises how a signal approached a new setpoint.
type StepResponse struct {
	RiseTime     float64 // s, 10% to 90% of the step
	Overshoot    float64 // fraction of the step
	SettlingTime float64 // s, until it stays within the band
	Settled      bool
}

// Step measures the response of y (sampled at times t) to a step from
// initial to target applied at t[0]. band is the settling tolerance as a
// fraction of the step size.
func Step(t, y []float64, initial, target, band float64) StepResponse {
	var r StepResponse
	if len(t) == 0 || len(t) != len(y) || target == initial {
		return r
	}

	span := target - initial
	progress := func(v float64) float64 { return (v - initial) / span }

	t10, t90 := math.NaN(), math.NaN()
	peak := 0.0
	for i, v := range y {
		p := progress(v)
		if math.IsNaN(t10) && p >= 0.1 {
			t10 = t[i]
		}
		if math.IsNaN(t90) && p >= 0.9 {
			t90 = t[i]
		}
		peak = math.Max(peak, p)
	}
	if !math.IsNaN(t10) && !math.IsNaN(t90) {
		r.RiseTime = t90 - t10
	}
	r.Overshoot = math.Max(0, peak-1)

	last := -1
	for i, v := range y {
		if math.Abs(progress(v)-1) > band {
			last = i
		}
	}
	switch {
	case last == len(y)-1:
		r.Settled = false
	case last < 0:
		r.Settled = true
	default:
		r.Settled = true
		r.SettlingTime = t[last+1] - t[0]
	}
	return r
}
