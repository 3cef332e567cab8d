package sim

import "sort"

// Setpoint switches the velocity reference at a point in time.
type Setpoint struct {
	At       float64 // s
	Velocity float64 // rad/s
}

// Profile is a piecewise-constant velocity reference ordered by At.
type Profile []Setpoint

// At returns the reference in force at time t, or 0 before the first
// setpoint.
func (p Profile) At(t float64) float64 {
	i := sort.Search(len(p), func(i int) bool { return p[i].At > t })
	if i == 0 {
		return 0
	}
	return p[i-1].Velocity
}

// Glitch corrupts one reported hall count at a point in time.
type Glitch struct {
	At     float64
	Offset int64
}
