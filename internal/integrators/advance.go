package integrators

import "github.com/san-kum/vescwheel/internal/dynamo"

// Advance holds u constant and integrates x from t over dt in substeps
// equal steps. It stops at the first non-finite state and returns the last
// good one with a *dynamo.SimulationError.
func Advance(integ dynamo.Integrator, dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64, substeps int) (dynamo.State, error) {
	if substeps < 1 {
		substeps = 1
	}

	h := dt / float64(substeps)
	for i := 0; i < substeps; i++ {
		next := integ.Step(dyn, x, u, t, h)
		if !next.IsValid() {
			return x, &dynamo.SimulationError{Step: i, Time: t, State: x.Clone(), Wrapped: dynamo.ErrInvalidState}
		}
		x = next
		t += h
	}
	return x, nil
}
