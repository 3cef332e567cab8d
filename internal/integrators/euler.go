package integrators

import "github.com/san-kum/vescwheel/internal/dynamo"

// Euler is the explicit first-order method.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (*Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	next := x.Clone()
	for i, dx := range dyn.Derive(x, u, t) {
		next[i] += dt * dx
	}
	return next
}
