package integrators

import "github.com/san-kum/vescwheel/internal/dynamo"

// Classic fourth-order tableau: each stage is evaluated at t+c*dt from
// x+c*dt*k_prev and weighted by w in the final sum.
var (
	rk4Nodes   = [4]float64{0, 0.5, 0.5, 1}
	rk4Weights = [4]float64{1.0 / 6, 2.0 / 6, 2.0 / 6, 1.0 / 6}
)

// RK4 reuses its stage buffers between calls; use one instance per
// goroutine.
type RK4 struct {
	k       [4]dynamo.State
	scratch dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.scratch) == n {
		return
	}
	for i := range r.k {
		r.k[i] = make(dynamo.State, n)
	}
	r.scratch = make(dynamo.State, n)
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	n := len(x)
	r.ensureScratch(n)

	copy(r.k[0], dyn.Derive(x, u, t))
	for s := 1; s < len(rk4Nodes); s++ {
		h := rk4Nodes[s] * dt
		for i := 0; i < n; i++ {
			r.scratch[i] = x[i] + h*r.k[s-1][i]
		}
		copy(r.k[s], dyn.Derive(r.scratch, u, t+h))
	}

	result := x.Clone()
	for s, w := range rk4Weights {
		for i := 0; i < n; i++ {
			result[i] += dt * w * r.k[s][i]
		}
	}
	return result
}
