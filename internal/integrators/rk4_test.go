package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/vescwheel/internal/dynamo"
)

// spinDown is a shaft with viscous friction: theta' = omega, omega' = -omega/tau.
type spinDown struct {
	tau float64
}

func (s *spinDown) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{x[1], -x[1] / s.tau}
}

func (s *spinDown) StateDim() int   { return 2 }
func (s *spinDown) ControlDim() int { return 0 }

func exactSpinDown(omega0, tau, t float64) (theta, omega float64) {
	omega = omega0 * math.Exp(-t/tau)
	theta = omega0 * tau * (1 - math.Exp(-t/tau))
	return theta, omega
}

func TestRK4Accuracy(t *testing.T) {
	dyn := &spinDown{tau: 0.2}
	integ := NewRK4()

	x := dynamo.State{0, 10}
	dt := 0.002
	steps := 500

	for i := 0; i < steps; i++ {
		x = integ.Step(dyn, x, nil, float64(i)*dt, dt)
	}

	theta, omega := exactSpinDown(10, 0.2, float64(steps)*dt)

	if math.Abs(x[0]-theta) > 1e-6 {
		t.Errorf("position error too large: got %.8f, expected %.8f", x[0], theta)
	}
	if math.Abs(x[1]-omega) > 1e-6 {
		t.Errorf("velocity error too large: got %.8f, expected %.8f", x[1], omega)
	}
}

func TestEulerConverges(t *testing.T) {
	dyn := &spinDown{tau: 0.2}
	_, want := exactSpinDown(10, 0.2, 1)

	errAt := func(dt float64) float64 {
		integ := NewEuler()
		x := dynamo.State{0, 10}
		n := int(math.Round(1 / dt))
		for i := 0; i < n; i++ {
			x = integ.Step(dyn, x, nil, float64(i)*dt, dt)
		}
		return math.Abs(x[1] - want)
	}

	coarse, fine := errAt(0.01), errAt(0.001)
	if fine >= coarse {
		t.Errorf("euler error did not shrink with dt: %.3e -> %.3e", coarse, fine)
	}
	if fine > 1e-2 {
		t.Errorf("euler error too large at dt=1e-3: %.3e", fine)
	}
}

func TestRegistry(t *testing.T) {
	for _, name := range Names() {
		integ, err := New(name)
		if err != nil {
			t.Fatalf("New(%q): %v", name, err)
		}
		if integ == nil {
			t.Fatalf("New(%q) returned nil", name)
		}
	}
	if _, err := New("verlet"); err == nil {
		t.Error("expected error for unregistered integrator")
	}
}

type blowUp struct{}

func (blowUp) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{math.Inf(1)}
}

func (blowUp) StateDim() int   { return 1 }
func (blowUp) ControlDim() int { return 0 }

func TestAdvanceSubsteps(t *testing.T) {
	dyn := &spinDown{tau: 0.2}

	x, err := Advance(NewRK4(), dyn, dynamo.State{0, 10}, nil, 0, 0.02, 10)
	if err != nil {
		t.Fatal(err)
	}

	want := dynamo.State{0, 10}
	integ := NewRK4()
	for i := 0; i < 10; i++ {
		want = integ.Step(dyn, want, nil, float64(i)*0.002, 0.002)
	}
	for i := range want {
		if math.Abs(x[i]-want[i]) > 1e-12 {
			t.Errorf("x[%d] = %v, want %v", i, x[i], want[i])
		}
	}

	one, err := Advance(NewRK4(), dyn, dynamo.State{0, 10}, nil, 0, 0.02, 0)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(one[1]-NewRK4().Step(dyn, dynamo.State{0, 10}, nil, 0, 0.02)[1]) > 1e-12 {
		t.Error("substeps < 1 should take a single step")
	}
}

func TestAdvanceStopsOnInvalidState(t *testing.T) {
	start := dynamo.State{1}
	x, err := Advance(NewEuler(), blowUp{}, start, nil, 0.5, 0.1, 4)

	var simErr *dynamo.SimulationError
	if !errors.As(err, &simErr) {
		t.Fatalf("got %v, want *SimulationError", err)
	}
	if !errors.Is(err, dynamo.ErrInvalidState) {
		t.Error("error does not wrap ErrInvalidState")
	}
	if simErr.Step != 0 || simErr.Time != 0.5 {
		t.Errorf("step=%d time=%v", simErr.Step, simErr.Time)
	}
	if x[0] != 1 {
		t.Errorf("returned state %v, want the last good one", x)
	}
}
