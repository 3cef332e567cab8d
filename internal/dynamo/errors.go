package dynamo

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState indicates a plant state with NaN or Inf entries.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrContextCanceled indicates the run was interrupted before its last tick.
	ErrContextCanceled = errors.New("dynamo: simulation canceled by context")

	// ErrDimensionMismatch indicates an initial state that does not fit the plant.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrUnknownParam is returned by SetParam for names a component does not expose.
	ErrUnknownParam = errors.New("dynamo: unknown parameter")
)

// SimulationError records where a run or an integration stopped. Step
// counts ticks in the simulator and substeps inside an integration.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d at t=%.4fs: %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
