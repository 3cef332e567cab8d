package dynamo

import (
	"math"
	"time"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type Control []float64

// System is a plant described by dX/dt = f(X, u, t).
type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Sample is one control tick as seen from outside the loop.
type Sample struct {
	Time         float64 `json:"time"`
	Reference    float64 `json:"reference"`     // rad/s
	Position     float64 `json:"position"`      // rad, from hall counts
	VelocitySens float64 `json:"velocity_sens"` // rad/s, estimator output
	EffortSens   float64 `json:"effort_sens"`
	Duty         float64 `json:"duty"`
	Reset        bool    `json:"reset"`
	Fault        bool    `json:"fault"`
	Plant        State   `json:"plant,omitempty"` // true plant state, when known
}

// PlantVelocity returns the true shaft speed when the plant state carries
// one, otherwise the estimate.
func (s Sample) PlantVelocity() float64 {
	if len(s.Plant) > 1 {
		return s.Plant[1]
	}
	return s.VelocitySens
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Observer interface {
	OnTick(s Sample)
}

type Config struct {
	Duration      float64 // s
	Substeps      int     // plant integration steps per control tick
	Seed          int64
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Duration:      10.0,
		Substeps:      10,
		ValidateState: true,
	}
}

// Result collects a finished closed-loop run.
type Result struct {
	Samples  []Sample
	Metrics  map[string]float64
	Ticks    int
	Faults   int
	Elapsed  time.Duration
	Canceled bool
}

// Times returns the sample timestamps.
func (r *Result) Times() []float64 {
	out := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = s.Time
	}
	return out
}

// Series extracts one field of every sample.
func (r *Result) Series(field func(Sample) float64) []float64 {
	out := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = field(s)
	}
	return out
}
