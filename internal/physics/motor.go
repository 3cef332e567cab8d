package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/vescwheel/internal/dynamo"
)

// Motor is a brushless hub motor driven by a duty cycle from a fixed bus.
// Winding inductance is neglected, so phase current follows the duty
// instantly and is limited by CurrentLimit.
//
// State is [theta, omega] of the shaft; control is [duty].
type Motor struct {
	Inertia      float64 // kg·m²
	Damping      float64 // N·m·s/rad
	Resistance   float64 // Ω, phase
	TorqueConst  float64 // N·m/A
	BackEMF      float64 // V·s/rad
	BusVoltage   float64 // V
	CurrentLimit float64 // A, 0 disables
	Load         float64 // N·m, opposing
}

func NewMotor() *Motor {
	return &Motor{
		Inertia:      0.05,
		Damping:      0.01,
		Resistance:   0.1,
		TorqueConst:  0.3,
		BackEMF:      0.3,
		BusVoltage:   24.0,
		CurrentLimit: 60.0,
	}
}

func (m *Motor) StateDim() int {
	return 2
}

func (m *Motor) ControlDim() int {
	return 1
}

// Current returns the phase current for shaft speed omega under duty.
func (m *Motor) Current(omega, duty float64) float64 {
	i := (duty*m.BusVoltage - m.BackEMF*omega) / m.Resistance
	if m.CurrentLimit > 0 {
		i = math.Max(-m.CurrentLimit, math.Min(m.CurrentLimit, i))
	}
	return i
}

func (m *Motor) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	omega := x[1]

	duty := 0.0
	if len(u) > 0 {
		duty = u[0]
	}

	torque := m.TorqueConst*m.Current(omega, duty) - m.Damping*omega - m.Load
	return dynamo.State{omega, torque / m.Inertia}
}

// NoLoadSpeed is the steady shaft speed at full duty with no load.
func (m *Motor) NoLoadSpeed() float64 {
	return m.BusVoltage * m.TorqueConst / (m.TorqueConst*m.BackEMF + m.Damping*m.Resistance)
}

// SteadyDuty is the duty that holds omega against damping and load.
func (m *Motor) SteadyDuty(omega float64) float64 {
	i := (m.Damping*omega + m.Load) / m.TorqueConst
	return (i*m.Resistance + m.BackEMF*omega) / m.BusVoltage
}

// Counts is the hall counter reading for shaft angle theta with polePairs
// counts per revolution.
func Counts(theta float64, polePairs int) int64 {
	return int64(math.Floor(theta * float64(polePairs) / (2 * math.Pi)))
}

// ERPM is the electrical RPM a drive reports for shaft speed omega.
func ERPM(omega float64, polePairs int) float64 {
	return omega * 60 / (2 * math.Pi) * float64(polePairs)
}

func (m *Motor) GetParams() map[string]float64 {
	return map[string]float64{
		"inertia":       m.Inertia,
		"damping":       m.Damping,
		"resistance":    m.Resistance,
		"torque_const":  m.TorqueConst,
		"back_emf":      m.BackEMF,
		"bus_voltage":   m.BusVoltage,
		"current_limit": m.CurrentLimit,
		"load":          m.Load,
	}
}

func (m *Motor) SetParam(name string, value float64) error {
	switch name {
	case "inertia":
		if value <= 0 {
			return fmt.Errorf("%w: inertia must be positive", dynamo.ErrParameterBounds)
		}
		m.Inertia = value
	case "damping":
		m.Damping = value
	case "resistance":
		if value <= 0 {
			return fmt.Errorf("%w: resistance must be positive", dynamo.ErrParameterBounds)
		}
		m.Resistance = value
	case "torque_const":
		m.TorqueConst = value
	case "back_emf":
		m.BackEMF = value
	case "bus_voltage":
		m.BusVoltage = value
	case "current_limit":
		if value < 0 {
			return fmt.Errorf("%w: current_limit must be non-negative", dynamo.ErrParameterBounds)
		}
		m.CurrentLimit = value
	case "load":
		m.Load = value
	default:
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, name)
	}
	return nil
}
