package control

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidGeometry is returned by [Geometry.Validate].
var ErrInvalidGeometry = errors.New("control: invalid motor geometry")

// Geometry relates hall counts to shaft angle and phase current to torque.
//
// None of the conversions guard against a zero PolePairs or GearRatio; call
// Validate once before handing a Geometry to the control loop.
type Geometry struct {
	PolePairs   int // hall counts per revolution
	GearRatio   float64
	TorqueConst float64 // N·m per A at the motor
}

func (g Geometry) Validate() error {
	if g.PolePairs <= 0 {
		return fmt.Errorf("%w: pole pairs must be positive, got %d", ErrInvalidGeometry, g.PolePairs)
	}
	if g.GearRatio == 0 {
		return fmt.Errorf("%w: gear ratio must be non-zero", ErrInvalidGeometry)
	}
	return nil
}

func (g Geometry) counts() float64 {
	return float64(g.PolePairs)
}

// PulsesPerTick converts a velocity in rad/s into counts per control period.
func (g Geometry) PulsesPerTick(velocity, rate float64) float64 {
	return velocity * g.counts() / (2 * math.Pi) / rate
}

// Velocity converts counts per control period into rad/s.
func (g Geometry) Velocity(pulsesPerTick, rate float64) float64 {
	return pulsesPerTick * 2 * math.Pi / g.counts() * rate
}

// Radians converts a count delta into shaft angle.
func (g Geometry) Radians(pulses float64) float64 {
	return pulses / g.counts() * 2 * math.Pi
}

// Torque converts motor current into output torque (or force for a wheel
// whose gear ratio folds in the radius).
func (g Geometry) Torque(current float64) float64 {
	return current * g.TorqueConst / g.GearRatio
}

// RPM converts electrical RPM as reported by the drive into shaft RPM.
func (g Geometry) RPM(erpm float64) float64 {
	return erpm / g.counts()
}

// DeviationLimit bounds target-minus-measured counts to one revolution.
func (g Geometry) DeviationLimit() float64 {
	return g.counts()
}

// FaultThreshold is the largest plausible count jump between two ticks.
func (g Geometry) FaultThreshold() float64 {
	return g.counts() / 4
}
