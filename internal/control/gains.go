package control

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidGains is returned by [Gains.Validate].
var ErrInvalidGains = errors.New("control: invalid gains")

// Gains configures the duty loop. DutyLimit bounds the command on both
// sides and IClamp bounds |Ki*integral| when AntiWindup is set.
type Gains struct {
	Kp          float64
	Ki          float64
	Kd          float64
	IClamp      float64
	DutyLimit   float64
	AntiWindup  bool
	ControlRate float64 // Hz
}

func DefaultGains() Gains {
	return Gains{
		Kp:          0.005,
		Ki:          0.005,
		Kd:          0.0025,
		IClamp:      0.2,
		DutyLimit:   1.0,
		AntiWindup:  true,
		ControlRate: 50.0,
	}
}

func (g Gains) Validate() error {
	if g.ControlRate <= 0 {
		return fmt.Errorf("%w: control rate must be positive, got %f", ErrInvalidGains, g.ControlRate)
	}
	if g.DutyLimit < 0 {
		return fmt.Errorf("%w: duty limit must be non-negative, got %f", ErrInvalidGains, g.DutyLimit)
	}
	if g.IClamp < 0 {
		return fmt.Errorf("%w: integral clamp must be non-negative, got %f", ErrInvalidGains, g.IClamp)
	}
	return nil
}

// Period is the tick interval implied by ControlRate.
func (g Gains) Period() time.Duration {
	return time.Duration(float64(time.Second) / g.ControlRate)
}
