package control

import (
	"fmt"
	"math"

	"github.com/san-kum/vescwheel/internal/dynamo"
)

// Deadband is the reference magnitude below which the loop releases the
// motor (duty 0) instead of holding position.
const Deadband = 1e-4

const (
	maxPulse = float64(math.MaxInt64)
	minPulse = float64(math.MinInt64)
)

// State is everything the duty loop carries from one tick to the next.
type State struct {
	TargetPulse    float64 // integrated reference, in counts
	Error          float64 // TargetPulse minus measured counts
	ErrorDt        float64 // reference minus estimated velocity, rad/s
	ErrorInteg     float64
	ErrorIntegPrev float64
	VelocitySens   float64 // rad/s
	Estimator      Estimator
}

// Reset re-anchors the target on the measured count and clears all error
// terms and the estimator history.
func (s *State) Reset(currentPulse float64) {
	s.TargetPulse = currentPulse
	s.Error = 0
	s.ErrorDt = 0
	s.ErrorInteg = 0
	s.ErrorIntegPrev = 0
	s.VelocitySens = s.Estimator.Reset(currentPulse)
}

// DutyPID tracks a velocity reference by integrating it into a count target
// and running PID on the count error, with the derivative taken on the
// estimated velocity.
type DutyPID struct {
	Gains
}

var _ dynamo.Configurable = (*DutyPID)(nil)

func NewDutyPID(g Gains) *DutyPID {
	return &DutyPID{Gains: g}
}

// Step runs one control period and returns the duty command.
//
// With reset set the target is re-anchored on currentPulse instead of being
// advanced, and the step still runs the PID on the cleared state.
func (p *DutyPID) Step(s *State, geom Geometry, targetVelocity, currentPulse float64, reset bool) float64 {
	rate := p.ControlRate

	if reset {
		s.Reset(currentPulse)
	} else {
		s.TargetPulse += geom.PulsesPerTick(targetVelocity, rate)
	}

	s.TargetPulse = wrapPulse(s.TargetPulse)

	limit := geom.DeviationLimit()
	if s.TargetPulse-currentPulse > limit {
		s.TargetPulse = currentPulse + limit
	} else if s.TargetPulse-currentPulse < -limit {
		s.TargetPulse = currentPulse - limit
	}

	s.VelocitySens = geom.Velocity(s.Estimator.Update(currentPulse), rate)
	s.ErrorDt = targetVelocity - s.VelocitySens
	s.Error = s.TargetPulse - currentPulse
	s.ErrorIntegPrev = s.ErrorInteg
	s.ErrorInteg += s.Error / rate

	duty := p.output(s)

	if p.AntiWindup {
		if duty > p.DutyLimit {
			duty = p.DutyLimit
			if s.ErrorInteg > s.ErrorIntegPrev {
				s.ErrorInteg = s.ErrorIntegPrev
				duty = p.output(s)
			}
		} else if duty < -p.DutyLimit {
			duty = -p.DutyLimit
			if s.ErrorInteg < s.ErrorIntegPrev {
				s.ErrorInteg = s.ErrorIntegPrev
				duty = p.output(s)
			}
		}

		if p.Ki*s.ErrorInteg > p.IClamp {
			s.ErrorInteg = p.IClamp / p.Ki
		} else if p.Ki*s.ErrorInteg < -p.IClamp {
			s.ErrorInteg = -p.IClamp / p.Ki
		}
	}

	duty = clamp(duty, -p.DutyLimit, p.DutyLimit)

	if math.Abs(targetVelocity) < Deadband {
		return 0
	}
	return duty
}

func (p *DutyPID) output(s *State) float64 {
	return p.Kp*s.Error + p.Ki*s.ErrorInteg + p.Kd*s.ErrorDt
}

// wrapPulse folds the target back into the signed 64-bit range the hardware
// counter lives in. It wraps rather than saturates.
func wrapPulse(p float64) float64 {
	if p > maxPulse {
		return p + minPulse
	} else if p < minPulse {
		return p + maxPulse
	}
	return p
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// GetParams returns tunable parameters for live adjustment
func (p *DutyPID) GetParams() map[string]float64 {
	antiwindup := 0.0
	if p.AntiWindup {
		antiwindup = 1
	}
	return map[string]float64{
		"kp":           p.Kp,
		"ki":           p.Ki,
		"kd":           p.Kd,
		"i_clamp":      p.IClamp,
		"duty_limiter": p.DutyLimit,
		"antiwindup":   antiwindup,
		"control_rate": p.ControlRate,
	}
}

// SetParam adjusts a single gain. control_rate must stay positive and the
// limits non-negative.
func (p *DutyPID) SetParam(name string, value float64) error {
	switch name {
	case "kp":
		p.Kp = value
	case "ki":
		p.Ki = value
	case "kd":
		p.Kd = value
	case "i_clamp":
		if value < 0 {
			return fmt.Errorf("%w: i_clamp must be non-negative", ErrInvalidGains)
		}
		p.IClamp = value
	case "duty_limiter":
		if value < 0 {
			return fmt.Errorf("%w: duty_limiter must be non-negative", ErrInvalidGains)
		}
		p.DutyLimit = value
	case "antiwindup":
		p.AntiWindup = value != 0
	case "control_rate":
		if value <= 0 {
			return fmt.Errorf("%w: control_rate must be positive", ErrInvalidGains)
		}
		p.ControlRate = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
