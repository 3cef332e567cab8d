// Package device simulates a motor drive: it integrates a plant under the
// commanded duty cycle and answers state requests with telemetry packets
// the way a real drive would.
package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/san-kum/vescwheel/internal/dynamo"
	"github.com/san-kum/vescwheel/internal/integrators"
	"github.com/san-kum/vescwheel/internal/physics"
	"github.com/san-kum/vescwheel/internal/wheel"
)

// ErrNoPlant is returned by New without a motor model.
var ErrNoPlant = errors.New("device: nil motor")

// Firmware reported by the simulated drive.
const (
	FirmwareMajor = 6
	FirmwareMinor = 2
	Hardware      = "sim"
)

// Sim is a simulated motor drive. It satisfies wheel.Driver and is safe for
// concurrent use.
type Sim struct {
	mu        sync.Mutex
	motor     *physics.Motor
	integ     dynamo.Integrator
	polePairs int
	log       logr.Logger

	x         dynamo.State
	t         float64
	duty      float64
	pending   int
	announced bool
	glitch    int64
}

type Option func(*Sim)

func WithLogger(log logr.Logger) Option {
	return func(s *Sim) {
		s.log = log
	}
}

// WithInitialState starts the shaft at theta, omega.
func WithInitialState(theta, omega float64) Option {
	return func(s *Sim) {
		s.x = dynamo.State{theta, omega}
	}
}

func New(motor *physics.Motor, integ dynamo.Integrator, polePairs int, opts ...Option) (*Sim, error) {
	if motor == nil {
		return nil, ErrNoPlant
	}
	if integ == nil {
		return nil, fmt.Errorf("device: nil integrator")
	}
	if polePairs <= 0 {
		return nil, fmt.Errorf("%w: pole pairs %d", dynamo.ErrParameterBounds, polePairs)
	}

	s := &Sim{
		motor:     motor,
		integ:     integ,
		polePairs: polePairs,
		log:       logr.Discard(),
		x:         make(dynamo.State, motor.StateDim()),
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.x) != motor.StateDim() {
		return nil, dynamo.ErrDimensionMismatch
	}
	return s, nil
}

var _ wheel.Driver = (*Sim)(nil)

// SetDutyCycle latches the command until the next call.
func (s *Sim) SetDutyCycle(duty float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.duty = duty
}

// RequestState queues one telemetry reply for the next Poll.
func (s *Sim) RequestState() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending++
}

// InjectGlitch corrupts the next reported count by offset, once.
func (s *Sim) InjectGlitch(offset int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.glitch += offset
}

// Advance integrates the plant for dt seconds in substeps equal steps.
func (s *Sim) Advance(dt float64, substeps int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := integrators.Advance(s.integ, s.motor, s.x, dynamo.Control{s.duty}, s.t, dt, substeps)
	s.x = next
	if err != nil {
		return err
	}
	s.t += dt
	return nil
}

// Poll returns the packets the drive has to send: a firmware announcement
// on first contact and one values packet per outstanding request.
func (s *Sim) Poll() []wheel.Packet {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []wheel.Packet
	if !s.announced {
		s.announced = true
		out = append(out, wheel.FirmwarePacket{Major: FirmwareMajor, Minor: FirmwareMinor, Hardware: Hardware})
	}
	for ; s.pending > 0; s.pending-- {
		out = append(out, s.values())
	}
	return out
}

func (s *Sim) values() wheel.Packet {
	theta, omega := s.x[0], s.x[1]
	p := wheel.ValuesPacket{
		MotorCurrent: s.motor.Current(omega, s.duty),
		Position:     physics.Counts(theta, s.polePairs) + s.glitch,
		ERPM:         physics.ERPM(omega, s.polePairs),
	}
	if s.glitch != 0 {
		s.log.V(1).Info("reporting corrupted count", "offset", s.glitch)
		s.glitch = 0
	}
	return p
}

// State returns a copy of the plant state [theta, omega].
func (s *Sim) State() dynamo.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.x.Clone()
}

func (s *Sim) Time() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t
}

func (s *Sim) Duty() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duty
}

func (s *Sim) GetParams() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.motor.GetParams()
}

func (s *Sim) SetParam(name string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.motor.SetParam(name, value)
}

var _ dynamo.Configurable = (*Sim)(nil)

// Run advances the plant in real time every step and delivers packets to
// out until ctx is done.
func (s *Sim) Run(ctx context.Context, step time.Duration, substeps int, out chan<- wheel.Packet) error {
	ticker := time.NewTicker(step)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Advance(step.Seconds(), substeps); err != nil {
				return err
			}
			for _, p := range s.Poll() {
				select {
				case out <- p:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}
