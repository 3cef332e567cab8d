package wheel

import (
	"fmt"
	"math"
	"sync"

	"github.com/go-logr/logr"

	"github.com/san-kum/vescwheel/internal/control"
	"github.com/san-kum/vescwheel/internal/dynamo"
)

// Driver is the command side of a motor drive.
type Driver interface {
	SetDutyCycle(duty float64)
	RequestState()
}

// Controller closes the velocity loop for one motor. All methods are safe
// for concurrent use.
type Controller struct {
	driver Driver
	log    logr.Logger

	mu        sync.Mutex
	pid       *control.DutyPID
	geom      control.Geometry
	state     control.State
	reference float64 // rad/s
	pulse     int64
	prevPulse int64
	reset     bool

	positionSens float64
	effortSens   float64
	motorRPM     float64
	lastDuty     float64

	ticks   uint64
	faults  uint64
	packets uint64
	ignored uint64
}

type Option func(*Controller)

func WithLogger(log logr.Logger) Option {
	return func(c *Controller) {
		c.log = log
	}
}

// New validates gains and geometry and returns a controller that resets on
// its first tick.
func New(gains control.Gains, geom control.Geometry, driver Driver, opts ...Option) (*Controller, error) {
	if driver == nil {
		return nil, ErrNilDriver
	}
	if err := gains.Validate(); err != nil {
		return nil, err
	}
	if err := geom.Validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		driver: driver,
		log:    logr.Discard(),
		pid:    control.NewDutyPID(gains),
		geom:   geom,
		reset:  true,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.log.Info("controller configured",
		"kp", gains.Kp, "ki", gains.Ki, "kd", gains.Kd,
		"i_clamp", gains.IClamp, "duty_limiter", gains.DutyLimit,
		"antiwindup", gains.AntiWindup, "control_rate", gains.ControlRate,
		"pole_pairs", geom.PolePairs, "gear_ratio", geom.GearRatio, "torque_const", geom.TorqueConst)

	return c, nil
}

// Tick runs one control period: it checks the counter for a glitch, updates
// the position estimate, steps the PID, commands the drive and asks it for
// fresh telemetry.
func (c *Controller) Tick() dynamo.Sample {
	c.mu.Lock()

	c.ticks++
	diff := float64(c.pulse) - float64(c.prevPulse)
	reset := c.reset

	fault := math.Abs(diff) > c.geom.FaultThreshold()
	if fault {
		c.faults++
		diff = 0
		reset = true
	}

	c.positionSens += c.geom.Radians(diff)
	duty := c.pid.Step(&c.state, c.geom, c.reference, float64(c.pulse), reset)
	c.lastDuty = duty
	c.reset = math.Abs(c.reference) < control.Deadband

	sample := dynamo.Sample{
		Reference:    c.reference,
		Position:     c.positionSens,
		VelocitySens: c.state.VelocitySens,
		EffortSens:   c.effortSens,
		Duty:         duty,
		Reset:        reset,
		Fault:        fault,
	}
	pulse, prev := c.pulse, c.prevPulse
	c.mu.Unlock()

	if fault {
		c.log.V(1).Info("hall counter jump, resetting loop", "pulse", pulse, "prev", prev)
	}

	c.driver.SetDutyCycle(duty)
	c.driver.RequestState()

	return sample
}

// ApplyTelemetry folds a drive message into the loop state. Only values
// packets carry state; anything else is dropped.
func (c *Controller) ApplyTelemetry(p Packet) {
	var v ValuesPacket
	ok := false
	switch pk := p.(type) {
	case ValuesPacket:
		v, ok = pk, true
	case *ValuesPacket:
		if pk != nil {
			v, ok = *pk, true
		}
	}
	if !ok {
		c.mu.Lock()
		c.ignored++
		c.mu.Unlock()
		if p != nil && !isNilValues(p) {
			c.log.V(2).Info("ignoring packet", "kind", p.Kind())
		}
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.packets++
	c.prevPulse = c.pulse
	c.pulse = v.Position
	c.effortSens = c.geom.Torque(v.MotorCurrent)
	c.motorRPM = c.geom.RPM(v.ERPM)
}

// SetTargetVelocity sets the reference in rad/s, applied on the next tick.
// A magnitude below control.Deadband releases the motor.
func (c *Controller) SetTargetVelocity(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reference = v
}

// SetGearRatio must not be given 0.
func (c *Controller) SetGearRatio(ratio float64) {
	c.mu.Lock()
	c.geom.GearRatio = ratio
	c.mu.Unlock()
	c.log.Info("gear ratio set", "gear_ratio", ratio)
}

func (c *Controller) SetTorqueConst(k float64) {
	c.mu.Lock()
	c.geom.TorqueConst = k
	c.mu.Unlock()
	c.log.Info("torque constant set", "torque_const", k)
}

// SetMotorPolePairs changes the counts per revolution. It must be positive:
// the tick does not re-check it.
func (c *Controller) SetMotorPolePairs(n int) {
	c.mu.Lock()
	c.geom.PolePairs = n
	c.mu.Unlock()
	c.log.Info("motor pole pairs set", "pole_pairs", n)
}

func (c *Controller) Gains() control.Gains {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pid.Gains
}

func (c *Controller) Geometry() control.Geometry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.geom
}

// GetParams returns the PID gains together with the motor geometry.
func (c *Controller) GetParams() map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	params := c.pid.GetParams()
	params["pole_pairs"] = float64(c.geom.PolePairs)
	params["gear_ratio"] = c.geom.GearRatio
	params["torque_const"] = c.geom.TorqueConst
	return params
}

func (c *Controller) SetParam(name string, value float64) error {
	switch name {
	case "pole_pairs":
		if value < 1 || value != math.Trunc(value) {
			return fmt.Errorf("%w: pole_pairs must be a positive integer", control.ErrInvalidGeometry)
		}
		c.SetMotorPolePairs(int(value))
		return nil
	case "gear_ratio":
		if value == 0 {
			return fmt.Errorf("%w: gear_ratio must be non-zero", control.ErrInvalidGeometry)
		}
		c.SetGearRatio(value)
		return nil
	case "torque_const":
		c.SetTorqueConst(value)
		return nil
	}

	c.mu.Lock()
	err := c.pid.SetParam(name, value)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.log.Info("gain set", "name", name, "value", value)
	return nil
}

var _ dynamo.Configurable = (*Controller)(nil)

func (c *Controller) PositionSens() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionSens
}

func (c *Controller) VelocitySens() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.VelocitySens
}

func (c *Controller) EffortSens() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.effortSens
}

// Snapshot is a consistent copy of the controller's observable state.
type Snapshot struct {
	Reference    float64
	Pulse        int64
	PrevPulse    int64
	TargetPulse  float64
	Error        float64
	ErrorInteg   float64
	PositionSens float64
	VelocitySens float64
	EffortSens   float64
	MotorRPM     float64
	Duty         float64
	ResetArmed   bool
	Ticks        uint64
	Faults       uint64
	Packets      uint64
	Ignored      uint64
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		Reference:    c.reference,
		Pulse:        c.pulse,
		PrevPulse:    c.prevPulse,
		TargetPulse:  c.state.TargetPulse,
		Error:        c.state.Error,
		ErrorInteg:   c.state.ErrorInteg,
		PositionSens: c.positionSens,
		VelocitySens: c.state.VelocitySens,
		EffortSens:   c.effortSens,
		MotorRPM:     c.motorRPM,
		Duty:         c.lastDuty,
		ResetArmed:   c.reset,
		Ticks:        c.ticks,
		Faults:       c.faults,
		Packets:      c.packets,
		Ignored:      c.ignored,
	}
}

func isNilValues(p Packet) bool {
	v, ok := p.(*ValuesPacket)
	return ok && v == nil
}
