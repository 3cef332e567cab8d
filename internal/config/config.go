package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/vescwheel/internal/control"
	"github.com/san-kum/vescwheel/internal/integrators"
	"github.com/san-kum/vescwheel/internal/physics"
)

const (
	DefaultDuration = 10.0
	DefaultSubsteps = 10
	DefaultSettle   = 2.0
	DefaultTarget   = 10.0
	DefaultPoles    = 15
)

// ErrInvalidConfig wraps every Validate failure.
// MaxGlitchSize bounds glitch_size so the random offset range 2*size+1
// stays representable.
const MaxGlitchSize = math.MaxInt64 / 4

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Integrator string      `yaml:"integrator"`
	Duration   float64     `yaml:"duration"`
	Substeps   int         `yaml:"substeps"`
	Settle     float64     `yaml:"settle"`
	Seed       int64       `yaml:"seed"`
	Motor      MotorConfig `yaml:"motor"`
	Plant      PlantConfig `yaml:"plant"`
	Profile    []Setpoint  `yaml:"profile"`
	Glitches   []Glitch    `yaml:"glitches,omitempty"`
	GlitchRate float64     `yaml:"glitch_rate,omitempty"`
	GlitchSize int64       `yaml:"glitch_size,omitempty"`
}

// MotorConfig is the controller side: gains and geometry.
type MotorConfig struct {
	Kp          float64 `yaml:"kp"`
	Ki          float64 `yaml:"ki"`
	Kd          float64 `yaml:"kd"`
	IClamp      float64 `yaml:"i_clamp"`
	DutyLimiter float64 `yaml:"duty_limiter"`
	AntiWindup  bool    `yaml:"antiwindup"`
	ControlRate float64 `yaml:"control_rate"`
	PolePairs   int     `yaml:"pole_pairs"`
	GearRatio   float64 `yaml:"gear_ratio"`
	TorqueConst float64 `yaml:"torque_const"`
}

// PlantConfig describes the simulated motor.
type PlantConfig struct {
	Inertia      float64 `yaml:"inertia"`
	Damping      float64 `yaml:"damping"`
	Resistance   float64 `yaml:"resistance"`
	Kt           float64 `yaml:"kt"`
	Ke           float64 `yaml:"ke"`
	BusVoltage   float64 `yaml:"bus_voltage"`
	CurrentLimit float64 `yaml:"current_limit"`
	Load         float64 `yaml:"load"`
	InitialOmega float64 `yaml:"initial_omega"`
}

// Setpoint switches the velocity reference at a point in time.
type Setpoint struct {
	At       float64 `yaml:"at"`
	Velocity float64 `yaml:"velocity"`
}

// Glitch corrupts one reported hall count.
type Glitch struct {
	At     float64 `yaml:"at"`
	Offset int64   `yaml:"offset"`
}

func DefaultMotor() MotorConfig {
	g := control.DefaultGains()
	return MotorConfig{
		Kp:          g.Kp,
		Ki:          g.Ki,
		Kd:          g.Kd,
		IClamp:      g.IClamp,
		DutyLimiter: g.DutyLimit,
		AntiWindup:  g.AntiWindup,
		ControlRate: g.ControlRate,
		PolePairs:   DefaultPoles,
		GearRatio:   1.0,
		TorqueConst: 0.3,
	}
}

func DefaultPlant() PlantConfig {
	m := physics.NewMotor()
	return PlantConfig{
		Inertia:      m.Inertia,
		Damping:      m.Damping,
		Resistance:   m.Resistance,
		Kt:           m.TorqueConst,
		Ke:           m.BackEMF,
		BusVoltage:   m.BusVoltage,
		CurrentLimit: m.CurrentLimit,
	}
}

func DefaultConfig() *Config {
	return &Config{
		Integrator: "rk4",
		Duration:   DefaultDuration,
		Substeps:   DefaultSubsteps,
		Settle:     DefaultSettle,
		Motor:      DefaultMotor(),
		Plant:      DefaultPlant(),
		Profile:    []Setpoint{{At: 0, Velocity: DefaultTarget}},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Profile = append([]Setpoint(nil), c.Profile...)
	out.Glitches = append([]Glitch(nil), c.Glitches...)
	return &out
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks everything the control loop assumes but does not check
// per tick.
func (c *Config) Validate() error {
	if _, err := integrators.New(c.Integrator); err != nil {
		return invalid("%v", err)
	}
	if c.Duration <= 0 {
		return invalid("duration must be positive, got %f", c.Duration)
	}
	if c.Substeps < 1 {
		return invalid("substeps must be at least 1, got %d", c.Substeps)
	}
	if c.Settle < 0 || c.Settle >= c.Duration {
		return invalid("settle must be in [0, duration), got %f", c.Settle)
	}
	if err := c.Motor.Gains().Validate(); err != nil {
		return invalid("%v", err)
	}
	if err := c.Motor.Geometry().Validate(); err != nil {
		return invalid("%v", err)
	}
	if c.Plant.Inertia <= 0 {
		return invalid("plant inertia must be positive, got %f", c.Plant.Inertia)
	}
	if c.Plant.Resistance <= 0 {
		return invalid("plant resistance must be positive, got %f", c.Plant.Resistance)
	}
	if c.Plant.CurrentLimit < 0 {
		return invalid("plant current limit must be non-negative, got %f", c.Plant.CurrentLimit)
	}
	for i := 1; i < len(c.Profile); i++ {
		if c.Profile[i].At < c.Profile[i-1].At {
			return invalid("profile setpoint %d at %.3fs is out of order", i, c.Profile[i].At)
		}
	}
	if c.GlitchRate < 0 || c.GlitchRate > 1 {
		return invalid("glitch_rate must be in [0, 1], got %f", c.GlitchRate)
	}
	if c.GlitchSize < 0 || c.GlitchSize > MaxGlitchSize {
		return invalid("glitch_size must be in [0, %d], got %d", int64(MaxGlitchSize), c.GlitchSize)
	}
	return nil
}

func (m MotorConfig) Gains() control.Gains {
	return control.Gains{
		Kp:          m.Kp,
		Ki:          m.Ki,
		Kd:          m.Kd,
		IClamp:      m.IClamp,
		DutyLimit:   m.DutyLimiter,
		AntiWindup:  m.AntiWindup,
		ControlRate: m.ControlRate,
	}
}

func (m MotorConfig) Geometry() control.Geometry {
	return control.Geometry{
		PolePairs:   m.PolePairs,
		GearRatio:   m.GearRatio,
		TorqueConst: m.TorqueConst,
	}
}

// NewMotor builds the plant model.
func (p PlantConfig) NewMotor() *physics.Motor {
	return &physics.Motor{
		Inertia:      p.Inertia,
		Damping:      p.Damping,
		Resistance:   p.Resistance,
		TorqueConst:  p.Kt,
		BackEMF:      p.Ke,
		BusVoltage:   p.BusVoltage,
		CurrentLimit: p.CurrentLimit,
		Load:         p.Load,
	}
}

// ApplyParam sets a tuning parameter by its controller name, as used by
// the tune command and the live view.
func (c *Config) ApplyParam(name string, value float64) error {
	switch name {
	case "kp":
		c.Motor.Kp = value
	case "ki":
		c.Motor.Ki = value
	case "kd":
		c.Motor.Kd = value
	case "i_clamp":
		c.Motor.IClamp = value
	case "duty_limiter":
		c.Motor.DutyLimiter = value
	case "control_rate":
		c.Motor.ControlRate = value
	case "load":
		c.Plant.Load = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
