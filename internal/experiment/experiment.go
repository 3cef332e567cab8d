// Package experiment assembles a closed-loop simulation from a config file.
package experiment

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/san-kum/vescwheel/internal/config"
	"github.com/san-kum/vescwheel/internal/device"
	"github.com/san-kum/vescwheel/internal/dynamo"
	"github.com/san-kum/vescwheel/internal/integrators"
	"github.com/san-kum/vescwheel/internal/metrics"
	"github.com/san-kum/vescwheel/internal/sim"
	"github.com/san-kum/vescwheel/internal/wheel"
)

type Experiment struct {
	cfg       *config.Config
	simulator *sim.Simulator
	log       logr.Logger
}

type Option func(*Experiment)

func WithLogger(log logr.Logger) Option {
	return func(e *Experiment) {
		e.log = log
	}
}

// New validates cfg and builds the plant, drive, controller and metrics.
func New(cfg *config.Config, opts ...Option) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Experiment{cfg: cfg.Clone(), log: logr.Discard()}
	for _, opt := range opts {
		opt(e)
	}

	integ, err := integrators.New(cfg.Integrator)
	if err != nil {
		return nil, err
	}

	dev, err := device.New(cfg.Plant.NewMotor(), integ, cfg.Motor.PolePairs,
		device.WithInitialState(0, cfg.Plant.InitialOmega),
		device.WithLogger(e.log.WithName("device")))
	if err != nil {
		return nil, fmt.Errorf("device: %w", err)
	}

	ctrl, err := wheel.New(cfg.Motor.Gains(), cfg.Motor.Geometry(), dev,
		wheel.WithLogger(e.log.WithName("wheel")))
	if err != nil {
		return nil, fmt.Errorf("controller: %w", err)
	}

	e.simulator = sim.New(ctrl, dev, Profile(cfg),
		sim.WithGlitches(Glitches(cfg)),
		sim.WithRandomGlitches(cfg.GlitchRate, cfg.GlitchSize),
		sim.WithLogger(e.log.WithName("sim")))

	for _, m := range metrics.All(metrics.Params{Settle: cfg.Settle, DutyLimit: cfg.Motor.DutyLimiter}) {
		e.simulator.AddMetric(m)
	}

	return e, nil
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	return e.simulator.Run(ctx, e.SimConfig())
}

func (e *Experiment) SimConfig() dynamo.Config {
	return dynamo.Config{
		Duration:      e.cfg.Duration,
		Substeps:      e.cfg.Substeps,
		Seed:          e.cfg.Seed,
		ValidateState: true,
	}
}

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}

func (e *Experiment) Config() *config.Config {
	return e.cfg
}

func Profile(cfg *config.Config) sim.Profile {
	p := make(sim.Profile, len(cfg.Profile))
	for i, sp := range cfg.Profile {
		p[i] = sim.Setpoint{At: sp.At, Velocity: sp.Velocity}
	}
	return p
}

func Glitches(cfg *config.Config) []sim.Glitch {
	g := make([]sim.Glitch, len(cfg.Glitches))
	for i, gl := range cfg.Glitches {
		g[i] = sim.Glitch{At: gl.At, Offset: gl.Offset}
	}
	return g
}

// Ensemble runs the configuration once per seed, seeds counting up from
// cfg.Seed, in parallel.
func Ensemble(ctx context.Context, cfg *config.Config, runs int, opts ...Option) ([]*dynamo.Result, error) {
	results := make([]*dynamo.Result, runs)
	errs := make([]error, runs)

	dynamo.ParallelFor(runs, 1, func(start, end int) {
		for i := start; i < end; i++ {
			c := cfg.Clone()
			c.Seed = cfg.Seed + int64(i)

			exp, err := New(c, opts...)
			if err != nil {
				errs[i] = err
				continue
			}
			results[i], errs[i] = exp.Run(ctx)
		}
	})

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", i, err)
		}
	}
	return results, nil
}
