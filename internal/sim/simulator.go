package sim

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/go-logr/logr"

	"github.com/san-kum/vescwheel/internal/device"
	"github.com/san-kum/vescwheel/internal/dynamo"
	"github.com/san-kum/vescwheel/internal/wheel"
)

// Simulator closes the loop between a wheel.Controller and a simulated
// drive in simulated time. Each control period it sets the reference from
// the profile, ticks the controller, advances the plant by one period and
// hands the drive's replies back to the controller.
type Simulator struct {
	ctrl      *wheel.Controller
	dev       *device.Sim
	profile   Profile
	glitches  []Glitch
	metrics   []dynamo.Metric
	observers []dynamo.Observer
	log       logr.Logger

	glitchRate float64
	glitchSize int64
}

type Option func(*Simulator)

func WithLogger(log logr.Logger) Option {
	return func(s *Simulator) {
		s.log = log
	}
}

func WithGlitches(g []Glitch) Option {
	return func(s *Simulator) {
		s.glitches = append([]Glitch(nil), g...)
		sort.Slice(s.glitches, func(i, j int) bool { return s.glitches[i].At < s.glitches[j].At })
	}
}

// WithRandomGlitches corrupts each reported count with probability rate by
// up to ±size counts. The draw is seeded from dynamo.Config.Seed. Sizes
// outside [0, MaxInt64/4] are clamped.
func WithRandomGlitches(rate float64, size int64) Option {
	return func(s *Simulator) {
		s.glitchRate = rate
		s.glitchSize = min(max(size, 0), math.MaxInt64/4)
	}
}

// New expects ctrl to be driving dev.
func New(ctrl *wheel.Controller, dev *device.Sim, profile Profile, opts ...Option) *Simulator {
	s := &Simulator{
		ctrl:      ctrl,
		dev:       dev,
		profile:   profile,
		metrics:   make([]dynamo.Metric, 0),
		observers: make([]dynamo.Observer, 0),
		log:       logr.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Controller() *wheel.Controller { return s.ctrl }
func (s *Simulator) Device() *device.Sim            { return s.dev }

func (s *Simulator) Run(ctx context.Context, cfg dynamo.Config) (*dynamo.Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}

	rate := s.ctrl.Gains().ControlRate
	dt := 1 / rate
	ticks := int(math.Round(cfg.Duration * rate))

	result := &dynamo.Result{
		Samples: make([]dynamo.Sample, 0, ticks),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	rng := rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(cfg.Seed)^0x9e3779b97f4a7c15))
	nextGlitch := 0
	start := time.Now()

	s.log.V(1).Info("simulation started", "ticks", ticks, "rate", rate, "substeps", cfg.Substeps)

	for i := 0; i < ticks; i++ {
		select {
		case <-ctx.Done():
			result.Canceled = true
			s.finish(result, start)
			return result, fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, ctx.Err())
		default:
		}

		t := float64(i) * dt
		s.ctrl.SetTargetVelocity(s.profile.At(t))

		for nextGlitch < len(s.glitches) && s.glitches[nextGlitch].At <= t {
			s.dev.InjectGlitch(s.glitches[nextGlitch].Offset)
			nextGlitch++
		}
		if s.glitchRate > 0 && rng.Float64() < s.glitchRate {
			offset := rng.Int64N(2*s.glitchSize+1) - s.glitchSize
			s.dev.InjectGlitch(offset)
		}

		sample := s.ctrl.Tick()
		sample.Time = t
		sample.Plant = s.dev.State()

		if cfg.ValidateState && !sample.Plant.IsValid() {
			s.finish(result, start)
			return result, &dynamo.SimulationError{Step: i, Time: t, State: sample.Plant, Wrapped: dynamo.ErrInvalidState}
		}

		result.Samples = append(result.Samples, sample)
		result.Ticks++
		if sample.Fault {
			result.Faults++
		}
		for _, m := range s.metrics {
			m.Observe(sample)
		}
		for _, obs := range s.observers {
			obs.OnTick(sample)
		}

		if err := s.dev.Advance(dt, cfg.Substeps); err != nil {
			s.finish(result, start)
			return result, fmt.Errorf("tick %d: %w", i, err)
		}
		for _, p := range s.dev.Poll() {
			s.ctrl.ApplyTelemetry(p)
		}
	}

	s.finish(result, start)
	s.log.V(1).Info("simulation finished", "ticks", result.Ticks, "faults", result.Faults, "elapsed", result.Elapsed)
	return result, nil
}

func (s *Simulator) finish(result *dynamo.Result, start time.Time) {
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	result.Elapsed = time.Since(start)
}

func (s *Simulator) validateConfig(cfg dynamo.Config) error {
	if s.ctrl == nil || s.dev == nil {
		return fmt.Errorf("simulator needs a controller and a device")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	if cfg.Substeps < 1 {
		return fmt.Errorf("substeps must be at least 1, got %d", cfg.Substeps)
	}
	return nil
}
