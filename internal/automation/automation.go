// Package automation runs scripted batches of closed-loop simulations:
// YAML scenarios, one-parameter sweeps and Monte Carlo robustness checks.
package automation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"os"

	"github.com/go-logr/logr"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/vescwheel/internal/config"
	"github.com/san-kum/vescwheel/internal/dynamo"
	"github.com/san-kum/vescwheel/internal/experiment"
)

var ErrEmptyScenario = errors.New("automation: scenario has no steps")

// Scenario defines a scripted simulation sequence
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one run. It starts from Preset (or the defaults) and
// applies Duration and Params on top.
type ScenarioStep struct {
	Preset   string             `yaml:"preset"`
	Duration float64            `yaml:"duration"`
	Params   map[string]float64 `yaml:"params"`
	SaveAs   string             `yaml:"save_as"`
}

// StepResult pairs a finished step with the configuration it ran.
type StepResult struct {
	Step   ScenarioStep
	Config *config.Config
	Result *dynamo.Result
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, ErrEmptyScenario
	}

	return &scenario, nil
}

// Config resolves the configuration of a step.
func (s ScenarioStep) Config() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if s.Preset != "" {
		if cfg = config.GetPreset(s.Preset); cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", s.Preset)
		}
	}
	if s.Duration > 0 {
		cfg.Duration = s.Duration
	}
	for k, v := range s.Params {
		if err := cfg.ApplyParam(k, v); err != nil {
			return nil, err
		}
	}
	return cfg, cfg.Validate()
}

// RunScenario executes all steps in order. Results of the steps that
// completed are returned along with the first error.
func RunScenario(ctx context.Context, scenario *Scenario, log logr.Logger) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		log.Info("running step", "scenario", scenario.Name, "step", i+1, "of", len(scenario.Steps), "preset", step.Preset)

		cfg, err := step.Config()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		exp, err := experiment.New(cfg, experiment.WithLogger(log))
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		results = append(results, StepResult{Step: step, Config: cfg, Result: result})
	}

	return results, nil
}

// ParameterSweep runs simulations across a range of parameter values
type ParameterSweep struct {
	Base      *config.Config
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
}

// SweepResult holds results from a parameter sweep
type SweepResult struct {
	ParamValue float64
	Metrics    map[string]float64
	Faults     int
	FinalSpeed float64
}

// RunSweep executes a parameter sweep
func RunSweep(ctx context.Context, sweep *ParameterSweep, log logr.Logger) ([]SweepResult, error) {
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("sweep needs at least one step, got %d", sweep.NumSteps)
	}

	results := make([]SweepResult, 0, sweep.NumSteps)

	paramStep := 0.0
	if sweep.NumSteps > 1 {
		paramStep = (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)
	}

	for i := 0; i < sweep.NumSteps; i++ {
		paramVal := sweep.ParamMin + float64(i)*paramStep

		cfg := sweep.Base.Clone()
		if err := cfg.ApplyParam(sweep.ParamName, paramVal); err != nil {
			return nil, err
		}

		exp, err := experiment.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("%s=%g: %w", sweep.ParamName, paramVal, err)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return nil, err
		}

		final := 0.0
		if n := len(result.Samples); n > 0 {
			final = result.Samples[n-1].PlantVelocity()
		}

		results = append(results, SweepResult{
			ParamValue: paramVal,
			Metrics:    result.Metrics,
			Faults:     result.Faults,
			FinalSpeed: final,
		})

		log.V(1).Info("sweep point", "step", i+1, "of", sweep.NumSteps, sweep.ParamName, paramVal)
	}

	return results, nil
}

// MonteCarloConfig perturbs the plant of Base to check that the gains
// hold up against model error.
type MonteCarloConfig struct {
	Base         *config.Config
	Perturbation float64 // relative, applied to inertia, damping and load
	NumTrials    int
	Seed         int64
	MaxTracking  float64 // tracking_rms above this counts as unstable
}

// MonteCarloResult holds statistics from Monte Carlo runs
type MonteCarloResult struct {
	TrialID  int
	Plant    config.PlantConfig
	Tracking float64
	Faults   int
	Stable   bool
}

func perturb(rng *rand.Rand, v, rel float64) float64 {
	return v * (1 + (rng.Float64()-0.5)*2*rel)
}

// RunMonteCarlo executes multiple trials with random plant perturbations
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, log logr.Logger) ([]MonteCarloResult, error) {
	results := make([]MonteCarloResult, 0, cfg.NumTrials)

	rng := rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(cfg.Seed)>>1|1))

	for trial := 0; trial < cfg.NumTrials; trial++ {
		c := cfg.Base.Clone()
		c.Seed = cfg.Base.Seed + int64(trial)
		c.Plant.Inertia = perturb(rng, c.Plant.Inertia, cfg.Perturbation)
		c.Plant.Damping = perturb(rng, c.Plant.Damping, cfg.Perturbation)
		c.Plant.Load = perturb(rng, c.Plant.Load, cfg.Perturbation)

		exp, err := experiment.New(c)
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", trial, err)
		}

		result, err := exp.Run(ctx)
		if result == nil || (err != nil && !errors.Is(err, dynamo.ErrInvalidState)) {
			return nil, err
		}

		tracking := math.Inf(1)
		if err == nil {
			tracking = result.Metrics["tracking_rms"]
		}

		results = append(results, MonteCarloResult{
			TrialID:  trial,
			Plant:    c.Plant,
			Tracking: tracking,
			Faults:   result.Faults,
			Stable:   tracking <= cfg.MaxTracking,
		})

		if (trial+1)%10 == 0 {
			log.Info("monte carlo progress", "done", trial+1, "of", cfg.NumTrials)
		}
	}

	return results, nil
}

// MonteCarloStats computes summary statistics from Monte Carlo results
func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}
