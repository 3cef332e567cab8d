package config

import "sort"

// Presets are named scenarios layered over DefaultConfig.
var Presets = map[string]func(*Config){
	"step": func(c *Config) {
		c.Profile = []Setpoint{{At: 0, Velocity: DefaultTarget}}
	},
	"reverse": func(c *Config) {
		c.Duration = 15
		c.Profile = []Setpoint{
			{At: 0, Velocity: 10},
			{At: 5, Velocity: -10},
			{At: 10, Velocity: 0},
		}
	},
	"crawl": func(c *Config) {
		c.Duration = 20
		c.Settle = 5
		c.Profile = []Setpoint{{At: 0, Velocity: 0.5}}
	},
	"glitch": func(c *Config) {
		c.Glitches = []Glitch{{At: 3, Offset: 40}, {At: 6, Offset: -25}}
	},
	"noisy": func(c *Config) {
		c.Seed = 7
		c.GlitchRate = 0.01
		c.GlitchSize = 30
	},
	"loaded": func(c *Config) {
		c.Plant.Load = 2.0
	},
	"windup": func(c *Config) {
		c.Motor.DutyLimiter = 0.3
		c.Plant.Load = 4.0
		c.Profile = []Setpoint{{At: 0, Velocity: 25}, {At: 6, Velocity: 5}}
	},
	"release": func(c *Config) {
		c.Profile = []Setpoint{{At: 0, Velocity: 10}, {At: 4, Velocity: 0}}
	},
}

// GetPreset returns a fresh config for the named preset, or nil.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
