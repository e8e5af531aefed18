// Package config loads the named flex-decoder presets and the default
// sample rate pulsecore ships with, the way
// madpsy-ka9q_ubersdr's LoadConfig reads a YAML file into a plain struct
// with compiled-in zero values as the fallback.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FlexPreset is one named, pre-tuned modulation parameter set a caller
// can apply instead of running the classifier -- the same role rtl_433's
// "-X" flex decoder line plays, but loaded from data instead of typed on
// a command line each time.
type FlexPreset struct {
	Name         string  `yaml:"name"`
	Modulation   string  `yaml:"modulation"`
	ShortWidthUS float64 `yaml:"short_width_us"`
	LongWidthUS  float64 `yaml:"long_width_us"`
	ResetLimitUS float64 `yaml:"reset_limit_us"`
	GapLimitUS   float64 `yaml:"gap_limit_us,omitempty"`
	SyncWidthUS  float64 `yaml:"sync_width_us,omitempty"`
	ToleranceUS  float64 `yaml:"tolerance_us,omitempty"`
}

// Config is the top-level document config files hold: a list of named
// presets plus the default sample rate to assume when a descriptor
// doesn't carry one.
type Config struct {
	DefaultSampleRate uint32       `yaml:"default_sample_rate"`
	Presets           []FlexPreset `yaml:"presets"`
}

// Defaults returns the compiled-in preset set, used when no config file
// is given. It covers the handful of modulations common enough to name
// directly rather than always re-classifying from scratch.
func Defaults() Config {
	return Config{
		DefaultSampleRate: 250000,
		Presets: []FlexPreset{
			{Name: "generic-ppm", Modulation: "OOK_PULSE_PPM", ShortWidthUS: 500, LongWidthUS: 1500, ResetLimitUS: 20000},
			{Name: "generic-pwm", Modulation: "OOK_PULSE_PWM", ShortWidthUS: 250, LongWidthUS: 750, ResetLimitUS: 15000},
			{Name: "generic-manchester", Modulation: "OOK_PULSE_MANCHESTER_ZEROBIT", ShortWidthUS: 250, LongWidthUS: 250, ResetLimitUS: 15000},
		},
	}
}

// Load reads a YAML config file, applying Defaults() to any field the
// file leaves zero-valued.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Find returns the named preset, or false if no preset with that name is
// loaded.
func (c Config) Find(name string) (FlexPreset, bool) {
	for _, p := range c.Presets {
		if p.Name == name {
			return p, true
		}
	}
	return FlexPreset{}, false
}
