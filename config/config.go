// Package config loads the simulation's timing settings from an optional
// TOML file.
package config

import (
	"os"
	"time"

	"github.com/pelletier/go-toml"
)

// Config holds the timing knobs of a run, all in milliseconds. The defaults
// match the classic service-station pacing: cars arrive one to two seconds
// apart and a service takes two to six seconds.
type Config struct {
	ArrivalMinMs int `toml:"arrival_min_ms"`
	ArrivalMaxMs int `toml:"arrival_max_ms"`
	ServiceMinMs int `toml:"service_min_ms"`
	ServiceMaxMs int `toml:"service_max_ms"`
	PollMs       int `toml:"poll_ms"`
}

// Default returns the built-in timing settings.
func Default() *Config {
	return &Config{
		ArrivalMinMs: 1000,
		ArrivalMaxMs: 2000,
		ServiceMinMs: 2000,
		ServiceMaxMs: 6000,
		PollMs:       1000,
	}
}

// LoadOrDefault reads the file at path when it exists and falls back to
// Default when it doesn't. Any other read or decode failure is an error.
func LoadOrDefault(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	defer f.Close()

	if err := toml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, err
	}

	if cfg.ArrivalMinMs < 0 {
		cfg.ArrivalMinMs = 0
	}
	if cfg.ArrivalMaxMs < cfg.ArrivalMinMs {
		cfg.ArrivalMaxMs = cfg.ArrivalMinMs
	}
	if cfg.ServiceMinMs < 0 {
		cfg.ServiceMinMs = 0
	}
	if cfg.ServiceMaxMs < cfg.ServiceMinMs {
		cfg.ServiceMaxMs = cfg.ServiceMinMs
	}
	if cfg.PollMs <= 0 {
		cfg.PollMs = 1000
	}

	return cfg, nil
}

// PollInterval returns the quiescence polling pause as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollMs) * time.Millisecond
}
