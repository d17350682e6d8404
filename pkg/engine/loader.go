package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// fileConfig is the on-disk form of Config.
type fileConfig struct {
	Interval     string `json:"interval,omitempty"`      // e.g. "2s"
	InitialDelay string `json:"initial_delay,omitempty"` // e.g. "0s"
	Query        string `json:"query,omitempty"`
}

// LoadConfigFile reads a JSON config file on top of DefaultConfig.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if fc.Interval != "" {
		d, err := time.ParseDuration(fc.Interval)
		if err != nil {
			return cfg, fmt.Errorf("invalid interval %q: %w", fc.Interval, err)
		}
		cfg.Interval = d
	}
	if fc.InitialDelay != "" {
		d, err := time.ParseDuration(fc.InitialDelay)
		if err != nil {
			return cfg, fmt.Errorf("invalid initial_delay %q: %w", fc.InitialDelay, err)
		}
		cfg.InitialDelay = d
	}
	cfg.Query = fc.Query

	return cfg, cfg.Validate()
}
