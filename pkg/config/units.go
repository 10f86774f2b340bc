// Package config loads process settings from the environment and
// per-unit-of-work options from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// UnitOptions is the file form of one unit of work's execution options.
type UnitOptions struct {
	Propagation    string        `yaml:"propagation,omitempty"`
	Timeout        time.Duration `yaml:"timeout,omitempty"`
	ValidateParams bool          `yaml:"validate_params,omitempty"`
	ParamsSchema   string        `yaml:"params_schema,omitempty"`
	Retry          RetryOptions  `yaml:"retry,omitempty"`
}

type RetryOptions struct {
	MaxAttempts int           `yaml:"max_attempts,omitempty"`
	BaseDelay   time.Duration `yaml:"base_delay,omitempty"`
	MaxDelay    time.Duration `yaml:"max_delay,omitempty"`
	MaxJitter   time.Duration `yaml:"max_jitter,omitempty"`
}

// UnitsFile maps unit-of-work names to their options.
type UnitsFile struct {
	Defaults UnitOptions            `yaml:"defaults"`
	Units    map[string]UnitOptions `yaml:"units"`
}

// For returns the options of name, falling back to the file defaults.
func (f *UnitsFile) For(name string) UnitOptions {
	if f == nil {
		return UnitOptions{}
	}
	if opts, ok := f.Units[name]; ok {
		return opts
	}
	return f.Defaults
}

// LoadUnitOptions reads a units file. An empty path yields an empty file.
func LoadUnitOptions(path string) (*UnitsFile, error) {
	if path == "" {
		return &UnitsFile{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load unit options %q: %w", path, err)
	}

	var f UnitsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse unit options %q: %w", path, err)
	}
	for name, opts := range f.Units {
		if opts.Timeout < 0 || opts.Retry.MaxAttempts < 0 {
			return nil, fmt.Errorf("unit options %q: negative timeout or attempts", name)
		}
	}
	return &f, nil
}
