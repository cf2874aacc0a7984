package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk configuration. Every field is optional;
// command-line flags override it.
type fileConfig struct {
	// Port is the serial port path
	Port string `yaml:"port"`

	// Baud is the serial link speed
	Baud int `yaml:"baud"`

	// TimeoutRaw is the per-response deadline as a duration string ("2s")
	TimeoutRaw string `yaml:"timeout"`

	// Timeout is the parsed deadline
	Timeout time.Duration `yaml:"-"`

	// CalibrationOffset overrides the version-derived calibration address
	// when non-zero, e.g. 0x1E00
	CalibrationOffset uint16 `yaml:"calibration_offset"`

	// Verbose enables debug logging
	Verbose bool `yaml:"verbose"`
}

// defaultConfigPath returns the per-user config location.
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "squelch", "config.yaml")
}

// loadConfig reads a YAML config file. A missing file at the default path is
// not an error; an explicitly named file must exist.
func loadConfig(path string, explicit bool) (*fileConfig, error) {
	cfg := &fileConfig{}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.TimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.TimeoutRaw)
		if err != nil {
			return nil, fmt.Errorf("parse config %s: timeout: %w", path, err)
		}
		cfg.Timeout = d
	}
	return cfg, nil
}
