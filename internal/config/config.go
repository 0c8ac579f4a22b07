// Package config loads the YAML run configuration: extractor mode and
// timeout, and the rewrite engine's rule-set/schedule strings. Those
// strings are opaque here — this package only carries them through to
// internal/rewrite's Engine.RunSchedule call, never interpreting their
// contents.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ExtractMode selects which of internal/extract's two extractors a run
// uses.
type ExtractMode string

const (
	ExtractGreedy ExtractMode = "greedy"
	ExtractILP    ExtractMode = "ilp"
)

// Config is one run's configuration: how to extract, the ILP search's wall
// clock budget, and the opaque rule-set/schedule strings handed to
// whichever rewrite.Engine is in play. ILPTimeoutSeconds is a plain number
// rather than a YAML-native duration (the library has no such scalar) —
// ILPTimeout() converts it for callers.
type Config struct {
	Extract           ExtractMode `yaml:"extract"`
	ILPTimeoutSeconds float64     `yaml:"ilp_timeout_seconds"`
	RuleSet           string      `yaml:"ruleset"`
	Schedule          string      `yaml:"schedule"`
}

// ILPTimeout converts ILPTimeoutSeconds to a time.Duration for
// internal/extract.ExtractExact's timeout parameter.
func (c Config) ILPTimeout() time.Duration {
	return time.Duration(c.ILPTimeoutSeconds * float64(time.Second))
}

// Default mirrors cmd/eggcc's own flag defaults, so a config file only
// needs to override what it cares about.
func Default() Config {
	return Config{
		Extract:           ExtractGreedy,
		ILPTimeoutSeconds: 10,
		RuleSet:           "default",
		Schedule:          "default",
	}
}

// Load reads a YAML run configuration from path, starting from Default()
// so an omitted field keeps its default rather than zeroing out.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %q: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %q: %w", path, err)
	}
	if cfg.Extract != ExtractGreedy && cfg.Extract != ExtractILP {
		return nil, fmt.Errorf("config: %q: unknown extract mode %q", path, cfg.Extract)
	}
	if cfg.ILPTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("config: %q: ilp_timeout_seconds must be positive", path)
	}
	return &cfg, nil
}
