// Package config loads a training file into the GA, NEAT and PPO configurations.
//
// Two formats are accepted. INI files use one section per concern ([TRAIN], [GA], [NEAT],
// [PPO], [SIM]); .yaml and .yml files use the same names in lower case as top-level keys.
// Anything a file leaves out keeps its package default.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"github.com/baldhumanity/dinotrain"
	"github.com/baldhumanity/dinotrain/ga"
	"github.com/baldhumanity/dinotrain/neat"
	"github.com/baldhumanity/dinotrain/ppo"
	"github.com/baldhumanity/dinotrain/sim"
)

// Training modes.
const (
	ModeGA   = "ga"
	ModeNEAT = "neat"
	ModePPO  = "ppo"
)

// Train holds run-level settings shared by all modes.
type Train struct {
	Mode            string `ini:"mode" yaml:"mode"`
	Generations     int    `ini:"generations" yaml:"generations"` // 0 trains until stopped
	Output          string `ini:"output" yaml:"output"`           // Telemetry directory; empty disables output
	Seed            int64  `ini:"seed" yaml:"seed"`               // 0 seeds from the clock
	CheckpointEvery int    `ini:"checkpoint_every" yaml:"checkpoint_every"`
}

// Config holds all training configuration.
type Config struct {
	Train Train       `yaml:"train"`
	GA    ga.Config   `yaml:"ga"`
	NEAT  neat.Config `yaml:"neat"`
	PPO   ppo.Config  `yaml:"ppo"`
	Sim   sim.Options `yaml:"sim"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Train: Train{Mode: ModeNEAT, Generations: 100},
		GA:    ga.DefaultConfig(),
		NEAT:  neat.DefaultConfig(),
		PPO:   ppo.DefaultConfig(),
		Sim:   sim.DefaultOptions(),
	}
}

// Load reads path onto Default and validates the result. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = cfg.loadYAML(path)
		default:
			err = cfg.loadINI(path)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	// Fields absent from the file keep the defaults already in c.
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

func (c *Config) loadINI(path string) error {
	file, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true,
		UnescapeValueCommentSymbols: true,
	}, path)
	if err != nil {
		return fmt.Errorf("failed to load config file '%s': %w", path, err)
	}

	sections := []struct {
		name string
		dst  any
	}{
		{"TRAIN", &c.Train},
		{"GA", &c.GA},
		{"NEAT", &c.NEAT},
		{"PPO", &c.PPO},
		{"SIM", &c.Sim},
	}
	for _, s := range sections {
		section, err := file.GetSection(s.name)
		if err != nil {
			continue
		}
		for _, key := range section.Keys() {
			key.SetValue(stripComment(key.String()))
		}
		if err := section.MapTo(s.dst); err != nil {
			return fmt.Errorf("failed to map [%s] section: %w", s.name, err)
		}
	}
	return nil
}

// Validate checks the run settings and every engine configuration.
func (c *Config) Validate() error {
	switch c.Train.Mode {
	case ModeGA, ModeNEAT, ModePPO:
	default:
		return fmt.Errorf("%w: unknown mode %q", dinotrain.ErrInvalidConfig, c.Train.Mode)
	}
	if c.Train.Generations < 0 {
		return fmt.Errorf("%w: generations cannot be negative", dinotrain.ErrInvalidConfig)
	}
	if c.Train.CheckpointEvery < 0 {
		return fmt.Errorf("%w: checkpoint_every cannot be negative", dinotrain.ErrInvalidConfig)
	}
	if err := c.GA.Validate(); err != nil {
		return err
	}
	if err := c.NEAT.Validate(); err != nil {
		return err
	}
	if err := c.PPO.Validate(); err != nil {
		return err
	}
	return c.Sim.Validate()
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// stripComment removes an inline comment and surrounding whitespace from an INI value.
func stripComment(s string) string {
	if idx := strings.IndexAny(s, "#;"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
