package neat

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/baldhumanity/dinotrain"
)

// Config stores the configuration parameters for the NEAT population.
type Config struct {
	PopulationSize         int     `ini:"population_size" yaml:"population_size"`
	InputSize              int     `ini:"input_size" yaml:"input_size"`
	OutputSize             int     `ini:"output_size" yaml:"output_size"`
	WeightMutationRate     float64 `ini:"weight_mutation_rate" yaml:"weight_mutation_rate"`
	AddNodeRate            float64 `ini:"add_node_rate" yaml:"add_node_rate"`
	AddConnectionRate      float64 `ini:"add_connection_rate" yaml:"add_connection_rate"`
	CompatibilityThreshold float64 `ini:"compatibility_threshold" yaml:"compatibility_threshold"`
	C1                     float64 `ini:"c1" yaml:"c1"` // Excess gene coefficient
	C2                     float64 `ini:"c2" yaml:"c2"` // Disjoint gene coefficient
	C3                     float64 `ini:"c3" yaml:"c3"` // Matching weight difference coefficient
	SurvivalRate           float64 `ini:"survival_rate" yaml:"survival_rate"`

	// Tuning knobs outside the settings screen.
	MaxStaleness     int     `ini:"max_staleness" yaml:"max_staleness"`
	ToggleRate       float64 `ini:"toggle_rate" yaml:"toggle_rate"`
	HiddenActivation string  `ini:"hidden_activation" yaml:"hidden_activation"`
}

// DefaultConfig returns the settings the game starts NEAT training with.
func DefaultConfig() Config {
	return Config{
		PopulationSize:         150,
		InputSize:              7,
		OutputSize:             2,
		WeightMutationRate:     0.8,
		AddNodeRate:            0.03,
		AddConnectionRate:      0.05,
		CompatibilityThreshold: 3.0,
		C1:                     1.0,
		C2:                     1.0,
		C3:                     0.4,
		SurvivalRate:           0.2,
		MaxStaleness:           20,
		ToggleRate:             0,
		HiddenActivation:       "relu",
	}
}

// LoadConfig loads NEAT parameters from the [NEAT] section of an INI file.
// Keys missing from the file keep their DefaultConfig values.
func LoadConfig(filePath string) (*Config, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true,
		UnescapeValueCommentSymbols: true,
	}, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file '%s': %w", filePath, err)
	}

	section := file.Section("NEAT")
	for _, key := range section.Keys() {
		key.SetValue(cleanIniString(key.String()))
	}

	config := DefaultConfig()
	if err := section.MapTo(&config); err != nil {
		return nil, fmt.Errorf("failed to map [NEAT] section: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate reports the first out-of-range parameter.
func (c Config) Validate() error {
	if c.PopulationSize < 1 {
		return fmt.Errorf("%w: neat population_size must be positive", dinotrain.ErrInvalidConfig)
	}
	if c.InputSize <= 0 {
		return fmt.Errorf("%w: neat input_size must be positive", dinotrain.ErrInvalidConfig)
	}
	if c.OutputSize <= 0 {
		return fmt.Errorf("%w: neat output_size must be positive", dinotrain.ErrInvalidConfig)
	}
	rates := map[string]float64{
		"weight_mutation_rate": c.WeightMutationRate,
		"add_node_rate":        c.AddNodeRate,
		"add_connection_rate":  c.AddConnectionRate,
		"survival_rate":        c.SurvivalRate,
		"toggle_rate":          c.ToggleRate,
	}
	for name, rate := range rates {
		if rate < 0 || rate > 1 {
			return fmt.Errorf("%w: neat %s must be between 0 and 1", dinotrain.ErrInvalidConfig, name)
		}
	}
	if c.CompatibilityThreshold < 0 {
		return fmt.Errorf("%w: neat compatibility_threshold cannot be negative", dinotrain.ErrInvalidConfig)
	}
	if c.C1 < 0 || c.C2 < 0 || c.C3 < 0 {
		return fmt.Errorf("%w: neat compatibility coefficients cannot be negative", dinotrain.ErrInvalidConfig)
	}
	if c.MaxStaleness <= 0 {
		return fmt.Errorf("%w: neat max_staleness must be positive", dinotrain.ErrInvalidConfig)
	}
	if _, err := GetActivation(c.HiddenActivation); err != nil {
		return fmt.Errorf("%w: neat hidden_activation: %v", dinotrain.ErrInvalidConfig, err)
	}
	return nil
}

// cleanIniString removes inline comments and trims whitespace from a string read from INI.
func cleanIniString(s string) string {
	if idx := strings.IndexAny(s, "#;"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
