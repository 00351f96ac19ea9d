package ga

import (
	"fmt"

	"github.com/baldhumanity/dinotrain"
)

// Config holds the parameters of the fixed-topology genetic algorithm.
// An ElitismCount above PopulationSize carries the whole ranked population over.
type Config struct {
	PopulationSize   int     `ini:"population_size" yaml:"population_size"`
	MutationRate     float64 `ini:"mutation_rate" yaml:"mutation_rate"`
	CrossoverRate    float64 `ini:"crossover_rate" yaml:"crossover_rate"`
	ElitismCount     int     `ini:"elitism_count" yaml:"elitism_count"`
	InputSize        int     `ini:"input_size" yaml:"input_size"`
	HiddenSize       int     `ini:"hidden_size" yaml:"hidden_size"`
	OutputSize       int     `ini:"output_size" yaml:"output_size"`
	MutationStrength float64 `ini:"mutation_strength" yaml:"mutation_strength"`
}

// DefaultConfig returns the settings used by the game when nothing is configured.
func DefaultConfig() Config {
	return Config{
		PopulationSize:   50,
		MutationRate:     0.1,
		CrossoverRate:    0.8,
		ElitismCount:     6,
		InputSize:        10,
		HiddenSize:       5,
		OutputSize:       1,
		MutationStrength: 0.1,
	}
}

// LayerSizes returns the network shape every population member shares.
func (c Config) LayerSizes() []int {
	return []int{c.InputSize, c.HiddenSize, c.OutputSize}
}

// Validate reports the first out-of-range parameter.
func (c Config) Validate() error {
	if c.PopulationSize < 2 {
		return fmt.Errorf("%w: ga population_size must be at least 2, got %d", dinotrain.ErrInvalidConfig, c.PopulationSize)
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return fmt.Errorf("%w: ga mutation_rate must be between 0 and 1", dinotrain.ErrInvalidConfig)
	}
	if c.CrossoverRate < 0 || c.CrossoverRate > 1 {
		return fmt.Errorf("%w: ga crossover_rate must be between 0 and 1", dinotrain.ErrInvalidConfig)
	}
	if c.ElitismCount < 0 {
		return fmt.Errorf("%w: ga elitism_count cannot be negative", dinotrain.ErrInvalidConfig)
	}
	if c.InputSize <= 0 {
		return fmt.Errorf("%w: ga input_size must be positive", dinotrain.ErrInvalidConfig)
	}
	if c.HiddenSize <= 0 {
		return fmt.Errorf("%w: ga hidden_size must be positive", dinotrain.ErrInvalidConfig)
	}
	if c.OutputSize <= 0 {
		return fmt.Errorf("%w: ga output_size must be positive", dinotrain.ErrInvalidConfig)
	}
	if c.MutationStrength < 0 {
		return fmt.Errorf("%w: ga mutation_strength cannot be negative", dinotrain.ErrInvalidConfig)
	}
	return nil
}
