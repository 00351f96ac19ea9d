package ppo

import (
	"fmt"

	"github.com/baldhumanity/dinotrain"
)

// Config holds the PPO hyperparameters. The first four are set per run; the rest are
// internal defaults that rarely need changing.
type Config struct {
	NAgents      int     `ini:"n_agents" yaml:"n_agents"`
	LearningRate float64 `ini:"learning_rate" yaml:"learning_rate"`
	ClipEpsilon  float64 `ini:"clip_epsilon" yaml:"clip_epsilon"`
	InputSize    int     `ini:"input_size" yaml:"input_size"`

	Gamma         float64 `ini:"gamma" yaml:"gamma"`
	Lambda        float64 `ini:"lambda" yaml:"lambda"`
	Epochs        int     `ini:"epochs" yaml:"epochs"`
	MinibatchSize int     `ini:"minibatch_size" yaml:"minibatch_size"`
	EntropyCoeff  float64 `ini:"entropy_coeff" yaml:"entropy_coeff"`
	ValueCoeff    float64 `ini:"value_coeff" yaml:"value_coeff"`
	MaxGradNorm   float64 `ini:"max_grad_norm" yaml:"max_grad_norm"`
}

// DefaultConfig returns the standard PPO settings for the 7-feature dino state.
func DefaultConfig() Config {
	return Config{
		NAgents:       20,
		LearningRate:  3e-4,
		ClipEpsilon:   0.2,
		InputSize:     7,
		Gamma:         0.99,
		Lambda:        0.95,
		Epochs:        4,
		MinibatchSize: 64,
		EntropyCoeff:  0.04,
		ValueCoeff:    0.5,
		MaxGradNorm:   0.5,
	}
}

// Validate reports the first out-of-range parameter.
func (c Config) Validate() error {
	switch {
	case c.NAgents < 1:
		return fmt.Errorf("%w: ppo n_agents must be positive", dinotrain.ErrInvalidConfig)
	case c.InputSize < 1:
		return fmt.Errorf("%w: ppo input_size must be positive", dinotrain.ErrInvalidConfig)
	case c.LearningRate <= 0:
		return fmt.Errorf("%w: ppo learning_rate must be positive", dinotrain.ErrInvalidConfig)
	case c.ClipEpsilon <= 0 || c.ClipEpsilon >= 1:
		return fmt.Errorf("%w: ppo clip_epsilon must be in (0, 1)", dinotrain.ErrInvalidConfig)
	case c.Gamma < 0 || c.Gamma > 1:
		return fmt.Errorf("%w: ppo gamma must be between 0 and 1", dinotrain.ErrInvalidConfig)
	case c.Lambda < 0 || c.Lambda > 1:
		return fmt.Errorf("%w: ppo lambda must be between 0 and 1", dinotrain.ErrInvalidConfig)
	case c.Epochs < 1:
		return fmt.Errorf("%w: ppo epochs must be positive", dinotrain.ErrInvalidConfig)
	case c.MinibatchSize < 1:
		return fmt.Errorf("%w: ppo minibatch_size must be positive", dinotrain.ErrInvalidConfig)
	case c.EntropyCoeff < 0 || c.ValueCoeff < 0:
		return fmt.Errorf("%w: ppo loss coefficients cannot be negative", dinotrain.ErrInvalidConfig)
	case c.MaxGradNorm <= 0:
		return fmt.Errorf("%w: ppo max_grad_norm must be positive", dinotrain.ErrInvalidConfig)
	}
	return nil
}
