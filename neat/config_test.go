package neat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/dinotrain"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "neat.ini")
	content := `
[NEAT]
population_size = 60
add_node_rate = 0.1 ; more structure
compatibility_threshold = 2.5
hidden_activation = tanh # smoother
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.PopulationSize)
	assert.Equal(t, 0.1, cfg.AddNodeRate)
	assert.Equal(t, 2.5, cfg.CompatibilityThreshold)
	assert.Equal(t, "tanh", cfg.HiddenActivation)
	// Untouched keys keep their defaults.
	assert.Equal(t, 7, cfg.InputSize)
	assert.Equal(t, 0.2, cfg.SurvivalRate)
	assert.Equal(t, 20, cfg.MaxStaleness)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.ini"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{name: "empty population", modify: func(c *Config) { c.PopulationSize = 0 }},
		{name: "no inputs", modify: func(c *Config) { c.InputSize = 0 }},
		{name: "no outputs", modify: func(c *Config) { c.OutputSize = 0 }},
		{name: "rate above one", modify: func(c *Config) { c.AddConnectionRate = 1.2 }},
		{name: "negative rate", modify: func(c *Config) { c.WeightMutationRate = -0.1 }},
		{name: "negative threshold", modify: func(c *Config) { c.CompatibilityThreshold = -1 }},
		{name: "negative coefficient", modify: func(c *Config) { c.C3 = -0.4 }},
		{name: "zero staleness", modify: func(c *Config) { c.MaxStaleness = 0 }},
		{name: "unknown activation", modify: func(c *Config) { c.HiddenActivation = "softplus" }},
	}
	require.NoError(t, DefaultConfig().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			assert.ErrorIs(t, cfg.Validate(), dinotrain.ErrInvalidConfig)
		})
	}
}
