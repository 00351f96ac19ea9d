package ga

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/dinotrain"
)

func testConfig(popSize, elitism int) Config {
	cfg := DefaultConfig()
	cfg.PopulationSize = popSize
	cfg.ElitismCount = elitism
	cfg.InputSize = 7
	return cfg
}

func TestEvolveKeepsPopulationSize(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	engine, err := NewEngine(testConfig(13, 3), rng)
	require.NoError(t, err)

	for gen := 0; gen < 5; gen++ {
		fitnesses := make([]float64, len(engine.Population))
		for i := range fitnesses {
			fitnesses[i] = rng.Float64() * 100
		}
		next, err := engine.Evolve(fitnesses)
		require.NoError(t, err)
		assert.Len(t, next, 13)
	}
	assert.Equal(t, 5, engine.Generation)
}

func TestEvolveCopiesElitesUnchanged(t *testing.T) {
	engine, err := NewEngine(testConfig(8, 2), rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	fitnesses := []float64{3, 9, 1, 4, 9, 0, 2, 5}
	// Stable ranking puts index 1 before index 4 on the tie.
	first, second := engine.Population[1].Clone(), engine.Population[4].Clone()

	next, err := engine.Evolve(fitnesses)
	require.NoError(t, err)
	assert.Equal(t, first, next[0])
	assert.Equal(t, second, next[1])
	assert.NotSame(t, first, next[0])
}

func TestEvolveScenarioFittestFirst(t *testing.T) {
	engine, err := NewEngine(testConfig(4, 1), rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	fittest := engine.Population[0].Clone()

	next, err := engine.Evolve([]float64{10, 5, 1, 0})
	require.NoError(t, err)
	require.Len(t, next, 4)
	assert.Equal(t, fittest, next[0])
}

func TestEvolveClampsElitismToPopulation(t *testing.T) {
	engine, err := NewEngine(testConfig(4, 6), rand.New(rand.NewSource(9)))
	require.NoError(t, err)
	ranked := []*Network{
		engine.Population[2].Clone(),
		engine.Population[0].Clone(),
		engine.Population[3].Clone(),
		engine.Population[1].Clone(),
	}

	next, err := engine.Evolve([]float64{5, 1, 8, 3})
	require.NoError(t, err)
	assert.Equal(t, ranked, next)
}

func TestEvolveRejectsBadInput(t *testing.T) {
	engine, err := NewEngine(testConfig(4, 1), rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	_, err = engine.Evolve([]float64{1, 2})
	assert.ErrorIs(t, err, ErrFitnessCount)

	engine.Population = engine.Population[:1]
	engine.Config.PopulationSize = 1
	_, err = engine.Evolve([]float64{1})
	assert.ErrorIs(t, err, ErrPopulationTooSmall)
}

func TestNewEngineValidatesConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"tiny population", func(c *Config) { c.PopulationSize = 1 }},
		{"mutation rate", func(c *Config) { c.MutationRate = 1.5 }},
		{"crossover rate", func(c *Config) { c.CrossoverRate = -0.1 }},
		{"negative elitism", func(c *Config) { c.ElitismCount = -1 }},
		{"no inputs", func(c *Config) { c.InputSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := NewEngine(cfg, nil)
			assert.ErrorIs(t, err, dinotrain.ErrInvalidConfig)
		})
	}
}

func TestCrossoverTakesEachParamFromAParent(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	a := NewNetwork([]int{3, 4, 2}, rng)
	b := NewNetwork([]int{3, 4, 2}, rng)

	child := Crossover(a, b, rng)
	for l := range child.Weights {
		for o := range child.Weights[l] {
			for i, w := range child.Weights[l][o] {
				assert.Contains(t, []float64{a.Weights[l][o][i], b.Weights[l][o][i]}, w)
			}
			assert.Contains(t, []float64{a.Bias[l][o], b.Bias[l][o]}, child.Bias[l][o])
		}
	}
}
