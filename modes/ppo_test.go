package modes

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/dinotrain/ppo"
)

func smallPPOConfig() ppo.Config {
	cfg := ppo.DefaultConfig()
	cfg.NAgents = 3
	cfg.MinibatchSize = 8
	return cfg
}

// play feeds steps random states to the i-th loaded agent.
func play(t *testing.T, env *fakeEnv, i, steps int, rng *rand.Rand) {
	t.Helper()
	agent, ok := env.brains[i].(*ppo.Brain)
	require.True(t, ok)
	for s := 0; s < steps; s++ {
		state := make([]float64, 7)
		for j := range state {
			state[j] = rng.Float64()
		}
		agent.Feedforward(state)
	}
}

func TestPPOModeEpisodeLoop(t *testing.T) {
	env := &fakeEnv{}
	mode := NewPPOMode(env, nil)
	mode.SetRand(rand.New(rand.NewSource(1)))
	require.NoError(t, mode.Start(smallPPOConfig()))
	require.Len(t, env.brains, 3)

	rng := rand.New(rand.NewSource(2))
	play(t, env, 0, 10, rng)
	play(t, env, 1, 6, rng)
	// Agent 2 never acts and is left out of the update.
	agents := env.brains
	env.finish(byIndex)

	// 16 transitions in batches of 8 give 2 updates per epoch.
	assert.Equal(t, 1+2*mode.Trainer.Config.Epochs, mode.Trainer.Step())
	assert.Equal(t, 1, mode.Generation())
	for _, a := range agents {
		assert.Zero(t, a.(*ppo.Brain).Steps())
	}

	require.Len(t, mode.Stats(), 1)
	stats := mode.Stats()[0]
	assert.Equal(t, 1, stats.Generation)
	assert.Equal(t, 2.0, stats.BestFitness)
	assert.Equal(t, 1.0, stats.AvgFitness)
	assert.Equal(t, mode.Trainer.LastPolicyLoss, stats.PolicyLoss)
	assert.Positive(t, stats.ValueLoss)
	assert.Positive(t, stats.Entropy)
	assert.Equal(t, 2, env.loads)

	data, err := mode.ExportBest()
	require.NoError(t, err)
	loaded, err := ppo.LoadTrainer(data, ppo.DefaultConfig(), nil)
	require.NoError(t, err)
	// The snapshot is taken before the update that followed the best episode.
	assert.Equal(t, 1, loaded.Step())
}

func TestPPOModeEmptyEpisodeSkipsUpdate(t *testing.T) {
	env := &fakeEnv{}
	mode := NewPPOMode(env, nil)
	require.NoError(t, mode.Start(smallPPOConfig()))

	env.finish(func(int) float64 { return 0 })
	assert.Equal(t, 1, mode.Trainer.Step())
	assert.Equal(t, 1, mode.Generation())
	assert.True(t, mode.Running())
}

func TestPPOModeUpdateFailureStops(t *testing.T) {
	env := &fakeEnv{}
	mode := NewPPOMode(env, nil)
	require.NoError(t, mode.Start(smallPPOConfig()))
	mode.Trainer.Reward = func([][]float64, []int) []float64 { return nil }

	play(t, env, 0, 3, rand.New(rand.NewSource(3)))
	env.finish(byIndex)

	assert.Error(t, mode.Err())
	assert.False(t, mode.Running())
	assert.Zero(t, mode.Generation())
	assert.Equal(t, 1, env.loads)
}
