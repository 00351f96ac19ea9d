package modes

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/dinotrain"
	"github.com/baldhumanity/dinotrain/ga"
	"github.com/baldhumanity/dinotrain/neat"
	"github.com/baldhumanity/dinotrain/ppo"
	"github.com/baldhumanity/dinotrain/sim"
)

// fakeEnv records what a mode loads and lets the test decide when the cohort ends.
type fakeEnv struct {
	brains    []dinotrain.Brain
	onAllDone func([]dinotrain.Result)
	loads     int
	starts    int
}

func (e *fakeEnv) Load(brains []dinotrain.Brain, onAllDone func([]dinotrain.Result)) {
	e.brains = brains
	e.onAllDone = onAllDone
	e.loads++
}

func (e *fakeEnv) Start() {
	e.starts++
}

// report ends the cohort with the given results.
func (e *fakeEnv) report(results []dinotrain.Result) {
	done := e.onAllDone
	e.onAllDone = nil
	done(results)
}

// finish ends the cohort with score(i) for the i-th loaded brain.
func (e *fakeEnv) finish(score func(i int) float64) {
	results := make([]dinotrain.Result, len(e.brains))
	for i, b := range e.brains {
		results[i] = dinotrain.Result{Brain: b, Score: score(i)}
	}
	e.report(results)
}

type fakeRecorder struct {
	rows []GenerationStats
}

func (r *fakeRecorder) Record(stats GenerationStats) error {
	r.rows = append(r.rows, stats)
	return nil
}

func byIndex(i int) float64 { return float64(i) }

func TestFitnessesDefaultsMissingBrainsToZero(t *testing.T) {
	a, b, c := ga.NewNetwork([]int{1, 1}, rand.New(rand.NewSource(1))), &ga.Network{}, &ga.Network{}
	results := []dinotrain.Result{{Brain: c, Score: 4}, {Brain: a, Score: 2}}
	assert.Equal(t, []float64{2, 0, 4}, fitnesses([]*ga.Network{a, b, c}, results))
}

func TestGAModeGenerationLoop(t *testing.T) {
	env := &fakeEnv{}
	rec := &fakeRecorder{}
	mode := NewGAMode(env, nil)
	mode.SetRand(rand.New(rand.NewSource(1)))
	mode.SetRecorder(rec)
	var seen []GenerationStats
	mode.OnStats(func(s GenerationStats) { seen = append(seen, s) })

	_, err := mode.ExportBest()
	assert.ErrorIs(t, err, ErrNoModel)

	cfg := ga.DefaultConfig()
	cfg.PopulationSize = 6
	cfg.ElitismCount = 1
	require.NoError(t, mode.Start(cfg))
	require.True(t, mode.Running())
	require.Equal(t, 1, env.loads)
	require.Equal(t, 1, env.starts)
	require.Len(t, env.brains, 6)

	fittest := env.brains[5].(*ga.Network)
	env.finish(byIndex)

	require.Len(t, mode.Stats(), 1)
	stats := mode.Stats()[0]
	assert.Equal(t, 0, stats.Generation)
	assert.Equal(t, 5.0, stats.BestFitness)
	assert.Equal(t, 2.5, stats.AvgFitness)
	assert.Equal(t, 5.0, stats.BestAllTime)
	assert.Equal(t, 1, mode.Generation())
	assert.Equal(t, 5.0, mode.BestFitness())
	assert.Equal(t, 2, env.loads)
	assert.Equal(t, 2, env.starts)
	assert.Equal(t, mode.Stats(), seen)
	assert.Equal(t, mode.Stats(), rec.rows)

	best := mode.BestModel()
	require.NotNil(t, best)
	assert.NotSame(t, fittest, best)
	assert.Equal(t, fittest.Weights, best.Weights)
	// The elite slot carries the fittest network into the next generation unchanged.
	assert.Equal(t, fittest.Weights, env.brains[0].(*ga.Network).Weights)

	// A worse generation keeps the all-time best.
	env.finish(func(int) float64 { return 1 })
	require.Len(t, mode.Stats(), 2)
	assert.Equal(t, 5.0, mode.Stats()[1].BestAllTime)
	assert.Equal(t, fittest.Weights, mode.BestModel().Weights)

	data, err := mode.ExportBest()
	require.NoError(t, err)
	restored, err := ga.UnmarshalNetwork(data)
	require.NoError(t, err)
	assert.Equal(t, fittest.Weights, restored.Weights)
}

func TestGAModeMissingResultsScoreZero(t *testing.T) {
	env := &fakeEnv{}
	mode := NewGAMode(env, nil)
	mode.SetRand(rand.New(rand.NewSource(2)))
	cfg := ga.DefaultConfig()
	cfg.PopulationSize = 4
	require.NoError(t, mode.Start(cfg))

	env.report([]dinotrain.Result{{Brain: env.brains[2], Score: 8}})
	stats := mode.Stats()[0]
	assert.Equal(t, 8.0, stats.BestFitness)
	assert.Equal(t, 2.0, stats.AvgFitness)
}

func TestGAModeStop(t *testing.T) {
	env := &fakeEnv{}
	mode := NewGAMode(env, nil)
	cfg := ga.DefaultConfig()
	cfg.PopulationSize = 4
	require.NoError(t, mode.Start(cfg))

	mode.Stop()
	assert.False(t, mode.Running())
	env.finish(byIndex)

	assert.Empty(t, mode.Stats())
	assert.Equal(t, 0, mode.Generation())
	assert.Equal(t, 1, env.loads)
}

func TestGAModeStopFromStatsCallback(t *testing.T) {
	env := &fakeEnv{}
	mode := NewGAMode(env, nil)
	mode.OnStats(func(GenerationStats) { mode.Stop() })
	cfg := ga.DefaultConfig()
	cfg.PopulationSize = 4
	require.NoError(t, mode.Start(cfg))

	env.finish(byIndex)
	assert.Len(t, mode.Stats(), 1)
	assert.Equal(t, 1, env.loads)
}

func TestStartRejectsInvalidConfig(t *testing.T) {
	env := &fakeEnv{}

	gaCfg := ga.DefaultConfig()
	gaCfg.PopulationSize = 1
	assert.ErrorIs(t, NewGAMode(env, nil).Start(gaCfg), dinotrain.ErrInvalidConfig)

	neatCfg := neat.DefaultConfig()
	neatCfg.C1 = -1
	assert.ErrorIs(t, NewNEATMode(env, nil).Start(neatCfg), dinotrain.ErrInvalidConfig)

	ppoCfg := ppo.DefaultConfig()
	ppoCfg.NAgents = 0
	mode := NewPPOMode(env, nil)
	assert.ErrorIs(t, mode.Start(ppoCfg), dinotrain.ErrInvalidConfig)
	assert.False(t, mode.Running())

	assert.Zero(t, env.loads)
}

func TestZeroScoresRecordNoModel(t *testing.T) {
	env := &fakeEnv{}
	mode := NewGAMode(env, nil)
	cfg := ga.DefaultConfig()
	cfg.PopulationSize = 3
	require.NoError(t, mode.Start(cfg))

	env.finish(func(int) float64 { return 0 })
	assert.Nil(t, mode.BestModel())
	_, err := mode.ExportBest()
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestSimDrivenTraining(t *testing.T) {
	opts := sim.DefaultOptions()
	opts.MaxTicks = 200

	t.Run("ga", func(t *testing.T) {
		env := sim.New(opts)
		mode := NewGAMode(env, nil)
		mode.SetRand(rand.New(rand.NewSource(3)))
		cfg := ga.DefaultConfig()
		cfg.PopulationSize = 8
		require.NoError(t, mode.Start(cfg))
		tickUntil(t, env, mode, 3)
	})

	t.Run("neat", func(t *testing.T) {
		env := sim.New(opts)
		mode := NewNEATMode(env, nil)
		mode.SetRand(rand.New(rand.NewSource(4)))
		cfg := neat.DefaultConfig()
		cfg.PopulationSize = 10
		require.NoError(t, mode.Start(cfg))
		tickUntil(t, env, mode, 3)
	})

	t.Run("ppo", func(t *testing.T) {
		env := sim.New(opts)
		mode := NewPPOMode(env, nil)
		mode.SetRand(rand.New(rand.NewSource(5)))
		cfg := ppo.DefaultConfig()
		cfg.NAgents = 3
		require.NoError(t, mode.Start(cfg))
		tickUntil(t, env, mode, 2)
		assert.NotZero(t, mode.Stats()[0].Entropy)
	})
}

func tickUntil(t *testing.T, env *sim.Env, mode Mode, generations int) {
	t.Helper()
	for i := 0; i < 100000 && mode.Running() && mode.Generation() < generations; i++ {
		env.Tick()
	}
	require.NoError(t, mode.Err())
	require.Equal(t, generations, mode.Generation())
	require.Len(t, mode.Stats(), generations)
	for _, s := range mode.Stats() {
		assert.Positive(t, s.BestFitness)
		assert.LessOrEqual(t, s.AvgFitness, s.BestFitness)
	}
	_, err := mode.ExportBest()
	assert.NoError(t, err)
}
