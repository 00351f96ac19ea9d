package neat

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/dinotrain"
)

func smallConfig(popSize int) Config {
	cfg := DefaultConfig()
	cfg.PopulationSize = popSize
	cfg.AddNodeRate = 0.3
	cfg.AddConnectionRate = 0.3
	return cfg
}

func TestNewPopulationRejectsInvalidConfig(t *testing.T) {
	cfg := smallConfig(10)
	cfg.SurvivalRate = 1.5

	_, err := NewPopulation(cfg, rand.New(rand.NewSource(1)))
	require.Error(t, err)
	assert.ErrorIs(t, err, dinotrain.ErrInvalidConfig)
}

func TestEvolveKeepsPopulationSizeAndSpecies(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	for _, size := range []int{1, 2, 7, 40} {
		pop, err := NewPopulation(smallConfig(size), rng)
		require.NoError(t, err)
		require.Len(t, pop.Genomes, size)

		for gen := 0; gen < 15; gen++ {
			fitnesses := make([]float64, len(pop.Genomes))
			for i := range fitnesses {
				fitnesses[i] = rng.Float64() * 50
			}
			next, err := pop.Evolve(fitnesses)
			require.NoError(t, err)
			require.Len(t, next, size, "population size %d, generation %d", size, gen)
			require.NotEmpty(t, pop.Species())
			for _, s := range pop.Species() {
				assert.NotEmpty(t, s.Members)
			}
			for _, g := range next {
				assertForwardLayers(t, g)
			}
		}
		assert.Equal(t, 15, pop.Generation)
	}
}

func TestEvolveWithZeroFitness(t *testing.T) {
	pop, err := NewPopulation(smallConfig(12), rand.New(rand.NewSource(2)))
	require.NoError(t, err)

	for gen := 0; gen < 30; gen++ {
		next, err := pop.Evolve(make([]float64, 12))
		require.NoError(t, err)
		require.Len(t, next, 12)
		require.NotEmpty(t, pop.Species())
	}
}

func TestEvolveRejectsFitnessCountMismatch(t *testing.T) {
	pop, err := NewPopulation(smallConfig(5), rand.New(rand.NewSource(2)))
	require.NoError(t, err)

	_, err = pop.Evolve([]float64{1, 2})
	assert.ErrorIs(t, err, ErrFitnessCount)
	assert.Zero(t, pop.Generation)
}

func TestEvolveKeepsChampionUnmutated(t *testing.T) {
	cfg := smallConfig(10)
	cfg.CompatibilityThreshold = 1e9
	pop, err := NewPopulation(cfg, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	fitnesses := []float64{1, 2, 3, 9, 4, 5, 0, 1, 2, 3}
	champion := pop.Genomes[3].Clone()

	next, err := pop.Evolve(fitnesses)
	require.NoError(t, err)
	require.Len(t, pop.Species(), 1)
	assert.Equal(t, champion.Nodes, next[0].Nodes)
	assert.Equal(t, champion.Connections, next[0].Connections)
}

func TestStagnationPrunesButNeverEmpties(t *testing.T) {
	set := NewSpeciesSet(DefaultConfig())
	g := NewGenome(2, 1, NewInnovationTracker(), rand.New(rand.NewSource(1)))
	for i := 0; i < 2; i++ {
		s := set.found(0, g)
		s.Staleness = 25
		set.Species = append(set.Species, s)
	}

	removed := NewStagnation(20).Prune(set, 3, g)
	assert.Len(t, removed, 2)
	require.Len(t, set.Species, 1)
	assert.Equal(t, []*Genome{g}, set.Species[0].Members)
	assert.Equal(t, 3, set.Species[0].ID)

	// A lone species is never pruned.
	set.Species[0].Staleness = 100
	assert.Empty(t, NewStagnation(20).Prune(set, 4, g))
	assert.Len(t, set.Species, 1)
}

func TestStagnationUpdate(t *testing.T) {
	tracker := NewInnovationTracker()
	rng := rand.New(rand.NewSource(1))
	a, b := NewGenome(2, 1, tracker, rng), NewGenome(2, 1, tracker, rng)
	a.Fitness, b.Fitness = 4, 2

	s := NewSpecies(1, 0, a)
	s.Members = append(s.Members, b)
	st := NewStagnation(20)

	st.Update([]*Species{s})
	assert.Equal(t, 4.0, s.BestFitness)
	assert.Zero(t, s.Staleness)
	assert.InDelta(t, 3.0, s.AdjustedFitnessSum, 1e-12)

	st.Update([]*Species{s})
	assert.Equal(t, 1, s.Staleness)
}

func TestOffspringCounts(t *testing.T) {
	tests := []struct {
		name     string
		adjusted []float64
		popSize  int
		want     []int
	}{
		{name: "proportional", adjusted: []float64{3, 1}, popSize: 20, want: []int{15, 5}},
		{name: "minimum one", adjusted: []float64{100, 0}, popSize: 10, want: []int{10, 1}},
		{name: "zero total", adjusted: []float64{0, 0, 0}, popSize: 10, want: []int{3, 3, 3}},
		{name: "negative total", adjusted: []float64{-1, -2}, popSize: 9, want: []int{4, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			species := make([]*Species, len(tt.adjusted))
			for i, adj := range tt.adjusted {
				species[i] = &Species{AdjustedFitnessSum: adj}
			}
			assert.Equal(t, tt.want, OffspringCounts(species, tt.popSize))
		})
	}
}

func TestSpeciateJoinsFirstCompatibleSpecies(t *testing.T) {
	cfg := DefaultConfig()
	set := NewSpeciesSet(cfg)
	tracker := NewInnovationTracker()
	rng := rand.New(rand.NewSource(9))

	base := NewGenome(2, 1, tracker, rng)
	near := base.Clone()
	far := base.Clone()
	for _, c := range far.Connections {
		c.Weight += 10
	}
	require.Greater(t, CompatibilityDistance(base, far, cfg.C1, cfg.C2, cfg.C3), cfg.CompatibilityThreshold)

	set.Speciate([]*Genome{base, near, far}, 0, rng)
	require.Len(t, set.Species, 2)
	assert.Equal(t, []*Genome{base, near}, set.Species[0].Members)
	assert.Equal(t, []*Genome{far}, set.Species[1].Members)

	s, ok := set.GetSpecies(far)
	require.True(t, ok)
	assert.Equal(t, 2, s.ID)

	// Species that attract no members are dropped.
	set.Speciate([]*Genome{far.Clone()}, 1, rng)
	require.Len(t, set.Species, 1)
	assert.Equal(t, 2, set.Species[0].ID)
}

func TestBestReturnsFittest(t *testing.T) {
	pop, err := NewPopulation(smallConfig(4), rand.New(rand.NewSource(2)))
	require.NoError(t, err)
	for i, f := range []float64{1, 7, 7, 3} {
		pop.Genomes[i].Fitness = f
	}
	assert.Same(t, pop.Genomes[1], pop.Best())
}

func TestImportGenomeJoinsPopulationTracker(t *testing.T) {
	cfg := smallConfig(6)
	cfg.HiddenActivation = "tanh"
	pop, err := NewPopulation(cfg, rand.New(rand.NewSource(8)))
	require.NoError(t, err)
	known := make(map[ConnectionKey]int)
	for _, c := range pop.Genomes[0].Connections {
		known[c.Key()] = c.Innovation
	}
	before := pop.Tracker.Len()

	rng := rand.New(rand.NewSource(21))
	g := grownGenome(t, NewInnovationTracker(), rng)
	data, err := MarshalGenome(g)
	require.NoError(t, err)

	imported, err := pop.ImportGenome(data)
	require.NoError(t, err)

	added := 0
	for _, c := range imported.Connections {
		if innovation, ok := known[c.Key()]; ok {
			assert.Equal(t, innovation, c.Innovation, "connection %d->%d", c.From, c.To)
			continue
		}
		added++
		assert.Greater(t, c.Innovation, before)
	}
	assert.Positive(t, added)
	assert.Equal(t, before+added, pop.Tracker.Len())

	g.SetHiddenActivation(Tanh)
	for i := 0; i < 10; i++ {
		inputs := randomInputs(rng, cfg.InputSize)
		assert.Equal(t, g.Activate(inputs), imported.Activate(inputs))
	}
}

func TestImportGenomeRejectsMismatchedShape(t *testing.T) {
	pop, err := NewPopulation(smallConfig(4), rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	before := pop.Tracker.Len()

	other := NewGenome(3, 2, NewInnovationTracker(), rand.New(rand.NewSource(4)))
	data, err := MarshalGenome(other)
	require.NoError(t, err)

	_, err = pop.ImportGenome(data)
	assert.ErrorIs(t, err, dinotrain.ErrInvalidModel)
	assert.Equal(t, before, pop.Tracker.Len())
}

func TestSeedGenomesReplacesFirstMembers(t *testing.T) {
	rng := rand.New(rand.NewSource(14))
	pop, err := NewPopulation(smallConfig(5), rng)
	require.NoError(t, err)

	g := grownGenome(t, NewInnovationTracker(), rng)
	data, err := MarshalGenome(g)
	require.NoError(t, err)

	require.NoError(t, pop.SeedGenomes(data, data))
	assert.Equal(t, g.Nodes, pop.Genomes[0].Nodes)
	assert.Equal(t, g.Nodes, pop.Genomes[1].Nodes)
	assert.NotSame(t, pop.Genomes[0], pop.Genomes[1])
	require.Len(t, pop.Genomes, 5)

	next, err := pop.Evolve([]float64{9, 8, 1, 1, 1})
	require.NoError(t, err)
	assert.Len(t, next, 5)

	err = pop.SeedGenomes(data, data, data, data, data, data)
	assert.ErrorIs(t, err, dinotrain.ErrInvalidConfig)
}
