package neat

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/baldhumanity/dinotrain"
)

// ErrFitnessCount is returned when the fitness slice does not match the population.
var ErrFitnessCount = errors.New("fitness count does not match population size")

// Population holds the state of the NEAT evolutionary process.
type Population struct {
	Config       Config
	Genomes      []*Genome // Current generation, indexed like the fitness slice passed to Evolve
	SpeciesSet   *SpeciesSet
	Reproduction *Reproduction
	Stagnation   *Stagnation
	Tracker      *InnovationTracker // Owned by this population; never shared between runs
	Generation   int
	Logger       *slog.Logger // Defaults to slog.Default()

	hidden ActivationType
	rng    *rand.Rand
}

// NewPopulation validates the config and creates the first generation with a fresh innovation tracker.
// A nil rng is replaced by a time-seeded source.
func NewPopulation(config Config, rng *rand.Rand) (*Population, error) {
	p, err := newPopulationShell(config, rng)
	if err != nil {
		return nil, err
	}
	p.Genomes = p.Reproduction.CreateNewPopulation(config.PopulationSize)
	return p, nil
}

// newPopulationShell wires every collaborator of a population without creating genomes.
func newPopulationShell(config Config, rng *rand.Rand) (*Population, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	hidden, err := GetActivation(config.HiddenActivation)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve hidden activation: %w", err)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	tracker := NewInnovationTracker()
	return &Population{
		Config:       config,
		SpeciesSet:   NewSpeciesSet(config),
		Reproduction: NewReproduction(config, tracker, hidden, rng),
		Stagnation:   NewStagnation(config.MaxStaleness),
		Tracker:      tracker,
		hidden:       hidden,
		rng:          rng,
	}, nil
}

// Species returns the current species list.
func (p *Population) Species() []*Species {
	return p.SpeciesSet.Species
}

// Evolve runs one generation: it assigns fitnesses (indexed like Genomes), speciates, updates
// staleness and shared fitness, prunes stale species, and breeds exactly PopulationSize genomes.
func (p *Population) Evolve(fitnesses []float64) ([]*Genome, error) {
	if len(fitnesses) != len(p.Genomes) {
		return nil, fmt.Errorf("%w: got %d fitnesses for %d genomes", ErrFitnessCount, len(fitnesses), len(p.Genomes))
	}
	for i, g := range p.Genomes {
		g.Fitness = fitnesses[i]
	}

	p.SpeciesSet.Speciate(p.Genomes, p.Generation, p.rng)
	p.Stagnation.Update(p.SpeciesSet.Species)

	var fallback *Genome
	if len(p.Genomes) > 0 {
		fallback = p.Genomes[0]
	}
	for _, s := range p.Stagnation.Prune(p.SpeciesSet, p.Generation, fallback) {
		p.logger().Debug("species removed due to stagnation",
			"species", s.ID, "staleness", s.Staleness, "generation", p.Generation)
	}

	p.Genomes = p.Reproduction.Reproduce(p.SpeciesSet.Species, p.Config.PopulationSize)
	p.Generation++
	return p.Genomes, nil
}

// Best returns the genome with the highest fitness in the current generation, or nil if empty.
// Ties keep the earliest genome.
func (p *Population) Best() *Genome {
	if len(p.Genomes) == 0 {
		return nil
	}
	best := p.Genomes[0]
	for _, g := range p.Genomes[1:] {
		if g.Fitness > best.Fitness {
			best = g
		}
	}
	return best
}

// ImportGenome decodes an exported genome for use in this population. Its connections take
// their innovation numbers from p.Tracker and its hidden nodes use the configured activation.
// A genome whose input or output size differs from the config is rejected before the tracker
// is touched.
func (p *Population) ImportGenome(data []byte) (*Genome, error) {
	g, err := decodeGenome(data)
	if err != nil {
		return nil, err
	}
	if g.InputSize != p.Config.InputSize || g.OutputSize != p.Config.OutputSize {
		return nil, fmt.Errorf("%w: genome has %d inputs and %d outputs, population expects %d and %d",
			dinotrain.ErrInvalidModel, g.InputSize, g.OutputSize, p.Config.InputSize, p.Config.OutputSize)
	}
	g.replayInnovations(p.Tracker)
	g.SetHiddenActivation(p.hidden)
	return g, nil
}

// SeedGenomes replaces the first genomes of the current generation with imported ones.
// It is meant to run before the first call to Evolve.
func (p *Population) SeedGenomes(models ...[]byte) error {
	if len(models) > len(p.Genomes) {
		return fmt.Errorf("%w: %d seed genomes for a population of %d",
			dinotrain.ErrInvalidConfig, len(models), len(p.Genomes))
	}
	for i, data := range models {
		g, err := p.ImportGenome(data)
		if err != nil {
			return err
		}
		p.Genomes[i] = g
	}
	return nil
}

func (p *Population) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}
