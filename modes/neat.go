package modes

import (
	"errors"
	"log/slog"

	"gonum.org/v1/gonum/floats"

	"github.com/baldhumanity/dinotrain"
	"github.com/baldhumanity/dinotrain/neat"
	"github.com/baldhumanity/dinotrain/neat/nn"
	"github.com/baldhumanity/dinotrain/telemetry"
)

// NEATMode trains growing topologies with NEAT.
type NEATMode struct {
	controller
	Population *neat.Population

	// Brains handed to the environment, indexed like Population.Genomes.
	brains []dinotrain.Brain
	best   *neat.Genome
}

// NewNEATMode creates a NEAT controller for env. A nil logger uses slog.Default().
func NewNEATMode(env dinotrain.Environment, logger *slog.Logger) *NEATMode {
	return &NEATMode{controller: newController("neat", env, logger)}
}

// Start validates cfg, creates a population with a fresh innovation tracker and starts
// the environment on it. Each seed is an exported genome that replaces one member of the
// first generation.
func (m *NEATMode) Start(cfg neat.Config, seeds ...[]byte) error {
	pop, err := neat.NewPopulation(cfg, m.random())
	if err != nil {
		return err
	}
	if err := pop.SeedGenomes(seeds...); err != nil {
		return err
	}
	if len(seeds) > 0 {
		m.logger.Info("seeded population", "genomes", len(seeds))
	}
	m.begin(pop)
	return nil
}

// Resume continues training from a checkpoint written by Checkpoint.
func (m *NEATMode) Resume(checkpointPath string) error {
	pop, err := neat.LoadCheckpoint(checkpointPath, m.random())
	if err != nil {
		return err
	}
	m.begin(pop)
	return nil
}

func (m *NEATMode) begin(pop *neat.Population) {
	pop.Logger = m.logger
	m.Population = pop
	m.best = nil
	m.reset()
	m.logger.Info("training started",
		"population", len(pop.Genomes),
		"generation", pop.Generation,
		"inputs", pop.Config.InputSize,
		"outputs", pop.Config.OutputSize)
	m.startGeneration()
}

// Checkpoint saves the population so training can be resumed later.
func (m *NEATMode) Checkpoint(path string) error {
	if m.Population == nil {
		return errors.New("no population to checkpoint")
	}
	return m.Population.SaveCheckpoint(path)
}

// Generation returns the number of completed generations.
func (m *NEATMode) Generation() int {
	if m.Population == nil {
		return 0
	}
	return m.Population.Generation
}

// BestModel returns a copy of the fittest genome seen so far, or nil.
func (m *NEATMode) BestModel() *neat.Genome {
	return m.best
}

// ExportBest encodes the best genome as JSON.
func (m *NEATMode) ExportBest() ([]byte, error) {
	if m.best == nil {
		return nil, ErrNoModel
	}
	return neat.MarshalGenome(m.best)
}

// startGeneration compiles every genome and loads the cohort. A genome that fails to
// compile plays through its own Feedforward.
func (m *NEATMode) startGeneration() {
	genomes := m.Population.Genomes
	m.brains = make([]dinotrain.Brain, len(genomes))
	for i, g := range genomes {
		net, err := nn.CreateFeedForwardNetwork(g)
		if err != nil {
			m.logger.Warn("failed to compile genome", "index", i, "error", err)
			m.brains[i] = g
			continue
		}
		m.brains[i] = net
	}
	load(m.env, m.brains, m.endGeneration)
}

func (m *NEATMode) endGeneration(results []dinotrain.Result) {
	if !m.running || m.Population == nil {
		return
	}

	fit := fitnesses(m.brains, results)
	summary := telemetry.Summarize(fit)
	current := m.Population.Genomes[floats.MaxIdx(fit)]
	if m.improved(summary.Best) {
		m.best = current.Clone()
		m.best.Fitness = summary.Best
	}

	stats := GenerationStats{
		Generation:      m.Population.Generation,
		SpeciesCount:    len(m.Population.Species()),
		NodeCount:       len(current.Nodes),
		ConnectionCount: current.EnabledConnections(),
	}
	summary.Apply(&stats)
	m.publish(stats)
	m.logger.Info("generation complete",
		"generation", stats.Generation,
		"best", stats.BestFitness,
		"avg", stats.AvgFitness,
		"species", stats.SpeciesCount,
		"nodes", stats.NodeCount)

	if _, err := m.Population.Evolve(fit); err != nil {
		m.fail(err)
		return
	}
	if !m.running {
		return
	}
	m.startGeneration()
}
