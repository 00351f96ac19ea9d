package modes

import (
	"log/slog"

	"gonum.org/v1/gonum/floats"

	"github.com/baldhumanity/dinotrain"
	"github.com/baldhumanity/dinotrain/ga"
	"github.com/baldhumanity/dinotrain/telemetry"
)

// GAMode trains fixed-topology networks with the genetic algorithm.
type GAMode struct {
	controller
	Engine *ga.Engine

	best *ga.Network
}

// NewGAMode creates a GA controller for env. A nil logger uses slog.Default().
func NewGAMode(env dinotrain.Environment, logger *slog.Logger) *GAMode {
	return &GAMode{controller: newController("ga", env, logger)}
}

// Start validates cfg, creates the first population and starts the environment on it.
func (m *GAMode) Start(cfg ga.Config) error {
	engine, err := ga.NewEngine(cfg, m.random())
	if err != nil {
		return err
	}
	m.Engine = engine
	m.best = nil
	m.reset()
	m.logger.Info("training started", "population", cfg.PopulationSize, "layers", cfg.LayerSizes())

	load(m.env, engine.Population, m.endGeneration)
	return nil
}

// Generation returns the number of completed generations.
func (m *GAMode) Generation() int {
	if m.Engine == nil {
		return 0
	}
	return m.Engine.Generation
}

// BestModel returns a copy of the fittest network seen so far, or nil.
func (m *GAMode) BestModel() *ga.Network {
	return m.best
}

// ExportBest encodes the best network as JSON.
func (m *GAMode) ExportBest() ([]byte, error) {
	if m.best == nil {
		return nil, ErrNoModel
	}
	return ga.MarshalNetwork(m.best)
}

func (m *GAMode) endGeneration(results []dinotrain.Result) {
	if !m.running || m.Engine == nil {
		return
	}

	population := m.Engine.Population
	fit := fitnesses(population, results)
	summary := telemetry.Summarize(fit)
	if m.improved(summary.Best) {
		m.best = population[floats.MaxIdx(fit)].Clone()
	}

	stats := GenerationStats{Generation: m.Engine.Generation}
	summary.Apply(&stats)
	m.publish(stats)
	m.logger.Info("generation complete",
		"generation", stats.Generation,
		"best", stats.BestFitness,
		"avg", stats.AvgFitness,
		"best_all_time", m.bestAllTime)

	next, err := m.Engine.Evolve(fit)
	if err != nil {
		m.fail(err)
		return
	}
	if !m.running {
		return
	}
	load(m.env, next, m.endGeneration)
}
