// Package modes runs the generation loop of each optimizer against a dinotrain.Environment.
//
// A mode loads a cohort of brains into the environment and starts it. When the environment
// reports that every agent has terminated, the mode turns the results into fitness values,
// records a GenerationStats row, evolves or updates its engine, and loads the next cohort.
// Everything happens inside the environment's callback; modes are not safe for concurrent use.
package modes

import (
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/baldhumanity/dinotrain"
	"github.com/baldhumanity/dinotrain/telemetry"
)

// ErrNoModel is returned by ExportBest before any generation has produced a best model.
var ErrNoModel = errors.New("no best model recorded yet")

// GenerationStats is the per-generation report shared with telemetry.
type GenerationStats = telemetry.GenerationStats

// Recorder receives one row per finished generation. *telemetry.Recorder implements it.
type Recorder interface {
	Record(stats GenerationStats) error
}

// Mode is the engine-independent surface of a training controller.
type Mode interface {
	Stop()
	Running() bool
	Generation() int
	Stats() []GenerationStats
	BestFitness() float64
	OnStats(fn func(GenerationStats))
	SetRecorder(r Recorder)
	SetRand(rng *rand.Rand)
	ExportBest() ([]byte, error)
	Err() error
}

// controller holds the state every mode shares.
type controller struct {
	name   string
	env    dinotrain.Environment
	logger *slog.Logger

	recorder Recorder
	onStats  func(GenerationStats)
	rng      *rand.Rand

	running     bool
	err         error
	stats       []GenerationStats
	bestAllTime float64
}

func newController(name string, env dinotrain.Environment, logger *slog.Logger) controller {
	if logger == nil {
		logger = slog.Default()
	}
	return controller{name: name, env: env, logger: logger.With("mode", name)}
}

// Stop ends training at the next generation boundary.
func (c *controller) Stop() {
	c.running = false
}

// Running reports whether training is in progress.
func (c *controller) Running() bool {
	return c.running
}

// Stats returns the reports of all finished generations of the current run.
func (c *controller) Stats() []GenerationStats {
	return c.stats
}

// BestFitness returns the best score seen in the current run.
func (c *controller) BestFitness() float64 {
	return c.bestAllTime
}

// OnStats registers a callback invoked after every generation.
func (c *controller) OnStats(fn func(GenerationStats)) {
	c.onStats = fn
}

// SetRecorder sets where generation rows are written.
func (c *controller) SetRecorder(r Recorder) {
	c.recorder = r
}

// SetRand sets the random source used by the next Start. nil means time-seeded.
func (c *controller) SetRand(rng *rand.Rand) {
	c.rng = rng
}

// Err returns the error that stopped training, if any.
func (c *controller) Err() error {
	return c.err
}

func (c *controller) random() *rand.Rand {
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return c.rng
}

// reset prepares the shared state for a new run.
func (c *controller) reset() {
	c.running = true
	c.err = nil
	c.stats = nil
	c.bestAllTime = 0
}

// fail stops training after an engine error.
func (c *controller) fail(err error) {
	c.running = false
	c.err = err
	c.logger.Error("training stopped", "error", err)
}

// improved reports whether best beats the all-time best and records it if so.
func (c *controller) improved(best float64) bool {
	if best > c.bestAllTime {
		c.bestAllTime = best
		return true
	}
	return false
}

// publish appends the row and forwards it to the callback and the recorder.
func (c *controller) publish(stats GenerationStats) {
	stats.BestAllTime = c.bestAllTime
	c.stats = append(c.stats, stats)

	if c.onStats != nil {
		c.onStats(stats)
	}
	if c.recorder != nil {
		if err := c.recorder.Record(stats); err != nil {
			c.logger.Warn("failed to record generation", "generation", stats.Generation, "error", err)
		}
	}
}

// fitnesses maps each brain to its score in results. Brains without a result score 0.
func fitnesses[B dinotrain.Brain](brains []B, results []dinotrain.Result) []float64 {
	scores := make(map[dinotrain.Brain]float64, len(results))
	for _, r := range results {
		scores[r.Brain] = r.Score
	}
	out := make([]float64, len(brains))
	for i, b := range brains {
		out[i] = scores[b]
	}
	return out
}

// load hands a cohort to the environment and starts it.
func load[B dinotrain.Brain](env dinotrain.Environment, brains []B, onAllDone func([]dinotrain.Result)) {
	cohort := make([]dinotrain.Brain, len(brains))
	for i, b := range brains {
		cohort[i] = b
	}
	env.Load(cohort, onAllDone)
	env.Start()
}

var (
	_ Mode = (*GAMode)(nil)
	_ Mode = (*NEATMode)(nil)
	_ Mode = (*PPOMode)(nil)
)
