package ga

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"
)

var (
	// ErrPopulationTooSmall is returned when a population cannot supply two parents.
	ErrPopulationTooSmall = errors.New("ga population must hold at least 2 networks")
	// ErrFitnessCount is returned when the fitness slice does not match the population.
	ErrFitnessCount = errors.New("fitness count does not match population size")
)

// Engine evolves a population of same-shape networks.
type Engine struct {
	Config     Config
	Population []*Network
	Generation int

	rng *rand.Rand
}

// NewEngine validates the config and creates the initial population.
// A nil rng is replaced by a time-seeded source.
func NewEngine(config Config, rng *rand.Rand) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	e := &Engine{Config: config, rng: rng}
	e.Population = make([]*Network, config.PopulationSize)
	for i := range e.Population {
		e.Population[i] = NewNetwork(config.LayerSizes(), rng)
	}
	return e, nil
}

// Evolve builds the next generation from fitnesses, which are indexed like Population.
func (e *Engine) Evolve(fitnesses []float64) ([]*Network, error) {
	size := e.Config.PopulationSize
	if size < 2 || len(e.Population) < 2 {
		return nil, ErrPopulationTooSmall
	}
	if len(fitnesses) != len(e.Population) {
		return nil, fmt.Errorf("%w: got %d fitnesses for %d networks", ErrFitnessCount, len(fitnesses), len(e.Population))
	}

	ranked := e.rank(fitnesses)
	next := make([]*Network, 0, size)

	eliteCount := min(e.Config.ElitismCount, size, len(ranked))
	for i := 0; i < eliteCount; i++ {
		next = append(next, ranked[i].Clone())
	}

	parentCount := max(2, int(math.Ceil(float64(size)/4)))
	parentCount = min(parentCount, len(ranked))
	parents := ranked[:parentCount]

	for len(next) < size {
		a := parents[e.rng.Intn(len(parents))]
		b := parents[e.rng.Intn(len(parents))]

		var child *Network
		if e.rng.Float64() < e.Config.CrossoverRate {
			child = Crossover(a, b, e.rng)
		} else {
			child = a.Clone()
		}
		child.Mutate(e.Config.MutationRate, e.Config.MutationStrength, e.rng)
		next = append(next, child)
	}

	e.Population = next
	e.Generation++
	return e.Population, nil
}

// Best returns the first member of the current population, which after Evolve is
// the clone of the previous generation's fittest network when elitism is enabled.
func (e *Engine) Best() *Network {
	if len(e.Population) == 0 {
		return nil
	}
	return e.Population[0]
}

// rank orders the population by descending fitness; equal fitnesses keep population order.
func (e *Engine) rank(fitnesses []float64) []*Network {
	order := make([]int, len(e.Population))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return fitnesses[order[i]] > fitnesses[order[j]]
	})
	ranked := make([]*Network, len(order))
	for i, idx := range order {
		ranked[i] = e.Population[idx]
	}
	return ranked
}

// Crossover builds a child by taking every weight and bias from either parent with equal probability.
// Parents of different shapes yield a clone of a.
func Crossover(a, b *Network, rng *rand.Rand) *Network {
	child := a.Clone()
	if !a.sameShape(b) {
		return child
	}
	for l := range child.Weights {
		for o := range child.Weights[l] {
			row := child.Weights[l][o]
			for i := range row {
				if rng.Float64() < 0.5 {
					row[i] = b.Weights[l][o][i]
				}
			}
			if rng.Float64() < 0.5 {
				child.Bias[l][o] = b.Bias[l][o]
			}
		}
	}
	return child
}
