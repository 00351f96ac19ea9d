package neat

import (
	"math"
	"math/rand"
	"sort"
)

// Reproduction handles the creation of new genomes, either from scratch or through crossover and mutation.
type Reproduction struct {
	Config  Config
	Tracker *InnovationTracker

	hidden ActivationType
	rng    *rand.Rand
}

// NewReproduction creates a reproduction manager sharing the population's tracker and rng.
func NewReproduction(config Config, tracker *InnovationTracker, hidden ActivationType, rng *rand.Rand) *Reproduction {
	return &Reproduction{
		Config:  config,
		Tracker: tracker,
		hidden:  hidden,
		rng:     rng,
	}
}

// CreateNewPopulation creates the initial genomes: fully connected input to output, then every
// weight perturbed once for diversity.
func (r *Reproduction) CreateNewPopulation(popSize int) []*Genome {
	genomes := make([]*Genome, popSize)
	for i := range genomes {
		g := NewGenome(r.Config.InputSize, r.Config.OutputSize, r.Tracker, r.rng)
		g.SetHiddenActivation(r.hidden)
		g.MutateWeights(1.0, 0.5, r.rng)
		genomes[i] = g
	}
	return genomes
}

// OffspringCounts returns how many children each species may produce: its share of the total
// adjusted fitness times popSize, rounded down, at least 1. When the total is not positive every
// species gets an equal share.
func OffspringCounts(species []*Species, popSize int) []int {
	totalAdj := 0.0
	for _, s := range species {
		totalAdj += s.AdjustedFitnessSum
	}

	counts := make([]int, len(species))
	for i, s := range species {
		if totalAdj > 0 {
			counts[i] = max(1, int(math.Floor(s.AdjustedFitnessSum/totalAdj*float64(popSize))))
		} else {
			counts[i] = max(1, popSize/len(species))
		}
	}
	return counts
}

// Reproduce builds exactly popSize genomes from the current species.
// Each species contributes an unmutated clone of its champion followed by children bred from its
// top survivors. Rounding shortfalls are padded with weight-mutated clones of random members and
// overshoot is trimmed from the tail.
func (r *Reproduction) Reproduce(species []*Species, popSize int) []*Genome {
	next := make([]*Genome, 0, popSize)
	if len(species) == 0 {
		return r.CreateNewPopulation(popSize)
	}

	counts := OffspringCounts(species, popSize)
	for i, s := range species {
		if len(s.Members) == 0 {
			continue
		}
		sort.SliceStable(s.Members, func(a, b int) bool {
			return s.Members[a].Fitness > s.Members[b].Fitness
		})

		next = append(next, s.Members[0].Clone())

		survivors := max(1, int(math.Ceil(float64(len(s.Members))*r.Config.SurvivalRate)))
		survivors = min(survivors, len(s.Members))
		parents := s.Members[:survivors]

		for n := 1; n < counts[i]; n++ {
			next = append(next, r.breed(parents))
		}
	}

	populated := make([]*Species, 0, len(species))
	for _, s := range species {
		if len(s.Members) > 0 {
			populated = append(populated, s)
		}
	}
	if len(populated) == 0 {
		return append(next, r.CreateNewPopulation(popSize-len(next))...)
	}
	for len(next) < popSize {
		s := populated[r.rng.Intn(len(populated))]
		child := s.Members[r.rng.Intn(len(s.Members))].Clone()
		child.MutateWeights(r.Config.WeightMutationRate, 0.2, r.rng)
		next = append(next, child)
	}
	if len(next) > popSize {
		next = next[:popSize]
	}
	return next
}

// breed produces one mutated child from the survivor pool.
func (r *Reproduction) breed(parents []*Genome) *Genome {
	var child *Genome
	if len(parents) == 1 || r.rng.Float64() < 0.25 {
		child = parents[r.rng.Intn(len(parents))].Clone()
	} else {
		p1 := parents[r.rng.Intn(len(parents))]
		p2 := parents[r.rng.Intn(len(parents))]
		if p1.Fitness >= p2.Fitness {
			child = Crossover(p1, p2, r.rng)
		} else {
			child = Crossover(p2, p1, r.rng)
		}
	}
	r.mutate(child)
	return child
}

// mutate applies the per-child mutation schedule.
func (r *Reproduction) mutate(child *Genome) {
	child.MutateWeights(r.Config.WeightMutationRate, 0.2, r.rng)
	if r.rng.Float64() < r.Config.AddNodeRate {
		child.MutateAddNode(r.Tracker, r.rng)
	}
	if r.rng.Float64() < r.Config.AddConnectionRate {
		child.MutateAddConnection(r.Tracker, r.rng)
	}
	if r.Config.ToggleRate > 0 && r.rng.Float64() < r.Config.ToggleRate {
		child.MutateToggle(r.rng)
	}
}
