package neat

import "math/rand"

// Species represents a group of genetically similar genomes.
type Species struct {
	ID                 int       // Unique identifier within a population.
	Created            int       // Generation number when the species was founded.
	Representative     *Genome   // Genome new members are compared against.
	Members            []*Genome // Genomes assigned this generation, in assignment order.
	BestFitness        float64   // Highest raw member fitness the species has ever reached.
	Staleness          int       // Generations since BestFitness last improved.
	AdjustedFitnessSum float64   // Sum of member fitnesses after sharing.
}

// NewSpecies founds a species with representative as its only member.
func NewSpecies(id, generation int, representative *Genome) *Species {
	return &Species{
		ID:             id,
		Created:        generation,
		Representative: representative,
		Members:        []*Genome{representative},
	}
}

// adjustFitness applies fitness sharing: every member's fitness counts 1/size towards the sum.
func (s *Species) adjustFitness() {
	s.AdjustedFitnessSum = 0
	if len(s.Members) == 0 {
		return
	}
	size := float64(len(s.Members))
	for _, g := range s.Members {
		s.AdjustedFitnessSum += g.Fitness / size
	}
}

// --------------------------- SpeciesSet ---------------------------

// SpeciesSet manages the collection of species within a population.
type SpeciesSet struct {
	Species []*Species // Insertion order decides which species a genome is tested against first.
	Indexer int        // Counter for assigning new species ids (starts at 1).

	threshold  float64
	c1, c2, c3 float64
}

// NewSpeciesSet creates an empty species set using the config's compatibility settings.
func NewSpeciesSet(config Config) *SpeciesSet {
	return &SpeciesSet{
		Indexer:   1,
		threshold: config.CompatibilityThreshold,
		c1:        config.C1,
		c2:        config.C2,
		c3:        config.C3,
	}
}

// Speciate partitions genomes into species.
// Members are cleared but representatives kept; each genome joins the first species (in insertion
// order) whose representative is closer than the compatibility threshold, otherwise it founds a
// new species. Empty species are dropped and every survivor picks a random member as its next
// representative.
func (ss *SpeciesSet) Speciate(genomes []*Genome, generation int, rng *rand.Rand) {
	for _, s := range ss.Species {
		s.Members = nil
	}

	for _, g := range genomes {
		placed := false
		for _, s := range ss.Species {
			if CompatibilityDistance(g, s.Representative, ss.c1, ss.c2, ss.c3) < ss.threshold {
				s.Members = append(s.Members, g)
				placed = true
				break
			}
		}
		if !placed {
			ss.Species = append(ss.Species, ss.found(generation, g))
		}
	}

	kept := ss.Species[:0]
	for _, s := range ss.Species {
		if len(s.Members) > 0 {
			kept = append(kept, s)
		}
	}
	ss.Species = kept

	for _, s := range ss.Species {
		s.Representative = s.Members[rng.Intn(len(s.Members))]
	}
}

// found creates a species with the next id.
func (ss *SpeciesSet) found(generation int, representative *Genome) *Species {
	s := NewSpecies(ss.Indexer, generation, representative)
	ss.Indexer++
	return s
}

// GetSpecies returns the species holding genome, if any.
func (ss *SpeciesSet) GetSpecies(genome *Genome) (*Species, bool) {
	for _, s := range ss.Species {
		for _, m := range s.Members {
			if m == genome {
				return s, true
			}
		}
	}
	return nil, false
}
