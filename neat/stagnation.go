package neat

// Stagnation tracks how long each species has gone without a new best fitness.
type Stagnation struct {
	MaxStaleness int // Species stale for this many generations are removed.
}

// NewStagnation creates a stagnation manager with the given staleness limit.
func NewStagnation(maxStaleness int) *Stagnation {
	return &Stagnation{MaxStaleness: maxStaleness}
}

// Update refreshes every species' staleness from its members' raw fitness and then applies
// fitness sharing. A member beating the species' best resets staleness to 0, otherwise it grows by 1.
func (st *Stagnation) Update(species []*Species) {
	for _, s := range species {
		if len(s.Members) == 0 {
			continue
		}
		best := s.Members[0].Fitness
		for _, g := range s.Members[1:] {
			best = max(best, g.Fitness)
		}
		if best > s.BestFitness {
			s.BestFitness = best
			s.Staleness = 0
		} else {
			s.Staleness++
		}
		s.adjustFitness()
	}
}

// Prune removes stale species. Nothing is removed when only one species exists, and if every
// species was stale a fresh species is founded from fallback so the list never empties.
func (st *Stagnation) Prune(set *SpeciesSet, generation int, fallback *Genome) []*Species {
	if len(set.Species) <= 1 {
		return nil
	}

	var removed []*Species
	kept := make([]*Species, 0, len(set.Species))
	for _, s := range set.Species {
		if s.Staleness >= st.MaxStaleness {
			removed = append(removed, s)
			continue
		}
		kept = append(kept, s)
	}
	set.Species = kept

	if len(set.Species) == 0 && fallback != nil {
		set.Species = append(set.Species, set.found(generation, fallback))
	}
	return removed
}
