package neat

import "sort"

// InnovationTracker hands out historical markers for connections.
// The same (from, to) pair always receives the same innovation number within one run,
// so structurally identical mutations in different genomes line up during crossover
// and distance computation. A tracker is owned by one Population and passed explicitly
// to every operation that creates connections.
type InnovationTracker struct {
	counter int
	history map[ConnectionKey]int
}

// NewInnovationTracker creates an empty tracker.
func NewInnovationTracker() *InnovationTracker {
	return &InnovationTracker{history: make(map[ConnectionKey]int)}
}

// Innovation returns the marker for from->to, assigning the next number on first use.
func (t *InnovationTracker) Innovation(from, to int) int {
	key := ConnectionKey{From: from, To: to}
	if innov, ok := t.history[key]; ok {
		return innov
	}
	t.counter++
	t.history[key] = t.counter
	return t.counter
}

// Current returns the most recently assigned innovation number.
func (t *InnovationTracker) Current() int {
	return t.counter
}

// Len returns the number of distinct connections seen.
func (t *InnovationTracker) Len() int {
	return len(t.history)
}

// InnovationRecord is one entry of a tracker's history.
type InnovationRecord struct {
	From       int `json:"from"`
	To         int `json:"to"`
	Innovation int `json:"innovation"`
}

// Records returns the history ordered by innovation number.
func (t *InnovationTracker) Records() []InnovationRecord {
	records := make([]InnovationRecord, 0, len(t.history))
	for key, innov := range t.history {
		records = append(records, InnovationRecord{From: key.From, To: key.To, Innovation: innov})
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Innovation < records[j].Innovation
	})
	return records
}

// restoreTracker rebuilds a tracker from saved records. The counter never falls below the
// highest recorded innovation.
func restoreTracker(records []InnovationRecord, counter int) *InnovationTracker {
	t := NewInnovationTracker()
	t.counter = counter
	for _, r := range records {
		t.history[ConnectionKey{From: r.From, To: r.To}] = r.Innovation
		t.counter = max(t.counter, r.Innovation)
	}
	return t
}
