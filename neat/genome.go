package neat

import (
	"math"
	"math/rand"
	"sort"
)

// maxAddConnectionAttempts bounds the random search for an unconnected feed-forward pair.
const maxAddConnectionAttempts = 30

// Genome represents an individual organism in the population.
// Input node ids are 0..InputSize-1 and output node ids follow them; hidden nodes are
// created only by MutateAddNode and take ids from NextNodeID.
type Genome struct {
	InputSize   int
	OutputSize  int
	NextNodeID  int
	Nodes       []*NodeGene
	Connections []*ConnectionGene
	Fitness     float64 // Overwritten every generation

	hidden ActivationType
}

// NewGenome creates a genome with every input connected to every output.
// Weights are drawn uniformly from [-0.5, 0.5).
func NewGenome(inputSize, outputSize int, tracker *InnovationTracker, rng *rand.Rand) *Genome {
	g := newBareGenome(inputSize, outputSize)
	for i := 0; i < inputSize; i++ {
		g.Nodes = append(g.Nodes, &NodeGene{ID: i, Type: InputNode, Layer: 0})
	}
	for o := 0; o < outputSize; o++ {
		g.Nodes = append(g.Nodes, &NodeGene{ID: inputSize + o, Type: OutputNode, Layer: 1})
	}
	for i := 0; i < inputSize; i++ {
		for o := 0; o < outputSize; o++ {
			to := inputSize + o
			g.Connections = append(g.Connections, &ConnectionGene{
				Innovation: tracker.Innovation(i, to),
				From:       i,
				To:         to,
				Weight:     uniform(rng) * 0.5,
				Enabled:    true,
			})
		}
	}
	return g
}

// newBareGenome creates a genome with no genes.
func newBareGenome(inputSize, outputSize int) *Genome {
	return &Genome{
		InputSize:  inputSize,
		OutputSize: outputSize,
		NextNodeID: inputSize + outputSize,
	}
}

// SetHiddenActivation changes the function applied by hidden nodes. Nil restores ReLU.
func (g *Genome) SetHiddenActivation(fn ActivationType) {
	g.hidden = fn
}

// HiddenActivation returns the function applied by hidden nodes.
func (g *Genome) HiddenActivation() ActivationType {
	if g.hidden == nil {
		return ReLU
	}
	return g.hidden
}

// Feedforward implements dinotrain.Brain: it returns the index of the largest output,
// preferring the lowest index on ties.
func (g *Genome) Feedforward(inputs []float64) int {
	return argmax(g.Activate(inputs))
}

// Activate computes the value of every output node.
// Non-input nodes are processed in ascending layer order; hidden nodes apply the hidden
// activation and output nodes are linear. Missing inputs read as zero.
func (g *Genome) Activate(inputs []float64) []float64 {
	values := make(map[int]float64, len(g.Nodes))
	for i := 0; i < g.InputSize && i < len(inputs); i++ {
		values[i] = inputs[i]
	}

	incoming := make(map[int][]*ConnectionGene)
	for _, c := range g.Connections {
		if c.Enabled {
			incoming[c.To] = append(incoming[c.To], c)
		}
	}

	act := g.HiddenActivation()
	for _, node := range g.sortedNodes() {
		if node.Type == InputNode {
			continue
		}
		sum := 0.0
		for _, c := range incoming[node.ID] {
			sum += values[c.From] * c.Weight
		}
		if node.Type == HiddenNode {
			sum = act(sum)
		}
		values[node.ID] = sum
	}

	outputs := make([]float64, g.OutputSize)
	for o := range outputs {
		outputs[o] = values[g.InputSize+o]
	}
	return outputs
}

// sortedNodes returns the nodes ordered by layer; equal layers keep gene order.
func (g *Genome) sortedNodes() []*NodeGene {
	sorted := make([]*NodeGene, len(g.Nodes))
	copy(sorted, g.Nodes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Layer < sorted[j].Layer
	})
	return sorted
}

// node returns the node gene with the given id, or nil.
func (g *Genome) node(id int) *NodeGene {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// hasConnection reports whether any gene (enabled or not) links from->to.
func (g *Genome) hasConnection(from, to int) bool {
	for _, c := range g.Connections {
		if c.From == from && c.To == to {
			return true
		}
	}
	return false
}

// MutateAddNode splits a random enabled connection with a new hidden node.
// The incoming half gets weight 1 and the outgoing half the original weight, so the
// split leaves the network's function unchanged (for non-negative signals through ReLU).
// Returns false when no enabled connection exists.
func (g *Genome) MutateAddNode(tracker *InnovationTracker, rng *rand.Rand) bool {
	enabled := make([]*ConnectionGene, 0, len(g.Connections))
	for _, c := range g.Connections {
		if c.Enabled {
			enabled = append(enabled, c)
		}
	}
	if len(enabled) == 0 {
		return false
	}

	conn := enabled[rng.Intn(len(enabled))]
	from, to := g.node(conn.From), g.node(conn.To)
	if from == nil || to == nil {
		return false
	}
	conn.Enabled = false

	newID := g.NextNodeID
	g.NextNodeID++
	g.Nodes = append(g.Nodes, &NodeGene{ID: newID, Type: HiddenNode, Layer: (from.Layer + to.Layer) / 2})

	g.Connections = append(g.Connections,
		&ConnectionGene{
			Innovation: tracker.Innovation(conn.From, newID),
			From:       conn.From,
			To:         newID,
			Weight:     1.0,
			Enabled:    true,
		},
		&ConnectionGene{
			Innovation: tracker.Innovation(newID, conn.To),
			From:       newID,
			To:         conn.To,
			Weight:     conn.Weight,
			Enabled:    true,
		},
	)
	return true
}

// MutateAddConnection tries up to 30 random node pairs for one with from.Layer < to.Layer
// and no existing gene between them. Exhausting the attempts is not an error; it returns false.
func (g *Genome) MutateAddConnection(tracker *InnovationTracker, rng *rand.Rand) bool {
	if len(g.Nodes) < 2 {
		return false
	}
	for attempt := 0; attempt < maxAddConnectionAttempts; attempt++ {
		from := g.Nodes[rng.Intn(len(g.Nodes))]
		to := g.Nodes[rng.Intn(len(g.Nodes))]

		if from.ID == to.ID || from.Layer >= to.Layer {
			continue
		}
		if g.hasConnection(from.ID, to.ID) {
			continue
		}

		g.Connections = append(g.Connections, &ConnectionGene{
			Innovation: tracker.Innovation(from.ID, to.ID),
			From:       from.ID,
			To:         to.ID,
			Weight:     uniform(rng),
			Enabled:    true,
		})
		return true
	}
	return false
}

// MutateWeights visits every connection and, with probability rate, either replaces the
// weight with a fresh uniform(-1, 1) value (10% of the time) or perturbs it by
// strength * uniform(-1, 1).
func (g *Genome) MutateWeights(rate, strength float64, rng *rand.Rand) {
	for _, c := range g.Connections {
		if rng.Float64() >= rate {
			continue
		}
		if rng.Float64() < 0.1 {
			c.Weight = uniform(rng)
		} else {
			c.Weight += uniform(rng) * strength
		}
	}
}

// MutateToggle flips the enabled flag of one random connection.
func (g *Genome) MutateToggle(rng *rand.Rand) {
	if len(g.Connections) == 0 {
		return
	}
	c := g.Connections[rng.Intn(len(g.Connections))]
	c.Enabled = !c.Enabled
}

// Clone returns an independent copy with its fitness reset.
func (g *Genome) Clone() *Genome {
	c := newBareGenome(g.InputSize, g.OutputSize)
	c.NextNodeID = g.NextNodeID
	c.hidden = g.hidden
	c.Nodes = make([]*NodeGene, len(g.Nodes))
	for i, n := range g.Nodes {
		c.Nodes[i] = n.Copy()
	}
	c.Connections = make([]*ConnectionGene, len(g.Connections))
	for i, conn := range g.Connections {
		c.Connections[i] = conn.Copy()
	}
	return c
}

// Crossover creates a child from a fitter and a weaker parent.
// Matching genes (same innovation) take either parent's copy at random and, when either
// copy is disabled, are re-enabled with probability 0.25. Genes unique to better are
// inherited as-is; genes unique to worse are dropped. The child keeps every input and
// output node plus the nodes its connections reference.
func Crossover(better, worse *Genome, rng *rand.Rand) *Genome {
	child := newBareGenome(better.InputSize, better.OutputSize)
	child.NextNodeID = max(better.NextNodeID, worse.NextNodeID)
	child.hidden = better.hidden

	worseByInnovation := make(map[int]*ConnectionGene, len(worse.Connections))
	for _, c := range worse.Connections {
		worseByInnovation[c.Innovation] = c
	}

	for _, bc := range better.Connections {
		wc, matching := worseByInnovation[bc.Innovation]
		if !matching {
			child.Connections = append(child.Connections, bc.Copy())
			continue
		}
		chosen := bc.Copy()
		if rng.Float64() >= 0.5 {
			chosen = wc.Copy()
		}
		if !bc.Enabled || !wc.Enabled {
			if rng.Float64() < 0.25 {
				chosen.Enabled = true
			}
		}
		child.Connections = append(child.Connections, chosen)
	}

	needed := make(map[int]bool)
	for _, c := range child.Connections {
		needed[c.From] = true
		needed[c.To] = true
	}
	for _, n := range better.Nodes {
		if n.Type == InputNode || n.Type == OutputNode {
			needed[n.ID] = true
		}
	}

	added := make(map[int]bool, len(needed))
	for _, parent := range []*Genome{better, worse} {
		for _, n := range parent.Nodes {
			if needed[n.ID] && !added[n.ID] {
				child.Nodes = append(child.Nodes, n.Copy())
				added[n.ID] = true
			}
		}
	}
	return child
}

// CompatibilityDistance measures how structurally and parametrically different two genomes are:
// c1*excess/N + c2*disjoint/N + c3*avgWeightDiff. Excess genes lie beyond the smaller of the
// two maximum innovation numbers, disjoint genes are the other non-matching ones, and N is the
// larger connection count (at least 1).
func CompatibilityDistance(a, b *Genome, c1, c2, c3 float64) float64 {
	aByInnov := make(map[int]*ConnectionGene, len(a.Connections))
	bByInnov := make(map[int]*ConnectionGene, len(b.Connections))
	maxA, maxB := 0, 0
	for _, c := range a.Connections {
		aByInnov[c.Innovation] = c
		maxA = max(maxA, c.Innovation)
	}
	for _, c := range b.Connections {
		bByInnov[c.Innovation] = c
		maxB = max(maxB, c.Innovation)
	}
	boundary := min(maxA, maxB)

	excess, disjoint, matching := 0, 0, 0
	weightDiff := 0.0
	for innov, ca := range aByInnov {
		if cb, ok := bByInnov[innov]; ok {
			matching++
			weightDiff += math.Abs(ca.Weight - cb.Weight)
		} else if innov > boundary {
			excess++
		} else {
			disjoint++
		}
	}
	for innov := range bByInnov {
		if _, ok := aByInnov[innov]; ok {
			continue
		}
		if innov > boundary {
			excess++
		} else {
			disjoint++
		}
	}

	n := float64(max(len(a.Connections), len(b.Connections), 1))
	avgWeightDiff := 0.0
	if matching > 0 {
		avgWeightDiff = weightDiff / float64(matching)
	}
	return c1*float64(excess)/n + c2*float64(disjoint)/n + c3*avgWeightDiff
}

// EnabledConnections returns the number of enabled connection genes.
func (g *Genome) EnabledConnections() int {
	count := 0
	for _, c := range g.Connections {
		if c.Enabled {
			count++
		}
	}
	return count
}
