package nn

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/baldhumanity/dinotrain/neat"
)

// incomingEdge is an enabled connection resolved to a slot in the value buffer.
type incomingEdge struct {
	Source int
	Weight float64
}

// neuralNode represents a non-input node during network activation.
type neuralNode struct {
	Key          int
	Slot         int
	ActivationFn neat.ActivationType
	Incoming     []incomingEdge
}

// FeedForwardNetwork is a compiled phenotype of a genome.
// Node lookups and evaluation order are resolved once so that evaluating the network every
// game tick only walks flat slices.
type FeedForwardNetwork struct {
	InputKeys     []int        // Input node ids, in state-vector order
	OutputKeys    []int        // Output node ids, in action order
	NodeEvalOrder []neuralNode // Non-input nodes that feed an output, in topological order

	inputSlots  []int
	outputSlots []int
	slots       int
}

// CreateFeedForwardNetwork builds a runnable feed-forward network from a genome.
// Enabled connections are sorted topologically to get the evaluation order, and nodes that
// cannot reach an output are left out of it.
func CreateFeedForwardNetwork(g *neat.Genome) (*FeedForwardNetwork, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("failed to compile genome: %w", err)
	}

	dag := simple.NewDirectedGraph()
	types := make(map[int]neat.NodeType, len(g.Nodes))
	for _, n := range g.Nodes {
		types[n.ID] = n.Type
		dag.AddNode(simple.Node(n.ID))
	}
	incoming := make(map[int][]*neat.ConnectionGene)
	for _, c := range g.Connections {
		if !c.Enabled {
			continue
		}
		dag.SetEdge(dag.NewEdge(simple.Node(c.From), simple.Node(c.To)))
		incoming[c.To] = append(incoming[c.To], c)
	}

	sorted, err := topo.SortStabilized(dag, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to compile genome: %w", err)
	}

	slotOf := make(map[int]int, len(sorted))
	for i, n := range sorted {
		slotOf[int(n.ID())] = i
	}

	// Successors come later in the order, so one backward pass settles reachability.
	required := make(map[int]bool, len(sorted))
	for i := len(sorted) - 1; i >= 0; i-- {
		id := sorted[i].ID()
		if types[int(id)] == neat.OutputNode {
			required[int(id)] = true
			continue
		}
		next := dag.From(id)
		for next.Next() {
			if required[int(next.Node().ID())] {
				required[int(id)] = true
				break
			}
		}
	}

	net := &FeedForwardNetwork{slots: len(sorted)}
	for i := 0; i < g.InputSize; i++ {
		net.InputKeys = append(net.InputKeys, i)
		net.inputSlots = append(net.inputSlots, slotOf[i])
	}
	for o := 0; o < g.OutputSize; o++ {
		id := g.InputSize + o
		net.OutputKeys = append(net.OutputKeys, id)
		net.outputSlots = append(net.outputSlots, slotOf[id])
	}

	hidden := g.HiddenActivation()
	for _, n := range sorted {
		id := int(n.ID())
		if types[id] == neat.InputNode || !required[id] {
			continue
		}
		var act neat.ActivationType = neat.Identity
		if types[id] == neat.HiddenNode {
			act = hidden
		}
		node := neuralNode{Key: id, Slot: slotOf[id], ActivationFn: act}
		for _, c := range incoming[id] {
			node.Incoming = append(node.Incoming, incomingEdge{Source: slotOf[c.From], Weight: c.Weight})
		}
		net.NodeEvalOrder = append(net.NodeEvalOrder, node)
	}
	return net, nil
}

// Activate computes the network's output for a given slice of input values.
// The input slice must match the number of input nodes.
func (net *FeedForwardNetwork) Activate(inputs []float64) ([]float64, error) {
	if len(inputs) != len(net.InputKeys) {
		return nil, fmt.Errorf("mismatch between input count (%d) and network input nodes (%d)", len(inputs), len(net.InputKeys))
	}
	return net.activate(inputs), nil
}

// Feedforward implements dinotrain.Brain. Missing inputs read as zero and extra ones are ignored.
func (net *FeedForwardNetwork) Feedforward(state []float64) int {
	outputs := net.activate(state)
	if len(outputs) == 0 {
		return 0
	}
	return floats.MaxIdx(outputs)
}

func (net *FeedForwardNetwork) activate(inputs []float64) []float64 {
	values := make([]float64, net.slots)
	for i, slot := range net.inputSlots {
		if i < len(inputs) {
			values[slot] = inputs[i]
		}
	}

	for _, node := range net.NodeEvalOrder {
		sum := 0.0
		for _, e := range node.Incoming {
			sum += values[e.Source] * e.Weight
		}
		values[node.Slot] = node.ActivationFn(sum)
	}

	outputs := make([]float64, len(net.outputSlots))
	for i, slot := range net.outputSlots {
		outputs[i] = values[slot]
	}
	return outputs
}
