package neat

import (
	"fmt"
	"math"

	"github.com/baldhumanity/dinotrain"
)

// Validate checks the structural invariants of a genome: node ids are unique and typed by
// their range, every connection references existing nodes, no (from, to) pair repeats, every
// connection runs to a strictly higher layer. Forward-only layers rule out cycles.
// Failures wrap dinotrain.ErrInvalidModel.
func (g *Genome) Validate() error {
	if g.InputSize <= 0 || g.OutputSize <= 0 {
		return fmt.Errorf("%w: genome needs positive input and output sizes, got %d and %d",
			dinotrain.ErrInvalidModel, g.InputSize, g.OutputSize)
	}
	firstHidden := g.InputSize + g.OutputSize
	if g.NextNodeID < firstHidden {
		return fmt.Errorf("%w: nextNodeId %d is below %d", dinotrain.ErrInvalidModel, g.NextNodeID, firstHidden)
	}

	byID := make(map[int]*NodeGene, len(g.Nodes))
	for _, n := range g.Nodes {
		if n == nil {
			return fmt.Errorf("%w: nil node gene", dinotrain.ErrInvalidModel)
		}
		if n.ID < 0 {
			return fmt.Errorf("%w: negative node id %d", dinotrain.ErrInvalidModel, n.ID)
		}
		if _, dup := byID[n.ID]; dup {
			return fmt.Errorf("%w: duplicate node id %d", dinotrain.ErrInvalidModel, n.ID)
		}
		if math.IsNaN(n.Layer) || math.IsInf(n.Layer, 0) {
			return fmt.Errorf("%w: node %d has non-finite layer", dinotrain.ErrInvalidModel, n.ID)
		}
		if want := g.expectedType(n.ID); want != n.Type {
			return fmt.Errorf("%w: node %d should be %s, got %s", dinotrain.ErrInvalidModel, n.ID, want, n.Type)
		}
		if n.Type == HiddenNode && n.ID >= g.NextNodeID {
			return fmt.Errorf("%w: hidden node %d is not below nextNodeId %d", dinotrain.ErrInvalidModel, n.ID, g.NextNodeID)
		}
		byID[n.ID] = n
	}
	for id := 0; id < firstHidden; id++ {
		if _, ok := byID[id]; !ok {
			return fmt.Errorf("%w: missing %s node %d", dinotrain.ErrInvalidModel, g.expectedType(id), id)
		}
	}

	seen := make(map[ConnectionKey]bool, len(g.Connections))
	for _, c := range g.Connections {
		if c == nil {
			return fmt.Errorf("%w: nil connection gene", dinotrain.ErrInvalidModel)
		}
		from, okFrom := byID[c.From]
		to, okTo := byID[c.To]
		if !okFrom || !okTo {
			return fmt.Errorf("%w: connection %s references a missing node", dinotrain.ErrInvalidModel, c)
		}
		if seen[c.Key()] {
			return fmt.Errorf("%w: duplicate connection %d->%d", dinotrain.ErrInvalidModel, c.From, c.To)
		}
		seen[c.Key()] = true
		if from.Layer >= to.Layer {
			return fmt.Errorf("%w: connection %d->%d does not go forward (layers %.3f -> %.3f)",
				dinotrain.ErrInvalidModel, c.From, c.To, from.Layer, to.Layer)
		}
		if math.IsNaN(c.Weight) || math.IsInf(c.Weight, 0) {
			return fmt.Errorf("%w: connection %d->%d has non-finite weight", dinotrain.ErrInvalidModel, c.From, c.To)
		}
	}
	return nil
}

// expectedType returns the node type implied by an id.
func (g *Genome) expectedType(id int) NodeType {
	switch {
	case id >= 0 && id < g.InputSize:
		return InputNode
	case id >= g.InputSize && id < g.InputSize+g.OutputSize:
		return OutputNode
	default:
		return HiddenNode
	}
}
