package neat

import (
	"encoding/json"
	"fmt"
)

// NodeType classifies a node gene.
type NodeType int

const (
	InputNode NodeType = iota
	HiddenNode
	OutputNode
)

var nodeTypeNames = map[NodeType]string{
	InputNode:  "input",
	HiddenNode: "hidden",
	OutputNode: "output",
}

// String returns the serialized name of the node type.
func (t NodeType) String() string {
	if name, ok := nodeTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("NodeType(%d)", int(t))
}

// MarshalJSON encodes the node type as "input", "hidden" or "output".
func (t NodeType) MarshalJSON() ([]byte, error) {
	name, ok := nodeTypeNames[t]
	if !ok {
		return nil, fmt.Errorf("unknown node type %d", int(t))
	}
	return json.Marshal(name)
}

// UnmarshalJSON decodes "input", "hidden" or "output".
func (t *NodeType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for nt, n := range nodeTypeNames {
		if n == name {
			*t = nt
			return nil
		}
	}
	return fmt.Errorf("unknown node type %q", name)
}

// --------------------------- NodeGene ---------------------------

// NodeGene represents a node (neuron) in the genome.
// Layer is a real-valued depth used only to order evaluation.
type NodeGene struct {
	ID    int      `json:"id"`
	Type  NodeType `json:"type"`
	Layer float64  `json:"layer"`
}

// String returns a string representation of the NodeGene.
func (ng *NodeGene) String() string {
	return fmt.Sprintf("NodeGene(ID: %d, Type: %s, Layer: %.3f)", ng.ID, ng.Type, ng.Layer)
}

// Copy creates a deep copy of the NodeGene.
func (ng *NodeGene) Copy() *NodeGene {
	c := *ng
	return &c
}

// --------------------------- ConnectionGene ---------------------------

// ConnectionGene represents a connection between two nodes in the genome.
// Innovation is the historical marker used to align genes across genomes.
type ConnectionGene struct {
	Innovation int     `json:"innovation"`
	From       int     `json:"from"`
	To         int     `json:"to"`
	Weight     float64 `json:"weight"`
	Enabled    bool    `json:"enabled"`
}

// String returns a string representation of the ConnectionGene.
func (cg *ConnectionGene) String() string {
	return fmt.Sprintf("ConnGene(#%d %d->%d, Weight: %.3f, Enabled: %t)",
		cg.Innovation, cg.From, cg.To, cg.Weight, cg.Enabled)
}

// Copy creates a deep copy of the ConnectionGene.
func (cg *ConnectionGene) Copy() *ConnectionGene {
	c := *cg
	return &c
}

// ConnectionKey identifies a connection by its ordered endpoints.
type ConnectionKey struct {
	From int
	To   int
}

// Key returns the (from, to) pair of the connection.
func (cg *ConnectionGene) Key() ConnectionKey {
	return ConnectionKey{From: cg.From, To: cg.To}
}
