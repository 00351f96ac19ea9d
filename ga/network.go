package ga

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/baldhumanity/dinotrain"
)

// Network is a dense feed-forward network with ReLU hidden layers and a linear output layer.
// Weights[L][o][i] connects input i of layer L to output o of layer L+1.
type Network struct {
	LayerSizes []int         `json:"layerSizes"`
	Weights    [][][]float64 `json:"weights"`
	Bias       [][]float64   `json:"bias"`
}

// NewNetwork creates a network with weights and biases drawn uniformly from [-1, 1).
func NewNetwork(layerSizes []int, rng *rand.Rand) *Network {
	n := &Network{
		LayerSizes: append([]int(nil), layerSizes...),
		Weights:    make([][][]float64, 0, len(layerSizes)-1),
		Bias:       make([][]float64, 0, len(layerSizes)-1),
	}
	for l := 1; l < len(layerSizes); l++ {
		prev, curr := layerSizes[l-1], layerSizes[l]
		w := make([][]float64, curr)
		b := make([]float64, curr)
		for o := 0; o < curr; o++ {
			w[o] = make([]float64, prev)
			for i := range w[o] {
				w[o][i] = uniform(rng)
			}
			b[o] = uniform(rng)
		}
		n.Weights = append(n.Weights, w)
		n.Bias = append(n.Bias, b)
	}
	return n
}

// Forward propagates the input layer by layer and returns the raw output vector.
// Missing inputs read as 0 and extra inputs are ignored.
func (n *Network) Forward(input []float64) []float64 {
	x := input
	if len(n.LayerSizes) > 0 && len(x) != n.LayerSizes[0] {
		x = make([]float64, n.LayerSizes[0])
		copy(x, input)
	}
	last := len(n.Weights) - 1
	for l, w := range n.Weights {
		next := make([]float64, len(w))
		for o, row := range w {
			z := n.Bias[l][o] + floats.Dot(row, x)
			if l != last && z < 0 {
				z = 0
			}
			next[o] = z
		}
		x = next
	}
	return x
}

// Feedforward implements dinotrain.Brain.
// A single output is read as a jump threshold; several outputs are read by argmax.
func (n *Network) Feedforward(state []float64) int {
	out := n.Forward(state)
	if len(out) == 1 {
		if out[0] > 0 {
			return dinotrain.ActionJump
		}
		return dinotrain.ActionNone
	}
	return floats.MaxIdx(out)
}

// Clone returns a fully independent deep copy.
func (n *Network) Clone() *Network {
	c := &Network{
		LayerSizes: append([]int(nil), n.LayerSizes...),
		Weights:    make([][][]float64, len(n.Weights)),
		Bias:       make([][]float64, len(n.Bias)),
	}
	for l := range n.Weights {
		c.Weights[l] = make([][]float64, len(n.Weights[l]))
		for o, row := range n.Weights[l] {
			c.Weights[l][o] = append([]float64(nil), row...)
		}
		c.Bias[l] = append([]float64(nil), n.Bias[l]...)
	}
	return c
}

// Mutate perturbs every weight and bias independently with probability rate
// by strength * uniform(-1, 1).
func (n *Network) Mutate(rate, strength float64, rng *rand.Rand) {
	for l := range n.Weights {
		for o := range n.Weights[l] {
			row := n.Weights[l][o]
			for i := range row {
				if rng.Float64() < rate {
					row[i] += uniform(rng) * strength
				}
			}
		}
	}
	for l := range n.Bias {
		for o := range n.Bias[l] {
			if rng.Float64() < rate {
				n.Bias[l][o] += uniform(rng) * strength
			}
		}
	}
}

// ParamCount returns the number of weights and biases.
func (n *Network) ParamCount() int {
	count := 0
	for l := range n.Weights {
		count += len(n.Bias[l])
		for _, row := range n.Weights[l] {
			count += len(row)
		}
	}
	return count
}

// sameShape reports whether two networks can be combined parameter by parameter.
func (n *Network) sameShape(other *Network) bool {
	if len(n.LayerSizes) != len(other.LayerSizes) {
		return false
	}
	for i := range n.LayerSizes {
		if n.LayerSizes[i] != other.LayerSizes[i] {
			return false
		}
	}
	return true
}

// validate checks the weight and bias shapes against LayerSizes.
func (n *Network) validate() error {
	if len(n.LayerSizes) < 2 {
		return fmt.Errorf("network needs at least 2 layers, got %d", len(n.LayerSizes))
	}
	for _, size := range n.LayerSizes {
		if size <= 0 {
			return fmt.Errorf("layer sizes must be positive, got %v", n.LayerSizes)
		}
	}
	transitions := len(n.LayerSizes) - 1
	if len(n.Weights) != transitions || len(n.Bias) != transitions {
		return fmt.Errorf("expected %d weight and bias layers, got %d and %d", transitions, len(n.Weights), len(n.Bias))
	}
	for l := 0; l < transitions; l++ {
		if len(n.Weights[l]) != n.LayerSizes[l+1] {
			return fmt.Errorf("weights[%d] has %d rows, want %d", l, len(n.Weights[l]), n.LayerSizes[l+1])
		}
		if len(n.Bias[l]) != n.LayerSizes[l+1] {
			return fmt.Errorf("bias[%d] has %d entries, want %d", l, len(n.Bias[l]), n.LayerSizes[l+1])
		}
		for o, row := range n.Weights[l] {
			if len(row) != n.LayerSizes[l] {
				return fmt.Errorf("weights[%d][%d] has %d columns, want %d", l, o, len(row), n.LayerSizes[l])
			}
		}
	}
	return nil
}

// MarshalNetwork encodes n as {layerSizes, weights, bias}.
func MarshalNetwork(n *Network) ([]byte, error) {
	return json.Marshal(n)
}

// UnmarshalNetwork decodes and validates a network into a fresh value.
func UnmarshalNetwork(data []byte) (*Network, error) {
	var n Network
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", dinotrain.ErrInvalidModel, err)
	}
	if err := n.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", dinotrain.ErrInvalidModel, err)
	}
	return &n, nil
}

func uniform(rng *rand.Rand) float64 {
	return rng.Float64()*2 - 1
}
