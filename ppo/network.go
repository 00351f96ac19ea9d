package ppo

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/baldhumanity/dinotrain"
)

// Network is a stack of dense layers trained by manual backpropagation.
type Network struct {
	Sizes       []int
	Activations []Activation
	Layers      []*DenseLayer
}

// NewNetwork builds len(sizes)-1 layers. scales may be nil or hold one entry per layer;
// a zero entry selects He initialization for that layer.
func NewNetwork(sizes []int, activations []Activation, scales []float64, rng *rand.Rand) *Network {
	n := &Network{
		Sizes:       append([]int(nil), sizes...),
		Activations: append([]Activation(nil), activations...),
	}
	for i := 0; i+1 < len(sizes); i++ {
		scale := 0.0
		if i < len(scales) {
			scale = scales[i]
		}
		n.Layers = append(n.Layers, NewDenseLayer(sizes[i], sizes[i+1], activations[i], scale, rng))
	}
	return n
}

// InputSize returns the width of the input layer.
func (n *Network) InputSize() int {
	if len(n.Sizes) == 0 {
		return 0
	}
	return n.Sizes[0]
}

// Forward runs input through every layer. Inputs shorter than the input layer are
// zero-padded and longer ones truncated.
func (n *Network) Forward(input []float64) []float64 {
	x := fitInput(input, n.InputSize())
	for _, l := range n.Layers {
		x = l.Forward(x)
	}
	return x
}

// Backward propagates gradOutput from the last layer to the first, accumulating gradients.
func (n *Network) Backward(gradOutput []float64) {
	g := gradOutput
	for i := len(n.Layers) - 1; i >= 0; i-- {
		g = n.Layers[i].Backward(g)
	}
}

// ZeroGrad clears every layer's accumulated gradients.
func (n *Network) ZeroGrad() {
	for _, l := range n.Layers {
		l.ZeroGrad()
	}
}

// GradNorm returns the global L2 norm of all accumulated gradients.
func (n *Network) GradNorm() float64 {
	sum := 0.0
	for _, l := range n.Layers {
		sum += l.gradSquares()
	}
	return math.Sqrt(sum)
}

// ClipGradients rescales all gradients so their global L2 norm is at most maxNorm.
func (n *Network) ClipGradients(maxNorm float64) {
	total := n.GradNorm()
	if total <= maxNorm {
		return
	}
	scale := maxNorm / total
	for _, l := range n.Layers {
		l.scaleGrad(scale)
	}
}

// AdamStep updates every layer with the shared step counter t.
func (n *Network) AdamStep(lr float64, t int) {
	for _, l := range n.Layers {
		l.AdamStep(lr, t)
	}
}

// Clone copies parameters only; gradients and optimizer moments start at zero.
func (n *Network) Clone() *Network {
	c := &Network{
		Sizes:       append([]int(nil), n.Sizes...),
		Activations: append([]Activation(nil), n.Activations...),
	}
	for _, l := range n.Layers {
		cl := newZeroLayer(l.InputSize(), l.OutputSize(), l.Activation)
		for o := range l.Weights {
			copy(cl.Weights[o], l.Weights[o])
		}
		copy(cl.Biases, l.Biases)
		c.Layers = append(c.Layers, cl)
	}
	return c
}

// fitInput returns input resized to size.
func fitInput(input []float64, size int) []float64 {
	if len(input) == size {
		return input
	}
	fitted := make([]float64, size)
	copy(fitted, input)
	return fitted
}

// ---- JSON ----

type layerJSON struct {
	Weights [][]float64 `json:"weights"`
	Biases  []float64   `json:"biases"`
}

// networkJSON is the exchange format {sizes, activations, layers:[{weights,biases}]}.
type networkJSON struct {
	Sizes       []int        `json:"sizes"`
	Activations []Activation `json:"activations"`
	Layers      []layerJSON  `json:"layers"`
}

func (n *Network) toJSON() networkJSON {
	nj := networkJSON{Sizes: n.Sizes, Activations: n.Activations}
	for _, l := range n.Layers {
		nj.Layers = append(nj.Layers, layerJSON{Weights: l.Weights, Biases: l.Biases})
	}
	return nj
}

// network validates the decoded form and builds a fresh Network from it.
func (nj networkJSON) network() (*Network, error) {
	if len(nj.Sizes) < 2 {
		return nil, fmt.Errorf("%w: network needs at least 2 sizes, got %d", dinotrain.ErrInvalidModel, len(nj.Sizes))
	}
	for i, s := range nj.Sizes {
		if s < 1 {
			return nil, fmt.Errorf("%w: size %d is %d", dinotrain.ErrInvalidModel, i, s)
		}
	}
	layers := len(nj.Sizes) - 1
	if len(nj.Activations) != layers || len(nj.Layers) != layers {
		return nil, fmt.Errorf("%w: %d sizes need %d activations and layers, got %d and %d",
			dinotrain.ErrInvalidModel, len(nj.Sizes), layers, len(nj.Activations), len(nj.Layers))
	}

	n := &Network{
		Sizes:       append([]int(nil), nj.Sizes...),
		Activations: append([]Activation(nil), nj.Activations...),
	}
	for i, lj := range nj.Layers {
		l := newZeroLayer(nj.Sizes[i], nj.Sizes[i+1], nj.Activations[i])
		candidate := &DenseLayer{Weights: lj.Weights, Biases: lj.Biases, Activation: nj.Activations[i]}
		if err := candidate.validate(nj.Sizes[i], nj.Sizes[i+1]); err != nil {
			return nil, fmt.Errorf("%w: layer %d: %v", dinotrain.ErrInvalidModel, i, err)
		}
		for o := range l.Weights {
			copy(l.Weights[o], lj.Weights[o])
		}
		copy(l.Biases, lj.Biases)
		n.Layers = append(n.Layers, l)
	}
	return n, nil
}
