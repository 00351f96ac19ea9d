package ppo

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// Activation names a layer's elementwise nonlinearity.
type Activation string

const (
	ReLU   Activation = "relu"
	Tanh   Activation = "tanh"
	Linear Activation = "linear"
)

func (a Activation) valid() bool {
	switch a {
	case ReLU, Tanh, Linear:
		return true
	}
	return false
}

// Adam hyperparameters shared by every layer.
const (
	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-8
)

// DenseLayer is a fully connected layer with manual backpropagation and Adam state.
// Weights are laid out [output][input].
type DenseLayer struct {
	Weights    [][]float64
	Biases     []float64
	Activation Activation

	// Forward cache for the most recent input.
	input  []float64
	preAct []float64
	output []float64

	// Accumulated gradients.
	dWeights [][]float64
	dBiases  []float64

	// Adam moments.
	mW, vW [][]float64
	mB, vB []float64
}

// NewDenseLayer creates a layer with weights drawn from uniform(-scale, scale) and zero biases.
// A non-positive scale selects He initialization, sqrt(2/inputSize).
func NewDenseLayer(inputSize, outputSize int, activation Activation, scale float64, rng *rand.Rand) *DenseLayer {
	if scale <= 0 {
		scale = math.Sqrt(2 / float64(inputSize))
	}
	l := newZeroLayer(inputSize, outputSize, activation)
	for o := range l.Weights {
		for i := range l.Weights[o] {
			l.Weights[o][i] = (rng.Float64()*2 - 1) * scale
		}
	}
	return l
}

// newZeroLayer allocates a layer with all parameters and buffers zeroed.
func newZeroLayer(inputSize, outputSize int, activation Activation) *DenseLayer {
	return &DenseLayer{
		Weights:    matrix(outputSize, inputSize),
		Biases:     make([]float64, outputSize),
		Activation: activation,
		dWeights:   matrix(outputSize, inputSize),
		dBiases:    make([]float64, outputSize),
		mW:         matrix(outputSize, inputSize),
		vW:         matrix(outputSize, inputSize),
		mB:         make([]float64, outputSize),
		vB:         make([]float64, outputSize),
	}
}

func matrix(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for r := range m {
		m[r] = make([]float64, cols)
	}
	return m
}

// InputSize returns the number of inputs the layer expects.
func (l *DenseLayer) InputSize() int {
	if len(l.Weights) == 0 {
		return 0
	}
	return len(l.Weights[0])
}

// OutputSize returns the number of units in the layer.
func (l *DenseLayer) OutputSize() int {
	return len(l.Biases)
}

// Forward computes the layer output and caches what Backward needs.
func (l *DenseLayer) Forward(input []float64) []float64 {
	l.input = input
	l.preAct = make([]float64, len(l.Biases))
	l.output = make([]float64, len(l.Biases))
	for o, row := range l.Weights {
		sum := l.Biases[o] + floats.Dot(row, input)
		l.preAct[o] = sum
		switch l.Activation {
		case ReLU:
			l.output[o] = math.Max(sum, 0)
		case Tanh:
			l.output[o] = math.Tanh(sum)
		default:
			l.output[o] = sum
		}
	}
	return l.output
}

// Backward accumulates parameter gradients for the cached forward pass and returns the
// gradient with respect to the layer input.
func (l *DenseLayer) Backward(gradOutput []float64) []float64 {
	gradInput := make([]float64, l.InputSize())
	for o, row := range l.Weights {
		g := gradOutput[o]
		switch l.Activation {
		case ReLU:
			if l.preAct[o] <= 0 {
				g = 0
			}
		case Tanh:
			t := l.output[o]
			g *= 1 - t*t
		}

		l.dBiases[o] += g
		floats.AddScaled(l.dWeights[o], g, l.input)
		floats.AddScaled(gradInput, g, row)
	}
	return gradInput
}

// ZeroGrad clears the accumulated gradients.
func (l *DenseLayer) ZeroGrad() {
	for o := range l.dWeights {
		floats.Scale(0, l.dWeights[o])
	}
	floats.Scale(0, l.dBiases)
}

// gradSquares returns the sum of squared accumulated gradients.
func (l *DenseLayer) gradSquares() float64 {
	sum := 0.0
	for o := range l.dWeights {
		n := floats.Norm(l.dWeights[o], 2)
		sum += n * n
	}
	n := floats.Norm(l.dBiases, 2)
	return sum + n*n
}

// scaleGrad multiplies every accumulated gradient by s.
func (l *DenseLayer) scaleGrad(s float64) {
	for o := range l.dWeights {
		floats.Scale(s, l.dWeights[o])
	}
	floats.Scale(s, l.dBiases)
}

// AdamStep applies one bias-corrected Adam update; t is the 1-based step count.
func (l *DenseLayer) AdamStep(lr float64, t int) {
	bc1 := 1 - math.Pow(adamBeta1, float64(t))
	bc2 := 1 - math.Pow(adamBeta2, float64(t))

	update := func(param, grad, m, v []float64) {
		for i, g := range grad {
			m[i] = adamBeta1*m[i] + (1-adamBeta1)*g
			v[i] = adamBeta2*v[i] + (1-adamBeta2)*g*g
			param[i] -= lr * (m[i] / bc1) / (math.Sqrt(v[i]/bc2) + adamEpsilon)
		}
	}

	update(l.Biases, l.dBiases, l.mB, l.vB)
	for o := range l.Weights {
		update(l.Weights[o], l.dWeights[o], l.mW[o], l.vW[o])
	}
}

// validate checks that the layer is a well-formed [out][in] matrix with matching biases.
func (l *DenseLayer) validate(inputSize, outputSize int) error {
	if !l.Activation.valid() {
		return fmt.Errorf("unknown activation %q", l.Activation)
	}
	if len(l.Weights) != outputSize || len(l.Biases) != outputSize {
		return fmt.Errorf("expected %d outputs, got %d weight rows and %d biases", outputSize, len(l.Weights), len(l.Biases))
	}
	for o, row := range l.Weights {
		if len(row) != inputSize {
			return fmt.Errorf("weight row %d has %d inputs, expected %d", o, len(row), inputSize)
		}
		if !allFinite(row) {
			return fmt.Errorf("weight row %d holds a non-finite value", o)
		}
	}
	if !allFinite(l.Biases) {
		return fmt.Errorf("biases hold a non-finite value")
	}
	return nil
}

func allFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
