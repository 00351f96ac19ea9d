package ga

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/dinotrain"
)

func TestNetworkShape(t *testing.T) {
	n := NewNetwork([]int{7, 5, 1}, rand.New(rand.NewSource(1)))
	require.Len(t, n.Weights, 2)
	assert.Len(t, n.Weights[0], 5)
	assert.Len(t, n.Weights[0][0], 7)
	assert.Len(t, n.Weights[1], 1)
	assert.Len(t, n.Weights[1][0], 5)
	assert.Equal(t, 7*5+5+5*1+1, n.ParamCount())
	assert.NoError(t, n.validate())
}

func TestForwardReLUHiddenLinearOutput(t *testing.T) {
	n := &Network{
		LayerSizes: []int{2, 2, 1},
		Weights: [][][]float64{
			{{1, 0}, {0, 1}},
			{{1, 1}},
		},
		Bias: [][]float64{{0, 0}, {-0.5}},
	}

	// Hidden unit 2 is clipped to zero by ReLU, output stays linear and negative.
	out := n.Forward([]float64{0.25, -3})
	require.Len(t, out, 1)
	assert.InDelta(t, -0.25, out[0], 1e-12)
	assert.Equal(t, dinotrain.ActionNone, n.Feedforward([]float64{0.25, -3}))
	assert.Equal(t, dinotrain.ActionJump, n.Feedforward([]float64{2, 0}))
}

func TestForwardFitsInputLength(t *testing.T) {
	n := NewNetwork([]int{4, 3, 1}, rand.New(rand.NewSource(2)))
	full := n.Forward([]float64{0.5, 0.25, 0, 0})
	assert.Equal(t, full, n.Forward([]float64{0.5, 0.25}))
	assert.Equal(t, full, n.Forward([]float64{0.5, 0.25, 0, 0, 9}))
}

func TestFeedforwardArgmaxPrefersLowestIndex(t *testing.T) {
	n := &Network{
		LayerSizes: []int{1, 3},
		Weights:    [][][]float64{{{0}, {0}, {0}}},
		Bias:       [][]float64{{1, 2, 2}},
	}
	assert.Equal(t, 1, n.Feedforward([]float64{5}))
}

func TestCloneIsIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	n := NewNetwork([]int{3, 4, 1}, rng)
	c := n.Clone()
	require.Equal(t, n, c)

	c.Mutate(1.0, 0.5, rng)
	assert.NotEqual(t, n.Weights, c.Weights)
}

func TestMutateRateZeroIsNoop(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	n := NewNetwork([]int{3, 4, 1}, rng)
	before := n.Clone()
	n.Mutate(0, 1, rng)
	assert.Equal(t, before, n)
}

func TestNetworkJSONRoundTrip(t *testing.T) {
	n := NewNetwork([]int{7, 5, 2}, rand.New(rand.NewSource(9)))
	data, err := MarshalNetwork(n)
	require.NoError(t, err)

	back, err := UnmarshalNetwork(data)
	require.NoError(t, err)
	input := []float64{0.1, 0.2, 0.3, 0.4, 0, 0.5, -0.2}
	assert.Equal(t, n.Forward(input), back.Forward(input))
	assert.Contains(t, string(data), `"layerSizes"`)
}

func TestUnmarshalNetworkRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"too few layers", `{"layerSizes":[3],"weights":[],"bias":[]}`},
		{"row count", `{"layerSizes":[1,2],"weights":[[[1]]],"bias":[[0,0]]}`},
		{"column count", `{"layerSizes":[2,1],"weights":[[[1]]],"bias":[[0]]}`},
		{"bias count", `{"layerSizes":[1,1],"weights":[[[1]]],"bias":[[0,1]]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalNetwork([]byte(tt.data))
			assert.ErrorIs(t, err, dinotrain.ErrInvalidModel)
		})
	}
}
