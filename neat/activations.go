package neat

import (
	"fmt"
	"math"
)

// ActivationType defines the type for activation functions.
type ActivationType func(input float64) float64

// ActivationFunctions maps function names to the actual activation functions.
// Hidden nodes use the configured name; output nodes are always linear.
var ActivationFunctions = map[string]ActivationType{
	"relu":     ReLU,
	"identity": Identity,
	"linear":   Identity,
	"tanh":     Tanh,
	"sigmoid":  Sigmoid,
}

// GetActivation retrieves an activation function by name.
func GetActivation(name string) (ActivationType, error) {
	if fn, ok := ActivationFunctions[name]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("unknown activation function: %q", name)
}

// ReLU returns max(0, x).
func ReLU(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

// Identity returns x unchanged.
func Identity(x float64) float64 {
	return x
}

// Tanh is the hyperbolic tangent.
func Tanh(x float64) float64 {
	return math.Tanh(x)
}

// Sigmoid is the logistic function, clamped to avoid overflow.
func Sigmoid(x float64) float64 {
	x = clamp(x, -60, 60)
	return 1.0 / (1.0 + math.Exp(-x))
}
