package ppo

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// minProb floors probabilities before taking logarithms.
const minProb = 1e-8

// Brain is a PPO agent. Training agents sample actions from the policy and record one
// (state, action, logProb, value) tuple per decision; inference agents act greedily and
// record nothing. Every agent created by a Trainer shares the trainer's networks.
type Brain struct {
	policy   *Network
	value    *Network
	training bool
	rng      *rand.Rand

	States   [][]float64
	Actions  []int
	LogProbs []float64
	Values   []float64
}

// NewBrain creates an agent over the given networks.
func NewBrain(policy, value *Network, training bool, rng *rand.Rand) *Brain {
	return &Brain{policy: policy, value: value, training: training, rng: rng}
}

// Feedforward implements dinotrain.Brain.
func (b *Brain) Feedforward(state []float64) int {
	probs := softmax(b.policy.Forward(state))

	var action int
	if b.training {
		action = sampleCategorical(probs, b.rng)
	} else if len(probs) > 1 && probs[1] > probs[0] {
		action = 1
	}

	if b.training {
		value := b.value.Forward(state)[0]
		b.States = append(b.States, append([]float64(nil), state...))
		b.Actions = append(b.Actions, action)
		b.LogProbs = append(b.LogProbs, math.Log(math.Max(probs[action], minProb)))
		b.Values = append(b.Values, value)
	}
	return action
}

// Steps returns the number of recorded decisions.
func (b *Brain) Steps() int {
	return len(b.States)
}

// Reset clears the recorded trajectory.
func (b *Brain) Reset() {
	b.States = nil
	b.Actions = nil
	b.LogProbs = nil
	b.Values = nil
}

// softmax converts logits into probabilities, shifting by the maximum for stability.
func softmax(logits []float64) []float64 {
	if len(logits) == 0 {
		return nil
	}
	maxLogit := floats.Max(logits)
	probs := make([]float64, len(logits))
	for i, l := range logits {
		probs[i] = math.Exp(l - maxLogit)
	}
	floats.Scale(1/floats.Sum(probs), probs)
	return probs
}

// sampleCategorical draws an index with the given probabilities.
func sampleCategorical(probs []float64, rng *rand.Rand) int {
	r := rng.Float64()
	cum := 0.0
	for i, p := range probs {
		cum += p
		if r < cum {
			return i
		}
	}
	return len(probs) - 1
}

// entropy returns -sum(p * log p) with the probability floor applied inside the log.
func entropy(probs []float64) float64 {
	h := 0.0
	for _, p := range probs {
		h -= p * math.Log(math.Max(p, minProb))
	}
	return h
}
