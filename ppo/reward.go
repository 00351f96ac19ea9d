package ppo

import "github.com/baldhumanity/dinotrain"

// TerminalPenalty is the reward DinoReward assigns to the last step of every trajectory.
const TerminalPenalty = -5.0

// State vector positions read by DinoReward.
const (
	stateDistance = 0
	stateJumping  = 4
)

// RewardFunc turns one agent's recorded trajectory into per-step rewards.
// It must return exactly len(states) values.
type RewardFunc func(states [][]float64, actions []int) []float64

// DinoReward shapes rewards for the dino runner: +1 per surviving step, -0.5 for starting a
// jump while on the ground with the next obstacle still far away (normalized distance above 0.3),
// +1.5 while an obstacle is close (below 0.15), and TerminalPenalty on the final step.
func DinoReward(states [][]float64, actions []int) []float64 {
	rewards := make([]float64, len(states))
	for t, state := range states {
		distance := feature(state, stateDistance)
		jumping := feature(state, stateJumping)

		r := 1.0
		if t < len(actions) && actions[t] == dinotrain.ActionJump && jumping < 0.5 && distance > 0.3 {
			r -= 0.5
		}
		if distance < 0.15 {
			r += 1.5
		}
		rewards[t] = r
	}
	if len(rewards) > 0 {
		rewards[len(rewards)-1] = TerminalPenalty
	}
	return rewards
}

func feature(state []float64, i int) float64 {
	if i < len(state) {
		return state[i]
	}
	return 0
}
