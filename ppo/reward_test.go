package ppo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func dinoState(distance, jumping float64) []float64 {
	return []float64{distance, 0.5, 0.2, 0.3, jumping, 0, 0}
}

func TestDinoReward(t *testing.T) {
	tests := []struct {
		name   string
		state  []float64
		action int
		want   float64
	}{
		{name: "survive", state: dinoState(0.5, 0), action: 0, want: 1},
		{name: "early jump", state: dinoState(0.5, 0), action: 1, want: 0.5},
		{name: "jump while airborne", state: dinoState(0.5, 1), action: 1, want: 1},
		{name: "jump near obstacle", state: dinoState(0.2, 0), action: 1, want: 1},
		{name: "close obstacle", state: dinoState(0.1, 0), action: 0, want: 2.5},
		{name: "close obstacle jump", state: dinoState(0.1, 0), action: 1, want: 2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// A trailing step keeps the case away from the terminal overwrite.
			states := [][]float64{tt.state, dinoState(0.5, 0)}
			rewards := DinoReward(states, []int{tt.action, 0})
			assert.Equal(t, tt.want, rewards[0])
			assert.Equal(t, TerminalPenalty, rewards[1])
		})
	}
}

func TestDinoRewardEdgeCases(t *testing.T) {
	assert.Empty(t, DinoReward(nil, nil))
	assert.Equal(t, []float64{TerminalPenalty}, DinoReward([][]float64{dinoState(0.1, 0)}, []int{1}))
	// Short state vectors read missing features as zero.
	assert.Equal(t, []float64{2.5, TerminalPenalty}, DinoReward([][]float64{{}, {}}, []int{1, 0}))
}
