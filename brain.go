package dinotrain

import "errors"

var (
	// ErrInvalidConfig is wrapped by every configuration validation failure.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrInvalidModel is wrapped by every failure to decode or validate an imported model.
	ErrInvalidModel = errors.New("invalid model")
)

// Action indices understood by the game.
const (
	ActionNone = 0
	ActionJump = 1
)

// Brain is the single decision-making capability shared by every model kind.
// Feedforward maps a normalized state vector to a discrete action index.
type Brain interface {
	Feedforward(state []float64) int
}

// Result is the record the environment keeps for a terminated agent.
type Result struct {
	Brain Brain
	Score float64 // Cumulative score at the moment of termination
}

// Environment is the narrow contract a game has to satisfy to be trained against.
//
// Load replaces the current cohort and registers a one-shot callback that the
// environment invokes exactly once, when every agent of that cohort has terminated.
// The callback may call Load and Start again to dispatch the next cohort.
type Environment interface {
	Load(brains []Brain, onAllDone func(results []Result))
	Start()
}
