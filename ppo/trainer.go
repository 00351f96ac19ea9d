package ppo

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/baldhumanity/dinotrain"
)

// Hidden layer widths shared by the policy and value networks.
var hiddenSizes = []int{64, 32}

// policyOutputScale keeps initial logits near zero so the first policy is close to uniform.
const policyOutputScale = 0.01

// transition is one pooled training sample.
type transition struct {
	state       []float64
	action      int
	oldLogProb  float64
	advantage   float64
	returnValue float64
}

// sampleResult holds the per-transition loss terms.
type sampleResult struct {
	ratio      float64
	policyLoss float64
	valueLoss  float64
	entropy    float64
}

// Trainer owns the actor (policy) and critic (value) networks and updates them with the
// clipped PPO objective.
type Trainer struct {
	Config Config
	Policy *Network
	Value  *Network
	Reward RewardFunc // Defaults to DinoReward

	// Averages over all minibatch updates of the last Update call.
	LastPolicyLoss float64
	LastValueLoss  float64
	LastEntropy    float64

	step int
	rng  *rand.Rand
}

// NewTrainer validates the config and creates freshly initialized networks:
// policy [in,64,32,2] and value [in,64,32,1], ReLU hidden layers and linear outputs.
// A nil rng is replaced by a time-seeded source.
func NewTrainer(config Config, rng *rand.Rand) (*Trainer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	policySizes := append(append([]int{config.InputSize}, hiddenSizes...), 2)
	valueSizes := append(append([]int{config.InputSize}, hiddenSizes...), 1)
	activations := []Activation{ReLU, ReLU, Linear}

	return &Trainer{
		Config: config,
		Policy: NewNetwork(policySizes, activations, []float64{0, 0, policyOutputScale}, rng),
		Value:  NewNetwork(valueSizes, activations, nil, rng),
		Reward: DinoReward,
		step:   1,
		rng:    rng,
	}, nil
}

// Step returns the Adam step counter used by the next minibatch update.
func (t *Trainer) Step() int {
	return t.step
}

// CreateAgents returns n training agents sharing the trainer's networks.
// A non-positive n uses Config.NAgents.
func (t *Trainer) CreateAgents(n int) []*Brain {
	if n <= 0 {
		n = t.Config.NAgents
	}
	agents := make([]*Brain, n)
	for i := range agents {
		agents[i] = NewBrain(t.Policy, t.Value, true, t.rng)
	}
	return agents
}

// CreateInferenceAgent returns a greedy agent that records nothing.
func (t *Trainer) CreateInferenceAgent() *Brain {
	return NewBrain(t.Policy, t.Value, false, t.rng)
}

// Update runs one PPO update over the agents' trajectories and clears them.
// Agents with no recorded steps are skipped; if nothing remains the networks are untouched.
func (t *Trainer) Update(agents []*Brain) error {
	transitions, err := t.collect(agents)
	if err != nil {
		return err
	}
	for _, a := range agents {
		a.Reset()
	}
	if len(transitions) == 0 {
		return nil
	}

	normalizeAdvantages(transitions)

	var totalPolicy, totalValue, totalEntropy float64
	updates := 0
	for epoch := 0; epoch < t.Config.Epochs; epoch++ {
		t.rng.Shuffle(len(transitions), func(i, j int) {
			transitions[i], transitions[j] = transitions[j], transitions[i]
		})

		for start := 0; start < len(transitions); start += t.Config.MinibatchSize {
			end := min(start+t.Config.MinibatchSize, len(transitions))
			p, v, h := t.updateMinibatch(transitions[start:end])
			totalPolicy += p
			totalValue += v
			totalEntropy += h
			updates++
		}
	}

	t.LastPolicyLoss = totalPolicy / float64(updates)
	t.LastValueLoss = totalValue / float64(updates)
	t.LastEntropy = totalEntropy / float64(updates)
	return nil
}

// collect computes shaped rewards, GAE advantages and returns for every non-empty trajectory
// and pools them.
func (t *Trainer) collect(agents []*Brain) ([]transition, error) {
	reward := t.Reward
	if reward == nil {
		reward = DinoReward
	}

	var transitions []transition
	for i, a := range agents {
		steps := a.Steps()
		if steps == 0 {
			continue
		}
		rewards := reward(a.States, a.Actions)
		if len(rewards) != steps {
			return nil, fmt.Errorf("reward function returned %d rewards for %d steps of agent %d", len(rewards), steps, i)
		}
		advantages, returns := GAE(rewards, a.Values, t.Config.Gamma, t.Config.Lambda)
		for s := 0; s < steps; s++ {
			transitions = append(transitions, transition{
				state:       a.States[s],
				action:      a.Actions[s],
				oldLogProb:  a.LogProbs[s],
				advantage:   advantages[s],
				returnValue: returns[s],
			})
		}
	}
	return transitions, nil
}

// GAE computes generalized advantage estimates and returns for one terminated trajectory.
// The value after the last step is taken as 0.
func GAE(rewards, values []float64, gamma, lambda float64) (advantages, returns []float64) {
	n := len(rewards)
	advantages = make([]float64, n)
	returns = make([]float64, n)

	lastAdv := 0.0
	for s := n - 1; s >= 0; s-- {
		nextValue, nonTerminal := 0.0, 0.0
		if s < n-1 {
			nextValue, nonTerminal = values[s+1], 1
		}
		delta := rewards[s] + gamma*nextValue*nonTerminal - values[s]
		lastAdv = delta + gamma*lambda*nonTerminal*lastAdv
		advantages[s] = lastAdv
		returns[s] = lastAdv + values[s]
	}
	return advantages, returns
}

// normalizeAdvantages rescales the pooled advantages to zero mean and unit variance.
func normalizeAdvantages(transitions []transition) {
	advs := make([]float64, len(transitions))
	for i, tr := range transitions {
		advs[i] = tr.advantage
	}
	mean, std := stat.PopMeanStdDev(advs, nil)
	std += 1e-8
	for i := range transitions {
		transitions[i].advantage = (transitions[i].advantage - mean) / std
	}
}

// updateMinibatch accumulates gradients over batch, clips them and takes one Adam step.
// It returns the batch-averaged policy loss, value loss and entropy.
func (t *Trainer) updateMinibatch(batch []transition) (policyLoss, valueLoss, entropy float64) {
	t.Policy.ZeroGrad()
	t.Value.ZeroGrad()

	scale := 1 / float64(len(batch))
	for _, tr := range batch {
		r := t.accumulate(tr, scale)
		policyLoss += r.policyLoss
		valueLoss += r.valueLoss
		entropy += r.entropy
	}

	t.Policy.ClipGradients(t.Config.MaxGradNorm)
	t.Value.ClipGradients(t.Config.MaxGradNorm)
	t.Policy.AdamStep(t.Config.LearningRate, t.step)
	t.Value.AdamStep(t.Config.LearningRate, t.step)
	t.step++

	return policyLoss * scale, valueLoss * scale, entropy * scale
}

// accumulate runs one transition forward and backward, adding its scaled gradients to both networks.
// The policy gradient flows only through the unclipped surrogate when it is the smaller term;
// the entropy bonus gradient is always applied.
func (t *Trainer) accumulate(tr transition, scale float64) sampleResult {
	probs := softmax(t.Policy.Forward(tr.state))
	newLogProb := math.Log(math.Max(probs[tr.action], minProb))
	value := t.Value.Forward(tr.state)[0]

	ratio := math.Exp(newLogProb - tr.oldLogProb)
	surr1 := ratio * tr.advantage
	clipped := math.Max(math.Min(ratio, 1+t.Config.ClipEpsilon), 1-t.Config.ClipEpsilon)
	surr2 := clipped * tr.advantage
	h := entropy(probs)

	grad := make([]float64, len(probs))
	for k, p := range probs {
		if surr1 <= surr2 {
			indicator := 0.0
			if k == tr.action {
				indicator = 1
			}
			grad[k] += -tr.advantage * ratio * (indicator - p)
		}
		grad[k] += t.Config.EntropyCoeff * p * (math.Log(math.Max(p, minProb)) + h)
		grad[k] *= scale
	}
	t.Policy.Backward(grad)

	diff := value - tr.returnValue
	t.Value.Backward([]float64{diff * t.Config.ValueCoeff * scale})

	return sampleResult{
		ratio:      ratio,
		policyLoss: -math.Min(surr1, surr2),
		valueLoss:  0.5 * diff * diff,
		entropy:    h,
	}
}

// ---- JSON ----

type trainerJSON struct {
	PolicyNet networkJSON `json:"policyNet"`
	ValueNet  networkJSON `json:"valueNet"`
	Step      int         `json:"step"`
}

// MarshalTrainer encodes the trainer's networks and step counter as {policyNet, valueNet, step}.
func MarshalTrainer(t *Trainer) ([]byte, error) {
	data, err := json.Marshal(trainerJSON{
		PolicyNet: t.Policy.toJSON(),
		ValueNet:  t.Value.toJSON(),
		Step:      t.step,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode trainer: %w", err)
	}
	return data, nil
}

// LoadTrainer builds a trainer from MarshalTrainer output. Both networks are validated against
// the expected actor/critic shapes before the trainer is returned; failures wrap
// dinotrain.ErrInvalidModel. A missing or non-positive step restarts at 1.
func LoadTrainer(data []byte, config Config, rng *rand.Rand) (*Trainer, error) {
	var tj trainerJSON
	if err := json.Unmarshal(data, &tj); err != nil {
		return nil, fmt.Errorf("%w: %v", dinotrain.ErrInvalidModel, err)
	}
	policy, err := tj.PolicyNet.network()
	if err != nil {
		return nil, fmt.Errorf("policy network: %w", err)
	}
	value, err := tj.ValueNet.network()
	if err != nil {
		return nil, fmt.Errorf("value network: %w", err)
	}
	if out := policy.Sizes[len(policy.Sizes)-1]; out != 2 {
		return nil, fmt.Errorf("%w: policy network has %d outputs, expected 2", dinotrain.ErrInvalidModel, out)
	}
	if out := value.Sizes[len(value.Sizes)-1]; out != 1 {
		return nil, fmt.Errorf("%w: value network has %d outputs, expected 1", dinotrain.ErrInvalidModel, out)
	}
	if policy.InputSize() != value.InputSize() {
		return nil, fmt.Errorf("%w: policy takes %d inputs but value takes %d",
			dinotrain.ErrInvalidModel, policy.InputSize(), value.InputSize())
	}

	config.InputSize = policy.InputSize()
	t, err := NewTrainer(config, rng)
	if err != nil {
		return nil, err
	}
	t.Policy = policy
	t.Value = value
	t.step = max(1, tj.Step)
	return t, nil
}
