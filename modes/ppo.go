package modes

import (
	"log/slog"

	"github.com/baldhumanity/dinotrain"
	"github.com/baldhumanity/dinotrain/ppo"
	"github.com/baldhumanity/dinotrain/telemetry"
)

// PPOMode trains an actor-critic pair with PPO, one update per episode.
type PPOMode struct {
	controller
	Trainer *ppo.Trainer

	episode int
	best    []byte // Trainer snapshot taken before the update that followed the best episode
}

// NewPPOMode creates a PPO controller for env. A nil logger uses slog.Default().
func NewPPOMode(env dinotrain.Environment, logger *slog.Logger) *PPOMode {
	return &PPOMode{controller: newController("ppo", env, logger)}
}

// Start validates cfg, creates fresh networks and starts the first episode.
func (m *PPOMode) Start(cfg ppo.Config) error {
	trainer, err := ppo.NewTrainer(cfg, m.random())
	if err != nil {
		return err
	}
	m.Trainer = trainer
	m.episode = 0
	m.best = nil
	m.reset()
	m.logger.Info("training started", "agents", cfg.NAgents, "learning_rate", cfg.LearningRate)

	m.startEpisode()
	return nil
}

// Generation returns the number of completed episodes.
func (m *PPOMode) Generation() int {
	return m.episode
}

// ExportBest returns the trainer snapshot that produced the best episode.
func (m *PPOMode) ExportBest() ([]byte, error) {
	if m.best == nil {
		return nil, ErrNoModel
	}
	return m.best, nil
}

func (m *PPOMode) startEpisode() {
	load(m.env, m.Trainer.CreateAgents(0), m.endEpisode)
}

func (m *PPOMode) endEpisode(results []dinotrain.Result) {
	if !m.running || m.Trainer == nil {
		return
	}

	scores := make([]float64, len(results))
	var agents []*ppo.Brain
	for i, r := range results {
		scores[i] = r.Score
		if b, ok := r.Brain.(*ppo.Brain); ok && b.Steps() > 0 {
			agents = append(agents, b)
		}
	}
	summary := telemetry.Summarize(scores)
	if m.improved(summary.Best) {
		snapshot, err := ppo.MarshalTrainer(m.Trainer)
		if err != nil {
			m.logger.Warn("failed to snapshot best policy", "error", err)
		} else {
			m.best = snapshot
		}
	}

	if err := m.Trainer.Update(agents); err != nil {
		m.fail(err)
		return
	}
	m.episode++

	stats := GenerationStats{
		Generation: m.episode,
		PolicyLoss: m.Trainer.LastPolicyLoss,
		ValueLoss:  m.Trainer.LastValueLoss,
		Entropy:    m.Trainer.LastEntropy,
	}
	summary.Apply(&stats)
	m.publish(stats)
	m.logger.Info("episode complete",
		"episode", m.episode,
		"best", stats.BestFitness,
		"avg", stats.AvgFitness,
		"policy_loss", stats.PolicyLoss,
		"entropy", stats.Entropy)

	if !m.running {
		return
	}
	m.startEpisode()
}
