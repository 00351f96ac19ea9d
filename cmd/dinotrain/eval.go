package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/baldhumanity/dinotrain"
	"github.com/baldhumanity/dinotrain/config"
	"github.com/baldhumanity/dinotrain/ga"
	"github.com/baldhumanity/dinotrain/neat"
	"github.com/baldhumanity/dinotrain/neat/nn"
	"github.com/baldhumanity/dinotrain/ppo"
	"github.com/baldhumanity/dinotrain/sim"
	"github.com/baldhumanity/dinotrain/telemetry"
)

type evalOptions struct {
	mode       string
	model      string
	configPath string
	episodes   int
	seed       int64
}

func newEvalCmd() *cobra.Command {
	opts := &evalOptions{}
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Play an exported model on the simulator",
		Long: `Load a model exported by train and play it greedily for a number of episodes.
The score summary is printed to stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.episodes < 1 {
				return fmt.Errorf("%w: episodes must be positive", dinotrain.ErrInvalidConfig)
			}
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				cfg.Sim.Seed = opts.seed
			}
			if cfg.Sim.MaxTicks == 0 {
				cfg.Sim.MaxTicks = sim.DefaultOptions().MaxTicks
			}

			data, err := os.ReadFile(opts.model)
			if err != nil {
				return fmt.Errorf("reading model: %w", err)
			}
			brain, err := loadBrain(opts.mode, data, cfg)
			if err != nil {
				return err
			}

			scores := evaluate(sim.New(cfg.Sim), brain, opts.episodes)
			sum := telemetry.Summarize(scores)
			fmt.Fprintf(cmd.OutOrStdout(), "mode=%s episodes=%d best=%.2f mean=%.2f std=%.2f median=%.2f\n",
				opts.mode, sum.Count, sum.Best, sum.Mean, sum.Std, sum.Median)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.mode, "mode", config.ModeNEAT, "Model kind: ga, neat or ppo")
	flags.StringVar(&opts.model, "model", "", "Model file written by train")
	flags.StringVar(&opts.configPath, "config", "", "Training file; [SIM] configures the course and [NEAT] hidden_activation the genome")
	flags.IntVar(&opts.episodes, "episodes", 5, "Episodes to play")
	flags.Int64Var(&opts.seed, "seed", 0, "Course seed")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

// loadBrain decodes an exported model into a greedy brain.
// NEAT genomes do not record their hidden activation, so it comes from cfg.
func loadBrain(mode string, data []byte, cfg *config.Config) (dinotrain.Brain, error) {
	switch mode {
	case config.ModeGA:
		n, err := ga.UnmarshalNetwork(data)
		if err != nil {
			return nil, err
		}
		return n, nil
	case config.ModeNEAT:
		hidden, err := neat.GetActivation(cfg.NEAT.HiddenActivation)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", dinotrain.ErrInvalidConfig, err)
		}
		g, err := neat.UnmarshalGenome(data, neat.NewInnovationTracker())
		if err != nil {
			return nil, err
		}
		g.SetHiddenActivation(hidden)
		net, err := nn.CreateFeedForwardNetwork(g)
		if err != nil {
			return nil, err
		}
		return net, nil
	case config.ModePPO:
		t, err := ppo.LoadTrainer(data, cfg.PPO, nil)
		if err != nil {
			return nil, err
		}
		return t.CreateInferenceAgent(), nil
	}
	return nil, fmt.Errorf("%w: unknown mode %q", dinotrain.ErrInvalidConfig, mode)
}

// evaluate plays brain alone for the given number of episodes and returns the scores.
func evaluate(env *sim.Env, brain dinotrain.Brain, episodes int) []float64 {
	scores := make([]float64, 0, episodes)
	for i := 0; i < episodes; i++ {
		env.Load([]dinotrain.Brain{brain}, func(results []dinotrain.Result) {
			for _, r := range results {
				scores = append(scores, r.Score)
			}
		})
		env.Start()
		for env.Running() {
			env.Tick()
		}
	}
	return scores
}
