// Command dinotrain trains and evaluates dino runner agents on the headless simulator.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "dinotrain",
		Short: "Train dino runner agents with GA, NEAT or PPO",
		Long: `dinotrain trains agents for a side-scrolling avoidance game.

Three optimizers are available:
  - ga:   genetic algorithm over fixed-topology networks
  - neat: NeuroEvolution of Augmenting Topologies
  - ppo:  Proximal Policy Optimization with an actor-critic pair`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(logLevel)); err != nil {
				return fmt.Errorf("invalid log level %q: %w", logLevel, err)
			}
			// JSON logs go to stderr so command output stays parseable.
			logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	root.AddCommand(newTrainCmd(), newEvalCmd())
	return root
}
