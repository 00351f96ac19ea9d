package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/baldhumanity/dinotrain"
	"github.com/baldhumanity/dinotrain/config"
	"github.com/baldhumanity/dinotrain/modes"
	"github.com/baldhumanity/dinotrain/sim"
	"github.com/baldhumanity/dinotrain/telemetry"
)

type trainOptions struct {
	mode        string
	configPath  string
	generations int
	output      string
	seed        int64
	export      string
	checkpoint  string
	resume      string
	seeds       []string
}

func newTrainCmd() *cobra.Command {
	opts := &trainOptions{}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Run a training session",
		Long: `Run a training session on the headless simulator.

Flags override the [TRAIN] section of the config file. Telemetry (generations.csv,
config.yaml and the best model) is written to --output when set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			applyOverrides(cfg, opts, cmd.Flags())
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runTraining(ctx, cfg, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.mode, "mode", config.ModeNEAT, "Optimizer: ga, neat or ppo")
	flags.StringVar(&opts.configPath, "config", "", "Path to an INI or YAML training file (empty = defaults)")
	flags.IntVar(&opts.generations, "generations", 100, "Generations or episodes to run (0 = until interrupted)")
	flags.StringVar(&opts.output, "output", "", "Output directory for telemetry")
	flags.Int64Var(&opts.seed, "seed", 0, "RNG seed (0 = time-based)")
	flags.StringVar(&opts.export, "export", "", "Write the best model to this file")
	flags.StringVar(&opts.checkpoint, "checkpoint", "", "NEAT checkpoint file, refreshed every checkpoint_every generations and at the end")
	flags.StringVar(&opts.resume, "resume", "", "Resume NEAT training from a checkpoint file")
	flags.StringArrayVar(&opts.seeds, "import", nil, "Exported NEAT genome to seed the first generation with (repeatable)")
	return cmd
}

// applyOverrides copies explicitly set flags over the loaded config. A [TRAIN] seed also
// fixes the course unless [SIM] picked its own.
func applyOverrides(cfg *config.Config, opts *trainOptions, flags *pflag.FlagSet) {
	if flags.Changed("mode") {
		cfg.Train.Mode = opts.mode
	}
	if flags.Changed("generations") {
		cfg.Train.Generations = opts.generations
	}
	if flags.Changed("output") {
		cfg.Train.Output = opts.output
	}
	if flags.Changed("seed") {
		cfg.Train.Seed = opts.seed
		cfg.Sim.Seed = opts.seed
		return
	}
	if cfg.Train.Seed != 0 && cfg.Sim.Seed == sim.DefaultOptions().Seed {
		cfg.Sim.Seed = cfg.Train.Seed
	}
}

func runTraining(ctx context.Context, cfg *config.Config, opts *trainOptions) error {
	logger := slog.Default()

	if len(opts.seeds) > 0 && (cfg.Train.Mode != config.ModeNEAT || opts.resume != "") {
		return fmt.Errorf("%w: --import needs neat mode without --resume", dinotrain.ErrInvalidConfig)
	}
	seeds, err := readFiles(opts.seeds)
	if err != nil {
		return err
	}

	seed := cfg.Train.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	rec, err := telemetry.NewRecorder(cfg.Train.Output, cfg.Train.Mode)
	if err != nil {
		return err
	}
	defer rec.Close()
	if err := rec.WriteConfig(cfg); err != nil {
		return err
	}

	env := sim.New(cfg.Sim)
	var mode modes.Mode
	var neatMode *modes.NEATMode

	switch cfg.Train.Mode {
	case config.ModeGA:
		m := modes.NewGAMode(env, logger)
		mode = m
		prepare(m, rng, rec)
		err = m.Start(cfg.GA)
	case config.ModeNEAT:
		neatMode = modes.NewNEATMode(env, logger)
		mode = neatMode
		prepare(neatMode, rng, rec)
		if every := cfg.Train.CheckpointEvery; every > 0 && opts.checkpoint != "" {
			neatMode.OnStats(func(s modes.GenerationStats) {
				if (s.Generation+1)%every != 0 {
					return
				}
				if err := neatMode.Checkpoint(opts.checkpoint); err != nil {
					logger.Warn("failed to write checkpoint", "path", opts.checkpoint, "error", err)
				}
			})
		}
		if opts.resume != "" {
			err = neatMode.Resume(opts.resume)
		} else {
			err = neatMode.Start(cfg.NEAT, seeds...)
		}
	case config.ModePPO:
		m := modes.NewPPOMode(env, logger)
		mode = m
		prepare(m, rng, rec)
		err = m.Start(cfg.PPO)
	default:
		return fmt.Errorf("unknown mode %q", cfg.Train.Mode)
	}
	if err != nil {
		return fmt.Errorf("failed to start %s training: %w", cfg.Train.Mode, err)
	}

	logger.Info("training",
		"mode", cfg.Train.Mode,
		"generations", cfg.Train.Generations,
		"seed", seed,
		"run_id", rec.RunID(),
		"output", rec.Dir())

	// Resumed runs count from the checkpoint's generation.
	target := mode.Generation() + cfg.Train.Generations
	for mode.Running() && (cfg.Train.Generations == 0 || mode.Generation() < target) {
		if ctx.Err() != nil {
			logger.Info("interrupted", "generation", mode.Generation())
			break
		}
		env.Tick()
	}
	mode.Stop()
	if err := mode.Err(); err != nil {
		return err
	}

	logger.Info("training finished",
		"generations", len(mode.Stats()),
		"best_all_time", mode.BestFitness())

	if neatMode != nil && opts.checkpoint != "" {
		if err := neatMode.Checkpoint(opts.checkpoint); err != nil {
			return err
		}
	}
	return exportBest(mode, cfg.Train.Mode, opts.export, rec)
}

func readFiles(paths []string) ([][]byte, error) {
	var out [][]byte
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		out = append(out, data)
	}
	return out, nil
}

// prepare wires the run's random source and recorder into a mode before it starts.
func prepare(m modes.Mode, rng *rand.Rand, rec *telemetry.Recorder) {
	m.SetRand(rng)
	if rec != nil {
		m.SetRecorder(rec)
	}
}

// exportBest writes the best model to path and into the telemetry directory.
func exportBest(mode modes.Mode, name, path string, rec *telemetry.Recorder) error {
	data, err := mode.ExportBest()
	if err != nil {
		slog.Warn("no model exported", "error", err)
		return nil
	}
	if path != "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("creating export directory: %w", err)
			}
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		slog.Info("exported best model", "path", path)
	}
	return rec.WriteModel("best_"+name+".json", data)
}
