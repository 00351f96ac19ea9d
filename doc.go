// Package dinotrain trains decision-making agents for a side-scrolling avoidance game.
//
// Three interchangeable optimizers populate agents ("brains") for the game:
//
//   - ga: a genetic algorithm over fixed-topology feed-forward networks.
//   - neat: NeuroEvolution of Augmenting Topologies with innovation tracking and speciation.
//   - ppo: an actor-critic Proximal Policy Optimization trainer with manual backpropagation and Adam.
//
// The game itself is an external collaborator. It only has to satisfy the Environment
// contract: feed a normalized state vector to every live Brain each tick and report once,
// through a callback, when every agent of the current cohort has terminated. The modes
// package wires an optimizer to an Environment and runs the generation loop.
//
// Basic usage:
//
//	cfg, err := config.Load("training.ini")
//	if err != nil {
//		log.Fatalf("Error loading config: %v", err)
//	}
//
//	env := sim.New(sim.DefaultOptions())
//	mode := modes.NewNEATMode(env, nil)
//	if err := mode.Start(cfg.NEAT); err != nil {
//		log.Fatalf("Error starting training: %v", err)
//	}
//
//	for mode.Running() && mode.Generation() < 100 {
//		env.Tick()
//	}
package dinotrain
