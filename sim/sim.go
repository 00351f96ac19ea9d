// Package sim is a headless dino runner used to drive training end to end without a renderer.
//
// Every loaded brain controls one dino. All dinos of a cohort run the same obstacle course;
// each tick a dino receives a 7-feature normalized state and answers with an action.
// A dino that touches an obstacle dies with its score fixed. Once every dino is dead the
// completion callback fires exactly once with the results in order of death.
package sim

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/baldhumanity/dinotrain"
)

// StateSize is the length of the state vector fed to brains.
const StateSize = 7

// Dino geometry, in world units.
const (
	dinoX     = 50.0
	dinoWidth = 40.0
)

// Options configures the course and physics.
type Options struct {
	Seed         int64   `ini:"seed" yaml:"seed"`
	Width        float64 `ini:"width" yaml:"width"`                 // Visible course length
	InitialSpeed float64 `ini:"initial_speed" yaml:"initial_speed"` // Units per tick
	Acceleration float64 `ini:"acceleration" yaml:"acceleration"`   // Speed gained per tick
	MaxSpeed     float64 `ini:"max_speed" yaml:"max_speed"`         // Speed cap, also the speed normalizer
	Gravity      float64 `ini:"gravity" yaml:"gravity"`             // Downward velocity change per tick
	JumpVelocity float64 `ini:"jump_velocity" yaml:"jump_velocity"` // Initial upward velocity of a jump
	MinGap       float64 `ini:"min_gap" yaml:"min_gap"`
	MaxGap       float64 `ini:"max_gap" yaml:"max_gap"`
	MinObstacleW float64 `ini:"min_obstacle_width" yaml:"min_obstacle_width"`
	MaxObstacleW float64 `ini:"max_obstacle_width" yaml:"max_obstacle_width"`
	MinObstacleH float64 `ini:"min_obstacle_height" yaml:"min_obstacle_height"`
	MaxObstacleH float64 `ini:"max_obstacle_height" yaml:"max_obstacle_height"`
	MaxTicks     int     `ini:"max_ticks" yaml:"max_ticks"` // Ends a run nobody loses; 0 means no limit
	ScorePerTick float64 `ini:"score_per_tick" yaml:"score_per_tick"`
}

// DefaultOptions returns a course tuned so untrained agents die within a few obstacles.
func DefaultOptions() Options {
	return Options{
		Seed:         1,
		Width:        600,
		InitialSpeed: 6,
		Acceleration: 0.001,
		MaxSpeed:     13,
		Gravity:      0.6,
		JumpVelocity: 10,
		MinGap:       250,
		MaxGap:       600,
		MinObstacleW: 17,
		MaxObstacleW: 50,
		MinObstacleH: 35,
		MaxObstacleH: 50,
		MaxTicks:     5000,
		ScorePerTick: 0.1,
	}
}

// Validate reports the first unusable option.
func (o Options) Validate() error {
	switch {
	case o.Width <= dinoX+dinoWidth:
		return fmt.Errorf("%w: sim width must exceed %.0f", dinotrain.ErrInvalidConfig, dinoX+dinoWidth)
	case o.InitialSpeed <= 0 || o.MaxSpeed < o.InitialSpeed:
		return fmt.Errorf("%w: sim speeds must satisfy 0 < initial_speed <= max_speed", dinotrain.ErrInvalidConfig)
	case o.Acceleration < 0:
		return fmt.Errorf("%w: sim acceleration cannot be negative", dinotrain.ErrInvalidConfig)
	case o.Gravity <= 0 || o.JumpVelocity <= 0:
		return fmt.Errorf("%w: sim gravity and jump_velocity must be positive", dinotrain.ErrInvalidConfig)
	case o.MinGap <= 0 || o.MaxGap < o.MinGap:
		return fmt.Errorf("%w: sim gaps must satisfy 0 < min_gap <= max_gap", dinotrain.ErrInvalidConfig)
	case o.MinObstacleW <= 0 || o.MaxObstacleW < o.MinObstacleW:
		return fmt.Errorf("%w: sim obstacle widths must satisfy 0 < min <= max", dinotrain.ErrInvalidConfig)
	case o.MinObstacleH <= 0 || o.MaxObstacleH < o.MinObstacleH:
		return fmt.Errorf("%w: sim obstacle heights must satisfy 0 < min <= max", dinotrain.ErrInvalidConfig)
	case o.MaxTicks < 0:
		return fmt.Errorf("%w: sim max_ticks cannot be negative", dinotrain.ErrInvalidConfig)
	case o.ScorePerTick <= 0:
		return fmt.Errorf("%w: sim score_per_tick must be positive", dinotrain.ErrInvalidConfig)
	}
	return nil
}

type obstacle struct {
	x, width, height float64
}

type dino struct {
	brain dinotrain.Brain
	y     float64 // Height of the feet above the ground
	vy    float64 // Positive is upward
	alive bool
	score float64
	state []float64
}

func (d *dino) onGround() bool {
	return d.y <= 0
}

// Env is the headless environment. It implements dinotrain.Environment.
// It is not safe for concurrent use.
type Env struct {
	opts Options
	rng  *rand.Rand

	dinos     []*dino
	obstacles []obstacle
	results   []dinotrain.Result
	onAllDone func([]dinotrain.Result)

	speed   float64
	ticks   int
	running bool
}

// New creates an environment. Options are not validated; use Options.Validate first
// when they come from user input.
func New(opts Options) *Env {
	return &Env{
		opts: opts,
		rng:  rand.New(rand.NewSource(opts.Seed)),
	}
}

// Load replaces the cohort. onAllDone is invoked once, after the last dino of this cohort dies.
func (e *Env) Load(brains []dinotrain.Brain, onAllDone func([]dinotrain.Result)) {
	e.dinos = make([]*dino, len(brains))
	for i, b := range brains {
		e.dinos[i] = &dino{brain: b, alive: true, state: make([]float64, StateSize)}
	}
	e.results = make([]dinotrain.Result, 0, len(brains))
	e.onAllDone = onAllDone
	e.running = false
}

// Start resets the course and begins a run with the loaded cohort.
func (e *Env) Start() {
	e.obstacles = e.obstacles[:0]
	e.speed = e.opts.InitialSpeed
	e.ticks = 0
	e.running = true
	e.spawn(e.opts.Width)
}

// Running reports whether a run is in progress.
func (e *Env) Running() bool {
	return e.running
}

// Ticks returns the number of ticks simulated in the current run.
func (e *Env) Ticks() int {
	return e.ticks
}

// Alive returns the number of dinos still running.
func (e *Env) Alive() int {
	n := 0
	for _, d := range e.dinos {
		if d.alive {
			n++
		}
	}
	return n
}

// Tick advances the run by one step. It does nothing when no run is in progress.
func (e *Env) Tick() {
	if !e.running {
		return
	}

	for _, d := range e.dinos {
		if !d.alive {
			continue
		}
		e.observe(d)
		if d.brain.Feedforward(d.state) == dinotrain.ActionJump && d.onGround() {
			d.vy = e.opts.JumpVelocity
		}
	}

	e.advance()
	e.ticks++

	timeUp := e.opts.MaxTicks > 0 && e.ticks >= e.opts.MaxTicks
	for _, d := range e.dinos {
		if !d.alive {
			continue
		}
		d.y += d.vy
		d.vy -= e.opts.Gravity
		if d.y <= 0 {
			d.y, d.vy = 0, 0
		}
		if e.collides(d) || timeUp {
			e.kill(d)
			continue
		}
		d.score += e.opts.ScorePerTick
	}

	if e.Alive() == 0 {
		e.finish()
	}
}

// observe fills the dino's state vector: distance to the next obstacle, its height and width,
// speed, jump flag, vertical offset and vertical velocity, each scaled to roughly [0,1] or [-1,1].
func (e *Env) observe(d *dino) {
	next, ok := e.nextObstacle()
	distance, height, width := 1.0, 0.0, 0.0
	if ok {
		distance = clamp01((next.x - (dinoX + dinoWidth)) / e.opts.Width)
		height = next.height / e.opts.MaxObstacleH
		width = next.width / e.opts.MaxObstacleW
	}

	jumping := 0.0
	if !d.onGround() {
		jumping = 1
	}
	apex := e.opts.JumpVelocity * e.opts.JumpVelocity / (2 * e.opts.Gravity)

	d.state[0] = distance
	d.state[1] = height
	d.state[2] = width
	d.state[3] = e.speed / e.opts.MaxSpeed
	d.state[4] = jumping
	d.state[5] = clamp01(d.y / apex)
	d.state[6] = math.Max(-1, math.Min(1, d.vy/e.opts.JumpVelocity))
}

// nextObstacle returns the first obstacle whose right edge is still ahead of the dino's left edge.
func (e *Env) nextObstacle() (obstacle, bool) {
	for _, o := range e.obstacles {
		if o.x+o.width > dinoX {
			return o, true
		}
	}
	return obstacle{}, false
}

// advance scrolls the course, drops obstacles that left the screen and spawns new ones.
func (e *Env) advance() {
	kept := e.obstacles[:0]
	for _, o := range e.obstacles {
		o.x -= e.speed
		if o.x+o.width >= 0 {
			kept = append(kept, o)
		}
	}
	e.obstacles = kept

	last := 0.0
	if n := len(e.obstacles); n > 0 {
		last = e.obstacles[n-1].x + e.obstacles[n-1].width
	}
	if last < e.opts.Width {
		e.spawn(math.Max(e.opts.Width, last) + e.between(e.opts.MinGap, e.opts.MaxGap))
	}

	e.speed = math.Min(e.speed+e.opts.Acceleration, e.opts.MaxSpeed)
}

func (e *Env) spawn(x float64) {
	e.obstacles = append(e.obstacles, obstacle{
		x:      x,
		width:  e.between(e.opts.MinObstacleW, e.opts.MaxObstacleW),
		height: e.between(e.opts.MinObstacleH, e.opts.MaxObstacleH),
	})
}

func (e *Env) between(lo, hi float64) float64 {
	return lo + e.rng.Float64()*(hi-lo)
}

func (e *Env) collides(d *dino) bool {
	for _, o := range e.obstacles {
		if o.x < dinoX+dinoWidth && o.x+o.width > dinoX && d.y < o.height {
			return true
		}
	}
	return false
}

func (e *Env) kill(d *dino) {
	d.alive = false
	e.results = append(e.results, dinotrain.Result{Brain: d.brain, Score: d.score})
}

// finish ends the run and fires the completion callback. The callback is cleared first
// so a callback that loads and starts the next cohort is not invoked twice.
func (e *Env) finish() {
	e.running = false
	done, results := e.onAllDone, e.results
	e.onAllDone = nil
	e.results = nil
	if done != nil {
		done(results)
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
