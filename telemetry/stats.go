package telemetry

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// GenerationStats is one row of generations.csv: the outcome of a single generation
// (GA, NEAT) or episode (PPO). Fields that do not apply to a mode stay zero.
type GenerationStats struct {
	RunID string `csv:"run_id" json:"runId,omitempty"`
	Mode  string `csv:"mode" json:"mode,omitempty"`

	Generation    int     `csv:"generation" json:"generation"`
	BestFitness   float64 `csv:"best_fitness" json:"bestFitness"`
	AvgFitness    float64 `csv:"avg_fitness" json:"avgFitness"`
	FitnessStd    float64 `csv:"fitness_std" json:"fitnessStd"`
	FitnessMedian float64 `csv:"fitness_median" json:"fitnessMedian"`
	BestAllTime   float64 `csv:"best_all_time" json:"bestAllTime"`

	// NEAT
	SpeciesCount    int `csv:"species" json:"speciesCount,omitempty"`
	NodeCount       int `csv:"nodes" json:"nodeCount,omitempty"`
	ConnectionCount int `csv:"connections" json:"connectionCount,omitempty"`

	// PPO
	PolicyLoss float64 `csv:"policy_loss" json:"policyLoss,omitempty"`
	ValueLoss  float64 `csv:"value_loss" json:"valueLoss,omitempty"`
	Entropy    float64 `csv:"entropy" json:"entropy,omitempty"`
}

// Summary describes a fitness distribution.
type Summary struct {
	Count  int
	Best   float64
	Mean   float64
	Std    float64 // Population standard deviation
	Median float64
}

// Summarize computes the summary of values. An empty slice yields the zero Summary.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mean, std := stat.PopMeanStdDev(sorted, nil)
	return Summary{
		Count:  len(sorted),
		Best:   floats.Max(sorted),
		Mean:   mean,
		Std:    std,
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
	}
}

// Apply copies the summary into the fitness columns of s.
func (sum Summary) Apply(s *GenerationStats) {
	s.BestFitness = sum.Best
	s.AvgFitness = sum.Mean
	s.FitnessStd = sum.Std
	s.FitnessMedian = sum.Median
}
