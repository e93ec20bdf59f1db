package domain

import (
	"fmt"
	"math"
)

// combineEpsilon keeps log-space aggregation defined when a component
// score is exactly zero.
const combineEpsilon = 0.01

// WeightSumTolerance is the allowed deviation of the weight sum from 1.0.
const WeightSumTolerance = 0.05

// Weights holds the relative importance of each verification dimension in
// the combined score. Weights must sum to 1.0 within WeightSumTolerance.
type Weights struct {
	Relevance      float64 `json:"relevance" yaml:"relevance"`
	Irreducibility float64 `json:"irreducibility" yaml:"irreducibility"`
	Novelty        float64 `json:"novelty" yaml:"novelty"`
	Coherence      float64 `json:"coherence" yaml:"coherence"`
	Effort         float64 `json:"effort" yaml:"effort"`
	AIDetection    float64 `json:"ai_detection" yaml:"ai_detection"`
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Relevance + w.Irreducibility + w.Novelty + w.Coherence + w.Effort + w.AIDetection
}

// Validate checks that each weight is non-negative and the sum is close
// enough to 1.0 for the geometric mean to be meaningful.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"relevance":      w.Relevance,
		"irreducibility": w.Irreducibility,
		"novelty":        w.Novelty,
		"coherence":      w.Coherence,
		"effort":         w.Effort,
		"ai_detection":   w.AIDetection,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s is negative: %f", name, v)
		}
	}
	sum := w.Sum()
	if math.Abs(sum-1.0) > WeightSumTolerance {
		return fmt.Errorf("weights sum to %.3f, expected 1.0 ± %.2f", sum, WeightSumTolerance)
	}
	return nil
}

// ComponentScores collects the six per-dimension combined scores that
// feed the overall verdict.
type ComponentScores struct {
	Relevance      float64
	Irreducibility float64
	Novelty        float64
	Coherence      float64
	Effort         float64
	AIDetection    float64
}

// CombineGeometric computes the weighted geometric mean of the component
// scores in log space:
//
//	exp(Σ wᵢ·log(scoreᵢ + ε) / Σwᵢ) − ε
//
// The geometric mean is deliberate: a single near-zero dimension drags the
// aggregate toward zero, so a response cannot trade excellence on one axis
// for failure on another. The result is clamped to [0,1].
func CombineGeometric(s ComponentScores, w Weights) float64 {
	pairs := []struct{ score, weight float64 }{
		{s.Relevance, w.Relevance},
		{s.Irreducibility, w.Irreducibility},
		{s.Novelty, w.Novelty},
		{s.Coherence, w.Coherence},
		{s.Effort, w.Effort},
		{s.AIDetection, w.AIDetection},
	}

	weightSum := w.Sum()
	if weightSum <= 0 {
		return 0
	}

	logSum := 0.0
	for _, p := range pairs {
		logSum += p.weight * math.Log(p.score+combineEpsilon)
	}

	combined := math.Exp(logSum/weightSum) - combineEpsilon
	return Clamp01(combined)
}

// Clamp01 clamps v to the [0,1] interval. NaN clamps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
