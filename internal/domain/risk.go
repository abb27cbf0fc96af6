package domain

import (
	"fmt"
	"math"
)

// RiskLevel is the outcome label of the decision pipeline.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
)

// RiskLevels lists the closed set of labels in ascending severity.
var RiskLevels = []RiskLevel{RiskLow, RiskModerate, RiskHigh}

// Valid reports whether l is one of LOW, MODERATE or HIGH.
func (l RiskLevel) Valid() bool {
	switch l {
	case RiskLow, RiskModerate, RiskHigh:
		return true
	}
	return false
}

func (l RiskLevel) String() string { return string(l) }

// Resolver thresholds. Both are strict lower bounds.
const (
	HighRiskThreshold     = 0.70
	ModerateRiskThreshold = 0.60
)

// sumTolerance bounds how far a distribution may drift from 1.
const sumTolerance = 0.01

// Distribution maps each risk class to its calibrated probability.
// Absent classes read as probability 0.
type Distribution map[RiskLevel]float64

// P returns the probability of level, or 0 when absent.
func (d Distribution) P(level RiskLevel) float64 {
	return d[level]
}

// Max returns the largest probability across all classes present.
func (d Distribution) Max() float64 {
	maxProb := 0.0
	for _, p := range d {
		if p > maxProb {
			maxProb = p
		}
	}
	return maxProb
}

// Validate rejects distributions with unknown classes, non-finite or
// out-of-range values, or a total that is not approximately 1.
func (d Distribution) Validate() error {
	if len(d) == 0 {
		return fmt.Errorf("%w: empty distribution", ErrMalformedDistribution)
	}
	sum := 0.0
	for level, p := range d {
		if !level.Valid() {
			return fmt.Errorf("%w: unknown class %q", ErrMalformedDistribution, level)
		}
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 || p > 1 {
			return fmt.Errorf("%w: %s probability %v out of range", ErrMalformedDistribution, level, p)
		}
		sum += p
	}
	if math.Abs(sum-1) > sumTolerance {
		return fmt.Errorf("%w: probabilities sum to %.4f", ErrMalformedDistribution, sum)
	}
	return nil
}

// ResolveRisk applies the priority-ordered threshold cascade and returns the
// chosen label with the probability mass of that label. It is deliberately
// not an argmax.
func ResolveRisk(d Distribution) (RiskLevel, float64) {
	if p := d.P(RiskHigh); p > HighRiskThreshold {
		return RiskHigh, p
	}
	if p := d.P(RiskModerate); p > ModerateRiskThreshold {
		return RiskModerate, p
	}
	if p, ok := d[RiskLow]; ok {
		return RiskLow, p
	}
	return RiskLow, 1.0
}

// ConfidenceBand is a coarse, human-facing certainty indicator.
type ConfidenceBand string

const (
	ConfidenceLow      ConfidenceBand = "LOW"
	ConfidenceModerate ConfidenceBand = "MODERATE"
	ConfidenceHigh     ConfidenceBand = "HIGH"
	ConfidenceVeryHigh ConfidenceBand = "VERY HIGH"
)

// ClassifyConfidence maps the top class probability to a band. Each lower
// edge is exclusive, so exactly 0.85 is HIGH and exactly 0.55 is LOW.
func ClassifyConfidence(maxProb float64) ConfidenceBand {
	switch {
	case maxProb > 0.85:
		return ConfidenceVeryHigh
	case maxProb > 0.70:
		return ConfidenceHigh
	case maxProb > 0.55:
		return ConfidenceModerate
	default:
		return ConfidenceLow
	}
}

// RoundProbability rounds p to two decimals, the precision used for both
// persisted records and API responses.
func RoundProbability(p float64) float64 {
	return math.Round(p*100) / 100
}
