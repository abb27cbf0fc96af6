package domain

import (
	"fmt"
	"math"
	"sort"
)

// FeatureNames is the display name of each importance slot, in the order the
// classifier reports them.
var FeatureNames = []string{
	"Month",
	"Rainfall",
	"pH Level",
	"BOD Level",
	"Nitrate Level",
	"Temperature",
}

// FallbackFactor is reported when importances cannot be ranked.
const FallbackFactor = "Environmental Conditions"

// MaxFactors caps the number of factors surfaced per decision.
const MaxFactors = 3

// Explanation is the outcome of ranking feature importances. Err is nil when
// Factors were ranked from real importances and holds the reason when
// Factors is the fallback.
type Explanation struct {
	Factors []string
	Err     error
}

// Fallback reports whether the fixed fallback factor was used.
func (e Explanation) Fallback() bool { return e.Err != nil }

func fallbackExplanation(err error) Explanation {
	return Explanation{Factors: []string{FallbackFactor}, Err: err}
}

// Explain ranks importances by descending value, breaking ties by the
// earlier feature, and returns the top MaxFactors names. scoreErr is the
// scorer's own importance-extraction error, if any. Explain never fails;
// bad input yields the fallback explanation.
func Explain(importances []float64, scoreErr error) Explanation {
	if scoreErr != nil {
		return fallbackExplanation(scoreErr)
	}
	if len(importances) == 0 {
		return fallbackExplanation(ErrNoImportances)
	}
	if len(importances) != len(FeatureNames) {
		return fallbackExplanation(fmt.Errorf("got %d importances for %d features", len(importances), len(FeatureNames)))
	}
	for i, v := range importances {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fallbackExplanation(fmt.Errorf("importance for %s is %v", FeatureNames[i], v))
		}
	}

	idx := make([]int, len(importances))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return importances[idx[a]] > importances[idx[b]]
	})

	n := min(MaxFactors, len(idx))
	factors := make([]string, 0, n)
	for _, i := range idx[:n] {
		factors = append(factors, FeatureNames[i])
	}
	return Explanation{Factors: factors}
}
