// Package scoring provides an in-process Scorer used when no model server is
// configured. It awards points for known outbreak drivers and turns the total
// into a calibrated-looking distribution over the three risk classes.
package scoring

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/couchcryptid/outbreak-risk-service/internal/domain"
)

// Trigger levels for the point rules.
const (
	RainfallTrigger = 250.0
	BODTrigger      = 4.0
	NitrateTrigger  = 3.0
)

// classCentres are the point totals each class is centred on. A record's
// distance from a centre sets that class's logit.
var classCentres = []struct {
	level  domain.RiskLevel
	centre float64
}{
	{domain.RiskLow, 1},
	{domain.RiskModerate, 3.5},
	{domain.RiskHigh, 6},
}

// RuleScorer is a deterministic Scorer. It is safe for concurrent use.
type RuleScorer struct{}

// NewRuleScorer returns a RuleScorer.
func NewRuleScorer() *RuleScorer {
	return &RuleScorer{}
}

// Score implements domain.Scorer.
func (s *RuleScorer) Score(ctx context.Context, rec domain.FeatureRecord) (domain.Scores, error) {
	if err := ctx.Err(); err != nil {
		return domain.Scores{}, err
	}
	points := Points(rec)

	logits := make([]float64, len(classCentres))
	for i, c := range classCentres {
		d := points - c.centre
		logits[i] = -d * d
	}
	lse := floats.LogSumExp(logits)

	dist := make(domain.Distribution, len(classCentres))
	for i, c := range classCentres {
		dist[c.level] = math.Exp(logits[i] - lse)
	}

	return domain.Scores{
		Probabilities: dist,
		Importances:   Importances(rec),
	}, nil
}

// Points totals the rule score for rec: heavy rainfall, high BOD and high
// nitrate add two points each, a monsoon month adds one.
func Points(rec domain.FeatureRecord) float64 {
	var p float64
	if rec.Rainfall > RainfallTrigger {
		p += 2
	}
	if rec.BOD > BODTrigger {
		p += 2
	}
	if rec.Nitrate > NitrateTrigger {
		p += 2
	}
	if isMonsoon(rec.Month) {
		p++
	}
	return p
}

// Importances returns normalised per-feature contributions in
// domain.FeatureNames order. All zeros is a valid result.
func Importances(rec domain.FeatureRecord) []float64 {
	var monsoon float64
	if isMonsoon(rec.Month) {
		monsoon = 1
	}
	raw := []float64{
		monsoon,
		rec.Rainfall / RainfallTrigger,
		math.Abs(rec.PH-domain.DefaultPH) / 3.5,
		rec.BOD / BODTrigger,
		rec.Nitrate / NitrateTrigger,
		math.Abs(rec.Temp-domain.DefaultTemperature) / 15,
	}
	total := floats.Sum(raw)
	if total > 0 {
		floats.Scale(1/total, raw)
	}
	return raw
}

func isMonsoon(month int) bool {
	return month >= 6 && month <= 9
}
