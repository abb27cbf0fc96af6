package domain

import (
	"context"
	"fmt"
	"time"
)

// Scores is the raw output of a Scorer for one feature record.
type Scores struct {
	Probabilities Distribution
	// Importances follow FeatureNames order. Nil when the scorer exposes none.
	Importances []float64
	// ImportanceErr is set when the scorer failed to extract importances.
	// It never fails the prediction.
	ImportanceErr error
}

// Scorer wraps the trained classifier. Implementations are built once at
// process start and shared by all requests.
type Scorer interface {
	Score(ctx context.Context, rec FeatureRecord) (Scores, error)
}

// Decision is the immutable verdict for one feature record.
type Decision struct {
	RiskLevel   RiskLevel      `json:"risk_level"`
	Probability float64        `json:"probability"`
	Confidence  ConfidenceBand `json:"confidence"`
	Factors     []string       `json:"factors"`
	Alert       bool           `json:"alert"`
}

// Decide assembles a Decision from a validated distribution and its
// explanation. The probability is kept unrounded.
func Decide(d Distribution, expl Explanation) Decision {
	level, p := ResolveRisk(d)
	factors := expl.Factors
	if len(factors) == 0 {
		factors = []string{FallbackFactor}
	}
	return Decision{
		RiskLevel:   level,
		Probability: p,
		Confidence:  ClassifyConfidence(d.Max()),
		Factors:     factors,
		Alert:       level == RiskHigh,
	}
}

// PredictionRecord is the persisted, append-only audit row of a decision.
type PredictionRecord struct {
	ID            uint64    `json:"id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	State         string    `json:"state"`
	Month         int       `json:"month"`
	Rainfall      float64   `json:"rainfall"`
	PH            float64   `json:"ph"`
	BOD           float64   `json:"bod"`
	Nitrate       float64   `json:"nitrate"`
	Temp          float64   `json:"temp"`
	RiskLevel     RiskLevel `json:"risk_level"`
	Probability   float64   `json:"probability"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewPredictionRecord projects a feature record and its decision into the
// persisted shape. The store assigns ID.
func NewPredictionRecord(rec FeatureRecord, d Decision, correlationID string, createdAt time.Time) PredictionRecord {
	return PredictionRecord{
		CorrelationID: correlationID,
		State:         NormalizeState(rec.State),
		Month:         rec.Month,
		Rainfall:      rec.Rainfall,
		PH:            rec.PH,
		BOD:           rec.BOD,
		Nitrate:       rec.Nitrate,
		Temp:          rec.Temp,
		RiskLevel:     d.RiskLevel,
		Probability:   RoundProbability(d.Probability),
		CreatedAt:     createdAt,
	}
}

// Validate enforces the closed label set at write time so summary counts
// always partition the total.
func (r PredictionRecord) Validate() error {
	if !r.RiskLevel.Valid() {
		return fmt.Errorf("prediction record: unknown risk level %q", r.RiskLevel)
	}
	return nil
}
