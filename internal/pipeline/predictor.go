package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/outbreak-risk-service/internal/domain"
	"github.com/couchcryptid/outbreak-risk-service/internal/observability"
)

// DefaultStoreWriteTimeout bounds each history append when no timeout is
// configured.
const DefaultStoreWriteTimeout = 5 * time.Second

// Recorder appends decision history. Each append is independent; the
// returned record carries the store-assigned ID.
type Recorder interface {
	AppendPrediction(ctx context.Context, rec domain.PredictionRecord) (domain.PredictionRecord, error)
	AppendAlert(ctx context.Context, alert domain.AlertRecord) (domain.AlertRecord, error)
}

// Notifier is told about records after they are durably stored.
type Notifier interface {
	PredictionRecorded(ctx context.Context, rec domain.PredictionRecord)
	AlertRecorded(ctx context.Context, alert domain.AlertRecord)
}

// Notifiers fans a notification out to every member in order.
type Notifiers []Notifier

func (ns Notifiers) PredictionRecorded(ctx context.Context, rec domain.PredictionRecord) {
	for _, n := range ns {
		n.PredictionRecorded(ctx, rec)
	}
}

func (ns Notifiers) AlertRecorded(ctx context.Context, alert domain.AlertRecord) {
	for _, n := range ns {
		n.AlertRecorded(ctx, alert)
	}
}

// Predictor runs the decision pipeline for one feature record: score,
// validate, explain, decide, then record.
type Predictor struct {
	scorer       domain.Scorer
	recorder     Recorder
	notifier     Notifier
	clock        clockwork.Clock
	logger       *slog.Logger
	metrics      *observability.Metrics
	writeTimeout time.Duration
}

// NewPredictor creates a Predictor. notifier may be nil. writeTimeout bounds
// each append and its notification; zero or less uses
// DefaultStoreWriteTimeout.
func NewPredictor(scorer domain.Scorer, recorder Recorder, notifier Notifier, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics, writeTimeout time.Duration) *Predictor {
	if notifier == nil {
		notifier = Notifiers(nil)
	}
	if writeTimeout <= 0 {
		writeTimeout = DefaultStoreWriteTimeout
	}
	return &Predictor{
		scorer:       scorer,
		recorder:     recorder,
		notifier:     notifier,
		clock:        clock,
		logger:       logger,
		metrics:      metrics,
		writeTimeout: writeTimeout,
	}
}

// Predict returns the decision for rec. Only invalid input and scoring
// failures are returned as errors; explanation and persistence failures
// degrade silently.
func (p *Predictor) Predict(ctx context.Context, rec domain.FeatureRecord) (domain.Decision, error) {
	start := p.clock.Now()
	if err := rec.Validate(); err != nil {
		return domain.Decision{}, err
	}

	scores, err := p.score(ctx, rec)
	if err != nil {
		p.metrics.ScoringErrors.Inc()
		p.logger.Error("scoring failed", "state", rec.State, "error", err)
		return domain.Decision{}, fmt.Errorf("%w: %w", domain.ErrScoring, err)
	}

	expl := domain.Explain(scores.Importances, scores.ImportanceErr)
	if expl.Fallback() {
		p.metrics.ExplainFallbacks.Inc()
		p.logger.Warn("using fallback factors", "state", rec.State, "reason", expl.Err)
	}

	decision := domain.Decide(scores.Probabilities, expl)
	p.metrics.Predictions.WithLabelValues(decision.RiskLevel.String()).Inc()

	p.record(ctx, rec, decision)

	p.metrics.PredictionDuration.Observe(p.clock.Since(start).Seconds())
	p.logger.Debug("prediction complete",
		"state", rec.State,
		"risk_level", decision.RiskLevel,
		"probability", decision.Probability,
		"confidence", decision.Confidence,
	)
	return decision, nil
}

func (p *Predictor) score(ctx context.Context, rec domain.FeatureRecord) (domain.Scores, error) {
	start := p.clock.Now()
	scores, err := p.scorer.Score(ctx, rec)
	p.metrics.ScorerDuration.Observe(p.clock.Since(start).Seconds())
	if err != nil {
		return domain.Scores{}, err
	}
	if err := scores.Probabilities.Validate(); err != nil {
		return domain.Scores{}, err
	}
	return scores, nil
}

// record appends the prediction and, for HIGH decisions, the alert. The two
// writes are independent: a failed prediction append does not suppress the
// alert. Writes outlive the caller's cancellation but each is bounded by
// writeTimeout, so a hung store delays the response by at most two timeouts.
func (p *Predictor) record(ctx context.Context, rec domain.FeatureRecord, decision domain.Decision) {
	base := context.WithoutCancel(ctx)
	correlationID := uuid.NewString()

	pred := domain.NewPredictionRecord(rec, decision, correlationID, p.clock.Now().UTC())
	p.appendPrediction(base, pred)

	alert, ok := domain.BuildAlert(decision.RiskLevel, rec.State)
	if !ok {
		return
	}
	p.metrics.AlertsRaised.Inc()
	alert.CorrelationID = correlationID
	// Stamped immediately before the append so the relay can bound how long
	// an uncommitted alert stays invisible.
	alert.CreatedAt = p.clock.Now().UTC()
	p.appendAlert(base, alert)
}

func (p *Predictor) appendPrediction(base context.Context, pred domain.PredictionRecord) {
	ctx, cancel := context.WithTimeout(base, p.writeTimeout)
	defer cancel()

	stored, err := p.recorder.AppendPrediction(ctx, pred)
	if err != nil {
		p.metrics.StoreWriteErrors.WithLabelValues("prediction").Inc()
		p.logger.Error("append prediction failed",
			"correlation_id", pred.CorrelationID,
			"state", pred.State,
			"error", err,
		)
		return
	}
	p.notifier.PredictionRecorded(ctx, stored)
}

func (p *Predictor) appendAlert(base context.Context, alert domain.AlertRecord) {
	ctx, cancel := context.WithTimeout(base, p.writeTimeout)
	defer cancel()

	stored, err := p.recorder.AppendAlert(ctx, alert)
	if err != nil {
		p.metrics.StoreWriteErrors.WithLabelValues("alert").Inc()
		p.logger.Error("append alert failed",
			"correlation_id", alert.CorrelationID,
			"state", alert.State,
			"error", err,
		)
		return
	}
	p.logger.Info("high risk alert raised", "state", stored.State, "alert_id", stored.ID)
	p.notifier.AlertRecorded(ctx, stored)
}
