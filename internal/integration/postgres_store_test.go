//go:build integration

package integration_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/outbreak-risk-service/internal/adapter/postgres"
	"github.com/couchcryptid/outbreak-risk-service/internal/domain"
	"github.com/couchcryptid/outbreak-risk-service/internal/observability"
	"github.com/couchcryptid/outbreak-risk-service/internal/pipeline"
	"github.com/couchcryptid/outbreak-risk-service/internal/report"
	"github.com/couchcryptid/outbreak-risk-service/internal/scoring"
)

var testNow = time.Date(2024, time.July, 14, 9, 30, 0, 0, time.UTC)

func openStore(ctx context.Context, t *testing.T, clock clockwork.Clock) *postgres.Store {
	t.Helper()
	store, err := postgres.Open(ctx, startPostgres(ctx, t), clock)
	require.NoError(t, err, "open postgres store")
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// TestPostgresStoreRoundTrip verifies appends assign IDs and reads return
// exactly what was written.
func TestPostgresStoreRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store := openStore(ctx, t, clockwork.NewFakeClockAt(testNow))
	require.NoError(t, store.Ping(ctx))

	pred, err := store.AppendPrediction(ctx, domain.PredictionRecord{
		CorrelationID: "corr-1",
		State:         "Assam",
		Month:         7,
		Rainfall:      320,
		PH:            6.4,
		BOD:           5.1,
		Nitrate:       4.2,
		Temp:          29,
		RiskLevel:     domain.RiskHigh,
		Probability:   0.84,
	})
	require.NoError(t, err)
	assert.NotZero(t, pred.ID)
	assert.Equal(t, testNow, pred.CreatedAt)

	alert, err := store.AppendAlert(ctx, domain.AlertRecord{
		CorrelationID: "corr-1",
		State:         "Assam",
		Message:       domain.AlertMessage("Assam"),
		RiskLevel:     domain.RiskHigh,
	})
	require.NoError(t, err)
	assert.NotZero(t, alert.ID)

	preds, err := store.RecentPredictions(ctx, testNow.Add(-domain.HeatmapWindow))
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.Equal(t, pred, preds[0])

	alerts, err := store.RecentAlerts(ctx, domain.AlertFeedLimit)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, alert, alerts[0])

	_, err = store.AppendPrediction(ctx, domain.PredictionRecord{State: "Assam", RiskLevel: "EXTREME"})
	require.Error(t, err, "unknown risk levels are rejected")

	cr, err := store.AppendCaseReport(ctx, domain.CaseReport{PatientName: "R. Das", Age: 34, Village: "Majuli", Symptoms: "fever", Severity: "mild"})
	require.NoError(t, err)
	assert.NotZero(t, cr.ID)

	wr, err := store.AppendWaterReport(ctx, domain.WaterReport{Source: "tube well", Location: "Majuli", PH: 6.2, Turbidity: 12.5})
	require.NoError(t, err)
	assert.NotZero(t, wr.ID)
}

// TestPostgresWindowAndCounts verifies the trailing window boundary, the
// per-level counts and the alert cursor query.
func TestPostgresWindowAndCounts(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store := openStore(ctx, t, clockwork.NewFakeClockAt(testNow))
	since := testNow.Add(-domain.HeatmapWindow)

	for _, p := range []domain.PredictionRecord{
		{State: "Kerala", RiskLevel: domain.RiskLow, Probability: 0.9, CreatedAt: since.Add(-time.Second)},
		{State: "Bihar", RiskLevel: domain.RiskModerate, Probability: 0.7, CreatedAt: since},
		{State: "Assam", RiskLevel: domain.RiskHigh, Probability: 0.8, CreatedAt: testNow},
	} {
		_, err := store.AppendPrediction(ctx, p)
		require.NoError(t, err)
	}

	preds, err := store.RecentPredictions(ctx, since)
	require.NoError(t, err)
	require.Len(t, preds, 2, "record exactly at the window edge is included")
	assert.Equal(t, "Assam", preds[0].State)
	assert.Equal(t, "Bihar", preds[1].State)

	total, err := store.CountPredictions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	for _, level := range domain.RiskLevels {
		n, err := store.CountByRiskLevel(ctx, level)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n, level)
	}

	var ids []uint64
	for i := 0; i < 4; i++ {
		a, err := store.AppendAlert(ctx, domain.AlertRecord{State: "Assam", Message: domain.AlertMessage("Assam"), RiskLevel: domain.RiskHigh})
		require.NoError(t, err)
		ids = append(ids, a.ID)
	}
	after, err := store.AlertsAfter(ctx, ids[1], 10)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, ids[2], after[0].ID)
	assert.Equal(t, ids[3], after[1].ID)
}

// TestPostgresPredictorEndToEnd runs the rule-based pipeline against Postgres
// and checks the dashboard views agree with the decisions.
func TestPostgresPredictorEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	clock := clockwork.NewFakeClockAt(testNow)
	store := openStore(ctx, t, clock)
	logger := discardLogger()
	metrics := observability.NewMetricsForTesting()

	agg := report.NewAggregator(store, nil, 0, nil, clock, logger, metrics)
	predictor := pipeline.NewPredictor(scoring.NewRuleScorer(), store, agg, clock, logger, metrics, 0)

	high, err := predictor.Predict(ctx, domain.FeatureRecord{State: "Assam", Month: 7, Rainfall: 320, PH: 6.4, BOD: 5.1, Nitrate: 4.2, Temp: 29})
	require.NoError(t, err)
	require.Equal(t, domain.RiskHigh, high.RiskLevel)

	low, err := predictor.Predict(ctx, domain.FeatureRecord{State: "Kerala", Month: 1, PH: 7, Temp: 25})
	require.NoError(t, err)
	require.Equal(t, domain.RiskLow, low.RiskLevel)

	summary, err := agg.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Summary{TotalPredictions: 2, HighRisk: 1, LowRisk: 1}, summary)

	points, err := agg.Heatmap(ctx)
	require.NoError(t, err)
	require.Len(t, points, 2)

	alerts, err := agg.Alerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "High outbreak risk detected in Assam", alerts[0].Message)
}
