package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/outbreak-risk-service/internal/domain"
)

var testNow = time.Date(2024, time.August, 2, 12, 0, 0, 0, time.UTC)

func prediction(state string, level domain.RiskLevel, at time.Time) domain.PredictionRecord {
	return domain.PredictionRecord{
		State:       state,
		Month:       8,
		RiskLevel:   level,
		Probability: 0.8,
		CreatedAt:   at,
	}
}

func TestStore_AppendPrediction_AssignsIDAndStamp(t *testing.T) {
	s := NewStore(clockwork.NewFakeClockAt(testNow))
	ctx := context.Background()

	first, err := s.AppendPrediction(ctx, prediction("Assam", domain.RiskHigh, time.Time{}))
	require.NoError(t, err)
	second, err := s.AppendPrediction(ctx, prediction("Kerala", domain.RiskLow, testNow.Add(-time.Hour)))
	require.NoError(t, err)

	assert.Equal(t, uint64(1), first.ID)
	assert.Equal(t, uint64(2), second.ID)
	assert.Equal(t, testNow, first.CreatedAt)
	assert.Equal(t, testNow.Add(-time.Hour), second.CreatedAt)
}

func TestStore_AppendPrediction_RejectsUnknownLevel(t *testing.T) {
	s := NewStore(clockwork.NewFakeClockAt(testNow))
	_, err := s.AppendPrediction(context.Background(), prediction("Assam", "SEVERE", testNow))
	require.Error(t, err)

	n, err := s.CountPredictions(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_RecentPredictions_WindowAndOrder(t *testing.T) {
	s := NewStore(clockwork.NewFakeClockAt(testNow))
	ctx := context.Background()
	since := testNow.Add(-domain.HeatmapWindow)

	_, _ = s.AppendPrediction(ctx, prediction("Old", domain.RiskLow, since.Add(-time.Second)))
	_, _ = s.AppendPrediction(ctx, prediction("Edge", domain.RiskLow, since))
	_, _ = s.AppendPrediction(ctx, prediction("Newest", domain.RiskHigh, testNow))
	_, _ = s.AppendPrediction(ctx, prediction("Middle", domain.RiskModerate, testNow.Add(-24*time.Hour)))

	got, err := s.RecentPredictions(ctx, since)
	require.NoError(t, err)

	states := make([]string, 0, len(got))
	for _, p := range got {
		states = append(states, p.State)
	}
	assert.Equal(t, []string{"Newest", "Middle", "Edge"}, states)
}

func TestStore_RecentPredictions_EmptyIsNotNil(t *testing.T) {
	s := NewStore(clockwork.NewFakeClockAt(testNow))
	got, err := s.RecentPredictions(context.Background(), testNow)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStore_CountByRiskLevel(t *testing.T) {
	s := NewStore(clockwork.NewFakeClockAt(testNow))
	ctx := context.Background()
	for _, level := range []domain.RiskLevel{domain.RiskHigh, domain.RiskHigh, domain.RiskLow, domain.RiskModerate, domain.RiskLow, domain.RiskLow} {
		_, err := s.AppendPrediction(ctx, prediction("Assam", level, testNow))
		require.NoError(t, err)
	}

	total, err := s.CountPredictions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)

	var sum int64
	for level, want := range map[domain.RiskLevel]int64{domain.RiskHigh: 2, domain.RiskModerate: 1, domain.RiskLow: 3} {
		n, err := s.CountByRiskLevel(ctx, level)
		require.NoError(t, err)
		assert.Equal(t, want, n, "level %s", level)
		sum += n
	}
	assert.Equal(t, total, sum)
}

func TestStore_RecentAlerts_LimitAndOrder(t *testing.T) {
	s := NewStore(clockwork.NewFakeClockAt(testNow))
	ctx := context.Background()
	for i := range 60 {
		_, err := s.AppendAlert(ctx, domain.AlertRecord{
			State:     "Assam",
			Message:   domain.AlertMessage("Assam"),
			RiskLevel: domain.RiskHigh,
			CreatedAt: testNow.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	got, err := s.RecentAlerts(ctx, domain.AlertFeedLimit)
	require.NoError(t, err)
	require.Len(t, got, domain.AlertFeedLimit)
	assert.Equal(t, uint64(60), got[0].ID)
	assert.Equal(t, uint64(11), got[len(got)-1].ID)
}

func TestStore_AlertsAfter(t *testing.T) {
	s := NewStore(clockwork.NewFakeClockAt(testNow))
	ctx := context.Background()
	for range 5 {
		_, err := s.AppendAlert(ctx, domain.AlertRecord{State: "Delhi", RiskLevel: domain.RiskHigh})
		require.NoError(t, err)
	}

	got, err := s.AlertsAfter(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(3), got[0].ID)
	assert.Equal(t, uint64(4), got[1].ID)

	got, err = s.AlertsAfter(ctx, 5, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_FieldReports(t *testing.T) {
	s := NewStore(clockwork.NewFakeClockAt(testNow))
	ctx := context.Background()

	c, err := s.AppendCaseReport(ctx, domain.CaseReport{PatientName: "R. Das", Age: 34, Village: "Majuli", Symptoms: "fever", Severity: "moderate"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), c.ID)
	assert.Equal(t, testNow, c.CreatedAt)

	w, err := s.AppendWaterReport(ctx, domain.WaterReport{Source: "well", Location: "Majuli", PH: 6.2, Turbidity: 12})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), w.ID)
}

func TestStore_ConcurrentAppends(t *testing.T) {
	s := NewStore(clockwork.NewFakeClockAt(testNow))
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.AppendPrediction(ctx, prediction("Assam", domain.RiskLow, testNow))
			_, _ = s.AppendAlert(ctx, domain.AlertRecord{State: "Assam", RiskLevel: domain.RiskHigh})
		}()
	}
	wg.Wait()

	n, err := s.CountPredictions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(50), n)

	alerts, err := s.AlertsAfter(ctx, 0, 100)
	require.NoError(t, err)
	require.Len(t, alerts, 50)
	for i, a := range alerts {
		assert.Equal(t, uint64(i+1), a.ID)
	}
}
