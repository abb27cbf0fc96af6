// Package memory implements the decision store in process memory. It backs
// local runs and tests; everything is lost on restart.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/outbreak-risk-service/internal/domain"
)

// Store is an append-only, concurrency-safe history store.
type Store struct {
	mu          sync.RWMutex
	clock       clockwork.Clock
	predictions []domain.PredictionRecord
	alerts      []domain.AlertRecord
	cases       []domain.CaseReport
	water       []domain.WaterReport
}

// NewStore creates an empty Store. Records without a CreatedAt are stamped
// from clock.
func NewStore(clock clockwork.Clock) *Store {
	return &Store{clock: clock}
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) stamp(t time.Time) time.Time {
	if t.IsZero() {
		return s.clock.Now().UTC()
	}
	return t
}

func (s *Store) AppendPrediction(_ context.Context, rec domain.PredictionRecord) (domain.PredictionRecord, error) {
	if err := rec.Validate(); err != nil {
		return domain.PredictionRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = uint64(len(s.predictions) + 1)
	rec.CreatedAt = s.stamp(rec.CreatedAt)
	s.predictions = append(s.predictions, rec)
	return rec, nil
}

func (s *Store) AppendAlert(_ context.Context, alert domain.AlertRecord) (domain.AlertRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	alert.ID = uint64(len(s.alerts) + 1)
	alert.CreatedAt = s.stamp(alert.CreatedAt)
	s.alerts = append(s.alerts, alert)
	return alert, nil
}

func (s *Store) AppendCaseReport(_ context.Context, r domain.CaseReport) (domain.CaseReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = uint64(len(s.cases) + 1)
	r.CreatedAt = s.stamp(r.CreatedAt)
	s.cases = append(s.cases, r)
	return r, nil
}

func (s *Store) AppendWaterReport(_ context.Context, r domain.WaterReport) (domain.WaterReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = uint64(len(s.water) + 1)
	r.CreatedAt = s.stamp(r.CreatedAt)
	s.water = append(s.water, r)
	return r, nil
}

// RecentPredictions returns predictions created at or after since, newest first.
func (s *Store) RecentPredictions(_ context.Context, since time.Time) ([]domain.PredictionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PredictionRecord, 0)
	for i := len(s.predictions) - 1; i >= 0; i-- {
		if p := s.predictions[i]; !p.CreatedAt.Before(since) {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.PredictionRecord) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (s *Store) CountPredictions(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.predictions)), nil
}

func (s *Store) CountByRiskLevel(_ context.Context, level domain.RiskLevel) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, p := range s.predictions {
		if p.RiskLevel == level {
			n++
		}
	}
	return n, nil
}

// RecentAlerts returns at most limit alerts, newest first.
func (s *Store) RecentAlerts(_ context.Context, limit int) ([]domain.AlertRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AlertRecord, 0, min(limit, len(s.alerts)))
	for i := len(s.alerts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.alerts[i])
	}
	return out, nil
}

// AlertsAfter returns at most limit alerts with ID greater than afterID, in
// ascending ID order.
func (s *Store) AlertsAfter(_ context.Context, afterID uint64, limit int) ([]domain.AlertRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if afterID >= uint64(len(s.alerts)) {
		return nil, nil
	}
	rest := s.alerts[afterID:]
	if len(rest) > limit {
		rest = rest[:limit]
	}
	return slices.Clone(rest), nil
}
