// Package report serves the read-only dashboard views derived from stored
// decision history: the heatmap feed, the running summary and the alert feed.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/outbreak-risk-service/internal/domain"
	"github.com/couchcryptid/outbreak-risk-service/internal/observability"
)

// Cache keys for each view.
const (
	keyHeatmap = "report:heatmap"
	keySummary = "report:summary"
	keyAlerts  = "report:alerts"
)

// HistoryReader is the read side of the decision store.
type HistoryReader interface {
	// RecentPredictions returns predictions with created_at >= since, newest first.
	RecentPredictions(ctx context.Context, since time.Time) ([]domain.PredictionRecord, error)
	CountPredictions(ctx context.Context) (int64, error)
	CountByRiskLevel(ctx context.Context, level domain.RiskLevel) (int64, error)
	// RecentAlerts returns at most limit alerts, newest first.
	RecentAlerts(ctx context.Context, limit int) ([]domain.AlertRecord, error)
}

// Cache is a byte-oriented TTL cache shared across replicas.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Aggregator computes dashboard views. A nil cache or zero TTL disables
// caching. A nil geocoder limits coordinates to the built-in state table.
type Aggregator struct {
	history  HistoryReader
	cache    Cache
	ttl      time.Duration
	geocoder domain.Geocoder
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewAggregator creates an Aggregator over history.
func NewAggregator(history HistoryReader, cache Cache, ttl time.Duration, geocoder domain.Geocoder, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Aggregator {
	if ttl <= 0 {
		cache = nil
	}
	return &Aggregator{
		history:  history,
		cache:    cache,
		ttl:      ttl,
		geocoder: geocoder,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
}

// Heatmap returns one point per prediction stored within the trailing
// HeatmapWindow, newest first. The result is never nil.
func (a *Aggregator) Heatmap(ctx context.Context) ([]domain.HeatmapPoint, error) {
	return cached(ctx, a, "heatmap", keyHeatmap, a.loadHeatmap)
}

func (a *Aggregator) loadHeatmap(ctx context.Context) ([]domain.HeatmapPoint, error) {
	since := a.clock.Now().Add(-domain.HeatmapWindow)
	preds, err := a.history.RecentPredictions(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("read recent predictions: %w", err)
	}

	located := make(map[string]domain.Geo)
	points := make([]domain.HeatmapPoint, 0, len(preds))
	for _, p := range preds {
		geo, ok := located[p.State]
		if !ok {
			geo = domain.LocateState(ctx, p.State, a.geocoder, a.logger)
			located[p.State] = geo
		}
		lat, lon := geo.Lat, geo.Lon
		points = append(points, domain.HeatmapPoint{
			State:       p.State,
			RiskLevel:   p.RiskLevel,
			Probability: p.Probability,
			Lat:         &lat,
			Lon:         &lon,
		})
	}
	return points, nil
}

// Summary returns the total prediction count and the count per risk level.
// Each count is read independently, so under concurrent writes the parts
// may not sum exactly to the total.
func (a *Aggregator) Summary(ctx context.Context) (domain.Summary, error) {
	return cached(ctx, a, "summary", keySummary, a.loadSummary)
}

func (a *Aggregator) loadSummary(ctx context.Context) (domain.Summary, error) {
	var s domain.Summary
	var err error
	if s.TotalPredictions, err = a.history.CountPredictions(ctx); err != nil {
		return domain.Summary{}, fmt.Errorf("count predictions: %w", err)
	}
	counts := map[domain.RiskLevel]*int64{
		domain.RiskHigh:     &s.HighRisk,
		domain.RiskModerate: &s.ModerateRisk,
		domain.RiskLow:      &s.LowRisk,
	}
	for level, dst := range counts {
		if *dst, err = a.history.CountByRiskLevel(ctx, level); err != nil {
			return domain.Summary{}, fmt.Errorf("count %s predictions: %w", level, err)
		}
	}
	return s, nil
}

// Alerts returns the AlertFeedLimit most recent alerts, newest first. The
// result is never nil.
func (a *Aggregator) Alerts(ctx context.Context) ([]domain.AlertRecord, error) {
	return cached(ctx, a, "alerts", keyAlerts, a.loadAlerts)
}

func (a *Aggregator) loadAlerts(ctx context.Context) ([]domain.AlertRecord, error) {
	alerts, err := a.history.RecentAlerts(ctx, domain.AlertFeedLimit)
	if err != nil {
		return nil, fmt.Errorf("read recent alerts: %w", err)
	}
	if alerts == nil {
		alerts = []domain.AlertRecord{}
	}
	return alerts, nil
}

// PredictionRecorded drops the views a new prediction changes.
func (a *Aggregator) PredictionRecorded(ctx context.Context, _ domain.PredictionRecord) {
	a.invalidate(ctx, keyHeatmap, keySummary)
}

// AlertRecorded drops the alert feed.
func (a *Aggregator) AlertRecorded(ctx context.Context, _ domain.AlertRecord) {
	a.invalidate(ctx, keyAlerts)
}

func (a *Aggregator) invalidate(ctx context.Context, keys ...string) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Delete(ctx, keys...); err != nil {
		a.logger.Warn("cache invalidation failed", "keys", keys, "error", err)
	}
}

// cached serves view from the cache when possible and fills it on a miss.
// Cache failures are logged and fall through to the store.
func cached[T any](ctx context.Context, a *Aggregator, view, key string, load func(context.Context) (T, error)) (T, error) {
	if a.cache == nil {
		return load(ctx)
	}

	raw, ok, err := a.cache.Get(ctx, key)
	switch {
	case err != nil:
		a.metrics.CacheLookups.WithLabelValues(view, "error").Inc()
		a.logger.Warn("cache read failed", "view", view, "error", err)
	case ok:
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			a.metrics.CacheLookups.WithLabelValues(view, "hit").Inc()
			return v, nil
		}
		a.metrics.CacheLookups.WithLabelValues(view, "error").Inc()
		a.logger.Warn("cache entry undecodable", "view", view)
	default:
		a.metrics.CacheLookups.WithLabelValues(view, "miss").Inc()
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if raw, err := json.Marshal(v); err == nil {
		if err := a.cache.Set(ctx, key, raw, a.ttl); err != nil {
			a.logger.Warn("cache write failed", "view", view, "error", err)
		}
	}
	return v, nil
}
