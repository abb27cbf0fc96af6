package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/outbreak-risk-service/internal/domain"
	"github.com/couchcryptid/outbreak-risk-service/internal/observability"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// AlertSource reads stored alerts in ascending ID order.
type AlertSource interface {
	AlertsAfter(ctx context.Context, afterID uint64, limit int) ([]domain.AlertRecord, error)
}

// AlertPublisher writes a batch of alerts downstream.
type AlertPublisher interface {
	PublishAlerts(ctx context.Context, alerts []domain.AlertRecord) error
}

// CursorStore persists the ID of the last relayed alert.
type CursorStore interface {
	LoadCursor(ctx context.Context) (uint64, error)
	SaveCursor(ctx context.Context, id uint64) error
}

// RelayConfig tunes the relay loop.
type RelayConfig struct {
	BatchSize    int
	PollInterval time.Duration
	// SettleDelay is how old an alert must be before it is relayed. IDs are
	// assigned before commit, so a younger row may still have an uncommitted
	// lower-ID neighbour; the cursor never passes such a gap.
	SettleDelay time.Duration
}

// Relay tails the alert log and publishes new alerts. Delivery is
// at-least-once: the cursor only advances after a successful publish.
type Relay struct {
	source    AlertSource
	publisher AlertPublisher
	cursor    CursorStore
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	running   atomic.Bool
	cfg       RelayConfig
}

// NewRelay creates a Relay with the given stages and observability.
func NewRelay(src AlertSource, pub AlertPublisher, cursor CursorStore, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics, cfg RelayConfig) *Relay {
	return &Relay{
		source:    src,
		publisher: pub,
		cursor:    cursor,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
		cfg:       cfg,
	}
}

// CheckReadiness returns nil while the relay loop is running.
func (r *Relay) CheckReadiness(_ context.Context) error {
	if !r.running.Load() {
		return errors.New("alert relay is not running")
	}
	return nil
}

// Run relays alerts until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	backoff := initialBackoff

	var cursor uint64
	for {
		c, err := r.cursor.LoadCursor(ctx)
		if err == nil {
			cursor = c
			break
		}
		r.metrics.RelayErrors.Inc()
		r.logger.Error("load relay cursor failed", "error", err)
		if !backoffOrStop(ctx, &backoff) {
			return nil
		}
	}

	r.logger.Info("alert relay started", "cursor", cursor, "batch_size", r.cfg.BatchSize, "settle_delay", r.cfg.SettleDelay)
	r.running.Store(true)
	r.metrics.RelayRunning.Set(1)
	defer func() {
		r.running.Store(false)
		r.metrics.RelayRunning.Set(0)
	}()

	backoff = initialBackoff
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("alert relay stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !r.relayBatch(ctx, &cursor, &backoff) {
			return nil
		}
	}
}

// relayBatch publishes one batch after *cursor. Returns false if the relay
// should stop.
func (r *Relay) relayBatch(ctx context.Context, cursor *uint64, backoff *time.Duration) bool {
	alerts, err := r.source.AlertsAfter(ctx, *cursor, r.cfg.BatchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		r.metrics.RelayErrors.Inc()
		r.logger.Error("read alerts failed", "error", err, "cursor", *cursor)
		return backoffOrStop(ctx, backoff)
	}

	alerts = r.settled(alerts)
	if len(alerts) == 0 {
		return retry.SleepWithContext(ctx, r.cfg.PollInterval)
	}

	if err := r.publisher.PublishAlerts(ctx, alerts); err != nil {
		if ctx.Err() != nil {
			return false
		}
		r.metrics.RelayErrors.Inc()
		r.logger.Error("publish alerts failed", "error", err, "batch_size", len(alerts))
		return backoffOrStop(ctx, backoff)
	}

	*cursor = alerts[len(alerts)-1].ID
	*backoff = initialBackoff
	r.metrics.AlertsRelayed.Add(float64(len(alerts)))
	r.metrics.RelayBatchSize.Observe(float64(len(alerts)))

	if err := r.cursor.SaveCursor(ctx, *cursor); err != nil {
		r.metrics.RelayErrors.Inc()
		r.logger.Warn("save relay cursor failed", "error", err, "cursor", *cursor)
	}

	if len(alerts) < r.cfg.BatchSize {
		return retry.SleepWithContext(ctx, r.cfg.PollInterval)
	}
	return ctx.Err() == nil
}

// settled returns the prefix of alerts created at least SettleDelay ago.
func (r *Relay) settled(alerts []domain.AlertRecord) []domain.AlertRecord {
	cutoff := r.clock.Now().Add(-r.cfg.SettleDelay)
	for i, a := range alerts {
		if a.CreatedAt.After(cutoff) {
			return alerts[:i]
		}
	}
	return alerts
}

// backoffOrStop sleeps with the current backoff and advances it. Returns
// false if the context ended.
func backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !retry.SleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = retry.NextBackoff(*backoff, maxBackoff)
	return true
}

// MemoryCursor is a process-local CursorStore. A restart replays every
// stored alert.
type MemoryCursor struct {
	mu sync.Mutex
	id uint64
}

func (c *MemoryCursor) LoadCursor(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id, nil
}

func (c *MemoryCursor) SaveCursor(_ context.Context, id uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = id
	return nil
}
