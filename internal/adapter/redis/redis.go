// Package redis adapts Redis to the read-model cache, the live alert channel
// and the relay cursor.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/couchcryptid/outbreak-risk-service/internal/domain"
)

// Key and channel names.
const (
	AlertChannel = "outbreak:alerts"
	CursorKey    = "outbreak:relay:cursor"
)

// Connect parses a redis:// URL, opens a client and pings it.
func Connect(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Cache implements report.Cache.
type Cache struct {
	client *goredis.Client
}

func NewCache(client *goredis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Broadcaster fans stored alerts out to every replica over pub/sub.
// It implements pipeline.Notifier.
type Broadcaster struct {
	client *goredis.Client
	logger *slog.Logger
}

func NewBroadcaster(client *goredis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{client: client, logger: logger}
}

// PredictionRecorded is a no-op; only alerts are broadcast.
func (b *Broadcaster) PredictionRecorded(context.Context, domain.PredictionRecord) {}

// AlertRecorded publishes the alert as JSON on AlertChannel.
func (b *Broadcaster) AlertRecorded(ctx context.Context, alert domain.AlertRecord) {
	data, err := json.Marshal(alert)
	if err != nil {
		b.logger.Error("marshal alert for broadcast", "error", err)
		return
	}
	if err := b.client.Publish(ctx, AlertChannel, data).Err(); err != nil {
		b.logger.Warn("publish live alert failed", "alert_id", alert.ID, "error", err)
	}
}

// Subscribe streams raw alert payloads until ctx ends. The returned channel
// is closed when the subscription stops.
func (b *Broadcaster) Subscribe(ctx context.Context) (<-chan []byte, error) {
	ps := b.client.Subscribe(ctx, AlertChannel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", AlertChannel, err)
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer ps.Close()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Cursor implements pipeline.CursorStore so relay progress survives restarts.
type Cursor struct {
	client *goredis.Client
}

func NewCursor(client *goredis.Client) *Cursor {
	return &Cursor{client: client}
}

// LoadCursor returns 0 when no cursor has been saved.
func (c *Cursor) LoadCursor(ctx context.Context) (uint64, error) {
	s, err := c.client.Get(ctx, CursorKey).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse relay cursor %q: %w", s, err)
	}
	return id, nil
}

func (c *Cursor) SaveCursor(ctx context.Context, id uint64) error {
	return c.client.Set(ctx, CursorKey, strconv.FormatUint(id, 10), 0).Err()
}
