package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/outbreak-risk-service/internal/config"
	"github.com/couchcryptid/outbreak-risk-service/internal/domain"
)

// Writer produces alert messages to a Kafka topic.
// It implements pipeline.AlertPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured alert topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaAlertTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishAlerts serializes and publishes alerts in a single WriteMessages
// call. Messages are keyed by state so alerts for one state stay ordered
// within a partition.
func (w *Writer) PublishAlerts(ctx context.Context, alerts []domain.AlertRecord) error {
	if len(alerts) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(alerts))
	for i := range alerts {
		msg, err := serializeAlert(alerts[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d alerts: %w", len(msgs), err)
	}
	w.logger.Debug("alerts published", "count", len(msgs), "last_id", alerts[len(alerts)-1].ID)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeAlert marshals an AlertRecord into a Kafka message.
func serializeAlert(alert domain.AlertRecord) (kafkago.Message, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(alert.State),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "risk_level", Value: []byte(alert.RiskLevel)},
			{Key: "correlation_id", Value: []byte(alert.CorrelationID)},
			{Key: "created_at", Value: []byte(alert.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
