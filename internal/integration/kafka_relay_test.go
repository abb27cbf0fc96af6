//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/outbreak-risk-service/internal/adapter/kafka"
	"github.com/couchcryptid/outbreak-risk-service/internal/adapter/memory"
	"github.com/couchcryptid/outbreak-risk-service/internal/config"
	"github.com/couchcryptid/outbreak-risk-service/internal/domain"
	"github.com/couchcryptid/outbreak-risk-service/internal/observability"
	"github.com/couchcryptid/outbreak-risk-service/internal/pipeline"
	"github.com/couchcryptid/outbreak-risk-service/internal/scoring"
)

// relayedAlert holds a deserialized message read from the alert topic.
type relayedAlert struct {
	Alert   domain.AlertRecord
	Key     string
	Headers map[string]string
}

// readAlert reads a single message from the alert consumer and deserializes it.
func readAlert(ctx context.Context, t *testing.T, consumer *kafkago.Reader) relayedAlert {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from alert topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var alert domain.AlertRecord
	require.NoError(t, json.Unmarshal(msg.Value, &alert), "unmarshal alert message")

	return relayedAlert{
		Alert:   alert,
		Key:     string(msg.Key),
		Headers: headers,
	}
}

// TestAlertRelayEndToEnd scores records through the predictor, runs the relay
// against a real broker and checks every HIGH decision arrives exactly once,
// in alert ID order.
func TestAlertRelayEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	topic := fmt.Sprintf("outbreak-alerts-%d", time.Now().UnixNano())
	createTopic(t, broker, topic)

	cfg := &config.Config{
		KafkaBrokers:    []string{broker},
		KafkaAlertTopic: topic,
	}

	clock := clockwork.NewFakeClockAt(testNow)
	logger := discardLogger()
	metrics := observability.NewMetricsForTesting()
	store := memory.NewStore(clock)
	predictor := pipeline.NewPredictor(scoring.NewRuleScorer(), store, nil, clock, logger, metrics, 0)

	states := []string{"Assam", "Bihar", "Odisha"}
	for _, state := range states {
		d, err := predictor.Predict(ctx, domain.FeatureRecord{State: state, Month: 7, Rainfall: 320, PH: 6.4, BOD: 5.1, Nitrate: 4.2, Temp: 29})
		require.NoError(t, err)
		require.True(t, d.Alert)
	}
	_, err := predictor.Predict(ctx, domain.FeatureRecord{State: "Kerala", Month: 1, PH: 7, Temp: 25})
	require.NoError(t, err)

	writer := kafka.NewWriter(cfg, logger)
	defer writer.Close()

	cursor := &pipeline.MemoryCursor{}
	relay := pipeline.NewRelay(store, writer, cursor, clock, logger, metrics, pipeline.RelayConfig{
		BatchSize:    2,
		PollInterval: 100 * time.Millisecond,
	})

	relayCtx, relayCancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- relay.Run(relayCtx) }()

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       topic,
		GroupID:     fmt.Sprintf("test-relay-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
		MaxWait:     500 * time.Millisecond,
	})
	defer consumer.Close()

	var prevID uint64
	for _, state := range states {
		got := readAlert(ctx, t, consumer)
		assert.Equal(t, state, got.Key)
		assert.Equal(t, state, got.Alert.State)
		assert.Equal(t, domain.AlertMessage(state), got.Alert.Message)
		assert.Equal(t, "HIGH", got.Headers["risk_level"])
		assert.Equal(t, got.Alert.CorrelationID, got.Headers["correlation_id"])
		assert.NotEmpty(t, got.Alert.CorrelationID)
		assert.Greater(t, got.Alert.ID, prevID)
		prevID = got.Alert.ID
	}

	assert.Eventually(t, func() bool {
		id, _ := cursor.LoadCursor(ctx)
		return id == prevID
	}, 10*time.Second, 100*time.Millisecond, "cursor advances to the last relayed alert")

	relayCancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("relay did not stop after cancel")
	}
}
