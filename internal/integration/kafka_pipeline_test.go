//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/sounding-forecast/internal/adapter/kafka"
	"github.com/couchcryptid/sounding-forecast/internal/domain"
)

const testTopic = "test-sounding-forecasts"

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("test-cluster"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestPublisherRoundTrip publishes a prediction and a max-temperature event and
// reads them back from the topic.
func TestPublisherRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	produced := time.Date(2024, time.June, 2, 10, 0, 0, 0, time.UTC)
	events := []domain.ForecastEvent{
		{
			ID:           "evt-prediction",
			Kind:         domain.EventPrediction,
			ForecastDate: "2024-06-02",
			ValueF:       84.25,
			Model:        "randomforest",
			ArtifactKey:  "2024/6/2/prediction.txt",
			ProducedAt:   produced,
		},
		{
			ID:           "evt-max-temp",
			Kind:         domain.EventMaxTemp,
			ForecastDate: "2024-06-01",
			ValueF:       88.1,
			ArtifactKey:  "2024/6/1/max_temp.txt",
			ProducedAt:   produced,
		},
	}

	pub := kafka.NewPublisher([]string{broker}, testTopic, slog.Default())
	require.NoError(t, pub.Publish(ctx, events...))
	require.NoError(t, pub.Close())

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		StartOffset: kafkago.FirstOffset,
		MaxWait:     time.Second,
	})
	defer consumer.Close()

	for _, want := range events {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read from topic")

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}

		var got domain.ForecastEvent
		require.NoError(t, json.Unmarshal(msg.Value, &got))
		assert.Equal(t, want.ForecastDate, string(msg.Key))
		assert.Equal(t, want.ID, headers["event_id"])
		assert.Equal(t, want.Kind, headers["event_kind"])
		assert.Equal(t, want.Kind, got.Kind)
		assert.Equal(t, want.ValueF, got.ValueF)
		assert.Equal(t, want.Model, got.Model)
		assert.True(t, want.ProducedAt.Equal(got.ProducedAt))
	}
}
