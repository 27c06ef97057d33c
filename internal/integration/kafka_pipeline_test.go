//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/weather-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/weather-data-etl/internal/adapter/storage"
	"github.com/couchcryptid/weather-data-etl/internal/config"
	"github.com/couchcryptid/weather-data-etl/internal/domain"
	"github.com/couchcryptid/weather-data-etl/internal/observability"
	"github.com/couchcryptid/weather-data-etl/internal/pipeline"
)

const testSinkTopic = "test-weather-readings"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	c, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("weather-etl-test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	brokers, err := c.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cconn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cconn.Close()

	require.NoError(t, cconn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// publishedMessage holds a deserialized message read from the sink topic.
type publishedMessage struct {
	Reading domain.Reading
	Key     string
	Headers map[string]string
}

func readPublished(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var r domain.Reading
	require.NoError(t, json.Unmarshal(msg.Value, &r), "unmarshal sink message")
	return publishedMessage{Reading: r, Key: string(msg.Key), Headers: headers}
}

// TestPipelinePublishesNewReadings runs the pipeline twice over the same raw
// file against a real broker: the first run publishes every inserted reading,
// the second inserts and publishes nothing.
func TestPipelinePublishesNewReadings(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	dir := t.TempDir()
	cfg := &config.Config{
		RawPath:        filepath.Join(dir, "raw_data.json"),
		DataDir:        dir,
		DatabaseURL:    "sqlite:///" + filepath.Join(dir, "weather.db"),
		BatchSize:      50,
		KafkaBrokers:   []string{broker},
		KafkaSinkTopic: testSinkTopic,
	}
	require.NoError(t, os.WriteFile(cfg.RawPath, []byte(
		`{"city":"Dallas","temp":26.85,"humidity":67,"timestamp":1700000000,"fetched_at":1700000100}`+"\n"+
			`{"city":"Austin","temp":30.1,"humidity":40,"timestamp":1700000000,"fetched_at":1700000100}`+"\n"), 0o600))

	store, err := storage.Open(ctx, cfg.DatabaseURL, cfg.BatchSize)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(pipeline.Options{
		RawPath:     cfg.RawPath,
		CSVPath:     cfg.CSVPath(),
		ParquetPath: cfg.ParquetPath(),
		ReportPath:  cfg.ReportPath(),
	}, store, nil, writer, discardLogger(), observability.NewMetricsForTesting())

	res, err := p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Published)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testSinkTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1e6,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	first := readPublished(ctx, t, consumer)
	second := readPublished(ctx, t, consumer)

	assert.Equal(t, "Austin|1700000000", first.Key)
	assert.Equal(t, "Austin", first.Headers["city"])
	assert.NotEmpty(t, first.Headers["loaded_at"])
	assert.InDelta(t, 30.1, first.Reading.TemperatureC, 1e-9)
	assert.Equal(t, "Dallas|1700000000", second.Key)
	assert.Equal(t, int64(67), second.Reading.HumidityPercent)

	res, err = p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Load.Skipped)
	assert.Zero(t, res.Published)
}
