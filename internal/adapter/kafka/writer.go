package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/weather-data-etl/internal/config"
	"github.com/couchcryptid/weather-data-etl/internal/domain"
)

// Writer publishes newly stored readings to a Kafka topic.
// It implements pipeline.ReadingPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishReadings writes one message per reading in a single WriteMessages
// call. Readings of the same city share a key and so a partition.
func (w *Writer) PublishReadings(ctx context.Context, readings []domain.Reading, loadedAt time.Time) error {
	if len(readings) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(readings))
	for i := range readings {
		msg, err := serializeToMessage(readings[i], loadedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish readings: %w", err)
	}
	w.logger.Debug("published readings", "count", len(msgs), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// messageKey identifies a reading by its business key, e.g. "Dallas|1700000000".
func messageKey(r domain.Reading) []byte {
	return []byte(r.City + "|" + strconv.FormatInt(r.TimestampUnix, 10))
}

// serializeToMessage marshals a Reading into a Kafka message.
func serializeToMessage(r domain.Reading, loadedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize reading: %w", err)
	}
	return kafkago.Message{
		Key:   messageKey(r),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "city", Value: []byte(r.City)},
			{Key: "loaded_at", Value: []byte(loadedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
