// Package kafka publishes extracted statistics records to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/districtwater/gridclim/internal/config"
	"github.com/districtwater/gridclim/internal/domain"
)

// Publisher produces statistics records to a Kafka topic.
// It implements pipeline.RecordPublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured statistics topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes and sends the records in a single WriteMessages call.
func (p *Publisher) Publish(ctx context.Context, records []domain.StatisticsRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a StatisticsRecord into a Kafka message keyed
// by source filename.
func serializeToMessage(rec domain.StatisticsRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize statistics record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.Filename),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "variable", Value: []byte(rec.Variable)},
			{Key: "date", Value: []byte(rec.Date)},
			{Key: "processed_at", Value: []byte(rec.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
