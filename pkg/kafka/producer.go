// Package kafka publishes one event per normalized well after a run.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const (
	// EventWellNormalized is the event type of a published well record.
	EventWellNormalized = "well.normalized"

	sinkName = "kafka"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles Kafka event emission
type Producer struct {
	writer    messageWriter
	brokers   []string
	logger    ectologger.Logger
	topic     string
	batchSize int
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return newProducer(writer, cfg, logger)
}

func newProducer(writer messageWriter, cfg ProducerConfig, logger ectologger.Logger) *Producer {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Producer{
		writer:    writer,
		brokers:   cfg.Brokers,
		logger:    logger,
		topic:     cfg.Topic,
		batchSize: batchSize,
	}
}

func (p *Producer) GetName() string     { return "kafka" }
func (p *Producer) DependsOn() []string { return nil }

// Start checks that the first broker accepts connections.
func (p *Producer) Start(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to reach kafka broker %s: %w", p.brokers[0], err)
	}
	return conn.Close()
}

func (p *Producer) Stop(_ context.Context) error {
	return p.writer.Close()
}

// WellEvent is the payload of a well.normalized message.
type WellEvent struct {
	EventType string            `json:"event_type"`
	RunID     string            `json:"run_id"`
	WellKey   string            `json:"well_key"`
	Well      models.WellRecord `json:"well"`
	Timestamp time.Time         `json:"timestamp"`
}

// PublishWells publishes one event per well, keyed by the well key so every
// version of a well lands on the same partition.
func (p *Producer) PublishWells(ctx context.Context, runID string, wells []models.WellRecord) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishWells")
	defer span.End()

	now := time.Now().UTC()
	published := 0
	for start := 0; start < len(wells); start += p.batchSize {
		end := min(start+p.batchSize, len(wells))
		msgs := make([]kafka.Message, 0, end-start)
		for _, w := range wells[start:end] {
			msg, err := p.message(runID, w, now)
			if err != nil {
				return published, err
			}
			msgs = append(msgs, msg)
		}

		if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
			metrics.SinkWritesTotal.WithLabelValues(sinkName, "failure").Inc()
			p.logger.WithContext(ctx).WithError(err).WithField("published", published).Error("Failed to publish well events")
			return published, err
		}
		published += len(msgs)
	}

	metrics.SinkWritesTotal.WithLabelValues(sinkName, "success").Inc()
	p.logger.WithContext(ctx).WithFields(map[string]any{
		"topic":  p.topic,
		"run_id": runID,
		"events": published,
	}).Info("Published well events")
	return published, nil
}

func (p *Producer) message(runID string, w models.WellRecord, ts time.Time) (kafka.Message, error) {
	event := WellEvent{
		EventType: EventWellNormalized,
		RunID:     runID,
		WellKey:   w.Key(),
		Well:      w,
		Timestamp: ts,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode well event: %w", err)
	}

	return kafka.Message{
		Key:   []byte(event.WellKey),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "run_id", Value: []byte(runID)},
		},
	}, nil
}
