package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"orderscan-api/internal/model"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

const scanEventType = "ScanRecorded"

// KafkaSink publishes scan events to a Kafka topic so downstream consumers
// (reporting, replenishment) see scans as they happen.
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
	retries  int
	logger   *zap.Logger
}

// KafkaSinkConfig holds the producer settings.
type KafkaSinkConfig struct {
	Brokers []string
	Topic   string
	Acks    string
	Retries int
}

// NewKafkaSink creates a Kafka-backed scan event sink.
func NewKafkaSink(cfg KafkaSinkConfig, logger *zap.Logger) (*KafkaSink, error) {
	retries := cfg.Retries
	if retries < 1 {
		retries = 1
	}

	sc := sarama.NewConfig()
	sc.Producer.Return.Successes = true
	sc.Producer.Retry.Max = retries

	switch cfg.Acks {
	case "0":
		sc.Producer.RequiredAcks = sarama.NoResponse
	case "1":
		sc.Producer.RequiredAcks = sarama.WaitForLocal
	default:
		sc.Producer.RequiredAcks = sarama.WaitForAll
	}

	// Idempotent production requires acks from all replicas and at least one retry.
	if sc.Producer.RequiredAcks == sarama.WaitForAll {
		sc.Producer.Idempotent = true
		sc.Net.MaxOpenRequests = 1
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &KafkaSink{
		producer: producer,
		topic:    cfg.Topic,
		retries:  retries,
		logger:   logger,
	}, nil
}

// Record publishes one scan event, retrying with exponential backoff.
func (k *KafkaSink) Record(ctx context.Context, event model.ScanEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal scan event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(scanEventType)},
			{Key: []byte("event-id"), Value: []byte(event.ID)},
			{Key: []byte("timestamp"), Value: []byte(event.ScannedAt.UTC().Format(time.RFC3339))},
		},
	}
	if key := partitionKey(event); key != "" {
		msg.Key = sarama.StringEncoder(key)
	}

	baseDelay := 100 * time.Millisecond
	var lastErr error

	for attempt := 0; attempt < k.retries; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		partition, offset, err := k.producer.SendMessage(msg)
		if err == nil {
			k.logger.Debug("scan event published",
				zap.String("topic", k.topic),
				zap.Int32("partition", partition),
				zap.Int64("offset", offset),
				zap.String("event_id", event.ID),
				zap.Int("attempt", attempt+1))
			return nil
		}

		lastErr = err
		k.logger.Warn("failed to publish scan event, retrying",
			zap.String("topic", k.topic),
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", k.retries))

		if attempt < k.retries-1 {
			delay := baseDelay * time.Duration(1<<uint(attempt))
			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled during backoff: %w", ctx.Err())
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("failed to publish scan event after %d attempts: %w", k.retries, lastErr)
}

// Close closes the underlying producer.
func (k *KafkaSink) Close() error {
	if k.producer != nil {
		return k.producer.Close()
	}
	return nil
}

// partitionKey keeps all scans of one customer on the same partition so a
// consumer sees them in order. Sessions without a customer fall back to the
// barcode itself.
func partitionKey(event model.ScanEvent) string {
	if event.CustomerID != "" {
		return event.CustomerID
	}
	return event.Barcode
}

var _ Sink = (*KafkaSink)(nil)
