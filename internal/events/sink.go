package events

import (
	"context"
	"errors"

	"orderscan-api/internal/cache"
	"orderscan-api/internal/model"
	"orderscan-api/internal/repository"

	"go.uber.org/zap"
)

// Sink receives completed scan events for recording.
type Sink interface {
	Record(ctx context.Context, event model.ScanEvent) error
}

// StoreSink writes scan events to the event store. When a Redis buffer is
// set, writes go through it and reach the store on the next flush; the
// store insert ignores duplicate IDs, so a buffered event that also hits
// the fallback path is recorded once.
type StoreSink struct {
	repo   repository.ScanEventRepository
	buffer *cache.RedisEventBuffer
	logger *zap.Logger
}

// NewStoreSink creates a sink that inserts events directly into the store.
func NewStoreSink(repo repository.ScanEventRepository, logger *zap.Logger) *StoreSink {
	return &StoreSink{repo: repo, logger: logger}
}

// SetBuffer routes subsequent writes through the Redis buffer.
func (s *StoreSink) SetBuffer(buffer *cache.RedisEventBuffer) {
	s.buffer = buffer
}

func (s *StoreSink) Record(ctx context.Context, event model.ScanEvent) error {
	if s.buffer != nil {
		err := s.buffer.Add(ctx, event)
		if err == nil {
			return nil
		}
		s.logger.Warn("event buffer write failed, inserting directly",
			zap.String("event_id", event.ID), zap.Error(err))
	}
	return s.repo.Insert(ctx, event)
}

// MultiSink fans one event out to several sinks. Every sink sees the event
// even when an earlier one fails.
type MultiSink struct {
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Record(ctx context.Context, event model.ScanEvent) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Record(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CreateFlushFunc creates a flush function for the Redis event buffer.
func CreateFlushFunc(repo repository.ScanEventRepository) cache.FlushFunc {
	return func(ctx context.Context, events []model.ScanEvent) error {
		return repo.BatchInsert(ctx, events)
	}
}

var (
	_ Sink = (*StoreSink)(nil)
	_ Sink = (*MultiSink)(nil)
)
