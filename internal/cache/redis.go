package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"orderscan-api/internal/model"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Buffer configuration
const (
	MaxBatchSize       = 100
	FlushTimeout       = 30 * time.Second
	StaleDataThreshold = 1 * time.Hour
	CleanupInterval    = 5 * time.Minute
)

// FlushFunc is called to persist buffered scan events to the event store.
type FlushFunc func(ctx context.Context, events []model.ScanEvent) error

// RedisEventBuffer absorbs scan-event writes in Redis and flushes them to
// the event store in batches. Scan bursts at the terminal never wait on the
// store this way. Events are keyed by their unique ID in a hash, with a
// pending set tracking what still needs flushing; since events are
// append-only and immutable, a flushed ID can be removed unconditionally.
type RedisEventBuffer struct {
	client        *redis.Client
	flushFunc     FlushFunc
	flushTicker   *time.Ticker
	cleanupTicker *time.Ticker
	stopFlush     chan struct{}
	flushDone     chan struct{}
	stopOnce      sync.Once
	keyPrefix     string
	logger        *zap.Logger
}

// RedisBufferConfig holds configuration for the Redis event buffer.
type RedisBufferConfig struct {
	Addr          string
	Password      string
	DB            int
	FlushInterval time.Duration
	KeyPrefix     string
}

// NewRedisEventBuffer creates a Redis-backed scan event buffer.
func NewRedisEventBuffer(cfg RedisBufferConfig, flushFunc FlushFunc, logger *zap.Logger) (*RedisEventBuffer, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20,
		MinIdleConns: 5,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "orderscan:events"
	}

	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 30 * time.Second
	}

	b := &RedisEventBuffer{
		client:        client,
		flushFunc:     flushFunc,
		flushTicker:   time.NewTicker(flushInterval),
		cleanupTicker: time.NewTicker(CleanupInterval),
		stopFlush:     make(chan struct{}),
		flushDone:     make(chan struct{}),
		keyPrefix:     keyPrefix,
		logger:        logger,
	}

	go b.backgroundFlush()
	go b.backgroundCleanup()

	logger.Info("redis event buffer started",
		zap.Int("db", cfg.DB),
		zap.String("prefix", keyPrefix),
		zap.Duration("flush_interval", flushInterval),
		zap.Int("batch_size", MaxBatchSize))
	return b, nil
}

func (b *RedisEventBuffer) bufferKey() string {
	return b.keyPrefix + ":buffer"
}

func (b *RedisEventBuffer) pendingKey() string {
	return b.keyPrefix + ":pending"
}

// Add buffers one scan event in Redis.
func (b *RedisEventBuffer) Add(ctx context.Context, event model.ScanEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	pipe := b.client.Pipeline()
	pipe.HSet(ctx, b.bufferKey(), event.ID, data)
	pipe.SAdd(ctx, b.pendingKey(), event.ID)
	_, err = pipe.Exec(ctx)
	return err
}

// Count returns the number of pending events.
func (b *RedisEventBuffer) Count(ctx context.Context) (int64, error) {
	return b.client.SCard(ctx, b.pendingKey()).Result()
}

// FlushBatch writes up to MaxBatchSize events to the event store and removes
// them from the buffer.
func (b *RedisEventBuffer) FlushBatch(ctx context.Context) (int, error) {
	ids, err := b.client.SRandMemberN(ctx, b.pendingKey(), MaxBatchSize).Result()
	if err != nil {
		return 0, err
	}

	if len(ids) == 0 {
		return 0, nil
	}

	events := make([]model.ScanEvent, 0, len(ids))
	flushedIDs := make([]string, 0, len(ids))

	for _, id := range ids {
		data, err := b.client.HGet(ctx, b.bufferKey(), id).Bytes()
		if err == redis.Nil {
			b.client.SRem(ctx, b.pendingKey(), id)
			continue
		}
		if err != nil {
			b.logger.Warn("failed to read buffered event", zap.String("event_id", id), zap.Error(err))
			continue
		}

		var ev model.ScanEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			b.logger.Warn("dropping undecodable buffered event", zap.String("event_id", id), zap.Error(err))
			b.client.HDel(ctx, b.bufferKey(), id)
			b.client.SRem(ctx, b.pendingKey(), id)
			continue
		}
		events = append(events, ev)
		flushedIDs = append(flushedIDs, id)
	}

	if len(events) == 0 {
		return 0, nil
	}

	if err := b.flushFunc(ctx, events); err != nil {
		b.logger.Warn("event flush failed", zap.Int("events", len(events)), zap.Error(err))
		return 0, err
	}

	// Events are immutable once buffered, so no compare-and-delete is needed.
	pipe := b.client.Pipeline()
	for _, id := range flushedIDs {
		pipe.HDel(ctx, b.bufferKey(), id)
		pipe.SRem(ctx, b.pendingKey(), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		b.logger.Warn("failed to clear flushed events from redis", zap.Error(err))
	}

	b.logger.Debug("flushed scan events", zap.Int("count", len(events)))
	return len(events), nil
}

// Flush writes one batch of buffered events to the event store.
func (b *RedisEventBuffer) Flush(ctx context.Context) error {
	_, err := b.FlushBatch(ctx)
	return err
}

// CleanupStale removes buffered events older than StaleDataThreshold. These
// only accumulate when the event store has been unreachable for a long time.
func (b *RedisEventBuffer) CleanupStale(ctx context.Context) (int, error) {
	ids, err := b.client.SMembers(ctx, b.pendingKey()).Result()
	if err != nil {
		return 0, err
	}

	if len(ids) == 0 {
		return 0, nil
	}

	staleThreshold := time.Now().Add(-StaleDataThreshold)
	staleCount := 0
	pipe := b.client.Pipeline()

	for _, id := range ids {
		data, err := b.client.HGet(ctx, b.bufferKey(), id).Bytes()
		if err == redis.Nil {
			pipe.SRem(ctx, b.pendingKey(), id)
			continue
		}
		if err != nil {
			continue
		}

		var ev model.ScanEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			pipe.HDel(ctx, b.bufferKey(), id)
			pipe.SRem(ctx, b.pendingKey(), id)
			staleCount++
			continue
		}

		if ev.ScannedAt.Before(staleThreshold) {
			pipe.HDel(ctx, b.bufferKey(), id)
			pipe.SRem(ctx, b.pendingKey(), id)
			staleCount++
		}
	}

	if staleCount > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			b.logger.Warn("stale cleanup failed", zap.Error(err))
			return 0, err
		}
		b.logger.Info("dropped stale buffered events", zap.Int("count", staleCount))
	}

	return staleCount, nil
}

func (b *RedisEventBuffer) backgroundFlush() {
	defer close(b.flushDone)
	for {
		select {
		case <-b.flushTicker.C:
			ctx, cancel := context.WithTimeout(context.Background(), FlushTimeout)
			if _, err := b.FlushBatch(ctx); err != nil {
				b.logger.Warn("background flush failed", zap.Error(err))
			}
			cancel()
		case <-b.stopFlush:
			b.logger.Info("shutdown: draining event buffer")
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			for {
				flushed, err := b.FlushBatch(ctx)
				if err != nil {
					b.logger.Warn("shutdown flush failed", zap.Error(err))
					break
				}
				if flushed == 0 {
					break
				}
			}
			cancel()
			b.logger.Info("event buffer drained")
			return
		}
	}
}

func (b *RedisEventBuffer) backgroundCleanup() {
	for {
		select {
		case <-b.cleanupTicker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			b.CleanupStale(ctx)
			cancel()
		case <-b.stopFlush:
			return
		}
	}
}

// Close stops the buffer and performs a final drain.
func (b *RedisEventBuffer) Close() error {
	b.stopOnce.Do(func() {
		b.flushTicker.Stop()
		b.cleanupTicker.Stop()
		close(b.stopFlush)
		<-b.flushDone
	})
	return b.client.Close()
}
