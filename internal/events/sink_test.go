package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"orderscan-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEventRepo struct {
	inserted []model.ScanEvent
	err      error
}

func (f *fakeEventRepo) Insert(ctx context.Context, event model.ScanEvent) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, event)
	return nil
}

func (f *fakeEventRepo) BatchInsert(ctx context.Context, events []model.ScanEvent) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, events...)
	return nil
}

func (f *fakeEventRepo) List(ctx context.Context, limit, offset int) ([]model.ScanEvent, int64, error) {
	return f.inserted, int64(len(f.inserted)), nil
}

func (f *fakeEventRepo) DeleteOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	return 0, nil
}

func (f *fakeEventRepo) GetStats(ctx context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{}, nil
}

func (f *fakeEventRepo) Close() error { return nil }

type recordingSink struct {
	events []model.ScanEvent
	err    error
}

func (r *recordingSink) Record(ctx context.Context, event model.ScanEvent) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func sampleEvent() model.ScanEvent {
	return model.ScanEvent{
		ID:         "ev-001",
		Barcode:    "ELV-CUSH-001",
		Success:    true,
		Outcome:    model.OutcomeFoundInView,
		ProductID:  "p-cushion",
		BrandID:    "elvang",
		CustomerID: "cust-42",
		ScannedAt:  time.Now().UTC(),
	}
}

func TestStoreSink_RecordInsertsDirectly(t *testing.T) {
	repo := &fakeEventRepo{}
	sink := NewStoreSink(repo, zap.NewNop())

	err := sink.Record(context.Background(), sampleEvent())
	require.NoError(t, err)

	require.Len(t, repo.inserted, 1)
	assert.Equal(t, "ev-001", repo.inserted[0].ID)
}

func TestStoreSink_RecordPropagatesStoreError(t *testing.T) {
	repo := &fakeEventRepo{err: errors.New("disk full")}
	sink := NewStoreSink(repo, zap.NewNop())

	err := sink.Record(context.Background(), sampleEvent())
	assert.Error(t, err)
}

func TestMultiSink_FansOutToAllSinks(t *testing.T) {
	first := &recordingSink{}
	second := &recordingSink{}
	multi := NewMultiSink(first, second)

	err := multi.Record(context.Background(), sampleEvent())
	require.NoError(t, err)

	assert.Len(t, first.events, 1)
	assert.Len(t, second.events, 1)
}

func TestMultiSink_FailedSinkDoesNotBlockOthers(t *testing.T) {
	broken := &recordingSink{err: errors.New("broker unreachable")}
	healthy := &recordingSink{}
	multi := NewMultiSink(broken, healthy)

	err := multi.Record(context.Background(), sampleEvent())
	assert.Error(t, err)

	assert.Len(t, healthy.events, 1)
}

func TestMultiSink_EmptyIsNoOp(t *testing.T) {
	multi := NewMultiSink()
	assert.NoError(t, multi.Record(context.Background(), sampleEvent()))
}

func TestCreateFlushFunc_BatchInserts(t *testing.T) {
	repo := &fakeEventRepo{}
	flush := CreateFlushFunc(repo)

	events := []model.ScanEvent{sampleEvent(), sampleEvent()}
	require.NoError(t, flush(context.Background(), events))
	assert.Len(t, repo.inserted, 2)
}
