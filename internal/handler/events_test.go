package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"orderscan-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedEvents(t *testing.T, env *testEnv, n int) {
	t.Helper()
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		err := env.eventRepo.Insert(context.Background(), model.ScanEvent{
			ID:         fmt.Sprintf("evt-%03d", i),
			Barcode:    fmt.Sprintf("ELV-CUSH-%03d", i),
			Success:    true,
			Outcome:    model.OutcomeFoundInView,
			BrandID:    "elvang",
			CustomerID: "cust-1",
			ScannedAt:  base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
}

func TestEventsHandler_ListNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	seedEvents(t, env, 3)

	code, resp := env.do(t, http.MethodGet, "/api/v1/events", nil)
	require.Equal(t, http.StatusOK, code)

	var events []model.ScanEvent
	decodeData(t, resp, &events)
	require.Len(t, events, 3)
	assert.Equal(t, "evt-002", events[0].ID)
	assert.Equal(t, "evt-000", events[2].ID)

	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(3), resp.Meta.Total)
}

func TestEventsHandler_Paginates(t *testing.T) {
	env := newTestEnv(t)
	seedEvents(t, env, 5)

	code, resp := env.do(t, http.MethodGet, "/api/v1/events?page=2&limit=2", nil)
	require.Equal(t, http.StatusOK, code)

	var events []model.ScanEvent
	decodeData(t, resp, &events)
	require.Len(t, events, 2)
	assert.Equal(t, "evt-002", events[0].ID)
	assert.Equal(t, "evt-001", events[1].ID)

	require.NotNil(t, resp.Meta)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 2, resp.Meta.Limit)
	assert.Equal(t, int64(5), resp.Meta.Total)
}

func TestEventsHandler_EmptyLog(t *testing.T) {
	env := newTestEnv(t)

	code, resp := env.do(t, http.MethodGet, "/api/v1/events", nil)
	require.Equal(t, http.StatusOK, code)

	var events []model.ScanEvent
	decodeData(t, resp, &events)
	assert.Empty(t, events)
}
