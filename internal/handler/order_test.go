package handler_test

import (
	"net/http"
	"testing"

	"orderscan-api/internal/model"
	"orderscan-api/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderHandler_ToggleSelectsWithPackingUnit(t *testing.T) {
	env := newTestEnv(t)

	code, resp := env.do(t, http.MethodPost, "/api/v1/orders/cust-1/items/p-cushion/toggle", nil)
	require.Equal(t, http.StatusOK, code)

	var line service.LineState
	decodeData(t, resp, &line)
	assert.True(t, line.Selected)
	assert.Equal(t, 6, line.Quantity)

	code, resp = env.do(t, http.MethodPost, "/api/v1/orders/cust-1/items/p-cushion/toggle", nil)
	require.Equal(t, http.StatusOK, code)
	decodeData(t, resp, &line)
	assert.False(t, line.Selected)
	assert.Equal(t, 6, line.Quantity)
}

func TestOrderHandler_ToggleUnknownProduct(t *testing.T) {
	env := newTestEnv(t)

	code, resp := env.do(t, http.MethodPost, "/api/v1/orders/cust-1/items/p-missing/toggle", nil)
	assert.Equal(t, http.StatusNotFound, code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestOrderHandler_SetQuantityRoundsToPackingUnit(t *testing.T) {
	env := newTestEnv(t)

	code, resp := env.do(t, http.MethodPut, "/api/v1/orders/cust-1/items/p-cushion/quantity", map[string]int{
		"quantity": 8,
	})
	require.Equal(t, http.StatusOK, code)

	var line service.LineState
	decodeData(t, resp, &line)
	assert.Equal(t, 12, line.Quantity)
}

func TestOrderHandler_SetQuantityRejectsNegative(t *testing.T) {
	env := newTestEnv(t)

	code, resp := env.do(t, http.MethodPut, "/api/v1/orders/cust-1/items/p-cushion/quantity", map[string]int{
		"quantity": -3,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, resp.Error)
}

func TestOrderHandler_IncrementAndDecrement(t *testing.T) {
	env := newTestEnv(t)

	code, resp := env.do(t, http.MethodPost, "/api/v1/orders/cust-1/items/p-vase/toggle", nil)
	require.Equal(t, http.StatusOK, code)

	var line service.LineState
	decodeData(t, resp, &line)
	assert.Equal(t, 2, line.Quantity)

	code, resp = env.do(t, http.MethodPost, "/api/v1/orders/cust-1/items/p-vase/increment", nil)
	require.Equal(t, http.StatusOK, code)
	decodeData(t, resp, &line)
	assert.Equal(t, 4, line.Quantity)
	assert.True(t, line.Changed)

	code, resp = env.do(t, http.MethodPost, "/api/v1/orders/cust-1/items/p-vase/decrement", nil)
	require.Equal(t, http.StatusOK, code)
	decodeData(t, resp, &line)
	assert.Equal(t, 2, line.Quantity)
	assert.True(t, line.Changed)

	// Floor is one packing unit.
	code, resp = env.do(t, http.MethodPost, "/api/v1/orders/cust-1/items/p-vase/decrement", nil)
	require.Equal(t, http.StatusOK, code)
	decodeData(t, resp, &line)
	assert.Equal(t, 2, line.Quantity)
	assert.False(t, line.Changed)
}

func TestOrderHandler_GetOrderTotals(t *testing.T) {
	env := newTestEnv(t)

	_, _ = env.do(t, http.MethodPost, "/api/v1/orders/cust-1/items/p-cushion/toggle", nil)
	_, _ = env.do(t, http.MethodPost, "/api/v1/orders/cust-1/items/p-throw/toggle", nil)

	code, resp := env.do(t, http.MethodGet, "/api/v1/orders/cust-1", nil)
	require.Equal(t, http.StatusOK, code)

	var order model.Order
	decodeData(t, resp, &order)
	assert.Equal(t, "cust-1", order.CustomerID)
	require.Len(t, order.Lines, 2)
	assert.Equal(t, "ELV-CUSH-001", order.Lines[0].SKU)
	assert.Equal(t, "ELV-THRW-010", order.Lines[1].SKU)
	assert.Equal(t, 10, order.TotalUnits)
	// 6 x 24.50 + 4 x 39.95
	assert.Equal(t, "306.80", order.Total.StringFixed(2))
}

func TestOrderHandler_GetOrderEmpty(t *testing.T) {
	env := newTestEnv(t)

	code, resp := env.do(t, http.MethodGet, "/api/v1/orders/cust-new", nil)
	require.Equal(t, http.StatusOK, code)

	var order model.Order
	decodeData(t, resp, &order)
	assert.Empty(t, order.Lines)
	assert.Equal(t, 0, order.TotalUnits)
}

func TestOrderHandler_Clear(t *testing.T) {
	env := newTestEnv(t)

	_, _ = env.do(t, http.MethodPost, "/api/v1/orders/cust-1/items/p-cushion/toggle", nil)

	code, resp := env.do(t, http.MethodPost, "/api/v1/orders/cust-1/clear", nil)
	require.Equal(t, http.StatusOK, code)

	var status map[string]string
	decodeData(t, resp, &status)
	assert.Equal(t, "cleared", status["status"])

	code, resp = env.do(t, http.MethodGet, "/api/v1/orders/cust-1", nil)
	require.Equal(t, http.StatusOK, code)

	var order model.Order
	decodeData(t, resp, &order)
	assert.Empty(t, order.Lines)
}
