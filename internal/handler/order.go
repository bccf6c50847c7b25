package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"orderscan-api/internal/service"
	"orderscan-api/pkg/apierror"
	"orderscan-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// OrderHandler handles order reconciliation HTTP requests.
type OrderHandler struct {
	orderService *service.OrderService
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// GetOrder handles GET /api/v1/orders/{customer_id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customer_id")
	if customerID == "" {
		response.Error(w, apierror.BadRequest("customer_id is required"))
		return
	}

	order, err := h.orderService.Order(r.Context(), customerID)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, order)
}

// Toggle handles POST /api/v1/orders/{customer_id}/items/{product_id}/toggle
func (h *OrderHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customer_id")
	productID := chi.URLParam(r, "product_id")

	line, err := h.orderService.Toggle(r.Context(), customerID, productID)
	if err != nil {
		response.Error(w, orderError(err))
		return
	}

	response.OK(w, line)
}

// QuantityRequest represents the request body for setting a line quantity.
type QuantityRequest struct {
	Quantity int `json:"quantity"`
}

// SetQuantity handles PUT /api/v1/orders/{customer_id}/items/{product_id}/quantity
func (h *OrderHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customer_id")
	productID := chi.URLParam(r, "product_id")

	var req QuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if req.Quantity < 0 {
		response.Error(w, apierror.BadRequest("quantity must not be negative"))
		return
	}

	line, err := h.orderService.SetQuantity(r.Context(), customerID, productID, req.Quantity)
	if err != nil {
		response.Error(w, orderError(err))
		return
	}

	response.OK(w, line)
}

// Increment handles POST /api/v1/orders/{customer_id}/items/{product_id}/increment
func (h *OrderHandler) Increment(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customer_id")
	productID := chi.URLParam(r, "product_id")

	line, err := h.orderService.Increment(r.Context(), customerID, productID)
	if err != nil {
		response.Error(w, orderError(err))
		return
	}

	response.OK(w, line)
}

// Decrement handles POST /api/v1/orders/{customer_id}/items/{product_id}/decrement
func (h *OrderHandler) Decrement(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customer_id")
	productID := chi.URLParam(r, "product_id")

	line, err := h.orderService.Decrement(r.Context(), customerID, productID)
	if err != nil {
		response.Error(w, orderError(err))
		return
	}

	response.OK(w, line)
}

// Clear handles POST /api/v1/orders/{customer_id}/clear
func (h *OrderHandler) Clear(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customer_id")
	if customerID == "" {
		response.Error(w, apierror.BadRequest("customer_id is required"))
		return
	}

	if err := h.orderService.Clear(r.Context(), customerID); err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, map[string]string{"status": "cleared"})
}

// orderError maps order service errors onto API errors.
func orderError(err error) error {
	if errors.Is(err, service.ErrProductNotFound) {
		return apierror.NotFound("product not found")
	}
	return err
}
