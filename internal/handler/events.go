package handler

import (
	"net/http"
	"strconv"

	"orderscan-api/internal/repository"
	"orderscan-api/pkg/apierror"
	"orderscan-api/pkg/response"
)

// EventsHandler handles scan event log HTTP requests.
type EventsHandler struct {
	eventRepo repository.ScanEventRepository
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(eventRepo repository.ScanEventRepository) *EventsHandler {
	return &EventsHandler{
		eventRepo: eventRepo,
	}
}

// ListEvents handles GET /api/v1/events
func (h *EventsHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if h.eventRepo == nil {
		response.Error(w, apierror.ServiceUnavailable("event store not configured"))
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := (page - 1) * limit

	events, total, err := h.eventRepo.List(r.Context(), limit, offset)
	if err != nil {
		response.Error(w, apierror.InternalError("failed to list events"))
		return
	}

	response.JSONWithMeta(w, http.StatusOK, events, page, limit, total)
}
