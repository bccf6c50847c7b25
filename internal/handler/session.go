package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"orderscan-api/internal/scanner"
	"orderscan-api/internal/service"
	"orderscan-api/pkg/apierror"
	"orderscan-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// SessionHandler handles scan session HTTP requests.
type SessionHandler struct {
	scanService *service.ScanService
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(scanService *service.ScanService) *SessionHandler {
	return &SessionHandler{
		scanService: scanService,
	}
}

// CreateSessionRequest represents the request body for session creation.
type CreateSessionRequest struct {
	CustomerID string `json:"customer_id"`
	BrandID    string `json:"brand_id"`
}

// CreateSession handles POST /api/v1/sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	info, err := h.scanService.CreateSession(req.CustomerID, req.BrandID)
	if err != nil {
		response.Error(w, apierror.BadRequest(err.Error()))
		return
	}

	response.Created(w, info)
}

// GetSession handles GET /api/v1/sessions/{session_id}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	info, err := h.scanService.GetSession(sessionID)
	if err != nil {
		response.Error(w, scanError(err))
		return
	}

	response.OK(w, info)
}

// CloseSession handles DELETE /api/v1/sessions/{session_id}
func (h *SessionHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	if err := h.scanService.CloseSession(sessionID); err != nil {
		response.Error(w, scanError(err))
		return
	}

	response.OK(w, map[string]string{"status": "closed"})
}

// KeyEventRequest is one keystroke in a FeedKeys request. Char carries a
// printable character; Key names a control key ("enter"). Exactly one of
// the two must be set.
type KeyEventRequest struct {
	Char string `json:"char,omitempty"`
	Key  string `json:"key,omitempty"`
	TS   int64  `json:"ts,omitempty"` // unix milliseconds, 0 means now
}

// FeedKeysRequest represents the request body for feeding keystrokes.
type FeedKeysRequest struct {
	Events []KeyEventRequest `json:"events"`
}

// FeedKeysResponse represents the response for a keystroke batch.
type FeedKeysResponse struct {
	Results []service.ScanResult `json:"results"`
	Count   int                  `json:"count"`
}

// FeedKeys handles POST /api/v1/sessions/{session_id}/keys
func (h *SessionHandler) FeedKeys(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	var req FeedKeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if len(req.Events) == 0 {
		response.Error(w, apierror.BadRequest("events is required"))
		return
	}

	events := make([]scanner.KeyEvent, 0, len(req.Events))
	for _, ev := range req.Events {
		converted, err := toKeyEvent(ev)
		if err != nil {
			response.Error(w, apierror.BadRequest(err.Error()))
			return
		}
		events = append(events, converted)
	}

	results, err := h.scanService.FeedKeys(r.Context(), sessionID, events)
	if err != nil {
		response.Error(w, scanError(err))
		return
	}

	if results == nil {
		results = []service.ScanResult{}
	}

	response.OK(w, FeedKeysResponse{
		Results: results,
		Count:   len(results),
	})
}

func toKeyEvent(ev KeyEventRequest) (scanner.KeyEvent, error) {
	var ts time.Time
	if ev.TS > 0 {
		ts = time.UnixMilli(ev.TS)
	}

	if ev.Key != "" {
		if ev.Key != "enter" {
			return scanner.KeyEvent{}, errors.New("unknown key: " + ev.Key)
		}
		return scanner.KeyEvent{Key: scanner.KeyEnter, Time: ts}, nil
	}

	runes := []rune(ev.Char)
	if len(runes) != 1 {
		return scanner.KeyEvent{}, errors.New("event requires a single char or a key")
	}
	return scanner.KeyEvent{Rune: runes[0], Time: ts}, nil
}

// ScanRequest represents the request body for resolving a complete barcode.
type ScanRequest struct {
	Barcode string `json:"barcode"`
}

// Scan handles POST /api/v1/sessions/{session_id}/scan
func (h *SessionHandler) Scan(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	result, err := h.scanService.Scan(r.Context(), sessionID, req.Barcode)
	if err != nil {
		response.Error(w, scanError(err))
		return
	}

	response.OK(w, result)
}

// SearchRequest represents the request body for setting the catalog filter.
type SearchRequest struct {
	Query string `json:"query"`
}

// SetSearch handles PUT /api/v1/sessions/{session_id}/search
func (h *SessionHandler) SetSearch(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	info, err := h.scanService.SetSearch(sessionID, req.Query)
	if err != nil {
		response.Error(w, scanError(err))
		return
	}

	response.OK(w, info)
}

// ModeRequest represents the request body for switching the input mode.
type ModeRequest struct {
	Mode string `json:"mode"`
}

// SetMode handles PUT /api/v1/sessions/{session_id}/mode
func (h *SessionHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	var req ModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	info, err := h.scanService.SetMode(sessionID, req.Mode)
	if err != nil {
		response.Error(w, scanError(err))
		return
	}

	response.OK(w, info)
}

// scanError maps scan service errors onto API errors.
func scanError(err error) error {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return apierror.NotFound("session not found")
	case errors.Is(err, service.ErrInvalidBarcode):
		return apierror.BadRequest(err.Error())
	case errors.Is(err, service.ErrInvalidMode):
		return apierror.BadRequest(err.Error())
	default:
		return err
	}
}
