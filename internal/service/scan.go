package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"orderscan-api/internal/model"
	"orderscan-api/internal/scanner"
	"orderscan-api/pkg/uid"

	"go.uber.org/zap"
)

const (
	// bannerAutoDismissMs is how long terminals show a success banner.
	bannerAutoDismissMs = 3000

	// sessionSweepInterval is how often idle sessions are evicted.
	sessionSweepInterval = time.Minute

	lookupErrorMessage = "Error scanning barcode. Please try again."
)

var (
	// ErrSessionNotFound is returned for unknown or expired session ids.
	ErrSessionNotFound = fmt.Errorf("session not found")

	// ErrInvalidBarcode is returned when a directly submitted barcode falls
	// outside the configured length bounds.
	ErrInvalidBarcode = fmt.Errorf("barcode length out of bounds")

	// ErrInvalidMode is returned for unknown input-mode names.
	ErrInvalidMode = fmt.Errorf("invalid input mode")
)

// ScanConfig holds the scan pipeline parameters.
type ScanConfig struct {
	// Timeout is the inter-keystroke timeout of the scan buffer.
	Timeout   time.Duration
	MinLength int
	MaxLength int

	// SessionTTL evicts sessions with no activity for this long.
	// Default: 30 minutes
	SessionTTL time.Duration
}

// Feedback is the transient user feedback a terminal renders for one scan:
// a self-dismissing banner for matches, a blocking alert otherwise.
type Feedback struct {
	Kind          string `json:"kind"`
	Message       string `json:"message"`
	AutoDismissMs int    `json:"auto_dismiss_ms,omitempty"`
	Blocking      bool   `json:"blocking,omitempty"`
}

func bannerFeedback(message string) Feedback {
	return Feedback{Kind: "banner", Message: message, AutoDismissMs: bannerAutoDismissMs}
}

func alertFeedback(message string) Feedback {
	return Feedback{Kind: "alert", Message: message, Blocking: true}
}

// ScanResult is the outcome of one resolved barcode.
type ScanResult struct {
	Seq         uint64         `json:"seq"`
	Barcode     string         `json:"barcode"`
	Outcome     string         `json:"outcome"`
	Product     *model.Product `json:"product,omitempty"`
	Quantity    int            `json:"quantity,omitempty"`
	SearchQuery string         `json:"search_query,omitempty"`
	Feedback    Feedback       `json:"feedback"`
}

// SessionInfo is the externally visible state of a scan session.
type SessionInfo struct {
	ID          string    `json:"id"`
	CustomerID  string    `json:"customer_id"`
	BrandID     string    `json:"brand_id"`
	Mode        string    `json:"mode"`
	SearchQuery string    `json:"search_query"`
	Pending     int       `json:"pending"`
	CreatedAt   time.Time `json:"created_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

// scanSession is one terminal's scan pipeline: a key buffer plus the brand
// view it scans against. The session mutex is the single scan slot, barcodes
// resolve strictly one at a time.
type scanSession struct {
	id         string
	customerID string
	brandID    string
	createdAt  time.Time

	mu          sync.Mutex
	buffer      *scanner.Buffer
	searchQuery string
	lastSeen    time.Time
	seq         uint64

	// completed collects codes emitted by the buffer until the feeding call
	// drains them. Guarded by codesMu, not mu: the buffer callback runs while
	// the feeder holds mu.
	codesMu   sync.Mutex
	completed []string
}

func (s *scanSession) drainCompleted() []string {
	s.codesMu.Lock()
	defer s.codesMu.Unlock()
	codes := s.completed
	s.completed = nil
	return codes
}

// ScanService owns the scan sessions and runs completed barcodes through
// resolution and order reconciliation.
type ScanService struct {
	catalog  *CatalogService
	orders   *OrderService
	resolver *scanner.Resolver
	cfg      ScanConfig
	logger   *zap.Logger

	mu       sync.Mutex
	sessions map[string]*scanSession

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewScanService creates the scan service and starts the idle-session
// janitor.
func NewScanService(catalog *CatalogService, orders *OrderService, resolver *scanner.Resolver, cfg ScanConfig, logger *zap.Logger) *ScanService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}

	s := &ScanService{
		catalog:  catalog,
		orders:   orders,
		resolver: resolver,
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*scanSession),
		stopCh:   make(chan struct{}),
	}

	go s.janitor()
	return s
}

// CreateSession opens a scan session for one terminal browsing one brand on
// behalf of one customer.
func (s *ScanService) CreateSession(customerID, brandID string) (*SessionInfo, error) {
	customerID = strings.TrimSpace(customerID)
	brandID = strings.TrimSpace(brandID)
	if customerID == "" || brandID == "" {
		return nil, fmt.Errorf("customer_id and brand_id are required")
	}

	sess := &scanSession{
		id:         uid.New(),
		customerID: customerID,
		brandID:    brandID,
		createdAt:  time.Now(),
		lastSeen:   time.Now(),
	}
	sess.buffer = scanner.NewBuffer(scanner.BufferConfig{
		Timeout:   s.cfg.Timeout,
		MinLength: s.cfg.MinLength,
		MaxLength: s.cfg.MaxLength,
	}, func(code string) {
		sess.codesMu.Lock()
		sess.completed = append(sess.completed, code)
		sess.codesMu.Unlock()
	})

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.logger.Info("scan session opened",
		zap.String("session_id", sess.id),
		zap.String("customer_id", customerID),
		zap.String("brand_id", brandID))

	return s.sessionInfo(sess), nil
}

func (s *ScanService) session(id string) (*scanSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// sessionInfo snapshots a session. Callers must not hold sess.mu.
func (s *ScanService) sessionInfo(sess *scanSession) *SessionInfo {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return &SessionInfo{
		ID:          sess.id,
		CustomerID:  sess.customerID,
		BrandID:     sess.brandID,
		Mode:        modeName(sess.buffer.Mode()),
		SearchQuery: sess.searchQuery,
		Pending:     sess.buffer.Pending(),
		CreatedAt:   sess.createdAt,
		LastSeenAt:  sess.lastSeen,
	}
}

// GetSession returns the session's current state.
func (s *ScanService) GetSession(id string) (*SessionInfo, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(sess), nil
}

// CloseSession destroys a session and its buffer.
func (s *ScanService) CloseSession(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	sess.buffer.Close()
	s.logger.Info("scan session closed", zap.String("session_id", id))
	return nil
}

// SessionCount returns the number of open sessions.
func (s *ScanService) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// FeedKeys pushes raw key events through the session's buffer and resolves
// every barcode the batch completes, in order. Results are returned to the
// caller; the serial reader logs them instead.
func (s *ScanService) FeedKeys(ctx context.Context, sessionID string, events []scanner.KeyEvent) ([]ScanResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastSeen = time.Now()

	for _, ev := range events {
		sess.buffer.Handle(ev)
	}

	codes := sess.drainCompleted()
	results := make([]ScanResult, 0, len(codes))
	for _, code := range codes {
		results = append(results, s.resolveLocked(ctx, sess, code))
	}
	return results, nil
}

// Scan resolves one already-assembled barcode, as submitted by camera
// scanners or the scan API. The same length bounds apply as for buffered
// input.
func (s *ScanService) Scan(ctx context.Context, sessionID, barcode string) (*ScanResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	code := strings.TrimSpace(barcode)
	if len(code) < s.minLength() || len(code) > s.maxLength() {
		return nil, ErrInvalidBarcode
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastSeen = time.Now()

	result := s.resolveLocked(ctx, sess, code)
	return &result, nil
}

func (s *ScanService) minLength() int {
	if s.cfg.MinLength > 0 {
		return s.cfg.MinLength
	}
	return 8
}

func (s *ScanService) maxLength() int {
	if s.cfg.MaxLength > 0 {
		return s.cfg.MaxLength
	}
	return 20
}

// resolveLocked classifies one barcode and applies it to the order. Caller
// holds sess.mu, so scans for a session never overlap and a stale lookup can
// never clobber a newer scan's state.
func (s *ScanService) resolveLocked(ctx context.Context, sess *scanSession, code string) ScanResult {
	sess.seq++
	result := ScanResult{Seq: sess.seq, Barcode: code}

	visible, err := s.catalog.VisibleProducts(ctx, sess.brandID, sess.searchQuery)
	if err != nil {
		s.logger.Error("catalog unavailable during scan",
			zap.String("session_id", sess.id), zap.Error(err))
		result.Outcome = model.OutcomeLookupError
		result.Feedback = alertFeedback(lookupErrorMessage)
		return result
	}

	res, err := s.resolver.Resolve(ctx, code, visible, sess.brandID, sess.customerID, sess.id)
	if err != nil {
		s.logger.Error("barcode lookup failed",
			zap.String("session_id", sess.id),
			zap.String("barcode", code),
			zap.Error(err))
		result.Outcome = model.OutcomeLookupError
		result.Feedback = alertFeedback(lookupErrorMessage)
		return result
	}

	result.Outcome = res.Outcome
	result.Product = res.Product

	switch res.Outcome {
	case model.OutcomeFoundInView, model.OutcomeFoundViaLookup:
		qty, err := s.orders.ApplyScan(ctx, sess.customerID, *res.Product, res.Outcome)
		if err != nil {
			s.logger.Error("failed to apply scan to order",
				zap.String("session_id", sess.id),
				zap.String("product_id", res.Product.ID),
				zap.Error(err))
			result.Feedback = alertFeedback("Error updating order. Please try again.")
			return result
		}
		result.Quantity = qty
		if res.Outcome == model.OutcomeFoundViaLookup {
			// Surface the product in the session's view so the next scan of
			// the same code matches locally.
			sess.searchQuery = res.Product.SKU
			result.SearchQuery = res.Product.SKU
		}
		result.Feedback = bannerFeedback(fmt.Sprintf("%s added to order (quantity %d)", res.Product.Name, qty))

	case model.OutcomeWrongBrand:
		result.Feedback = alertFeedback(fmt.Sprintf("Scanned product belongs to brand %q.", res.Product.BrandID))

	case model.OutcomeNotFound:
		result.Feedback = alertFeedback(fmt.Sprintf("No product found for barcode %q.", code))
	}

	return result
}

// SetSearch updates the session's catalog filter, which defines the list
// local matching runs against.
func (s *ScanService) SetSearch(sessionID, query string) (*SessionInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	sess.searchQuery = strings.TrimSpace(query)
	sess.lastSeen = time.Now()
	sess.mu.Unlock()

	return s.sessionInfo(sess), nil
}

// SetMode switches the session between scanner input and text entry. In text
// entry the buffer ignores keystrokes, so typing can never assemble into a
// phantom scan.
func (s *ScanService) SetMode(sessionID, mode string) (*SessionInfo, error) {
	m, err := parseMode(mode)
	if err != nil {
		return nil, err
	}

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	sess.buffer.SetMode(m)
	sess.lastSeen = time.Now()
	sess.mu.Unlock()

	return s.sessionInfo(sess), nil
}

func parseMode(mode string) (scanner.Mode, error) {
	switch mode {
	case "armed":
		return scanner.ModeArmed, nil
	case "text_entry":
		return scanner.ModeTextEntry, nil
	default:
		return scanner.ModeArmed, ErrInvalidMode
	}
}

func modeName(m scanner.Mode) string {
	if m == scanner.ModeTextEntry {
		return "text_entry"
	}
	return "armed"
}

// janitor evicts sessions with no activity past the TTL.
func (s *ScanService) janitor() {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictIdle()
		case <-s.stopCh:
			return
		}
	}
}

func (s *ScanService) evictIdle() {
	cutoff := time.Now().Add(-s.cfg.SessionTTL)

	s.mu.Lock()
	var expired []*scanSession
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := sess.lastSeen.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			expired = append(expired, sess)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.buffer.Close()
		s.logger.Info("idle scan session evicted",
			zap.String("session_id", sess.id),
			zap.String("customer_id", sess.customerID))
	}
}

// Close stops the janitor and destroys all sessions.
func (s *ScanService) Close() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	s.mu.Lock()
	sessions := make([]*scanSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessions = make(map[string]*scanSession)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.buffer.Close()
	}
}
