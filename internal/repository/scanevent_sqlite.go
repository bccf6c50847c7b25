package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"orderscan-api/internal/model"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteScanEventRepository implements ScanEventRepository using SQLite.
// The log is append-only; inserts with an already-seen event ID are ignored
// so buffered flushes can safely retry.
type SQLiteScanEventRepository struct {
	db     *sql.DB
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewSQLiteScanEventRepository creates a new SQLite scan event repository.
func NewSQLiteScanEventRepository(dbPath string, logger *zap.Logger) (*SQLiteScanEventRepository, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports 1 writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createScanEventTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info("scan event repository initialized", zap.String("path", dbPath))
	return &SQLiteScanEventRepository{db: db, logger: logger}, nil
}

func createScanEventTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS scan_events (
		id TEXT PRIMARY KEY,
		barcode TEXT NOT NULL,
		success INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		product_id TEXT,
		brand_id TEXT,
		customer_id TEXT,
		session_id TEXT,
		scanned_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_scan_events_scanned_at ON scan_events(scanned_at);
	CREATE INDEX IF NOT EXISTS idx_scan_events_customer ON scan_events(customer_id);
	`
	_, err := db.Exec(query)
	return err
}

const insertScanEventQuery = `
	INSERT OR IGNORE INTO scan_events (id, barcode, success, outcome, product_id, brand_id, customer_id, session_id, scanned_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Insert appends one scan event.
func (r *SQLiteScanEventRepository) Insert(ctx context.Context, event model.ScanEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, insertScanEventQuery,
		event.ID, event.Barcode, event.Success, event.Outcome,
		nullable(event.ProductID), nullable(event.BrandID),
		nullable(event.CustomerID), nullable(event.SessionID),
		event.ScannedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert scan event: %w", err)
	}
	return nil
}

// BatchInsert appends multiple scan events in one transaction.
func (r *SQLiteScanEventRepository) BatchInsert(ctx context.Context, events []model.ScanEvent) error {
	if len(events) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertScanEventQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, event := range events {
		_, err := stmt.ExecContext(ctx,
			event.ID, event.Barcode, event.Success, event.Outcome,
			nullable(event.ProductID), nullable(event.BrandID),
			nullable(event.CustomerID), nullable(event.SessionID),
			event.ScannedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to batch insert event %s: %w", event.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// List returns a page of events, newest first, plus the total count.
func (r *SQLiteScanEventRepository) List(ctx context.Context, limit, offset int) ([]model.ScanEvent, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scan_events`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count scan events: %w", err)
	}

	query := `
		SELECT id, barcode, success, outcome, product_id, brand_id, customer_id, session_id, scanned_at
		FROM scan_events
		ORDER BY scanned_at DESC, id
		LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list scan events: %w", err)
	}
	defer rows.Close()

	var events []model.ScanEvent
	for rows.Next() {
		var ev model.ScanEvent
		var productID, brandID, customerID, sessionID sql.NullString
		if err := rows.Scan(&ev.ID, &ev.Barcode, &ev.Success, &ev.Outcome,
			&productID, &brandID, &customerID, &sessionID, &ev.ScannedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan event row: %w", err)
		}
		ev.ProductID = productID.String
		ev.BrandID = brandID.String
		ev.CustomerID = customerID.String
		ev.SessionID = sessionID.String
		events = append(events, ev)
	}
	return events, total, rows.Err()
}

// DeleteOlderThan removes events older than maxAge.
func (r *SQLiteScanEventRepository) DeleteOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().UTC().Add(-maxAge)

	result, err := r.db.ExecContext(ctx, `DELETE FROM scan_events WHERE scanned_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old scan events: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		r.logger.Info("pruned scan events", zap.Int64("deleted", deleted), zap.Duration("max_age", maxAge))
	}

	return deleted, nil
}

// GetStats returns statistics about the event log.
func (r *SQLiteScanEventRepository) GetStats(ctx context.Context) (map[string]interface{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make(map[string]interface{})

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scan_events`).Scan(&total); err != nil {
		return nil, err
	}
	stats["total_events"] = total

	outcomes := make(map[string]int64)
	rows, err := r.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM scan_events GROUP BY outcome`)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var outcome string
			var count int64
			if err := rows.Scan(&outcome, &count); err == nil {
				outcomes[outcome] = count
			}
		}
	}
	stats["outcomes"] = outcomes

	var lastScan sql.NullTime
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(scanned_at) FROM scan_events`).Scan(&lastScan); err == nil && lastScan.Valid {
		stats["last_scan"] = lastScan.Time
	}

	var pageCount, pageSize int64
	r.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	r.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
	stats["db_size_bytes"] = pageCount * pageSize

	return stats, nil
}

// Close closes the database connection.
func (r *SQLiteScanEventRepository) Close() error {
	return r.db.Close()
}

// Ensure SQLiteScanEventRepository implements ScanEventRepository
var _ ScanEventRepository = (*SQLiteScanEventRepository)(nil)
