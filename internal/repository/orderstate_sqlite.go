package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// Per-customer storage keys. The two maps are stored as separate entries so
// a selection change and a quantity change can be written independently.
const (
	selectedKeyPrefix   = "ORDER_SELECTED_"
	quantitiesKeyPrefix = "ORDER_QUANTITIES_"
)

// SQLiteOrderStateRepository implements OrderStateRepository on an embedded
// SQLite key-value table. Every terminal keeps its own file, so there is no
// cross-device contention.
type SQLiteOrderStateRepository struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteOrderStateRepository creates a new SQLite order state repository.
func NewSQLiteOrderStateRepository(dbPath string, logger *zap.Logger) (*SQLiteOrderStateRepository, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports 1 writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	query := `
	CREATE TABLE IF NOT EXISTS order_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	)`
	if _, err := db.Exec(query); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info("order state repository initialized", zap.String("path", dbPath))
	return &SQLiteOrderStateRepository{db: db}, nil
}

func (r *SQLiteOrderStateRepository) load(ctx context.Context, key string, out interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM order_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(value), out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

func (r *SQLiteOrderStateRepository) save(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO order_state (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`
	if _, err := r.db.ExecContext(ctx, query, key, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// LoadSelected returns the persisted selection map, empty when absent.
func (r *SQLiteOrderStateRepository) LoadSelected(ctx context.Context, customerID string) (map[string]bool, error) {
	selected := make(map[string]bool)
	if err := r.load(ctx, selectedKeyPrefix+customerID, &selected); err != nil {
		return nil, err
	}
	return selected, nil
}

// LoadQuantities returns the persisted quantity map, empty when absent.
func (r *SQLiteOrderStateRepository) LoadQuantities(ctx context.Context, customerID string) (map[string]int, error) {
	quantities := make(map[string]int)
	if err := r.load(ctx, quantitiesKeyPrefix+customerID, &quantities); err != nil {
		return nil, err
	}
	return quantities, nil
}

// SaveSelected overwrites the customer's selection map.
func (r *SQLiteOrderStateRepository) SaveSelected(ctx context.Context, customerID string, selected map[string]bool) error {
	return r.save(ctx, selectedKeyPrefix+customerID, selected)
}

// SaveQuantities overwrites the customer's quantity map.
func (r *SQLiteOrderStateRepository) SaveQuantities(ctx context.Context, customerID string, quantities map[string]int) error {
	return r.save(ctx, quantitiesKeyPrefix+customerID, quantities)
}

// Delete removes both entries for the customer.
func (r *SQLiteOrderStateRepository) Delete(ctx context.Context, customerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `DELETE FROM order_state WHERE key IN (?, ?)`
	if _, err := r.db.ExecContext(ctx, query, selectedKeyPrefix+customerID, quantitiesKeyPrefix+customerID); err != nil {
		return fmt.Errorf("failed to delete order state: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *SQLiteOrderStateRepository) Close() error {
	return r.db.Close()
}

// Ensure SQLiteOrderStateRepository implements OrderStateRepository
var _ OrderStateRepository = (*SQLiteOrderStateRepository)(nil)
