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

// SQLiteCatalogRepository implements CatalogRepository using SQLite.
// Thread-safe with WAL mode for high-concurrency reads.
type SQLiteCatalogRepository struct {
	db     *sql.DB
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewSQLiteCatalogRepository creates a new SQLite catalog repository.
// dbPath is the path to the SQLite database file (e.g., "./data/catalog.db")
func NewSQLiteCatalogRepository(dbPath string, logger *zap.Logger) (*SQLiteCatalogRepository, error) {
	// Open with WAL mode and other optimizations
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite connection pool settings
	db.SetMaxOpenConns(1) // SQLite only supports 1 writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0) // Keep connection alive

	if err := createCatalogTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info("catalog repository initialized", zap.String("driver", "sqlite"), zap.String("path", dbPath))
	return &SQLiteCatalogRepository{db: db, logger: logger}, nil
}

// createCatalogTables creates the products table.
func createCatalogTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		sku TEXT NOT NULL,
		ean TEXT,
		name TEXT NOT NULL DEFAULT '',
		brand_id TEXT NOT NULL,
		packing_unit INTEGER NOT NULL DEFAULT 1,
		price TEXT NOT NULL DEFAULT '0',
		updated_at DATETIME NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_products_brand_sku ON products(brand_id, sku);
	CREATE INDEX IF NOT EXISTS idx_products_sku ON products(sku);
	CREATE INDEX IF NOT EXISTS idx_products_ean ON products(ean);
	`
	_, err := db.Exec(query)
	return err
}

const catalogColumns = `id, sku, ean, name, brand_id, packing_unit, price, updated_at`

func scanProduct(row interface{ Scan(...interface{}) error }) (*model.Product, error) {
	var p model.Product
	var ean sql.NullString
	if err := row.Scan(&p.ID, &p.SKU, &ean, &p.Name, &p.BrandID, &p.PackingUnit, &p.Price, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.EAN = ean.String
	return &p, nil
}

// ListByBrand returns one page of a brand's catalog ordered by SKU.
func (r *SQLiteCatalogRepository) ListByBrand(ctx context.Context, brandID string, limit, offset int) ([]model.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `SELECT ` + catalogColumns + ` FROM products WHERE brand_id = ? ORDER BY sku LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, brandID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// CountByBrand returns the number of products in a brand's catalog.
func (r *SQLiteCatalogRepository) CountByBrand(ctx context.Context, brandID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE brand_id = ?`, brandID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

// FindByCode finds a product by exact SKU or EAN across all brands.
func (r *SQLiteCatalogRepository) FindByCode(ctx context.Context, code string) (*model.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `SELECT ` + catalogColumns + ` FROM products WHERE sku = ? OR ean = ? LIMIT 1`

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, code, code))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product by code: %w", err)
	}
	return p, nil
}

// GetByID fetches a single product by its identifier.
func (r *SQLiteCatalogRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `SELECT ` + catalogColumns + ` FROM products WHERE id = ?`

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// BatchUpsert inserts or updates catalog rows in one transaction.
func (r *SQLiteCatalogRepository) BatchUpsert(ctx context.Context, items []model.ProductImport) error {
	if len(items) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO products (id, sku, ean, name, brand_id, packing_unit, price, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			sku = excluded.sku,
			ean = excluded.ean,
			name = excluded.name,
			brand_id = excluded.brand_id,
			packing_unit = excluded.packing_unit,
			price = excluded.price,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, item := range items {
		unit := item.PackingUnit
		if unit < 1 {
			unit = 1
		}
		_, err := stmt.ExecContext(ctx, item.ID, item.SKU, nullable(item.EAN), item.Name, item.BrandID, unit, item.Price, now)
		if err != nil {
			return fmt.Errorf("failed to upsert product %s: %w", item.SKU, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// nullable maps an empty string to a SQL NULL.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// GetStats returns statistics about the catalog database.
func (r *SQLiteCatalogRepository) GetStats(ctx context.Context) (map[string]interface{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make(map[string]interface{})

	var count int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&count); err != nil {
		return nil, err
	}
	stats["total_products"] = count

	var brands int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT brand_id) FROM products").Scan(&brands); err == nil {
		stats["brands"] = brands
	}

	var lastUpdate sql.NullTime
	if err := r.db.QueryRowContext(ctx, "SELECT MAX(updated_at) FROM products").Scan(&lastUpdate); err == nil && lastUpdate.Valid {
		stats["last_update"] = lastUpdate.Time
	}

	// Database file size (approximate from page count)
	var pageCount, pageSize int64
	r.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	r.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
	stats["db_size_bytes"] = pageCount * pageSize

	return stats, nil
}

// Close closes the database connection.
func (r *SQLiteCatalogRepository) Close() error {
	return r.db.Close()
}

// Ensure SQLiteCatalogRepository implements CatalogRepository
var _ CatalogRepository = (*SQLiteCatalogRepository)(nil)
