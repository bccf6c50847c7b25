package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"orderscan-api/internal/model"

	"go.uber.org/zap"
)

// MySQLCatalogRepository implements CatalogRepository using MySQL, sharing
// the accounts database connection.
type MySQLCatalogRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLCatalogRepository creates a new MySQL catalog repository on an
// already-open connection pool.
func NewMySQLCatalogRepository(db *sql.DB, logger *zap.Logger) (*MySQLCatalogRepository, error) {
	if err := createMySQLCatalogTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info("catalog repository initialized", zap.String("driver", "mysql"))
	return &MySQLCatalogRepository{db: db, logger: logger}, nil
}

func createMySQLCatalogTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS products (
		id VARCHAR(64) PRIMARY KEY,
		sku VARCHAR(128) NOT NULL,
		ean VARCHAR(128),
		name VARCHAR(255) NOT NULL DEFAULT '',
		brand_id VARCHAR(64) NOT NULL,
		packing_unit INT NOT NULL DEFAULT 1,
		price DECIMAL(12,2) NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL,
		UNIQUE KEY idx_products_brand_sku (brand_id, sku),
		KEY idx_products_sku (sku),
		KEY idx_products_ean (ean)
	)`
	_, err := db.Exec(query)
	return err
}

// ListByBrand returns one page of a brand's catalog ordered by SKU.
func (r *MySQLCatalogRepository) ListByBrand(ctx context.Context, brandID string, limit, offset int) ([]model.Product, error) {
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
func (r *MySQLCatalogRepository) CountByBrand(ctx context.Context, brandID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE brand_id = ?`, brandID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

// FindByCode finds a product by exact SKU or EAN across all brands.
// BINARY forces a case-sensitive match regardless of column collation.
func (r *MySQLCatalogRepository) FindByCode(ctx context.Context, code string) (*model.Product, error) {
	query := `SELECT ` + catalogColumns + ` FROM products WHERE BINARY sku = ? OR BINARY ean = ? LIMIT 1`

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
func (r *MySQLCatalogRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
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

// BatchUpsert inserts or updates catalog rows using ON DUPLICATE KEY.
func (r *MySQLCatalogRepository) BatchUpsert(ctx context.Context, items []model.ProductImport) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO products (id, sku, ean, name, brand_id, packing_unit, price, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			sku = VALUES(sku),
			ean = VALUES(ean),
			name = VALUES(name),
			brand_id = VALUES(brand_id),
			packing_unit = VALUES(packing_unit),
			price = VALUES(price),
			updated_at = VALUES(updated_at)`)
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

// GetStats returns statistics about the catalog database.
func (r *MySQLCatalogRepository) GetStats(ctx context.Context) (map[string]interface{}, error) {
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

	return stats, nil
}

// Close is a no-op; the shared MySQL pool is owned by the caller.
func (r *MySQLCatalogRepository) Close() error {
	return nil
}

// Ensure MySQLCatalogRepository implements CatalogRepository
var _ CatalogRepository = (*MySQLCatalogRepository)(nil)
