package repository

import (
	"context"
	"time"

	"orderscan-api/internal/model"
)

// CatalogRepository defines product catalog data access methods.
type CatalogRepository interface {
	// ListByBrand returns one page of a brand's catalog ordered by SKU.
	ListByBrand(ctx context.Context, brandID string, limit, offset int) ([]model.Product, error)

	// CountByBrand returns the number of products in a brand's catalog.
	CountByBrand(ctx context.Context, brandID string) (int64, error)

	// FindByCode finds the product whose SKU or EAN equals code, across all
	// brands. The match is case-sensitive and exact. Returns (nil, nil) when
	// nothing matches.
	FindByCode(ctx context.Context, code string) (*model.Product, error)

	// GetByID fetches a single product by its identifier.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// BatchUpsert inserts or updates catalog rows efficiently.
	BatchUpsert(ctx context.Context, items []model.ProductImport) error

	// GetStats returns statistics about the catalog database.
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the repository connection.
	Close() error
}

// OrderStateRepository persists per-customer selection and quantity maps as
// JSON values in a local key-value store.
type OrderStateRepository interface {
	// LoadSelected returns the persisted selection map, empty when absent.
	LoadSelected(ctx context.Context, customerID string) (map[string]bool, error)

	// LoadQuantities returns the persisted quantity map, empty when absent.
	LoadQuantities(ctx context.Context, customerID string) (map[string]int, error)

	// SaveSelected overwrites the customer's selection map.
	SaveSelected(ctx context.Context, customerID string, selected map[string]bool) error

	// SaveQuantities overwrites the customer's quantity map.
	SaveQuantities(ctx context.Context, customerID string, quantities map[string]int) error

	// Delete removes both entries for the customer.
	Delete(ctx context.Context, customerID string) error

	// Close closes the repository connection.
	Close() error
}

// ScanEventRepository appends and queries the scan-event log.
type ScanEventRepository interface {
	// Insert appends one scan event. Duplicate event IDs are ignored.
	Insert(ctx context.Context, event model.ScanEvent) error

	// BatchInsert appends multiple scan events efficiently.
	BatchInsert(ctx context.Context, events []model.ScanEvent) error

	// List returns a page of events, newest first, plus the total count.
	List(ctx context.Context, limit, offset int) ([]model.ScanEvent, int64, error)

	// DeleteOlderThan removes events older than maxAge.
	DeleteOlderThan(ctx context.Context, maxAge time.Duration) (int64, error)

	// GetStats returns statistics about the event log.
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the repository connection.
	Close() error
}

// AccountRepository defines terminal account data access methods.
type AccountRepository interface {
	// ValidateTerminalKey validates a key+device combination for token
	// generation. An account with no device bound yet is bound to the
	// presented device on first use.
	ValidateTerminalKey(ctx context.Context, key, deviceID string) (*model.TerminalValidation, error)
}
