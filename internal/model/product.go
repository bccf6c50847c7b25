package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is one sellable catalog entry within a brand.
// SKU and EAN are independent identifiers a barcode may match against;
// EAN is empty when the brand has not assigned one.
type Product struct {
	ID          string          `json:"id"`
	SKU         string          `json:"sku"`
	EAN         string          `json:"ean,omitempty"`
	Name        string          `json:"name"`
	BrandID     string          `json:"brand_id"`
	PackingUnit int             `json:"packing_unit"`
	Price       decimal.Decimal `json:"price"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ProductImport is a single catalog row for batch import operations.
type ProductImport struct {
	ID          string          `json:"id"`
	SKU         string          `json:"sku"`
	EAN         string          `json:"ean,omitempty"`
	Name        string          `json:"name"`
	BrandID     string          `json:"brand_id"`
	PackingUnit int             `json:"packing_unit"`
	Price       decimal.Decimal `json:"price"`
}
