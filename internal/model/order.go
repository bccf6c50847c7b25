package model

import "github.com/shopspring/decimal"

// OrderLine is one selected product with its reconciled quantity.
type OrderLine struct {
	ProductID   string          `json:"product_id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	PackingUnit int             `json:"packing_unit"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// Order is the order-in-progress for one customer.
type Order struct {
	CustomerID string          `json:"customer_id"`
	Lines      []OrderLine     `json:"lines"`
	TotalUnits int             `json:"total_units"`
	Total      decimal.Decimal `json:"total"`
}
