package model

import "time"

// Terminal outcomes of a barcode resolution.
const (
	OutcomeFoundInView    = "found_in_view"
	OutcomeFoundViaLookup = "found_via_lookup"
	OutcomeWrongBrand     = "wrong_brand"
	OutcomeNotFound       = "not_found"
	OutcomeLookupError    = "lookup_error"
)

// ScanEvent is one append-only record of a completed barcode resolution.
type ScanEvent struct {
	ID         string    `json:"id"`
	Barcode    string    `json:"barcode"`
	Success    bool      `json:"success"`
	Outcome    string    `json:"outcome"`
	ProductID  string    `json:"product_id,omitempty"`
	BrandID    string    `json:"brand_id,omitempty"`
	CustomerID string    `json:"customer_id,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	ScannedAt  time.Time `json:"scanned_at"`
}
