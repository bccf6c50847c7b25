package scanner

import (
	"context"
	"time"

	"orderscan-api/internal/model"
	"orderscan-api/pkg/uid"

	"go.uber.org/zap"
)

// recordTimeout bounds the detached scan-event write.
const recordTimeout = 5 * time.Second

// CatalogLookup resolves a barcode across all brands. Implementations return
// (nil, nil) when no product matches.
type CatalogLookup interface {
	FindByCode(ctx context.Context, code string) (*model.Product, error)
}

// EventSink receives one record per terminal scan outcome.
type EventSink interface {
	Record(ctx context.Context, event model.ScanEvent) error
}

// Resolution is the terminal outcome of one barcode resolution.
type Resolution struct {
	Outcome string
	Barcode string
	// Product is set for every outcome that matched something, including
	// wrong-brand matches. Nil for not-found.
	Product *model.Product
}

// Matched reports whether the scan should mutate order state.
func (r Resolution) Matched() bool {
	return r.Outcome == model.OutcomeFoundInView || r.Outcome == model.OutcomeFoundViaLookup
}

// Resolver classifies completed barcodes against the catalog: first the
// products currently in view, then a cross-brand lookup.
type Resolver struct {
	lookup CatalogLookup
	sink   EventSink
	logger *zap.Logger
}

// NewResolver creates a resolver. sink may be nil, in which case outcomes
// are not recorded.
func NewResolver(lookup CatalogLookup, sink EventSink, logger *zap.Logger) *Resolver {
	return &Resolver{
		lookup: lookup,
		sink:   sink,
		logger: logger,
	}
}

// Resolve runs the resolution policy for one barcode. visible is the product
// slice currently rendered for the session's brand; matching against it is
// case-sensitive and exact on SKU or EAN. A lookup transport failure returns
// an error and records nothing; every terminal outcome is recorded
// fire-and-forget.
func (r *Resolver) Resolve(ctx context.Context, code string, visible []model.Product, brandID, customerID, sessionID string) (Resolution, error) {
	for i := range visible {
		p := &visible[i]
		if p.SKU == code || (p.EAN != "" && p.EAN == code) {
			res := Resolution{Outcome: model.OutcomeFoundInView, Barcode: code, Product: p}
			r.record(res, brandID, customerID, sessionID)
			return res, nil
		}
	}

	product, err := r.lookup.FindByCode(ctx, code)
	if err != nil {
		return Resolution{}, err
	}

	var res Resolution
	switch {
	case product == nil:
		res = Resolution{Outcome: model.OutcomeNotFound, Barcode: code}
	case product.BrandID != brandID:
		res = Resolution{Outcome: model.OutcomeWrongBrand, Barcode: code, Product: product}
	default:
		res = Resolution{Outcome: model.OutcomeFoundViaLookup, Barcode: code, Product: product}
	}

	r.record(res, brandID, customerID, sessionID)
	return res, nil
}

// record writes the scan event on a detached goroutine. Failures are logged
// and swallowed; the scan flow never waits on or fails with the event log.
func (r *Resolver) record(res Resolution, brandID, customerID, sessionID string) {
	if r.sink == nil {
		return
	}

	event := model.ScanEvent{
		ID:         uid.New(),
		Barcode:    res.Barcode,
		Success:    res.Matched(),
		Outcome:    res.Outcome,
		BrandID:    brandID,
		CustomerID: customerID,
		SessionID:  sessionID,
		ScannedAt:  time.Now().UTC(),
	}
	if res.Product != nil {
		event.ProductID = res.Product.ID
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()

		if err := r.sink.Record(ctx, event); err != nil && r.logger != nil {
			r.logger.Warn("scan event not recorded",
				zap.String("barcode", event.Barcode),
				zap.String("outcome", event.Outcome),
				zap.Error(err))
		}
	}()
}
