package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"orderscan-api/internal/model"
	"orderscan-api/internal/order"
	"orderscan-api/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const persistTimeout = 5 * time.Second

// ErrProductNotFound is returned when an order operation names a product
// that does not exist in the catalog.
var ErrProductNotFound = fmt.Errorf("product not found")

// LineState is the selection and quantity of one product after a mutation.
type LineState struct {
	ProductID string `json:"product_id"`
	Selected  bool   `json:"selected"`
	Quantity  int    `json:"quantity"`
	Changed   bool   `json:"changed"`
}

// OrderService owns the per-customer order state. All mutations are
// serialized behind one mutex; writes to the state store are debounced so
// scan bursts coalesce into a single write per key.
type OrderService struct {
	repo     repository.OrderStateRepository
	catalog  *CatalogService
	debounce time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	states map[string]*order.State
	timers map[string]*time.Timer
	closed bool
}

// NewOrderService creates a new order service.
func NewOrderService(repo repository.OrderStateRepository, catalog *CatalogService, debounce time.Duration, logger *zap.Logger) *OrderService {
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	return &OrderService{
		repo:     repo,
		catalog:  catalog,
		debounce: debounce,
		logger:   logger,
		states:   make(map[string]*order.State),
		timers:   make(map[string]*time.Timer),
	}
}

// state returns the customer's order state, restoring it from the store on
// first access. Caller must hold s.mu.
func (s *OrderService) state(ctx context.Context, customerID string) (*order.State, error) {
	if st, ok := s.states[customerID]; ok {
		return st, nil
	}

	selected, err := s.repo.LoadSelected(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order selection: %w", err)
	}
	quantities, err := s.repo.LoadQuantities(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order quantities: %w", err)
	}

	st := order.Restore(selected, quantities)
	s.states[customerID] = st
	return st, nil
}

// schedulePersist (re)arms the customer's debounce timer. Caller must hold
// s.mu.
func (s *OrderService) schedulePersist(customerID string) {
	if s.closed {
		return
	}
	if t, ok := s.timers[customerID]; ok {
		t.Stop()
	}
	s.timers[customerID] = time.AfterFunc(s.debounce, func() {
		s.persist(customerID)
	})
}

// persist writes the customer's current state to the store. The store write
// happens under the service mutex so a concurrent Clear cannot interleave
// between snapshot and save.
func (s *OrderService) persist(customerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.timers, customerID)

	st, ok := s.states[customerID]
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := s.repo.SaveSelected(ctx, customerID, st.Selected()); err != nil {
		s.logger.Warn("failed to persist order selection",
			zap.String("customer_id", customerID), zap.Error(err))
	}
	if err := s.repo.SaveQuantities(ctx, customerID, st.SelectedQuantities()); err != nil {
		s.logger.Warn("failed to persist order quantities",
			zap.String("customer_id", customerID), zap.Error(err))
	}
}

// packingUnit resolves a product's packing unit, failing when the product
// does not exist.
func (s *OrderService) packingUnit(ctx context.Context, productID string) (int, error) {
	p, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		return 0, err
	}
	if p == nil {
		return 0, ErrProductNotFound
	}
	return p.PackingUnit, nil
}

// ApplyScan reconciles a matched scan into the customer's order and returns
// the new quantity. FoundInView adds one packing unit on top of the current
// quantity; FoundViaLookup sets the quantity to exactly one packing unit.
func (s *OrderService) ApplyScan(ctx context.Context, customerID string, product model.Product, outcome string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(ctx, customerID)
	if err != nil {
		return 0, err
	}

	var qty int
	switch outcome {
	case model.OutcomeFoundViaLookup:
		qty = st.ApplyScanViaLookup(product.ID, product.PackingUnit)
	default:
		qty = st.ApplyScanInView(product.ID, product.PackingUnit)
	}

	s.schedulePersist(customerID)
	return qty, nil
}

// Toggle flips the product on or off the order. The stored quantity is
// preserved across remove and re-add.
func (s *OrderService) Toggle(ctx context.Context, customerID, productID string) (*LineState, error) {
	unit, err := s.packingUnit(ctx, productID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(ctx, customerID)
	if err != nil {
		return nil, err
	}

	selected := st.Toggle(productID, unit)
	s.schedulePersist(customerID)

	return &LineState{
		ProductID: productID,
		Selected:  selected,
		Quantity:  st.Quantity(productID, unit),
		Changed:   true,
	}, nil
}

// SetQuantity stores a manually entered quantity, rounded up to the packing
// unit.
func (s *OrderService) SetQuantity(ctx context.Context, customerID, productID string, quantity int) (*LineState, error) {
	unit, err := s.packingUnit(ctx, productID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(ctx, customerID)
	if err != nil {
		return nil, err
	}

	qty := st.SetQuantity(productID, quantity, unit)
	s.schedulePersist(customerID)

	return &LineState{
		ProductID: productID,
		Selected:  st.IsSelected(productID),
		Quantity:  qty,
		Changed:   true,
	}, nil
}

// Increment raises the quantity by one packing unit.
func (s *OrderService) Increment(ctx context.Context, customerID, productID string) (*LineState, error) {
	unit, err := s.packingUnit(ctx, productID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(ctx, customerID)
	if err != nil {
		return nil, err
	}

	qty := st.Increment(productID, unit)
	s.schedulePersist(customerID)

	return &LineState{
		ProductID: productID,
		Selected:  st.IsSelected(productID),
		Quantity:  qty,
		Changed:   true,
	}, nil
}

// Decrement lowers the quantity by one packing unit. At exactly one packing
// unit the call is a no-op and Changed reports false.
func (s *OrderService) Decrement(ctx context.Context, customerID, productID string) (*LineState, error) {
	unit, err := s.packingUnit(ctx, productID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(ctx, customerID)
	if err != nil {
		return nil, err
	}

	qty, changed := st.Decrement(productID, unit)
	if changed {
		s.schedulePersist(customerID)
	}

	return &LineState{
		ProductID: productID,
		Selected:  st.IsSelected(productID),
		Quantity:  qty,
		Changed:   changed,
	}, nil
}

// Order builds the order summary for a customer: one line per selected
// product with decimal line totals.
func (s *OrderService) Order(ctx context.Context, customerID string) (*model.Order, error) {
	s.mu.Lock()
	st, err := s.state(ctx, customerID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	quantities := st.SelectedQuantities()
	s.mu.Unlock()

	ids := make([]string, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := &model.Order{
		CustomerID: customerID,
		Lines:      make([]model.OrderLine, 0, len(ids)),
		Total:      decimal.Zero,
	}

	for _, id := range ids {
		p, err := s.catalog.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if p == nil {
			// Product removed from the catalog since it was ordered.
			s.logger.Warn("order references unknown product",
				zap.String("customer_id", customerID), zap.String("product_id", id))
			continue
		}

		qty := quantities[id]
		lineTotal := p.Price.Mul(decimal.NewFromInt(int64(qty)))
		out.Lines = append(out.Lines, model.OrderLine{
			ProductID:   p.ID,
			SKU:         p.SKU,
			Name:        p.Name,
			PackingUnit: p.PackingUnit,
			Quantity:    qty,
			UnitPrice:   p.Price,
			LineTotal:   lineTotal,
		})
		out.TotalUnits += qty
		out.Total = out.Total.Add(lineTotal)
	}

	sort.Slice(out.Lines, func(i, j int) bool { return out.Lines[i].SKU < out.Lines[j].SKU })
	return out, nil
}

// Clear empties the customer's order and deletes both store keys
// immediately, cancelling any pending debounced write.
func (s *OrderService) Clear(ctx context.Context, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[customerID]; ok {
		t.Stop()
		delete(s.timers, customerID)
	}
	delete(s.states, customerID)

	if err := s.repo.Delete(ctx, customerID); err != nil {
		return fmt.Errorf("failed to clear order state: %w", err)
	}
	return nil
}

// Close flushes every pending debounced write.
func (s *OrderService) Close() {
	s.mu.Lock()
	s.closed = true
	pending := make([]string, 0, len(s.timers))
	for customerID, t := range s.timers {
		t.Stop()
		pending = append(pending, customerID)
	}
	s.timers = make(map[string]*time.Timer)
	s.mu.Unlock()

	for _, customerID := range pending {
		s.persist(customerID)
	}
}
