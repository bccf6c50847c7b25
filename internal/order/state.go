package order

// State holds the selection and quantity maps for one customer's order in
// progress. Invariant: every product marked selected has a quantity that is
// a positive multiple of its packing unit; all write paths round before
// storing. Not safe for concurrent use, the owning service serializes access.
type State struct {
	selected   map[string]bool
	quantities map[string]int
}

// NewState creates an empty order state.
func NewState() *State {
	return &State{
		selected:   make(map[string]bool),
		quantities: make(map[string]int),
	}
}

// Restore rebuilds order state from previously persisted maps.
func Restore(selected map[string]bool, quantities map[string]int) *State {
	s := NewState()
	for id, v := range selected {
		s.selected[id] = v
	}
	for id, q := range quantities {
		s.quantities[id] = q
	}
	return s
}

// Quantity returns the stored quantity for a product, or one packing unit
// when none has been set yet.
func (s *State) Quantity(productID string, packingUnit int) int {
	if q, ok := s.quantities[productID]; ok {
		return q
	}
	return RoundToPackingUnit(packingUnit, packingUnit)
}

// IsSelected reports whether the product is currently on the order.
func (s *State) IsSelected(productID string) bool {
	return s.selected[productID]
}

// ApplyScanInView handles a scan that matched a product already visible in
// the catalog view: the quantity grows by one packing unit on top of the
// current quantity (which defaults to one packing unit when unset) and the
// product is marked selected.
func (s *State) ApplyScanInView(productID string, packingUnit int) int {
	next := RoundToPackingUnit(s.Quantity(productID, packingUnit)+packingUnit, packingUnit)
	s.quantities[productID] = next
	s.selected[productID] = true
	return next
}

// ApplyScanViaLookup handles a scan resolved through the cross-brand lookup:
// the quantity is set (not incremented) to exactly one packing unit and the
// product is marked selected.
func (s *State) ApplyScanViaLookup(productID string, packingUnit int) int {
	next := RoundToPackingUnit(packingUnit, packingUnit)
	s.quantities[productID] = next
	s.selected[productID] = true
	return next
}

// Toggle flips the product's selected flag. Adding a product that has no
// quantity yet initializes it to one packing unit; removing never clears the
// quantity, so re-adding later restores it.
func (s *State) Toggle(productID string, packingUnit int) bool {
	if s.selected[productID] {
		s.selected[productID] = false
		return false
	}
	s.selected[productID] = true
	if _, ok := s.quantities[productID]; !ok {
		s.quantities[productID] = RoundToPackingUnit(packingUnit, packingUnit)
	}
	return true
}

// SetQuantity stores a manually entered quantity, rounded up to the packing
// unit.
func (s *State) SetQuantity(productID string, requested, packingUnit int) int {
	next := RoundToPackingUnit(requested, packingUnit)
	s.quantities[productID] = next
	return next
}

// Increment raises the quantity by one packing unit.
func (s *State) Increment(productID string, packingUnit int) int {
	next := RoundToPackingUnit(s.Quantity(productID, packingUnit)+packingUnit, packingUnit)
	s.quantities[productID] = next
	return next
}

// Decrement lowers the quantity by one packing unit. At one packing unit the
// quantity cannot go lower while selected; the call reports no change.
func (s *State) Decrement(productID string, packingUnit int) (int, bool) {
	cur := s.Quantity(productID, packingUnit)
	if cur <= RoundToPackingUnit(packingUnit, packingUnit) {
		return cur, false
	}
	next := RoundToPackingUnit(cur-packingUnit, packingUnit)
	s.quantities[productID] = next
	return next, true
}

// Clear empties both maps.
func (s *State) Clear() {
	s.selected = make(map[string]bool)
	s.quantities = make(map[string]int)
}

// Selected returns a copy of the full selection map, including entries
// toggled back off.
func (s *State) Selected() map[string]bool {
	out := make(map[string]bool, len(s.selected))
	for id, v := range s.selected {
		out[id] = v
	}
	return out
}

// SelectedQuantities returns quantities filtered down to currently selected
// products. This is the shape that gets persisted and billed.
func (s *State) SelectedQuantities() map[string]int {
	out := make(map[string]int)
	for id, on := range s.selected {
		if !on {
			continue
		}
		if q, ok := s.quantities[id]; ok {
			out[id] = q
		}
	}
	return out
}

// Empty reports whether nothing is selected and no quantities are stored.
func (s *State) Empty() bool {
	return len(s.selected) == 0 && len(s.quantities) == 0
}
