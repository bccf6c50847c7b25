package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyScanInView_UnsetQuantityDefaultsToOneUnit(t *testing.T) {
	s := NewState()

	// Packing unit 6, nothing stored yet: scan lands on 6+6=12.
	qty := s.ApplyScanInView("p1", 6)

	assert.Equal(t, 12, qty)
	assert.True(t, s.IsSelected("p1"))
}

func TestApplyScanInView_IncrementsExistingQuantity(t *testing.T) {
	s := NewState()
	s.SetQuantity("p1", 12, 6)

	qty := s.ApplyScanInView("p1", 6)

	assert.Equal(t, 18, qty)
	assert.True(t, s.IsSelected("p1"))
}

func TestApplyScanViaLookup_SetsExactlyOneUnit(t *testing.T) {
	s := NewState()
	s.SetQuantity("p1", 24, 6)

	qty := s.ApplyScanViaLookup("p1", 6)

	assert.Equal(t, 6, qty, "lookup scan sets, never increments")
	assert.True(t, s.IsSelected("p1"))
}

func TestToggle_InitializesQuantityOnlyWhenUnset(t *testing.T) {
	s := NewState()

	on := s.Toggle("p1", 6)
	assert.True(t, on)
	assert.Equal(t, 6, s.Quantity("p1", 6))

	off := s.Toggle("p1", 6)
	assert.False(t, off)
	assert.False(t, s.IsSelected("p1"))
}

func TestToggle_PreservesQuantityAcrossRemoveAndReadd(t *testing.T) {
	s := NewState()
	s.Toggle("p1", 6)
	s.SetQuantity("p1", 30, 6)

	s.Toggle("p1", 6) // remove
	assert.False(t, s.IsSelected("p1"))

	s.Toggle("p1", 6) // re-add
	assert.True(t, s.IsSelected("p1"))
	assert.Equal(t, 30, s.Quantity("p1", 6), "quantity survives the round trip")
}

func TestSetQuantity_RoundsBeforeStoring(t *testing.T) {
	s := NewState()

	assert.Equal(t, 12, s.SetQuantity("p1", 8, 6))
	assert.Equal(t, 6, s.SetQuantity("p1", 0, 6))
	assert.Equal(t, 6, s.SetQuantity("p1", -4, 6))
}

func TestIncrementAndDecrement(t *testing.T) {
	s := NewState()
	s.Toggle("p1", 6)

	assert.Equal(t, 12, s.Increment("p1", 6))
	assert.Equal(t, 18, s.Increment("p1", 6))

	qty, changed := s.Decrement("p1", 6)
	assert.True(t, changed)
	assert.Equal(t, 12, qty)
}

func TestDecrement_BlockedAtOnePackingUnit(t *testing.T) {
	s := NewState()
	s.Toggle("p1", 6)

	qty, changed := s.Decrement("p1", 6)

	assert.False(t, changed)
	assert.Equal(t, 6, qty)
	assert.Equal(t, 6, s.Quantity("p1", 6))
}

func TestSelectedQuantities_FiltersDeselectedProducts(t *testing.T) {
	s := NewState()
	s.Toggle("p1", 6)
	s.Toggle("p2", 4)
	s.Toggle("p2", 4) // back off, quantity stays behind

	filtered := s.SelectedQuantities()

	assert.Equal(t, map[string]int{"p1": 6}, filtered)
	assert.Equal(t, map[string]bool{"p1": true, "p2": false}, s.Selected())
}

func TestClear_EmptiesBothMaps(t *testing.T) {
	s := NewState()
	s.ApplyScanInView("p1", 6)
	s.ApplyScanViaLookup("p2", 4)

	s.Clear()

	assert.True(t, s.Empty())
	assert.Empty(t, s.Selected())
	assert.Empty(t, s.SelectedQuantities())
}

func TestRestore_RebuildsPersistedState(t *testing.T) {
	s := Restore(
		map[string]bool{"p1": true, "p2": false},
		map[string]int{"p1": 18, "p2": 4},
	)

	assert.True(t, s.IsSelected("p1"))
	assert.False(t, s.IsSelected("p2"))
	assert.Equal(t, 18, s.Quantity("p1", 6))
	assert.Equal(t, map[string]int{"p1": 18}, s.SelectedQuantities())
}
