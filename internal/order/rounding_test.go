package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundToPackingUnit_ExactMultiple(t *testing.T) {
	assert.Equal(t, 12, RoundToPackingUnit(12, 6))
	assert.Equal(t, 6, RoundToPackingUnit(6, 6))
	assert.Equal(t, 5, RoundToPackingUnit(5, 1))
}

func TestRoundToPackingUnit_RoundsUp(t *testing.T) {
	assert.Equal(t, 12, RoundToPackingUnit(7, 6))
	assert.Equal(t, 6, RoundToPackingUnit(1, 6))
	assert.Equal(t, 18, RoundToPackingUnit(13, 6))
	assert.Equal(t, 24, RoundToPackingUnit(19, 12))
}

func TestRoundToPackingUnit_FloorAtOnePackingUnit(t *testing.T) {
	// Zero or negative requests never produce a quantity below one unit.
	for _, q := range []int{0, -1, -6, -100} {
		assert.Equal(t, 6, RoundToPackingUnit(q, 6), "requested %d", q)
		assert.Equal(t, 1, RoundToPackingUnit(q, 1), "requested %d", q)
	}
}

func TestRoundToPackingUnit_Idempotent(t *testing.T) {
	for _, unit := range []int{1, 2, 3, 6, 12, 25} {
		for q := -10; q <= 60; q++ {
			once := RoundToPackingUnit(q, unit)
			assert.Equal(t, once, RoundToPackingUnit(once, unit),
				"requested %d unit %d", q, unit)
			assert.Zerof(t, once%unit, "requested %d unit %d not a multiple", q, unit)
			assert.GreaterOrEqual(t, once, unit)
		}
	}
}

func TestRoundToPackingUnit_InvalidUnitTreatedAsOne(t *testing.T) {
	assert.Equal(t, 7, RoundToPackingUnit(7, 0))
	assert.Equal(t, 1, RoundToPackingUnit(-3, -2))
}
