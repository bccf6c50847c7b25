package order

// RoundToPackingUnit rounds a requested quantity up to the nearest multiple
// of the packing unit. The result is never below one packing unit, even for
// zero or negative requests.
func RoundToPackingUnit(requested, packingUnit int) int {
	if packingUnit < 1 {
		packingUnit = 1
	}
	if requested <= packingUnit {
		return packingUnit
	}
	return (requested + packingUnit - 1) / packingUnit * packingUnit
}
