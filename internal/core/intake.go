// Package core holds the beverage and intake domain model.
//
// This file contains the pure-alcohol intake estimate: consumed volume in
// ml times ABV percent times 0.8, the approximate specific gravity of
// ethanol that turns a volume-percent figure into an effective volume.
package core

// ethanolFactor converts ABV volume-percent into pure-alcohol volume.
const ethanolFactor = 0.8

// CalculateIntake returns the estimated pure-alcohol volume in ml for a
// sequence of consumed beverages. Entries with absent or non-positive
// alcohol content contribute nothing. The function is total and never
// clamps; callers are responsible for rejecting negative inputs upstream.
func CalculateIntake(beverages []BeverageAmount) float64 {
	var total float64
	for _, b := range beverages {
		if b.AlcoholContent != nil && *b.AlcoholContent > 0 {
			total += b.Amount * (*b.AlcoholContent / 100) * ethanolFactor
		}
	}
	return total
}

// DaysInMonth returns the number of days in the given month, leap years
// included. The monthly average divides by this, not by drinking days.
func DaysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if (year%4 == 0 && year%100 != 0) || year%400 == 0 {
			return 29
		}
		return 28
	default:
		return 30
	}
}
