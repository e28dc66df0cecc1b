package validator

import "math"

// ExactWageCents computes round(hoursWorked * hourlyRate) per §4.E.1.3's
// require_exact_wage_calculation check, entirely in widened integer
// arithmetic so the comparison never depends on binary float rounding.
//
// hoursWorked is assumed to carry at most two fractional digits (the
// attestation model's own constraint), so it is losslessly represented as
// hundredths before multiplying by the integer cents-per-hour rate; the
// division back out of hundredths is the one place a half-up round applies.
func ExactWageCents(hoursWorked float64, hourlyRateCents int64) int64 {
	hoursHundredths := int64(math.Round(hoursWorked * 100))
	product := hoursHundredths * hourlyRateCents // cent-hundredths
	return halfUpDiv100(product)
}

func halfUpDiv100(n int64) int64 {
	if n >= 0 {
		return (n + 50) / 100
	}
	return -((-n + 50) / 100)
}

// ceilDays returns the number of whole-or-partial 24h days in a span of the
// given number of hours,
// with a floor of 1 day for any positive span (§4.E.1.3's ceil_days).
func ceilDays(hours float64) int {
	days := int(math.Ceil(hours / 24))
	if days < 1 {
		days = 1
	}
	return days
}
