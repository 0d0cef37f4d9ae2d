package taxcalc

import "math"

// roundMoney rounds a currency amount to 2 decimal places, half away from
// zero. Both the batch stage and the synchronous quote path go through this
// one helper so their outputs agree exactly.
func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// computeTax derives the tax amounts for a subtotal. Rounding happens at
// the point of computation, not at display time.
func computeTax(subtotal, stateRate, countyRate float64) (stateTax, countyTax, total float64) {
	stateTax = roundMoney(subtotal * stateRate)
	countyTax = roundMoney(subtotal * countyRate)
	total = roundMoney(stateTax + countyTax)
	return stateTax, countyTax, total
}
