// Package shared holds money math common to sales documents. All
// intermediate arithmetic runs on decimals so repeated line totals do
// not accumulate float drift before rounding.
package shared

import "github.com/shopspring/decimal"

// LineTotal computes quantity * unitPrice - discount + tax, rounded to
// two decimal places.
func LineTotal(quantity int, unitPrice, discount, tax float64) float64 {
	qty := decimal.NewFromInt(int64(quantity))
	price := decimal.NewFromFloat(unitPrice)

	total := qty.Mul(price).
		Sub(decimal.NewFromFloat(discount)).
		Add(decimal.NewFromFloat(tax))
	f, _ := total.Round(2).Float64()
	return f
}

// SumTotals adds already-rounded line totals into a document total.
func SumTotals(lineTotals []float64) float64 {
	sum := decimal.Zero
	for _, t := range lineTotals {
		sum = sum.Add(decimal.NewFromFloat(t))
	}
	f, _ := sum.Round(2).Float64()
	return f
}

// Outstanding returns total - paid, floored at zero.
func Outstanding(total, paid float64) float64 {
	due := decimal.NewFromFloat(total).Sub(decimal.NewFromFloat(paid))
	if due.IsNegative() {
		return 0
	}
	f, _ := due.Round(2).Float64()
	return f
}
