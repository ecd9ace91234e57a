// Package pricing holds the money math shared by the cart, checkout and orders.
// Values cross package boundaries as float64 and are computed with decimals.
package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// PriceWithTax returns price + price*taxRate/100 rounded to cents.
// Negative inputs are not rejected.
func PriceWithTax(price, taxRate float64) float64 {
	p := decimal.NewFromFloat(price)
	tax := p.Mul(decimal.NewFromFloat(taxRate)).Div(hundred)
	return p.Add(tax).Round(2).InexactFloat64()
}

// LineTotal multiplies a unit price by a quantity.
func LineTotal(unit float64, qty int) float64 {
	return decimal.NewFromFloat(unit).Mul(decimal.NewFromInt(int64(qty))).Round(2).InexactFloat64()
}

// Sum adds values without float drift.
func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.Round(2).InexactFloat64()
}
