// Package pricing turns prices and requested amounts into money.
//
// All arithmetic is done on decimals so cart totals and order totals computed
// from the same inputs are identical.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

// TotalPlaces is the number of decimal places totals are rounded to.
const TotalPlaces = 3

var gramsPerKilogram = decimal.NewFromInt(entity.GramsPerKilogram)

// LineAmount prices a requested amount. WEIGHT prices are per kilogram and
// the amount is in grams; PIECE prices are per piece. A null price
// contributes nothing.
func LineAmount(price decimal.NullDecimal, mode entity.UnitMode, requested float64) decimal.Decimal {
	if !price.Valid {
		return decimal.Zero
	}
	amount := decimal.NewFromFloat(requested)
	if mode == entity.UnitWeight {
		amount = amount.Div(gramsPerKilogram)
	}
	return price.Decimal.Mul(amount)
}

// Total sums line amounts and rounds to TotalPlaces.
func Total(lines ...decimal.Decimal) decimal.Decimal {
	return decimal.Sum(decimal.Zero, lines...).Round(TotalPlaces)
}

// OrderTotal prices every line of an order from its product snapshot.
func OrderTotal(lines []entity.OrderLine) decimal.Decimal {
	amounts := make([]decimal.Decimal, 0, len(lines))
	for _, l := range lines {
		amounts = append(amounts, LineAmount(l.Product.Price, l.Product.UnitMode, l.Amount))
	}
	return Total(amounts...)
}
