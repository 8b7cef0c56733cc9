package entity

import (
	"github.com/shopspring/decimal"
)

// stockPlaces is the precision kept on weight-based stock.
const stockPlaces = 3

// ToStockUnits converts a requested amount into the unit stock is counted in:
// grams become kilograms for WEIGHT products, pieces stay pieces.
func ToStockUnits(mode UnitMode, requested float64) decimal.Decimal {
	amount := decimal.NewFromFloat(requested)
	if mode == UnitWeight {
		return amount.Div(decimal.NewFromInt(GramsPerKilogram))
	}
	return amount
}

// Decrement removes requested (grams or pieces) from the stock of p.
// It returns an *InsufficientStockError and leaves p untouched when the
// converted amount exceeds the current stock.
//
// PIECE stock is not forced to be integral.
func (p *Product) Decrement(requested float64) error {
	_, err := p.Take(requested)
	return err
}

// Take is Decrement that also reports the quantity removed, in stock units.
// WEIGHT stock is rounded after the subtraction, so the quantity removed can
// differ from the converted request; Restore needs the former.
func (p *Product) Take(requested float64) (float64, error) {
	if requested <= 0 {
		return 0, ErrInvalidAmount
	}
	want := ToStockUnits(p.UnitMode, requested)
	have := decimal.NewFromFloat(p.Stock)
	if have.LessThan(want) {
		return 0, &InsufficientStockError{
			ProductID: p.ID,
			Name:      p.Name,
			Available: p.Stock,
			Requested: want.InexactFloat64(),
			Unit:      p.UnitMode.StockUnit(),
		}
	}

	left := have.Sub(want)
	if p.UnitMode == UnitWeight {
		left = decimal.Max(decimal.Zero, left.Round(stockPlaces))
	}
	p.Stock = left.InexactFloat64()
	return have.Sub(left).InexactFloat64(), nil
}

// Restore adds back quantity, in stock units, as reported by Take. No
// rounding is applied, so Take followed by Restore leaves the stock as it was.
func (p *Product) Restore(quantity float64) error {
	if quantity < 0 {
		return ErrInvalidAmount
	}
	p.Stock = decimal.NewFromFloat(p.Stock).Add(decimal.NewFromFloat(quantity)).InexactFloat64()
	return nil
}

// RecomputeStatus marks p EXPIRED when its stock is exhausted and reactivates
// an expired product that has stock again. It reports whether the status changed.
func (p *Product) RecomputeStatus() bool {
	switch {
	case p.Stock <= 0 && p.Status != ProductExpired:
		p.Status = ProductExpired
		return true
	case p.Stock > 0 && p.Status == ProductExpired:
		p.Status = ProductActive
		return true
	case p.Status == "":
		p.Status = ProductActive
		return true
	}
	return false
}
