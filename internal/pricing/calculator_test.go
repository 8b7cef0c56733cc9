package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

func price(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestLineAmount(t *testing.T) {
	tests := []struct {
		name      string
		price     decimal.NullDecimal
		mode      entity.UnitMode
		requested float64
		want      string
	}{
		{"weight per kilogram", price("4.0"), entity.UnitWeight, 1500, "6"},
		{"piece", price("2.5"), entity.UnitPiece, 3, "7.5"},
		{"weight below a kilogram", price("12.40"), entity.UnitWeight, 250, "3.1"},
		{"fractional pieces", price("3"), entity.UnitPiece, 0.5, "1.5"},
		{"null price", decimal.NullDecimal{}, entity.UnitPiece, 10, "0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertMoney(t, tc.want, LineAmount(tc.price, tc.mode, tc.requested))
		})
	}
}

func TestTotal_RoundsToThreePlaces(t *testing.T) {
	got := Total(decimal.RequireFromString("0.1234"), decimal.RequireFromString("0.0005"))

	assertMoney(t, "0.124", got)
}

func TestTotal_Empty(t *testing.T) {
	assertMoney(t, "0", Total())
}

func TestOrderTotal_SumsLines(t *testing.T) {
	lines := []entity.OrderLine{
		{Product: entity.ProductSnapshot{Price: price("4"), UnitMode: entity.UnitWeight}, Amount: 1500},
		{Product: entity.ProductSnapshot{Price: price("2.5"), UnitMode: entity.UnitPiece}, Amount: 3},
	}

	assertMoney(t, "13.5", OrderTotal(lines))
}

func TestLineAmount_Deterministic(t *testing.T) {
	first := LineAmount(price("1.99"), entity.UnitWeight, 333)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first.String(), LineAmount(price("1.99"), entity.UnitWeight, 333).String())
	}
}
