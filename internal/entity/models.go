package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// UnitMode tells whether a product is sold by the piece or by weight.
type UnitMode string

const (
	UnitPiece  UnitMode = "PIECE"
	UnitWeight UnitMode = "WEIGHT"
)

// GramsPerKilogram converts request amounts of weight-based products (grams)
// into the stock unit (kilograms).
const GramsPerKilogram = 1000

// ParseUnitMode accepts the two unit modes case-insensitively. Blank means PIECE.
func ParseUnitMode(s string) (UnitMode, error) {
	switch UnitMode(strings.ToUpper(strings.TrimSpace(s))) {
	case "", UnitPiece:
		return UnitPiece, nil
	case UnitWeight:
		return UnitWeight, nil
	}
	return "", fmt.Errorf("%w: unit mode %q", ErrInvalidInput, s)
}

// StockUnit is the unit the stock of a product is counted in.
func (m UnitMode) StockUnit() string {
	if m == UnitWeight {
		return "kg"
	}
	return "pieces"
}

// ProductStatus is derived from stock by the expiry sweep.
type ProductStatus string

const (
	ProductActive  ProductStatus = "ACTIVE"
	ProductExpired ProductStatus = "EXPIRED"
)

// Product represents a product in the store.
//
// Price is per kilogram for WEIGHT products and per piece otherwise. A null
// price means the product is not for sale. Stock is counted in the same unit
// as the price.
type Product struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Category    string              `json:"category"`
	ImageURL    string              `json:"image_url"`
	Price       decimal.NullDecimal `json:"price"`
	Stock       float64             `json:"stock"`
	UnitMode    UnitMode            `json:"unit_mode"`
	Status      ProductStatus       `json:"status"`
}

// ProductSnapshot is the copy of a product kept inside an order.
type ProductSnapshot struct {
	ID       string              `json:"id"`
	Name     string              `json:"name"`
	Category string              `json:"category"`
	Price    decimal.NullDecimal `json:"price"`
	UnitMode UnitMode            `json:"unit_mode"`
}

// Snapshot copies the fields of p an order needs to keep.
func (p Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		ID:       p.ID,
		Name:     p.Name,
		Category: p.Category,
		Price:    p.Price,
		UnitMode: p.UnitMode,
	}
}

// BuyerDetails are copied by value into the order at creation.
type BuyerDetails struct {
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// OrderLine is a line item within an order. Amount is in grams for WEIGHT
// products and in pieces otherwise.
type OrderLine struct {
	Product ProductSnapshot `json:"product"`
	Amount  float64         `json:"amount"`
}

// Order represents a customer order.
type Order struct {
	ID        string          `json:"id"`
	Lines     []OrderLine     `json:"lines"`
	OrderDate time.Time       `json:"order_date"`
	Total     decimal.Decimal `json:"total"`
	Status    OrderStatus     `json:"status"`
	Buyer     BuyerDetails    `json:"buyer"`
	Version   int             `json:"version"`
}

// --- Commands ---

// LineItemRequest references a product and the requested amount. A nil
// Amount defaults to 1.
type LineItemRequest struct {
	ProductID string   `json:"product_id"`
	Amount    *float64 `json:"amount,omitempty"`
}

// PlaceOrder is a command to create a new order.
type PlaceOrder struct {
	OrderID     string              `json:"order_id"`
	Items       []LineItemRequest   `json:"items"`
	Buyer       BuyerDetails        `json:"buyer"`
	ClientTotal decimal.NullDecimal `json:"total"`
	Status      string              `json:"status,omitempty"`
}

// ChangeOrderStatus is a command to move an order along the lifecycle.
type ChangeOrderStatus struct {
	OrderID string      `json:"order_id"`
	Status  OrderStatus `json:"status"`
	Comment string      `json:"comment,omitempty"`
	Actor   string      `json:"actor"`
}
