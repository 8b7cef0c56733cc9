package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/pricing"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

// ProductFinder resolves the price and unit mode of cart entries.
type ProductFinder interface {
	FindByID(ctx context.Context, id string) (entity.Product, error)
}

// OrderPlacer places the order a cart checks out into.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, cmd entity.PlaceOrder) (entity.Order, error)
}

// CartLine is one priced cart entry.
type CartLine struct {
	Product   entity.Product  `json:"product"`
	Amount    float64         `json:"amount"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// CartView is a cart priced at current catalog prices.
type CartView struct {
	UserID string          `json:"user_id"`
	Lines  []CartLine      `json:"lines"`
	Total  decimal.Decimal `json:"total"`
}

// CartService orchestrates shopping cart logic. Carts never touch stock;
// products are only read for their price and unit mode.
type CartService struct {
	carts    repository.CartStore
	products ProductFinder
	orders   OrderPlacer
}

func NewCartService(carts repository.CartStore, products ProductFinder, orders OrderPlacer) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		orders:   orders,
	}
}

// Add puts amount of a product into the cart, on top of what is already
// there. A nil or non-positive amount means one kilogram for WEIGHT products
// and one piece otherwise.
func (s *CartService) Add(ctx context.Context, userID, productID string, amount *float64) (float64, error) {
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return 0, err
	}

	var requested float64
	if amount != nil {
		requested = *amount
	}
	requested = entity.DefaultCartAmount(p.UnitMode, requested)

	held, err := s.carts.Add(ctx, userID, productID, requested)
	if err != nil {
		return 0, err
	}
	slog.Info("Service: Added to cart", "user_id", userID, "product_id", productID, "amount", requested, "held", held)
	return held, nil
}

func (s *CartService) Get(ctx context.Context, userID string) (map[string]float64, error) {
	return s.carts.Get(ctx, userID)
}

func (s *CartService) Remove(ctx context.Context, userID, productID string) error {
	return s.carts.Remove(ctx, userID, productID)
}

func (s *CartService) Clear(ctx context.Context, userID string) error {
	return s.carts.Clear(ctx, userID)
}

// View prices every entry at the current catalog price. An entry whose
// product was deleted fails with ErrProductNotFound.
func (s *CartService) View(ctx context.Context, userID string) (CartView, error) {
	items, err := s.carts.Get(ctx, userID)
	if err != nil {
		return CartView{}, err
	}

	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	view := CartView{UserID: userID, Lines: make([]CartLine, 0, len(ids))}
	amounts := make([]decimal.Decimal, 0, len(ids))
	for _, id := range ids {
		p, err := s.products.FindByID(ctx, id)
		if err != nil {
			return CartView{}, fmt.Errorf("cart of %s: %w", userID, err)
		}
		line := pricing.LineAmount(p.Price, p.UnitMode, items[id])
		amounts = append(amounts, line)
		view.Lines = append(view.Lines, CartLine{Product: p, Amount: items[id], LineTotal: line})
	}
	view.Total = pricing.Total(amounts...)
	return view, nil
}

func (s *CartService) Total(ctx context.Context, userID string) (decimal.Decimal, error) {
	view, err := s.View(ctx, userID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return view.Total, nil
}

// Checkout places an order for the whole cart. On success the checked out
// amounts leave the cart; anything added meanwhile stays. On failure the
// cart is kept.
func (s *CartService) Checkout(ctx context.Context, userID string, buyer entity.BuyerDetails) (entity.Order, error) {
	items, err := s.carts.Get(ctx, userID)
	if err != nil {
		return entity.Order{}, err
	}
	if len(items) == 0 {
		return entity.Order{}, entity.ErrEmptyOrder
	}

	cmd := entity.PlaceOrder{OrderID: uuid.NewString(), Buyer: buyer}
	for id, amount := range items {
		cmd.Items = append(cmd.Items, entity.LineItemRequest{ProductID: id, Amount: &amount})
	}
	slices.SortFunc(cmd.Items, func(a, b entity.LineItemRequest) int {
		return cmp.Compare(a.ProductID, b.ProductID)
	})

	order, err := s.orders.PlaceOrder(ctx, cmd)
	if err != nil {
		return entity.Order{}, err
	}

	for id, amount := range items {
		if _, err := s.carts.Add(ctx, userID, id, -amount); err != nil {
			slog.Error("Failed to remove checked out item from cart", "user_id", userID, "product_id", id, "err", err)
		}
	}
	return order, nil
}
