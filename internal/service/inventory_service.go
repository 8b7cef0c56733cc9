package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

// InventoryService is the only writer of product stock. Every change goes
// through ProductRepository.Mutate, so the check and the write of one
// product never interleave with another change of the same product.
type InventoryService struct {
	productRepo repository.ProductRepository
	publisher   messaging.Publisher
}

func NewInventoryService(productRepo repository.ProductRepository, publisher messaging.Publisher) *InventoryService {
	return &InventoryService{
		productRepo: productRepo,
		publisher:   publisher,
	}
}

// GetStock returns the stock of a product and the unit it is counted in.
func (s *InventoryService) GetStock(ctx context.Context, productID string) (float64, entity.UnitMode, error) {
	p, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return 0, "", err
	}
	return p.Stock, p.UnitMode, nil
}

// ReserveAndDecrement takes requested (grams or pieces) out of the stock and
// returns the product as written.
func (s *InventoryService) ReserveAndDecrement(ctx context.Context, productID string, requested float64) (entity.Product, error) {
	p, _, err := s.Reserve(ctx, productID, requested)
	return p, err
}

// Reserve is ReserveAndDecrement that also returns the quantity removed, in
// stock units. Passing it to Restore undoes the reservation exactly.
func (s *InventoryService) Reserve(ctx context.Context, productID string, requested float64) (entity.Product, float64, error) {
	var taken float64
	p, err := s.productRepo.Mutate(ctx, productID, func(p *entity.Product) error {
		var err error
		taken, err = p.Take(requested)
		return err
	})
	if err != nil {
		return entity.Product{}, 0, err
	}

	slog.Info("Service: Stock decremented", "product_id", productID, "requested", requested, "stock", p.Stock)
	s.publishStock(ctx, p)
	return p, taken, nil
}

// Restore gives back quantity, in stock units, as returned by Reserve.
func (s *InventoryService) Restore(ctx context.Context, productID string, quantity float64) (entity.Product, error) {
	p, err := s.productRepo.Mutate(ctx, productID, func(p *entity.Product) error {
		return p.Restore(quantity)
	})
	if err != nil {
		return entity.Product{}, fmt.Errorf("failed to restore stock of %s: %w", productID, err)
	}
	s.publishStock(ctx, p)
	return p, nil
}

// SetStock overwrites the stock of a product.
func (s *InventoryService) SetStock(ctx context.Context, productID string, stock float64) (entity.Product, error) {
	if stock < 0 {
		return entity.Product{}, fmt.Errorf("%w: stock must not be negative", entity.ErrInvalidInput)
	}
	p, err := s.productRepo.Mutate(ctx, productID, func(p *entity.Product) error {
		p.Stock = stock
		p.RecomputeStatus()
		return nil
	})
	if err != nil {
		return entity.Product{}, err
	}

	slog.Info("Service: Stock set", "product_id", productID, "stock", stock)
	s.publishStock(ctx, p)
	return p, nil
}

// RecomputeExpiry refreshes the status of one product from its stock.
func (s *InventoryService) RecomputeExpiry(ctx context.Context, productID string) (entity.Product, error) {
	return s.productRepo.Mutate(ctx, productID, func(p *entity.Product) error {
		p.RecomputeStatus()
		return nil
	})
}

// RecomputeAllExpiry refreshes every product whose status is out of date
// and returns how many changed.
func (s *InventoryService) RecomputeAllExpiry(ctx context.Context) (int, error) {
	products, err := s.productRepo.FindAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list products: %w", err)
	}

	changed := 0
	for _, p := range products {
		if !p.RecomputeStatus() {
			continue
		}
		updated, err := s.RecomputeExpiry(ctx, p.ID)
		if entity.IsNotFound(err) {
			continue // deleted meanwhile
		}
		if err != nil {
			return changed, err
		}
		slog.Info("Service: Product status changed", "product_id", p.ID, "status", updated.Status)
		changed++
	}
	return changed, nil
}

// RunExpirySweeper calls RecomputeAllExpiry every interval until ctx is done.
func (s *InventoryService) RunExpirySweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Expiry sweeper shutting down")
			return
		case <-ticker.C:
			if _, err := s.RecomputeAllExpiry(ctx); err != nil && ctx.Err() == nil {
				slog.Error("Expiry sweep failed", "err", err)
			}
		}
	}
}

func (s *InventoryService) publishStock(ctx context.Context, p entity.Product) {
	event := entity.StockUpdated{ProductID: p.ID, NewStock: p.Stock, Status: p.Status}
	if err := s.publisher.PublishEvent(ctx, messaging.TopicStockUpdated, p.ID, event); err != nil {
		slog.Error("Failed to publish StockUpdated", "product_id", p.ID, "err", err)
	}
}
