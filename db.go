package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/config"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/memory"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/postgres"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/redis"
)

type stores struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	events   repository.EventStore
	carts    repository.CartStore
	closers  []io.Closer
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			slog.Error("Failed to close store", "err", err)
		}
	}
}

// openStores picks Postgres and Redis when configured and in-memory stores
// otherwise.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	s := &stores{}

	if cfg.DatabaseURL != "" {
		db, err := postgres.InitDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db)
		s.products = postgres.NewProductRepository(db)
		s.orders = postgres.NewOrderRepository(db)
		s.events = postgres.NewEventStore(db)
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory stores")
		s.products = memory.NewProductRepository()
		s.orders = memory.NewOrderRepository()
		s.events = memory.NewEventStore()
	}

	if cfg.RedisURL != "" {
		rdb, err := redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, rdb)
		s.carts = redis.NewCartStore(rdb, cfg.CartTTL)
	} else {
		s.carts = memory.NewCartStore()
	}
	return s, nil
}

func seedProducts(ctx context.Context, products repository.ProductRepository) error {
	if err := products.Seed(ctx, catalog()); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}
	return nil
}

func catalog() []entity.Product {
	piece := func(id, name, desc, price, image, category string, stock float64) entity.Product {
		return entity.Product{
			ID: id, Name: name, Description: desc, ImageURL: image, Category: category,
			Price: decimal.NewNullDecimal(decimal.RequireFromString(price)), Stock: stock,
			UnitMode: entity.UnitPiece, Status: entity.ProductActive,
		}
	}
	weight := func(id, name, desc, pricePerKg, image, category string, kg float64) entity.Product {
		p := piece(id, name, desc, pricePerKg, image, category, kg)
		p.UnitMode = entity.UnitWeight
		return p
	}

	return []entity.Product{
		piece("prod-001", "Wireless Noise-Cancelling Headphones", "Premium over-ear headphones with active noise cancellation and 30-hour battery life.", "349.99", "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=400", "Electronics", 50),
		piece("prod-002", "Mechanical Keyboard RGB", "Cherry MX switches with per-key RGB lighting and aluminum frame.", "179.99", "https://images.unsplash.com/photo-1618384887929-16ec33fab9ef?w=400", "Electronics", 120),
		piece("prod-004", "Ergonomic Office Chair", "Adjustable lumbar support, breathable mesh, and 4D armrests.", "549.99", "https://images.unsplash.com/photo-1592078615290-033ee584e267?w=400", "Furniture", 25),
		piece("prod-006", "Premium Laptop Backpack", "Water-resistant 17\" laptop compartment with anti-theft design.", "129.99", "https://images.unsplash.com/photo-1553062407-98eeb64c6a62?w=400", "Accessories", 80),
		weight("prod-101", "Arabica Coffee Beans", "Single-origin medium roast, sold by weight.", "32.50", "https://images.unsplash.com/photo-1559056199-641a0ac8b55e?w=400", "Grocery", 40),
		weight("prod-102", "Aged Cheddar", "Twelve-month cheddar cut to order.", "18.90", "https://images.unsplash.com/photo-1486297678162-eb2a19b0a32d?w=400", "Grocery", 12.5),
		weight("prod-103", "Honeycrisp Apples", "Crisp and sweet, priced per kilogram.", "4.20", "https://images.unsplash.com/photo-1560806887-1e4cd0b6cbd6?w=400", "Produce", 60),
	}
}
