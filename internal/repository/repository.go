package repository

import (
	"context"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

// ProductRepository handles persistence for Products.
type ProductRepository interface {
	FindByID(ctx context.Context, id string) (entity.Product, error)
	FindAll(ctx context.Context) ([]entity.Product, error)
	FindByCategory(ctx context.Context, category string) ([]entity.Product, error)
	// Save creates or replaces a product.
	Save(ctx context.Context, p entity.Product) error
	Delete(ctx context.Context, id string) error
	// Mutate runs fn on the current product and stores the result as one
	// atomic read-modify-write. No other Mutate of the same product runs in
	// between. If fn returns an error nothing is written.
	Mutate(ctx context.Context, id string, fn func(p *entity.Product) error) (entity.Product, error)
	// Seed inserts initial products if none exist.
	Seed(ctx context.Context, products []entity.Product) error
}

// OrderRepository is the order read model, kept up to date from the order
// event streams.
type OrderRepository interface {
	Upsert(ctx context.Context, o entity.Order) error
	FindByID(ctx context.Context, id string) (entity.Order, error)
	FindAll(ctx context.Context) ([]entity.Order, error)
	FindByBuyerName(ctx context.Context, name string) ([]entity.Order, error)
}

// EventStore handles appending and loading events for an aggregate stream.
type EventStore interface {
	// SaveEvents appends events if the stream is still at expectedVersion,
	// otherwise it fails with entity.ErrVersionConflict.
	SaveEvents(ctx context.Context, streamID string, streamType string, expectedVersion int, events []entity.Event) error
	LoadEvents(ctx context.Context, streamID string) ([]entity.EventStoreRecord, error)
}

// CartStore holds per-user carts. Mutations of one user's cart are
// serialized; different users never contend.
type CartStore interface {
	// Add accumulates amount onto the entry and returns the new amount. An
	// entry reaching zero or less is removed.
	Add(ctx context.Context, userID, productID string, amount float64) (float64, error)
	// Get returns an empty map for a user without a cart.
	Get(ctx context.Context, userID string) (map[string]float64, error)
	// Remove deletes one entry and drops the cart once it is empty.
	Remove(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
}
