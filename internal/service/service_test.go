package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/memory"
)

type publishedEvent struct {
	topic string
	key   string
	event any
}

type recordingPublisher struct {
	mu     sync.Mutex
	err    error
	events []publishedEvent
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{topic, key, event})
	return nil
}

func (p *recordingPublisher) onTopic(topic string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.topic == topic {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	products  repository.ProductRepository
	orders    repository.OrderRepository
	events    repository.EventStore
	carts     repository.CartStore
	publisher *recordingPublisher
	inventory *InventoryService
	catalog   *CatalogService
	orderSvc  *OrderService
	cartSvc   *CartService
}

func price(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func amount(v float64) *float64 { return &v }

func newFixture(t *testing.T, policy TotalPolicy) *fixture {
	t.Helper()
	f := &fixture{
		products:  memory.NewProductRepository(),
		orders:    memory.NewOrderRepository(),
		events:    memory.NewEventStore(),
		carts:     memory.NewCartStore(),
		publisher: &recordingPublisher{},
	}
	require.NoError(t, f.products.Seed(context.Background(), []entity.Product{
		{ID: "apples", Name: "Apples", Category: "fruit", Price: price("4"), Stock: 10, UnitMode: entity.UnitWeight, Status: entity.ProductActive},
		{ID: "bread", Name: "Bread", Category: "bakery", Price: price("2.5"), Stock: 5, UnitMode: entity.UnitPiece, Status: entity.ProductActive},
		{ID: "sample", Name: "Sample", Category: "misc", Stock: 3, UnitMode: entity.UnitPiece, Status: entity.ProductActive},
	}))
	f.inventory = NewInventoryService(f.products, f.publisher)
	f.catalog = NewCatalogService(f.products)
	f.orderSvc = NewOrderService(f.orders, f.products, f.events, f.inventory, f.publisher, policy)
	f.cartSvc = NewCartService(f.carts, f.products, f.orderSvc)
	return f
}

func (f *fixture) stock(t *testing.T, id string) float64 {
	t.Helper()
	p, err := f.products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

// failingPublisher fails every publish.
type failingPublisher struct{}

func (failingPublisher) PublishEvent(context.Context, string, string, any) error {
	return errors.New("broker unavailable")
}
