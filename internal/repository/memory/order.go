package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

type orderRepository struct {
	mu     sync.RWMutex
	orders map[string]entity.Order
}

// NewOrderRepository creates an empty in-memory order read model.
func NewOrderRepository() repository.OrderRepository {
	return &orderRepository{orders: make(map[string]entity.Order)}
}

func cloneOrder(o entity.Order) entity.Order {
	o.Lines = slices.Clone(o.Lines)
	return o
}

// Upsert keeps the newest version of an order; a stale projection write
// never overwrites a newer one.
func (r *orderRepository) Upsert(_ context.Context, o entity.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.orders[o.ID]; ok && cur.Version > o.Version {
		return nil
	}
	r.orders[o.ID] = cloneOrder(o)
	return nil
}

func (r *orderRepository) FindByID(_ context.Context, id string) (entity.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return entity.Order{}, fmt.Errorf("%w: %s", entity.ErrOrderNotFound, id)
	}
	return cloneOrder(o), nil
}

func (r *orderRepository) FindAll(_ context.Context) ([]entity.Order, error) {
	return r.filter(func(entity.Order) bool { return true }), nil
}

func (r *orderRepository) FindByBuyerName(_ context.Context, name string) ([]entity.Order, error) {
	return r.filter(func(o entity.Order) bool { return o.Buyer.Name == name }), nil
}

// filter returns matching orders, most recent first.
func (r *orderRepository) filter(keep func(entity.Order) bool) []entity.Order {
	r.mu.RLock()
	orders := make([]entity.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if keep(o) {
			orders = append(orders, cloneOrder(o))
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(orders, func(a, b entity.Order) int {
		return cmp.Or(b.OrderDate.Compare(a.OrderDate), cmp.Compare(a.ID, b.ID))
	})
	return orders
}
