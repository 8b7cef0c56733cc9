// Package memory provides in-process implementations of the repository
// ports. They are used when no database is configured and in tests.
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

// productEntry guards one product. Stock mutations lock the entry, not the
// whole catalog, so orders on different products never wait on each other.
type productEntry struct {
	mu      sync.Mutex
	product entity.Product
	deleted bool
}

type productRepository struct {
	mu       sync.RWMutex
	products map[string]*productEntry
}

// NewProductRepository creates an empty in-memory ProductRepository.
func NewProductRepository() repository.ProductRepository {
	return &productRepository{products: make(map[string]*productEntry)}
}

func (r *productRepository) entry(id string) (*productEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.products[id]
	return e, ok
}

func (r *productRepository) FindByID(_ context.Context, id string) (entity.Product, error) {
	e, ok := r.entry(id)
	if !ok {
		return entity.Product{}, fmt.Errorf("%w: %s", entity.ErrProductNotFound, id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return entity.Product{}, fmt.Errorf("%w: %s", entity.ErrProductNotFound, id)
	}
	return e.product, nil
}

func (r *productRepository) FindAll(ctx context.Context) ([]entity.Product, error) {
	return r.filter(func(entity.Product) bool { return true }), nil
}

func (r *productRepository) FindByCategory(ctx context.Context, category string) ([]entity.Product, error) {
	return r.filter(func(p entity.Product) bool { return p.Category == category }), nil
}

func (r *productRepository) filter(keep func(entity.Product) bool) []entity.Product {
	r.mu.RLock()
	entries := make([]*productEntry, 0, len(r.products))
	for _, e := range r.products {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	products := make([]entity.Product, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		p, deleted := e.product, e.deleted
		e.mu.Unlock()
		if !deleted && keep(p) {
			products = append(products, p)
		}
	}
	slices.SortFunc(products, func(a, b entity.Product) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return products
}

func (r *productRepository) Save(_ context.Context, p entity.Product) error {
	if p.ID == "" {
		return fmt.Errorf("%w: product id is required", entity.ErrInvalidInput)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.products[p.ID]; ok {
		e.mu.Lock()
		e.product = p
		e.mu.Unlock()
		return nil
	}
	r.products[p.ID] = &productEntry{product: p}
	return nil
}

func (r *productRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.products[id]
	if !ok {
		return fmt.Errorf("%w: %s", entity.ErrProductNotFound, id)
	}
	e.mu.Lock()
	e.deleted = true
	e.mu.Unlock()
	delete(r.products, id)
	return nil
}

func (r *productRepository) Mutate(_ context.Context, id string, fn func(p *entity.Product) error) (entity.Product, error) {
	e, ok := r.entry(id)
	if !ok {
		return entity.Product{}, fmt.Errorf("%w: %s", entity.ErrProductNotFound, id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return entity.Product{}, fmt.Errorf("%w: %s", entity.ErrProductNotFound, id)
	}

	next := e.product
	if err := fn(&next); err != nil {
		return e.product, err
	}
	e.product = next
	return next, nil
}

func (r *productRepository) Seed(_ context.Context, products []entity.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.products) > 0 {
		return nil // already seeded
	}
	for _, p := range products {
		r.products[p.ID] = &productEntry{product: p}
	}
	return nil
}
