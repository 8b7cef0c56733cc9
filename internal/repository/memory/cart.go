package memory

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

const cartShardCount = 64

// cartShard guards a partition of the users. A user always maps to the same
// shard, so all mutations of one cart are serialized.
type cartShard struct {
	sync.Mutex
	carts map[string]*entity.Cart
}

type cartStore struct {
	shards [cartShardCount]*cartShard
}

// NewCartStore creates an in-memory CartStore.
func NewCartStore() repository.CartStore {
	s := &cartStore{}
	for i := range s.shards {
		s.shards[i] = &cartShard{carts: make(map[string]*entity.Cart)}
	}
	return s
}

// shard picks the shard of userID using FNV-1a.
func (s *cartStore) shard(userID string) *cartShard {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return s.shards[h.Sum32()%cartShardCount]
}

func (s *cartStore) Add(_ context.Context, userID, productID string, amount float64) (float64, error) {
	sh := s.shard(userID)
	sh.Lock()
	defer sh.Unlock()

	cart, ok := sh.carts[userID]
	if !ok {
		cart = entity.NewCart(userID)
	}
	got := cart.Add(productID, amount)
	if cart.Empty() {
		delete(sh.carts, userID)
	} else {
		sh.carts[userID] = cart
	}
	return got, nil
}

func (s *cartStore) Get(_ context.Context, userID string) (map[string]float64, error) {
	sh := s.shard(userID)
	sh.Lock()
	defer sh.Unlock()

	cart, ok := sh.carts[userID]
	if !ok {
		return map[string]float64{}, nil
	}
	return cart.Snapshot(), nil
}

func (s *cartStore) Remove(_ context.Context, userID, productID string) error {
	sh := s.shard(userID)
	sh.Lock()
	defer sh.Unlock()

	cart, ok := sh.carts[userID]
	if !ok {
		return nil
	}
	cart.Remove(productID)
	if cart.Empty() {
		delete(sh.carts, userID)
	}
	return nil
}

func (s *cartStore) Clear(_ context.Context, userID string) error {
	sh := s.shard(userID)
	sh.Lock()
	defer sh.Unlock()
	delete(sh.carts, userID)
	return nil
}

// users reports how many carts are held; used by tests to check that empty
// carts are dropped.
func (s *cartStore) users() int {
	n := 0
	for _, sh := range s.shards {
		sh.Lock()
		n += len(sh.carts)
		sh.Unlock()
	}
	return n
}
