package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/storefront/internal/model"
	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used for tests and local development.
// Documents are copied on the way in and out so callers never alias the
// stored state.
type MemoryStore struct {
	mu       sync.RWMutex
	counters map[string]int64
	products map[int64]model.Product
	carts    map[int64]model.Cart
	users    map[string]model.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counters: make(map[string]int64),
		products: make(map[int64]model.Product),
		carts:    make(map[int64]model.Cart),
		users:    make(map[string]model.User),
	}
}

func (s *MemoryStore) NextID(ctx context.Context, entity string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[entity]++
	return s.counters[entity], nil
}

// Product operations

func (s *MemoryStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]model.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (s *MemoryStore) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) InsertProduct(ctx context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[p.ID]; ok {
		return ErrDuplicate
	}
	if p.Key == "" {
		p.Key = uuid.New().String()
	}
	s.products[p.ID] = *p
	return nil
}

func (s *MemoryStore) UpdateProduct(ctx context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.products[p.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Title = p.Title
	stored.Description = p.Description
	stored.Code = p.Code
	stored.Photo = p.Photo
	stored.Value = p.Value
	stored.Stock = p.Stock
	s.products[p.ID] = stored
	return nil
}

func (s *MemoryStore) DeleteProduct(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return ErrNotFound
	}
	delete(s.products, id)
	return nil
}

// Cart operations

func (s *MemoryStore) GetCart(ctx context.Context, id int64) (*model.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.carts[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := c
	out.Products = append([]model.Product(nil), c.Products...)
	if out.Products == nil {
		out.Products = []model.Product{}
	}
	return &out, nil
}

func (s *MemoryStore) InsertCart(ctx context.Context, c *model.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.carts[c.ID]; ok {
		return ErrDuplicate
	}
	if c.Key == "" {
		c.Key = uuid.New().String()
	}
	stored := *c
	stored.Revision = 0
	stored.Products = append([]model.Product(nil), c.Products...)
	s.carts[c.ID] = stored
	return nil
}

func (s *MemoryStore) UpdateCart(ctx context.Context, c *model.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.carts[c.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Revision != c.Revision {
		return ErrConflict
	}
	stored.Products = append([]model.Product(nil), c.Products...)
	stored.Revision++
	s.carts[c.ID] = stored
	c.Revision = stored.Revision
	return nil
}

func (s *MemoryStore) DeleteCart(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.carts[id]; !ok {
		return ErrNotFound
	}
	delete(s.carts, id)
	return nil
}

// User operations

func (s *MemoryStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) InsertUser(ctx context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.Username]; ok {
		return ErrDuplicate
	}
	if u.Key == "" {
		u.Key = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	s.users[u.Username] = *u
	return nil
}
