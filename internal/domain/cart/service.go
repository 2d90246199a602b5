package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/model"
)

var (
	ErrNotFound         = errors.New("cart not found")
	ErrProductNotInCart = errors.New("product not in cart")
)

// maxWriteAttempts bounds the retry loop around revision-checked cart
// rewrites. Conflicts only occur when two writers race on the same cart.
const maxWriteAttempts = 3

// Publisher emits change events after a write has committed.
type Publisher interface {
	Publish(ctx context.Context, event model.ChangeEvent) error
}

// ProductResolver looks up a live product so a full snapshot of it can be
// embedded into a cart. The catalog service satisfies this.
type ProductResolver interface {
	Get(ctx context.Context, id int64) (*model.Product, error)
}

// Service owns the cart lifecycle and the snapshot list inside each cart.
// Snapshots are copies frozen at add-time: later product edits or deletes
// never propagate into carts that already embedded the product.
type Service struct {
	store    store.Store
	products ProductResolver
	events   Publisher
}

func NewService(st store.Store, products ProductResolver, events Publisher) *Service {
	return &Service{store: st, products: products, events: events}
}

func (s *Service) Get(ctx context.Context, id int64) (*model.Cart, error) {
	c, err := s.store.GetCart(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return c, err
}

// Create allocates the next cart id and persists an empty cart. Carts start
// with no products; there are no creation fields.
func (s *Service) Create(ctx context.Context) (*model.Cart, error) {
	id, err := s.store.NextID(ctx, store.EntityCarts)
	if err != nil {
		return nil, err
	}

	c := &model.Cart{
		ID:        id,
		Timestamp: model.Timestamp(),
		Products:  []model.Product{},
	}
	if err := s.store.InsertCart(ctx, c); err != nil {
		return nil, err
	}

	s.publish(ctx, model.ActionCreated, c.ID, c)
	return c, nil
}

// AddProduct appends a full snapshot of the resolved product to the cart's
// product list. Appending is unconditional: adding the same product twice
// leaves two snapshot entries.
func (s *Service) AddProduct(ctx context.Context, cartID, productID int64) (*model.Cart, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		c, err := s.Get(ctx, cartID)
		if err != nil {
			return nil, err
		}

		// Resolve the product before touching the cart; an unknown
		// product must fail without any mutation.
		p, err := s.products.Get(ctx, productID)
		if err != nil {
			return nil, err
		}

		c.Products = append(c.Products, *p)

		err = s.store.UpdateCart(ctx, c)
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}

		s.publish(ctx, model.ActionUpdated, c.ID, c)
		return c, nil
	}
	return nil, fmt.Errorf("add product %d to cart %d: too many conflicting writes", productID, cartID)
}

// RemoveProduct rewrites the snapshot list excluding every entry whose
// embedded id matches productID. When no entry matches, the cart is left
// untouched and ErrProductNotInCart is returned.
func (s *Service) RemoveProduct(ctx context.Context, cartID, productID int64) (*model.Cart, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		c, err := s.Get(ctx, cartID)
		if err != nil {
			return nil, err
		}

		filtered := make([]model.Product, 0, len(c.Products))
		for _, p := range c.Products {
			if p.ID != productID {
				filtered = append(filtered, p)
			}
		}
		if len(filtered) == len(c.Products) {
			return nil, ErrProductNotInCart
		}
		c.Products = filtered

		err = s.store.UpdateCart(ctx, c)
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}

		s.publish(ctx, model.ActionUpdated, c.ID, c)
		return c, nil
	}
	return nil, fmt.Errorf("remove product %d from cart %d: too many conflicting writes", productID, cartID)
}

// Delete removes the cart permanently.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.store.DeleteCart(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	s.publish(ctx, model.ActionDeleted, id, nil)
	return nil
}

func (s *Service) publish(ctx context.Context, action string, id int64, doc any) {
	if s.events == nil {
		return
	}
	var data json.RawMessage
	if doc != nil {
		data, _ = json.Marshal(doc)
	}
	event := model.ChangeEvent{
		ID:         uuid.New().String(),
		Entity:     model.EntityCart,
		Action:     action,
		DomainID:   id,
		Data:       data,
		OccurredAt: time.Now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		log.Printf("[Cart] Failed to publish %s event for cart %d: %v", action, id, err)
	}
}
