package product

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/model"
)

var ErrNotFound = errors.New("product not found")

// Publisher emits change events after a write has committed.
type Publisher interface {
	Publish(ctx context.Context, event model.ChangeEvent) error
}

// Fields carries the mutable product fields supplied by a client. The domain
// id and creation timestamp are never part of the payload.
type Fields struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Code        string  `json:"code"`
	Photo       string  `json:"photo"`
	Value       float64 `json:"value"`
	Stock       int     `json:"stock"`
}

// Service owns the product lifecycle: listing, lookup by domain id,
// creation with id allocation, full-replace updates and deletion.
type Service struct {
	store  store.Store
	events Publisher
}

func NewService(st store.Store, events Publisher) *Service {
	return &Service{store: st, events: events}
}

func (s *Service) List(ctx context.Context) ([]model.Product, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []model.Product{}
	}
	return products, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*model.Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return p, err
}

// Create validates the fields, allocates the next product id, stamps the
// creation timestamp and persists the new product.
func (s *Service) Create(ctx context.Context, f Fields) (*model.Product, error) {
	if err := Validate(f); err != nil {
		return nil, err
	}

	id, err := s.store.NextID(ctx, store.EntityProducts)
	if err != nil {
		return nil, err
	}

	p := &model.Product{
		ID:          id,
		Timestamp:   model.Timestamp(),
		Title:       f.Title,
		Description: f.Description,
		Code:        f.Code,
		Photo:       f.Photo,
		Value:       f.Value,
		Stock:       f.Stock,
	}
	if err := s.store.InsertProduct(ctx, p); err != nil {
		return nil, err
	}

	s.publish(ctx, model.ActionCreated, p.ID, p)
	return p, nil
}

// Update overwrites every mutable field of the product. The id and the
// creation timestamp stay as they were.
func (s *Service) Update(ctx context.Context, id int64, f Fields) (*model.Product, error) {
	if err := Validate(f); err != nil {
		return nil, err
	}

	p, err := s.store.GetProduct(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	p.Title = f.Title
	p.Description = f.Description
	p.Code = f.Code
	p.Photo = f.Photo
	p.Value = f.Value
	p.Stock = f.Stock

	if err := s.store.UpdateProduct(ctx, p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.publish(ctx, model.ActionUpdated, p.ID, p)
	return p, nil
}

// Delete removes the product permanently. Carts that already embedded a
// snapshot of it are deliberately left alone.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.store.DeleteProduct(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	s.publish(ctx, model.ActionDeleted, id, nil)
	return nil
}

// publish is best-effort: the write already committed, so a broker hiccup
// is logged instead of failing the request.
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
		Entity:     model.EntityProduct,
		Action:     action,
		DomainID:   id,
		Data:       data,
		OccurredAt: time.Now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		log.Printf("[Product] Failed to publish %s event for product %d: %v", action, id, err)
	}
}
