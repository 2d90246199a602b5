package store

import (
	"context"
	"errors"

	"github.com/example/storefront/internal/model"
)

// Entity classes with allocated domain ids.
const (
	EntityProducts = "products"
	EntityCarts    = "carts"
)

var (
	// ErrNotFound means no document matches the given domain id (or username).
	ErrNotFound = errors.New("document not found")
	// ErrConflict means a revision-checked write lost to a concurrent writer.
	ErrConflict = errors.New("document revision conflict")
	// ErrDuplicate means a unique key (domain id, username) already exists.
	ErrDuplicate = errors.New("duplicate key")
)

// Store is the document gateway. Documents are addressed by their integer
// domain id (users by username); the storage primary key stays internal.
type Store interface {
	// NextID atomically allocates the next domain id for an entity class.
	NextID(ctx context.Context, entity string) (int64, error)

	ListProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	InsertProduct(ctx context.Context, p *model.Product) error
	// UpdateProduct overwrites all mutable fields of the product with the
	// given domain id. The stored id and timestamp are left untouched.
	UpdateProduct(ctx context.Context, p *model.Product) error
	DeleteProduct(ctx context.Context, id int64) error

	GetCart(ctx context.Context, id int64) (*model.Cart, error)
	InsertCart(ctx context.Context, c *model.Cart) error
	// UpdateCart replaces the cart's product snapshots if and only if the
	// stored revision still equals c.Revision; ErrConflict otherwise.
	UpdateCart(ctx context.Context, c *model.Cart) error
	DeleteCart(ctx context.Context, id int64) error

	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	InsertUser(ctx context.Context, u *model.User) error
}
