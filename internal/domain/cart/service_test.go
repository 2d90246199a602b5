package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/domain/product"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/model"
)

type capturingPublisher struct {
	events []model.ChangeEvent
}

func (p *capturingPublisher) Publish(ctx context.Context, event model.ChangeEvent) error {
	p.events = append(p.events, event)
	return nil
}

type cartFixture struct {
	carts    *Service
	products *product.Service
	store    *store.MemoryStore
	events   *capturingPublisher
}

func newTestCartService() cartFixture {
	st := store.NewMemoryStore()
	events := &capturingPublisher{}
	products := product.NewService(st, nil)
	carts := NewService(st, products, events)
	return cartFixture{carts: carts, products: products, store: st, events: events}
}

func (f cartFixture) createProduct(t *testing.T) *model.Product {
	t.Helper()
	p, err := f.products.Create(context.Background(), product.Fields{
		Title:       "Escuadra",
		Description: "Escuadra de 20cm",
		Code:        "ART-001",
		Value:       123.45,
		Stock:       25,
	})
	require.NoError(t, err)
	return p
}

// ============================================
// Create / Get Tests
// ============================================

func TestService_Create_StartsEmpty(t *testing.T) {
	f := newTestCartService()
	ctx := context.Background()

	c, err := f.carts.Create(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(1), c.ID)
	assert.NotEmpty(t, c.Timestamp)
	assert.Empty(t, c.Products)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, model.EntityCart, f.events.events[0].Entity)
	assert.Equal(t, model.ActionCreated, f.events.events[0].Action)
}

func TestService_Create_IDsIndependentOfProducts(t *testing.T) {
	f := newTestCartService()
	ctx := context.Background()

	// Three products first; the cart counter must still start at 1.
	for i := 0; i < 3; i++ {
		f.createProduct(t)
	}

	c, err := f.carts.Create(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(1), c.ID)
}

func TestService_Get_NotFound(t *testing.T) {
	f := newTestCartService()

	c, err := f.carts.Get(context.Background(), 999)

	assert.Nil(t, c)
	assert.ErrorIs(t, err, ErrNotFound)
}

// ============================================
// AddProduct Tests
// ============================================

func TestService_AddProduct_EmbedsSnapshot(t *testing.T) {
	f := newTestCartService()
	ctx := context.Background()

	p := f.createProduct(t)
	c, err := f.carts.Create(ctx)
	require.NoError(t, err)

	updated, err := f.carts.AddProduct(ctx, c.ID, p.ID)

	require.NoError(t, err)
	require.Len(t, updated.Products, 1)
	assert.Equal(t, p.ID, updated.Products[0].ID)
	assert.Equal(t, p.Title, updated.Products[0].Title)
	assert.Equal(t, p.Value, updated.Products[0].Value)
}

func TestService_AddProduct_DuplicatesAllowed(t *testing.T) {
	f := newTestCartService()
	ctx := context.Background()

	p := f.createProduct(t)
	c, err := f.carts.Create(ctx)
	require.NoError(t, err)

	_, err = f.carts.AddProduct(ctx, c.ID, p.ID)
	require.NoError(t, err)
	updated, err := f.carts.AddProduct(ctx, c.ID, p.ID)
	require.NoError(t, err)

	require.Len(t, updated.Products, 2)
	assert.Equal(t, p.ID, updated.Products[0].ID)
	assert.Equal(t, p.ID, updated.Products[1].ID)
}

func TestService_AddProduct_UnknownProductLeavesCartUntouched(t *testing.T) {
	f := newTestCartService()
	ctx := context.Background()

	c, err := f.carts.Create(ctx)
	require.NoError(t, err)

	_, err = f.carts.AddProduct(ctx, c.ID, 999)
	assert.ErrorIs(t, err, product.ErrNotFound)

	got, err := f.carts.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Products)
}

func TestService_AddProduct_UnknownCart(t *testing.T) {
	f := newTestCartService()
	ctx := context.Background()

	p := f.createProduct(t)

	_, err := f.carts.AddProduct(ctx, 999, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_AddProduct_SnapshotFrozenAtAddTime(t *testing.T) {
	f := newTestCartService()
	ctx := context.Background()

	p := f.createProduct(t)
	c, err := f.carts.Create(ctx)
	require.NoError(t, err)

	_, err = f.carts.AddProduct(ctx, c.ID, p.ID)
	require.NoError(t, err)

	// Editing and even deleting the catalog product must not touch the
	// embedded copy.
	_, err = f.products.Update(ctx, p.ID, product.Fields{
		Title:       "Otro titulo",
		Description: "Otra descripcion",
		Value:       999,
		Stock:       1,
	})
	require.NoError(t, err)
	require.NoError(t, f.products.Delete(ctx, p.ID))

	got, err := f.carts.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Products, 1)
	assert.Equal(t, "Escuadra", got.Products[0].Title)
	assert.Equal(t, 123.45, got.Products[0].Value)
}

// ============================================
// RemoveProduct Tests
// ============================================

func TestService_RemoveProduct_RemovesAllMatches(t *testing.T) {
	f := newTestCartService()
	ctx := context.Background()

	first := f.createProduct(t)
	second := f.createProduct(t)
	c, err := f.carts.Create(ctx)
	require.NoError(t, err)

	_, err = f.carts.AddProduct(ctx, c.ID, first.ID)
	require.NoError(t, err)
	_, err = f.carts.AddProduct(ctx, c.ID, second.ID)
	require.NoError(t, err)
	_, err = f.carts.AddProduct(ctx, c.ID, first.ID)
	require.NoError(t, err)

	updated, err := f.carts.RemoveProduct(ctx, c.ID, first.ID)

	require.NoError(t, err)
	require.Len(t, updated.Products, 1)
	assert.Equal(t, second.ID, updated.Products[0].ID)
}

func TestService_RemoveProduct_AddThenRemoveRestoresCart(t *testing.T) {
	f := newTestCartService()
	ctx := context.Background()

	p := f.createProduct(t)
	c, err := f.carts.Create(ctx)
	require.NoError(t, err)

	_, err = f.carts.AddProduct(ctx, c.ID, p.ID)
	require.NoError(t, err)
	updated, err := f.carts.RemoveProduct(ctx, c.ID, p.ID)

	require.NoError(t, err)
	assert.Empty(t, updated.Products)
}

func TestService_RemoveProduct_NotInCart(t *testing.T) {
	f := newTestCartService()
	ctx := context.Background()

	p := f.createProduct(t)
	other := f.createProduct(t)
	c, err := f.carts.Create(ctx)
	require.NoError(t, err)

	_, err = f.carts.AddProduct(ctx, c.ID, p.ID)
	require.NoError(t, err)

	_, err = f.carts.RemoveProduct(ctx, c.ID, other.ID)
	assert.ErrorIs(t, err, ErrProductNotInCart)

	got, err := f.carts.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, got.Products, 1)
}

func TestService_RemoveProduct_UnknownCart(t *testing.T) {
	f := newTestCartService()

	_, err := f.carts.RemoveProduct(context.Background(), 999, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

// ============================================
// Delete Tests
// ============================================

func TestService_Delete_Success(t *testing.T) {
	f := newTestCartService()
	ctx := context.Background()

	c, err := f.carts.Create(ctx)
	require.NoError(t, err)

	err = f.carts.Delete(ctx, c.ID)
	require.NoError(t, err)

	_, err = f.carts.Get(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Delete_NotFound(t *testing.T) {
	f := newTestCartService()

	err := f.carts.Delete(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

// ============================================
// Conflict Retry Tests
// ============================================

// conflictingStore wraps the memory store and forces the first UpdateCart
// calls to fail with ErrConflict, simulating a racing writer.
type conflictingStore struct {
	*store.MemoryStore
	remaining int
}

func (s *conflictingStore) UpdateCart(ctx context.Context, c *model.Cart) error {
	if s.remaining > 0 {
		s.remaining--
		return store.ErrConflict
	}
	return s.MemoryStore.UpdateCart(ctx, c)
}

func TestService_AddProduct_RetriesOnConflict(t *testing.T) {
	mem := store.NewMemoryStore()
	st := &conflictingStore{MemoryStore: mem, remaining: 2}
	products := product.NewService(mem, nil)
	carts := NewService(st, products, nil)
	ctx := context.Background()

	p, err := products.Create(ctx, product.Fields{Title: "Escuadra", Description: "Escuadra de 20cm"})
	require.NoError(t, err)
	c, err := carts.Create(ctx)
	require.NoError(t, err)

	updated, err := carts.AddProduct(ctx, c.ID, p.ID)

	require.NoError(t, err)
	assert.Len(t, updated.Products, 1)
	assert.Zero(t, st.remaining)
}

func TestService_AddProduct_GivesUpAfterRepeatedConflicts(t *testing.T) {
	mem := store.NewMemoryStore()
	st := &conflictingStore{MemoryStore: mem, remaining: maxWriteAttempts}
	products := product.NewService(mem, nil)
	carts := NewService(st, products, nil)
	ctx := context.Background()

	p, err := products.Create(ctx, product.Fields{Title: "Escuadra", Description: "Escuadra de 20cm"})
	require.NoError(t, err)
	c, err := carts.Create(ctx)
	require.NoError(t, err)

	_, err = carts.AddProduct(ctx, c.ID, p.ID)
	assert.Error(t, err)
}
