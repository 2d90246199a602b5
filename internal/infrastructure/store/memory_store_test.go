package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/model"
)

func testProduct(id int64) *model.Product {
	return &model.Product{
		ID:          id,
		Timestamp:   model.Timestamp(),
		Title:       "Escuadra",
		Description: "Escuadra de 20cm",
		Code:        "ART-001",
		Value:       123.45,
		Stock:       25,
	}
}

// ============================================
// NextID Tests
// ============================================

func TestMemoryStore_NextID_Sequential(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for want := int64(1); want <= 5; want++ {
		id, err := s.NextID(ctx, EntityProducts)
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
}

func TestMemoryStore_NextID_IndependentPerEntity(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.NextID(ctx, EntityProducts)
		require.NoError(t, err)
	}

	id, err := s.NextID(ctx, EntityCarts)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestMemoryStore_NextID_ConcurrentUnique(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	const workers = 50
	ids := make(chan int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := s.NextID(ctx, EntityProducts)
			assert.NoError(t, err)
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		assert.False(t, seen[id], "id %d allocated twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers)
}

// ============================================
// Product Tests
// ============================================

func TestMemoryStore_Product_InsertGetDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.InsertProduct(ctx, testProduct(1)))

	got, err := s.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Escuadra", got.Title)
	assert.NotEmpty(t, got.Key)

	require.NoError(t, s.DeleteProduct(ctx, 1))

	_, err = s.GetProduct(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Product_InsertDuplicate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.InsertProduct(ctx, testProduct(1)))
	err := s.InsertProduct(ctx, testProduct(1))
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMemoryStore_Product_UpdateKeepsIDAndTimestamp(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	original := testProduct(1)
	require.NoError(t, s.InsertProduct(ctx, original))

	changed := testProduct(1)
	changed.Timestamp = "01/01/2000 00:00:00"
	changed.Title = "Otro"
	require.NoError(t, s.UpdateProduct(ctx, changed))

	got, err := s.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Otro", got.Title)
	assert.Equal(t, original.Timestamp, got.Timestamp)
}

func TestMemoryStore_ListProducts_SortedByID(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.InsertProduct(ctx, testProduct(3)))
	require.NoError(t, s.InsertProduct(ctx, testProduct(1)))
	require.NoError(t, s.InsertProduct(ctx, testProduct(2)))

	products, err := s.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, int64(1), products[0].ID)
	assert.Equal(t, int64(2), products[1].ID)
	assert.Equal(t, int64(3), products[2].ID)
}

// ============================================
// Cart Tests
// ============================================

func TestMemoryStore_Cart_RoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	c := &model.Cart{ID: 1, Timestamp: model.Timestamp(), Products: []model.Product{}}
	require.NoError(t, s.InsertCart(ctx, c))

	got, err := s.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
	assert.NotNil(t, got.Products)
	assert.Empty(t, got.Products)
}

func TestMemoryStore_UpdateCart_RevisionMismatch(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.InsertCart(ctx, &model.Cart{ID: 1, Products: []model.Product{}}))

	// Two readers load the same revision; the second write must lose.
	first, err := s.GetCart(ctx, 1)
	require.NoError(t, err)
	second, err := s.GetCart(ctx, 1)
	require.NoError(t, err)

	first.Products = append(first.Products, *testProduct(10))
	require.NoError(t, s.UpdateCart(ctx, first))

	second.Products = append(second.Products, *testProduct(20))
	err = s.UpdateCart(ctx, second)
	assert.ErrorIs(t, err, ErrConflict)

	got, err := s.GetCart(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got.Products, 1)
	assert.Equal(t, int64(10), got.Products[0].ID)
}

func TestMemoryStore_UpdateCart_BumpsRevision(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.InsertCart(ctx, &model.Cart{ID: 1, Products: []model.Product{}}))

	c, err := s.GetCart(ctx, 1)
	require.NoError(t, err)

	c.Products = append(c.Products, *testProduct(10))
	require.NoError(t, s.UpdateCart(ctx, c))

	// The returned revision is current, so a follow-up write succeeds.
	c.Products = append(c.Products, *testProduct(11))
	require.NoError(t, s.UpdateCart(ctx, c))

	got, err := s.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, got.Products, 2)
}

func TestMemoryStore_UpdateCart_NotFound(t *testing.T) {
	s := NewMemoryStore()

	err := s.UpdateCart(context.Background(), &model.Cart{ID: 999})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_GetCart_ReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.InsertCart(ctx, &model.Cart{ID: 1, Products: []model.Product{*testProduct(10)}}))

	got, err := s.GetCart(ctx, 1)
	require.NoError(t, err)
	got.Products[0].Title = "mutated"

	again, err := s.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Escuadra", again.Products[0].Title)
}

// ============================================
// User Tests
// ============================================

func TestMemoryStore_User_InsertAndLookup(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	u := &model.User{Username: "martin", PasswordHash: "hash"}
	require.NoError(t, s.InsertUser(ctx, u))
	assert.NotEmpty(t, u.Key)
	assert.False(t, u.CreatedAt.IsZero())

	got, err := s.GetUserByUsername(ctx, "martin")
	require.NoError(t, err)
	assert.Equal(t, "hash", got.PasswordHash)

	_, err = s.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_User_DuplicateUsername(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.InsertUser(ctx, &model.User{Username: "martin"}))
	err := s.InsertUser(ctx, &model.User{Username: "martin"})
	assert.ErrorIs(t, err, ErrDuplicate)
}
