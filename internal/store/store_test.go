package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "inventory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func strptr(s string) *string { return &s }

func TestCreateProduct(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	product, err := s.CreateProduct(ctx, "Su", strptr("100"), "shelf A", decimal.NewFromFloat(5.0))
	require.NoError(t, err)
	assert.NotZero(t, product.ID)
	assert.True(t, product.InitialPrice.Equal(decimal.NewFromFloat(5.0)))

	retrieved, err := s.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Su", retrieved.Name)
	require.NotNil(t, retrieved.Barcode)
	assert.Equal(t, "100", *retrieved.Barcode)
	assert.True(t, retrieved.UnitPrice.Equal(decimal.NewFromFloat(5.0)))
	assert.False(t, retrieved.CreatedAt.IsZero())
}

func TestCreateProductRequiresName(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateProduct(context.Background(), "   ", nil, "", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateProductRejectsNegativePrice(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateProduct(context.Background(), "Su", nil, "", decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDuplicateBarcode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateProduct(ctx, "first", strptr("4007817525074"), "", decimal.NewFromInt(5))
	require.NoError(t, err)

	_, err = s.CreateProduct(ctx, "second", strptr("4007817525074"), "", decimal.NewFromInt(9))
	assert.ErrorIs(t, err, ErrDuplicateBarcode)
}

func TestNilBarcodesDoNotCollide(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateProduct(ctx, "one", nil, "", decimal.NewFromInt(1))
	require.NoError(t, err)

	// An empty barcode is normalized to null, so it must not collide
	// either.
	_, err = s.CreateProduct(ctx, "two", strptr("  "), "", decimal.NewFromInt(1))
	assert.NoError(t, err)
}

func TestFindByBarcode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateProduct(ctx, "Su", strptr("100"), "", decimal.NewFromInt(5))
	require.NoError(t, err)

	found, err := s.FindByBarcode(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = s.FindByBarcode(ctx, "does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListProductsOrderedByName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"celery", "apple", "bread"} {
		_, err := s.CreateProduct(ctx, name, nil, "", decimal.NewFromInt(1))
		require.NoError(t, err)
	}

	products, err := s.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "apple", products[0].Name)
	assert.Equal(t, "bread", products[1].Name)
	assert.Equal(t, "celery", products[2].Name)
}

func TestSearchProducts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateProduct(ctx, "green tea", strptr("1234567890128"), "", decimal.NewFromInt(3))
	require.NoError(t, err)
	_, err = s.CreateProduct(ctx, "coffee", strptr("5901234123457"), "", decimal.NewFromInt(4))
	require.NoError(t, err)

	byName, err := s.SearchProducts(ctx, "tea")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "green tea", byName[0].Name)

	byBarcode, err := s.SearchProducts(ctx, "590123")
	require.NoError(t, err)
	require.Len(t, byBarcode, 1)
	assert.Equal(t, "coffee", byBarcode[0].Name)

	none, err := s.SearchProducts(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpdateUnitPrice(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	product, err := s.CreateProduct(ctx, "Su", nil, "", decimal.NewFromFloat(5.0))
	require.NoError(t, err)

	require.NoError(t, s.UpdateUnitPrice(ctx, product.ID, decimal.NewFromFloat(6.0)))

	updated, err := s.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, updated.UnitPrice.Equal(decimal.NewFromFloat(6.0)))
	// The initial price is immutable.
	assert.True(t, updated.InitialPrice.Equal(decimal.NewFromFloat(5.0)))
}

func TestUpdateUnitPriceNotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateUnitPrice(context.Background(), 9999, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteProductCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	product, err := s.CreateProduct(ctx, "Su", strptr("100"), "", decimal.NewFromInt(5))
	require.NoError(t, err)

	price := decimal.NewFromInt(5)
	_, err = s.RecordMovement(ctx, product.ID, 10, "PURCHASE", &price, false)
	require.NoError(t, err)
	_, err = s.RecordMovement(ctx, product.ID, -1, "SALE", nil, false)
	require.NoError(t, err)

	deleted, err := s.DeleteProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = s.GetProduct(ctx, product.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	movements, err := s.MovementsForProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Empty(t, movements)
}

func TestDeleteProductRollsBackOnMidDeleteFailure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	product, err := s.CreateProduct(ctx, "Su", strptr("100"), "", decimal.NewFromInt(5))
	require.NoError(t, err)

	price := decimal.NewFromInt(5)
	_, err = s.RecordMovement(ctx, product.ID, 10, "PURCHASE", &price, false)
	require.NoError(t, err)
	_, err = s.RecordMovement(ctx, product.ID, -1, "SALE", nil, false)
	require.NoError(t, err)

	// Make the product delete fail after the movements delete has
	// already run inside the same transaction.
	_, err = s.DB().Exec(`
		CREATE TRIGGER block_product_delete BEFORE DELETE ON products
		BEGIN SELECT RAISE(ABORT, 'forced delete failure'); END`)
	require.NoError(t, err)

	deleted, err := s.DeleteProduct(ctx, product.ID)
	assert.ErrorIs(t, err, ErrConstraint)
	assert.False(t, deleted)

	_, err = s.DB().Exec("DROP TRIGGER block_product_delete")
	require.NoError(t, err)

	// Never a half state: the product and its whole history survive.
	survivor, err := s.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Su", survivor.Name)

	movements, err := s.MovementsForProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Len(t, movements, 2)
}

func TestDeleteMissingProductReturnsFalse(t *testing.T) {
	s := newTestStore(t)

	deleted, err := s.DeleteProduct(context.Background(), 424242)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestCommitHookFiresPerMutation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var count int
	s.SetCommitHook(func() { count++ })

	product, err := s.CreateProduct(ctx, "Su", nil, "", decimal.NewFromInt(5))
	require.NoError(t, err)
	_, err = s.RecordMovement(ctx, product.ID, 3, "ADJUST", nil, false)
	require.NoError(t, err)
	require.NoError(t, s.UpdateUnitPrice(ctx, product.ID, decimal.NewFromInt(6)))

	assert.Equal(t, 3, count)

	// Failed mutations must not count.
	_, err = s.RecordMovement(ctx, 9999, 1, "ADJUST", nil, false)
	require.Error(t, err)
	assert.Equal(t, 3, count)
}
