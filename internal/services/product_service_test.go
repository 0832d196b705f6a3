package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/counterjob/backend/internal/cache"
	apperrors "github.com/counterjob/backend/internal/errors"
	"github.com/counterjob/backend/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductDetailUnknownBarcode(t *testing.T) {
	svc := NewProductService(newMemProducts(milk), nil, nil)

	view, err := svc.Detail(context.Background(), "0000000000000")
	require.NoError(t, err)
	assert.True(t, view.NotFound)
	assert.Equal(t, "Unknown Product", view.Name)
	assert.Equal(t, "Unknown", view.Category)
	assert.Equal(t, "This product is not in our database.", view.Description)
	assert.Equal(t, "0000000000000", view.Barcode)
	assert.Zero(t, view.Price)
	assert.Zero(t, view.Stock)

	view, err = svc.Detail(context.Background(), milk.Barcode)
	require.NoError(t, err)
	assert.False(t, view.NotFound)
	assert.Equal(t, "Fresh Milk", view.Name)
}

func TestProductGetByBarcodeAbsent(t *testing.T) {
	svc := NewProductService(newMemProducts(), nil, nil)

	p, err := svc.GetByBarcode(context.Background(), "123")
	assert.NoError(t, err)
	assert.Nil(t, p)

	p, err = svc.GetByBarcode(context.Background(), "  ")
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestProductCreate(t *testing.T) {
	svc := NewProductService(newMemProducts(milk), nil, nil)
	ctx := context.Background()

	p, err := svc.Create(ctx, &models.CreateProductRequest{Barcode: " 111 ", Name: "Bread", Price: 45.999, Stock: 3})
	require.NoError(t, err)
	assert.Equal(t, "111", p.Barcode)
	assert.Equal(t, 46.0, p.Price)
	assert.NotEmpty(t, p.ID)

	_, err = svc.Create(ctx, &models.CreateProductRequest{Barcode: milk.Barcode, Name: "Dup"})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateBarcode)
	assert.Equal(t, 409, apperrors.From(err).Code)

	_, err = svc.Create(ctx, &models.CreateProductRequest{Barcode: "TXN1", Name: "Bad"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.Create(ctx, &models.CreateProductRequest{Barcode: "222", Name: "Bad", Stock: -1})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, "Stock must not be negative", apperrors.From(err).Message)

	_, err = svc.Create(ctx, &models.CreateProductRequest{Barcode: "333", Name: "   "})
	assert.Equal(t, "Name is required", apperrors.From(err).Message)

	_, err = svc.Create(ctx, &models.CreateProductRequest{Barcode: strings.Repeat("9", 65), Name: "Long"})
	assert.Equal(t, "Barcode is too long", apperrors.From(err).Message)
}

func TestProductUpdateStock(t *testing.T) {
	svc := NewProductService(newMemProducts(milk), nil, nil)

	p, err := svc.UpdateStock(context.Background(), milk.Barcode, 42)
	require.NoError(t, err)
	assert.Equal(t, 42, p.Stock)

	_, err = svc.UpdateStock(context.Background(), "nope", 1)
	assert.ErrorIs(t, err, apperrors.ErrProductNotFound)
	assert.Equal(t, "Product not found", apperrors.From(err).Message)

	_, err = svc.UpdateStock(context.Background(), milk.Barcode, -1)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestProductFindInCatalog(t *testing.T) {
	svc := NewProductService(newMemProducts(milk, chips), nil, nil)

	p, err := svc.FindInCatalog(context.Background(), chips.Barcode)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Piattos", p.Name)

	p, err = svc.FindInCatalog(context.Background(), "999")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestProductStockUpdateInvalidatesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	pc := cache.NewProductCache(client, time.Minute)

	repo := newMemProducts(milk)
	svc := NewProductService(repo, pc, nil)
	ctx := context.Background()

	_, err := svc.GetByBarcode(ctx, milk.Barcode)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return mr.Exists("product:barcode:" + milk.Barcode + ":v0") }, time.Second, 10*time.Millisecond)

	_, err = svc.UpdateStock(ctx, milk.Barcode, 1)
	require.NoError(t, err)
	assert.False(t, mr.Exists("product:barcode:"+milk.Barcode+":v0"))

	p, err := svc.GetByBarcode(ctx, milk.Barcode)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Stock)
}

// restockingProducts changes stock right after a List read, as a concurrent
// checkout would.
type restockingProducts struct {
	*memProducts
	onList func()
}

func (r *restockingProducts) List(ctx context.Context) ([]models.Product, error) {
	out, err := r.memProducts.List(ctx)
	if r.onList != nil {
		r.onList()
		r.onList = nil
	}
	return out, err
}

func TestProductListNotCachedAcrossConcurrentStockChange(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	pc := cache.NewProductCache(client, time.Minute)

	mem := newMemProducts(milk)
	repo := &restockingProducts{memProducts: mem}
	svc := NewProductService(repo, pc, nil)
	ctx := context.Background()

	repo.onList = func() {
		_, err := svc.UpdateStock(ctx, milk.Barcode, 0)
		require.NoError(t, err)
	}

	first, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, milk.Stock, first[0].Stock)

	// the stale fill lands under the version seen before the read
	require.Eventually(t, func() bool { return mr.Exists("products:v:0") }, time.Second, 10*time.Millisecond)

	second, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, 0, second[0].Stock)
}
