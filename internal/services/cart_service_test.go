package services

import (
	"context"
	"testing"

	apperrors "github.com/counterjob/backend/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shopper = "jane.doe@gmail.com"

func newCartService(carts *memCarts) *CartService {
	return NewCartService(carts, NewProductService(newMemProducts(milk, chips), nil, nil))
}

func TestCartGetEmpty(t *testing.T) {
	cart, err := newCartService(newMemCarts()).Get(context.Background(), shopper)
	require.NoError(t, err)
	assert.NotNil(t, cart.Items)
	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.Total)
}

func TestCartAddItemMergesLines(t *testing.T) {
	carts := newMemCarts()
	svc := newCartService(carts)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, shopper, milk.Barcode, 0)
	require.NoError(t, err)
	cart, err := svc.AddItem(ctx, shopper, milk.Barcode, 2)
	require.NoError(t, err)
	cart, err = svc.AddItem(ctx, shopper, chips.Barcode, 1)
	require.NoError(t, err)

	require.Len(t, cart.Items, 2)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, 269.25, cart.Items[0].Subtotal)
	assert.Equal(t, "Alaska", cart.Items[0].Brand)
	assert.False(t, cart.Items[0].AddedAt.IsZero())
	assert.Equal(t, 304.75, cart.Total)

	stored, err := carts.Get(ctx, shopper)
	require.NoError(t, err)
	assert.Equal(t, 304.75, stored.Total)
}

func TestCartAddItemRespectsStock(t *testing.T) {
	svc := newCartService(newMemCarts())
	ctx := context.Background()

	_, err := svc.AddItem(ctx, shopper, chips.Barcode, 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, shopper, chips.Barcode, 1)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
	assert.Equal(t, "Only 2 of Piattos in stock (2 already in cart)", apperrors.From(err).Message)

	_, err = svc.AddItem(ctx, shopper, "unknown", 1)
	assert.ErrorIs(t, err, apperrors.ErrProductNotFound)

	_, err = svc.AddItem(ctx, shopper, milk.Barcode, -2)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestCartUpdateQuantity(t *testing.T) {
	svc := newCartService(newMemCarts())
	ctx := context.Background()

	_, err := svc.AddItem(ctx, shopper, milk.Barcode, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, shopper, chips.Barcode, 1)
	require.NoError(t, err)

	cart, err := svc.UpdateQuantity(ctx, shopper, milk.Barcode, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, cart.Items[0].Quantity)
	assert.Equal(t, 394.5, cart.Total)

	_, err = svc.UpdateQuantity(ctx, shopper, milk.Barcode, 6)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	cart, err = svc.UpdateQuantity(ctx, shopper, milk.Barcode, 0)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, chips.Barcode, cart.Items[0].Barcode)
	assert.Equal(t, 35.5, cart.Total)

	_, err = svc.UpdateQuantity(ctx, shopper, milk.Barcode, 1)
	assert.ErrorIs(t, err, apperrors.ErrItemNotInCart)
}

func TestCartRemoveAndClear(t *testing.T) {
	carts := newMemCarts()
	svc := newCartService(carts)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, shopper, milk.Barcode, 1)
	require.NoError(t, err)

	_, err = svc.RemoveItem(ctx, shopper, chips.Barcode)
	assert.ErrorIs(t, err, apperrors.ErrItemNotInCart)

	cart, err := svc.RemoveItem(ctx, shopper, milk.Barcode)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.Total)

	_, err = svc.AddItem(ctx, shopper, milk.Barcode, 1)
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx, shopper))
	_, err = carts.Get(ctx, shopper)
	assert.Error(t, err)
}

func TestCartSummaryVATInclusive(t *testing.T) {
	svc := newCartService(newMemCarts())
	cart, err := svc.AddItem(context.Background(), shopper, milk.Barcode, 2)
	require.NoError(t, err)

	sum := cart.Summary()
	assert.Equal(t, 2, sum.ItemCount)
	assert.Equal(t, 179.5, sum.Total)
	assert.Equal(t, 157.96, sum.Subtotal)
	assert.Equal(t, 21.54, sum.VAT)
}
