package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/counterjob/backend/internal/errors"
	"github.com/counterjob/backend/internal/models"
	"github.com/counterjob/backend/internal/repository"
)

type CartService struct {
	carts    repository.CartRepository
	products *ProductService
	now      func() time.Time
}

func NewCartService(carts repository.CartRepository, products *ProductService) *CartService {
	return &CartService{carts: carts, products: products, now: time.Now}
}

// Get returns the user's cart, or an empty one when none was saved yet.
func (s *CartService) Get(ctx context.Context, email string) (*models.Cart, error) {
	cart, err := s.carts.Get(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return &models.Cart{UserEmail: email, Items: []models.CartItem{}}, nil
	}
	if err != nil {
		return nil, repoError(err, apperrors.ErrNotFound)
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return cart, nil
}

// AddItem merges qty units of barcode into the cart. A zero quantity adds one.
func (s *CartService) AddItem(ctx context.Context, email, barcode string, qty int) (*models.Cart, error) {
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "Quantity must be at least 1")
	}

	product, err := s.products.GetByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, apperrors.ErrProductNotFound
	}

	cart, err := s.Get(ctx, email)
	if err != nil {
		return nil, err
	}

	idx := cart.Find(product.Barcode)
	existing := 0
	if idx >= 0 {
		existing = cart.Items[idx].Quantity
	}
	if existing+qty > product.Stock {
		return nil, stockError(product, existing)
	}

	if idx >= 0 {
		cart.Items[idx].Quantity += qty
	} else {
		cart.Items = append(cart.Items, models.CartItem{
			Barcode:  product.Barcode,
			Brand:    product.Brand,
			Name:     product.Name,
			Quantity: qty,
			Price:    product.Price,
			AddedAt:  s.now().UTC(),
		})
	}

	if err := s.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// UpdateQuantity sets a line's quantity. Zero or less removes the line.
func (s *CartService) UpdateQuantity(ctx context.Context, email, barcode string, qty int) (*models.Cart, error) {
	cart, err := s.Get(ctx, email)
	if err != nil {
		return nil, err
	}
	idx := cart.Find(strings.TrimSpace(barcode))
	if idx < 0 {
		return nil, apperrors.ErrItemNotInCart
	}

	if qty <= 0 {
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	} else {
		product, err := s.products.GetByBarcode(ctx, barcode)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, apperrors.ErrProductNotFound
		}
		if qty > product.Stock {
			return nil, stockError(product, 0)
		}
		cart.Items[idx].Quantity = qty
	}

	if err := s.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) RemoveItem(ctx context.Context, email, barcode string) (*models.Cart, error) {
	cart, err := s.Get(ctx, email)
	if err != nil {
		return nil, err
	}
	idx := cart.Find(strings.TrimSpace(barcode))
	if idx < 0 {
		return nil, apperrors.ErrItemNotInCart
	}
	cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)

	if err := s.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) Clear(ctx context.Context, email string) error {
	if err := s.carts.Delete(ctx, email); err != nil {
		return repoError(err, apperrors.ErrNotFound)
	}
	return nil
}

// Save recomputes line subtotals and the total, then replaces the stored cart.
func (s *CartService) Save(ctx context.Context, cart *models.Cart) error {
	cart.Recalculate()
	if err := s.carts.Save(ctx, cart); err != nil {
		return repoError(err, apperrors.ErrNotFound)
	}
	return nil
}

func stockError(p *models.Product, inCart int) error {
	if inCart > 0 {
		return apperrors.WithMessage(apperrors.ErrInsufficientStock,
			fmt.Sprintf("Only %d of %s in stock (%d already in cart)", p.Stock, p.Name, inCart))
	}
	return apperrors.WithMessage(apperrors.ErrInsufficientStock,
		fmt.Sprintf("Only %d of %s in stock", p.Stock, p.Name))
}
