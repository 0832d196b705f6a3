package repository

import (
	"context"
	"errors"

	"github.com/counterjob/backend/internal/models"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicateBarcode  = errors.New("barcode already exists")
	ErrDuplicateEmail    = errors.New("email already in use")
)

// ProductRepository is the catalog store. Implementations use plain Go types
// so the Mongo and DynamoDB adapters are interchangeable.
type ProductRepository interface {
	List(ctx context.Context) ([]models.Product, error)
	FindByBarcode(ctx context.Context, barcode string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	SetStock(ctx context.Context, barcode string, stock int) error
	// DecrementStock fails with ErrInsufficientStock when fewer than qty
	// units remain.
	DecrementStock(ctx context.Context, barcode string, qty int) error
	IncrementStock(ctx context.Context, barcode string, qty int) error
	EnsureIndexes(ctx context.Context) error
}

// CartRepository keeps one cart document per user email.
type CartRepository interface {
	Get(ctx context.Context, email string) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) error
	Delete(ctx context.Context, email string) error
}

// ReceiptRepository stores receipts under the purchasing user's email.
type ReceiptRepository interface {
	Create(ctx context.Context, receipt *models.Receipt) error
	Find(ctx context.Context, email, receiptID string) (*models.Receipt, error)
	ListByEmail(ctx context.Context, email string) ([]models.Receipt, error)
	Delete(ctx context.Context, email, receiptID string) error
}

// UserRepository stores shopper profiles keyed by email.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Upsert(ctx context.Context, user *models.User) error
	SetLoggedIn(ctx context.Context, email string, loggedIn bool) error
	// Rekey moves the profile stored under oldEmail to user.Email.
	Rekey(ctx context.Context, oldEmail string, user *models.User) error
}
