package controllers

import (
	"context"
	"io"
	"time"

	"github.com/counterjob/backend/internal/models"
	"github.com/counterjob/backend/internal/services"
)

// The controllers depend on these narrow views of the services so handlers
// can be tested against fakes.

type UserAPI interface {
	LoginWithGoogle(ctx context.Context, credential string) (*models.Session, error)
	LoginWithEmail(ctx context.Context, email string) (*models.Session, error)
	Logout(ctx context.Context, email string) error
	GetProfile(ctx context.Context, email string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, email string, req *models.UpdateProfileRequest) (*models.Session, error)
}

type ProductAPI interface {
	List(ctx context.Context) ([]models.Product, error)
	Detail(ctx context.Context, barcode string) (*models.ProductView, error)
	FindInCatalog(ctx context.Context, code string) (*models.Product, error)
	Create(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error)
	UpdateStock(ctx context.Context, barcode string, stock int) (*models.Product, error)
}

type CartAPI interface {
	Get(ctx context.Context, email string) (*models.Cart, error)
	AddItem(ctx context.Context, email, barcode string, qty int) (*models.Cart, error)
	UpdateQuantity(ctx context.Context, email, barcode string, qty int) (*models.Cart, error)
	RemoveItem(ctx context.Context, email, barcode string) (*models.Cart, error)
	Clear(ctx context.Context, email string) error
}

type CheckoutAPI interface {
	Checkout(ctx context.Context, email string) (*models.Transaction, error)
}

type ReceiptAPI interface {
	Find(ctx context.Context, email, code string) (*models.Transaction, error)
	List(ctx context.Context, email string) ([]*models.Transaction, error)
	Delete(ctx context.Context, email, code string) error
	DownloadURL(ctx context.Context, email, code string) (string, time.Time, error)
}

type ScanAPI interface {
	ScanCode(ctx context.Context, email, code string) (*services.ScanOutcome, error)
	ScanFrame(ctx context.Context, email string, frame io.Reader) (*services.ScanOutcome, error)
}

var (
	_ UserAPI     = (*services.UserService)(nil)
	_ ProductAPI  = (*services.ProductService)(nil)
	_ CartAPI     = (*services.CartService)(nil)
	_ CheckoutAPI = (*services.CheckoutService)(nil)
	_ ReceiptAPI  = (*services.ReceiptService)(nil)
	_ ScanAPI     = (*services.ScanService)(nil)
)
