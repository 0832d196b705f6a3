package services

import (
	"context"
	"errors"
	"strings"

	awspkg "github.com/counterjob/backend/internal/aws"
	"github.com/counterjob/backend/internal/cache"
	apperrors "github.com/counterjob/backend/internal/errors"
	"github.com/counterjob/backend/internal/logger"
	"github.com/counterjob/backend/internal/models"
	"github.com/counterjob/backend/internal/repository"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New()

// validationMessage turns the first failed rule into a shopper-facing message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "gte":
		return fe.Field() + " must not be negative"
	case "max":
		return fe.Field() + " is too long"
	}
	return fe.Field() + " is invalid"
}

type ProductService struct {
	repo    repository.ProductRepository
	cache   *cache.ProductCache
	metrics MetricsRecorder
}

// NewProductService wires the catalog store with an optional cache.
func NewProductService(repo repository.ProductRepository, pc *cache.ProductCache, metrics MetricsRecorder) *ProductService {
	return &ProductService{repo: repo, cache: pc, metrics: metrics}
}

func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	products, version, ok := s.cache.GetProductList(ctx)
	if ok {
		return products, nil
	}
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, repoError(err, apperrors.ErrNotFound)
	}
	s.cache.SetProductListAsync(version, products)
	return products, nil
}

// GetByBarcode returns nil, nil when the barcode is not in the catalog.
func (s *ProductService) GetByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, nil
	}
	p, version, ok := s.cache.GetProduct(ctx, barcode)
	if ok {
		countAsync(s.metrics, awspkg.MetricCacheHits, nil)
		return p, nil
	}
	if s.cache != nil {
		countAsync(s.metrics, awspkg.MetricCacheMisses, nil)
	}

	p, err := s.repo.FindByBarcode(ctx, barcode)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, repoError(err, apperrors.ErrProductNotFound)
	}
	s.cache.SetProductAsync(version, p)
	return p, nil
}

// Detail is the product page: unknown barcodes yield the placeholder.
func (s *ProductService) Detail(ctx context.Context, barcode string) (*models.ProductView, error) {
	p, err := s.GetByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return models.UnknownProduct(strings.TrimSpace(barcode)), nil
	}
	return &models.ProductView{Product: *p}, nil
}

// FindInCatalog matches a code against the full product list, as the
// receipt page does when a shopper scans an item.
func (s *ProductService) FindInCatalog(ctx context.Context, code string) (*models.Product, error) {
	code = strings.TrimSpace(code)
	products, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].Barcode == code {
			return &products[i], nil
		}
	}
	return nil, nil
}

func (s *ProductService) Create(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	clean := models.CreateProductRequest{
		Barcode:     strings.TrimSpace(req.Barcode),
		Name:        strings.TrimSpace(req.Name),
		Brand:       strings.TrimSpace(req.Brand),
		Category:    strings.TrimSpace(req.Category),
		Description: strings.TrimSpace(req.Description),
		Price:       models.RoundCents(req.Price),
		Stock:       req.Stock,
	}
	if err := validate.Struct(&clean); err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, validationMessage(err))
	}
	if models.IsTransactionCode(clean.Barcode) {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "Barcode prefix TXN is reserved for receipts")
	}

	p := &models.Product{
		Barcode:     clean.Barcode,
		Name:        clean.Name,
		Brand:       clean.Brand,
		Category:    clean.Category,
		Description: clean.Description,
		Price:       clean.Price,
		Stock:       clean.Stock,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, repoError(err, apperrors.ErrProductNotFound)
	}
	s.cache.InvalidateProduct(ctx, p.Barcode)
	logger.Info(ctx, "product created", zap.String("barcode", p.Barcode), zap.String("id", p.ID))
	return p, nil
}

// UpdateStock sets the absolute stock level and returns the product.
func (s *ProductService) UpdateStock(ctx context.Context, barcode string, stock int) (*models.Product, error) {
	if stock < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "Stock must not be negative")
	}
	if err := s.repo.SetStock(ctx, barcode, stock); err != nil {
		return nil, repoError(err, apperrors.ErrProductNotFound)
	}
	s.cache.InvalidateProduct(ctx, barcode)

	p, err := s.repo.FindByBarcode(ctx, barcode)
	if err != nil {
		return nil, repoError(err, apperrors.ErrProductNotFound)
	}
	return p, nil
}

// InvalidateCache drops cached entries for barcodes whose stock changed
// outside this service.
func (s *ProductService) InvalidateCache(ctx context.Context, barcodes ...string) {
	for _, b := range barcodes {
		s.cache.InvalidateProduct(ctx, b)
	}
}
