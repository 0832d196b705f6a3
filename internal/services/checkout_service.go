package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	awspkg "github.com/counterjob/backend/internal/aws"
	apperrors "github.com/counterjob/backend/internal/errors"
	"github.com/counterjob/backend/internal/logger"
	"github.com/counterjob/backend/internal/models"
	"github.com/counterjob/backend/internal/notify"
	"github.com/counterjob/backend/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultTaxRate is applied to the checkout subtotal.
const DefaultTaxRate = 0.10

// CheckoutHooks are the best-effort integrations run after a receipt is
// stored. Any of them may be nil.
type CheckoutHooks struct {
	Events   EventPublisher
	TopicArn string
	Archive  ReceiptArchiver
	Mailer   notify.EmailSender
	Metrics  MetricsRecorder
}

type CheckoutService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	receipts repository.ReceiptRepository
	catalog  *ProductService
	hooks    CheckoutHooks
	taxRate  float64
	now      func() time.Time

	pending sync.WaitGroup
}

func NewCheckoutService(
	carts repository.CartRepository,
	products repository.ProductRepository,
	receipts repository.ReceiptRepository,
	catalog *ProductService,
	taxRate float64,
	hooks CheckoutHooks,
) *CheckoutService {
	if taxRate < 0 {
		taxRate = DefaultTaxRate
	}
	return &CheckoutService{
		carts:    carts,
		products: products,
		receipts: receipts,
		catalog:  catalog,
		hooks:    hooks,
		taxRate:  taxRate,
		now:      time.Now,
	}
}

// Checkout turns the user's cart into a stored receipt. Stock for every line
// is checked before anything is written; a concurrent sale that wins the race
// rolls back the lines already decremented.
func (s *CheckoutService) Checkout(ctx context.Context, email string) (*models.Transaction, error) {
	cart, err := s.carts.Get(ctx, email)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && len(cart.Items) == 0) {
		return nil, apperrors.ErrEmptyCart
	}
	if err != nil {
		return nil, repoError(err, apperrors.ErrNotFound)
	}

	for _, item := range cart.Items {
		p, err := s.products.FindByBarcode(ctx, item.Barcode)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.WithMessage(apperrors.ErrProductNotFound,
				fmt.Sprintf("%s is no longer available", item.Name))
		}
		if err != nil {
			return nil, repoError(err, apperrors.ErrProductNotFound)
		}
		if p.Stock < item.Quantity {
			return nil, apperrors.WithMessage(apperrors.ErrInsufficientStock,
				fmt.Sprintf("Insufficient stock for %s: %d available, %d requested", item.Name, p.Stock, item.Quantity))
		}
	}

	decremented := make([]models.CartItem, 0, len(cart.Items))
	rollback := func() {
		for _, d := range decremented {
			if err := s.products.IncrementStock(context.WithoutCancel(ctx), d.Barcode, d.Quantity); err != nil {
				logger.Error(ctx, "stock rollback failed", err, zap.String("barcode", d.Barcode), zap.Int("qty", d.Quantity))
			}
		}
	}
	for _, item := range cart.Items {
		if err := s.products.DecrementStock(ctx, item.Barcode, item.Quantity); err != nil {
			rollback()
			if errors.Is(err, repository.ErrInsufficientStock) {
				return nil, apperrors.WithMessage(apperrors.ErrInsufficientStock,
					fmt.Sprintf("Insufficient stock for %s", item.Name))
			}
			return nil, repoError(err, apperrors.ErrProductNotFound)
		}
		decremented = append(decremented, item)
	}

	receipt := s.buildReceipt(email, cart)
	if err := s.receipts.Create(ctx, receipt); err != nil {
		rollback()
		return nil, repoError(err, apperrors.ErrReceiptNotFound)
	}

	barcodes := make([]string, 0, len(cart.Items))
	for _, item := range cart.Items {
		barcodes = append(barcodes, item.Barcode)
	}
	s.catalog.InvalidateCache(ctx, barcodes...)

	if err := s.carts.Delete(ctx, email); err != nil {
		logger.Warn(ctx, "cart not cleared after checkout", zap.String("email", email), zap.Error(err))
	}

	tx := receipt.ToTransaction()
	logger.Info(ctx, "checkout completed",
		zap.String("receipt_id", receipt.ReceiptID),
		zap.String("email", email),
		zap.Int("lines", len(receipt.Items)),
		zap.Float64("total", receipt.Total),
	)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		s.runHooks(context.WithoutCancel(ctx), receipt, tx)
	}()
	return tx, nil
}

// Drain waits for in-flight post-checkout hooks.
func (s *CheckoutService) Drain() {
	s.pending.Wait()
}

func (s *CheckoutService) buildReceipt(email string, cart *models.Cart) *models.Receipt {
	now := s.now().UTC()
	r := &models.Receipt{
		ReceiptID:     strconv.FormatInt(now.UnixMilli(), 10),
		Email:         email,
		DatePurchased: now,
		Items:         make([]models.ReceiptItem, 0, len(cart.Items)),
	}
	subtotal := 0.0
	for _, item := range cart.Items {
		line := models.RoundCents(item.Price * float64(item.Quantity))
		r.Items = append(r.Items, models.ReceiptItem{
			Item:     item.Name,
			Barcode:  item.Barcode,
			Quantity: item.Quantity,
			Price:    item.Price,
			Subtotal: line,
		})
		subtotal += line
	}
	r.Subtotal = models.RoundCents(subtotal)
	r.Tax = models.RoundCents(r.Subtotal * s.taxRate)
	r.Total = models.RoundCents(r.Subtotal + r.Tax)
	return r
}

// runHooks keeps the request's values (request id) but not its deadline.
func (s *CheckoutService) runHooks(parent context.Context, receipt *models.Receipt, tx *models.Transaction) {
	ctx, cancel := context.WithTimeout(parent, 5*time.Second)
	defer cancel()

	var g errgroup.Group

	if s.hooks.Events != nil && s.hooks.TopicArn != "" {
		g.Go(func() error {
			msg, err := json.Marshal(models.CheckoutEvent{
				Event:     models.EventCheckoutCompleted,
				ReceiptID: receipt.ReceiptID,
				Email:     receipt.Email,
				Items:     receipt.Items,
				Total:     receipt.Total,
				Timestamp: receipt.DatePurchased,
			})
			if err != nil {
				return err
			}
			return s.hooks.Events.Publish(ctx, s.hooks.TopicArn, models.EventCheckoutCompleted, msg)
		})
	}

	if s.hooks.Archive != nil {
		g.Go(func() error {
			body, err := json.Marshal(tx)
			if err != nil {
				return err
			}
			return s.hooks.Archive.PutJSON(ctx, models.ArchiveName(receipt.Email, receipt.ReceiptID), body)
		})
	}

	if s.hooks.Mailer != nil {
		g.Go(func() error {
			subject, body, err := notify.RenderReceipt(tx)
			if err != nil {
				return err
			}
			_, err = s.hooks.Mailer.SendEmail(ctx, receipt.Email, subject, body)
			return err
		})
	}

	if s.hooks.Metrics != nil {
		g.Go(func() error {
			if err := s.hooks.Metrics.RecordCount(ctx, awspkg.MetricCheckouts, nil); err != nil {
				return err
			}
			return s.hooks.Metrics.RecordValue(ctx, awspkg.MetricCheckoutAmount, receipt.Total, nil)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Warn(ctx, "post-checkout hook failed", zap.String("receipt_id", receipt.ReceiptID), zap.Error(err))
	}
}
