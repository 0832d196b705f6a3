package services

import (
	"context"
	"errors"
	"io"

	awspkg "github.com/counterjob/backend/internal/aws"
	apperrors "github.com/counterjob/backend/internal/errors"
	"github.com/counterjob/backend/internal/logger"
	"github.com/counterjob/backend/internal/models"
	"github.com/counterjob/backend/internal/scanner"
	"go.uber.org/zap"
)

// ScanOutcome reports what a scan produced. Detected is false when the frame
// held no barcode or the scan fell inside the debounce pause.
type ScanOutcome struct {
	Detected bool                `json:"detected"`
	Code     string              `json:"code,omitempty"`
	Format   string              `json:"format,omitempty"`
	Route    *scanner.Route      `json:"route,omitempty"`
	Product  *models.ProductView `json:"product,omitempty"`
	Receipt  *models.Transaction `json:"receipt,omitempty"`
}

type ScanService struct {
	decoder  scanner.FrameDecoder
	debounce scanner.Debouncer
	products *ProductService
	receipts *ReceiptService
	metrics  MetricsRecorder
}

func NewScanService(decoder scanner.FrameDecoder, debounce scanner.Debouncer, products *ProductService, receipts *ReceiptService, metrics MetricsRecorder) *ScanService {
	return &ScanService{decoder: decoder, debounce: debounce, products: products, receipts: receipts, metrics: metrics}
}

// ScanCode handles text already decoded by the client.
func (s *ScanService) ScanCode(ctx context.Context, email, code string) (*ScanOutcome, error) {
	session := scanner.NewSession(s.decoder, s.debounce, email)
	defer session.Close()

	var got *scanner.Result
	session.OnScan = func(r scanner.Result) { got = &r }
	session.FeedText(ctx, code)

	return s.resolve(ctx, email, got)
}

// ScanFrame decodes a camera frame (PNG, JPEG or GIF).
func (s *ScanService) ScanFrame(ctx context.Context, email string, frame io.Reader) (*ScanOutcome, error) {
	session := scanner.NewSession(s.decoder, s.debounce, email)
	defer session.Close()

	var got *scanner.Result
	var decodeErr error
	session.OnScan = func(r scanner.Result) { got = &r }
	session.OnError = func(err error) { decodeErr = err }
	session.Feed(ctx, frame)

	if errors.Is(decodeErr, scanner.ErrUnsupportedImage) {
		logger.Debug(ctx, "frame not decodable", zap.Error(decodeErr))
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Unsupported image")
	}
	if decodeErr != nil {
		return nil, apperrors.Wrap(apperrors.ErrUnreadableBarcode, decodeErr)
	}
	return s.resolve(ctx, email, got)
}

func (s *ScanService) resolve(ctx context.Context, email string, res *scanner.Result) (*ScanOutcome, error) {
	if res == nil {
		return &ScanOutcome{Detected: false}, nil
	}
	out := &ScanOutcome{Detected: true, Code: res.Text, Format: res.Format}

	var receipt *models.Transaction
	route, err := scanner.Resolve(ctx, res.Text, func(ctx context.Context, code string) (bool, error) {
		tx, err := s.receipts.Find(ctx, email, code)
		receipt = tx
		return tx != nil, err
	})
	if err != nil {
		return nil, err
	}
	out.Route = &route

	if route.Kind == scanner.RouteReceipt {
		out.Receipt = receipt
		countAsync(s.metrics, awspkg.MetricScans, map[string]string{"Route": route.Kind})
		return out, nil
	}

	view, err := s.products.Detail(ctx, res.Text)
	if err != nil {
		return nil, err
	}
	out.Product = view
	countAsync(s.metrics, awspkg.MetricScans, map[string]string{"Route": route.Kind})
	if view.NotFound {
		countAsync(s.metrics, awspkg.MetricScansUnknown, nil)
	}
	return out, nil
}
