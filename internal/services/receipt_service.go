package services

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/counterjob/backend/internal/errors"
	"github.com/counterjob/backend/internal/models"
	"github.com/counterjob/backend/internal/repository"
)

// DownloadTTL is how long a receipt download link stays valid.
const DownloadTTL = 15 * time.Minute

// ReceiptLinker is satisfied by aws.ObjectArchiver.
type ReceiptLinker interface {
	PresignGet(ctx context.Context, name string, expires time.Duration) (string, error)
}

type ReceiptService struct {
	receipts repository.ReceiptRepository
	links    ReceiptLinker
	now      func() time.Time
}

func NewReceiptService(receipts repository.ReceiptRepository) *ReceiptService {
	return &ReceiptService{receipts: receipts, now: time.Now}
}

// WithLinks enables download links for archived receipts.
func (s *ReceiptService) WithLinks(l ReceiptLinker) *ReceiptService {
	s.links = l
	return s
}

// Find accepts either the bare receipt id or its TXN barcode and returns
// nil, nil when the user has no such receipt.
func (s *ReceiptService) Find(ctx context.Context, email, code string) (*models.Transaction, error) {
	id := models.ReceiptID(code)
	if id == "" {
		return nil, nil
	}
	r, err := s.receipts.Find(ctx, email, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, repoError(err, apperrors.ErrReceiptNotFound)
	}
	return r.ToTransaction(), nil
}

// List returns the user's receipts, newest first.
func (s *ReceiptService) List(ctx context.Context, email string) ([]*models.Transaction, error) {
	receipts, err := s.receipts.ListByEmail(ctx, email)
	if err != nil {
		return nil, repoError(err, apperrors.ErrReceiptNotFound)
	}
	out := make([]*models.Transaction, 0, len(receipts))
	for i := range receipts {
		out = append(out, receipts[i].ToTransaction())
	}
	return out, nil
}

func (s *ReceiptService) Delete(ctx context.Context, email, code string) error {
	id := models.ReceiptID(code)
	if id == "" {
		return apperrors.ErrReceiptNotFound
	}
	if err := s.receipts.Delete(ctx, email, id); err != nil {
		return repoError(err, apperrors.ErrReceiptNotFound)
	}
	return nil
}

// DownloadURL returns a short-lived link to the archived copy of a receipt.
func (s *ReceiptService) DownloadURL(ctx context.Context, email, code string) (string, time.Time, error) {
	if s.links == nil {
		return "", time.Time{}, apperrors.WithMessage(apperrors.ErrServiceUnavailable, "Receipt archive is not configured")
	}
	tx, err := s.Find(ctx, email, code)
	if err != nil {
		return "", time.Time{}, err
	}
	if tx == nil {
		return "", time.Time{}, apperrors.ErrReceiptNotFound
	}
	url, err := s.links.PresignGet(ctx, models.ArchiveName(email, tx.ID), DownloadTTL)
	if err != nil {
		return "", time.Time{}, apperrors.Wrap(apperrors.ErrServiceUnavailable, err)
	}
	return url, s.now().Add(DownloadTTL).UTC(), nil
}
