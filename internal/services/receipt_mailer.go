package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	awspkg "github.com/counterjob/backend/internal/aws"
	"github.com/counterjob/backend/internal/logger"
	"github.com/counterjob/backend/internal/models"
	"github.com/counterjob/backend/internal/notify"
	"github.com/counterjob/backend/internal/repository"
	"go.uber.org/zap"
)

// ReceiptMailer sends the receipt email for checkout events read from the
// receipt queue. The stored receipt is the source of truth, not the event.
type ReceiptMailer struct {
	receipts repository.ReceiptRepository
	mailer   notify.EmailSender
}

func NewReceiptMailer(receipts repository.ReceiptRepository, mailer notify.EmailSender) *ReceiptMailer {
	return &ReceiptMailer{receipts: receipts, mailer: mailer}
}

// HandleCheckoutEvent is an aws.MessageHandler.
func (m *ReceiptMailer) HandleCheckoutEvent(ctx context.Context, message []byte) error {
	var event models.CheckoutEvent
	if err := json.Unmarshal(message, &event); err != nil {
		return fmt.Errorf("%w: decode checkout event: %v", awspkg.ErrDropMessage, err)
	}
	if event.Event != models.EventCheckoutCompleted {
		logger.Debug(ctx, "ignoring event", zap.String("event", event.Event))
		return nil
	}
	if event.Email == "" || event.ReceiptID == "" {
		return fmt.Errorf("%w: checkout event without email or receipt id", awspkg.ErrDropMessage)
	}

	receipt, err := m.receipts.Find(ctx, event.Email, event.ReceiptID)
	if errors.Is(err, repository.ErrNotFound) {
		// deleted before the mail went out
		return fmt.Errorf("%w: receipt %s gone", awspkg.ErrDropMessage, event.ReceiptID)
	}
	if err != nil {
		return fmt.Errorf("load receipt %s: %w", event.ReceiptID, err)
	}

	subject, body, err := notify.RenderReceipt(receipt.ToTransaction())
	if err != nil {
		return fmt.Errorf("%w: %v", awspkg.ErrDropMessage, err)
	}
	res, err := m.mailer.SendEmail(ctx, receipt.Email, subject, body)
	if err != nil {
		return fmt.Errorf("send receipt %s: %w", event.ReceiptID, err)
	}
	logger.Info(ctx, "receipt email sent",
		zap.String("receipt_id", receipt.ReceiptID),
		zap.String("message_id", res.MessageID),
	)
	return nil
}
