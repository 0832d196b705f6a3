package services

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/counterjob/backend/internal/errors"
	"github.com/counterjob/backend/internal/repository"
	"go.uber.org/zap"
)

// MetricsRecorder is satisfied by aws.MetricsClient.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
	RecordValue(ctx context.Context, metricName string, value float64, dimensions map[string]string) error
}

// EventPublisher is satisfied by aws.SNSClient.
type EventPublisher interface {
	Publish(ctx context.Context, topicArn string, eventType string, message []byte) error
}

// ReceiptArchiver is satisfied by aws.ObjectArchiver.
type ReceiptArchiver interface {
	PutJSON(ctx context.Context, name string, body []byte) error
}

// repoError maps repository sentinels onto application errors. notFound is
// used for repository.ErrNotFound so each caller can name what was missing.
func repoError(err error, notFound *apperrors.Error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.Wrap(notFound, err)
	case errors.Is(err, repository.ErrInsufficientStock):
		return apperrors.Wrap(apperrors.ErrInsufficientStock, err)
	case errors.Is(err, repository.ErrDuplicateBarcode):
		return apperrors.Wrap(apperrors.ErrDuplicateBarcode, err)
	case errors.Is(err, repository.ErrDuplicateEmail):
		return apperrors.Wrap(apperrors.ErrEmailInUse, err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(apperrors.ErrServiceUnavailable, err)
	default:
		return apperrors.Wrap(apperrors.ErrDatabaseQuery, err)
	}
}

// countAsync and valueAsync send a metric in the background with their own
// timeout.
func countAsync(m MetricsRecorder, name string, dims map[string]string) {
	if m == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.RecordCount(ctx, name, dims); err != nil {
			zap.L().Debug("metric not recorded", zap.String("metric", name), zap.Error(err))
		}
	}()
}

func valueAsync(m MetricsRecorder, name string, value float64, dims map[string]string) {
	if m == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.RecordValue(ctx, name, value, dims); err != nil {
			zap.L().Debug("metric not recorded", zap.String("metric", name), zap.Error(err))
		}
	}()
}
