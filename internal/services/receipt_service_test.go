package services

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/counterjob/backend/internal/errors"
	"github.com/counterjob/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func seedReceipts(t *testing.T) *memReceipts {
	t.Helper()
	repo := newMemReceipts()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.Receipt{ReceiptID: "100", Email: shopper, DatePurchased: time.UnixMilli(100), Total: 10}))
	require.NoError(t, repo.Create(ctx, &models.Receipt{ReceiptID: "200", Email: shopper, DatePurchased: time.UnixMilli(200), Total: 20}))
	require.NoError(t, repo.Create(ctx, &models.Receipt{ReceiptID: "300", Email: "other@gmail.com", DatePurchased: time.UnixMilli(300)}))
	return repo
}

func TestReceiptFindByBarcode(t *testing.T) {
	svc := NewReceiptService(seedReceipts(t))
	ctx := context.Background()

	tx, err := svc.Find(ctx, shopper, "TXN100")
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, "100", tx.ID)
	assert.Equal(t, "TXN100", tx.Barcode)
	assert.NotEmpty(t, tx.Date)

	tx, err = svc.Find(ctx, shopper, "200")
	require.NoError(t, err)
	require.NotNil(t, tx)

	tx, err = svc.Find(ctx, shopper, "TXN300")
	require.NoError(t, err)
	assert.Nil(t, tx, "receipts of other users are invisible")

	tx, err = svc.Find(ctx, shopper, "TXN")
	require.NoError(t, err)
	assert.Nil(t, tx)
}

func TestReceiptListNewestFirst(t *testing.T) {
	svc := NewReceiptService(seedReceipts(t))

	list, err := svc.List(context.Background(), shopper)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "200", list[0].ID)
	assert.Equal(t, "100", list[1].ID)
}

func TestReceiptDelete(t *testing.T) {
	svc := NewReceiptService(seedReceipts(t))
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, shopper, "TXN100"))
	err := svc.Delete(ctx, shopper, "TXN100")
	assert.ErrorIs(t, err, apperrors.ErrReceiptNotFound)

	list, err := svc.List(ctx, shopper)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

type MockLinker struct{ mock.Mock }

func (m *MockLinker) PresignGet(ctx context.Context, name string, expires time.Duration) (string, error) {
	args := m.Called(ctx, name, expires)
	return args.String(0), args.Error(1)
}

func TestReceiptDownloadURL(t *testing.T) {
	links := new(MockLinker)
	links.On("PresignGet", mock.Anything, shopper+"/100.json", DownloadTTL).Return("https://s3.example.com/100.json?sig=x", nil)

	svc := NewReceiptService(seedReceipts(t)).WithLinks(links)
	svc.now = func() time.Time { return time.UnixMilli(1718000000000) }

	url, expires, err := svc.DownloadURL(context.Background(), shopper, "TXN100")
	require.NoError(t, err)
	assert.Equal(t, "https://s3.example.com/100.json?sig=x", url)
	assert.Equal(t, time.UnixMilli(1718000000000).Add(DownloadTTL).UTC(), expires)
	links.AssertExpectations(t)
}

func TestReceiptDownloadURL_Errors(t *testing.T) {
	ctx := context.Background()

	_, _, err := NewReceiptService(seedReceipts(t)).DownloadURL(ctx, shopper, "TXN100")
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavailable)

	links := new(MockLinker)
	svc := NewReceiptService(seedReceipts(t)).WithLinks(links)
	_, _, err = svc.DownloadURL(ctx, shopper, "TXN300")
	assert.ErrorIs(t, err, apperrors.ErrReceiptNotFound)
	links.AssertNotCalled(t, "PresignGet", mock.Anything, mock.Anything, mock.Anything)
}
