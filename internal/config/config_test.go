package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", " s3cret ")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("SCAN_DEBOUNCE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, "mongo", cfg.StoreBackend)
	assert.Equal(t, 0.10, cfg.TaxRate)
	assert.Equal(t, 500*time.Millisecond, cfg.ScanDebounce)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "DynamoDB")
	t.Setenv("TAX_RATE", "0.12")
	t.Setenv("SCAN_DEBOUNCE", "1s")
	t.Setenv("MAX_FRAME_BYTES", "1024")
	t.Setenv("ALLOWED_ORIGINS", "https://shop.example.com/, http://localhost:3000 ,")
	t.Setenv("CLOUDWATCH_ENABLED", "true")
	t.Setenv("RECEIPT_QUEUE_URL", "http://localhost:4566/000000000000/receipts")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dynamodb", cfg.StoreBackend)
	assert.Equal(t, 0.12, cfg.TaxRate)
	assert.Equal(t, time.Second, cfg.ScanDebounce)
	assert.Equal(t, int64(1024), cfg.MaxFrameBytes)
	assert.Equal(t, []string{"https://shop.example.com", "http://localhost:3000"}, cfg.AllowedOrigins)
	assert.True(t, cfg.CloudWatchEnabled)
	assert.Equal(t, "http://localhost:4566/000000000000/receipts", cfg.ReceiptQueueURL)
}

func TestLoad_BadValuesFallBack(t *testing.T) {
	t.Setenv("TAX_RATE", "ten percent")
	t.Setenv("SESSION_TTL", "forever")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0.10, cfg.TaxRate)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
}

func TestValidate(t *testing.T) {
	ok := Config{JWTSecret: "x", StoreBackend: "mongo"}
	assert.NoError(t, ok.Validate())

	noSecret := ok
	noSecret.JWTSecret = ""
	assert.Error(t, noSecret.Validate())

	badBackend := ok
	badBackend.StoreBackend = "postgres"
	assert.Error(t, badBackend.Validate())

	negTax := ok
	negTax.TaxRate = -0.1
	assert.Error(t, negTax.Validate())
}

type mapSecrets map[string]string

func (m mapSecrets) GetSecret(ctx context.Context, name string) (string, error) {
	if v, ok := m[name]; ok {
		return v, nil
	}
	return "", errors.New("secret not found")
}

func TestApplySecrets(t *testing.T) {
	cfg := &Config{JWTSecret: "env", AdminAPIKey: "env-admin"}
	cfg.ApplySecrets(context.Background(), mapSecrets{"counterjob/JWT_SECRET": "from-store"})

	assert.Equal(t, "from-store", cfg.JWTSecret)
	assert.Equal(t, "env-admin", cfg.AdminAPIKey)

	cfg.ApplySecrets(context.Background(), nil)
	assert.Equal(t, "from-store", cfg.JWTSecret)
}
