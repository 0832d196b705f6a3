package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/counterjob/backend/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	ProductCachePrefix     = "product:barcode:"
	ProductListCachePrefix = "products:v:"
	ProductVersionPrefix   = "product:version:"
	CacheVersionKey        = "products:version"

	DefaultCacheTTL = 10 * time.Minute

	// NoVersion marks a lookup that could not read a version; fills with it
	// are skipped.
	NoVersion int64 = -1
)

// ProductCache is a read-through cache for catalog lookups. A nil
// *ProductCache is valid and always misses.
type ProductCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ProductCache{redis: client, ttl: ttl}
}

func productKey(barcode string, version int64) string {
	return ProductCachePrefix + barcode + ":v" + strconv.FormatInt(version, 10)
}

func productVersionKey(barcode string) string {
	return ProductVersionPrefix + barcode
}

// GetProduct returns the cached product for barcode, if any. The version is
// returned on a miss as well; pass it to SetProduct after reading the store
// so a fill that races an invalidation lands on a key nobody reads.
func (pc *ProductCache) GetProduct(ctx context.Context, barcode string) (*models.Product, int64, bool) {
	if pc == nil {
		return nil, NoVersion, false
	}
	version, err := pc.version(ctx, productVersionKey(barcode))
	if err != nil {
		zap.L().Warn("product cache version read failed", zap.Error(err), zap.String("barcode", barcode))
		return nil, NoVersion, false
	}
	data, err := pc.redis.Get(ctx, productKey(barcode, version)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zap.L().Warn("product cache read failed", zap.Error(err), zap.String("barcode", barcode))
		}
		return nil, version, false
	}

	var product models.Product
	if err := json.Unmarshal(data, &product); err != nil {
		zap.L().Warn("failed to unmarshal cached product", zap.Error(err), zap.String("barcode", barcode))
		return nil, version, false
	}
	return &product, version, true
}

// SetProduct stores product under the version observed before it was read.
func (pc *ProductCache) SetProduct(ctx context.Context, version int64, product *models.Product) error {
	if pc == nil || version == NoVersion {
		return nil
	}
	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}
	return pc.redis.Set(ctx, productKey(product.Barcode, version), data, pc.ttl).Err()
}

// SetProductAsync caches a product without holding up the request.
func (pc *ProductCache) SetProductAsync(version int64, product *models.Product) {
	if pc == nil || product == nil || version == NoVersion {
		return
	}
	p := *product
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := pc.SetProduct(bgCtx, version, &p); err != nil {
			zap.L().Warn("failed to cache product", zap.Error(err), zap.String("barcode", p.Barcode))
		}
	}()
}

// GetProductList returns the cached catalog and the list version it was
// looked up under.
func (pc *ProductCache) GetProductList(ctx context.Context) ([]models.Product, int64, bool) {
	if pc == nil {
		return nil, NoVersion, false
	}
	version, err := pc.version(ctx, CacheVersionKey)
	if err != nil {
		zap.L().Warn("product list cache version read failed", zap.Error(err))
		return nil, NoVersion, false
	}

	data, err := pc.redis.Get(ctx, listKey(version)).Bytes()
	if err != nil {
		return nil, version, false
	}

	var products []models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		zap.L().Warn("failed to unmarshal cached product list", zap.Error(err))
		return nil, version, false
	}
	return products, version, true
}

// SetProductList stores the catalog under the version observed before the
// store was read.
func (pc *ProductCache) SetProductList(ctx context.Context, version int64, products []models.Product) error {
	if pc == nil || version == NoVersion {
		return nil
	}
	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("marshal product list: %w", err)
	}
	return pc.redis.Set(ctx, listKey(version), data, pc.ttl).Err()
}

func (pc *ProductCache) SetProductListAsync(version int64, products []models.Product) {
	if pc == nil || version == NoVersion {
		return
	}
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := pc.SetProductList(bgCtx, version, products); err != nil {
			zap.L().Warn("failed to cache product list", zap.Error(err))
		}
	}()
}

// InvalidateProduct bumps the product and list versions so entries filled
// from earlier reads are never served again.
func (pc *ProductCache) InvalidateProduct(ctx context.Context, barcode string) {
	if pc == nil {
		return
	}
	if err := pc.redis.Incr(ctx, CacheVersionKey).Err(); err != nil {
		zap.L().Error("failed to invalidate product list cache", zap.Error(err), zap.String("barcode", barcode))
	}
	prev, err := pc.redis.Incr(ctx, productVersionKey(barcode)).Result()
	if err != nil {
		zap.L().Error("failed to invalidate product cache", zap.Error(err), zap.String("barcode", barcode))
		return
	}
	if err := pc.redis.Del(ctx, productKey(barcode, prev-1)).Err(); err != nil {
		zap.L().Warn("failed to delete product cache", zap.Error(err), zap.String("barcode", barcode))
	}
}

func (pc *ProductCache) version(ctx context.Context, key string) (int64, error) {
	v, err := pc.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}

func listKey(version int64) string {
	return ProductListCachePrefix + strconv.FormatInt(version, 10)
}
