package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/counterjob/backend/internal/cache"
	"github.com/counterjob/backend/internal/config"
	"github.com/counterjob/backend/internal/logger"
	"github.com/counterjob/backend/internal/repository"
	"github.com/counterjob/backend/internal/services"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose bool
	timeout time.Duration
	backend string
)

// rootCmd is the operator CLI for catalog and receipt maintenance.
var rootCmd = &cobra.Command{
	Use:   "counterjobctl",
	Short: "Maintain the CounterJob catalog and receipts",
	Long: `counterjobctl talks directly to the CounterJob store using the same
environment as the server (MONGO_URL, MONGO_DB_NAME, STORE_BACKEND, ...).

Available commands:
  seed     - load products from a products.json file
  stock    - set the stock level of a product
  receipts - list a shopper's receipts`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		env := "production"
		if verbose {
			env = "development"
		}
		logger.Initialize(env)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "Product store backend (default: STORE_BACKEND)")

	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(stockCmd)
	rootCmd.AddCommand(receiptsCmd)
}

// loadConfig reads the server's environment and applies CLI overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if backend != "" {
		cfg.StoreBackend = backend
	}
	return cfg, nil
}

func openStore(ctx context.Context, cfg *config.Config) (*repository.Store, error) {
	return repository.OpenStore(ctx, repository.StoreOptions{
		Backend:     cfg.StoreBackend,
		MongoURL:    cfg.MongoURL,
		MongoDB:     cfg.MongoDB,
		DynamoTable: cfg.DDBTableProducts,
	})
}

// catalogService builds a product service that shares the server's cache, so
// changes made here are not hidden behind stale entries.
func catalogService(ctx context.Context, cfg *config.Config, store *repository.Store) (*services.ProductService, func()) {
	if cfg.RedisURL == "" {
		return services.NewProductService(store.Products, nil, nil), func() {}
	}
	client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		zap.L().Warn("redis unavailable, product cache will expire on its own", zap.Error(err))
		return services.NewProductService(store.Products, nil, nil), func() {}
	}
	pc := cache.NewProductCache(client, cfg.ProductCacheTTL)
	return services.NewProductService(store.Products, pc, nil), func() { _ = client.Close() }
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
