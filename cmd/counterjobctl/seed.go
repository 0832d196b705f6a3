package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/counterjob/backend/internal/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var seedWorkers int

var seedCmd = &cobra.Command{
	Use:   "seed <products.json>",
	Short: "Load products from a JSON file",
	Long: `Load products from a file shaped like {"products": [...]}.

Each product goes through the same validation as POST /products. Products
whose barcode already exists are reported as failures and left unchanged.`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&seedWorkers, "workers", 4, "Concurrent inserts")
}

type seedFile struct {
	Products []models.CreateProductRequest `json:"products"`
}

type productCreator interface {
	Create(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error)
}

type seedReport struct {
	Created int
	Failed  int
}

func parseSeedFile(r io.Reader) ([]models.CreateProductRequest, error) {
	var f seedFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("parse products file: %w", err)
	}
	return f.Products, nil
}

// seedProducts creates every product, continuing past individual failures.
func seedProducts(ctx context.Context, creator productCreator, products []models.CreateProductRequest, workers int, out io.Writer) seedReport {
	if workers < 1 {
		workers = 1
	}
	var created, failed atomic.Int64
	var outMu sync.Mutex
	report := func(format string, a ...any) {
		outMu.Lock()
		defer outMu.Unlock()
		fmt.Fprintf(out, format, a...)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range products {
		req := products[i]
		g.Go(func() error {
			p, err := creator.Create(gctx, &req)
			if err != nil {
				failed.Add(1)
				report("✗ %s (%s): %v\n", req.Name, req.Barcode, err)
				return nil
			}
			created.Add(1)
			report("✓ %s (ID: %s)\n", p.Name, p.ID)
			return nil
		})
	}
	_ = g.Wait()
	return seedReport{Created: int(created.Load()), Failed: int(failed.Load())}
}

func runSeed(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	products, err := parseSeedFile(f)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	zap.L().Info("seeding products", zap.Int("count", len(products)))
	catalog, closeCache := catalogService(ctx, cfg, store)
	defer closeCache()
	report := seedProducts(ctx, catalog, products, seedWorkers, cmd.OutOrStdout())

	fmt.Fprintf(cmd.OutOrStdout(), "\nCreated: %d  Failed: %d\n", report.Created, report.Failed)
	if report.Failed > 0 {
		return fmt.Errorf("%d products failed to load", report.Failed)
	}
	return nil
}
