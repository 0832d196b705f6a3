package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awspkg "github.com/counterjob/backend/internal/aws"
	"github.com/counterjob/backend/internal/repository"
	"github.com/spf13/cobra"
)

var migrateTable string

var migrateCmd = &cobra.Command{
	Use:   "migrate-products",
	Short: "Copy the MongoDB catalog into DynamoDB",
	Long: `Copy every product from the MongoDB products collection into the
DynamoDB products table, so STORE_BACKEND can be switched to dynamodb.

Barcodes already present in the table are skipped. The command can be
re-run safely.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrateTable, "table", "", "DynamoDB table (default: DDB_TABLE_PRODUCTS)")
	rootCmd.AddCommand(migrateCmd)
}

type migrateReport struct {
	Copied  int
	Skipped int
	Failed  int
}

// copyProducts writes every product of src into dst. Existing barcodes are
// skipped; other failures are reported and the copy continues.
func copyProducts(ctx context.Context, src, dst repository.ProductRepository, out io.Writer) (migrateReport, error) {
	var report migrateReport

	products, err := src.List(ctx)
	if err != nil {
		return report, fmt.Errorf("read source catalog: %w", err)
	}
	for i := range products {
		p := products[i]
		err := dst.Create(ctx, &p)
		switch {
		case err == nil:
			report.Copied++
			if report.Copied%100 == 0 {
				fmt.Fprintf(out, "migrated %d products\n", report.Copied)
			}
		case errors.Is(err, repository.ErrDuplicateBarcode):
			report.Skipped++
		default:
			report.Failed++
			fmt.Fprintf(out, "✗ %s (%s): %v\n", p.Name, p.Barcode, err)
		}
	}
	return report, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.StoreBackend = "mongo"
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	awsCfg, err := awspkg.LoadAWSConfig(ctx)
	if err != nil {
		return err
	}
	table := migrateTable
	if table == "" {
		table = cfg.DDBTableProducts
	}
	dst := repository.NewDynamoProductRepository(dynamodb.NewFromConfig(awsCfg), table)

	report, err := copyProducts(ctx, store.Products, dst, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Migration complete. copied=%d skipped=%d failed=%d\n", report.Copied, report.Skipped, report.Failed)
	if report.Failed > 0 {
		return fmt.Errorf("%d products failed to migrate", report.Failed)
	}
	return nil
}
