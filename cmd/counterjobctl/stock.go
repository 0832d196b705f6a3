package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var stockCmd = &cobra.Command{
	Use:   "stock",
	Short: "Manage product stock",
}

var stockSetCmd = &cobra.Command{
	Use:   "set <barcode> <count>",
	Short: "Set the stock level of a product",
	Args:  cobra.ExactArgs(2),
	RunE:  runStockSet,
}

func init() {
	stockCmd.AddCommand(stockSetCmd)
}

func runStockSet(cmd *cobra.Command, args []string) error {
	count, err := strconv.Atoi(args[1])
	if err != nil || count < 0 {
		return fmt.Errorf("count must be a non-negative integer, got %q", args[1])
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

	catalog, closeCache := catalogService(ctx, cfg, store)
	defer closeCache()

	p, err := catalog.UpdateStock(ctx, args[0], count)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): %d in stock\n", p.Name, p.Barcode, p.Stock)
	return nil
}
