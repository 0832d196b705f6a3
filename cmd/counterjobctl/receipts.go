package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/counterjob/backend/internal/models"
	"github.com/counterjob/backend/internal/services"
	"github.com/spf13/cobra"
)

var receiptsCmd = &cobra.Command{
	Use:   "receipts <email>",
	Short: "List a shopper's receipts, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runReceipts,
}

func runReceipts(cmd *cobra.Command, args []string) error {
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

	list, err := services.NewReceiptService(store.Receipts).List(ctx, args[0])
	if err != nil {
		return err
	}
	return printReceipts(cmd, list)
}

func printReceipts(cmd *cobra.Command, list []*models.Transaction) error {
	if len(list) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No receipts.")
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tDATE\tITEMS\tTOTAL")
	for _, tx := range list {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\n", tx.Barcode, tx.Date, len(tx.Items), tx.Total)
	}
	return w.Flush()
}
