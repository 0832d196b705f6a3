package models

import (
	"strings"
	"time"
)

// TransactionPrefix marks barcodes that identify a receipt rather than a
// product.
const TransactionPrefix = "TXN"

// ReceiptItem is one purchased line as stored on the receipt.
type ReceiptItem struct {
	Item     string  `json:"item" bson:"item"`
	Barcode  string  `json:"barcode,omitempty" bson:"barcode,omitempty"`
	Quantity int     `json:"qty" bson:"qty"`
	Price    float64 `json:"price" bson:"price"`
	Subtotal float64 `json:"subtotal" bson:"subtotal"`
}

// Receipt is the stored transaction document, keyed by (email, receipt_id).
type Receipt struct {
	ReceiptID     string        `json:"receipt_id" bson:"receipt_id"`
	Email         string        `json:"email" bson:"email"`
	DatePurchased time.Time     `json:"date_purchased" bson:"datepurchased"`
	Items         []ReceiptItem `json:"items" bson:"items"`
	Subtotal      float64       `json:"subtotal" bson:"subtotal"`
	Tax           float64       `json:"tax" bson:"tax"`
	Total         float64       `json:"total" bson:"total"`
}

// Transaction is the receipt as returned to clients.
type Transaction struct {
	ID       string        `json:"id"`
	Barcode  string        `json:"barcode"`
	Date     string        `json:"date"`
	Items    []ReceiptItem `json:"items"`
	Subtotal float64       `json:"subtotal"`
	Tax      float64       `json:"tax"`
	Total    float64       `json:"total"`
	Email    string        `json:"email"`
}

// ToTransaction renders a stored receipt for clients.
func (r *Receipt) ToTransaction() *Transaction {
	date := ""
	if !r.DatePurchased.IsZero() {
		date = r.DatePurchased.UTC().Format(time.RFC3339)
	}
	return &Transaction{
		ID:       r.ReceiptID,
		Barcode:  TransactionPrefix + r.ReceiptID,
		Date:     date,
		Items:    r.Items,
		Subtotal: r.Subtotal,
		Tax:      r.Tax,
		Total:    r.Total,
		Email:    r.Email,
	}
}

// ReceiptID strips the TXN prefix from a scanned or routed transaction code.
func ReceiptID(code string) string {
	return strings.TrimPrefix(strings.TrimSpace(code), TransactionPrefix)
}

// IsTransactionCode reports whether a scanned code names a receipt.
func IsTransactionCode(code string) bool {
	return strings.HasPrefix(code, TransactionPrefix)
}

// ArchiveName is the object name of an archived receipt.
func ArchiveName(email, receiptID string) string {
	return email + "/" + receiptID + ".json"
}
