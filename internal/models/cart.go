package models

import (
	"math"
	"time"
)

// VATRate is the inclusive VAT share shown on the cart summary.
const VATRate = 0.12

// CartItem is one line of a user's cart. Stored field names follow the
// document layout used by the storefront (qty, subtotal).
type CartItem struct {
	Barcode  string    `json:"barcode" bson:"barcode"`
	Brand    string    `json:"brand" bson:"brand"`
	Name     string    `json:"name" bson:"name"`
	Quantity int       `json:"quantity" bson:"qty"`
	Price    float64   `json:"price" bson:"price"`
	Subtotal float64   `json:"subtotal" bson:"subtotal"`
	AddedAt  time.Time `json:"added_at" bson:"addedAt"`
}

// Cart is the single cart document kept per user.
type Cart struct {
	UserEmail string     `json:"user_email" bson:"userEmail"`
	Items     []CartItem `json:"items" bson:"items"`
	Total     float64    `json:"total" bson:"total"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}

// Recalculate refreshes every line subtotal and the cart total.
func (c *Cart) Recalculate() {
	total := 0.0
	for i := range c.Items {
		c.Items[i].Subtotal = RoundCents(c.Items[i].Price * float64(c.Items[i].Quantity))
		total += c.Items[i].Subtotal
	}
	c.Total = RoundCents(total)
}

// ItemCount is the total number of units in the cart.
func (c *Cart) ItemCount() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Find returns the index of the line for barcode, or -1.
func (c *Cart) Find(barcode string) int {
	for i, it := range c.Items {
		if it.Barcode == barcode {
			return i
		}
	}
	return -1
}

// CartSummary is the cart page footer: VAT is included in the total.
type CartSummary struct {
	ItemCount int     `json:"item_count"`
	Subtotal  float64 `json:"subtotal"`
	VAT       float64 `json:"vat"`
	Total     float64 `json:"total"`
}

// Summary splits the VAT-inclusive total into net and VAT parts.
func (c *Cart) Summary() CartSummary {
	return CartSummary{
		ItemCount: c.ItemCount(),
		Subtotal:  RoundCents(c.Total * (1 - VATRate)),
		VAT:       RoundCents(c.Total * VATRate),
		Total:     c.Total,
	}
}

// AddItemRequest adds quantity units of a scanned product to the cart.
type AddItemRequest struct {
	Barcode  string `json:"barcode" binding:"required"`
	Quantity int    `json:"quantity"`
}

// UpdateQuantityRequest sets a line quantity; zero or less removes the line.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// RoundCents rounds an amount to two decimal places.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
