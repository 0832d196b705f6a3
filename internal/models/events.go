package models

import "time"

const EventCheckoutCompleted = "checkout.completed"

// CheckoutEvent is published after a receipt has been stored.
type CheckoutEvent struct {
	Event     string        `json:"event"`
	ReceiptID string        `json:"receipt_id"`
	Email     string        `json:"email"`
	Items     []ReceiptItem `json:"items"`
	Total     float64       `json:"total"`
	Timestamp time.Time     `json:"timestamp"`
}
