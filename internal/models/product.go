package models

import "time"

// Product is a catalog entry addressed by its printed barcode.
type Product struct {
	ID          string    `json:"id" bson:"_id"`
	Barcode     string    `json:"barcode" bson:"barcode"`
	Name        string    `json:"name" bson:"name"`
	Brand       string    `json:"brand,omitempty" bson:"brand,omitempty"`
	Category    string    `json:"category" bson:"category"`
	Description string    `json:"description" bson:"description"`
	Price       float64   `json:"price" bson:"price"`
	Stock       int       `json:"stock" bson:"stock"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// ProductView is what the product page shows for a scanned barcode. Unknown
// barcodes produce a placeholder with NotFound set.
type ProductView struct {
	Product
	NotFound bool `json:"not_found,omitempty"`
}

// UnknownProduct builds the placeholder shown for barcodes missing from the
// catalog.
func UnknownProduct(barcode string) *ProductView {
	return &ProductView{
		Product: Product{
			Barcode:     barcode,
			Name:        "Unknown Product",
			Price:       0,
			Category:    "Unknown",
			Stock:       0,
			Description: "This product is not in our database.",
		},
		NotFound: true,
	}
}

// CreateProductRequest is the admin payload for adding a catalog entry. The
// validate tags are checked by the product service for every caller; binding
// tags reject malformed HTTP bodies early.
type CreateProductRequest struct {
	Barcode     string  `json:"barcode" binding:"required" validate:"required,max=64"`
	Name        string  `json:"name" binding:"required" validate:"required,max=200"`
	Brand       string  `json:"brand" validate:"max=100"`
	Category    string  `json:"category" validate:"max=100"`
	Description string  `json:"description" validate:"max=2000"`
	Price       float64 `json:"price" binding:"gte=0" validate:"gte=0"`
	Stock       int     `json:"stock" binding:"gte=0" validate:"gte=0"`
}

// UpdateStockRequest sets the absolute stock level of a product.
type UpdateStockRequest struct {
	Stock *int `json:"stock" binding:"required,gte=0"`
}
