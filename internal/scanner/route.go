package scanner

import (
	"context"
	"net/url"

	"github.com/counterjob/backend/internal/models"
)

const (
	RouteReceipt = "receipt"
	RouteProduct = "product"
)

// Route is where a scanned code sends the shopper.
type Route struct {
	Kind string `json:"kind"`
	Code string `json:"code"`
	Path string `json:"path"`
}

// ReceiptExists reports whether a stored receipt matches a TXN code.
type ReceiptExists func(ctx context.Context, code string) (bool, error)

// Resolve routes TXN codes with a matching receipt to the receipt view and
// everything else to the product view.
func Resolve(ctx context.Context, code string, exists ReceiptExists) (Route, error) {
	if models.IsTransactionCode(code) && exists != nil {
		ok, err := exists(ctx, code)
		if err != nil {
			return Route{}, err
		}
		if ok {
			return Route{
				Kind: RouteReceipt,
				Code: code,
				Path: "/receipts/" + url.PathEscape(models.ReceiptID(code)),
			}, nil
		}
	}
	return Route{Kind: RouteProduct, Code: code, Path: "/products/" + url.PathEscape(code)}, nil
}
