package controllers

import (
	"net/http"
	"strings"

	apperrors "github.com/counterjob/backend/internal/errors"
	"github.com/counterjob/backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type ReceiptController struct {
	receipts ReceiptAPI
	products ProductAPI
}

func NewReceiptController(receipts ReceiptAPI, products ProductAPI) *ReceiptController {
	return &ReceiptController{receipts: receipts, products: products}
}

type scanCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// List handles GET /receipts
func (rc *ReceiptController) List(c *gin.Context) {
	list, err := rc.receipts.List(c.Request.Context(), middleware.CurrentEmail(c))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"receipts": list})
}

// Get handles GET /receipts/:id; the id may carry the TXN prefix.
func (rc *ReceiptController) Get(c *gin.Context) {
	tx, err := rc.receipts.Find(c.Request.Context(), middleware.CurrentEmail(c), c.Param("id"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if tx == nil {
		apperrors.Respond(c, apperrors.ErrReceiptNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"receipt": tx})
}

// Download handles GET /receipts/:id/download
func (rc *ReceiptController) Download(c *gin.Context) {
	url, expires, err := rc.receipts.DownloadURL(c.Request.Context(), middleware.CurrentEmail(c), c.Param("id"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "expires_at": expires})
}

// Delete handles DELETE /receipts/:id
func (rc *ReceiptController) Delete(c *gin.Context) {
	if err := rc.receipts.Delete(c.Request.Context(), middleware.CurrentEmail(c), c.Param("id")); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ScanProduct handles POST /receipts/:id/scan: an item scanned while viewing
// a receipt is looked up in the full catalog.
func (rc *ReceiptController) ScanProduct(c *gin.Context) {
	var req scanCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	code := strings.TrimSpace(req.Code)
	p, err := rc.products.FindInCatalog(c.Request.Context(), code)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found", "barcode": code})
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}
