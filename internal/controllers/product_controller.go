package controllers

import (
	"net/http"

	apperrors "github.com/counterjob/backend/internal/errors"
	"github.com/counterjob/backend/internal/models"
	"github.com/gin-gonic/gin"
)

type ProductController struct {
	products ProductAPI
}

func NewProductController(products ProductAPI) *ProductController {
	return &ProductController{products: products}
}

// List handles GET /products
func (pc *ProductController) List(c *gin.Context) {
	products, err := pc.products.List(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
}

// Get handles GET /products/:barcode. Unknown barcodes answer 200 with the
// placeholder product so the scanner flow can still show something.
func (pc *ProductController) Get(c *gin.Context) {
	view, err := pc.products.Detail(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": view})
}

// Create handles POST /products
func (pc *ProductController) Create(c *gin.Context) {
	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := pc.products.Create(c.Request.Context(), &req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": p.ID, "product": p})
}

// UpdateStock handles PUT /products/:barcode/stock
func (pc *ProductController) UpdateStock(c *gin.Context) {
	var req models.UpdateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := pc.products.UpdateStock(c.Request.Context(), c.Param("barcode"), *req.Stock)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}
