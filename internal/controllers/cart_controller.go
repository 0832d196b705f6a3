package controllers

import (
	"net/http"

	apperrors "github.com/counterjob/backend/internal/errors"
	"github.com/counterjob/backend/internal/middleware"
	"github.com/counterjob/backend/internal/models"
	"github.com/gin-gonic/gin"
)

type CartController struct {
	cart     CartAPI
	checkout CheckoutAPI
}

func NewCartController(cart CartAPI, checkout CheckoutAPI) *CartController {
	return &CartController{cart: cart, checkout: checkout}
}

func writeCart(c *gin.Context, cart *models.Cart) {
	c.JSON(http.StatusOK, gin.H{"cart": cart, "summary": cart.Summary()})
}

// Get handles GET /cart
func (cc *CartController) Get(c *gin.Context) {
	cart, err := cc.cart.Get(c.Request.Context(), middleware.CurrentEmail(c))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	writeCart(c, cart)
}

// AddItem handles POST /cart/items
func (cc *CartController) AddItem(c *gin.Context) {
	var req models.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cart, err := cc.cart.AddItem(c.Request.Context(), middleware.CurrentEmail(c), req.Barcode, req.Quantity)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	writeCart(c, cart)
}

// UpdateItem handles PUT /cart/items/:barcode
func (cc *CartController) UpdateItem(c *gin.Context) {
	var req models.UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cart, err := cc.cart.UpdateQuantity(c.Request.Context(), middleware.CurrentEmail(c), c.Param("barcode"), *req.Quantity)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	writeCart(c, cart)
}

// RemoveItem handles DELETE /cart/items/:barcode
func (cc *CartController) RemoveItem(c *gin.Context) {
	cart, err := cc.cart.RemoveItem(c.Request.Context(), middleware.CurrentEmail(c), c.Param("barcode"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	writeCart(c, cart)
}

// Clear handles DELETE /cart
func (cc *CartController) Clear(c *gin.Context) {
	if err := cc.cart.Clear(c.Request.Context(), middleware.CurrentEmail(c)); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Checkout handles POST /checkout
func (cc *CartController) Checkout(c *gin.Context) {
	tx, err := cc.checkout.Checkout(c.Request.Context(), middleware.CurrentEmail(c))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": tx})
}
