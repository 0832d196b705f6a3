package routes

import (
	"net/http"

	"github.com/counterjob/backend/internal/controllers"
	"github.com/counterjob/backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// Handlers bundles the controllers mounted on the router.
type Handlers struct {
	Auth     *controllers.AuthController
	Products *controllers.ProductController
	Cart     *controllers.CartController
	Receipts *controllers.ReceiptController
	Scan     *controllers.ScanController
}

// RegisterRoutes sets up every storefront route. Shopper routes require a
// session; catalog maintenance additionally requires the admin key.
func RegisterRoutes(r *gin.Engine, h Handlers, auth middleware.Authenticator, adminKey string) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "counterjob"})
	})

	// Public: sign-in
	authGroup := r.Group("/auth")
	authGroup.POST("/google", h.Auth.GoogleLogin)
	authGroup.POST("/login", h.Auth.EmailLogin)
	authGroup.POST("/logout", middleware.RequireAuth(auth), h.Auth.Logout)

	signedIn := r.Group("/")
	signedIn.Use(middleware.RequireAuth(auth))

	signedIn.GET("/profile", h.Auth.GetProfile)
	signedIn.PUT("/profile", h.Auth.UpdateProfile)

	signedIn.GET("/products", h.Products.List)
	signedIn.GET("/products/:barcode", h.Products.Get)

	// Admin: catalog maintenance
	admin := r.Group("/products")
	admin.Use(middleware.AdminKey(adminKey))
	admin.POST("", h.Products.Create)
	admin.PUT("/:barcode/stock", h.Products.UpdateStock)

	cart := signedIn.Group("/cart")
	cart.GET("", h.Cart.Get)
	cart.DELETE("", h.Cart.Clear)
	cart.POST("/items", h.Cart.AddItem)
	cart.PUT("/items/:barcode", h.Cart.UpdateItem)
	cart.DELETE("/items/:barcode", h.Cart.RemoveItem)

	signedIn.POST("/checkout", h.Cart.Checkout)

	receipts := signedIn.Group("/receipts")
	receipts.GET("", h.Receipts.List)
	receipts.GET("/:id", h.Receipts.Get)
	receipts.GET("/:id/download", h.Receipts.Download)
	receipts.DELETE("/:id", h.Receipts.Delete)
	receipts.POST("/:id/scan", h.Receipts.ScanProduct)

	scan := signedIn.Group("/scan")
	scan.POST("/code", h.Scan.ScanCode)
	scan.POST("/frame", h.Scan.ScanFrame)
}
