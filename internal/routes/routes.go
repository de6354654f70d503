package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"babyfood-store/internal/handlers"
)

// Deps agrupa lo que necesitan las rutas
type Deps struct {
	Products      *handlers.ProductHandler
	Cart          *handlers.CartHandler
	Limiter       *handlers.RateLimiter
	SecureCookies bool
}

func RegisterRoutes(router *gin.Engine, d Deps) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	{
		v1.GET("/products", d.Products.ListProducts)
		v1.POST("/products", d.Products.CreateProduct)
		v1.GET("/products/:slug", d.Products.GetProduct)
		v1.DELETE("/products/:slug", d.Products.DeleteProduct)
		v1.POST("/products/:slug/resolve", d.Products.ResolveProduct)
	}

	session := v1.Group("", handlers.Session(d.SecureCookies))
	{
		session.GET("/cart", d.Cart.GetCart)
		session.GET("/cart/events", d.Cart.Events)
	}

	mutations := session.Group("")
	if d.Limiter != nil {
		mutations.Use(d.Limiter.Middleware())
	}
	{
		mutations.POST("/cart/items", d.Cart.AddItem)
		mutations.PATCH("/cart/items", d.Cart.UpdateItem)
		mutations.DELETE("/cart/items", d.Cart.RemoveItem)
		mutations.DELETE("/cart", d.Cart.ClearCart)
		mutations.POST("/checkout", d.Cart.Checkout)
	}
}
