package handlers

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"chatorder-backend/config"
	"chatorder-backend/middleware"
	"chatorder-backend/services"
	"chatorder-backend/utils/version"
)

type Router struct {
	Messages *MessageHandler
	Auth     *AuthHandler
	Products *ProductHandler
	Admin    *AdminHandler
	Hub      *services.Hub
}

// NewRouter 注册全部路由
func NewRouter(cfg *config.Config, h Router) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = cfg.Server.AllowOrigins
	if len(corsCfg.AllowOrigins) == 0 || corsCfg.AllowOrigins[0] == "*" {
		corsCfg.AllowOrigins = nil
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AddAllowHeaders("Authorization")
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": version.AppVersion})
	})

	v1 := r.Group("/api/v1")
	{
		// 传输网关入口
		v1.POST("/messages", h.Messages.HandleMessage)
		v1.POST("/messages/async", h.Messages.EnqueueMessage)

		v1.POST("/auth/token", h.Auth.Token)

		v1.GET("/products", h.Products.GetProducts)
		v1.GET("/products/barcode/:code", h.Products.GetByBarcode)
		v1.GET("/categories", h.Products.GetCategories)
	}

	admin := v1.Group("/admin", middleware.AuthMiddleware(cfg.Auth.JWTSecret))
	{
		admin.GET("/status", h.Admin.Status)
		admin.PATCH("/bot", h.Admin.UpdateBot)
		admin.GET("/ignored", h.Admin.GetIgnored)
		admin.POST("/ignored/:identity", h.Admin.Ignore)
		admin.DELETE("/ignored/:identity", h.Admin.Unignore)

		admin.GET("/discounts", h.Admin.GetDiscounts)
		admin.PUT("/discounts", h.Admin.SaveDiscounts)

		admin.POST("/catalog/reload", h.Products.ReloadCatalog)
		admin.POST("/catalog/import", h.Products.ImportCatalog)
		admin.PATCH("/products/:id/stock", h.Products.SetStock)

		admin.GET("/orders", h.Admin.ListOrders)
		admin.GET("/orders/export", h.Admin.ExportOrders)
		admin.GET("/orders/:code", h.Admin.GetOrder)
		admin.GET("/customers/:identity", h.Admin.GetCustomer)

		admin.GET("/ws", func(c *gin.Context) {
			ServeWs(h.Hub, c)
		})
	}
	return r
}
