package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"backend/internal/config"
	"backend/internal/database"
	"backend/internal/handlers"
	"backend/internal/lifecycle"
	"backend/internal/middleware"
	"backend/internal/payments"
	"backend/internal/pricing"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureOrderIndexes(db); err != nil {
		log.Printf("⚠️ order index warning: %v", err)
	}
	if err := database.EnsurePrintIndexes(db); err != nil {
		log.Printf("⚠️ print index warning: %v", err)
	}
	if err := database.EnsureWebhookEventIndexes(db); err != nil {
		log.Printf("⚠️ webhook event index warning: %v", err)
	}

	catalog := pricing.DefaultCatalog()
	envelope := config.AppEnv.BuildEnvelope

	orderStore := database.NewOrderStore(db)
	eventStore := database.NewWebhookEventStore(db)
	controller := lifecycle.NewController(orderStore)
	sessions := payments.NewClient(config.AppEnv.PaymentAPIKey, "")

	r := gin.Default()

	r.GET("/materials", handlers.GetCatalog(catalog, envelope))
	r.POST("/quotes", handlers.Quote(catalog, envelope))
	r.POST("/prints", handlers.CreatePrint(db, catalog, envelope))
	r.GET("/orders/:id", handlers.GetOrder(db))
	r.POST("/orders/:id/checkout", handlers.Checkout(db, sessions, controller, config.AppEnv.SiteURL))

	r.POST("/webhooks/payment", handlers.PaymentWebhook(
		orderStore,
		eventStore,
		controller,
		config.AppEnv.PaymentWebhookSecret,
		config.AppEnv.WebhookTolerance,
	))

	r.POST("/admin/login", handlers.AdminLogin(db, config.AppEnv.JWTSecret, config.AppEnv.AccessTokenTTL))

	admin := r.Group("/admin/api")
	admin.Use(middleware.AdminAuth(config.AppEnv.JWTSecret))
	{
		admin.GET("/me", func(c *gin.Context) {
			c.JSON(200, gin.H{"ok": true})
		})

		admin.GET("/orders", handlers.GetAllOrders(db))
		admin.DELETE("/orders/:id", handlers.DeleteOrder(db))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}
