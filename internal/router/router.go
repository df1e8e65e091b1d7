package router

import (
	"database/sql"

	"comandero_backend/internal/clients"
	"comandero_backend/internal/events"
	"comandero_backend/internal/handlers"
	"comandero_backend/internal/middleware"
	"comandero_backend/internal/repositories"
	"comandero_backend/internal/services"
	"comandero_backend/internal/store"

	"github.com/gin-gonic/gin"
)

// Setup initializes the routing for the application and returns the comanda
// service (for the reconciliation loop) and the board hub (for the event
// pump), both started by the caller.
func Setup(engine *gin.Engine, db *sql.DB, ts *store.TenantStore, catalog clients.CatalogAPI, salesAPI clients.SalesAPI, bus *events.Bus) (services.ComandaService, *handlers.BoardHub) {
	// Initialize Repositories
	paymentRepo := repositories.NewPaymentRepository(db)

	// Initialize Services
	areaService := services.NewAreaService(catalog)
	consumptionService := services.NewConsumptionService(catalog, salesAPI)
	productionService := services.NewProductionService(ts, consumptionService, bus)
	comandaService := services.NewComandaService(ts, areaService, productionService, bus)
	paymentService := services.NewPaymentService(paymentRepo, db)

	// Initialize Handlers
	areaHandler := handlers.NewAreaHandler(areaService)
	comandaHandler := handlers.NewComandaHandler(comandaService)
	productionHandler := handlers.NewProductionHandler(productionService)
	consumptionHandler := handlers.NewConsumptionHandler(consumptionService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	boardHub := handlers.NewBoardHub()

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	apiV1 := engine.Group("/api/v1")

	authenticated := apiV1.Group("")
	authenticated.Use(middleware.AuthMiddleware())
	{
		SetupAreaRoutes(authenticated, areaHandler)
		SetupComandaRoutes(authenticated, comandaHandler)
		SetupProductionRoutes(authenticated, productionHandler)
		SetupConsumptionRoutes(authenticated, consumptionHandler)
		SetupPaymentRoutes(authenticated, paymentHandler)

		authenticated.GET("/ws/board", boardHub.ServeBoardFeed)
	}

	return comandaService, boardHub
}
