package router

import (
	"comandero_backend/internal/handlers"

	"github.com/gin-gonic/gin"
)

// SetupAreaRoutes sets up the preparation-area directory routes.
func SetupAreaRoutes(authenticatedGroup *gin.RouterGroup, areaHandler *handlers.AreaHandler) {
	authenticatedGroup.GET("/areas", areaHandler.GetAreas)
}

// SetupComandaRoutes sets up the comanda board routes.
func SetupComandaRoutes(authenticatedGroup *gin.RouterGroup, comandaHandler *handlers.ComandaHandler) {
	comandaRoutes := authenticatedGroup.Group("/comandas")
	{
		comandaRoutes.POST("", comandaHandler.CreateComandas)
		comandaRoutes.GET("", comandaHandler.GetComandasByArea)
		comandaRoutes.DELETE("", comandaHandler.ClearArea)
		comandaRoutes.PUT("/:id/status", comandaHandler.UpdateComandaStatus)
		comandaRoutes.PUT("/:id/items/:index/status", comandaHandler.AdvanceItem)
		comandaRoutes.POST("/:id/items/:index/complete", comandaHandler.CompleteItem)
	}
}

// SetupProductionRoutes sets up the production ledger routes.
func SetupProductionRoutes(authenticatedGroup *gin.RouterGroup, productionHandler *handlers.ProductionHandler) {
	productionRoutes := authenticatedGroup.Group("/production")
	{
		productionRoutes.GET("", productionHandler.GetProduction)
		productionRoutes.POST("", productionHandler.RecordProduction)
	}
}

// SetupConsumptionRoutes sets up the two-phase consumption routes.
func SetupConsumptionRoutes(authenticatedGroup *gin.RouterGroup, consumptionHandler *handlers.ConsumptionHandler) {
	consumptionRoutes := authenticatedGroup.Group("/consumption")
	{
		consumptionRoutes.GET("/unprocessed", consumptionHandler.GetUnprocessedSales)
		consumptionRoutes.POST("/aggregate", consumptionHandler.AggregateConsumption)
		consumptionRoutes.POST("/confirm", consumptionHandler.ConfirmConsumption)
	}
}

// SetupPaymentRoutes sets up the transaction payment routes.
func SetupPaymentRoutes(authenticatedGroup *gin.RouterGroup, paymentHandler *handlers.PaymentHandler) {
	authenticatedGroup.POST("/transaction-payments", paymentHandler.CreateTransactionPayment)
	authenticatedGroup.GET("/transaction-payments/:transaction_id", paymentHandler.GetTransactionPayments)
}
