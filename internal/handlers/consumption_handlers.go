package handlers

import (
	"net/http"

	"comandero_backend/internal/services"
	"comandero_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ConsumptionHandler holds the consumption service.
type ConsumptionHandler struct {
	consumptionService services.ConsumptionService
}

// NewConsumptionHandler creates a new ConsumptionHandler.
func NewConsumptionHandler(cs services.ConsumptionService) *ConsumptionHandler {
	return &ConsumptionHandler{consumptionService: cs}
}

// GetUnprocessedSales lists the sales still awaiting consumption processing.
func (h *ConsumptionHandler) GetUnprocessedSales(c *gin.Context) {
	sales, err := h.consumptionService.ListUnprocessed(c.Request.Context())
	if err != nil {
		utils.LogError(err, "GetUnprocessedSales: Error from consumptionService.ListUnprocessed")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch unprocessed sales.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"sales": sales})
}

// AggregateConsumption is the preview phase: totals are computed and shown
// but nothing is marked processed.
func (h *ConsumptionHandler) AggregateConsumption(c *gin.Context) {
	var req services.ConfirmConsumptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "AggregateConsumption: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	result, err := h.consumptionService.Aggregate(c.Request.Context(), req.SaleIDs)
	if err != nil {
		utils.LogError(err, "AggregateConsumption: Error from consumptionService.Aggregate")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to aggregate consumption.", "Internal error"))
		return
	}

	// Totals carry unrounded floats internally; the report rounds for display.
	for i := range result.Totals {
		result.Totals[i].TotalQuantity = utils.Round2(result.Totals[i].TotalQuantity)
		result.Totals[i].TotalCost = utils.Round2(result.Totals[i].TotalCost)
	}
	result.GrandTotal = utils.Round2(result.GrandTotal)
	c.JSON(http.StatusOK, result)
}

// ConfirmConsumption is the commit phase: the reviewed sales are flagged
// processed and drop out of future batches.
func (h *ConsumptionHandler) ConfirmConsumption(c *gin.Context) {
	var req services.ConfirmConsumptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "ConfirmConsumption: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	affected, err := h.consumptionService.MarkProcessed(c.Request.Context(), req.SaleIDs)
	if err != nil {
		utils.LogError(err, "ConfirmConsumption: Error from consumptionService.MarkProcessed")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to mark sales processed.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "affected": affected})
}
