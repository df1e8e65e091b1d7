package handlers

import (
	"errors"
	"net/http"

	"comandero_backend/internal/middleware"
	"comandero_backend/internal/models"
	"comandero_backend/internal/services"
	"comandero_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ProductionHandler holds the production service.
type ProductionHandler struct {
	productionService services.ProductionService
}

// NewProductionHandler creates a new ProductionHandler.
func NewProductionHandler(ps services.ProductionService) *ProductionHandler {
	return &ProductionHandler{productionService: ps}
}

// GetProduction returns the tenant's production ledger, newest first.
func (h *ProductionHandler) GetProduction(c *gin.Context) {
	tenantID := middleware.TenantID(c)

	records, err := h.productionService.List(c.Request.Context(), tenantID)
	if err != nil {
		utils.LogError(err, "GetProduction: Error from productionService.List")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch production records.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"production": records})
}

// RecordProduction appends a record directly, bypassing the comanda board.
// Used by direct sales that never produce a kitchen ticket.
func (h *ProductionHandler) RecordProduction(c *gin.Context) {
	tenantID := middleware.TenantID(c)

	var record models.ProductionRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		utils.LogError(err, "RecordProduction: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	created, err := h.productionService.Record(c.Request.Context(), tenantID, record)
	if err != nil {
		utils.LogError(err, "RecordProduction: Error from productionService.Record")
		if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid production record.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to record production.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusCreated, created)
}
