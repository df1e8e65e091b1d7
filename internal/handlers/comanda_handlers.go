package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"comandero_backend/internal/middleware"
	"comandero_backend/internal/models"
	"comandero_backend/internal/services"
	"comandero_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ComandaHandler holds the comanda service.
type ComandaHandler struct {
	comandaService services.ComandaService
}

// NewComandaHandler creates a new ComandaHandler.
func NewComandaHandler(cs services.ComandaService) *ComandaHandler {
	return &ComandaHandler{comandaService: cs}
}

// CreateComandas routes a finalized sale into per-area comandas.
func (h *ComandaHandler) CreateComandas(c *gin.Context) {
	tenantID := middleware.TenantID(c)

	var req services.CreateComandaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "CreateComandas: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	if err := h.comandaService.ActivateTenant(c.Request.Context(), tenantID); err != nil {
		utils.LogError(err, "CreateComandas: tenant activation failed")
	}

	created, err := h.comandaService.CreateFromSale(c.Request.Context(), tenantID, req)
	if err != nil {
		utils.LogError(err, "CreateComandas: Error from comandaService.CreateFromSale")
		if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid sale payload.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to create comandas.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comandas": created})
}

// GetComandasByArea returns the board of one preparation area, FIFO.
func (h *ComandaHandler) GetComandasByArea(c *gin.Context) {
	tenantID := middleware.TenantID(c)
	area := c.Query("area")
	if area == "" {
		area = models.GeneralArea
	}

	if err := h.comandaService.ActivateTenant(c.Request.Context(), tenantID); err != nil {
		utils.LogError(err, "GetComandasByArea: tenant activation failed")
	}

	comandas, err := h.comandaService.GetByArea(c.Request.Context(), tenantID, area)
	if err != nil {
		utils.LogError(err, "GetComandasByArea: Error from comandaService.GetByArea")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch comandas.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"area": models.NormalizeArea(area), "comandas": comandas})
}

// AdvanceItem moves one comanda item forward on its lifecycle.
func (h *ComandaHandler) AdvanceItem(c *gin.Context) {
	tenantID := middleware.TenantID(c)
	comandaID := c.Param("id")

	itemIndex, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid item index.", err.Error()))
		return
	}

	var req services.AdvanceItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "AdvanceItem: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	updated, err := h.comandaService.AdvanceItem(c.Request.Context(), tenantID, comandaID, itemIndex, req.Status)
	if err != nil {
		utils.LogError(err, "AdvanceItem: Error from comandaService.AdvanceItem")
		switch {
		case errors.Is(err, services.ErrComandaNotFound):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Comanda not found.", err.Error()))
		case errors.Is(err, services.ErrItemOutOfRange), errors.Is(err, services.ErrInvalidTransition):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid item update.", err.Error()))
		default:
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to update item.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, updated)
}

// CompleteItem removes the item from its comanda and records production.
func (h *ComandaHandler) CompleteItem(c *gin.Context) {
	tenantID := middleware.TenantID(c)
	comandaID := c.Param("id")

	itemIndex, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid item index.", err.Error()))
		return
	}

	record, err := h.comandaService.CompleteItem(c.Request.Context(), tenantID, comandaID, itemIndex)
	if err != nil {
		utils.LogError(err, "CompleteItem: Error from comandaService.CompleteItem")
		switch {
		case errors.Is(err, services.ErrComandaNotFound):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Comanda not found.", err.Error()))
		case errors.Is(err, services.ErrItemOutOfRange):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid item index.", err.Error()))
		default:
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to complete item.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, record)
}

// UpdateComandaStatus sets the ticket-level status label.
func (h *ComandaHandler) UpdateComandaStatus(c *gin.Context) {
	tenantID := middleware.TenantID(c)
	comandaID := c.Param("id")

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "UpdateComandaStatus: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	if err := h.comandaService.UpdateComandaStatus(c.Request.Context(), tenantID, comandaID, req.Status); err != nil {
		utils.LogError(err, "UpdateComandaStatus: Error from comandaService.UpdateComandaStatus")
		if errors.Is(err, services.ErrComandaNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Comanda not found.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to update comanda.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": comandaID, "status": req.Status})
}

// ClearArea wipes every comanda of one area. Irreversible.
func (h *ComandaHandler) ClearArea(c *gin.Context) {
	tenantID := middleware.TenantID(c)
	area := c.Query("area")
	if area == "" {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Query parameter 'area' is required.", ""))
		return
	}

	removed, err := h.comandaService.ClearByArea(c.Request.Context(), tenantID, area)
	if err != nil {
		utils.LogError(err, "ClearArea: Error from comandaService.ClearByArea")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to clear area.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"area": models.NormalizeArea(area), "removed": removed})
}
