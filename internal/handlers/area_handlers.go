package handlers

import (
	"net/http"

	"comandero_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// AreaHandler holds the area service.
type AreaHandler struct {
	areaService services.AreaService
}

// NewAreaHandler creates a new AreaHandler.
func NewAreaHandler(as services.AreaService) *AreaHandler {
	return &AreaHandler{areaService: as}
}

// GetAreas serves the preparation-area directory. General is always present,
// even when the catalog is unreachable.
func (h *AreaHandler) GetAreas(c *gin.Context) {
	areas := h.areaService.GetAreas(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"areas": areas})
}
