package services

import (
	"context"

	"comandero_backend/internal/clients"
	"comandero_backend/internal/models"
	"comandero_backend/pkg/utils"
)

// AreaService resolves the preparation-area directory consumed by the router
// and the board screens.
type AreaService interface {
	// GetAreas returns the directory with the synthetic General entry
	// prepended. Configuration absence (or an unreachable catalog) degrades
	// to a General-only directory and is never surfaced as an error.
	GetAreas(ctx context.Context) []models.OrderArea
}

type areaService struct {
	catalog clients.CatalogAPI
}

// NewAreaService creates a new instance of AreaService.
func NewAreaService(catalog clients.CatalogAPI) AreaService {
	return &areaService{catalog: catalog}
}

func (s *areaService) GetAreas(ctx context.Context) []models.OrderArea {
	directory := []models.OrderArea{models.GeneralOrderArea()}

	if s.catalog == nil {
		return directory
	}

	areas, err := s.catalog.GetOrderAreas(ctx)
	if err != nil {
		utils.LogError(err, "AreaService: failed to fetch order areas, degrading to General only")
		return directory
	}
	return append(directory, areas...)
}

// RouteItems partitions a finalized sale's line items by preparation area.
// Items with no area id, an id of zero, or an id absent from the directory
// are bucketed under General. Within a bucket the sale's original item order
// is preserved, and no item ever lands in more than one bucket. Pure: no
// side effects, no mutation of the inputs.
func RouteItems(items []models.SoldLineItem, directory []models.OrderArea) map[string][]models.ComandaItem {
	names := make(map[int64]string, len(directory))
	for _, area := range directory {
		if area.ID != 0 {
			names[area.ID] = area.Name
		}
	}

	buckets := make(map[string][]models.ComandaItem)
	for _, line := range items {
		area := models.GeneralArea
		if line.OrderAreaID != nil && *line.OrderAreaID != 0 {
			if name, ok := names[*line.OrderAreaID]; ok {
				area = name
			}
		}
		buckets[area] = append(buckets[area], models.ComandaItem{
			ID:       line.ProductID,
			Name:     line.Name,
			Quantity: line.Quantity,
			Image:    line.Image,
			Status:   models.ItemStatusPending,
		})
	}
	return buckets
}
