package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"comandero_backend/internal/clients"
	"comandero_backend/internal/models"
	"comandero_backend/pkg/utils"
)

// emptyFetchRetryDelay is the pause before the single retry when a sale's
// line items come back empty or the fetch fails outright.
const emptyFetchRetryDelay = 300 * time.Millisecond

// RecipeResolver maps a product to at most one recipe. A product without a
// recipe is a normal outcome, reported as (nil, nil); only transport and
// catalog failures surface as errors.
type RecipeResolver interface {
	Resolve(ctx context.Context, productID string) (*models.Recipe, error)
}

// --- Data Transfer Objects (DTOs) ---

// IngredientTotal is one row of the consumption report: a single ingredient
// accumulated across every selected sale.
type IngredientTotal struct {
	ProductID     string  `json:"product_id"`
	Name          string  `json:"name"`
	UnitName      string  `json:"unit_name"`
	TotalQuantity float64 `json:"total_quantity"`
	TotalCost     float64 `json:"total_cost"`
	UnitCost      float64 `json:"unit_cost"`
}

// AggregationResult is the preview phase of the two-phase consumption flow.
// Nothing is marked processed until the caller confirms explicitly.
type AggregationResult struct {
	Totals       []IngredientTotal `json:"totals"`
	GrandTotal   float64           `json:"grand_total"`
	SkippedSales []string          `json:"skipped_sales,omitempty"`
}

// ConfirmConsumptionRequest closes the loop on an aggregation the operator
// reviewed and accepted.
type ConfirmConsumptionRequest struct {
	SaleIDs []string `json:"sale_ids" binding:"required"`
}

// --- ConsumptionService Interface ---

// ConsumptionService computes ingredient consumption and cost across batches
// of unprocessed sales and drives the processing gate.
type ConsumptionService interface {
	RecipeResolver
	ListUnprocessed(ctx context.Context) ([]models.Sale, error)
	Aggregate(ctx context.Context, saleIDs []string) (*AggregationResult, error)
	MarkProcessed(ctx context.Context, saleIDs []string) (int64, error)
}

// --- consumptionService Implementation ---

type consumptionService struct {
	catalog    clients.CatalogAPI
	sales      clients.SalesAPI
	retryDelay time.Duration

	mu        sync.Mutex
	lineCache map[string][]models.SoldLineItem
	recipes   map[string]*models.Recipe
}

// NewConsumptionService creates a new instance of ConsumptionService.
func NewConsumptionService(catalog clients.CatalogAPI, sales clients.SalesAPI) ConsumptionService {
	return &consumptionService{
		catalog:    catalog,
		sales:      sales,
		retryDelay: emptyFetchRetryDelay,
		lineCache:  make(map[string][]models.SoldLineItem),
		recipes:    make(map[string]*models.Recipe),
	}
}

func (s *consumptionService) ListUnprocessed(ctx context.Context) ([]models.Sale, error) {
	sales, err := s.sales.GetUnprocessedSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing unprocessed sales: %w", err)
	}
	return sales, nil
}

// Resolve returns the first recipe whose product_id exactly matches the
// product, with its ingredient list attached. Results, including the
// "no recipe" outcome, are cached for the lifetime of the service.
func (s *consumptionService) Resolve(ctx context.Context, productID string) (*models.Recipe, error) {
	s.mu.Lock()
	cached, ok := s.recipes[productID]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	recipes, err := s.catalog.GetRecipesByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("resolving recipe for product %s: %w", productID, err)
	}

	var match *models.Recipe
	for i := range recipes {
		if recipes[i].ProductID == productID {
			match = &recipes[i]
			break
		}
	}
	if match == nil {
		s.mu.Lock()
		s.recipes[productID] = nil
		s.mu.Unlock()
		return nil, nil
	}

	if len(match.Ingredients) == 0 {
		ingredients, err := s.catalog.GetRecipeIngredients(ctx, match.ID)
		if err != nil {
			return nil, fmt.Errorf("resolving ingredients for recipe %s: %w", match.ID, err)
		}
		match.Ingredients = ingredients
	}

	s.mu.Lock()
	s.recipes[productID] = match
	s.mu.Unlock()
	return match, nil
}

// fetchLineItems returns the sale's line items, consulting the cache first.
// An empty or failed fetch gets one retry after a short pause; a sale that
// still yields nothing is reported as unfetchable.
func (s *consumptionService) fetchLineItems(ctx context.Context, saleID string) ([]models.SoldLineItem, error) {
	s.mu.Lock()
	items, ok := s.lineCache[saleID]
	s.mu.Unlock()
	if ok && len(items) > 0 {
		return items, nil
	}

	items, err := s.sales.GetSaleProducts(ctx, saleID)
	if err == nil && len(items) > 0 {
		s.cacheLineItems(saleID, items)
		return items, nil
	}
	if err != nil {
		utils.LogError(err, "ConsumptionService: line item fetch failed, retrying once")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.retryDelay):
	}

	items, err = s.sales.GetSaleProducts(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("fetching line items for sale %s: %w", saleID, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("sale %s has no line items after retry", saleID)
	}
	s.cacheLineItems(saleID, items)
	return items, nil
}

func (s *consumptionService) cacheLineItems(saleID string, items []models.SoldLineItem) {
	s.mu.Lock()
	s.lineCache[saleID] = items
	s.mu.Unlock()
}

// Aggregate computes ingredient totals and costs for the selected sales.
// Line cost is recipe quantity x sold quantity x default purchase price;
// per-unit cost keeps the value from the most recently visited occurrence.
// Sales whose line items cannot be obtained are skipped and reported, never
// silently folded in as zero. Totals keep unrounded float values; rounding
// is a presentation concern.
func (s *consumptionService) Aggregate(ctx context.Context, saleIDs []string) (*AggregationResult, error) {
	result := &AggregationResult{Totals: []IngredientTotal{}}
	totals := make(map[string]*IngredientTotal)
	order := make([]string, 0)

	for _, saleID := range saleIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		items, err := s.fetchLineItems(ctx, saleID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			utils.LogError(err, "ConsumptionService: skipping sale in aggregation")
			result.SkippedSales = append(result.SkippedSales, saleID)
			continue
		}

		for _, line := range items {
			recipe, err := s.Resolve(ctx, line.ProductID)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				utils.LogError(err, "ConsumptionService: recipe lookup failed, skipping line item")
				continue
			}
			if recipe == nil {
				continue
			}

			for _, ing := range recipe.Ingredients {
				key := ing.JoinKey()
				total, ok := totals[key]
				if !ok {
					total = &IngredientTotal{
						ProductID: key,
						Name:      ing.Name,
						UnitName:  ing.UnitName,
					}
					totals[key] = total
					order = append(order, key)
				}

				lineQuantity := ing.Quantity * float64(line.Quantity)
				total.TotalQuantity += lineQuantity
				total.TotalCost += lineQuantity * ing.DefaultPurchasePrice
				total.UnitCost = ing.DefaultPurchasePrice
			}
		}
	}

	for _, key := range order {
		result.Totals = append(result.Totals, *totals[key])
		result.GrandTotal += totals[key].TotalCost
	}
	return result, nil
}

// MarkProcessed confirms an aggregation: the sales service flags the sales
// and they drop out of every future unprocessed batch. Already-processed ids
// simply do not count toward the affected total.
func (s *consumptionService) MarkProcessed(ctx context.Context, saleIDs []string) (int64, error) {
	if len(saleIDs) == 0 {
		return 0, nil
	}

	affected, err := s.sales.MarkProcessed(ctx, saleIDs)
	if err != nil {
		return 0, fmt.Errorf("marking sales processed: %w", err)
	}

	s.mu.Lock()
	for _, id := range saleIDs {
		delete(s.lineCache, id)
	}
	s.mu.Unlock()

	utils.LogInfo("ConsumptionService: sales marked processed", map[string]interface{}{
		"requested": len(saleIDs),
		"affected":  affected,
	})
	return affected, nil
}
