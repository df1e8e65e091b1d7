package services

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"comandero_backend/internal/models"
)

type fakeSales struct {
	mu           sync.Mutex
	unprocessed  []models.Sale
	products     map[string][]models.SoldLineItem
	productCalls map[string]int
	failuresLeft map[string]int
	emptiesLeft  map[string]int
	processed    map[string]bool
	markErr      error
}

func newFakeSales() *fakeSales {
	return &fakeSales{
		products:     make(map[string][]models.SoldLineItem),
		productCalls: make(map[string]int),
		failuresLeft: make(map[string]int),
		emptiesLeft:  make(map[string]int),
		processed:    make(map[string]bool),
	}
}

func (f *fakeSales) GetUnprocessedSales(_ context.Context) ([]models.Sale, error) {
	return f.unprocessed, nil
}

func (f *fakeSales) GetSaleProducts(_ context.Context, saleID string) ([]models.SoldLineItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.productCalls[saleID]++
	if f.failuresLeft[saleID] > 0 {
		f.failuresLeft[saleID]--
		return nil, errors.New("sales service unavailable")
	}
	if f.emptiesLeft[saleID] > 0 {
		f.emptiesLeft[saleID]--
		return []models.SoldLineItem{}, nil
	}
	return f.products[saleID], nil
}

func (f *fakeSales) MarkProcessed(_ context.Context, saleIDs []string) (int64, error) {
	if f.markErr != nil {
		return 0, f.markErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var affected int64
	for _, id := range saleIDs {
		if !f.processed[id] {
			f.processed[id] = true
			affected++
		}
	}
	return affected, nil
}

func newTestConsumptionService(catalog *fakeCatalog, sales *fakeSales) *consumptionService {
	svc := NewConsumptionService(catalog, sales).(*consumptionService)
	svc.retryDelay = time.Millisecond
	return svc
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAggregateEmptySelection(t *testing.T) {
	svc := newTestConsumptionService(&fakeCatalog{}, newFakeSales())

	result, err := svc.Aggregate(context.Background(), nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(result.Totals) != 0 || result.GrandTotal != 0 {
		t.Errorf("empty selection should produce an empty report, got %+v", result)
	}
}

func TestAggregateAccumulatesAcrossSales(t *testing.T) {
	catalog := &fakeCatalog{
		recipes: map[string][]models.Recipe{
			"P": {{ID: "r1", ProductID: "P"}},
		},
		ingredients: map[string][]models.Ingredient{
			"r1": {{ProductID: "I", Name: "Flour", Quantity: 100, UnitName: "g", DefaultPurchasePrice: 0.02}},
		},
	}
	sales := newFakeSales()
	sales.products["S1"] = []models.SoldLineItem{{ProductID: "P", Quantity: 2}}
	sales.products["S2"] = []models.SoldLineItem{{ProductID: "P", Quantity: 3}}

	svc := newTestConsumptionService(catalog, sales)
	result, err := svc.Aggregate(context.Background(), []string{"S1", "S2"})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if len(result.Totals) != 1 {
		t.Fatalf("expected 1 ingredient row, got %d", len(result.Totals))
	}
	row := result.Totals[0]
	// 100g per unit, 5 units sold across both sales.
	if !almostEqual(row.TotalQuantity, 500) {
		t.Errorf("expected total quantity 500, got %v", row.TotalQuantity)
	}
	if !almostEqual(row.TotalCost, 10) {
		t.Errorf("expected total cost 10.00, got %v", row.TotalCost)
	}
	if !almostEqual(row.UnitCost, 0.02) {
		t.Errorf("expected unit cost 0.02, got %v", row.UnitCost)
	}
	if !almostEqual(result.GrandTotal, 10) {
		t.Errorf("expected grand total 10.00, got %v", result.GrandTotal)
	}
}

func TestAggregateSkipsProductsWithoutRecipe(t *testing.T) {
	catalog := &fakeCatalog{
		recipes: map[string][]models.Recipe{
			"P": {{ID: "r1", ProductID: "P"}},
		},
		ingredients: map[string][]models.Ingredient{
			"r1": {{ProductID: "I", Name: "Flour", Quantity: 50, UnitName: "g", DefaultPurchasePrice: 0.01}},
		},
	}
	sales := newFakeSales()
	sales.products["S1"] = []models.SoldLineItem{
		{ProductID: "P", Quantity: 1},
		{ProductID: "no-recipe", Quantity: 4},
	}

	svc := newTestConsumptionService(catalog, sales)
	result, err := svc.Aggregate(context.Background(), []string{"S1"})
	if err != nil {
		t.Fatalf("no-recipe products must not fail the aggregation: %v", err)
	}
	if len(result.Totals) != 1 {
		t.Fatalf("expected only the recipe-backed product to contribute, got %+v", result.Totals)
	}
	if !almostEqual(result.Totals[0].TotalQuantity, 50) {
		t.Errorf("expected 50, got %v", result.Totals[0].TotalQuantity)
	}
}

func TestResolveCachesNoRecipeOutcome(t *testing.T) {
	catalog := &fakeCatalog{recipes: map[string][]models.Recipe{}}
	svc := newTestConsumptionService(catalog, newFakeSales())

	recipe, err := svc.Resolve(context.Background(), "no-recipe")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if recipe != nil {
		t.Fatalf("expected no recipe, got %+v", recipe)
	}

	// The catalog learning a recipe later must not change the cached outcome
	// within this service's lifetime.
	catalog.recipes["no-recipe"] = []models.Recipe{{ID: "r-new", ProductID: "no-recipe"}}
	recipe, err = svc.Resolve(context.Background(), "no-recipe")
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if recipe != nil {
		t.Error("no-recipe outcome should be served from cache")
	}
}

func TestResolvePicksExactProductMatch(t *testing.T) {
	catalog := &fakeCatalog{
		recipes: map[string][]models.Recipe{
			"P": {
				{ID: "r-other", ProductID: "OTHER"},
				{ID: "r-exact", ProductID: "P"},
				{ID: "r-late", ProductID: "P"},
			},
		},
		ingredients: map[string][]models.Ingredient{
			"r-exact": {{ProductID: "I", Quantity: 1}},
		},
	}
	svc := newTestConsumptionService(catalog, newFakeSales())

	recipe, err := svc.Resolve(context.Background(), "P")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if recipe == nil || recipe.ID != "r-exact" {
		t.Fatalf("expected first exact match r-exact, got %+v", recipe)
	}
}

func TestAggregateRetriesEmptyFetchOnce(t *testing.T) {
	catalog := &fakeCatalog{
		recipes: map[string][]models.Recipe{
			"P": {{ID: "r1", ProductID: "P"}},
		},
		ingredients: map[string][]models.Ingredient{
			"r1": {{ProductID: "I", Quantity: 10, DefaultPurchasePrice: 1}},
		},
	}
	sales := newFakeSales()
	sales.products["S1"] = []models.SoldLineItem{{ProductID: "P", Quantity: 1}}
	sales.emptiesLeft["S1"] = 1

	svc := newTestConsumptionService(catalog, sales)
	result, err := svc.Aggregate(context.Background(), []string{"S1"})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if sales.productCalls["S1"] != 2 {
		t.Errorf("expected exactly one retry (2 calls), got %d", sales.productCalls["S1"])
	}
	if len(result.SkippedSales) != 0 {
		t.Errorf("sale recovered on retry, should not be skipped: %v", result.SkippedSales)
	}
	if !almostEqual(result.GrandTotal, 10) {
		t.Errorf("expected grand total 10, got %v", result.GrandTotal)
	}
}

func TestAggregateSkipsSaleAfterRepeatedFailure(t *testing.T) {
	catalog := &fakeCatalog{
		recipes: map[string][]models.Recipe{
			"P": {{ID: "r1", ProductID: "P"}},
		},
		ingredients: map[string][]models.Ingredient{
			"r1": {{ProductID: "I", Quantity: 10, DefaultPurchasePrice: 1}},
		},
	}
	sales := newFakeSales()
	sales.products["good"] = []models.SoldLineItem{{ProductID: "P", Quantity: 1}}
	sales.failuresLeft["bad"] = 2

	svc := newTestConsumptionService(catalog, sales)
	result, err := svc.Aggregate(context.Background(), []string{"bad", "good"})
	if err != nil {
		t.Fatalf("one unfetchable sale must not fail the batch: %v", err)
	}
	if len(result.SkippedSales) != 1 || result.SkippedSales[0] != "bad" {
		t.Errorf("expected sale 'bad' skipped, got %v", result.SkippedSales)
	}
	if !almostEqual(result.GrandTotal, 10) {
		t.Errorf("the healthy sale should still be aggregated, got %v", result.GrandTotal)
	}
}

func TestAggregateUnitCostIsLastWriteWins(t *testing.T) {
	catalog := &fakeCatalog{
		recipes: map[string][]models.Recipe{
			"A": {{ID: "ra", ProductID: "A"}},
			"B": {{ID: "rb", ProductID: "B"}},
		},
		ingredients: map[string][]models.Ingredient{
			"ra": {{ProductID: "I", Name: "Flour", Quantity: 1, DefaultPurchasePrice: 0.10}},
			"rb": {{ProductID: "I", Name: "Flour", Quantity: 1, DefaultPurchasePrice: 0.30}},
		},
	}
	sales := newFakeSales()
	sales.products["S1"] = []models.SoldLineItem{
		{ProductID: "A", Quantity: 1},
		{ProductID: "B", Quantity: 1},
	}

	svc := newTestConsumptionService(catalog, sales)
	result, err := svc.Aggregate(context.Background(), []string{"S1"})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(result.Totals) != 1 {
		t.Fatalf("same join key should accumulate into one row, got %+v", result.Totals)
	}
	if !almostEqual(result.Totals[0].UnitCost, 0.30) {
		t.Errorf("unit cost should keep the last visited value, got %v", result.Totals[0].UnitCost)
	}
	if !almostEqual(result.Totals[0].TotalCost, 0.40) {
		t.Errorf("total cost should accumulate both prices, got %v", result.Totals[0].TotalCost)
	}
}

func TestAggregateAbortsOnCancelledContext(t *testing.T) {
	sales := newFakeSales()
	sales.products["S1"] = []models.SoldLineItem{{ProductID: "P", Quantity: 1}}
	svc := newTestConsumptionService(&fakeCatalog{}, sales)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Aggregate(ctx, []string{"S1"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(sales.processed) != 0 {
		t.Error("an abandoned aggregation must not mark anything processed")
	}
}

func TestMarkProcessedIsIdempotent(t *testing.T) {
	sales := newFakeSales()
	svc := newTestConsumptionService(&fakeCatalog{}, sales)
	ctx := context.Background()

	affected, err := svc.MarkProcessed(ctx, []string{"S1", "S2"})
	if err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	if affected != 2 {
		t.Errorf("expected 2 affected, got %d", affected)
	}

	affected, err = svc.MarkProcessed(ctx, []string{"S1", "S2"})
	if err != nil {
		t.Fatalf("second MarkProcessed: %v", err)
	}
	if affected != 0 {
		t.Errorf("re-marking processed sales should affect 0 rows, got %d", affected)
	}
}

func TestZeroIngredientRecipeContributesNothing(t *testing.T) {
	catalog := &fakeCatalog{
		recipes: map[string][]models.Recipe{
			"P": {{ID: "r1", ProductID: "P"}},
		},
		ingredients: map[string][]models.Ingredient{},
	}
	sales := newFakeSales()
	sales.products["S1"] = []models.SoldLineItem{{ProductID: "P", Quantity: 2}}

	svc := newTestConsumptionService(catalog, sales)
	result, err := svc.Aggregate(context.Background(), []string{"S1"})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(result.Totals) != 0 || result.GrandTotal != 0 {
		t.Errorf("recipe without ingredients should contribute zero, got %+v", result)
	}
}
