package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"comandero_backend/internal/events"
	"comandero_backend/internal/models"
	"comandero_backend/internal/store"
	"comandero_backend/pkg/utils"
)

// recipeCheckTimeout bounds the catalog round-trips performed while tagging a
// fresh production record with its recipe flag.
const recipeCheckTimeout = 3 * time.Second

// --- ProductionService Interface ---

// ProductionService owns the production ledger: the append-only trace of what
// the kitchen actually produced. Records are immutable once written.
type ProductionService interface {
	RecordFromComanda(ctx context.Context, tenantID string, comanda models.Comanda, items []models.ComandaItem) (*models.ProductionRecord, error)
	Record(ctx context.Context, tenantID string, record models.ProductionRecord) (*models.ProductionRecord, error)
	List(ctx context.Context, tenantID string) ([]models.ProductionRecord, error)
}

// --- productionService Implementation ---

type productionService struct {
	store    *store.TenantStore
	resolver RecipeResolver
	bus      *events.Bus
	locks    *keyedMutex

	idMu   sync.Mutex
	lastID int64
}

// NewProductionService creates a new instance of ProductionService.
func NewProductionService(ts *store.TenantStore, resolver RecipeResolver, bus *events.Bus) ProductionService {
	return &productionService{
		store:    ts,
		resolver: resolver,
		bus:      bus,
		locks:    newKeyedMutex(),
	}
}

// nextID issues a time-based record id, strictly increasing even when two
// completions land on the same millisecond.
func (s *productionService) nextID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()

	id := time.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return strconv.FormatInt(id, 10)
}

// RecordFromComanda appends one ledger record carrying the completed items
// together with the originating comanda's context.
func (s *productionService) RecordFromComanda(ctx context.Context, tenantID string, comanda models.Comanda, items []models.ComandaItem) (*models.ProductionRecord, error) {
	return s.Record(ctx, tenantID, models.ProductionRecord{
		ComandaID:   comanda.ID,
		TableNumber: comanda.TableNumber,
		TableID:     comanda.TableID,
		Waiter:      comanda.Waiter,
		Area:        comanda.Area,
		Items:       items,
	})
}

// Record appends the record to the tenant's ledger, assigning its id,
// completion timestamp and recipe flag. Existing records are never touched.
func (s *productionService) Record(ctx context.Context, tenantID string, record models.ProductionRecord) (*models.ProductionRecord, error) {
	if len(record.Items) == 0 {
		return nil, fmt.Errorf("%w: production record requires at least one item", ErrValidation)
	}

	record.ID = s.nextID()
	if record.CompletedAt.IsZero() {
		record.CompletedAt = time.Now()
	}
	record.Area = models.NormalizeArea(record.Area)
	for i := range record.Items {
		record.Items[i].Status = models.ItemStatusCompleted
	}
	record.HasRecipe = s.anyItemHasRecipe(ctx, record.Items)

	lock := s.locks.get(tenantID)
	lock.Lock()
	defer lock.Unlock()

	records, err := s.store.LoadProduction(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("loading production ledger: %w", err)
	}
	records = append(records, record)
	if err := s.store.SaveProduction(ctx, tenantID, records); err != nil {
		return nil, fmt.Errorf("saving production ledger: %w", err)
	}

	if s.bus != nil {
		s.bus.Publish(events.Event{Type: events.ProductionRecorded, TenantID: tenantID, Area: record.Area, ComandaID: record.ComandaID})
	}
	return &record, nil
}

// anyItemHasRecipe checks the catalog for each produced item, bounded by a
// short timeout. A lookup failure downgrades to hasRecipe=false and a log
// line; it never blocks the completion path.
func (s *productionService) anyItemHasRecipe(ctx context.Context, items []models.ComandaItem) bool {
	if s.resolver == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, recipeCheckTimeout)
	defer cancel()

	for _, item := range items {
		recipe, err := s.resolver.Resolve(ctx, item.ID)
		if err != nil {
			utils.LogError(err, "ProductionService: recipe check failed, tagging record hasRecipe=false")
			return false
		}
		if recipe != nil {
			return true
		}
	}
	return false
}

// List returns the tenant's ledger, newest first.
func (s *productionService) List(ctx context.Context, tenantID string) ([]models.ProductionRecord, error) {
	records, err := s.store.LoadProduction(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("loading production ledger: %w", err)
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].CompletedAt.After(records[j].CompletedAt) })
	return records, nil
}
