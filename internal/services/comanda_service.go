package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"comandero_backend/internal/events"
	"comandero_backend/internal/models"
	"comandero_backend/internal/store"
	"comandero_backend/pkg/utils"
)

// Custom Errors
var (
	ErrComandaNotFound   = errors.New("comanda not found")
	ErrComandaExists     = errors.New("comanda already exists")
	ErrItemOutOfRange    = errors.New("comanda item index out of range")
	ErrInvalidTransition = errors.New("invalid item status transition")
)

// DefaultReconcileInterval matches the cadence of the board screens: state
// must become visible to every reader within one interval even when the
// notify path was lost.
const DefaultReconcileInterval = 10 * time.Second

// --- Data Transfer Objects (DTOs) ---

// CreateComandaRequest carries a finalized sale into the routing + ticket
// creation path.
type CreateComandaRequest struct {
	SaleID      string                `json:"sale_id" binding:"required"`
	TableNumber string                `json:"table_number"`
	TableID     string                `json:"table_id"`
	Waiter      string                `json:"waiter"`
	Items       []models.SoldLineItem `json:"items" binding:"required,dive"`
}

// AdvanceItemRequest updates a single item's lifecycle status.
type AdvanceItemRequest struct {
	Status models.ItemStatus `json:"status" binding:"required"`
}

// --- ComandaService Interface ---

// ComandaService owns the comanda lifecycle: routing a finalized sale into
// per-area tickets, per-item status transitions, completion into the
// production ledger, and board queries.
type ComandaService interface {
	CreateFromSale(ctx context.Context, tenantID string, req CreateComandaRequest) ([]models.Comanda, error)
	CreateIfAbsent(ctx context.Context, tenantID string, comanda models.Comanda) (bool, error)
	GetByArea(ctx context.Context, tenantID, area string) ([]models.Comanda, error)
	AdvanceItem(ctx context.Context, tenantID, comandaID string, itemIndex int, status models.ItemStatus) (*models.Comanda, error)
	CompleteItem(ctx context.Context, tenantID, comandaID string, itemIndex int) (*models.ProductionRecord, error)
	UpdateComandaStatus(ctx context.Context, tenantID, comandaID, status string) error
	ClearByArea(ctx context.Context, tenantID, area string) (int, error)
	ActivateTenant(ctx context.Context, tenantID string) error
	StartReconciler(ctx context.Context, interval time.Duration)
}

// keyedMutex serializes read-modify-write cycles on a per-tenant basis, so
// two near-simultaneous callers can no longer clobber each other's comanda
// updates. Entries are never evicted; the tenant population is small.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()

	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	return lock
}

// --- comandaService Implementation ---

type comandaService struct {
	store      *store.TenantStore
	areas      AreaService
	production ProductionService
	bus        *events.Bus
	locks      *keyedMutex

	tenantsMu sync.Mutex
	tenants   map[string]struct{}
}

// NewComandaService creates a new instance of ComandaService.
func NewComandaService(ts *store.TenantStore, areas AreaService, production ProductionService, bus *events.Bus) ComandaService {
	return &comandaService{
		store:      ts,
		areas:      areas,
		production: production,
		bus:        bus,
		locks:      newKeyedMutex(),
		tenants:    make(map[string]struct{}),
	}
}

func (s *comandaService) rememberTenant(tenantID string) {
	s.tenantsMu.Lock()
	s.tenants[tenantID] = struct{}{}
	s.tenantsMu.Unlock()
}

func (s *comandaService) knownTenants() []string {
	s.tenantsMu.Lock()
	defer s.tenantsMu.Unlock()

	out := make([]string, 0, len(s.tenants))
	for t := range s.tenants {
		out = append(out, t)
	}
	return out
}

func (s *comandaService) publish(evtType events.Type, tenantID, area, comandaID string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{Type: evtType, TenantID: tenantID, Area: area, ComandaID: comandaID})
}

// CreateFromSale routes the sale's line items across the configured
// preparation areas and creates one comanda per non-empty bucket. Creation
// is idempotent per (sale, area): an existing comanda id is left untouched.
func (s *comandaService) CreateFromSale(ctx context.Context, tenantID string, req CreateComandaRequest) ([]models.Comanda, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: sale %s has no items", ErrValidation, req.SaleID)
	}

	directory := s.areas.GetAreas(ctx)
	buckets := RouteItems(req.Items, directory)

	tableNumber := req.TableNumber
	if tableNumber == "" {
		tableNumber = models.POSTable
	}

	created := make([]models.Comanda, 0, len(buckets))
	for area, items := range buckets {
		comanda := models.Comanda{
			ID:          models.ComandaID(req.SaleID, area),
			TableNumber: tableNumber,
			TableID:     req.TableID,
			Waiter:      req.Waiter,
			Items:       items,
			CreatedAt:   time.Now(),
			Area:        area,
		}
		comanda.EstimatedTime = comanda.EstimatedMinutes()

		wasCreated, err := s.CreateIfAbsent(ctx, tenantID, comanda)
		if err != nil {
			return nil, err
		}
		if wasCreated {
			created = append(created, comanda)
		}
	}

	sort.Slice(created, func(i, j int) bool { return created[i].Area < created[j].Area })
	return created, nil
}

// CreateIfAbsent appends the comanda to its tenant's set unless a comanda
// with the same id already exists. Duplicate-ticket prevention lives here so
// callers no longer carry that burden.
func (s *comandaService) CreateIfAbsent(ctx context.Context, tenantID string, comanda models.Comanda) (bool, error) {
	if comanda.ID == "" || len(comanda.Items) == 0 {
		return false, fmt.Errorf("%w: comanda requires an id and at least one item", ErrValidation)
	}
	comanda.Area = models.NormalizeArea(comanda.Area)
	if comanda.CreatedAt.IsZero() {
		comanda.CreatedAt = time.Now()
	}
	if comanda.EstimatedTime == 0 {
		comanda.EstimatedTime = comanda.EstimatedMinutes()
	}
	for i := range comanda.Items {
		comanda.Items[i].Status = models.NormalizeItemStatus(string(comanda.Items[i].Status))
	}

	lock := s.locks.get(tenantID)
	lock.Lock()
	defer lock.Unlock()

	comandas, err := s.store.LoadComandas(ctx, tenantID)
	if err != nil {
		return false, fmt.Errorf("loading comandas: %w", err)
	}
	for _, existing := range comandas {
		if existing.ID == comanda.ID {
			return false, nil
		}
	}

	comandas = append(comandas, comanda)
	if err := s.store.SaveComandas(ctx, tenantID, comandas); err != nil {
		return false, fmt.Errorf("saving comandas: %w", err)
	}

	s.rememberTenant(tenantID)
	s.publish(events.ComandaCreated, tenantID, comanda.Area, comanda.ID)
	return true, nil
}

// GetByArea returns the tenant's comandas for the given area, FIFO by
// creation time. Legacy sentinels were normalized at the load boundary, so
// General naturally matches comandas persisted with "", "null" or
// "undefined" areas. Never returns a comanda with zero items.
func (s *comandaService) GetByArea(ctx context.Context, tenantID, area string) ([]models.Comanda, error) {
	comandas, err := s.store.LoadComandas(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("loading comandas: %w", err)
	}

	area = models.NormalizeArea(area)
	matched := make([]models.Comanda, 0, len(comandas))
	for _, c := range comandas {
		if c.Area == area {
			matched = append(matched, c)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })
	return matched, nil
}

// AdvanceItem moves a single item forward on its lifecycle (e.g. pending ->
// ready when the "start" action finishes instantly). The item stays on the
// comanda; status updates cap at ready. Completion is only reachable through
// CompleteItem, which removes the item and writes the production trace.
func (s *comandaService) AdvanceItem(ctx context.Context, tenantID, comandaID string, itemIndex int, status models.ItemStatus) (*models.Comanda, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTransition, status)
	}
	if status == models.ItemStatusCompleted {
		return nil, fmt.Errorf("%w: items reach completed through completion, not a status update", ErrInvalidTransition)
	}

	lock := s.locks.get(tenantID)
	lock.Lock()
	defer lock.Unlock()

	comandas, err := s.store.LoadComandas(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("loading comandas: %w", err)
	}

	idx := indexOfComanda(comandas, comandaID)
	if idx < 0 {
		return nil, ErrComandaNotFound
	}
	comanda := &comandas[idx]
	if itemIndex < 0 || itemIndex >= len(comanda.Items) {
		return nil, fmt.Errorf("%w: %d", ErrItemOutOfRange, itemIndex)
	}
	if !comanda.Items[itemIndex].Status.CanTransition(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, comanda.Items[itemIndex].Status, status)
	}

	comanda.Items[itemIndex].Status = status
	if err := s.store.SaveComandas(ctx, tenantID, comandas); err != nil {
		return nil, fmt.Errorf("saving comandas: %w", err)
	}

	updated := *comanda
	s.publish(events.ComandaUpdated, tenantID, updated.Area, updated.ID)
	return &updated, nil
}

// CompleteItem removes the item from its comanda and emits exactly one
// production record containing that item tagged completed. Completing the
// last item deletes the whole comanda: an empty comanda must not exist.
func (s *comandaService) CompleteItem(ctx context.Context, tenantID, comandaID string, itemIndex int) (*models.ProductionRecord, error) {
	lock := s.locks.get(tenantID)
	lock.Lock()
	defer lock.Unlock()

	comandas, err := s.store.LoadComandas(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("loading comandas: %w", err)
	}

	idx := indexOfComanda(comandas, comandaID)
	if idx < 0 {
		return nil, ErrComandaNotFound
	}
	comanda := comandas[idx]
	if itemIndex < 0 || itemIndex >= len(comanda.Items) {
		return nil, fmt.Errorf("%w: %d", ErrItemOutOfRange, itemIndex)
	}

	completed := comanda.Items[itemIndex]
	completed.Status = models.ItemStatusCompleted

	remaining := append([]models.ComandaItem{}, comanda.Items[:itemIndex]...)
	remaining = append(remaining, comanda.Items[itemIndex+1:]...)

	// Ledger first: if the trace cannot be written the item stays on the
	// board untouched instead of vanishing without a record.
	record, err := s.production.RecordFromComanda(ctx, tenantID, comanda, []models.ComandaItem{completed})
	if err != nil {
		return nil, fmt.Errorf("recording production: %w", err)
	}

	removedComanda := len(remaining) == 0
	if removedComanda {
		comandas = append(comandas[:idx], comandas[idx+1:]...)
	} else {
		comandas[idx].Items = remaining
		comandas[idx].EstimatedTime = comandas[idx].EstimatedMinutes()
	}

	if err := s.store.SaveComandas(ctx, tenantID, comandas); err != nil {
		utils.LogError(err, "ComandaService: item recorded as produced but board save failed")
		return nil, fmt.Errorf("saving comandas: %w", err)
	}

	if removedComanda {
		s.publish(events.ComandaRemoved, tenantID, comanda.Area, comanda.ID)
	} else {
		s.publish(events.ComandaUpdated, tenantID, comanda.Area, comanda.ID)
	}
	return record, nil
}

// UpdateComandaStatus sets the ticket-level status label. It is independent
// of the per-item statuses.
func (s *comandaService) UpdateComandaStatus(ctx context.Context, tenantID, comandaID, status string) error {
	lock := s.locks.get(tenantID)
	lock.Lock()
	defer lock.Unlock()

	comandas, err := s.store.LoadComandas(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("loading comandas: %w", err)
	}

	idx := indexOfComanda(comandas, comandaID)
	if idx < 0 {
		return ErrComandaNotFound
	}
	comandas[idx].Status = status

	if err := s.store.SaveComandas(ctx, tenantID, comandas); err != nil {
		return fmt.Errorf("saving comandas: %w", err)
	}
	s.publish(events.ComandaUpdated, tenantID, comandas[idx].Area, comandaID)
	return nil
}

// ClearByArea deletes every comanda of the given area unconditionally and
// returns how many were removed. Irreversible; confirmation is a UI concern.
func (s *comandaService) ClearByArea(ctx context.Context, tenantID, area string) (int, error) {
	area = models.NormalizeArea(area)

	lock := s.locks.get(tenantID)
	lock.Lock()
	defer lock.Unlock()

	comandas, err := s.store.LoadComandas(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("loading comandas: %w", err)
	}

	kept := make([]models.Comanda, 0, len(comandas))
	removed := 0
	for _, c := range comandas {
		if c.Area == area {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	if removed == 0 {
		return 0, nil
	}

	if err := s.store.SaveComandas(ctx, tenantID, kept); err != nil {
		return 0, fmt.Errorf("saving comandas: %w", err)
	}
	s.publish(events.BoardCleared, tenantID, area, "")
	return removed, nil
}

// ActivateTenant records the active tenant and detects a business switch.
// Partitions are fully namespaced, so a switch only needs a board refresh for
// readers; it never destroys another tenant's persisted data.
func (s *comandaService) ActivateTenant(ctx context.Context, tenantID string) error {
	switched, err := s.store.DetectSwitch(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("detecting tenant switch: %w", err)
	}
	s.rememberTenant(tenantID)
	if switched {
		utils.LogInfo("ComandaService: active tenant switched", map[string]interface{}{"tenant_id": tenantID})
		s.publish(events.BoardRefreshed, tenantID, "", "")
	}
	return nil
}

// StartReconciler runs the periodic reconciliation tick until ctx is
// cancelled. Events carry identifiers only and readers reload through the
// store, so republishing a refresh per known tenant is the whole pass: any
// reader that missed a notify converges within one interval.
func (s *comandaService) StartReconciler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, tenantID := range s.knownTenants() {
					s.publish(events.BoardRefreshed, tenantID, "", "")
				}
			}
		}
	}()
}

func indexOfComanda(comandas []models.Comanda, id string) int {
	for i := range comandas {
		if comandas[i].ID == id {
			return i
		}
	}
	return -1
}
