package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"comandero_backend/internal/events"
	"comandero_backend/internal/models"
	"comandero_backend/internal/store"
)

type stubAreas struct {
	directory []models.OrderArea
}

func (s *stubAreas) GetAreas(_ context.Context) []models.OrderArea {
	return s.directory
}

type stubProduction struct {
	mu      sync.Mutex
	records []models.ProductionRecord
	err     error
}

func (s *stubProduction) RecordFromComanda(_ context.Context, _ string, comanda models.Comanda, items []models.ComandaItem) (*models.ProductionRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	record := models.ProductionRecord{
		ID:        fmt.Sprintf("rec-%d", len(s.records)+1),
		ComandaID: comanda.ID,
		Area:      comanda.Area,
		Items:     items,
	}
	s.mu.Lock()
	s.records = append(s.records, record)
	s.mu.Unlock()
	return &record, nil
}

func (s *stubProduction) Record(_ context.Context, _ string, record models.ProductionRecord) (*models.ProductionRecord, error) {
	s.mu.Lock()
	s.records = append(s.records, record)
	s.mu.Unlock()
	return &record, nil
}

func (s *stubProduction) List(_ context.Context, _ string) ([]models.ProductionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ProductionRecord{}, s.records...), nil
}

func newTestComandaService() (ComandaService, *store.TenantStore, *stubProduction) {
	ts := store.NewTenantStore(store.NewMemoryStore())
	production := &stubProduction{}
	areas := &stubAreas{directory: []models.OrderArea{
		models.GeneralOrderArea(),
		{ID: 1, Name: "Kitchen"},
		{ID: 2, Name: "Bar"},
	}}
	return NewComandaService(ts, areas, production, nil), ts, production
}

func TestCreateFromSaleRoutesIntoPerAreaComandas(t *testing.T) {
	svc, _, _ := newTestComandaService()
	ctx := context.Background()

	req := CreateComandaRequest{
		SaleID: "sale-1",
		Waiter: "Ana",
		Items: []models.SoldLineItem{
			{ProductID: "p1", Name: "Burger", Quantity: 2, OrderAreaID: areaID(1)},
			{ProductID: "p2", Name: "Fries", Quantity: 3, OrderAreaID: areaID(1)},
			{ProductID: "p3", Name: "Mojito", Quantity: 1, OrderAreaID: areaID(2)},
		},
	}
	created, err := svc.CreateFromSale(ctx, "t1", req)
	if err != nil {
		t.Fatalf("CreateFromSale: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 comandas, got %d", len(created))
	}

	kitchen, err := svc.GetByArea(ctx, "t1", "Kitchen")
	if err != nil {
		t.Fatalf("GetByArea: %v", err)
	}
	if len(kitchen) != 1 {
		t.Fatalf("expected 1 kitchen comanda, got %d", len(kitchen))
	}
	if kitchen[0].ID != models.ComandaID("sale-1", "Kitchen") {
		t.Errorf("unexpected comanda id %q", kitchen[0].ID)
	}
	// 2 burgers + 3 fries at 5 minutes per unit.
	if kitchen[0].EstimatedTime != 25 {
		t.Errorf("expected estimated time 25, got %d", kitchen[0].EstimatedTime)
	}
	if kitchen[0].TableNumber != models.POSTable {
		t.Errorf("counter sale should default to table %q, got %q", models.POSTable, kitchen[0].TableNumber)
	}
}

func TestCreateFromSaleIsIdempotentPerSaleAndArea(t *testing.T) {
	svc, _, _ := newTestComandaService()
	ctx := context.Background()

	req := CreateComandaRequest{
		SaleID: "sale-1",
		Items:  []models.SoldLineItem{{ProductID: "p1", Name: "Burger", Quantity: 1, OrderAreaID: areaID(1)}},
	}
	if _, err := svc.CreateFromSale(ctx, "t1", req); err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := svc.CreateFromSale(ctx, "t1", req)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("duplicate sale should create nothing, got %d comandas", len(second))
	}

	kitchen, _ := svc.GetByArea(ctx, "t1", "Kitchen")
	if len(kitchen) != 1 {
		t.Fatalf("expected 1 comanda after duplicate create, got %d", len(kitchen))
	}
}

func TestAdvanceItemRejectsBackwardTransition(t *testing.T) {
	svc, _, _ := newTestComandaService()
	ctx := context.Background()

	comanda := models.Comanda{
		ID:    "c1",
		Area:  "Kitchen",
		Items: []models.ComandaItem{{ID: "p1", Name: "Burger", Quantity: 1, Status: models.ItemStatusPending}},
	}
	if _, err := svc.CreateIfAbsent(ctx, "t1", comanda); err != nil {
		t.Fatalf("CreateIfAbsent: %v", err)
	}

	updated, err := svc.AdvanceItem(ctx, "t1", "c1", 0, models.ItemStatusReady)
	if err != nil {
		t.Fatalf("pending -> ready should be allowed: %v", err)
	}
	if updated.Items[0].Status != models.ItemStatusReady {
		t.Errorf("expected ready, got %q", updated.Items[0].Status)
	}

	if _, err := svc.AdvanceItem(ctx, "t1", "c1", 0, models.ItemStatusPending); err == nil {
		t.Error("ready -> pending should be rejected")
	}
	if _, err := svc.AdvanceItem(ctx, "t1", "c1", 5, models.ItemStatusReady); err == nil {
		t.Error("out-of-range index should be rejected")
	}
}

func TestAdvanceItemCannotReachCompleted(t *testing.T) {
	svc, _, production := newTestComandaService()
	ctx := context.Background()

	comanda := models.Comanda{
		ID:    "c1",
		Area:  "Kitchen",
		Items: []models.ComandaItem{{ID: "p1", Name: "Burger", Quantity: 1, Status: models.ItemStatusReady}},
	}
	if _, err := svc.CreateIfAbsent(ctx, "t1", comanda); err != nil {
		t.Fatalf("CreateIfAbsent: %v", err)
	}

	if _, err := svc.AdvanceItem(ctx, "t1", "c1", 0, models.ItemStatusCompleted); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("a status update must not mark an item completed, got %v", err)
	}

	kitchen, _ := svc.GetByArea(ctx, "t1", "Kitchen")
	if len(kitchen) != 1 || kitchen[0].Items[0].Status != models.ItemStatusReady {
		t.Errorf("item should be untouched on the board, got %v", kitchen)
	}
	if len(production.records) != 0 {
		t.Errorf("no production record may exist without a completion, got %d", len(production.records))
	}
}

func TestCompleteItemKeepsBoardWhenLedgerFails(t *testing.T) {
	ts := store.NewTenantStore(store.NewMemoryStore())
	production := &stubProduction{err: errors.New("ledger unavailable")}
	svc := NewComandaService(ts, &stubAreas{directory: []models.OrderArea{models.GeneralOrderArea()}}, production, nil)
	ctx := context.Background()

	comanda := models.Comanda{
		ID:    "c1",
		Area:  "Kitchen",
		Items: []models.ComandaItem{{ID: "p1", Name: "Burger", Quantity: 1, Status: models.ItemStatusReady}},
	}
	if _, err := svc.CreateIfAbsent(ctx, "t1", comanda); err != nil {
		t.Fatalf("CreateIfAbsent: %v", err)
	}

	if _, err := svc.CompleteItem(ctx, "t1", "c1", 0); err == nil {
		t.Fatal("completion should surface the ledger failure")
	}

	kitchen, _ := svc.GetByArea(ctx, "t1", "Kitchen")
	if len(kitchen) != 1 || len(kitchen[0].Items) != 1 {
		t.Fatalf("a failed completion must leave the item on the board, got %v", kitchen)
	}
	if len(production.records) != 0 {
		t.Errorf("failed ledger write should record nothing, got %d", len(production.records))
	}
}

func TestReconcilerRepublishesBoardRefreshes(t *testing.T) {
	ts := store.NewTenantStore(store.NewMemoryStore())
	bus := events.NewBus()
	svc := NewComandaService(ts, &stubAreas{directory: []models.OrderArea{models.GeneralOrderArea()}}, &stubProduction{}, bus)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	comanda := models.Comanda{ID: "c1", Area: "Kitchen", Items: []models.ComandaItem{{ID: "p1", Quantity: 1}}}
	if _, err := svc.CreateIfAbsent(ctx, "t1", comanda); err != nil {
		t.Fatalf("CreateIfAbsent: %v", err)
	}

	_, ch := bus.Subscribe(16)
	svc.StartReconciler(ctx, 5*time.Millisecond)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt := <-ch:
			if evt.Type == events.BoardRefreshed && evt.TenantID == "t1" {
				return
			}
		case <-deadline:
			t.Fatal("reconciler never published a board refresh for the known tenant")
		}
	}
}

func TestCompleteItemRemovesItemAndRecordsProduction(t *testing.T) {
	svc, _, production := newTestComandaService()
	ctx := context.Background()

	comanda := models.Comanda{
		ID:   "c1",
		Area: "Kitchen",
		Items: []models.ComandaItem{
			{ID: "p1", Name: "Burger", Quantity: 1, Status: models.ItemStatusReady},
			{ID: "p2", Name: "Fries", Quantity: 2, Status: models.ItemStatusPending},
		},
	}
	if _, err := svc.CreateIfAbsent(ctx, "t1", comanda); err != nil {
		t.Fatalf("CreateIfAbsent: %v", err)
	}

	record, err := svc.CompleteItem(ctx, "t1", "c1", 0)
	if err != nil {
		t.Fatalf("CompleteItem: %v", err)
	}
	if len(record.Items) != 1 || record.Items[0].Name != "Burger" {
		t.Fatalf("record should carry exactly the completed item, got %v", record.Items)
	}
	if record.Items[0].Status != models.ItemStatusCompleted {
		t.Errorf("recorded item should be completed, got %q", record.Items[0].Status)
	}

	kitchen, _ := svc.GetByArea(ctx, "t1", "Kitchen")
	if len(kitchen) != 1 || len(kitchen[0].Items) != 1 {
		t.Fatalf("comanda should keep its remaining item, got %v", kitchen)
	}
	if kitchen[0].Items[0].Name != "Fries" {
		t.Errorf("wrong item removed: %v", kitchen[0].Items)
	}
	if len(production.records) != 1 {
		t.Errorf("expected 1 production record, got %d", len(production.records))
	}
}

func TestCompletingLastItemDeletesComanda(t *testing.T) {
	svc, _, production := newTestComandaService()
	ctx := context.Background()

	comanda := models.Comanda{
		ID:    "c1",
		Area:  "Bar",
		Items: []models.ComandaItem{{ID: "p1", Name: "Mojito", Quantity: 1, Status: models.ItemStatusReady}},
	}
	if _, err := svc.CreateIfAbsent(ctx, "t1", comanda); err != nil {
		t.Fatalf("CreateIfAbsent: %v", err)
	}

	if _, err := svc.CompleteItem(ctx, "t1", "c1", 0); err != nil {
		t.Fatalf("CompleteItem: %v", err)
	}

	bar, _ := svc.GetByArea(ctx, "t1", "Bar")
	if len(bar) != 0 {
		t.Fatalf("comanda with no items left should be deleted, got %v", bar)
	}
	if len(production.records) != 1 {
		t.Errorf("completion should still be recorded, got %d records", len(production.records))
	}
}

func TestGetByAreaMatchesLegacyAreaSentinels(t *testing.T) {
	ts := store.NewTenantStore(store.NewMemoryStore())
	svc := NewComandaService(ts, &stubAreas{directory: []models.OrderArea{models.GeneralOrderArea()}}, &stubProduction{}, nil)
	ctx := context.Background()

	seed := []models.Comanda{
		{ID: "c1", Area: "", Items: []models.ComandaItem{{ID: "p1", Quantity: 1}}},
		{ID: "c2", Area: "null", Items: []models.ComandaItem{{ID: "p2", Quantity: 1}}},
		{ID: "c3", Area: "undefined", Items: []models.ComandaItem{{ID: "p3", Quantity: 1}}},
		{ID: "c4", Area: "Bar", Items: []models.ComandaItem{{ID: "p4", Quantity: 1}}},
	}
	if err := ts.SaveComandas(ctx, "t1", seed); err != nil {
		t.Fatalf("seeding: %v", err)
	}

	general, err := svc.GetByArea(ctx, "t1", models.GeneralArea)
	if err != nil {
		t.Fatalf("GetByArea: %v", err)
	}
	if len(general) != 3 {
		t.Fatalf("expected 3 General comandas (legacy sentinels included), got %d", len(general))
	}
	for _, c := range general {
		if c.ID == "c4" {
			t.Error("Bar comanda leaked into General")
		}
	}
}

func TestClearByAreaOnlyTouchesThatArea(t *testing.T) {
	svc, _, _ := newTestComandaService()
	ctx := context.Background()

	for i, area := range []string{"Kitchen", "Kitchen", "Bar"} {
		comanda := models.Comanda{
			ID:    fmt.Sprintf("c%d", i),
			Area:  area,
			Items: []models.ComandaItem{{ID: "p1", Quantity: 1}},
		}
		if _, err := svc.CreateIfAbsent(ctx, "t1", comanda); err != nil {
			t.Fatalf("CreateIfAbsent: %v", err)
		}
	}

	removed, err := svc.ClearByArea(ctx, "t1", "Kitchen")
	if err != nil {
		t.Fatalf("ClearByArea: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}

	bar, _ := svc.GetByArea(ctx, "t1", "Bar")
	if len(bar) != 1 {
		t.Errorf("Bar should be untouched, got %d comandas", len(bar))
	}
}

func TestTenantSwitchPreservesBothPartitions(t *testing.T) {
	svc, _, _ := newTestComandaService()
	ctx := context.Background()

	comandaA := models.Comanda{ID: "a1", Area: "Kitchen", Items: []models.ComandaItem{{ID: "p1", Quantity: 1}}}
	comandaB := models.Comanda{ID: "b1", Area: "Kitchen", Items: []models.ComandaItem{{ID: "p2", Quantity: 1}}}

	if err := svc.ActivateTenant(ctx, "tenant-a"); err != nil {
		t.Fatalf("activate a: %v", err)
	}
	if _, err := svc.CreateIfAbsent(ctx, "tenant-a", comandaA); err != nil {
		t.Fatalf("create for a: %v", err)
	}

	if err := svc.ActivateTenant(ctx, "tenant-b"); err != nil {
		t.Fatalf("activate b: %v", err)
	}
	if _, err := svc.CreateIfAbsent(ctx, "tenant-b", comandaB); err != nil {
		t.Fatalf("create for b: %v", err)
	}

	if err := svc.ActivateTenant(ctx, "tenant-a"); err != nil {
		t.Fatalf("reactivate a: %v", err)
	}

	a, _ := svc.GetByArea(ctx, "tenant-a", "Kitchen")
	b, _ := svc.GetByArea(ctx, "tenant-b", "Kitchen")
	if len(a) != 1 || a[0].ID != "a1" {
		t.Errorf("tenant-a lost its comandas across the switch: %v", a)
	}
	if len(b) != 1 || b[0].ID != "b1" {
		t.Errorf("tenant-b lost its comandas: %v", b)
	}
}

func TestConcurrentCompletionsStaySerialized(t *testing.T) {
	svc, _, production := newTestComandaService()
	ctx := context.Background()

	items := make([]models.ComandaItem, 8)
	for i := range items {
		items[i] = models.ComandaItem{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("Dish %d", i), Quantity: 1}
	}
	comanda := models.Comanda{ID: "c1", Area: "Kitchen", Items: items}
	if _, err := svc.CreateIfAbsent(ctx, "t1", comanda); err != nil {
		t.Fatalf("CreateIfAbsent: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < len(items); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Always complete index 0; each completion shifts the rest down.
			_, _ = svc.CompleteItem(ctx, "t1", "c1", 0)
		}()
	}
	wg.Wait()

	kitchen, _ := svc.GetByArea(ctx, "t1", "Kitchen")
	if len(kitchen) != 0 {
		t.Fatalf("all items completed, comanda should be gone: %v", kitchen)
	}
	if len(production.records) != len(items) {
		t.Errorf("expected %d production records, got %d", len(items), len(production.records))
	}
}
