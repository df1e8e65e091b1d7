package store

import (
	"context"
	"encoding/json"
	"errors"

	"comandero_backend/internal/models"
	"comandero_backend/pkg/utils"
)

var (
	// ErrNotFound is returned when a key has no value in the backing store.
	ErrNotFound = errors.New("key not found")
)

// Store is the raw key-value contract the comanda/production state is
// persisted through. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

const lastTenantKey = "lastTenantId"

func comandasKey(tenantID string) string {
	return "comandas::" + tenantID
}

func productionKey(tenantID string) string {
	return "production::" + tenantID
}

// TenantStore layers the tenant-scoped key layout and JSON codec on top of a
// raw Store. Every key is namespaced by the business (tenant) id, so one
// tenant's partition can never be read or destroyed through another's.
// Malformed persisted payloads are treated as empty state, never as errors.
type TenantStore struct {
	kv Store
}

// NewTenantStore wraps the given backend.
func NewTenantStore(kv Store) *TenantStore {
	return &TenantStore{kv: kv}
}

// LoadComandas returns the tenant's persisted comandas. Legacy area and
// status sentinels are normalized here, once, and comandas persisted with an
// empty item list (which should not exist) are dropped defensively.
func (s *TenantStore) LoadComandas(ctx context.Context, tenantID string) ([]models.Comanda, error) {
	raw, err := s.kv.Get(ctx, comandasKey(tenantID))
	if errors.Is(err, ErrNotFound) {
		return []models.Comanda{}, nil
	}
	if err != nil {
		return nil, err
	}

	var comandas []models.Comanda
	if err := json.Unmarshal(raw, &comandas); err != nil {
		utils.LogError(err, "TenantStore: unparsable comandas payload, treating as empty")
		return []models.Comanda{}, nil
	}

	normalized := make([]models.Comanda, 0, len(comandas))
	for _, c := range comandas {
		if len(c.Items) == 0 {
			continue
		}
		c.Area = models.NormalizeArea(c.Area)
		for i := range c.Items {
			c.Items[i].Status = models.NormalizeItemStatus(string(c.Items[i].Status))
		}
		normalized = append(normalized, c)
	}
	return normalized, nil
}

// SaveComandas persists the tenant's full comanda set.
func (s *TenantStore) SaveComandas(ctx context.Context, tenantID string, comandas []models.Comanda) error {
	raw, err := json.Marshal(comandas)
	if err != nil {
		return err
	}
	return s.kv.Put(ctx, comandasKey(tenantID), raw)
}

// LoadProduction returns the tenant's persisted production ledger.
func (s *TenantStore) LoadProduction(ctx context.Context, tenantID string) ([]models.ProductionRecord, error) {
	raw, err := s.kv.Get(ctx, productionKey(tenantID))
	if errors.Is(err, ErrNotFound) {
		return []models.ProductionRecord{}, nil
	}
	if err != nil {
		return nil, err
	}

	var records []models.ProductionRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		utils.LogError(err, "TenantStore: unparsable production payload, treating as empty")
		return []models.ProductionRecord{}, nil
	}
	return records, nil
}

// SaveProduction persists the tenant's full production ledger.
func (s *TenantStore) SaveProduction(ctx context.Context, tenantID string, records []models.ProductionRecord) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return s.kv.Put(ctx, productionKey(tenantID), raw)
}

// DetectSwitch records tenantID as the active tenant and reports whether it
// differs from the previously recorded one. Callers evict their transient
// in-memory state on a switch; persisted partitions are left untouched since
// the namespaced layout already isolates them.
func (s *TenantStore) DetectSwitch(ctx context.Context, tenantID string) (bool, error) {
	raw, err := s.kv.Get(ctx, lastTenantKey)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return false, err
	}
	previous := string(raw)

	if err := s.kv.Put(ctx, lastTenantKey, []byte(tenantID)); err != nil {
		return false, err
	}
	return previous != "" && previous != tenantID, nil
}

// PurgeTenant removes the tenant's comanda and production partitions. This is
// the explicit destructive path; tenant switches never call it implicitly.
func (s *TenantStore) PurgeTenant(ctx context.Context, tenantID string) error {
	if err := s.kv.Delete(ctx, comandasKey(tenantID)); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err := s.kv.Delete(ctx, productionKey(tenantID)); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}
