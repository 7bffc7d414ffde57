package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Solaris-hms/MRF/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary.
//
// Only data that changes rarely is cached: weighing records (immutable
// once completed) and the partner directory. The sellable pool and the
// sale log always come from the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) CreatePartner(ctx context.Context, p *model.Partner) error {
	if err := s.primary.CreatePartner(ctx, p); err != nil {
		return err
	}
	// Directory listings are stale now; next read will re-populate.
	s.rdb.Del(ctx, partnersKey(""), partnersKey(p.Type))
	s.cache(ctx, partnerKey(p.ID), p)
	return nil
}

func (s *CachedStore) InsertSale(ctx context.Context, sale *model.MaterialSale) error {
	return s.primary.InsertSale(ctx, sale)
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetWeighingRecord(ctx context.Context, id string) (*model.WeighingRecord, error) {
	var r model.WeighingRecord
	if s.lookup(ctx, recordKey(id), &r) {
		return &r, nil
	}

	// Cache miss: read from primary.
	rec, err := s.primary.GetWeighingRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	// A pending record will still be weighed out; only cache final ones.
	if rec.Status == model.StatusCompleted {
		s.cache(ctx, recordKey(id), rec)
	}
	return rec, nil
}

func (s *CachedStore) GetPartner(ctx context.Context, id string) (*model.Partner, error) {
	var p model.Partner
	if s.lookup(ctx, partnerKey(id), &p) {
		return &p, nil
	}

	partner, err := s.primary.GetPartner(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache(ctx, partnerKey(id), partner)
	return partner, nil
}

func (s *CachedStore) ListPartners(ctx context.Context, partnerType string) ([]model.Partner, error) {
	var partners []model.Partner
	if s.lookup(ctx, partnersKey(partnerType), &partners) {
		return partners, nil
	}

	partners, err := s.primary.ListPartners(ctx, partnerType)
	if err != nil {
		return nil, err
	}

	s.cache(ctx, partnersKey(partnerType), partners)
	return partners, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListSellable(ctx context.Context) ([]model.WeighingRecord, error) {
	return s.primary.ListSellable(ctx)
}

func (s *CachedStore) FindPartner(ctx context.Context, name, partnerType string) (*model.Partner, error) {
	return s.primary.FindPartner(ctx, name, partnerType)
}

func (s *CachedStore) ListSales(ctx context.Context) ([]model.MaterialSale, error) {
	return s.primary.ListSales(ctx)
}

// --- Cache helpers ---

func (s *CachedStore) lookup(ctx context.Context, key string, dst any) bool {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *CachedStore) cache(ctx context.Context, key string, v any) {
	if data, err := json.Marshal(v); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
}

func recordKey(id string) string  { return fmt.Sprintf("weighing:%s", id) }
func partnerKey(id string) string { return fmt.Sprintf("partner:%s", id) }

func partnersKey(partnerType string) string {
	if partnerType == "" {
		return "partners:all"
	}
	return fmt.Sprintf("partners:%s", partnerType)
}
