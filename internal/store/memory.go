package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Solaris-hms/MRF/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[string]*model.WeighingRecord
	partners map[string]*model.Partner
	sales    []model.MaterialSale
	soldBy   map[string]string // weighing record ID → sale ID
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[string]*model.WeighingRecord),
		partners: make(map[string]*model.Partner),
		soldBy:   make(map[string]string),
	}
}

// PutWeighingRecord adds or replaces a weighing record. The operations
// service owns these in production; the memory store needs them seeded.
func (s *MemoryStore) PutWeighingRecord(r *model.WeighingRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copy := cloneRecord(r)
	s.records[r.ID] = &copy
}

func (s *MemoryStore) GetWeighingRecord(_ context.Context, id string) (*model.WeighingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("weighing record %s: %w", id, ErrNotFound)
	}
	copy := s.withPartyName(*r)
	return &copy, nil
}

func (s *MemoryStore) ListSellable(_ context.Context) ([]model.WeighingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.WeighingRecord
	for _, r := range s.records {
		if !r.Sellable() {
			continue
		}
		if _, sold := s.soldBy[r.ID]; sold {
			continue
		}
		result = append(result, s.withPartyName(*r))
	}

	sort.SliceStable(result, func(i, j int) bool {
		return completedAt(result[i]).After(completedAt(result[j]))
	})
	return result, nil
}

func (s *MemoryStore) ListPartners(_ context.Context, partnerType string) ([]model.Partner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	partners := make([]model.Partner, 0, len(s.partners))
	for _, p := range s.partners {
		if partnerType != "" && p.Type != partnerType {
			continue
		}
		partners = append(partners, *p)
	}
	sort.Slice(partners, func(i, j int) bool {
		return strings.ToLower(partners[i].Name) < strings.ToLower(partners[j].Name)
	})
	return partners, nil
}

func (s *MemoryStore) GetPartner(_ context.Context, id string) (*model.Partner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.partners[id]
	if !ok {
		return nil, fmt.Errorf("partner %s: %w", id, ErrNotFound)
	}
	copy := *p
	return &copy, nil
}

func (s *MemoryStore) FindPartner(_ context.Context, name, partnerType string) (*model.Partner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p := s.findPartner(name, partnerType); p != nil {
		copy := *p
		return &copy, nil
	}
	return nil, fmt.Errorf("partner %q (%s): %w", name, partnerType, ErrNotFound)
}

func (s *MemoryStore) CreatePartner(_ context.Context, p *model.Partner) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findPartner(p.Name, p.Type) != nil {
		return fmt.Errorf("partner %q (%s): %w", p.Name, p.Type, ErrPartnerExists)
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if _, taken := s.partners[p.ID]; taken {
		return fmt.Errorf("partner id %s: %w", p.ID, ErrPartnerExists)
	}

	copy := *p
	s.partners[p.ID] = &copy
	return nil
}

func (s *MemoryStore) InsertSale(_ context.Context, sale *model.MaterialSale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[sale.InwardEntryID]
	if !ok {
		return fmt.Errorf("weighing record %s: %w", sale.InwardEntryID, ErrNotFound)
	}
	if !r.Sellable() {
		return fmt.Errorf("weighing record %s: %w", sale.InwardEntryID, ErrNotSellable)
	}
	if existing, sold := s.soldBy[sale.InwardEntryID]; sold {
		return fmt.Errorf("weighing record %s (sale %s): %w", sale.InwardEntryID, existing, ErrAlreadySettled)
	}
	if _, ok := s.partners[sale.PartyID]; !ok {
		return fmt.Errorf("party %s: %w", sale.PartyID, ErrNotFound)
	}

	stored := *sale
	if sale.TransporterID != nil {
		id := *sale.TransporterID
		stored.TransporterID = &id
	}
	s.sales = append(s.sales, stored)
	s.soldBy[sale.InwardEntryID] = sale.ID
	return nil
}

// ListSales joins each sale with its record and partners, newest first.
func (s *MemoryStore) ListSales(_ context.Context) ([]model.MaterialSale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.MaterialSale, 0, len(s.sales))
	for i := len(s.sales) - 1; i >= 0; i-- {
		sale := s.sales[i]
		if r, ok := s.records[sale.InwardEntryID]; ok {
			sale.VehicleNumber = r.VehicleNumber
			sale.MaterialName = r.Material
		}
		if p, ok := s.partners[sale.PartyID]; ok {
			sale.PartyName = p.Name
		}
		if sale.TransporterID != nil {
			id := *sale.TransporterID
			sale.TransporterID = &id
			if p, ok := s.partners[id]; ok {
				name := p.Name
				sale.TransporterName = &name
			}
		}
		result = append(result, sale)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// findPartner must be called with s.mu held.
func (s *MemoryStore) findPartner(name, partnerType string) *model.Partner {
	name = strings.TrimSpace(name)
	for _, p := range s.partners {
		if p.Type == partnerType && strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}

// withPartyName must be called with s.mu held.
func (s *MemoryStore) withPartyName(r model.WeighingRecord) model.WeighingRecord {
	r = cloneRecord(&r)
	if r.PartyID != nil {
		if p, ok := s.partners[*r.PartyID]; ok {
			name := p.Name
			r.PartyName = &name
		}
	}
	return r
}

func completedAt(r model.WeighingRecord) time.Time {
	if r.CompletedAt != nil {
		return *r.CompletedAt
	}
	return r.CreatedAt
}

// cloneRecord copies the pointer fields so callers cannot mutate stored state.
func cloneRecord(r *model.WeighingRecord) model.WeighingRecord {
	c := *r
	if r.NetWeightTons != nil {
		w := *r.NetWeightTons
		c.NetWeightTons = &w
	}
	if r.PartyID != nil {
		id := *r.PartyID
		c.PartyID = &id
	}
	if r.PartyName != nil {
		name := *r.PartyName
		c.PartyName = &name
	}
	if r.CompletedAt != nil {
		at := *r.CompletedAt
		c.CompletedAt = &at
	}
	return c
}
