package main

import (
	"context"
	"time"

	"github.com/Solaris-hms/MRF/internal/model"
	"github.com/Solaris-hms/MRF/internal/store"
)

// seedDemo loads a few partners and completed weighings so the in-memory
// server has something to sell.
func seedDemo(ctx context.Context, ms *store.MemoryStore) error {
	partners := []model.Partner{
		{ID: "party-green", Name: "Green Recyclers", Type: model.PartnerParty},
		{ID: "party-acme", Name: "Acme Paper Mills", Type: model.PartnerParty},
		{ID: "transporter-fast", Name: "Fast Movers", Type: model.PartnerTransporter},
	}
	for i := range partners {
		if err := ms.CreatePartner(ctx, &partners[i]); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	records := []struct {
		id, vehicle, material string
		tons                  float64
		party                 string
		status                string
		age                   time.Duration
	}{
		{"demo-1", "MH12AB1234", "PET Bottles", 10.25, "party-green", model.StatusCompleted, 3 * time.Hour},
		{"demo-2", "MH14CD5678", "Cardboard", 6.4, "party-acme", model.StatusCompleted, 2 * time.Hour},
		{"demo-3", "KA01HH0001", "HDPE", 2.075, "", model.StatusCompleted, time.Hour},
		{"demo-4", "MH12EF9012", "Mixed Paper", 4.5, "party-acme", model.StatusPending, 30 * time.Minute},
	}
	for _, r := range records {
		tons := r.tons
		created := now.Add(-r.age)
		rec := &model.WeighingRecord{
			ID:            r.id,
			VehicleNumber: r.vehicle,
			Material:      r.material,
			EntryType:     model.EntryTypeItemExport,
			Status:        r.status,
			NetWeightTons: &tons,
			CreatedAt:     created,
		}
		if r.status == model.StatusCompleted {
			done := created.Add(20 * time.Minute)
			rec.CompletedAt = &done
		} else {
			rec.NetWeightTons = nil
		}
		if r.party != "" {
			party := r.party
			rec.PartyID = &party
		}
		ms.PutWeighingRecord(rec)
	}
	return nil
}
