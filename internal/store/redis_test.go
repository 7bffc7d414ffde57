package store_test

import (
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Solaris-hms/MRF/internal/model"
	"github.com/Solaris-hms/MRF/internal/store"
)

const cacheTTL = time.Minute

func newCachedStore(t *testing.T) (*store.CachedStore, *store.MemoryStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	ms := store.NewMemoryStore()
	return store.NewCachedStore(ms, rdb, cacheTTL), ms, mr
}

func TestCachedStore_CompletedRecordCached(t *testing.T) {
	cs, ms, mr := newCachedStore(t)
	now := time.Now().UTC()
	seedRecord(t, ms, "r1", "MH12AB1234", model.StatusCompleted, model.EntryTypeItemExport, now)

	r, err := cs.GetWeighingRecord(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if r.VehicleNumber != "MH12AB1234" {
		t.Fatalf("expected MH12AB1234, got %s", r.VehicleNumber)
	}
	if !mr.Exists("weighing:r1") {
		t.Fatal("completed record should be cached")
	}

	// Served from Redis while the entry lives.
	seedRecord(t, ms, "r1", "MH12AB9999", model.StatusCompleted, model.EntryTypeItemExport, now)
	r, _ = cs.GetWeighingRecord(ctx, "r1")
	if r.VehicleNumber != "MH12AB1234" {
		t.Errorf("expected cached vehicle, got %s", r.VehicleNumber)
	}
	if r.NetWeightTons == nil || *r.NetWeightTons != 10 {
		t.Errorf("expected cached weight 10, got %v", r.NetWeightTons)
	}

	mr.FastForward(cacheTTL + time.Second)
	if mr.Exists("weighing:r1") {
		t.Fatal("entry should expire after the TTL")
	}
	r, _ = cs.GetWeighingRecord(ctx, "r1")
	if r.VehicleNumber != "MH12AB9999" {
		t.Errorf("expected fresh vehicle after expiry, got %s", r.VehicleNumber)
	}
}

func TestCachedStore_PendingRecordNotCached(t *testing.T) {
	cs, ms, mr := newCachedStore(t)
	seedRecord(t, ms, "r1", "MH12AB1234", model.StatusPending, model.EntryTypeItemExport, time.Now().UTC())

	if _, err := cs.GetWeighingRecord(ctx, "r1"); err != nil {
		t.Fatal(err)
	}
	if mr.Exists("weighing:r1") {
		t.Error("pending record must not be cached")
	}

	if _, err := cs.GetWeighingRecord(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if mr.Exists("weighing:missing") {
		t.Error("a miss must not be cached")
	}
}

func TestCachedStore_PartnerListInvalidatedOnCreate(t *testing.T) {
	cs, ms, mr := newCachedStore(t)
	seedPartner(t, ms, "p1", "Green Recyclers", model.PartnerParty)

	parties, err := cs.ListPartners(ctx, model.PartnerParty)
	if err != nil || len(parties) != 1 {
		t.Fatalf("expected 1 party, got %d (%v)", len(parties), err)
	}
	if _, err := cs.ListPartners(ctx, ""); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("partners:Party") || !mr.Exists("partners:all") {
		t.Fatalf("expected both listings cached, have %v", mr.Keys())
	}

	p := &model.Partner{Name: "Acme Paper Mills", Type: model.PartnerParty}
	if err := cs.CreatePartner(ctx, p); err != nil {
		t.Fatal(err)
	}
	if mr.Exists("partners:Party") || mr.Exists("partners:all") {
		t.Error("creating a partner should drop the cached listings")
	}
	if !mr.Exists("partner:" + p.ID) {
		t.Error("new partner should be cached by id")
	}

	parties, _ = cs.ListPartners(ctx, model.PartnerParty)
	if len(parties) != 2 {
		t.Errorf("expected 2 parties after create, got %d", len(parties))
	}

	got, err := cs.GetPartner(ctx, p.ID)
	if err != nil || got.Name != "Acme Paper Mills" {
		t.Errorf("expected cached partner, got %+v (%v)", got, err)
	}
}

func TestCachedStore_CreateDuplicateLeavesCache(t *testing.T) {
	cs, ms, mr := newCachedStore(t)
	seedPartner(t, ms, "p1", "Green Recyclers", model.PartnerParty)

	if _, err := cs.ListPartners(ctx, model.PartnerParty); err != nil {
		t.Fatal(err)
	}
	err := cs.CreatePartner(ctx, &model.Partner{Name: "green recyclers", Type: model.PartnerParty})
	if !errors.Is(err, store.ErrPartnerExists) {
		t.Fatalf("expected ErrPartnerExists, got %v", err)
	}
	if !mr.Exists("partners:Party") {
		t.Error("a failed create should not touch the cache")
	}
}

func TestCachedStore_SalesPassThrough(t *testing.T) {
	cs, ms, mr := newCachedStore(t)
	now := time.Now().UTC()
	seedRecord(t, ms, "r1", "MH12AB1234", model.StatusCompleted, model.EntryTypeItemExport, now)
	seedPartner(t, ms, "p1", "Green Recyclers", model.PartnerParty)

	if err := cs.InsertSale(ctx, sale("s1", "r1", "p1", 100, now)); err != nil {
		t.Fatal(err)
	}
	if err := cs.InsertSale(ctx, sale("s2", "r1", "p1", 100, now)); !errors.Is(err, store.ErrAlreadySettled) {
		t.Errorf("expected ErrAlreadySettled, got %v", err)
	}

	sellable, _ := cs.ListSellable(ctx)
	if len(sellable) != 0 {
		t.Errorf("sold record should leave the pool, got %d", len(sellable))
	}
	sales, _ := cs.ListSales(ctx)
	if len(sales) != 1 {
		t.Errorf("expected 1 sale, got %d", len(sales))
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Errorf("sale operations should not cache, have %v", keys)
	}
}
