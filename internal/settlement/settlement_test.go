package settlement

import (
	"errors"
	"math"
	"testing"

	"github.com/Solaris-hms/MRF/internal/model"
)

// record is a test helper for a completed weighing record of the given net weight.
func record(tons float64) model.WeighingRecord {
	return model.WeighingRecord{
		ID:            "rec-1",
		VehicleNumber: "MH12AB1234",
		Material:      "PET Bottles",
		EntryType:     model.EntryTypeItemExport,
		Status:        model.StatusCompleted,
		NetWeightTons: &tons,
	}
}

func party() *model.Partner {
	return &model.Partner{ID: "party-1", Name: "Green Recyclers", Type: model.PartnerParty}
}

func tonTerms(rate, gst float64) CommercialTerms {
	return CommercialTerms{RatePerUnit: rate, RateUnit: UnitTon, GSTPercent: gst, PaymentMode: PaymentBill}
}

// --- Example scenarios ---

func TestRecompute_PercentageDeduction(t *testing.T) {
	s := Recompute(record(10), DeductionSpec{Type: DeductionPercentage, Value: 40, Reason: ReasonMoisture}, tonTerms(0, 0))
	if s.DeductionAmountTons != 4 {
		t.Errorf("expected deduction 4, got %v", s.DeductionAmountTons)
	}
	if s.BillingWeightTons != 6 {
		t.Errorf("expected billing weight 6, got %v", s.BillingWeightTons)
	}
	if s.OriginalWeightTons != 10 {
		t.Errorf("original weight must be copied unchanged, got %v", s.OriginalWeightTons)
	}
}

func TestRecompute_KgRate(t *testing.T) {
	terms := CommercialTerms{RatePerUnit: 5, RateUnit: UnitKg}
	s := Recompute(record(6), DeductionSpec{Type: DeductionNone}, terms)
	if s.RatePerTon != 5000 {
		t.Errorf("expected rate per ton 5000, got %v", s.RatePerTon)
	}
	if s.BaseAmount != 30000 {
		t.Errorf("expected base amount 30000, got %v", s.BaseAmount)
	}
}

func TestRecompute_GST(t *testing.T) {
	s := Recompute(record(6), DeductionSpec{Type: DeductionNone}, tonTerms(5000, 18))
	if s.BaseAmount != 30000 {
		t.Fatalf("expected base amount 30000, got %v", s.BaseAmount)
	}
	if s.GSTAmount != 5400 {
		t.Errorf("expected GST 5400, got %v", s.GSTAmount)
	}
	if s.TotalAmount != 35400 {
		t.Errorf("expected total 35400, got %v", s.TotalAmount)
	}
}

func TestRecompute_FullSequence(t *testing.T) {
	// 10 t, 40% moisture, 5/kg, 18% GST.
	terms := CommercialTerms{RatePerUnit: 5, RateUnit: UnitKg, GSTPercent: 18}
	s := Recompute(record(10), DeductionSpec{Type: DeductionPercentage, Value: 40, Reason: ReasonMoisture}, terms)
	want := SaleSettlement{
		OriginalWeightTons:  10,
		DeductionAmountTons: 4,
		BillingWeightTons:   6,
		RatePerTon:          5000,
		BaseAmount:          30000,
		GSTAmount:           5400,
		TotalAmount:         35400,
	}
	if s != want {
		t.Errorf("unexpected settlement:\n got %+v\nwant %+v", s, want)
	}
}

func TestRecompute_FixedDeductionClamped(t *testing.T) {
	s := Recompute(record(2), DeductionSpec{Type: DeductionFixed, Value: 5}, tonTerms(12000, 18))
	if s.DeductionAmountTons != 2 {
		t.Errorf("expected deduction clamped to 2, got %v", s.DeductionAmountTons)
	}
	if s.BillingWeightTons != 0 {
		t.Errorf("expected billing weight 0, got %v", s.BillingWeightTons)
	}
	if s.BaseAmount != 0 || s.TotalAmount != 0 {
		t.Errorf("expected zero amounts, got base=%v total=%v", s.BaseAmount, s.TotalAmount)
	}
}

func TestCommit_ZeroRate(t *testing.T) {
	sale, err := Commit(record(10), DeductionSpec{Type: DeductionNone}, tonTerms(0, 18), party())
	if !errors.Is(err, ErrMissingRate) {
		t.Errorf("expected ErrMissingRate, got %v", err)
	}
	if sale != nil {
		t.Error("no sale should be produced on validation failure")
	}
}

func TestCommit_OtherReasonWithoutText(t *testing.T) {
	d := DeductionSpec{Type: DeductionPercentage, Value: 5, Reason: ReasonOther, CustomReason: ""}
	_, err := Commit(record(10), d, tonTerms(1000, 18), party())
	if !errors.Is(err, ErrMissingDeductionReason) {
		t.Errorf("expected ErrMissingDeductionReason, got %v", err)
	}

	d.CustomReason = "   "
	_, err = Commit(record(10), d, tonTerms(1000, 18), party())
	if !errors.Is(err, ErrMissingDeductionReason) {
		t.Errorf("blank custom reason should be rejected, got %v", err)
	}
}

// --- Properties ---

func TestRecompute_ClampingInvariant(t *testing.T) {
	weights := []float64{0, 0.001, 1, 2.5, 10, 37.125, 1e6}
	specs := []DeductionSpec{
		{Type: DeductionNone, Value: 999},
		{Type: DeductionPercentage, Value: 0},
		{Type: DeductionPercentage, Value: 12.5},
		{Type: DeductionPercentage, Value: 100},
		{Type: DeductionPercentage, Value: 250},
		{Type: DeductionPercentage, Value: -20},
		{Type: DeductionFixed, Value: 0},
		{Type: DeductionFixed, Value: 0.5},
		{Type: DeductionFixed, Value: 1e9},
		{Type: DeductionFixed, Value: -3},
		{Type: DeductionFixed, Value: math.Inf(1)},
		{Type: DeductionPercentage, Value: math.NaN()},
	}
	for _, w := range weights {
		for _, spec := range specs {
			s := Recompute(record(w), spec, tonTerms(100, 18))
			if s.BillingWeightTons < 0 || s.BillingWeightTons > s.OriginalWeightTons {
				t.Errorf("billing weight %v out of [0, %v] for %+v", s.BillingWeightTons, s.OriginalWeightTons, spec)
			}
			if s.DeductionAmountTons < 0 || s.DeductionAmountTons > s.OriginalWeightTons {
				t.Errorf("deduction %v out of [0, %v] for %+v", s.DeductionAmountTons, s.OriginalWeightTons, spec)
			}
		}
	}
}

func TestRecompute_NoDeductionIdentity(t *testing.T) {
	for _, w := range []float64{0, 0.333, 7.125, 18.9} {
		s := Recompute(record(w), DeductionSpec{Type: DeductionNone, Value: 50}, tonTerms(100, 5))
		if s.BillingWeightTons != w {
			t.Errorf("expected billing weight %v with no deduction, got %v", w, s.BillingWeightTons)
		}
	}
}

func TestRecompute_RateNormalization(t *testing.T) {
	for _, r := range []float64{0.01, 1, 4.75, 12.3, 950} {
		kg := Recompute(record(3), DeductionSpec{}, CommercialTerms{RatePerUnit: r, RateUnit: UnitKg})
		ton := Recompute(record(3), DeductionSpec{}, CommercialTerms{RatePerUnit: r * 1000, RateUnit: UnitTon})
		if kg.RatePerTon != ton.RatePerTon {
			t.Errorf("rate %v/kg should equal %v/ton: got %v vs %v", r, r*1000, kg.RatePerTon, ton.RatePerTon)
		}
	}
}

func TestRecompute_EmptyRateUnitIsPerTon(t *testing.T) {
	s := Recompute(record(1), DeductionSpec{}, CommercialTerms{RatePerUnit: 800})
	if s.RatePerTon != 800 {
		t.Errorf("expected rate per ton 800, got %v", s.RatePerTon)
	}
}

func TestRecompute_GSTAdditivity(t *testing.T) {
	tests := []struct {
		weight, rate, gst float64
	}{
		{10, 1234.56, 18},
		{0.777, 9999.99, 12},
		{3.3, 0.1, 5},
		{42, 17000, 0},
	}
	for _, tt := range tests {
		s := Recompute(record(tt.weight), DeductionSpec{}, tonTerms(tt.rate, tt.gst))
		if s.TotalAmount != s.BaseAmount+s.GSTAmount {
			t.Errorf("total %v != base %v + gst %v", s.TotalAmount, s.BaseAmount, s.GSTAmount)
		}
		if tt.gst == 0 && s.GSTAmount != 0 {
			t.Errorf("expected zero GST at 0%%, got %v", s.GSTAmount)
		}
	}
}

func TestRecompute_Idempotent(t *testing.T) {
	rec := record(13.37)
	d := DeductionSpec{Type: DeductionPercentage, Value: 3.3, Reason: ReasonImpurity}
	terms := CommercialTerms{RatePerUnit: 7.15, RateUnit: UnitKg, GSTPercent: 18}

	first := Recompute(rec, d, terms)
	second := Recompute(rec, d, terms)
	if first != second {
		t.Errorf("recompute should be deterministic: %+v vs %+v", first, second)
	}
	if *rec.NetWeightTons != 13.37 {
		t.Error("recompute must not mutate the record")
	}
}

func TestRecompute_MissingOrInvalidWeight(t *testing.T) {
	tests := []struct {
		name string
		rec  model.WeighingRecord
	}{
		{"nil weight", model.WeighingRecord{ID: "x"}},
		{"negative", record(-4)},
		{"NaN", record(math.NaN())},
		{"infinite", record(math.Inf(1))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Recompute(tt.rec, DeductionSpec{Type: DeductionFixed, Value: 1}, tonTerms(1000, 18))
			if s.OriginalWeightTons != 0 || s.BillingWeightTons != 0 || s.TotalAmount != 0 {
				t.Errorf("expected an all-zero settlement, got %+v", s)
			}
		})
	}
}

// --- Commit ---

func TestCommit_NilPartyAlwaysFails(t *testing.T) {
	inputs := []struct {
		d     DeductionSpec
		terms CommercialTerms
	}{
		{DeductionSpec{}, tonTerms(1000, 18)},
		{DeductionSpec{Type: DeductionFixed, Value: 1, Reason: ReasonQuality}, tonTerms(0, 0)},
		{DeductionSpec{Type: DeductionPercentage, Value: 5, Reason: ReasonOther}, tonTerms(-1, 18)},
	}
	for _, in := range inputs {
		if _, err := Commit(record(5), in.d, in.terms, nil); !errors.Is(err, ErrMissingParty) {
			t.Errorf("expected ErrMissingParty, got %v", err)
		}
	}
}

func TestCommit_InvalidRates(t *testing.T) {
	for _, r := range []float64{0, -10, math.NaN(), math.Inf(1)} {
		if _, err := Commit(record(5), DeductionSpec{}, tonTerms(r, 18), party()); !errors.Is(err, ErrMissingRate) {
			t.Errorf("rate %v: expected ErrMissingRate, got %v", r, err)
		}
	}
}

func TestCommit_Success(t *testing.T) {
	transporter := "tr-9"
	terms := CommercialTerms{
		RatePerUnit:           5,
		RateUnit:              UnitKg,
		GSTPercent:            18,
		PaymentMode:           PaymentCash,
		TransportationExpense: 2500,
		TransporterID:         &transporter,
		DriverName:            " Ramesh ",
		DriverMobile:          "9800000000",
		Remark:                "first lot",
	}
	d := DeductionSpec{Type: DeductionPercentage, Value: 40, Reason: ReasonMoisture}

	sale, err := Commit(record(10), d, terms, party())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sale.RecordID != "rec-1" || sale.PartyID != "party-1" {
		t.Errorf("unexpected references: record=%s party=%s", sale.RecordID, sale.PartyID)
	}
	if sale.TransporterID == nil || *sale.TransporterID != "tr-9" {
		t.Errorf("expected transporter tr-9, got %v", sale.TransporterID)
	}
	if sale.TotalAmount != 35400 || sale.BillingWeightTons != 6 {
		t.Errorf("unexpected figures: %+v", sale.SaleSettlement)
	}
	if sale.PaymentMode != PaymentCash {
		t.Errorf("expected Cash, got %s", sale.PaymentMode)
	}
	if sale.TransportationExpense != 2500 {
		t.Errorf("transportation expense should be carried, got %v", sale.TransportationExpense)
	}
	if sale.DriverName != "Ramesh" {
		t.Errorf("expected trimmed driver name, got %q", sale.DriverName)
	}
	if sale.RateUnit != UnitKg || sale.RatePerUnit != 5 {
		t.Errorf("entered rate should be kept: %v %s", sale.RatePerUnit, sale.RateUnit)
	}
}

func TestCommit_Defaults(t *testing.T) {
	sale, err := Commit(record(1), DeductionSpec{Value: 3, Reason: ReasonMoisture}, CommercialTerms{RatePerUnit: 100}, party())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sale.PaymentMode != PaymentBill {
		t.Errorf("expected default payment mode Bill, got %q", sale.PaymentMode)
	}
	if sale.RateUnit != UnitTon {
		t.Errorf("expected default rate unit ton, got %q", sale.RateUnit)
	}
	if sale.Deduction.Type != DeductionNone || sale.Deduction.Value != 0 {
		t.Errorf("an untyped deduction should be recorded as none, got %+v", sale.Deduction)
	}
}

func TestCommit_OtherReasonWithText(t *testing.T) {
	d := DeductionSpec{Type: DeductionFixed, Value: 0.25, Reason: ReasonOther, CustomReason: "torn bales"}
	sale, err := Commit(record(4), d, tonTerms(9000, 18), party())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sale.Deduction.CustomReason != "torn bales" {
		t.Errorf("custom reason should be kept, got %q", sale.Deduction.CustomReason)
	}
	if sale.BillingWeightTons != 3.75 {
		t.Errorf("expected billing weight 3.75, got %v", sale.BillingWeightTons)
	}
}

func TestValidate_Order(t *testing.T) {
	// Every precondition fails; the party check wins.
	err := Validate(DeductionSpec{Reason: ReasonOther}, CommercialTerms{}, nil)
	if !errors.Is(err, ErrMissingParty) {
		t.Errorf("expected ErrMissingParty first, got %v", err)
	}
	err = Validate(DeductionSpec{Reason: ReasonOther}, CommercialTerms{}, party())
	if !errors.Is(err, ErrMissingRate) {
		t.Errorf("expected ErrMissingRate second, got %v", err)
	}
}
