// Package settlement computes the commercial settlement of a material sale:
// billable weight after an agreed deduction, the per-ton rate, the GST
// amount and the total payable.
//
// The calculator is stateless. Every figure is derived from the weighing
// record and the terms passed in, so Recompute can run on every keystroke
// of a sale form and Commit can be called once the operator confirms.
//
// Arithmetic is float64 throughout. Rounding (3 dp for weights, 2 dp for
// currency) happens only in the Display view; a SaleSettlement always keeps
// full precision.
package settlement

import (
	"errors"
	"math"
	"strings"

	"github.com/Solaris-hms/MRF/internal/model"
)

var (
	// ErrMissingParty is returned by Commit when no counterparty is resolved.
	ErrMissingParty = errors.New("settlement: a party must be assigned before the sale is saved")

	// ErrMissingRate is returned by Commit when the rate is not a positive number.
	ErrMissingRate = errors.New("settlement: rate must be a positive number")

	// ErrMissingDeductionReason is returned by Commit when the deduction
	// reason is Other and no free-text reason was given.
	ErrMissingDeductionReason = errors.New("settlement: a custom reason is required for deduction reason Other")
)

// KgPerTon converts a per-kilo rate into a per-ton rate.
const KgPerTon = 1000

// SaleSettlement holds the derived figures of one sale.
type SaleSettlement struct {
	OriginalWeightTons  float64 `json:"original_weight_tons"`
	DeductionAmountTons float64 `json:"deduction_amount_tons"`
	BillingWeightTons   float64 `json:"billing_weight_tons"`
	RatePerTon          float64 `json:"rate_per_ton"`
	BaseAmount          float64 `json:"base_amount"`
	GSTAmount           float64 `json:"gst_amount"`
	TotalAmount         float64 `json:"total_amount"`
}

// FinishedSale is a validated settlement together with the descriptive
// terms, ready to be handed to the sale log for persistence.
type FinishedSale struct {
	SaleSettlement

	RecordID      string  `json:"inward_entry_id"`
	VehicleNumber string  `json:"vehicle_number"`
	Material      string  `json:"material"`
	PartyID       string  `json:"party_id"`
	TransporterID *string `json:"transporter_id"`

	Deduction             DeductionSpec `json:"deduction"`
	RatePerUnit           float64       `json:"rate_per_unit"`
	RateUnit              RateUnit      `json:"rate_unit"`
	GSTPercent            float64       `json:"gst_percentage"`
	PaymentMode           PaymentMode   `json:"mode_of_payment"`
	TransportationExpense float64       `json:"transportation_expense"`
	DriverName            string        `json:"driver_name"`
	DriverMobile          string        `json:"driver_mobile"`
	Remark                string        `json:"remark"`
}

// Recompute derives the settlement figures for a weighing record under the
// given deduction and commercial terms. It never fails: a missing, negative
// or non-finite measured weight counts as zero.
func Recompute(record model.WeighingRecord, deduction DeductionSpec, terms CommercialTerms) SaleSettlement {
	original := measuredWeight(record)

	var deducted float64
	switch deduction.Type {
	case DeductionPercentage:
		deducted = original * deduction.Value / 100
	case DeductionFixed:
		deducted = deduction.Value
	}
	// NaN fails both comparisons below, so force it to zero first.
	if math.IsNaN(deducted) {
		deducted = 0
	}
	deducted = math.Max(0, math.Min(deducted, original))

	billing := original - deducted
	ratePerTon := terms.RatePerTon()
	base := billing * ratePerTon
	gst := base * terms.GSTPercent / 100

	return SaleSettlement{
		OriginalWeightTons:  original,
		DeductionAmountTons: deducted,
		BillingWeightTons:   billing,
		RatePerTon:          ratePerTon,
		BaseAmount:          base,
		GSTAmount:           gst,
		TotalAmount:         base + gst,
	}
}

// Validate runs the commit preconditions without building a sale.
// Checks run in order: party, rate, deduction reason.
func Validate(deduction DeductionSpec, terms CommercialTerms, party *model.Partner) error {
	if party == nil {
		return ErrMissingParty
	}
	if !(terms.RatePerUnit > 0) || math.IsInf(terms.RatePerUnit, 0) {
		return ErrMissingRate
	}
	if deduction.Reason == ReasonOther && strings.TrimSpace(deduction.CustomReason) == "" {
		return ErrMissingDeductionReason
	}
	return nil
}

// Commit validates the inputs and returns the finished sale. It performs no
// I/O and does not mark the record as sold; the sale log owns that.
func Commit(record model.WeighingRecord, deduction DeductionSpec, terms CommercialTerms, party *model.Partner) (*FinishedSale, error) {
	if err := Validate(deduction, terms, party); err != nil {
		return nil, err
	}

	d := deduction
	if d.Type == DeductionNone || d.Type == "" {
		d = DeductionSpec{Type: DeductionNone}
	}
	if d.Reason != ReasonOther {
		d.CustomReason = ""
	}
	d.CustomReason = strings.TrimSpace(d.CustomReason)

	return &FinishedSale{
		SaleSettlement:        Recompute(record, deduction, terms),
		RecordID:              record.ID,
		VehicleNumber:         record.VehicleNumber,
		Material:              record.Material,
		PartyID:               party.ID,
		TransporterID:         terms.TransporterID,
		Deduction:             d,
		RatePerUnit:           terms.RatePerUnit,
		RateUnit:              terms.unit(),
		GSTPercent:            terms.GSTPercent,
		PaymentMode:           terms.mode(),
		TransportationExpense: terms.TransportationExpense,
		DriverName:            strings.TrimSpace(terms.DriverName),
		DriverMobile:          strings.TrimSpace(terms.DriverMobile),
		Remark:                strings.TrimSpace(terms.Remark),
	}, nil
}

func measuredWeight(record model.WeighingRecord) float64 {
	if record.NetWeightTons == nil {
		return 0
	}
	w := *record.NetWeightTons
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return 0
	}
	return w
}
