package settlement

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrUnknownOption is returned when a form value is not one of the allowed
// choices for an enumerated field.
var ErrUnknownOption = errors.New("settlement: unknown option")

// DeductionType selects how DeductionSpec.Value is interpreted.
type DeductionType string

const (
	DeductionNone       DeductionType = "None"
	DeductionPercentage DeductionType = "Percentage"
	DeductionFixed      DeductionType = "Fixed"
)

// DeductionReason is the closed set of reasons a weight deduction may cite.
type DeductionReason string

const (
	ReasonMoisture  DeductionReason = "Moisture"
	ReasonImpurity  DeductionReason = "Impurity"
	ReasonQuality   DeductionReason = "Quality"
	ReasonWastage   DeductionReason = "Wastage"
	ReasonAgreement DeductionReason = "Agreement"
	ReasonOther     DeductionReason = "Other"
)

// RateUnit is the weight unit a rate was entered in.
type RateUnit string

const (
	UnitTon RateUnit = "ton"
	UnitKg  RateUnit = "kg"
)

// PaymentMode records how the buyer pays.
type PaymentMode string

const (
	PaymentBill PaymentMode = "Bill"
	PaymentCash PaymentMode = "Cash"
)

var (
	deductionTypes   = []DeductionType{DeductionNone, DeductionPercentage, DeductionFixed}
	deductionReasons = []DeductionReason{ReasonMoisture, ReasonImpurity, ReasonQuality, ReasonWastage, ReasonAgreement, ReasonOther}
	paymentModes     = []PaymentMode{PaymentBill, PaymentCash}
)

// DeductionSpec is the weight deduction agreed for a sale.
//
// Value is a percentage of the measured weight for Percentage and an
// absolute tonnage for Fixed; it is ignored for None.
type DeductionSpec struct {
	Type         DeductionType   `json:"type"`
	Value        float64         `json:"value"`
	Reason       DeductionReason `json:"reason,omitempty"`
	CustomReason string          `json:"custom_reason,omitempty"`
}

// Describe renders the deduction for logs and exports, e.g. "40% (Moisture)".
func (d DeductionSpec) Describe() string {
	var amount string
	switch d.Type {
	case DeductionPercentage:
		amount = strconv.FormatFloat(d.Value, 'f', -1, 64) + "%"
	case DeductionFixed:
		amount = strconv.FormatFloat(d.Value, 'f', -1, 64) + " t"
	default:
		return ""
	}
	reason := d.ReasonLabel()
	if reason == "" {
		return amount
	}
	return fmt.Sprintf("%s (%s)", amount, reason)
}

// ReasonLabel is the reason as recorded on the sale: the free text for
// Other, the reason name otherwise.
func (d DeductionSpec) ReasonLabel() string {
	if d.Reason == ReasonOther && d.CustomReason != "" {
		return d.CustomReason
	}
	return string(d.Reason)
}

// CommercialTerms are the operator-entered terms of a sale. Only the rate,
// its unit and the GST percentage take part in the arithmetic.
type CommercialTerms struct {
	RatePerUnit           float64     `json:"rate"`
	RateUnit              RateUnit    `json:"rate_unit"`
	GSTPercent            float64     `json:"gst_percentage"`
	PaymentMode           PaymentMode `json:"mode_of_payment"`
	TransportationExpense float64     `json:"transportation_expense"`
	TransporterID         *string     `json:"transporter_id,omitempty"`
	DriverName            string      `json:"driver_name,omitempty"`
	DriverMobile          string      `json:"driver_mobile,omitempty"`
	Remark                string      `json:"remark,omitempty"`
}

// RatePerTon normalizes the entered rate to a per-ton basis.
func (t CommercialTerms) RatePerTon() float64 {
	if t.RateUnit == UnitKg {
		return t.RatePerUnit * KgPerTon
	}
	return t.RatePerUnit
}

func (t CommercialTerms) unit() RateUnit {
	if t.RateUnit == "" {
		return UnitTon
	}
	return t.RateUnit
}

func (t CommercialTerms) mode() PaymentMode {
	if t.PaymentMode == "" {
		return PaymentBill
	}
	return t.PaymentMode
}

// ParseAmount reads a numeric form field. Empty, malformed, negative and
// non-finite input all read as 0 so a live preview never errors.
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// ParseDeductionType matches s case-insensitively; empty means None.
func ParseDeductionType(s string) (DeductionType, error) {
	if strings.TrimSpace(s) == "" {
		return DeductionNone, nil
	}
	return match(s, deductionTypes, "deduction type")
}

// ParseDeductionReason matches s case-insensitively; empty stays empty.
func ParseDeductionReason(s string) (DeductionReason, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	return match(s, deductionReasons, "deduction reason")
}

// ParseRateUnit accepts "ton"/"kg" plus the common spellings; empty means ton.
func ParseRateUnit(s string) (RateUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ton", "tons", "t", "mt":
		return UnitTon, nil
	case "kg", "kgs", "kilo", "kilos":
		return UnitKg, nil
	}
	return "", fmt.Errorf("%w: rate unit %q", ErrUnknownOption, s)
}

// ParsePaymentMode matches s case-insensitively; empty means Bill.
func ParsePaymentMode(s string) (PaymentMode, error) {
	if strings.TrimSpace(s) == "" {
		return PaymentBill, nil
	}
	return match(s, paymentModes, "payment mode")
}

func match[T ~string](s string, options []T, field string) (T, error) {
	s = strings.TrimSpace(s)
	for _, o := range options {
		if strings.EqualFold(s, string(o)) {
			return o, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: %s %q", ErrUnknownOption, field, s)
}
