package settlement

import (
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	// WeightPlaces is the number of decimals shown for tonnages.
	WeightPlaces int32 = 3
	// CurrencyPlaces is the number of decimals shown for rupee amounts.
	CurrencyPlaces int32 = 2
)

var indianEnglish = language.MustParse("en-IN")

// Display is the rounded, render-ready view of a SaleSettlement.
type Display struct {
	OriginalWeightTons  string `json:"original_weight_tons"`
	DeductionAmountTons string `json:"deduction_amount_tons"`
	BillingWeightTons   string `json:"billing_weight_tons"`
	RatePerTon          string `json:"rate_per_ton"`
	BaseAmount          string `json:"base_amount"`
	GSTAmount           string `json:"gst_amount"`
	TotalAmount         string `json:"total_amount"`
	TotalAmountINR      string `json:"total_amount_inr"`
}

// Display rounds the settlement for presentation. The receiver is not
// modified.
func (s SaleSettlement) Display() Display {
	return Display{
		OriginalWeightTons:  Weight(s.OriginalWeightTons).StringFixed(WeightPlaces),
		DeductionAmountTons: Weight(s.DeductionAmountTons).StringFixed(WeightPlaces),
		BillingWeightTons:   Weight(s.BillingWeightTons).StringFixed(WeightPlaces),
		RatePerTon:          Money(s.RatePerTon).StringFixed(CurrencyPlaces),
		BaseAmount:          Money(s.BaseAmount).StringFixed(CurrencyPlaces),
		GSTAmount:           Money(s.GSTAmount).StringFixed(CurrencyPlaces),
		TotalAmount:         Money(s.TotalAmount).StringFixed(CurrencyPlaces),
		TotalAmountINR:      FormatINR(s.TotalAmount),
	}
}

// Weight rounds a tonnage to WeightPlaces.
func Weight(v float64) decimal.Decimal {
	return toDecimal(v).Round(WeightPlaces)
}

// Money rounds a rupee amount to CurrencyPlaces.
func Money(v float64) decimal.Decimal {
	return toDecimal(v).Round(CurrencyPlaces)
}

// FormatINR renders an amount with Indian digit grouping and a rupee sign.
func FormatINR(v float64) string {
	p := message.NewPrinter(indianEnglish)
	return p.Sprintf("₹%v", number.Decimal(Money(v).InexactFloat64(), number.Scale(int(CurrencyPlaces))))
}

// decimal.NewFromFloat panics on NaN and Inf.
func toDecimal(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}
