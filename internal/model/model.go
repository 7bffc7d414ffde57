// Package model defines the domain types shared by the sales service, the
// store implementations and the exporters.
package model

import "time"

// Entry types and statuses of weighbridge transactions.
const (
	EntryTypeItemExport   = "Item Export"
	EntryTypeEmptyVehicle = "Empty Vehicle"

	StatusPending   = "Pending"
	StatusCompleted = "Completed"
)

// Partner types known to the directory.
const (
	PartnerParty       = "Party"
	PartnerSource      = "Source"
	PartnerDestination = "Destination"
	PartnerTransporter = "Transporter"
)

// WeighingRecord is a weighbridge transaction. NetWeightTons is fixed at
// weigh-out and never changes afterwards; it is nil until the vehicle has
// been weighed out.
type WeighingRecord struct {
	ID            string     `json:"id" db:"id"`
	VehicleNumber string     `json:"vehicle_number" db:"vehicle_number"`
	Material      string     `json:"material" db:"material"`
	EntryType     string     `json:"entry_type" db:"entry_type"`
	Status        string     `json:"status" db:"status"`
	NetWeightTons *float64   `json:"net_weight_tons" db:"net_weight"`
	PartyID       *string    `json:"party_id" db:"party_id"`
	PartyName     *string    `json:"party_name,omitempty"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	CompletedAt   *time.Time `json:"completed_at" db:"completed_at"`
}

// Sellable reports whether the record may be offered for sale. Whether a
// sale was already logged against it is the store's concern.
func (r WeighingRecord) Sellable() bool {
	return r.Status == StatusCompleted && r.EntryType == EntryTypeItemExport
}

// Partner is a party, source, destination or transporter.
type Partner struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Type string `json:"type" db:"type"`
}

// MaterialSale is a logged sale. Figures are stored at full precision;
// round them only for display.
type MaterialSale struct {
	ID            string    `json:"id" db:"id"`
	InwardEntryID string    `json:"inward_entry_id" db:"inward_entry_id"`
	SaleDate      time.Time `json:"sale_date" db:"sale_date"`

	// Joined from the weighing record and the partner directory on read.
	VehicleNumber   string  `json:"vehicle_number"`
	MaterialName    string  `json:"material_name"`
	PartyID         string  `json:"party_id" db:"party_id"`
	PartyName       string  `json:"party_name"`
	TransporterID   *string `json:"transporter_id" db:"transporter_id"`
	TransporterName *string `json:"transporter_name,omitempty"`

	OriginalWeightTons  float64 `json:"net_weight_tons" db:"original_weight"`
	DeductionType       string  `json:"deduction_type" db:"deduction_type"`
	DeductionValue      float64 `json:"deduction_value" db:"deduction_value"`
	DeductionReason     string  `json:"deduction_reason,omitempty" db:"deduction_reason"`
	DeductionAmountTons float64 `json:"deduction_amount_tons" db:"deduction_amount"`
	BillingWeightTons   float64 `json:"billing_weight_tons" db:"billing_weight"`

	Rate                  float64 `json:"rate" db:"rate"` // per ton
	GSTPercentage         float64 `json:"gst_percentage" db:"gst_percentage"`
	Amount                float64 `json:"amount" db:"amount"`
	GSTAmount             float64 `json:"gst_amount" db:"gst_amount"`
	TotalAmount           float64 `json:"total_amount" db:"total_amount"`
	TransportationExpense float64 `json:"transportation_expense" db:"transportation_expense"`

	ModeOfPayment string    `json:"mode_of_payment" db:"mode_of_payment"`
	DriverName    string    `json:"driver_name" db:"driver_name"`
	DriverMobile  string    `json:"driver_mobile" db:"driver_mobile"`
	Remark        string    `json:"remark" db:"remark"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// SalesSummary aggregates the sale log.
type SalesSummary struct {
	TotalSales             float64 `json:"total_sales"`
	TotalQuantityTons      float64 `json:"total_quantity_tons"`
	TotalBillingWeightTons float64 `json:"total_billing_weight_tons"`
	TransactionCount       int     `json:"transaction_count"`
}
