// Package export renders the sale log as an Excel workbook.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/Solaris-hms/MRF/internal/model"
	"github.com/Solaris-hms/MRF/internal/settlement"
)

// SheetName is the single sheet of the sales workbook.
const SheetName = "Material Sales"

// Filename is the suggested download name.
const Filename = "MaterialSalesLog_Detailed.xlsx"

// DateLayout formats the sale date column.
const DateLayout = "02/01/2006"

// Headers are the workbook columns, left to right.
var Headers = []string{
	"S.N", "Date", "Vehicle No", "Material Name",
	"Net Weight (Tons)", "Deduction", "Deduction (Tons)", "Billing Weight (Tons)",
	"Party Name", "Transporter Name", "Driver Name",
	"Rate per Ton", "Amount", "GST (%)", "GST Amount", "Total Amount",
	"Transportation Expense", "Mode of Payment", "Remark",
}

var colWidths = []float64{
	5, 12, 15, 20,
	18, 20, 16, 20,
	25, 25, 20,
	15, 15, 10, 15, 15,
	22, 18, 30,
}

// Row is one flattened sale. Weights carry 3 decimals and currency 2.
type Row struct {
	SN                    int
	Date                  string
	VehicleNumber         string
	Material              string
	NetWeightTons         float64
	Deduction             string
	DeductionTons         float64
	BillingWeightTons     float64
	PartyName             string
	TransporterName       string
	DriverName            string
	RatePerTon            float64
	Amount                float64
	GSTPercent            float64
	GSTAmount             float64
	TotalAmount           float64
	TransportationExpense float64
	ModeOfPayment         string
	Remark                string
}

// Rows flattens the sale log in the order given.
func Rows(sales []model.MaterialSale) []Row {
	rows := make([]Row, 0, len(sales))
	for i, s := range sales {
		deduction := settlement.DeductionSpec{
			Type:   settlement.DeductionType(s.DeductionType),
			Value:  s.DeductionValue,
			Reason: settlement.DeductionReason(s.DeductionReason),
		}
		transporter := ""
		if s.TransporterName != nil {
			transporter = *s.TransporterName
		}

		rows = append(rows, Row{
			SN:                    i + 1,
			Date:                  s.SaleDate.Format(DateLayout),
			VehicleNumber:         s.VehicleNumber,
			Material:              s.MaterialName,
			NetWeightTons:         settlement.Weight(s.OriginalWeightTons).InexactFloat64(),
			Deduction:             deduction.Describe(),
			DeductionTons:         settlement.Weight(s.DeductionAmountTons).InexactFloat64(),
			BillingWeightTons:     settlement.Weight(s.BillingWeightTons).InexactFloat64(),
			PartyName:             s.PartyName,
			TransporterName:       transporter,
			DriverName:            s.DriverName,
			RatePerTon:            settlement.Money(s.Rate).InexactFloat64(),
			Amount:                settlement.Money(s.Amount).InexactFloat64(),
			GSTPercent:            s.GSTPercentage,
			GSTAmount:             settlement.Money(s.GSTAmount).InexactFloat64(),
			TotalAmount:           settlement.Money(s.TotalAmount).InexactFloat64(),
			TransportationExpense: settlement.Money(s.TransportationExpense).InexactFloat64(),
			ModeOfPayment:         s.ModeOfPayment,
			Remark:                s.Remark,
		})
	}
	return rows
}

func (r Row) values() []any {
	return []any{
		r.SN, r.Date, r.VehicleNumber, r.Material,
		r.NetWeightTons, r.Deduction, r.DeductionTons, r.BillingWeightTons,
		r.PartyName, r.TransporterName, r.DriverName,
		r.RatePerTon, r.Amount, r.GSTPercent, r.GSTAmount, r.TotalAmount,
		r.TransportationExpense, r.ModeOfPayment, r.Remark,
	}
}

// Workbook builds the sales workbook in memory.
func Workbook(sales []model.MaterialSale) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		f.Close()
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		f.Close()
		return nil, err
	}

	header := make([]any, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		f.Close()
		return nil, err
	}
	last, _ := excelize.ColumnNumberToName(len(Headers))
	if err := f.SetCellStyle(SheetName, "A1", last+"1", headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	for i, row := range Rows(sales) {
		values := row.values()
		if err := f.SetSheetRow(SheetName, fmt.Sprintf("A%d", i+2), &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(SheetName, col, col, w); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// WriteSalesWorkbook writes the sales workbook as .xlsx to w.
func WriteSalesWorkbook(w io.Writer, sales []model.MaterialSale) error {
	f, err := Workbook(sales)
	if err != nil {
		return fmt.Errorf("build sales workbook: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write sales workbook: %w", err)
	}
	return nil
}
