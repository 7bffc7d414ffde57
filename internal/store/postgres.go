package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Solaris-hms/MRF/internal/model"
)

// PostgreSQL error codes the store translates into sentinel errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// kgPerTon: inward_entries keeps weights in kilograms.
var kgPerTon = decimal.NewFromInt(1000)

// PostgresStore implements Store on the operations database shared with
// the weighbridge service (tables inward_entries, partners, material_sales).
// Sale figures are stored as NUMERIC; material_sales.inward_entry_id carries
// a unique index so a record can be settled only once. Migrate adds the
// settlement columns and indexes the weighbridge schema lacks.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// schemaSQL extends the weighbridge service's material_sales table with the
// deduction breakdown and adds the indexes this store relies on. Every
// statement is idempotent. Sales logged before the upgrade have NULL
// settlement columns; ListSales reads them as undeducted.
var schemaSQL = []string{
	"ALTER TABLE material_sales ADD COLUMN IF NOT EXISTS original_weight NUMERIC",
	"ALTER TABLE material_sales ADD COLUMN IF NOT EXISTS deduction_type TEXT",
	"ALTER TABLE material_sales ADD COLUMN IF NOT EXISTS deduction_value NUMERIC",
	"ALTER TABLE material_sales ADD COLUMN IF NOT EXISTS deduction_reason TEXT",
	"ALTER TABLE material_sales ADD COLUMN IF NOT EXISTS deduction_amount NUMERIC",
	"ALTER TABLE material_sales ADD COLUMN IF NOT EXISTS billing_weight NUMERIC",
	"ALTER TABLE material_sales ALTER COLUMN created_at SET DEFAULT NOW()",
	"CREATE UNIQUE INDEX IF NOT EXISTS material_sales_inward_entry_id_key ON material_sales (inward_entry_id)",
	"CREATE UNIQUE INDEX IF NOT EXISTS partners_name_type_key ON partners (LOWER(name), type)",
}

// Migrate applies schemaSQL. A failing statement does not stop the rest;
// the failures are returned together.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	var errs []error
	for _, stmt := range schemaSQL {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", stmt, err))
		}
	}
	return errors.Join(errs...)
}

const recordColumns = `
	ie.id::TEXT, ie.vehicle_number, COALESCE(ie.material, ''), ie.entry_type, ie.status,
	ie.net_weight::TEXT, ie.party_id::TEXT, p.name, ie.created_at, ie.completed_at`

func (s *PostgresStore) GetWeighingRecord(ctx context.Context, id string) (*model.WeighingRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+`
		 FROM inward_entries ie
		 LEFT JOIN partners p ON ie.party_id = p.id
		 WHERE ie.id::TEXT = $1`, id)

	r, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("weighing record %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get weighing record %s: %w", id, err)
	}
	return r, nil
}

func (s *PostgresStore) ListSellable(ctx context.Context) ([]model.WeighingRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+recordColumns+`
		 FROM inward_entries ie
		 LEFT JOIN partners p ON ie.party_id = p.id
		 WHERE ie.status = $1 AND ie.entry_type = $2
		   AND NOT EXISTS (SELECT 1 FROM material_sales ms WHERE ms.inward_entry_id = ie.id)
		 ORDER BY ie.completed_at DESC NULLS LAST, ie.created_at DESC`,
		model.StatusCompleted, model.EntryTypeItemExport)
	if err != nil {
		return nil, fmt.Errorf("list sellable records: %w", err)
	}
	defer rows.Close()

	var records []model.WeighingRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

func (s *PostgresStore) ListPartners(ctx context.Context, partnerType string) ([]model.Partner, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::TEXT, name, type FROM partners
		 WHERE $1 = '' OR type = $1
		 ORDER BY name ASC`, partnerType)
	if err != nil {
		return nil, fmt.Errorf("list partners: %w", err)
	}
	defer rows.Close()

	var partners []model.Partner
	for rows.Next() {
		var p model.Partner
		if err := rows.Scan(&p.ID, &p.Name, &p.Type); err != nil {
			return nil, err
		}
		partners = append(partners, p)
	}
	return partners, rows.Err()
}

func (s *PostgresStore) GetPartner(ctx context.Context, id string) (*model.Partner, error) {
	var p model.Partner
	err := s.pool.QueryRow(ctx,
		`SELECT id::TEXT, name, type FROM partners WHERE id::TEXT = $1`, id).
		Scan(&p.ID, &p.Name, &p.Type)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("partner %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get partner %s: %w", id, err)
	}
	return &p, nil
}

func (s *PostgresStore) FindPartner(ctx context.Context, name, partnerType string) (*model.Partner, error) {
	var p model.Partner
	err := s.pool.QueryRow(ctx,
		`SELECT id::TEXT, name, type FROM partners
		 WHERE LOWER(name) = LOWER($1) AND type = $2
		 LIMIT 1`, strings.TrimSpace(name), partnerType).
		Scan(&p.ID, &p.Name, &p.Type)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("partner %q (%s): %w", name, partnerType, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find partner %q: %w", name, err)
	}
	return &p, nil
}

func (s *PostgresStore) CreatePartner(ctx context.Context, p *model.Partner) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO partners (name, type) VALUES ($1, $2) RETURNING id::TEXT`,
		p.Name, p.Type).Scan(&p.ID)
	if isPgError(err, pgUniqueViolation) {
		return fmt.Errorf("partner %q (%s): %w", p.Name, p.Type, ErrPartnerExists)
	}
	if err != nil {
		return fmt.Errorf("create partner %q: %w", p.Name, err)
	}
	return nil
}

// insertSaleSQL writes a settled sale. material_sales.id is a serial; the
// generated key replaces sale.ID.
const insertSaleSQL = `INSERT INTO material_sales
   (inward_entry_id, party_id, transporter_id, sale_date,
    original_weight, deduction_type, deduction_value, deduction_reason, deduction_amount, billing_weight,
    rate, gst_percentage, amount, gst_amount, total_amount, transportation_expense,
    mode_of_payment, driver_name, driver_mobile, remark, created_at)
 VALUES ($1, $2, $3, $4,
    $5::NUMERIC, $6, $7::NUMERIC, $8, $9::NUMERIC, $10::NUMERIC,
    $11::NUMERIC, $12::NUMERIC, $13::NUMERIC, $14::NUMERIC, $15::NUMERIC, $16::NUMERIC,
    $17, $18, $19, $20, $21)
 RETURNING id::TEXT`

func (s *PostgresStore) InsertSale(ctx context.Context, sale *model.MaterialSale) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Lock the record so a concurrent status change cannot slip in between
	// the check and the insert.
	var status, entryType string
	err = tx.QueryRow(ctx,
		`SELECT status, entry_type FROM inward_entries WHERE id::TEXT = $1 FOR UPDATE`,
		sale.InwardEntryID).Scan(&status, &entryType)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("weighing record %s: %w", sale.InwardEntryID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("lock weighing record %s: %w", sale.InwardEntryID, err)
	}
	if status != model.StatusCompleted || entryType != model.EntryTypeItemExport {
		return fmt.Errorf("weighing record %s: %w", sale.InwardEntryID, ErrNotSellable)
	}

	// The row lock serializes sales of this record, so this check holds even
	// where the unique index could not be created.
	var sold bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM material_sales WHERE inward_entry_id::TEXT = $1)`,
		sale.InwardEntryID).Scan(&sold)
	if err != nil {
		return fmt.Errorf("check sales of weighing record %s: %w", sale.InwardEntryID, err)
	}
	if sold {
		return fmt.Errorf("weighing record %s: %w", sale.InwardEntryID, ErrAlreadySettled)
	}

	err = tx.QueryRow(ctx,
		insertSaleSQL,
		sale.InwardEntryID, sale.PartyID, sale.TransporterID, sale.SaleDate,
		numeric(sale.OriginalWeightTons), sale.DeductionType, numeric(sale.DeductionValue),
		sale.DeductionReason, numeric(sale.DeductionAmountTons), numeric(sale.BillingWeightTons),
		numeric(sale.Rate), numeric(sale.GSTPercentage), numeric(sale.Amount),
		numeric(sale.GSTAmount), numeric(sale.TotalAmount), numeric(sale.TransportationExpense),
		sale.ModeOfPayment, sale.DriverName, sale.DriverMobile, sale.Remark, sale.CreatedAt,
	).Scan(&sale.ID)
	switch {
	case isPgError(err, pgUniqueViolation):
		return fmt.Errorf("weighing record %s: %w", sale.InwardEntryID, ErrAlreadySettled)
	case isPgError(err, pgForeignKeyViolation):
		return fmt.Errorf("sale for weighing record %s references a missing partner: %w", sale.InwardEntryID, ErrNotFound)
	case err != nil:
		return fmt.Errorf("insert sale for weighing record %s: %w", sale.InwardEntryID, err)
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) ListSales(ctx context.Context) ([]model.MaterialSale, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT ms.id::TEXT, ms.inward_entry_id::TEXT, ms.sale_date,
		        ie.vehicle_number, COALESCE(ie.material, ''),
		        ms.party_id::TEXT, p.name, ms.transporter_id::TEXT, t.name,
		        COALESCE(ms.original_weight, ie.net_weight / 1000.0, 0)::TEXT,
		        COALESCE(ms.deduction_type, 'None'), COALESCE(ms.deduction_value, 0)::TEXT,
		        COALESCE(ms.deduction_reason, ''), COALESCE(ms.deduction_amount, 0)::TEXT,
		        COALESCE(ms.billing_weight, ie.net_weight / 1000.0, 0)::TEXT,
		        ms.rate::TEXT, ms.gst_percentage::TEXT, ms.amount::TEXT, ms.gst_amount::TEXT,
		        ms.total_amount::TEXT, ms.transportation_expense::TEXT,
		        ms.mode_of_payment, COALESCE(ms.driver_name, ''), COALESCE(ms.driver_mobile, ''),
		        COALESCE(ms.remark, ''), ms.created_at
		 FROM material_sales ms
		 JOIN inward_entries ie ON ms.inward_entry_id = ie.id
		 JOIN partners p ON ms.party_id = p.id
		 LEFT JOIN partners t ON ms.transporter_id = t.id
		 ORDER BY ms.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	var sales []model.MaterialSale
	for rows.Next() {
		var m model.MaterialSale
		var original, dedValue, dedAmount, billing string
		var rate, gstPct, amount, gstAmount, total, transport string

		if err := rows.Scan(&m.ID, &m.InwardEntryID, &m.SaleDate,
			&m.VehicleNumber, &m.MaterialName,
			&m.PartyID, &m.PartyName, &m.TransporterID, &m.TransporterName,
			&original, &m.DeductionType, &dedValue,
			&m.DeductionReason, &dedAmount, &billing,
			&rate, &gstPct, &amount, &gstAmount,
			&total, &transport,
			&m.ModeOfPayment, &m.DriverName, &m.DriverMobile,
			&m.Remark, &m.CreatedAt); err != nil {
			return nil, err
		}

		m.OriginalWeightTons = parseNumeric(original)
		m.DeductionValue = parseNumeric(dedValue)
		m.DeductionAmountTons = parseNumeric(dedAmount)
		m.BillingWeightTons = parseNumeric(billing)
		m.Rate = parseNumeric(rate)
		m.GSTPercentage = parseNumeric(gstPct)
		m.Amount = parseNumeric(amount)
		m.GSTAmount = parseNumeric(gstAmount)
		m.TotalAmount = parseNumeric(total)
		m.TransportationExpense = parseNumeric(transport)

		sales = append(sales, m)
	}
	return sales, rows.Err()
}

// scanRecord reads one row selected with recordColumns.
func scanRecord(row pgx.Row) (*model.WeighingRecord, error) {
	var r model.WeighingRecord
	var netKg *string
	var completed *time.Time

	if err := row.Scan(&r.ID, &r.VehicleNumber, &r.Material, &r.EntryType, &r.Status,
		&netKg, &r.PartyID, &r.PartyName, &r.CreatedAt, &completed); err != nil {
		return nil, err
	}

	if netKg != nil {
		if kg, err := decimal.NewFromString(*netKg); err == nil {
			tons := kg.Div(kgPerTon).InexactFloat64()
			r.NetWeightTons = &tons
		}
	}
	r.CompletedAt = completed
	return &r, nil
}

func numeric(v float64) string {
	return decimal.NewFromFloat(v).String()
}

func parseNumeric(s string) float64 {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
