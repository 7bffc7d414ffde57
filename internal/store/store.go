// Package store defines the persistence interface for the sales service.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache) and in-memory (for testing and local development).
package store

import (
	"context"
	"errors"

	"github.com/Solaris-hms/MRF/internal/model"
)

var (
	// ErrNotFound is returned when a record, partner or sale does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrAlreadySettled is returned when a sale is logged against a weighing
	// record that already has one.
	ErrAlreadySettled = errors.New("store: weighing record already has a sale")

	// ErrNotSellable is returned when a sale targets a record that is not a
	// completed material export.
	ErrNotSellable = errors.New("store: weighing record is not sellable")

	// ErrPartnerExists is returned when a partner with the same name and
	// type is already registered.
	ErrPartnerExists = errors.New("store: partner already exists")
)

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
type Store interface {
	// --- Weighing records ---

	// GetWeighingRecord retrieves a weighbridge transaction by ID.
	GetWeighingRecord(ctx context.Context, id string) (*model.WeighingRecord, error)

	// ListSellable returns completed material exports with no sale logged,
	// most recently completed first.
	ListSellable(ctx context.Context) ([]model.WeighingRecord, error)

	// --- Partner directory ---

	// ListPartners returns partners ordered by name. An empty partnerType
	// returns every partner.
	ListPartners(ctx context.Context, partnerType string) ([]model.Partner, error)

	// GetPartner retrieves a partner by ID.
	GetPartner(ctx context.Context, id string) (*model.Partner, error)

	// FindPartner looks a partner up by case-insensitive name and type.
	FindPartner(ctx context.Context, name, partnerType string) (*model.Partner, error)

	// CreatePartner registers a new partner.
	CreatePartner(ctx context.Context, p *model.Partner) error

	// --- Sale log ---

	// InsertSale logs a sale. At most one sale may exist per weighing record.
	// A store that generates its own keys overwrites sale.ID.
	InsertSale(ctx context.Context, sale *model.MaterialSale) error

	// ListSales returns the sale log, newest first, with vehicle, material
	// and partner names filled in.
	ListSales(ctx context.Context) ([]model.MaterialSale, error)
}

// Summarize aggregates a sale log.
func Summarize(sales []model.MaterialSale) model.SalesSummary {
	var s model.SalesSummary
	for _, sale := range sales {
		s.TotalSales += sale.TotalAmount
		s.TotalQuantityTons += sale.OriginalWeightTons
		s.TotalBillingWeightTons += sale.BillingWeightTons
	}
	s.TransactionCount = len(sales)
	return s
}
