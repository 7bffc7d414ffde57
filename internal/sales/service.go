// Package sales provides the HTTP handlers that sit around the settlement
// calculator: the sellable pool, live previews, logging a sale, the sale
// log with its summary and export, and the partner directory.
//
// Figures are float64 at full precision; rounding happens in
// settlement.Display and in the export.
package sales

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Solaris-hms/MRF/internal/export"
	"github.com/Solaris-hms/MRF/internal/metrics"
	"github.com/Solaris-hms/MRF/internal/model"
	"github.com/Solaris-hms/MRF/internal/settlement"
	"github.com/Solaris-hms/MRF/internal/store"
	"github.com/Solaris-hms/MRF/internal/vehicle"
)

// Service handles the sales endpoints. Double sales are prevented by the
// store, so handlers need no lock of their own.
type Service struct {
	store      store.Store
	defaultGST float64
	wsHub      *WSHub // optional WebSocket hub for real-time broadcasts
	now        func() time.Time
}

// NewService creates a new sales service. defaultGST applies when a
// request omits the gst field. Pass nil for hub if WebSocket broadcasting
// is not needed.
func NewService(st store.Store, defaultGST float64, hub *WSHub) *Service {
	return &Service{
		store:      st,
		defaultGST: defaultGST,
		wsHub:      hub,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Routes mounts the handlers on r. The caller picks the prefix.
func (s *Service) Routes(r chi.Router) {
	r.Get("/sellable-entries", s.ListSellable)

	r.Post("/sales/preview", s.Preview)
	r.Post("/sales", s.CreateSale)
	r.Get("/sales", s.ListSales)
	r.Get("/sales/summary", s.Summary)
	r.Get("/sales/export", s.Export)

	r.Get("/partners", s.ListPartners)
	r.Post("/partners", s.CreatePartner)
}

// --- Request/Response types ---

// TransporterRef names a transporter by directory ID or by name. An
// unknown name is added to the directory when the sale is saved.
type TransporterRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// SaleRequest is the JSON body of POST /sales and POST /sales/preview.
type SaleRequest struct {
	InwardEntryID string `json:"inward_entry_id"`
	PartyID       string `json:"party_id,omitempty"` // empty: the record's party

	DeductionType   string    `json:"deduction_type"`
	DeductionValue  FormValue `json:"deduction_value"`
	DeductionReason string    `json:"deduction_reason"`
	CustomReason    string    `json:"custom_reason"`

	Rate                  FormValue       `json:"rate"`
	RateUnit              string          `json:"rate_unit"` // "ton" or "kg"
	GST                   FormValue       `json:"gst"`
	ModeOfPayment         string          `json:"mode_of_payment"`
	TransportationExpense FormValue       `json:"transportation_expense"`
	Transporter           *TransporterRef `json:"transporter,omitempty"`
	DriverName            string          `json:"driver_name"`
	DriverMobile          string          `json:"driver_mobile"`
	Remark                string          `json:"remark"`
}

// PreviewResponse is the JSON body returned from POST /sales/preview.
type PreviewResponse struct {
	InwardEntryID string                    `json:"inward_entry_id"`
	Settlement    settlement.SaleSettlement `json:"settlement"`
	Display       settlement.Display        `json:"display"`
	Deduction     string                    `json:"deduction"`
}

// SummaryResponse is the JSON body returned from GET /sales/summary.
type SummaryResponse struct {
	model.SalesSummary
	TotalSalesINR             string `json:"total_sales_inr"`
	TotalQuantityDisplay      string `json:"total_quantity_display"`
	TotalBillingWeightDisplay string `json:"total_billing_weight_display"`
}

// CreatePartnerRequest is the JSON body of POST /partners.
type CreatePartnerRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ErrWrongPartnerType is returned when a partner is named for a role its
// directory type does not allow, such as a transporter billed as the party.
var ErrWrongPartnerType = errors.New("sales: partner cannot act in this role")

var partnerTypes = map[string]bool{
	model.PartnerParty:       true,
	model.PartnerSource:      true,
	model.PartnerDestination: true,
	model.PartnerTransporter: true,
}

// --- HTTP Handlers ---

// ListSellable handles GET /api/v1/sellable-entries
// Optionally filtered by ?vehicle=<registration or fragment>.
func (s *Service) ListSellable(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.ListSellable(r.Context())
	if err != nil {
		slog.Error("list sellable failed", "err", err)
		writeError(w, "failed to list sellable entries", http.StatusInternalServerError)
		return
	}

	filtered := make([]model.WeighingRecord, 0, len(records))
	query := r.URL.Query().Get("vehicle")
	for _, rec := range records {
		if vehicle.Matches(rec.VehicleNumber, query) {
			filtered = append(filtered, rec)
		}
	}

	writeJSON(w, http.StatusOK, filtered)
}

// Preview handles POST /api/v1/sales/preview
// Recomputes the settlement for a draft. Incomplete drafts are fine; only
// an unknown record or an unknown option is an error.
func (s *Service) Preview(w http.ResponseWriter, r *http.Request) {
	var req SaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	deduction, terms, err := s.parseTerms(req)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	record, err := s.store.GetWeighingRecord(r.Context(), req.InwardEntryID)
	if err != nil {
		writeStoreError(w, err, "weighing record not found")
		return
	}

	result := settlement.Recompute(*record, deduction, terms)
	writeJSON(w, http.StatusOK, PreviewResponse{
		InwardEntryID: record.ID,
		Settlement:    result,
		Display:       result.Display(),
		Deduction:     deduction.Describe(),
	})
}

// CreateSale handles POST /api/v1/sales
// Validates the draft, resolves the transporter (creating it if new),
// commits the settlement and logs the sale.
func (s *Service) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req SaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	deduction, terms, err := s.parseTerms(req)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	record, err := s.store.GetWeighingRecord(ctx, req.InwardEntryID)
	if err != nil {
		writeStoreError(w, err, "weighing record not found")
		return
	}
	if !record.Sellable() {
		s.reject(w, record.ID, store.ErrNotSellable)
		return
	}

	party, err := s.resolveParty(ctx, req.PartyID, record)
	if errors.Is(err, ErrWrongPartnerType) {
		s.reject(w, record.ID, err)
		return
	}
	if err != nil {
		writeStoreError(w, err, "party not found")
		return
	}

	// Validate before touching the directory so a rejected sale never
	// leaves a new transporter behind.
	if err := settlement.Validate(deduction, terms, party); err != nil {
		s.reject(w, record.ID, err)
		return
	}

	if req.Transporter != nil {
		transporter, err := s.resolveTransporter(ctx, *req.Transporter)
		if errors.Is(err, ErrWrongPartnerType) {
			s.reject(w, record.ID, err)
			return
		}
		if err != nil {
			writeStoreError(w, err, "transporter not found")
			return
		}
		if transporter != nil {
			terms.TransporterID = &transporter.ID
		}
	}

	finished, err := settlement.Commit(*record, deduction, terms, party)
	if err != nil {
		s.reject(w, record.ID, err)
		return
	}

	sale := s.newSale(finished)
	if err := s.store.InsertSale(ctx, sale); err != nil {
		if errors.Is(err, store.ErrAlreadySettled) || errors.Is(err, store.ErrNotSellable) {
			s.reject(w, record.ID, err)
			return
		}
		// The record or a partner vanished between lookup and insert; the
		// store error names which one.
		if errors.Is(err, store.ErrNotFound) {
			slog.Warn("insert sale lost a reference", "inward_entry_id", record.ID, "err", err)
			writeError(w, err.Error(), http.StatusNotFound)
			return
		}
		slog.Error("insert sale failed", "inward_entry_id", record.ID, "err", err)
		writeError(w, "storage error", http.StatusInternalServerError)
		return
	}

	// Names for the response; the store fills these on read.
	sale.PartyName = party.Name
	if sale.TransporterID != nil {
		if t, err := s.store.GetPartner(ctx, *sale.TransporterID); err == nil {
			sale.TransporterName = &t.Name
		}
	}

	mode := sale.ModeOfPayment
	metrics.SalesTotal.WithLabelValues(mode).Inc()
	metrics.SaleValue.WithLabelValues(mode).Add(sale.TotalAmount)
	metrics.SoldWeight.WithLabelValues(sale.MaterialName).Add(sale.BillingWeightTons)

	view := finished.Display()
	slog.Info("sale logged",
		"sale_id", sale.ID,
		"inward_entry_id", sale.InwardEntryID,
		"vehicle", sale.VehicleNumber,
		"material", sale.MaterialName,
		"party", party.Name,
		"billing_weight_tons", view.BillingWeightTons,
		"rate_per_ton", view.RatePerTon,
		"total_amount", view.TotalAmount,
		"mode", mode,
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:          EventSaleLogged,
			SaleID:        sale.ID,
			InwardEntryID: sale.InwardEntryID,
			VehicleNumber: sale.VehicleNumber,
			Material:      sale.MaterialName,
			BillingWeight: view.BillingWeightTons,
			TotalAmount:   view.TotalAmount,
		})
	}

	writeJSON(w, http.StatusCreated, sale)
}

// ListSales handles GET /api/v1/sales
func (s *Service) ListSales(w http.ResponseWriter, r *http.Request) {
	sales, err := s.store.ListSales(r.Context())
	if err != nil {
		slog.Error("list sales failed", "err", err)
		writeError(w, "failed to list sales", http.StatusInternalServerError)
		return
	}
	if sales == nil {
		sales = []model.MaterialSale{}
	}
	writeJSON(w, http.StatusOK, sales)
}

// Summary handles GET /api/v1/sales/summary
func (s *Service) Summary(w http.ResponseWriter, r *http.Request) {
	sales, err := s.store.ListSales(r.Context())
	if err != nil {
		slog.Error("list sales failed", "err", err)
		writeError(w, "failed to summarize sales", http.StatusInternalServerError)
		return
	}

	sum := store.Summarize(sales)
	writeJSON(w, http.StatusOK, SummaryResponse{
		SalesSummary:              sum,
		TotalSalesINR:             settlement.FormatINR(sum.TotalSales),
		TotalQuantityDisplay:      settlement.Weight(sum.TotalQuantityTons).StringFixed(settlement.WeightPlaces),
		TotalBillingWeightDisplay: settlement.Weight(sum.TotalBillingWeightTons).StringFixed(settlement.WeightPlaces),
	})
}

// Export handles GET /api/v1/sales/export
// Streams the sale log as an .xlsx workbook.
func (s *Service) Export(w http.ResponseWriter, r *http.Request) {
	sales, err := s.store.ListSales(r.Context())
	if err != nil {
		slog.Error("list sales failed", "err", err)
		writeError(w, "failed to export sales", http.StatusInternalServerError)
		return
	}

	// Build fully before writing so a failure can still send a JSON error.
	var buf bytes.Buffer
	if err := export.WriteSalesWorkbook(&buf, sales); err != nil {
		slog.Error("export sales failed", "err", err)
		writeError(w, "failed to export sales", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// ListPartners handles GET /api/v1/partners
// Optionally filtered by ?type=<Party|Source|Destination|Transporter>.
func (s *Service) ListPartners(w http.ResponseWriter, r *http.Request) {
	partnerType := r.URL.Query().Get("type")
	if partnerType != "" && !partnerTypes[partnerType] {
		writeError(w, "unknown partner type: "+partnerType, http.StatusBadRequest)
		return
	}

	partners, err := s.store.ListPartners(r.Context(), partnerType)
	if err != nil {
		slog.Error("list partners failed", "err", err)
		writeError(w, "failed to list partners", http.StatusInternalServerError)
		return
	}
	if partners == nil {
		partners = []model.Partner{}
	}
	writeJSON(w, http.StatusOK, partners)
}

// CreatePartner handles POST /api/v1/partners
func (s *Service) CreatePartner(w http.ResponseWriter, r *http.Request) {
	var req CreatePartnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, "name is required", http.StatusBadRequest)
		return
	}
	if !partnerTypes[req.Type] {
		writeError(w, "unknown partner type: "+req.Type, http.StatusBadRequest)
		return
	}

	p := &model.Partner{Name: name, Type: req.Type}
	if err := s.addPartner(r.Context(), p); err != nil {
		if errors.Is(err, store.ErrPartnerExists) {
			writeError(w, "partner already exists", http.StatusConflict)
			return
		}
		slog.Error("create partner failed", "name", name, "err", err)
		writeError(w, "failed to create partner", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

// --- Orchestration helpers ---

func (s *Service) parseTerms(req SaleRequest) (settlement.DeductionSpec, settlement.CommercialTerms, error) {
	dType, err := settlement.ParseDeductionType(req.DeductionType)
	if err != nil {
		return settlement.DeductionSpec{}, settlement.CommercialTerms{}, err
	}
	reason, err := settlement.ParseDeductionReason(req.DeductionReason)
	if err != nil {
		return settlement.DeductionSpec{}, settlement.CommercialTerms{}, err
	}
	unit, err := settlement.ParseRateUnit(req.RateUnit)
	if err != nil {
		return settlement.DeductionSpec{}, settlement.CommercialTerms{}, err
	}
	mode, err := settlement.ParsePaymentMode(req.ModeOfPayment)
	if err != nil {
		return settlement.DeductionSpec{}, settlement.CommercialTerms{}, err
	}

	deduction := settlement.DeductionSpec{
		Type:         dType,
		Value:        req.DeductionValue.Float(),
		Reason:       reason,
		CustomReason: req.CustomReason,
	}
	terms := settlement.CommercialTerms{
		RatePerUnit:           req.Rate.Float(),
		RateUnit:              unit,
		GSTPercent:            req.GST.FloatOr(s.defaultGST),
		PaymentMode:           mode,
		TransportationExpense: req.TransportationExpense.Float(),
		DriverName:            req.DriverName,
		DriverMobile:          req.DriverMobile,
		Remark:                req.Remark,
	}
	return deduction, terms, nil
}

// resolveParty returns the requested party, or the record's own party when
// none is requested. A nil partner with a nil error means no party is
// assigned; settlement.Validate reports that.
func (s *Service) resolveParty(ctx context.Context, partyID string, record *model.WeighingRecord) (*model.Partner, error) {
	id := strings.TrimSpace(partyID)
	if id == "" && record.PartyID != nil {
		id = *record.PartyID
	}
	if id == "" {
		return nil, nil
	}
	p, err := s.store.GetPartner(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Type == model.PartnerTransporter {
		return nil, fmt.Errorf("%w: %s is a transporter and cannot be billed", ErrWrongPartnerType, p.Name)
	}
	return p, nil
}

// resolveTransporter looks the transporter up by ID or name, creating a
// new Transporter partner for an unknown name. An empty ref yields nil.
func (s *Service) resolveTransporter(ctx context.Context, ref TransporterRef) (*model.Partner, error) {
	if id := strings.TrimSpace(ref.ID); id != "" {
		p, err := s.store.GetPartner(ctx, id)
		if err != nil {
			return nil, err
		}
		if p.Type != model.PartnerTransporter {
			return nil, fmt.Errorf("%w: %s is a %s, not a transporter", ErrWrongPartnerType, p.Name, p.Type)
		}
		return p, nil
	}
	name := strings.TrimSpace(ref.Name)
	if name == "" {
		return nil, nil
	}

	p, err := s.store.FindPartner(ctx, name, model.PartnerTransporter)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	p = &model.Partner{Name: name, Type: model.PartnerTransporter}
	err = s.addPartner(ctx, p)
	if errors.Is(err, store.ErrPartnerExists) {
		// Lost a race with another sale naming the same transporter.
		return s.store.FindPartner(ctx, name, model.PartnerTransporter)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) addPartner(ctx context.Context, p *model.Partner) error {
	if err := s.store.CreatePartner(ctx, p); err != nil {
		return err
	}

	metrics.PartnersCreated.WithLabelValues(p.Type).Inc()
	slog.Info("partner created", "id", p.ID, "name", p.Name, "type", p.Type)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:        EventPartnerCreated,
			PartnerID:   p.ID,
			PartnerName: p.Name,
			PartnerType: p.Type,
		})
	}
	return nil
}

func (s *Service) newSale(f *settlement.FinishedSale) *model.MaterialSale {
	now := s.now()
	return &model.MaterialSale{
		ID:                    uuid.New().String(),
		InwardEntryID:         f.RecordID,
		SaleDate:              now,
		VehicleNumber:         f.VehicleNumber,
		MaterialName:          f.Material,
		PartyID:               f.PartyID,
		TransporterID:         f.TransporterID,
		OriginalWeightTons:    f.OriginalWeightTons,
		DeductionType:         string(f.Deduction.Type),
		DeductionValue:        f.Deduction.Value,
		DeductionReason:       f.Deduction.ReasonLabel(),
		DeductionAmountTons:   f.DeductionAmountTons,
		BillingWeightTons:     f.BillingWeightTons,
		Rate:                  f.RatePerTon,
		GSTPercentage:         f.GSTPercent,
		Amount:                f.BaseAmount,
		GSTAmount:             f.GSTAmount,
		TotalAmount:           f.TotalAmount,
		TransportationExpense: f.TransportationExpense,
		ModeOfPayment:         string(f.PaymentMode),
		DriverName:            f.DriverName,
		DriverMobile:          f.DriverMobile,
		Remark:                f.Remark,
		CreatedAt:             now,
	}
}

// reject answers a sale that cannot be logged and counts it by reason.
func (s *Service) reject(w http.ResponseWriter, recordID string, err error) {
	reason, status := rejection(err)
	metrics.SettlementRejections.WithLabelValues(reason).Inc()
	slog.Warn("sale rejected", "inward_entry_id", recordID, "reason", reason, "err", err)
	writeError(w, err.Error(), status)
}

func rejection(err error) (reason string, status int) {
	switch {
	case errors.Is(err, settlement.ErrMissingParty):
		return "missing_party", http.StatusUnprocessableEntity
	case errors.Is(err, settlement.ErrMissingRate):
		return "missing_rate", http.StatusUnprocessableEntity
	case errors.Is(err, settlement.ErrMissingDeductionReason):
		return "missing_deduction_reason", http.StatusUnprocessableEntity
	case errors.Is(err, ErrWrongPartnerType):
		return "wrong_partner_type", http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrAlreadySettled):
		return "already_settled", http.StatusConflict
	case errors.Is(err, store.ErrNotSellable):
		return "not_sellable", http.StatusConflict
	default:
		return "other", http.StatusInternalServerError
	}
}

// writeStoreError maps a store lookup failure onto a response.
func writeStoreError(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, notFound, http.StatusNotFound)
		return
	}
	writeError(w, "storage error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
