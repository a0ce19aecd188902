package services

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/voyage-billing/internal/billing"
	"github.com/diewo77/voyage-billing/internal/itinerary"
	"github.com/diewo77/voyage-billing/internal/models"
)

// DraftSaveInput carries the pricing fields that are not part of the editor state.
// Absent rates fall back to the service policy.
type DraftSaveInput struct {
	TaxRate           *decimal.Decimal       `json:"tax_rate,omitempty"`
	ServiceChargeRate *decimal.Decimal       `json:"service_charge_rate,omitempty"`
	Discount          billing.DiscountPolicy `json:"discount"`
	ValidUntil        *time.Time             `json:"valid_until,omitempty"`
	Notes             string                 `json:"notes,omitempty"`
}

// DraftService keeps the quotation currently being edited for each lead.
type DraftService struct {
	base
	resolver   *itinerary.Resolver
	quotations *QuotationService

	mu      sync.Mutex
	editors map[uint]*billing.Editor
}

func NewDraftService(db *gorm.DB, resolver *itinerary.Resolver, quotations *QuotationService, opts ...Option) *DraftService {
	return &DraftService{
		base:       newBase(db, opts),
		resolver:   resolver,
		quotations: quotations,
		editors:    map[uint]*billing.Editor{},
	}
}

// Open returns the lead's draft, loading a new one from the itinerary when none exists
// or when fresh is set.
func (s *DraftService) Open(ctx context.Context, leadID uint, fresh bool) (*billing.Editor, error) {
	if !fresh {
		if e, ok := s.lookup(leadID); ok {
			return e, nil
		}
	}
	var lead *models.Lead
	err := s.run(ctx, "draft.open", func(tx *gorm.DB) error {
		var err error
		lead, err = loadLead(tx, leadID)
		return err
	})
	if err != nil {
		return nil, err
	}
	e := billing.NewEditor(s.resolver.ForLead(lead.ItineraryRef()))
	if err := e.Load(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.editors[leadID]; ok && !fresh {
		return current, nil
	}
	s.editors[leadID] = e
	return e, nil
}

// Get returns the lead's open draft.
func (s *DraftService) Get(leadID uint) (*billing.Editor, error) {
	if e, ok := s.lookup(leadID); ok {
		return e, nil
	}
	return nil, &ValidationError{Err: ErrNoDraft, Details: "open a draft for this lead first"}
}

func (s *DraftService) lookup(leadID uint) (*billing.Editor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.editors[leadID]
	return e, ok
}

// Discard drops the lead's draft.
func (s *DraftService) Discard(leadID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.editors, leadID)
}

// Save stores the lead's draft as a new quotation and closes the draft.
func (s *DraftService) Save(ctx context.Context, leadID uint, in DraftSaveInput) (*models.Quotation, error) {
	e, err := s.Get(leadID)
	if err != nil {
		return nil, err
	}
	if e.Loading() {
		return nil, billing.ErrBusy
	}
	taxRate, serviceRate := s.policy.TaxRate, s.policy.ServiceChargeRate
	if in.TaxRate != nil {
		taxRate = *in.TaxRate
	}
	if in.ServiceChargeRate != nil {
		serviceRate = *in.ServiceChargeRate
	}
	snap := e.Snapshot()
	q, err := s.quotations.Create(ctx, QuotationInput{
		LeadID:     leadID,
		PackageID:  e.Resolution().PackageID,
		ValidUntil: in.ValidUntil,
		DocumentInput: DocumentInput{
			Mode:              snap.Mode,
			Items:             snap.Items,
			TaxRate:           taxRate,
			ServiceChargeRate: serviceRate,
			Discount:          in.Discount,
			Notes:             in.Notes,
		},
	})
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.editors[leadID] == e {
		delete(s.editors, leadID)
	}
	s.mu.Unlock()
	return q, nil
}
