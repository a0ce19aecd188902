package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/diewo77/voyage-billing/internal/itinerary"
	"github.com/diewo77/voyage-billing/internal/models"
)

// LeadDocuments lists everything issued for a lead, most recent first.
type LeadDocuments struct {
	Quotations []models.Quotation `json:"quotations"`
	Invoices   []models.Invoice   `json:"invoices"`
	Receipts   []models.Receipt   `json:"receipts"`
}

type LeadService struct {
	base
	resolver *itinerary.Resolver
}

func NewLeadService(db *gorm.DB, resolver *itinerary.Resolver, opts ...Option) *LeadService {
	return &LeadService{base: newBase(db, opts), resolver: resolver}
}

func (s *LeadService) Get(ctx context.Context, id uint) (*models.Lead, error) {
	var lead *models.Lead
	err := s.run(ctx, "lead.get", func(tx *gorm.DB) error {
		var err error
		lead, err = loadLead(tx, id)
		return err
	})
	return lead, err
}

// Itinerary resolves the lead's itinerary.
func (s *LeadService) Itinerary(ctx context.Context, id uint) (itinerary.Resolution, error) {
	lead, err := s.Get(ctx, id)
	if err != nil {
		return itinerary.Resolution{}, err
	}
	return s.resolver.Resolve(ctx, lead.ItineraryRef()), nil
}

func (s *LeadService) Documents(ctx context.Context, id uint) (*LeadDocuments, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	docs := &LeadDocuments{}
	err := s.run(ctx, "lead.documents", func(tx *gorm.DB) error {
		if err := tx.Where("lead_id = ?", id).Order("created_at DESC, id DESC").Find(&docs.Quotations).Error; err != nil {
			return err
		}
		if err := tx.Where("lead_id = ?", id).Order("created_at DESC, id DESC").Find(&docs.Invoices).Error; err != nil {
			return err
		}
		return tx.Where("lead_id = ?", id).Order("created_at DESC, id DESC").Find(&docs.Receipts).Error
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}
