// Package repository adapts database tables to the ports used by the billing engine.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/voyage-billing/internal/itinerary"
	"github.com/diewo77/voyage-billing/internal/models"
)

// ItineraryStore reads packages, customized packages and manual itineraries with gorm.
type ItineraryStore struct {
	DB *gorm.DB
}

func NewItineraryStore(db *gorm.DB) *ItineraryStore { return &ItineraryStore{DB: db} }

var _ itinerary.Source = (*ItineraryStore)(nil)

func (s *ItineraryStore) Package(ctx context.Context, id uint) (*itinerary.PackageDetail, error) {
	var p models.Package
	if err := s.DB.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, translate(err, "package", id)
	}
	return &itinerary.PackageDetail{ID: p.ID, Name: p.Name, Price: p.Price, Days: p.Days}, nil
}

func (s *ItineraryStore) CustomizedPackage(ctx context.Context, id uint) (*itinerary.PackageDetail, error) {
	var p models.CustomizedPackage
	if err := s.DB.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, translate(err, "customized package", id)
	}
	return &itinerary.PackageDetail{ID: p.ID, Name: p.Name, Price: p.Price, Days: p.Days}, nil
}

func (s *ItineraryStore) ManualItinerary(ctx context.Context, leadID uint) (*itinerary.ManualDetail, error) {
	var m models.ManualItinerary
	if err := s.DB.WithContext(ctx).Where("lead_id = ?", leadID).First(&m).Error; err != nil {
		return nil, translate(err, "manual itinerary for lead", leadID)
	}
	return &itinerary.ManualDetail{LeadID: m.LeadID, Title: m.Title, Days: m.Days}, nil
}

func (s *ItineraryStore) PackagePrice(ctx context.Context, id uint) (*decimal.Decimal, error) {
	var p models.Package
	if err := s.DB.WithContext(ctx).Select("id", "price").First(&p, id).Error; err != nil {
		return nil, translate(err, "package", id)
	}
	return &p.Price, nil
}

func translate(err error, what string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w", what, id, itinerary.ErrNotFound)
	}
	return fmt.Errorf("load %s %d: %w", what, id, err)
}
