package models

import (
	"time"

	"github.com/diewo77/voyage-billing/internal/itinerary"
)

// Lead is a prospective trip. It points at no more than one package; a customized package
// takes precedence over the catalog package it was derived from.
type Lead struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string     `gorm:"size:255;not null" json:"name"`
	Email       string     `gorm:"size:255" json:"email,omitempty"`
	Phone       string     `gorm:"size:50" json:"phone,omitempty"`
	Destination string     `gorm:"size:255" json:"destination,omitempty"`
	TravelDate  *time.Time `json:"travel_date,omitempty"`

	PackageID           *uint `gorm:"index" json:"package_id,omitempty"`
	CustomizedPackageID *uint `gorm:"index" json:"customized_package_id,omitempty"`
}

// ItineraryRef returns the fields the itinerary resolver needs.
func (l *Lead) ItineraryRef() itinerary.LeadRef {
	return itinerary.LeadRef{ID: l.ID, PackageID: l.PackageID, CustomizedPackageID: l.CustomizedPackageID}
}
