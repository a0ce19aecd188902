package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/diewo77/voyage-billing/internal/itinerary"
)

// Package is a catalog tour package.
type Package struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string                 `gorm:"size:255;not null" json:"name"`
	Destination string                 `gorm:"size:255" json:"destination,omitempty"`
	Price       decimal.Decimal        `gorm:"type:decimal(18,4);not null" json:"price"`
	Days        []itinerary.PackageDay `gorm:"serializer:json;type:text" json:"days"`
	Active      bool                   `gorm:"default:true" json:"active"`
}

// CustomizedPackage is a package tailored for a single lead.
type CustomizedPackage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	LeadID        uint                   `gorm:"index;not null" json:"lead_id"`
	BasePackageID *uint                  `gorm:"index" json:"base_package_id,omitempty"`
	Name          string                 `gorm:"size:255;not null" json:"name"`
	Price         decimal.Decimal        `gorm:"type:decimal(18,4);not null" json:"price"`
	Days          []itinerary.PackageDay `gorm:"serializer:json;type:text" json:"days"`
}

// ManualItinerary is a day plan typed in by an agent when the lead has no package.
type ManualItinerary struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	LeadID uint                `gorm:"uniqueIndex;not null" json:"lead_id"`
	Title  string              `gorm:"size:255" json:"title,omitempty"`
	Days   []itinerary.DayPlan `gorm:"serializer:json;type:text" json:"days"`
}
