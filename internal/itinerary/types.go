package itinerary

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// SourceType tells which kind of record describes a lead's trip.
type SourceType string

const (
	SourceCustomized SourceType = "customized"
	SourcePackage    SourceType = "package"
	SourceManual     SourceType = "manual"
	SourceNone       SourceType = "none"
)

// ErrNotFound is returned by a Source when the requested record does not exist.
var ErrNotFound = errors.New("itinerary_not_found")

// Accommodation is the lodging booked for a day.
type Accommodation struct {
	Name    string `json:"name"`
	Type    string `json:"type,omitempty"`
	Address string `json:"address,omitempty"`
}

// Meals lists which meals are included on a day.
type Meals struct {
	Breakfast bool `json:"breakfast"`
	Lunch     bool `json:"lunch"`
	Dinner    bool `json:"dinner"`
}

// Any reports whether at least one meal is included.
func (m Meals) Any() bool { return m.Breakfast || m.Lunch || m.Dinner }

// Place is a sightseeing stop.
type Place struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// NormalizedDay is the source-independent shape every itinerary day is mapped to.
type NormalizedDay struct {
	Number        int            `json:"day_number"`
	Accommodation *Accommodation `json:"accommodation,omitempty"`
	Transport     string         `json:"transport,omitempty"`
	Meals         Meals          `json:"meals"`
	Activities    []string       `json:"activities,omitempty"`
	Places        []Place        `json:"places,omitempty"`
}

// Resolution is the outcome of resolving a lead's itinerary.
type Resolution struct {
	SourceType SourceType      `json:"source_type"`
	Days       []NormalizedDay `json:"days"`
	PackageID  *uint           `json:"package_id,omitempty"`
	Title      string          `json:"title,omitempty"`
}

// PackageDay is the day shape stored on catalog and customized packages.
type PackageDay struct {
	Day           int            `json:"day"`
	Title         string         `json:"title,omitempty"`
	Accommodation *Accommodation `json:"accommodation,omitempty"`
	Transport     string         `json:"transport,omitempty"`
	Meals         Meals          `json:"meals"`
	Activities    []string       `json:"activities,omitempty"`
	Places        []Place        `json:"places,omitempty"`
}

// Hotel is the lodging entry of a manual day plan.
type Hotel struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Address  string `json:"address,omitempty"`
}

// DayPlan is the day shape agents type into a manual itinerary.
// Meals are free-form labels such as "breakfast" or "Dinner".
type DayPlan struct {
	DayNumber     int      `json:"day_number"`
	Hotel         *Hotel   `json:"hotel,omitempty"`
	TransportMode string   `json:"transport_mode,omitempty"`
	Meals         []string `json:"meals,omitempty"`
	Activities    []string `json:"activities,omitempty"`
	Sightseeing   []Place  `json:"sightseeing,omitempty"`
}

// PackageDetail is a catalog or customized package as returned by a Source.
type PackageDetail struct {
	ID    uint
	Name  string
	Price decimal.Decimal
	Days  []PackageDay
}

// ManualDetail is a manual itinerary as returned by a Source.
type ManualDetail struct {
	LeadID uint
	Title  string
	Days   []DayPlan
}

// Source reads the stored itinerary records. Missing records are reported as ErrNotFound.
type Source interface {
	Package(ctx context.Context, id uint) (*PackageDetail, error)
	CustomizedPackage(ctx context.Context, id uint) (*PackageDetail, error)
	ManualItinerary(ctx context.Context, leadID uint) (*ManualDetail, error)
	PackagePrice(ctx context.Context, id uint) (*decimal.Decimal, error)
}

// LeadRef carries the lead fields that decide where its itinerary lives.
type LeadRef struct {
	ID                  uint
	PackageID           *uint
	CustomizedPackageID *uint
}
