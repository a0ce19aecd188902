// Package billing turns itineraries into priced line items and computes document totals.
package billing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Category classifies a line item.
type Category string

const (
	CategoryPackage        Category = "package"
	CategoryAccommodation  Category = "accommodation"
	CategoryTransportation Category = "transportation"
	CategoryFood           Category = "food"
	CategoryActivity       Category = "activity"
	CategoryOther          Category = "other"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryPackage, CategoryAccommodation, CategoryTransportation, CategoryFood, CategoryActivity, CategoryOther:
		return true
	}
	return false
}

// Origin tells whether an item was derived from the itinerary or typed in by an agent.
type Origin string

const (
	OriginExtracted Origin = "extracted"
	OriginManual    Origin = "manual"
)

// Mode selects which items count towards a document's totals.
type Mode string

const (
	// ModeSummary bills the package item alone.
	ModeSummary Mode = "summary"
	// ModeDetailed bills every item except the package item.
	ModeDetailed Mode = "detailed"
)

func (m Mode) Valid() bool { return m == ModeSummary || m == ModeDetailed }

// PackageItemDescription is used when a package item is created from a bare price.
const PackageItemDescription = "Package Total"

// LineItem is one billable row on a quotation or invoice.
type LineItem struct {
	Description string              `gorm:"size:500;not null" json:"description"`
	Category    Category            `gorm:"size:30;not null" json:"category"`
	Quantity    decimal.Decimal     `gorm:"type:decimal(18,4);not null" json:"quantity"`
	UnitPrice   decimal.Decimal     `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	TotalPrice  decimal.NullDecimal `gorm:"type:decimal(18,4)" json:"total_price"`
	Notes       string              `gorm:"type:text" json:"notes,omitempty"`
	Origin      Origin              `gorm:"size:20;not null;default:'manual'" json:"origin"`
}

// IsPackage reports whether the item is the package item.
func (i LineItem) IsPackage() bool { return i.Category == CategoryPackage }

// Amount is the item's contribution to the subtotal. An explicitly set total price wins
// over quantity times unit price.
func (i LineItem) Amount() decimal.Decimal {
	if i.TotalPrice.Valid {
		return i.TotalPrice.Decimal
	}
	return i.Quantity.Mul(i.UnitPrice)
}

// SetQuantity changes the quantity and recomputes the total price.
func (i *LineItem) SetQuantity(q decimal.Decimal) {
	i.Quantity = q
	i.TotalPrice = decimal.NewNullDecimal(q.Mul(i.UnitPrice))
}

// SetUnitPrice changes the unit price and recomputes the total price.
func (i *LineItem) SetUnitPrice(p decimal.Decimal) {
	i.UnitPrice = p
	i.TotalPrice = decimal.NewNullDecimal(i.Quantity.Mul(p))
}

// SetTotalPrice makes t the item's price: unit price becomes t and quantity becomes 1.
func (i *LineItem) SetTotalPrice(t decimal.Decimal) {
	i.TotalPrice = decimal.NewNullDecimal(t)
	i.UnitPrice = t
	i.Quantity = decimal.NewFromInt(1)
}

// Normalize fills defaults: quantity 1, manual origin and a total price derived from
// quantity and unit price when none was given.
func (i *LineItem) Normalize() {
	i.Description = strings.TrimSpace(i.Description)
	if i.Quantity.IsZero() {
		i.Quantity = decimal.NewFromInt(1)
	}
	if i.Origin == "" {
		i.Origin = OriginManual
	}
	if !i.TotalPrice.Valid {
		i.TotalPrice = decimal.NewNullDecimal(i.Quantity.Mul(i.UnitPrice))
	}
}

// NewPackageItem builds the package item for the given price.
func NewPackageItem(description string, price decimal.Decimal) LineItem {
	if strings.TrimSpace(description) == "" {
		description = PackageItemDescription
	}
	item := LineItem{Description: description, Category: CategoryPackage, Origin: OriginManual}
	item.SetTotalPrice(price)
	return item
}
