package models

import (
	"time"

	"github.com/diewo77/voyage-billing/internal/billing"
)

// QuotationStatus represents the status of a quotation.
type QuotationStatus string

const (
	QuotationStatusDraft     QuotationStatus = "draft"
	QuotationStatusSent      QuotationStatus = "sent"
	QuotationStatusAccepted  QuotationStatus = "accepted"
	QuotationStatusRejected  QuotationStatus = "rejected"
	QuotationStatusExpired   QuotationStatus = "expired"
	QuotationStatusConverted QuotationStatus = "converted"
)

// Quotation is a priced offer sent to a lead.
type Quotation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Number string `gorm:"size:50;uniqueIndex" json:"number"`

	LeadID    uint  `gorm:"index;not null" json:"lead_id"`
	Lead      *Lead `gorm:"foreignKey:LeadID" json:"lead,omitempty"`
	PackageID *uint `gorm:"index" json:"package_id,omitempty"`

	Pricing `gorm:"embedded"`

	Status     QuotationStatus `gorm:"size:20;not null;default:'draft';index" json:"status"`
	ValidUntil *time.Time      `json:"valid_until,omitempty"`
	Notes      string          `gorm:"type:text" json:"notes,omitempty"`
	Version    int             `gorm:"not null;default:1" json:"version"`

	// ConvertedToInvoiceID is set once the quotation has become an invoice.
	ConvertedToInvoiceID *uint `json:"converted_to_invoice_id,omitempty"`

	Items []QuotationItem `gorm:"foreignKey:QuotationID;constraint:OnDelete:CASCADE" json:"items"`
}

// QuotationItem is a line item on a quotation.
type QuotationItem struct {
	ID          uint `gorm:"primaryKey" json:"id"`
	QuotationID uint `gorm:"index;not null" json:"quotation_id"`
	Position    int  `gorm:"default:0" json:"position"`

	billing.LineItem `gorm:"embedded"`
}

// IsConverted reports whether the quotation has been turned into an invoice.
func (q *Quotation) IsConverted() bool { return q.Status == QuotationStatusConverted }

// CanConvert reports whether the quotation may still become an invoice.
func (q *Quotation) CanConvert() bool {
	switch q.Status {
	case QuotationStatusDraft, QuotationStatusSent, QuotationStatusAccepted:
		return true
	}
	return false
}

// LineItems returns the items in position order as billing line items.
func (q *Quotation) LineItems() []billing.LineItem {
	out := make([]billing.LineItem, len(q.Items))
	for i, it := range q.Items {
		out[i] = it.LineItem
	}
	return out
}

// QuotationItemsFrom numbers items by their position in the slice.
func QuotationItemsFrom(items []billing.LineItem) []QuotationItem {
	out := make([]QuotationItem, len(items))
	for i, it := range items {
		out[i] = QuotationItem{Position: i, LineItem: it}
	}
	return out
}
