package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/diewo77/voyage-billing/internal/billing"
)

// InvoiceStatus represents the status of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPartial   InvoiceStatus = "partial"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Invoice represents a billing invoice. PaidAmount is the sum of its receipts and
// OutstandingAmount what is still owed; Version guards concurrent payment updates.
type Invoice struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Number string `gorm:"size:50;uniqueIndex" json:"number"`

	LeadID      uint       `gorm:"index;not null" json:"lead_id"`
	Lead        *Lead      `gorm:"foreignKey:LeadID" json:"lead,omitempty"`
	QuotationID *uint      `gorm:"uniqueIndex" json:"quotation_id,omitempty"`
	Quotation   *Quotation `gorm:"foreignKey:QuotationID" json:"-"`
	PackageID   *uint      `gorm:"index" json:"package_id,omitempty"`

	Pricing `gorm:"embedded"`

	PaidAmount        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"paid_amount"`
	OutstandingAmount decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"outstanding_amount"`

	// Invoice dates
	IssueDate time.Time  `gorm:"not null" json:"issue_date"`
	DueDate   time.Time  `gorm:"not null;index" json:"due_date"`
	PaidDate  *time.Time `json:"paid_date,omitempty"`

	Status  InvoiceStatus `gorm:"size:20;not null;default:'draft';index" json:"status"`
	Notes   string        `gorm:"type:text" json:"notes,omitempty"`
	Version int           `gorm:"not null;default:1" json:"version"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
}

// InvoiceItem is a line item on an invoice.
type InvoiceItem struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	InvoiceID uint `gorm:"index;not null" json:"invoice_id"`
	Position  int  `gorm:"default:0" json:"position"`

	billing.LineItem `gorm:"embedded"`
}

// IsDraft returns true if the invoice is in draft status.
func (i *Invoice) IsDraft() bool {
	return i.Status == InvoiceStatusDraft
}

// CanEdit returns true if the invoice totals may still change.
func (i *Invoice) CanEdit() bool {
	return i.Status != InvoiceStatusPaid && i.Status != InvoiceStatusCancelled
}

// AcceptsPayment reports whether receipts may be recorded against the invoice.
// A draft must be sent first.
func (i *Invoice) AcceptsPayment() bool {
	return i.Status != InvoiceStatusDraft && i.Status != InvoiceStatusCancelled
}

// Outstanding is what remains owed, never below zero.
func (i *Invoice) Outstanding() decimal.Decimal {
	o := i.TotalAmount.Sub(i.PaidAmount)
	if o.IsNegative() {
		return decimal.Zero
	}
	return o
}

// Settle sets paid and outstanding amounts and derives the payment status.
// Draft and cancelled invoices keep their status while nothing is paid; an overdue
// invoice stays overdue until fully paid.
func (i *Invoice) Settle(paid decimal.Decimal, at time.Time) {
	i.PaidAmount = paid
	i.OutstandingAmount = i.Outstanding()
	switch {
	case paid.IsPositive() && i.OutstandingAmount.IsZero():
		i.Status = InvoiceStatusPaid
		if i.PaidDate == nil {
			i.PaidDate = &at
		}
	case paid.IsPositive():
		if i.Status != InvoiceStatusOverdue {
			i.Status = InvoiceStatusPartial
		}
		i.PaidDate = nil
	case i.Status == InvoiceStatusPartial || i.Status == InvoiceStatusPaid:
		i.Status = InvoiceStatusSent
		i.PaidDate = nil
	}
}

func (i *Invoice) LineItems() []billing.LineItem {
	out := make([]billing.LineItem, len(i.Items))
	for n, it := range i.Items {
		out[n] = it.LineItem
	}
	return out
}

// InvoiceItemsFrom numbers items by their position in the slice.
func InvoiceItemsFrom(items []billing.LineItem) []InvoiceItem {
	out := make([]InvoiceItem, len(items))
	for n, it := range items {
		out[n] = InvoiceItem{Position: n, LineItem: it}
	}
	return out
}
