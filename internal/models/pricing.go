package models

import (
	"github.com/shopspring/decimal"

	"github.com/diewo77/voyage-billing/internal/billing"
)

// Pricing is the billing configuration and computed totals shared by quotations and invoices.
type Pricing struct {
	Mode              billing.Mode           `gorm:"size:20;not null;default:'summary'" json:"mode"`
	TaxRate           decimal.Decimal        `gorm:"type:decimal(7,4);not null" json:"tax_rate"`
	ServiceChargeRate decimal.Decimal        `gorm:"type:decimal(7,4);not null" json:"service_charge_rate"`
	Discount          billing.DiscountPolicy `gorm:"embedded;embeddedPrefix:discount_" json:"discount"`
	billing.Totals    `gorm:"embedded"`
}

// Recompute refreshes the totals from items.
func (p *Pricing) Recompute(items []billing.LineItem) {
	p.Totals = billing.ComputeTotals(items, p.Discount, p.ServiceChargeRate, p.TaxRate, p.Mode)
}
