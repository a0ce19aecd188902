package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/diewo77/voyage-billing/internal/billing"
	"github.com/diewo77/voyage-billing/internal/models"
	"github.com/diewo77/voyage-billing/internal/validation"
)

var (
	maxRate  = decimal.NewFromInt(100)
	modes    = []billing.Mode{billing.ModeSummary, billing.ModeDetailed}
	discount = []billing.DiscountType{billing.DiscountNone, billing.DiscountPercentage, billing.DiscountFixed}
)

// DocumentInput is the editable content shared by quotations and invoices.
type DocumentInput struct {
	Mode              billing.Mode           `json:"mode"`
	Items             []billing.LineItem     `json:"items"`
	TaxRate           decimal.Decimal        `json:"tax_rate"`
	ServiceChargeRate decimal.Decimal        `json:"service_charge_rate"`
	Discount          billing.DiscountPolicy `json:"discount"`
	Notes             string                 `json:"notes,omitempty"`
}

// prepare validates the input and returns the pricing with computed totals and the
// items in storage order, package item first.
func (in DocumentInput) prepare() (models.Pricing, []billing.LineItem, error) {
	if len(in.Items) == 0 {
		return models.Pricing{}, nil, invalid(ErrEmptyItems, "at least one line item is required")
	}

	mode := in.Mode
	if mode == "" {
		mode = billing.ModeSummary
	}
	policy := in.Discount
	if policy.Type == "" {
		policy.Type = billing.DiscountNone
	}

	v := validation.Violations{}
	validation.OneOf("mode", mode, modes, v)
	validation.RangeDecimal("tax_rate", in.TaxRate, decimal.Zero, maxRate, v)
	validation.RangeDecimal("service_charge_rate", in.ServiceChargeRate, decimal.Zero, maxRate, v)
	validation.OneOf("discount.type", policy.Type, discount, v)
	validation.NonNegativeDecimal("discount.value", policy.Value, v)

	items := make([]billing.LineItem, 0, len(in.Items))
	var pkg *billing.LineItem
	for i, it := range in.Items {
		field := fmt.Sprintf("items[%d]", i)
		if it.Category == "" {
			it.Category = billing.CategoryOther
		}
		it.Normalize()
		validation.Required(field+".description", it.Description, v)
		if !it.Category.Valid() {
			v[field+".category"] = "invalid_value"
		}
		validation.PositiveDecimal(field+".quantity", it.Quantity, v)
		validation.NonNegativeDecimal(field+".unit_price", it.UnitPrice, v)
		validation.NonNegativeDecimal(field+".total_price", it.TotalPrice.Decimal, v)

		if it.IsPackage() {
			if pkg != nil {
				return models.Pricing{}, nil, invalid(ErrMultiplePackages, "only one package item is allowed")
			}
			pkg = &it
			continue
		}
		items = append(items, it)
	}
	if err := violations(v); err != nil {
		return models.Pricing{}, nil, err
	}
	if pkg != nil {
		items = append([]billing.LineItem{*pkg}, items...)
	}

	p := models.Pricing{
		Mode:              mode,
		TaxRate:           in.TaxRate,
		ServiceChargeRate: in.ServiceChargeRate,
		Discount:          policy,
	}
	p.Recompute(items)
	return p, items, nil
}
