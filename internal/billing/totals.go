package billing

import "github.com/shopspring/decimal"

// DiscountType selects how a discount value is applied.
type DiscountType string

const (
	DiscountNone       DiscountType = "none"
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

func (t DiscountType) Valid() bool {
	return t == "" || t == DiscountNone || t == DiscountPercentage || t == DiscountFixed
}

// DiscountPolicy is the discount applied to a document's subtotal.
type DiscountPolicy struct {
	Type  DiscountType    `gorm:"size:20;not null;default:'none'" json:"type"`
	Value decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"value"`
}

var hundred = decimal.NewFromInt(100)

// Amount is the discount taken off subtotal.
func (d DiscountPolicy) Amount(subtotal decimal.Decimal) decimal.Decimal {
	switch d.Type {
	case DiscountPercentage:
		return subtotal.Mul(d.Value).Div(hundred)
	case DiscountFixed:
		return d.Value
	}
	return decimal.Zero
}

// Totals are the computed money fields persisted on a document.
type Totals struct {
	Subtotal            decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"subtotal"`
	DiscountAmount      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"discount_amount"`
	ServiceChargeAmount decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"service_charge_amount"`
	TaxableAmount       decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"taxable_amount"`
	TaxAmount           decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"tax_amount"`
	TotalAmount         decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total_amount"`
}

// SelectItems returns the items that count for mode: the package item alone in
// summary mode, everything else in detailed mode.
func SelectItems(items []LineItem, mode Mode) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, it := range items {
		if it.IsPackage() == (mode != ModeDetailed) {
			out = append(out, it)
		}
	}
	return out
}

// ComputeTotals derives a document's totals. Service charge is levied on the subtotal
// before discount and tax on the taxable amount. Each component is rounded to cents.
// A discount larger than the subtotal is not clamped.
func ComputeTotals(items []LineItem, discount DiscountPolicy, serviceChargeRate, taxRate decimal.Decimal, mode Mode) Totals {
	subtotal := decimal.Zero
	for _, it := range SelectItems(items, mode) {
		subtotal = subtotal.Add(it.Amount())
	}
	subtotal = subtotal.Round(2)

	discountAmount := discount.Amount(subtotal).Round(2)
	serviceCharge := subtotal.Mul(serviceChargeRate).Div(hundred).Round(2)
	taxable := subtotal.Sub(discountAmount).Add(serviceCharge)
	tax := taxable.Mul(taxRate).Div(hundred).Round(2)

	return Totals{
		Subtotal:            subtotal,
		DiscountAmount:      discountAmount,
		ServiceChargeAmount: serviceCharge,
		TaxableAmount:       taxable,
		TaxAmount:           tax,
		TotalAmount:         taxable.Add(tax),
	}
}

const (
	WarnDiscountOverHundred = "discount_percentage_over_100"
	WarnNegativeTaxable     = "negative_taxable_amount"
)

// Warnings lists conditions that are accepted but worth showing to the agent.
func Warnings(t Totals, discount DiscountPolicy) []string {
	var out []string
	if discount.Type == DiscountPercentage && discount.Value.GreaterThan(hundred) {
		out = append(out, WarnDiscountOverHundred)
	}
	if t.TaxableAmount.IsNegative() {
		out = append(out, WarnNegativeTaxable)
	}
	return out
}
