package billing

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/diewo77/voyage-billing/internal/itinerary"
)

// ExtractItems derives unpriced line items from itinerary days. The output depends only
// on the input: days are walked in ascending order and, within a day, items come out as
// accommodation, transport, meals, activities, then places.
func ExtractItems(days []itinerary.NormalizedDay) []LineItem {
	ordered := slices.Clone(days)
	slices.SortStableFunc(ordered, func(a, b itinerary.NormalizedDay) int { return a.Number - b.Number })

	items := make([]LineItem, 0, len(ordered)*3)
	for _, d := range ordered {
		if acc := d.Accommodation; acc != nil && strings.TrimSpace(acc.Name) != "" {
			kind := acc.Type
			if strings.TrimSpace(kind) == "" {
				kind = "Accommodation"
			}
			items = append(items, extracted(CategoryAccommodation,
				fmt.Sprintf("Day %d: %s - %s", d.Number, acc.Name, kind), acc.Address))
		}
		if strings.TrimSpace(d.Transport) != "" {
			items = append(items, extracted(CategoryTransportation,
				fmt.Sprintf("Day %d: %s Transportation", d.Number, d.Transport), ""))
		}
		if d.Meals.Any() {
			items = append(items, extracted(CategoryFood,
				fmt.Sprintf("Day %d: Meals (%s)", d.Number, mealLabel(d.Meals)), ""))
		}
		for _, a := range d.Activities {
			if strings.TrimSpace(a) == "" {
				continue
			}
			items = append(items, extracted(CategoryActivity, fmt.Sprintf("Day %d: %s", d.Number, a), ""))
		}
		for _, p := range d.Places {
			name := p.Name
			if strings.TrimSpace(name) == "" {
				name = "Place visit"
			}
			items = append(items, extracted(CategoryActivity, fmt.Sprintf("Day %d: %s", d.Number, name), p.Description))
		}
	}
	return items
}

func extracted(cat Category, desc, notes string) LineItem {
	return LineItem{
		Description: desc,
		Category:    cat,
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   decimal.Zero,
		TotalPrice:  decimal.NewNullDecimal(decimal.Zero),
		Notes:       notes,
		Origin:      OriginExtracted,
	}
}

func mealLabel(m itinerary.Meals) string {
	parts := make([]string, 0, 3)
	if m.Breakfast {
		parts = append(parts, "Breakfast")
	}
	if m.Lunch {
		parts = append(parts, "Lunch")
	}
	if m.Dinner {
		parts = append(parts, "Dinner")
	}
	return strings.Join(parts, ", ")
}
