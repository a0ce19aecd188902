package db

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/voyage-billing/internal/itinerary"
	"github.com/diewo77/voyage-billing/internal/models"
)

// Seed inserts a small catalog and a few leads for local development. Running it twice
// does not duplicate rows.
func Seed(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		pkg := models.Package{
			Name:        "Goa Beach Escape",
			Destination: "Goa",
			Price:       decimal.NewFromInt(24999),
			Active:      true,
			Days: []itinerary.PackageDay{
				{
					Day:           1,
					Title:         "Arrival",
					Accommodation: &itinerary.Accommodation{Name: "Sea Breeze Resort", Type: "Resort", Address: "Calangute, North Goa"},
					Transport:     "Airport transfer",
					Meals:         itinerary.Meals{Dinner: true},
				},
				{
					Day:        2,
					Title:      "North Goa",
					Transport:  "Private cab",
					Meals:      itinerary.Meals{Breakfast: true, Lunch: true},
					Activities: []string{"Parasailing"},
					Places:     []itinerary.Place{{Name: "Fort Aguada", Description: "17th century Portuguese fort"}, {Name: "Baga Beach"}},
				},
				{Day: 3, Title: "Departure", Transport: "Airport transfer", Meals: itinerary.Meals{Breakfast: true}},
			},
		}
		if err := firstOrCreate(tx, &pkg, "name = ?", pkg.Name); err != nil {
			return err
		}

		packaged := models.Lead{Name: "Asha Menon", Email: "asha@example.com", Destination: "Goa", PackageID: &pkg.ID}
		if err := firstOrCreate(tx, &packaged, "email = ?", packaged.Email); err != nil {
			return err
		}

		manual := models.Lead{Name: "Rahul Verma", Email: "rahul@example.com", Destination: "Manali"}
		if err := firstOrCreate(tx, &manual, "email = ?", manual.Email); err != nil {
			return err
		}
		plan := models.ManualItinerary{
			LeadID: manual.ID,
			Title:  "Manali road trip",
			Days: []itinerary.DayPlan{
				{DayNumber: 1, Hotel: &itinerary.Hotel{Name: "Snow Valley Inn", Category: "3 Star"}, TransportMode: "Volvo bus", Meals: []string{"dinner"}},
				{DayNumber: 2, TransportMode: "SUV", Meals: []string{"breakfast", "lunch"}, Activities: []string{"Paragliding"}, Sightseeing: []itinerary.Place{{Name: "Solang Valley"}}},
			},
		}
		if err := firstOrCreate(tx, &plan, "lead_id = ?", manual.ID); err != nil {
			return err
		}

		walkIn := models.Lead{Name: "Walk-in enquiry", Email: "walkin@example.com"}
		return firstOrCreate(tx, &walkIn, "email = ?", walkIn.Email)
	})
}

func firstOrCreate(tx *gorm.DB, dst any, query string, args ...any) error {
	err := tx.Where(query, args...).First(dst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(dst).Error
	}
	return err
}
