package itinerary

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Resolver decides which record describes a lead's trip and maps its days to NormalizedDay.
// Priority is customized package, then catalog package, then manual itinerary.
type Resolver struct {
	source Source
	log    logrus.FieldLogger
}

func NewResolver(source Source, log logrus.FieldLogger) *Resolver {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Resolver{source: source, log: log}
}

// Resolve never fails. A lookup error keeps the detected source type with no days
// and is logged instead.
func (r *Resolver) Resolve(ctx context.Context, lead LeadRef) Resolution {
	log := r.log.WithField("lead_id", lead.ID)

	if lead.CustomizedPackageID != nil {
		res := Resolution{SourceType: SourceCustomized, Days: []NormalizedDay{}, PackageID: lead.PackageID}
		pkg, err := r.source.CustomizedPackage(ctx, *lead.CustomizedPackageID)
		if err != nil {
			log.WithError(err).WithField("customized_package_id", *lead.CustomizedPackageID).Warn("customized package lookup failed")
			return res
		}
		res.Title = pkg.Name
		res.Days = normalizePackageDays(pkg.Days)
		return res
	}

	if lead.PackageID != nil {
		res := Resolution{SourceType: SourcePackage, Days: []NormalizedDay{}, PackageID: lead.PackageID}
		pkg, err := r.source.Package(ctx, *lead.PackageID)
		if err != nil {
			log.WithError(err).WithField("package_id", *lead.PackageID).Warn("package lookup failed")
			return res
		}
		res.Title = pkg.Name
		res.Days = normalizePackageDays(pkg.Days)
		return res
	}

	manual, err := r.source.ManualItinerary(ctx, lead.ID)
	if errors.Is(err, ErrNotFound) {
		return Resolution{SourceType: SourceNone, Days: []NormalizedDay{}}
	}
	if err != nil {
		log.WithError(err).Warn("manual itinerary lookup failed")
		return Resolution{SourceType: SourceManual, Days: []NormalizedDay{}}
	}
	return Resolution{SourceType: SourceManual, Days: normalizeDayPlans(manual.Days), Title: manual.Title}
}

// PackagePrice returns the price of the lead's package, or nil when the lead has none.
// A customized package carries its own price.
func (r *Resolver) PackagePrice(ctx context.Context, lead LeadRef) (*decimal.Decimal, error) {
	switch {
	case lead.CustomizedPackageID != nil:
		pkg, err := r.source.CustomizedPackage(ctx, *lead.CustomizedPackageID)
		if err != nil {
			return nil, err
		}
		price := pkg.Price
		return &price, nil
	case lead.PackageID != nil:
		return r.source.PackagePrice(ctx, *lead.PackageID)
	}
	return nil, nil
}

// ForLead binds the resolver to one lead.
func (r *Resolver) ForLead(lead LeadRef) *LeadItinerary {
	return &LeadItinerary{resolver: r, lead: lead}
}

// LeadItinerary is a Resolver bound to a single lead.
type LeadItinerary struct {
	resolver *Resolver
	lead     LeadRef
}

func (l *LeadItinerary) Resolve(ctx context.Context) Resolution {
	return l.resolver.Resolve(ctx, l.lead)
}

func (l *LeadItinerary) PackagePrice(ctx context.Context) (*decimal.Decimal, error) {
	return l.resolver.PackagePrice(ctx, l.lead)
}

func normalizePackageDays(days []PackageDay) []NormalizedDay {
	out := make([]NormalizedDay, 0, len(days))
	for i, d := range days {
		n := d.Day
		if n <= 0 {
			n = i + 1
		}
		out = append(out, NormalizedDay{
			Number:        n,
			Accommodation: d.Accommodation,
			Transport:     strings.TrimSpace(d.Transport),
			Meals:         d.Meals,
			Activities:    d.Activities,
			Places:        d.Places,
		})
	}
	sortDays(out)
	return out
}

func normalizeDayPlans(days []DayPlan) []NormalizedDay {
	out := make([]NormalizedDay, 0, len(days))
	for i, d := range days {
		n := d.DayNumber
		if n <= 0 {
			n = i + 1
		}
		day := NormalizedDay{
			Number:     n,
			Transport:  strings.TrimSpace(d.TransportMode),
			Meals:      parseMeals(d.Meals),
			Activities: d.Activities,
			Places:     d.Sightseeing,
		}
		if d.Hotel != nil && strings.TrimSpace(d.Hotel.Name) != "" {
			day.Accommodation = &Accommodation{Name: d.Hotel.Name, Type: d.Hotel.Category, Address: d.Hotel.Address}
		}
		out = append(out, day)
	}
	sortDays(out)
	return out
}

func parseMeals(labels []string) Meals {
	var m Meals
	for _, l := range labels {
		switch strings.ToLower(strings.TrimSpace(l)) {
		case "breakfast":
			m.Breakfast = true
		case "lunch":
			m.Lunch = true
		case "dinner":
			m.Dinner = true
		}
	}
	return m
}

func sortDays(days []NormalizedDay) {
	slices.SortStableFunc(days, func(a, b NormalizedDay) int { return a.Number - b.Number })
}
