package services

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/voyage-billing/internal/billing"
	"github.com/diewo77/voyage-billing/internal/itinerary"
	"github.com/diewo77/voyage-billing/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

type fixture struct {
	db         *gorm.DB
	now        time.Time
	opts       []Option
	quotations *QuotationService
	invoices   *InvoiceService
	receipts   *ReceiptService
	pkg        models.Package
	lead       models.Lead
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	log, _ := test.NewNullLogger()
	f := &fixture{db: db, now: time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)}
	f.opts = []Option{WithLogger(log), WithClock(func() time.Time { return f.now })}
	f.quotations = NewQuotationService(db, f.opts...)
	f.invoices = NewInvoiceService(db, f.opts...)
	f.receipts = NewReceiptService(db, f.opts...)

	f.pkg = models.Package{Name: "Goa Beach Escape", Price: dec("1000"), Days: []itinerary.PackageDay{
		{Day: 1, Accommodation: &itinerary.Accommodation{Name: "Hotel A"}, Activities: []string{"City tour", "Museum"}},
		{Day: 2, Transport: "Cab", Meals: itinerary.Meals{Breakfast: true}},
	}}
	if err := db.Create(&f.pkg).Error; err != nil {
		t.Fatalf("create package: %v", err)
	}
	f.lead = models.Lead{Name: "Asha Menon", PackageID: &f.pkg.ID}
	if err := db.Create(&f.lead).Error; err != nil {
		t.Fatalf("create lead: %v", err)
	}
	return f
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func item(cat billing.Category, desc, total string) billing.LineItem {
	it := billing.LineItem{Description: desc, Category: cat}
	it.SetTotalPrice(dec(total))
	return it
}

// packageQuotation is a summary quotation worth 1100: a 1000 package plus 10% tax.
func (f *fixture) packageQuotation(t *testing.T) *models.Quotation {
	t.Helper()
	q, err := f.quotations.Create(t.Context(), QuotationInput{
		LeadID: f.lead.ID,
		DocumentInput: DocumentInput{
			Mode:    billing.ModeSummary,
			Items:   []billing.LineItem{item(billing.CategoryPackage, "Goa Beach Escape", "1000")},
			TaxRate: dec("10"),
		},
	})
	if err != nil {
		t.Fatalf("create quotation: %v", err)
	}
	return q
}

// draftInvoice converts a fresh package quotation into a draft invoice of 1100.
func (f *fixture) draftInvoice(t *testing.T) *models.Invoice {
	t.Helper()
	inv, err := f.invoices.ConvertQuotation(t.Context(), f.packageQuotation(t).ID)
	if err != nil {
		t.Fatalf("convert quotation: %v", err)
	}
	return inv
}

// invoice1100 is a sent invoice of 1100, ready to take receipts.
func (f *fixture) invoice1100(t *testing.T) *models.Invoice {
	t.Helper()
	inv, err := f.invoices.Transition(t.Context(), f.draftInvoice(t).ID, models.InvoiceStatusSent)
	if err != nil {
		t.Fatalf("send invoice: %v", err)
	}
	return inv
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Errorf("%s = %s, want %s", field, got, want)
	}
}

func ptr[T any](v T) *T { return &v }
