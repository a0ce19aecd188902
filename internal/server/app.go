package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/diewo77/voyage-billing/internal/config"
	"github.com/diewo77/voyage-billing/internal/handlers"
	"github.com/diewo77/voyage-billing/internal/itinerary"
	"github.com/diewo77/voyage-billing/internal/metrics"
	"github.com/diewo77/voyage-billing/internal/repository"
	"github.com/diewo77/voyage-billing/internal/services"
)

// App holds the wired services and the HTTP handler serving them.
type App struct {
	Handler    http.Handler
	Metrics    *metrics.Metrics
	Leads      *services.LeadService
	Drafts     *services.DraftService
	Quotations *services.QuotationService
	Invoices   *services.InvoiceService
	Receipts   *services.ReceiptService

	catalog *repository.CachedCatalog
	log     logrus.FieldLogger
}

// NewApp wires the itinerary resolver, the services and the handlers over db.
// Metrics are registered on registry; opts are appended to the service options.
func NewApp(db *gorm.DB, cfg config.BillingConfig, log logrus.FieldLogger, registry *prometheus.Registry, opts ...services.Option) *App {
	m := metrics.New(registry)
	opts = append([]services.Option{
		services.WithLogger(log),
		services.WithMetrics(m),
		services.WithPolicy(services.PolicyFromConfig(cfg)),
	}, opts...)

	var (
		source  itinerary.Source = repository.NewItineraryStore(db)
		catalog *repository.CachedCatalog
	)
	if cfg.CatalogCacheTTL > 0 {
		catalog = repository.NewCachedCatalog(source, time.Duration(cfg.CatalogCacheTTL)*time.Second)
		source = catalog
	}
	resolver := itinerary.NewResolver(source, log)
	a := &App{
		catalog:    catalog,
		log:        log,
		Metrics:    m,
		Leads:      services.NewLeadService(db, resolver, opts...),
		Quotations: services.NewQuotationService(db, opts...),
		Invoices:   services.NewInvoiceService(db, opts...),
		Receipts:   services.NewReceiptService(db, opts...),
	}
	a.Drafts = services.NewDraftService(db, resolver, a.Quotations, opts...)

	rates := handlers.Rates{TaxRate: cfg.DefaultTaxRate, ServiceChargeRate: cfg.DefaultServiceChargeRate}
	var catalogHandler *handlers.CatalogHandler
	if catalog != nil {
		catalogHandler = handlers.NewCatalogHandler(catalog, log)
	}
	a.Handler = New(Deps{
		DB:        db,
		Log:       log,
		Metrics:   m,
		Gatherer:  registry,
		Billing:   handlers.NewBillingHandler(a.Leads, log),
		Drafts:    handlers.NewDraftHandler(a.Drafts, rates, log),
		Documents: handlers.NewDocumentHandler(a.Quotations, a.Invoices, a.Receipts, log),
		Catalog:   catalogHandler,
	})
	return a
}

// RefreshCatalog drops every cached catalog package. It is a no-op when caching is off.
func (a *App) RefreshCatalog() {
	if a.catalog == nil {
		return
	}
	a.catalog.InvalidateAll()
	a.log.Info("catalog cache purged")
}
