package services

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/voyage-billing/internal/itinerary"
	"github.com/diewo77/voyage-billing/internal/models"
	"github.com/diewo77/voyage-billing/internal/repository"
)

func newLeadService(f *fixture) *LeadService {
	log, _ := test.NewNullLogger()
	resolver := itinerary.NewResolver(repository.NewItineraryStore(f.db), log)
	return NewLeadService(f.db, resolver, f.opts...)
}

func TestLeadItinerary(t *testing.T) {
	f := newFixture(t)
	leads := newLeadService(f)

	res, err := leads.Itinerary(t.Context(), f.lead.ID)
	require.NoError(t, err)
	assert.Equal(t, itinerary.SourcePackage, res.SourceType)
	assert.Equal(t, f.pkg.ID, *res.PackageID)
	assert.Len(t, res.Days, 2)

	walkIn := models.Lead{Name: "Walk-in"}
	require.NoError(t, f.db.Create(&walkIn).Error)
	res, err = leads.Itinerary(t.Context(), walkIn.ID)
	require.NoError(t, err)
	assert.Equal(t, itinerary.SourceNone, res.SourceType)
	assert.Empty(t, res.Days)
}

func TestLeadDocuments(t *testing.T) {
	f := newFixture(t)
	leads := newLeadService(f)

	docs, err := leads.Documents(t.Context(), f.lead.ID)
	require.NoError(t, err)
	assert.Empty(t, docs.Quotations)

	inv := f.invoice1100(t)
	_, err = f.receipts.Save(t.Context(), inv.ID, ReceiptInput{Amount: dec("500"), PaymentMethod: models.PaymentCash})
	require.NoError(t, err)
	f.packageQuotation(t)

	docs, err = leads.Documents(t.Context(), f.lead.ID)
	require.NoError(t, err)
	assert.Len(t, docs.Quotations, 2)
	assert.Len(t, docs.Invoices, 1)
	assert.Len(t, docs.Receipts, 1)
	assert.Equal(t, models.InvoiceStatusPartial, docs.Invoices[0].Status)
}

func TestLeadNotFound(t *testing.T) {
	f := newFixture(t)
	leads := newLeadService(f)

	_, err := leads.Itinerary(t.Context(), 999)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf), "got %v", err)
	assert.Equal(t, "lead", nf.Entity)

	_, err = leads.Documents(t.Context(), 999)
	assert.True(t, errors.As(err, &nf))
}
