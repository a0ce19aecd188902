package billing

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/voyage-billing/internal/itinerary"
)

type stubItinerary struct {
	res     itinerary.Resolution
	price   *decimal.Decimal
	block   chan struct{}
	started chan struct{}
}

func (s *stubItinerary) Resolve(ctx context.Context) itinerary.Resolution {
	if s.block != nil {
		close(s.started)
		<-s.block
	}
	return s.res
}

func (s *stubItinerary) PackagePrice(context.Context) (*decimal.Decimal, error) {
	return s.price, nil
}

func goaItinerary() *stubItinerary {
	price := d("1000")
	pkgID := uint(3)
	return &stubItinerary{
		price: &price,
		res: itinerary.Resolution{
			SourceType: itinerary.SourcePackage,
			PackageID:  &pkgID,
			Title:      "Goa Escape",
			Days: []itinerary.NormalizedDay{
				{Number: 1, Accommodation: &itinerary.Accommodation{Name: "Hotel A"}, Activities: []string{"City tour"}},
				{Number: 2, Transport: "Cab"},
			},
		},
	}
}

func TestEditorLoadSeedsPackageItem(t *testing.T) {
	e := NewEditor(goaItinerary())
	require.NoError(t, e.Load(context.Background()))

	items := e.Items()
	require.Len(t, items, 4)
	assert.Equal(t, ModeSummary, e.Mode())
	assert.True(t, items[0].IsPackage())
	assert.Equal(t, "Goa Escape", items[0].Description)
	assert.True(t, e.Editable(0))
	for i := 1; i < len(items); i++ {
		assert.False(t, e.Editable(i), "item %d", i)
	}

	totals := e.Totals(DiscountPolicy{}, decimal.Zero, d("10"))
	assertMoney(t, "1100", totals.TotalAmount, "total")
}

func TestEditorModeToggle(t *testing.T) {
	ctx := context.Background()
	e := NewEditor(goaItinerary())
	require.NoError(t, e.Load(ctx))
	require.NoError(t, e.SetPackagePrice(d("1500")))

	require.ErrorIs(t, e.AddItem(LineItem{Description: "Visa fee", UnitPrice: d("50")}), ErrNotDetailedMode)
	require.ErrorIs(t, e.EditItem(1, ItemEdit{TotalPrice: ptr(d("10"))}), ErrReadOnlyItem)

	require.NoError(t, e.SetMode(ctx, ModeDetailed))
	assert.Equal(t, ModeDetailed, e.Mode())
	require.NoError(t, e.EditItem(1, ItemEdit{TotalPrice: ptr(d("600"))}))
	require.NoError(t, e.EditItem(2, ItemEdit{Quantity: ptr(d("2")), UnitPrice: ptr(d("50"))}))
	require.NoError(t, e.AddItem(LineItem{Description: "Visa fee", UnitPrice: d("50")}))

	items := e.Items()
	require.Len(t, items, 5)
	assert.Equal(t, OriginManual, items[4].Origin)
	assert.Equal(t, CategoryOther, items[4].Category)

	totals := e.Totals(DiscountPolicy{}, decimal.Zero, decimal.Zero)
	assertMoney(t, "750", totals.Subtotal, "detailed subtotal")

	// summary drops manual items and resets extracted prices, the package price survives
	require.NoError(t, e.SetMode(ctx, ModeSummary))
	items = e.Items()
	require.Len(t, items, 4)
	assertMoney(t, "1500", items[0].Amount(), "package price")
	for _, it := range items[1:] {
		assert.True(t, it.Amount().IsZero())
		assert.Equal(t, OriginExtracted, it.Origin)
	}

	require.NoError(t, e.SetMode(ctx, ModeDetailed))
	assertMoney(t, "0", e.Totals(DiscountPolicy{}, decimal.Zero, decimal.Zero).Subtotal, "detailed subtotal after round trip")
}

func TestEditorDetailedUnavailableWithoutItinerary(t *testing.T) {
	e := NewEditor(&stubItinerary{res: itinerary.Resolution{SourceType: itinerary.SourceNone}})
	ctx := context.Background()
	require.NoError(t, e.Load(ctx))
	require.NoError(t, e.SetMode(ctx, ModeDetailed))
	assert.Equal(t, ModeSummary, e.Mode())
	assert.False(t, e.Snapshot().DetailedAvailable)

	require.NoError(t, e.SetPackagePrice(d("800")))
	items := e.Items()
	require.Len(t, items, 1)
	assert.Equal(t, PackageItemDescription, items[0].Description)
	assert.Equal(t, CategoryPackage, items[0].Category)
}

func TestEditorRemoveItem(t *testing.T) {
	ctx := context.Background()
	e := NewEditor(goaItinerary())
	require.NoError(t, e.Load(ctx))
	require.NoError(t, e.SetMode(ctx, ModeDetailed))
	require.NoError(t, e.AddItem(LineItem{Description: "Travel insurance", Category: CategoryOther, UnitPrice: d("20")}))

	assert.ErrorIs(t, e.RemoveItem(0), ErrReadOnlyItem)
	assert.ErrorIs(t, e.RemoveItem(1), ErrReadOnlyItem)
	assert.ErrorIs(t, e.RemoveItem(99), ErrItemIndex)
	require.NoError(t, e.RemoveItem(4))
	assert.Len(t, e.Items(), 4)
}

func TestEditorRejectsInvalidEdits(t *testing.T) {
	e := NewEditor(goaItinerary())
	require.NoError(t, e.Load(context.Background()))

	assert.ErrorIs(t, e.SetPackagePrice(d("-1")), ErrNegativePrice)
	assert.ErrorIs(t, e.EditItem(0, ItemEdit{Quantity: ptr(d("0"))}), ErrInvalidQuantity)
	assert.ErrorIs(t, e.EditItem(0, ItemEdit{UnitPrice: ptr(d("-5"))}), ErrNegativePrice)
	assert.ErrorIs(t, e.SetMode(context.Background(), Mode("compact")), ErrInvalidMode)
}

func TestEditorRejectsConcurrentRefresh(t *testing.T) {
	src := goaItinerary()
	src.block = make(chan struct{})
	src.started = make(chan struct{})
	e := NewEditor(src)

	done := make(chan error, 1)
	go func() { done <- e.Load(context.Background()) }()
	<-src.started

	assert.True(t, e.Loading())
	assert.ErrorIs(t, e.SetMode(context.Background(), ModeDetailed), ErrBusy)
	assert.ErrorIs(t, e.SetPackagePrice(d("10")), ErrBusy)

	close(src.block)
	require.NoError(t, <-done)
	assert.False(t, e.Loading())
	assert.Len(t, e.Items(), 4)
}

func ptr[T any](v T) *T { return &v }
