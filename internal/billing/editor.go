package billing

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/diewo77/voyage-billing/internal/itinerary"
)

var (
	ErrBusy            = errors.New("editor_busy")
	ErrNotDetailedMode = errors.New("not_detailed_mode")
	ErrReadOnlyItem    = errors.New("item_read_only")
	ErrItemIndex       = errors.New("item_index_out_of_range")
	ErrInvalidItem     = errors.New("invalid_item")
	ErrNegativePrice   = errors.New("negative_price")
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrInvalidMode     = errors.New("invalid_mode")
)

// Itinerary is the lead-bound view of the trip an Editor prices.
type Itinerary interface {
	Resolve(ctx context.Context) itinerary.Resolution
	PackagePrice(ctx context.Context) (*decimal.Decimal, error)
}

// ItemEdit carries the fields an agent changed on one item. A total price, when present,
// overrides quantity and unit price.
type ItemEdit struct {
	Description *string          `json:"description,omitempty"`
	Notes       *string          `json:"notes,omitempty"`
	Quantity    *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	TotalPrice  *decimal.Decimal `json:"total_price,omitempty"`
}

// Snapshot is a copy of an Editor's state.
type Snapshot struct {
	Mode              Mode                 `json:"mode"`
	SourceType        itinerary.SourceType `json:"source_type"`
	DetailedAvailable bool                 `json:"detailed_available"`
	Loading           bool                 `json:"loading"`
	Items             []LineItem           `json:"items"`
	Editable          []bool               `json:"editable"`
}

// Editor holds a quotation being edited and switches it between summary and detailed
// mode. Only one refresh runs at a time; a refresh requested while another is in flight
// fails with ErrBusy.
type Editor struct {
	src Itinerary

	refresh sync.Mutex
	loading atomic.Bool

	mu    sync.RWMutex
	mode  Mode
	items []LineItem
	res   itinerary.Resolution
}

func NewEditor(src Itinerary) *Editor {
	return &Editor{
		src:  src,
		mode: ModeSummary,
		res:  itinerary.Resolution{SourceType: itinerary.SourceNone, Days: []itinerary.NormalizedDay{}},
	}
}

// Load resolves the itinerary, seeds the package item from the package price when the
// lead has a package, then rebuilds the items for the current mode.
func (e *Editor) Load(ctx context.Context) error {
	return e.withRefresh(ctx, func(res itinerary.Resolution, price *decimal.Decimal) {
		if e.packageIndex() < 0 && price != nil {
			e.items = append([]LineItem{NewPackageItem(res.Title, *price)}, e.items...)
		}
		e.rebuild(res)
	})
}

// SetMode switches the editor to target and rebuilds its items from a fresh itinerary.
// Switching to detailed mode does nothing when the lead has no itinerary.
func (e *Editor) SetMode(ctx context.Context, target Mode) error {
	if !target.Valid() {
		return ErrInvalidMode
	}
	return e.withRefresh(ctx, func(res itinerary.Resolution, _ *decimal.Decimal) {
		if target == ModeDetailed && res.SourceType == itinerary.SourceNone {
			e.res = res
			return
		}
		e.mode = target
		e.rebuild(res)
	})
}

func (e *Editor) withRefresh(ctx context.Context, apply func(itinerary.Resolution, *decimal.Decimal)) error {
	if !e.refresh.TryLock() {
		return ErrBusy
	}
	defer e.refresh.Unlock()
	e.loading.Store(true)
	defer e.loading.Store(false)

	var (
		res   itinerary.Resolution
		price *decimal.Decimal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res = e.src.Resolve(gctx)
		return nil
	})
	g.Go(func() error {
		// a missing price only means no package item is seeded
		p, err := e.src.PackagePrice(gctx)
		if err == nil {
			price = p
		}
		return nil
	})
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	apply(res, price)
	return nil
}

// rebuild keeps the package item and replaces everything else with freshly extracted items.
func (e *Editor) rebuild(res itinerary.Resolution) {
	e.res = res
	next := make([]LineItem, 0, len(e.items)+len(res.Days)*3)
	if i := e.packageIndex(); i >= 0 {
		next = append(next, e.items[i])
	}
	e.items = append(next, ExtractItems(res.Days)...)
}

func (e *Editor) packageIndex() int {
	return slices.IndexFunc(e.items, LineItem.IsPackage)
}

func (e *Editor) Mode() Mode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mode
}

// Loading reports whether a refresh is in flight.
func (e *Editor) Loading() bool { return e.loading.Load() }

// Items returns a copy of the current items, package item first.
func (e *Editor) Items() []LineItem {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.items)
}

func (e *Editor) Resolution() itinerary.Resolution {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.res
}

// Editable reports whether the item at index accepts price edits in the current mode.
func (e *Editor) Editable(index int) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.editable(index)
}

func (e *Editor) editable(index int) bool {
	if index < 0 || index >= len(e.items) {
		return false
	}
	return e.items[index].IsPackage() || e.mode == ModeDetailed
}

func (e *Editor) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := Snapshot{
		Mode:              e.mode,
		SourceType:        e.res.SourceType,
		DetailedAvailable: e.res.SourceType != itinerary.SourceNone,
		Loading:           e.loading.Load(),
		Items:             slices.Clone(e.items),
		Editable:          make([]bool, len(e.items)),
	}
	for i := range e.items {
		s.Editable[i] = e.editable(i)
	}
	return s
}

// Totals computes the totals of the current items for the current mode.
func (e *Editor) Totals(discount DiscountPolicy, serviceChargeRate, taxRate decimal.Decimal) Totals {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return ComputeTotals(e.items, discount, serviceChargeRate, taxRate, e.mode)
}

// SetPackagePrice prices the package item, creating it at the top of the list if needed.
func (e *Editor) SetPackagePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return ErrNegativePrice
	}
	return e.mutate(func() error {
		if i := e.packageIndex(); i >= 0 {
			e.items[i].SetTotalPrice(price)
			return nil
		}
		e.items = append([]LineItem{NewPackageItem(PackageItemDescription, price)}, e.items...)
		return nil
	})
}

// AddItem appends a manual item. Only allowed in detailed mode.
func (e *Editor) AddItem(item LineItem) error {
	if strings.TrimSpace(item.Description) == "" || item.IsPackage() {
		return ErrInvalidItem
	}
	if item.Category == "" {
		item.Category = CategoryOther
	}
	if !item.Category.Valid() {
		return ErrInvalidItem
	}
	if item.Quantity.IsNegative() {
		return ErrInvalidQuantity
	}
	if item.UnitPrice.IsNegative() || (item.TotalPrice.Valid && item.TotalPrice.Decimal.IsNegative()) {
		return ErrNegativePrice
	}
	item.Origin = OriginManual
	item.Normalize()
	return e.mutate(func() error {
		if e.mode != ModeDetailed {
			return ErrNotDetailedMode
		}
		e.items = append(e.items, item)
		return nil
	})
}

// EditItem applies edit to the item at index.
func (e *Editor) EditItem(index int, edit ItemEdit) error {
	if edit.Quantity != nil && !edit.Quantity.IsPositive() {
		return ErrInvalidQuantity
	}
	for _, p := range []*decimal.Decimal{edit.UnitPrice, edit.TotalPrice} {
		if p != nil && p.IsNegative() {
			return ErrNegativePrice
		}
	}
	return e.mutate(func() error {
		if index < 0 || index >= len(e.items) {
			return ErrItemIndex
		}
		if !e.editable(index) {
			return ErrReadOnlyItem
		}
		it := &e.items[index]
		if edit.Description != nil {
			if it.Origin != OriginManual || strings.TrimSpace(*edit.Description) == "" {
				return ErrInvalidItem
			}
			it.Description = strings.TrimSpace(*edit.Description)
		}
		if edit.Notes != nil {
			it.Notes = *edit.Notes
		}
		switch {
		case edit.TotalPrice != nil:
			it.SetTotalPrice(*edit.TotalPrice)
		default:
			if edit.Quantity != nil {
				it.SetQuantity(*edit.Quantity)
			}
			if edit.UnitPrice != nil {
				it.SetUnitPrice(*edit.UnitPrice)
			}
		}
		return nil
	})
}

// RemoveItem drops a manual item. Extracted items and the package item stay.
func (e *Editor) RemoveItem(index int) error {
	return e.mutate(func() error {
		if index < 0 || index >= len(e.items) {
			return ErrItemIndex
		}
		if e.mode != ModeDetailed {
			return ErrNotDetailedMode
		}
		if it := e.items[index]; it.IsPackage() || it.Origin != OriginManual {
			return ErrReadOnlyItem
		}
		e.items = slices.Delete(e.items, index, index+1)
		return nil
	})
}

// mutate runs fn under the write lock unless a refresh is in flight.
func (e *Editor) mutate(fn func() error) error {
	if e.loading.Load() {
		return ErrBusy
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn()
}
