package repository

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/shopspring/decimal"

	"github.com/diewo77/voyage-billing/internal/itinerary"
)

const catalogCacheSize = 512

// CachedCatalog wraps an itinerary.Source with TTL-based caching of catalog packages.
// Customized packages and manual itineraries belong to a single lead and are edited
// while a quotation is drafted, so they always go to the inner source.
type CachedCatalog struct {
	inner    itinerary.Source
	packages *lru.LRU[uint, *itinerary.PackageDetail]
}

var _ itinerary.Source = (*CachedCatalog)(nil)

// NewCachedCatalog wraps inner. ttl is how long a package is served before re-fetching.
func NewCachedCatalog(inner itinerary.Source, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{
		inner:    inner,
		packages: lru.NewLRU[uint, *itinerary.PackageDetail](catalogCacheSize, nil, ttl),
	}
}

func (c *CachedCatalog) Package(ctx context.Context, id uint) (*itinerary.PackageDetail, error) {
	if pkg, ok := c.packages.Get(id); ok {
		return pkg, nil
	}
	pkg, err := c.inner.Package(ctx, id)
	if err != nil {
		return nil, err
	}
	c.packages.Add(id, pkg)
	return pkg, nil
}

// PackagePrice is served from the cached package.
func (c *CachedCatalog) PackagePrice(ctx context.Context, id uint) (*decimal.Decimal, error) {
	pkg, err := c.Package(ctx, id)
	if err != nil {
		return nil, err
	}
	price := pkg.Price
	return &price, nil
}

func (c *CachedCatalog) CustomizedPackage(ctx context.Context, id uint) (*itinerary.PackageDetail, error) {
	return c.inner.CustomizedPackage(ctx, id)
}

func (c *CachedCatalog) ManualItinerary(ctx context.Context, leadID uint) (*itinerary.ManualDetail, error) {
	return c.inner.ManualItinerary(ctx, leadID)
}

// Invalidate drops one package. Call it when the package is edited.
func (c *CachedCatalog) Invalidate(id uint) { c.packages.Remove(id) }

// InvalidateAll clears the cache.
func (c *CachedCatalog) InvalidateAll() { c.packages.Purge() }
