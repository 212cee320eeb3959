package service

import (
	"context"
	"strings"
	"sync"

	"github.com/GTDGit/keyprice_api/internal/models"
	"github.com/GTDGit/keyprice_api/pkg/allkeyshop"
)

// Catalog searches the game catalog for offers.
type Catalog interface {
	Search(ctx context.Context, title string, currency models.Currency, platform string) (models.CatalogResult, error)
}

// AllkeyshopCatalog wraps the Allkeyshop client to implement Catalog
type AllkeyshopCatalog struct {
	client   *allkeyshop.Client
	healthy  bool
	healthMu sync.RWMutex
}

// NewAllkeyshopCatalog creates a new Allkeyshop catalog adapter
func NewAllkeyshopCatalog(client *allkeyshop.Client) *AllkeyshopCatalog {
	return &AllkeyshopCatalog{client: client, healthy: true}
}

// Search looks the title up and converts the catalog payload
func (c *AllkeyshopCatalog) Search(ctx context.Context, title string, currency models.Currency, platform string) (models.CatalogResult, error) {
	res, err := c.client.Search(ctx, title, allkeyshop.Options{
		Currency: string(currency),
		Platform: platform,
	})
	if err != nil {
		c.markUnhealthy()
		return models.CatalogResult{}, err
	}

	c.markHealthy()
	return convertSearchResult(res), nil
}

// IsHealthy reports whether the last catalog call succeeded
func (c *AllkeyshopCatalog) IsHealthy() bool {
	c.healthMu.RLock()
	defer c.healthMu.RUnlock()
	return c.healthy
}

func (c *AllkeyshopCatalog) markHealthy() {
	c.healthMu.Lock()
	c.healthy = true
	c.healthMu.Unlock()
}

func (c *AllkeyshopCatalog) markUnhealthy() {
	c.healthMu.Lock()
	c.healthy = false
	c.healthMu.Unlock()
}

func convertSearchResult(res *allkeyshop.SearchResult) models.CatalogResult {
	if res == nil || !res.Success {
		return models.CatalogResult{Success: false}
	}

	offers := make([]models.Offer, 0, len(res.Offers))
	for _, o := range res.Offers {
		prices := make(map[models.Currency]models.PriceDetail, len(o.Price))
		for cur, p := range o.Price {
			prices[models.Currency(strings.ToLower(cur))] = models.PriceDetail{
				Price:              p.Price,
				PriceWithoutCoupon: p.PriceWithoutCoupon,
				PriceCard:          p.PriceCard,
				PricePaypal:        p.PricePaypal,
			}
		}
		offers = append(offers, models.Offer{
			ID:              models.Ref(o.ID),
			MerchantRef:     models.Ref(o.Merchant),
			EditionRef:      models.Ref(o.Edition),
			RegionRef:       models.Ref(o.Region),
			Platform:        o.Platform,
			PriceByCurrency: prices,
		})
	}

	return models.CatalogResult{
		Success:   true,
		Offers:    offers,
		Merchants: convertLookup(res.Merchants),
		Editions:  convertLookup(res.Editions),
		Regions:   convertLookup(res.Regions),
	}
}

func convertLookup(in map[string]allkeyshop.Named) models.LookupTable {
	out := make(models.LookupTable, len(in))
	for ref, n := range in {
		out[models.Ref(ref)] = models.LookupEntry{Name: n.Name}
	}
	return out
}
