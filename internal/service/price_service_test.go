package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/keyprice_api/internal/cache"
	"github.com/GTDGit/keyprice_api/internal/config"
	"github.com/GTDGit/keyprice_api/internal/events"
	"github.com/GTDGit/keyprice_api/internal/models"
	"github.com/GTDGit/keyprice_api/internal/utils"
	"github.com/GTDGit/keyprice_api/pkg/allkeyshop"
)

type fakeCatalog struct {
	mu      sync.Mutex
	calls   int
	titles  []string
	searchF func(title string, currency models.Currency, platform string) (models.CatalogResult, error)
}

func (f *fakeCatalog) Search(_ context.Context, title string, currency models.Currency, platform string) (models.CatalogResult, error) {
	f.mu.Lock()
	f.calls++
	f.titles = append(f.titles, title)
	f.mu.Unlock()
	return f.searchF(title, currency, platform)
}

type fakePublisher struct {
	events chan events.SearchEvent
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{events: make(chan events.SearchEvent, 16)}
}

func (p *fakePublisher) Publish(_ context.Context, ev events.SearchEvent) error {
	p.events <- ev
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) Delete(_ context.Context, keys ...string) error { return nil }
func (m *memStore) Sweep(context.Context) (int, error)             { return 0, nil }
func (m *memStore) Close() error                                   { return nil }

func eur(v float64) map[models.Currency]models.PriceDetail {
	d := decimal.NewFromFloat(v)
	return map[models.Currency]models.PriceDetail{
		"eur": {Price: d, PriceWithoutCoupon: d, PriceCard: d, PricePaypal: d},
	}
}

// scenarioA: Eneba 10, Eneba 8, IG 12.
func scenarioA() models.CatalogResult {
	return models.CatalogResult{
		Success: true,
		Offers: []models.Offer{
			{ID: "1", MerchantRef: "10", EditionRef: "1", RegionRef: "1", Platform: "pc", PriceByCurrency: eur(10)},
			{ID: "2", MerchantRef: "10", EditionRef: "1", RegionRef: "1", Platform: "pc", PriceByCurrency: eur(8)},
			{ID: "3", MerchantRef: "20", EditionRef: "1", RegionRef: "1", Platform: "pc", PriceByCurrency: eur(12)},
		},
		Merchants: models.LookupTable{"10": {Name: "Eneba"}, "20": {Name: "IG"}},
		Editions:  models.LookupTable{"1": {Name: "Standard"}},
		Regions:   models.LookupTable{"1": {Name: "Global"}},
	}
}

func newPriceService(catalog Catalog, pc *cache.PriceCache, pub events.Publisher) *PriceService {
	return NewPriceService(catalog, pc, pub, nil, config.PricingConfig{DefaultCurrency: "eur", DefaultPlatform: "pc"})
}

func TestPriceService_ScenarioA(t *testing.T) {
	catalog := &fakeCatalog{searchF: func(string, models.Currency, string) (models.CatalogResult, error) {
		return scenarioA(), nil
	}}
	svc := newPriceService(catalog, nil, nil)

	res, err := svc.GetPrices(context.Background(), models.PriceRequest{GameTitle: "  Hades "})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "IG", res[0].MerchantName)
	assert.Equal(t, 12.0, res[0].CheapestOffer.Price.PriceWithoutCouponNumeric)
	assert.Equal(t, "Eneba", res[1].MerchantName)
	assert.Equal(t, "8,00", res[1].CheapestOffer.Price.PriceWithoutCoupon)
	assert.Equal(t, "2", res[1].CheapestOffer.ID)
	assert.Equal(t, []string{"Hades"}, catalog.titles)
}

func TestPriceService_DefaultsPassedToCatalog(t *testing.T) {
	var gotCurrency models.Currency
	var gotPlatform string
	catalog := &fakeCatalog{searchF: func(_ string, c models.Currency, p string) (models.CatalogResult, error) {
		gotCurrency, gotPlatform = c, p
		return models.CatalogResult{Success: true}, nil
	}}
	svc := newPriceService(catalog, nil, nil)

	_, err := svc.GetPrices(context.Background(), models.PriceRequest{
		GameTitle:     "Hades",
		FilterOptions: &models.FilterOptions{Currency: " USD ", Platform: "XBOX"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.Currency("usd"), gotCurrency)
	assert.Equal(t, "xbox", gotPlatform)
}

func TestPriceService_ScenarioD_NotFound(t *testing.T) {
	catalog := &fakeCatalog{searchF: func(string, models.Currency, string) (models.CatalogResult, error) {
		return models.CatalogResult{Success: false}, nil
	}}
	svc := newPriceService(catalog, nil, nil)

	res, err := svc.GetPrices(context.Background(), models.PriceRequest{GameTitle: "No Such Game"})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, utils.ErrGameNotFound)
}

func TestPriceService_ScenarioE_EmptyIsNotNotFound(t *testing.T) {
	catalog := &fakeCatalog{searchF: func(string, models.Currency, string) (models.CatalogResult, error) {
		return models.CatalogResult{Success: true}, nil
	}}
	svc := newPriceService(catalog, nil, nil)

	res, err := svc.GetPrices(context.Background(), models.PriceRequest{GameTitle: "Hades"})
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Empty(t, res)
}

func TestPriceService_NoMatchingOffersIsEmpty(t *testing.T) {
	catalog := &fakeCatalog{searchF: func(string, models.Currency, string) (models.CatalogResult, error) {
		return scenarioA(), nil
	}}
	svc := newPriceService(catalog, nil, nil)

	res, err := svc.GetPrices(context.Background(), models.PriceRequest{
		GameTitle:     "Hades",
		FilterOptions: &models.FilterOptions{Stores: []string{"Kinguin"}},
	})
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestPriceService_ValidationFailsFast(t *testing.T) {
	catalog := &fakeCatalog{searchF: func(string, models.Currency, string) (models.CatalogResult, error) {
		t.Fatal("catalog must not be called")
		return models.CatalogResult{}, nil
	}}
	svc := newPriceService(catalog, nil, nil)

	tests := []struct {
		name string
		req  models.PriceRequest
		msg  string
	}{
		{"blank title", models.PriceRequest{GameTitle: "   "}, "gameTitle is required"},
		{"inverted range", models.PriceRequest{
			GameTitle:     "Hades",
			FilterOptions: &models.FilterOptions{PriceRange: &models.PriceRange{Min: 10, Max: 5}},
		}, "priceRange.min"},
		{"bad currency", models.PriceRequest{
			GameTitle:     "Hades",
			FilterOptions: &models.FilterOptions{Currency: "euro!"},
		}, "currency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GetPrices(context.Background(), tt.req)
			assert.ErrorIs(t, err, utils.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
	assert.Zero(t, catalog.calls)
}

func TestPriceService_UpstreamFailure(t *testing.T) {
	cause := &allkeyshop.HTTPError{StatusCode: 429, RetryAfter: 60 * time.Second}
	catalog := &fakeCatalog{searchF: func(string, models.Currency, string) (models.CatalogResult, error) {
		return models.CatalogResult{}, cause
	}}
	svc := newPriceService(catalog, nil, nil)

	_, err := svc.GetPrices(context.Background(), models.PriceRequest{GameTitle: "Hades"})
	assert.ErrorIs(t, err, utils.ErrUpstream)

	var httpErr *allkeyshop.HTTPError
	assert.True(t, errors.As(err, &httpErr))
	assert.Equal(t, 1, catalog.calls, "no retries")
}

func TestPriceService_CachesSuccessOnly(t *testing.T) {
	found := true
	catalog := &fakeCatalog{searchF: func(string, models.Currency, string) (models.CatalogResult, error) {
		if !found {
			return models.CatalogResult{Success: false}, nil
		}
		return scenarioA(), nil
	}}
	pc := cache.NewPriceCache(&memStore{data: map[string][]byte{}}, time.Hour, nil)
	svc := newPriceService(catalog, pc, nil)
	ctx := context.Background()

	first, err := svc.Lookup(ctx, models.PriceRequest{GameTitle: "Hades"})
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := svc.Lookup(ctx, models.PriceRequest{GameTitle: " hades "})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Offers, second.Offers)
	assert.Equal(t, 1, catalog.calls)

	found = false
	for i := 0; i < 2; i++ {
		_, err = svc.Lookup(ctx, models.PriceRequest{GameTitle: "Unknown"})
		assert.ErrorIs(t, err, utils.ErrGameNotFound)
	}
	assert.Equal(t, 3, catalog.calls, "not-found results are not cached")
}

func TestPriceService_PublishesSearchEvent(t *testing.T) {
	catalog := &fakeCatalog{searchF: func(string, models.Currency, string) (models.CatalogResult, error) {
		return scenarioA(), nil
	}}
	pub := newFakePublisher()
	svc := newPriceService(catalog, nil, pub)

	_, err := svc.GetPrices(context.Background(), models.PriceRequest{GameTitle: "Hades", ClientID: "ext-1"})
	require.NoError(t, err)

	select {
	case ev := <-pub.events:
		assert.Equal(t, "hades", ev.Title)
		assert.Equal(t, "ok", ev.Outcome)
		assert.Equal(t, 2, ev.Groups)
		assert.Equal(t, "eur", ev.Currency)
		assert.Equal(t, "ext-1", ev.ClientID)
	case <-time.After(2 * time.Second):
		t.Fatal("search event not published")
	}
}

func TestConvertSearchResult(t *testing.T) {
	res := convertSearchResult(&allkeyshop.SearchResult{
		Success: true,
		OffersResponse: allkeyshop.OffersResponse{
			Success: true,
			Offers: []allkeyshop.Offer{{
				ID: "7", Merchant: "10", Edition: "1", Region: "2", Platform: "pc",
				Price: map[string]allkeyshop.Price{"EUR": {PriceWithoutCoupon: decimal.RequireFromString("9.99")}},
			}},
			Merchants: map[string]allkeyshop.Named{"10": {Name: "Eneba"}},
			Editions:  map[string]allkeyshop.Named{"1": {Name: "Standard"}},
			Regions:   map[string]allkeyshop.Named{"2": {Name: "Global"}},
		},
	})

	require.True(t, res.Success)
	require.Len(t, res.Offers, 1)
	assert.Equal(t, models.Ref("10"), res.Offers[0].MerchantRef)
	assert.Equal(t, "9.99", res.Offers[0].PriceByCurrency["eur"].PriceWithoutCoupon.String())
	assert.Equal(t, "Eneba", res.Merchants.Name("10"))
	assert.Equal(t, "Global", res.Regions.Name("2"))

	assert.False(t, convertSearchResult(&allkeyshop.SearchResult{Success: false}).Success)
	assert.False(t, convertSearchResult(nil).Success)
}
