package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is a lower-case ISO currency code as used by the catalog ("eur", "usd", "gbp").
type Currency string

// Ref is an opaque catalog identifier (offer, merchant, edition or region id).
type Ref string

// PriceDetail holds every price the catalog reports for one offer in one currency.
type PriceDetail struct {
	Price              decimal.Decimal
	PriceWithoutCoupon decimal.Decimal
	PriceCard          decimal.Decimal
	PricePaypal        decimal.Decimal
}

// Offer is one merchant's priced listing as returned by the catalog.
type Offer struct {
	ID              Ref
	MerchantRef     Ref
	EditionRef      Ref
	RegionRef       Ref
	Platform        string
	PriceByCurrency map[Currency]PriceDetail
}

// LookupEntry resolves a ref to its display name.
type LookupEntry struct {
	Name string
}

// LookupTable maps refs to entries (merchants, editions, regions).
type LookupTable map[Ref]LookupEntry

// Name returns the display name for ref, or "" when unknown.
func (t LookupTable) Name(ref Ref) string {
	if e, ok := t[ref]; ok {
		return e.Name
	}
	return ""
}

// CatalogResult is the outcome of a catalog search.
// Success is false when the catalog has no game for the title.
type CatalogResult struct {
	Success   bool
	Offers    []Offer
	Merchants LookupTable
	Editions  LookupTable
	Regions   LookupTable
}

// PriceRange is an inclusive price interval.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FilterOptions is the caller's filter selection. Empty slices and a nil
// PriceRange mean "no constraint" on that dimension.
type FilterOptions struct {
	PriceRange *PriceRange `json:"priceRange,omitempty"`
	Stores     []string    `json:"stores,omitempty"`
	Regions    []string    `json:"regions,omitempty"`
	Editions   []string    `json:"editions,omitempty"`
	Currency   string      `json:"currency,omitempty"`
	Platform   string      `json:"platform,omitempty"`
}

// PriceRequest is the body of POST /api/prices.
type PriceRequest struct {
	GameTitle     string         `json:"gameTitle"`
	FilterOptions *FilterOptions `json:"filterOptions"`

	// ClientID is the authenticated caller, set by the handler.
	ClientID string `json:"-"`
}

// Title returns the trimmed game title.
func (r PriceRequest) Title() string {
	return strings.TrimSpace(r.GameTitle)
}

// NormalizedOffer is an offer with refs resolved and the currency price selected.
type NormalizedOffer struct {
	ID           string
	Price        decimal.Decimal
	Detail       PriceDetail
	MerchantRef  Ref
	MerchantName string
	EditionName  string
	RegionName   string
	Platform     string
	RedirectURL  string
}

// GroupedOffer is the cheapest offer of one merchant.
type GroupedOffer struct {
	MerchantName  string
	CheapestOffer NormalizedOffer
}

// PriceView is the display form of a PriceDetail.
type PriceView struct {
	Price                     string  `json:"price"`
	PriceWithoutCoupon        string  `json:"priceWithoutCoupon"`
	PriceCard                 string  `json:"priceCard"`
	PricePaypal               string  `json:"pricePaypal"`
	PriceWithoutCouponNumeric float64 `json:"priceWithoutCouponNumeric"`
}

// CheapestOfferResponse is the outward-facing offer payload.
type CheapestOfferResponse struct {
	ID          string    `json:"id"`
	Price       PriceView `json:"price"`
	Edition     string    `json:"edition"`
	Region      string    `json:"region"`
	Platform    string    `json:"platform"`
	RedirectURL string    `json:"redirectUrl"`
}

// GroupedOfferResponse is one entry of the POST /api/prices result list.
type GroupedOfferResponse struct {
	MerchantName  string                `json:"merchantName"`
	CheapestOffer CheapestOfferResponse `json:"cheapestOffer"`
}
