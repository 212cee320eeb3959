package allkeyshop

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// ID is a catalog identifier. Allkeyshop sends ids as JSON numbers in some
// payloads and as strings in others.
type ID string

// UnmarshalJSON accepts a JSON number, a string or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", string(data), err)
	}
	*id = ID(n.String())
	return nil
}

// Options selects the currency and platform of a search.
type Options struct {
	Currency string
	Platform string
}

// ProductsResponse is the payload of the product search endpoint.
type ProductsResponse struct {
	Status   string    `json:"status"`
	Products []Product `json:"products"`
}

// Product is one search hit.
type Product struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	Platform string `json:"platform,omitempty"`
	Slug     string `json:"slug,omitempty"`
}

// Price is the price block of an offer for one currency. Values arrive as
// numbers or numeric strings.
type Price struct {
	Price              decimal.Decimal `json:"price"`
	PriceWithoutCoupon decimal.Decimal `json:"priceWithoutCoupon"`
	PriceCard          decimal.Decimal `json:"priceCard"`
	PricePaypal        decimal.Decimal `json:"pricePaypal"`
}

// Offer is one merchant listing of the product.
type Offer struct {
	ID       ID               `json:"id"`
	Merchant ID               `json:"merchant"`
	Edition  ID               `json:"edition"`
	Region   ID               `json:"region"`
	Platform string           `json:"platform"`
	Price    map[string]Price `json:"price"`
}

// Named is an entry of the merchants, editions and regions lookup tables.
type Named struct {
	ID   ID     `json:"id,omitempty"`
	Name string `json:"name"`
}

// OffersResponse is the payload of the get_offers endpoint.
type OffersResponse struct {
	Success   bool             `json:"success"`
	Offers    []Offer          `json:"offers"`
	Merchants map[string]Named `json:"merchants"`
	Editions  map[string]Named `json:"editions"`
	Regions   map[string]Named `json:"regions"`
}

// SearchResult is the combined outcome of a title search. Success is false
// when no product matches the title or the catalog reports no offers payload.
type SearchResult struct {
	Success bool
	Product *Product
	OffersResponse
}
