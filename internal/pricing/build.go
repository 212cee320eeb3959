package pricing

import (
	"fmt"
	"net/url"

	"github.com/GTDGit/keyprice_api/internal/models"
)

const redirectBaseURL = "https://www.allkeyshop.com/redirection/offer"

// Stats counts what happened to the offers of one catalog result.
type Stats struct {
	Considered      int
	MissingPrice    int
	UnknownMerchant int
	Rejected        int
	Kept            int
	Groups          int
}

// Build runs the whole pipeline over result: refs are resolved, the price for
// criteria.Currency is selected, offers failing criteria are dropped and the
// rest are grouped and ranked. Offers are visited in catalog order.
func Build(result models.CatalogResult, criteria Criteria) ([]models.GroupedOffer, Stats) {
	var stats Stats
	kept := make([]models.NormalizedOffer, 0, len(result.Offers))

	for _, offer := range result.Offers {
		stats.Considered++

		detail, price, ok := SelectPrice(offer, criteria.Currency)
		if !ok {
			stats.MissingPrice++
			continue
		}

		merchant := result.Merchants.Name(offer.MerchantRef)
		if merchant == "" {
			stats.UnknownMerchant++
			continue
		}
		edition := result.Editions.Name(offer.EditionRef)
		region := result.Regions.Name(offer.RegionRef)

		if !IsValidOffer(Candidate{Store: merchant, Price: price, Edition: edition, Region: region}, criteria) {
			stats.Rejected++
			continue
		}

		kept = append(kept, models.NormalizedOffer{
			ID:           string(offer.ID),
			Price:        price,
			Detail:       detail,
			MerchantRef:  offer.MerchantRef,
			MerchantName: merchant,
			EditionName:  edition,
			RegionName:   region,
			Platform:     offer.Platform,
			RedirectURL:  RedirectURL(criteria.Currency, offer.ID, offer.MerchantRef),
		})
	}
	stats.Kept = len(kept)

	groups := GroupAndRank(kept)
	stats.Groups = len(groups)
	return groups, stats
}

// RedirectURL is the catalog's tracking link for an offer.
func RedirectURL(currency models.Currency, offerID, merchant models.Ref) string {
	q := url.Values{}
	q.Set("locale", "en")
	q.Set("merchant", string(merchant))
	return fmt.Sprintf("%s/%s/%s?%s", redirectBaseURL, url.PathEscape(string(currency)), url.PathEscape(string(offerID)), q.Encode())
}

// Present converts ranked groups into the response payload.
func Present(groups []models.GroupedOffer) []models.GroupedOfferResponse {
	out := make([]models.GroupedOfferResponse, 0, len(groups))
	for _, g := range groups {
		o := g.CheapestOffer
		out = append(out, models.GroupedOfferResponse{
			MerchantName: g.MerchantName,
			CheapestOffer: models.CheapestOfferResponse{
				ID: o.ID,
				Price: models.PriceView{
					Price:                     FormatPrice(o.Detail.Price),
					PriceWithoutCoupon:        FormatPrice(o.Detail.PriceWithoutCoupon),
					PriceCard:                 FormatPrice(o.Detail.PriceCard),
					PricePaypal:               FormatPrice(o.Detail.PricePaypal),
					PriceWithoutCouponNumeric: o.Price.InexactFloat64(),
				},
				Edition:     o.EditionName,
				Region:      o.RegionName,
				Platform:    o.Platform,
				RedirectURL: o.RedirectURL,
			},
		})
	}
	return out
}
