package pricing

import (
	"sort"

	"github.com/GTDGit/keyprice_api/internal/models"
)

// GroupAndRank keeps the cheapest offer of every merchant and orders the
// groups by that price, highest first. On equal prices the offer seen first
// wins inside a merchant, and the merchant seen first comes first in the
// result, so the output is deterministic for a given input order.
func GroupAndRank(offers []models.NormalizedOffer) []models.GroupedOffer {
	index := make(map[string]int, len(offers))
	groups := make([]models.GroupedOffer, 0, len(offers))

	for _, o := range offers {
		i, seen := index[o.MerchantName]
		if !seen {
			index[o.MerchantName] = len(groups)
			groups = append(groups, models.GroupedOffer{MerchantName: o.MerchantName, CheapestOffer: o})
			continue
		}
		if o.Price.LessThan(groups[i].CheapestOffer.Price) {
			groups[i].CheapestOffer = o
		}
	}

	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].CheapestOffer.Price.GreaterThan(groups[b].CheapestOffer.Price)
	})
	return groups
}
