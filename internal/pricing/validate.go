package pricing

import "github.com/shopspring/decimal"

// Candidate is the part of an offer the filter gates look at.
type Candidate struct {
	Store   string
	Price   decimal.Decimal
	Edition string
	Region  string
}

// IsValidOffer reports whether c passes every gate of criteria. A gate whose
// dimension is empty (or a nil price range) passes. String comparison is
// case and surrounding-whitespace insensitive on both sides.
func IsValidOffer(c Candidate, criteria Criteria) bool {
	if len(criteria.Stores) > 0 && !containsNormalized(criteria.Stores, c.Store) {
		return false
	}

	if r := criteria.PriceRange; r != nil {
		if c.Price.LessThan(decimal.NewFromFloat(r.Min)) || c.Price.GreaterThan(decimal.NewFromFloat(r.Max)) {
			return false
		}
	}

	if len(criteria.Editions) > 0 && !containsNormalized(criteria.Editions, c.Edition) {
		return false
	}

	if len(criteria.Regions) > 0 && !containsNormalized(criteria.Regions, c.Region) {
		return false
	}

	return true
}

func containsNormalized(set []string, v string) bool {
	v = Normalize(v)
	for _, s := range set {
		if Normalize(s) == v {
			return true
		}
	}
	return false
}
