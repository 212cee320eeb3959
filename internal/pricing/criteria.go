// Package pricing turns a raw catalog result into the per-merchant price list
// shown by the extension: filter criteria are normalized, offers are checked
// against them, and the cheapest offer of every merchant is kept.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/GTDGit/keyprice_api/internal/models"
)

const (
	DefaultCurrency = "eur"
	DefaultPlatform = "pc"
)

// ErrInvalidCriteria is returned by NewCriteria for malformed filter options.
var ErrInvalidCriteria = errors.New("invalid filter options")

var currencyPattern = regexp.MustCompile(`^[a-z]{3}$`)

// Criteria is a validated, normalized filter set.
type Criteria struct {
	PriceRange *models.PriceRange
	Stores     []string
	Regions    []string
	Editions   []string
	Currency   models.Currency
	Platform   string
}

// Normalize lower-cases and trims s.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeAll normalizes every element of values into a new slice.
// A nil input stays nil.
func NormalizeAll(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = Normalize(v)
	}
	return out
}

// NewCriteria validates opts and returns the normalized criteria. A nil opts
// yields criteria with only the default currency and platform set. Empty
// currency or platform fall back to the given defaults.
func NewCriteria(opts *models.FilterOptions, defaultCurrency, defaultPlatform string) (Criteria, error) {
	if defaultCurrency == "" {
		defaultCurrency = DefaultCurrency
	}
	if defaultPlatform == "" {
		defaultPlatform = DefaultPlatform
	}
	c := Criteria{
		Currency: models.Currency(Normalize(defaultCurrency)),
		Platform: Normalize(defaultPlatform),
	}
	if opts == nil {
		return c, nil
	}

	if opts.PriceRange != nil {
		r := *opts.PriceRange
		switch {
		case math.IsNaN(r.Min) || math.IsNaN(r.Max) || math.IsInf(r.Min, 0) || math.IsInf(r.Max, 0):
			return Criteria{}, fmt.Errorf("%w: priceRange must hold finite numbers", ErrInvalidCriteria)
		case r.Min < 0:
			return Criteria{}, fmt.Errorf("%w: priceRange.min must be >= 0", ErrInvalidCriteria)
		case r.Min > r.Max:
			return Criteria{}, fmt.Errorf("%w: priceRange.min must be <= priceRange.max", ErrInvalidCriteria)
		}
		c.PriceRange = &r
	}

	c.Stores = NormalizeAll(opts.Stores)
	c.Regions = NormalizeAll(opts.Regions)
	c.Editions = NormalizeAll(opts.Editions)

	if cur := Normalize(opts.Currency); cur != "" {
		c.Currency = models.Currency(cur)
	}
	if !currencyPattern.MatchString(string(c.Currency)) {
		return Criteria{}, fmt.Errorf("%w: currency %q is not a 3-letter code", ErrInvalidCriteria, c.Currency)
	}
	if p := Normalize(opts.Platform); p != "" {
		c.Platform = p
	}

	return c, nil
}
