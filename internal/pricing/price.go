package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/keyprice_api/internal/models"
)

// groupSeparator is the thousands separator of the pt-PT display format.
const groupSeparator = "\u00a0"

// SelectPrice returns the price detail of offer in currency and the numeric
// price used for filtering and ranking (PriceWithoutCoupon). ok is false when
// the catalog has no price for that currency.
func SelectPrice(offer models.Offer, currency models.Currency) (detail models.PriceDetail, price decimal.Decimal, ok bool) {
	detail, ok = offer.PriceByCurrency[currency]
	if !ok {
		return models.PriceDetail{}, decimal.Zero, false
	}
	return detail, detail.PriceWithoutCoupon, true
}

// FormatPrice renders d for display: two decimals (half-even rounding), a
// comma as decimal separator, and no-break-space grouping once the integer
// part reaches five digits ("8,00", "1234,50", "12 345,68").
func FormatPrice(d decimal.Decimal) string {
	s := d.RoundBank(2).StringFixed(2)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")

	if len(intPart) >= 5 {
		var b strings.Builder
		head := len(intPart) % 3
		if head > 0 {
			b.WriteString(intPart[:head])
		}
		for i := head; i < len(intPart); i += 3 {
			if b.Len() > 0 {
				b.WriteString(groupSeparator)
			}
			b.WriteString(intPart[i : i+3])
		}
		intPart = b.String()
	}

	return sign + intPart + "," + frac
}
