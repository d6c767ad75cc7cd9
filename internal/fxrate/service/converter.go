package service

import (
	"strings"

	fxratedomain "github.com/paylinelabs/payline/internal/fxrate/domain"
	"github.com/paylinelabs/payline/internal/numeric"
)

type converter struct {
	byCurrency map[string]float64
}

// NewConverter builds a Converter over one year's rate table. USD always
// converts at 1; an unknown currency falls back to 1 rather than failing
// the statement.
func NewConverter(rates []fxratedomain.FxRate) fxratedomain.Converter {
	byCurrency := make(map[string]float64, len(rates))
	for _, r := range rates {
		byCurrency[strings.ToUpper(r.CurrencyCode)] = numeric.Normalize(r.Rate)
	}
	return &converter{byCurrency: byCurrency}
}

func (c *converter) Rate(currencyCode string) float64 {
	code := strings.ToUpper(strings.TrimSpace(currencyCode))
	if code == "" || code == "USD" {
		return 1
	}
	if rate, ok := c.byCurrency[code]; ok && rate > 0 {
		return rate
	}
	return 1
}

func (c *converter) Convert(amountUSD float64, currencyCode string) float64 {
	return amountUSD * c.Rate(currencyCode)
}
