// Package observation reads a price and a tone out of free-text seller messages.
package observation

import (
	"regexp"
	"strings"

	"buyer_agent/internal/models"

	"github.com/shopspring/decimal"
)

// priceRe matches the first run of 2 to 6 digits. Any incidental number of
// that length is taken as the price.
var priceRe = regexp.MustCompile(`\d{2,6}`)

// ExtractPrice returns the first price-like number in text, or nil.
// Thousands separators are removed before matching.
func ExtractPrice(text string) *decimal.Decimal {
	match := priceRe.FindString(strings.ReplaceAll(text, ",", ""))
	if match == "" {
		return nil
	}
	price, err := decimal.NewFromString(match)
	if err != nil {
		return nil
	}
	return &price
}

// AnalyzeTone classifies text as firm, flexible or neutral. Firm wins over flexible.
func AnalyzeTone(text string) models.Tone {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "final") || strings.Contains(lower, "last"):
		return models.ToneFirm
	case strings.Contains(lower, "maybe") || strings.Contains(lower, "consider"):
		return models.ToneFlexible
	default:
		return models.ToneNeutral
	}
}
