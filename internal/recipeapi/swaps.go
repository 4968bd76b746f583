package recipeapi

import (
	"strconv"
	"strings"
)

// DietaryFilters are the filter names the swap endpoint understands.
var DietaryFilters = []string{
	"Vegan",
	"Vegetarian",
	"Gluten-Free",
	"Dairy-Free",
	"Nut-Free",
	"Keto",
}

// MatchLabel describes the confidence of a suggestion in words.
func (s SwapSuggestion) MatchLabel() string {
	switch {
	case s.Confidence >= 0.8:
		return "Great match"
	case s.Confidence >= 0.6:
		return "Good match"
	default:
		return "Fair match"
	}
}

// AmountText describes how much of the substitute to use. A server note
// takes precedence over the ratio.
func (s SwapSuggestion) AmountText() string {
	if s.QuantityNote != nil && strings.TrimSpace(*s.QuantityNote) != "" {
		return strings.TrimSpace(*s.QuantityNote)
	}
	if s.QuantityRatio == 1 || s.QuantityRatio == 0 {
		return "Same amount"
	}
	return "Use " + strconv.FormatFloat(s.QuantityRatio, 'f', -1, 64) + "x the amount"
}
