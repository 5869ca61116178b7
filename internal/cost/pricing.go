// Package cost implements token-to-price mapping, cost-event
// recording, and budget-status derivation for tasks.
package cost

import "strings"

// ModelPrice holds per-million-token USD rates for a model.
type ModelPrice struct {
	InputPerMillion  float64
	OutputPerMillion float64
	CachePerMillion  float64 // 0 if the model has no distinct cache rate
}

// defaultPricing is trak's built-in table, covering the model families
// the corpus's gateway examples actually dispatch against. Entries are
// overridable and extendable via config's cost.pricing_overrides.
var defaultPricing = map[string]ModelPrice{
	"claude-opus-4-5":    {InputPerMillion: 15, OutputPerMillion: 75, CachePerMillion: 1.5},
	"claude-sonnet-4-5":  {InputPerMillion: 3, OutputPerMillion: 15, CachePerMillion: 0.3},
	"claude-haiku-4-5":   {InputPerMillion: 0.8, OutputPerMillion: 4, CachePerMillion: 0.08},
	"gpt-5":              {InputPerMillion: 10, OutputPerMillion: 30},
	"gpt-5-mini":         {InputPerMillion: 1.5, OutputPerMillion: 6},
	"gemini-2-5-pro":     {InputPerMillion: 2.5, OutputPerMillion: 10},
	"gemini-2-5-flash":   {InputPerMillion: 0.3, OutputPerMillion: 1.2},
}

// Table is a pricing lookup table with forgiving model-name matching.
type Table struct {
	prices map[string]ModelPrice
}

// NewTable builds a pricing table seeded from defaultPricing, with
// overrides replacing or adding entries by canonical name.
func NewTable(overrides map[string]ModelPrice) *Table {
	prices := make(map[string]ModelPrice, len(defaultPricing)+len(overrides))
	for name, p := range defaultPricing {
		prices[name] = p
	}
	for name, p := range overrides {
		prices[name] = p
	}
	return &Table{prices: prices}
}

// Lookup finds a model's pricing using exact match first, then
// substring match either way, case-insensitive — so
// "anthropic/claude-opus-4-5" matches "claude-opus-4-5" and vice versa.
// Returns ok=false for unmatched names; ambiguous substring matches
// (more than one candidate) resolve to whichever is found first and are
// not treated as an error.
func (t *Table) Lookup(model string) (ModelPrice, bool) {
	if p, ok := t.prices[model]; ok {
		return p, true
	}

	lower := strings.ToLower(model)
	if p, ok := t.prices[lower]; ok {
		return p, true
	}

	for name, p := range t.prices {
		ln := strings.ToLower(name)
		if strings.Contains(lower, ln) || strings.Contains(ln, lower) {
			return p, true
		}
	}
	return ModelPrice{}, false
}

// Calculate returns the USD cost of in input and out output tokens at
// model's rate, or 0 if the model is unknown.
func (t *Table) Calculate(tokensIn, tokensOut int, model string) float64 {
	price, ok := t.Lookup(model)
	if !ok {
		return 0
	}
	return float64(tokensIn)/1e6*price.InputPerMillion + float64(tokensOut)/1e6*price.OutputPerMillion
}
