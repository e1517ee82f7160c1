// Package mcptool exposes the core search operation as an MCP stdio
// tool, so a conversational layer can call it like any other tool: list
// current deals and coupons, optionally narrowed by an expiry window.
// It does not rank anything itself — ranking is the core engine's job —
// it only dedupes, filters, and shapes the response.
package mcptool

import "github.com/krishnaw/dealsearch/internal/fusion"

// SearchDealsInput is the search_deals tool's input schema.
type SearchDealsInput struct {
	// Query is the search text. Use "*" to browse all deals without
	// topical ranking — useful paired with Expiry to list deals expiring
	// soon regardless of what they are.
	Query string `json:"query" jsonschema:"Search text, or '*' to browse all deals ignoring relevance"`

	// TopK caps the number of deals returned. Zero uses the server's
	// configured default.
	TopK int `json:"topK,omitempty" jsonschema:"Maximum number of deals to return"`

	// Expiry narrows results to deals ending within a window: "today",
	// "week" (7 days), or "month" (30 days). Empty applies no filter.
	Expiry string `json:"expiry,omitempty" jsonschema:"Expiry window filter: today, week, or month"`
}

// SearchDealsOutput is the search_deals tool's output schema.
type SearchDealsOutput struct {
	Deals []DealResult `json:"deals"`
	Total int          `json:"total"`
}

// DealResult is the JSON-facing projection of a fusion.Deal: the fields
// a conversational client needs to describe a deal to a shopper.
type DealResult struct {
	OfferID          string   `json:"offerId"`
	OfferName        string   `json:"offerName"`
	OfferPrice       string   `json:"offerPrice"`
	OfferDescription string   `json:"offerDescription,omitempty"`
	OfferCategory    string   `json:"offerCategory,omitempty"`
	OfferProgram     string   `json:"offerProgram,omitempty"`
	Score            float64  `json:"score"`
	Products         []string `json:"matchingProducts,omitempty"`
}

func newDealResult(d fusion.Deal) DealResult {
	products := make([]string, 0, len(d.MatchingProducts))
	for _, p := range d.MatchingProducts {
		products = append(products, p.ProductName)
	}
	return DealResult{
		OfferID:          d.OfferID,
		OfferName:        d.OfferName,
		OfferPrice:       d.OfferPrice,
		OfferDescription: d.OfferDescription,
		OfferCategory:    d.OfferCategory,
		OfferProgram:     d.OfferProgram,
		Score:            d.Score,
		Products:         products,
	}
}
