// Package fusion implements spec.md §4.5: fusing the three retrievers'
// per-record hits into a composite score, grouping matched records by
// offer, and the post-ranking adjustments (match-density penalty,
// offer-name boost, gibberish gate, adaptive cutoff) that decide the
// final ranked Deal list.
package fusion

import "github.com/krishnaw/dealsearch/internal/record"

// Source names a retrieval mode that contributed to a Deal.
type Source string

const (
	SourceKeyword  Source = "keyword"
	SourceFuzzy    Source = "fuzzy"
	SourceSemantic Source = "semantic"
)

// Deal is the per-offer result returned to callers: spec.md §3's Deal
// result type.
type Deal struct {
	OfferID          string
	OfferName        string
	OfferPrice       string
	OfferDescription string
	OfferCategory    string
	OfferProgram     string
	EndDate          string

	Score   float64
	Sources []Source

	// MatchingProducts is every product record (ProductName != "") that
	// contributed to this deal, in first-encountered order.
	MatchingProducts []*record.Record
}

func dealFromRecord(r *record.Record) Deal {
	return Deal{
		OfferID:          r.OfferID,
		OfferName:        r.OfferName,
		OfferPrice:       r.OfferPrice,
		OfferDescription: r.OfferDescription,
		OfferCategory:    r.OfferCategory,
		OfferProgram:     r.OfferProgram,
		EndDate:          r.EndDate,
	}
}

// recordScore is the per-record composite and its attributed sources —
// the input to grouping (spec.md §4.5.3).
type recordScore struct {
	Record  *record.Record
	Score   float64
	Sources []Source
}
