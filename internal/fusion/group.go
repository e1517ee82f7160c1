package fusion

import (
	"sort"
	"strings"

	"github.com/krishnaw/dealsearch/internal/retrieval"
)

// offerGroup accumulates everything grouping needs before the deal's
// final score is settled: the max record score, the union of sources in
// first-seen order, and the matching products in first-encountered
// order. Mirrors the byDoc/docOrder insertion-order idiom used elsewhere
// in this codebase for grouping search hits by their parent entity.
type offerGroup struct {
	deal    Deal
	seenSrc map[Source]bool
}

// GroupByOffer implements spec.md §4.5.3: assigns each scored record to
// its offer, taking the max record score as the deal score, the union of
// sources (first-seen order preserved), and appending product records in
// first-encountered order.
func GroupByOffer(scores []recordScore) []Deal {
	groups := make(map[string]*offerGroup)
	var order []string

	for _, s := range scores {
		g, ok := groups[s.Record.OfferID]
		if !ok {
			g = &offerGroup{deal: dealFromRecord(s.Record), seenSrc: make(map[Source]bool)}
			groups[s.Record.OfferID] = g
			order = append(order, s.Record.OfferID)
		}
		if s.Score > g.deal.Score {
			g.deal.Score = s.Score
		}
		for _, src := range s.Sources {
			if !g.seenSrc[src] {
				g.seenSrc[src] = true
				g.deal.Sources = append(g.deal.Sources, src)
			}
		}
		if s.Record.ProductName != "" {
			g.deal.MatchingProducts = append(g.deal.MatchingProducts, s.Record)
		}
	}

	deals := make([]Deal, 0, len(order))
	for _, id := range order {
		deals = append(deals, groups[id].deal)
	}
	return deals
}

// ApplyDensityPenalty implements spec.md §4.5.4. It counts, per offer,
// how many of that offer's product records were matched by keyword and
// by strong fuzzy hits, picks keyword density as the primary signal
// unless no offer has any keyword match (the typo-query path, where
// fuzzy density takes over), and otherwise skips the penalty entirely.
// Offer-only deals (no products at all) are never penalized.
func ApplyDensityPenalty(deals []Deal, keywordHits, fuzzyHits []retrieval.Hit, offerProductCounts map[string]int, w Weights) []Deal {
	kwMatched := countMatchedProducts(keywordHits, nil)
	fzMatched := countMatchedProducts(fuzzyHits, &w.FuzzyStrongThreshold)

	var anyKw, anyFz bool
	for _, id := range dealOfferIDs(deals) {
		if kwMatched[id] > 0 {
			anyKw = true
		}
		if fzMatched[id] > 0 {
			anyFz = true
		}
	}

	var matchedBySource map[string]int
	switch {
	case anyKw:
		matchedBySource = kwMatched
	case anyFz:
		matchedBySource = fzMatched
	default:
		return deals
	}

	out := make([]Deal, len(deals))
	copy(out, deals)
	for i, d := range out {
		total := offerProductCounts[d.OfferID]
		if total == 0 {
			continue
		}
		matched := matchedBySource[d.OfferID]
		var density float64
		if matched > 0 {
			density = float64(matched) / float64(total)
		} else {
			density = w.DensityFloorValue
		}
		out[i].Score *= w.DensityFloorScore + w.DensityNoMatchGap*density
	}
	return out
}

func dealOfferIDs(deals []Deal) []string {
	ids := make([]string, len(deals))
	for i, d := range deals {
		ids[i] = d.OfferID
	}
	return ids
}

// countMatchedProducts counts, per offer id, how many hits with a
// non-empty product name appear in hits — optionally requiring the hit's
// score to reach strongThreshold (used for the fuzzy "strong match"
// count; nil means no threshold, used for keyword).
func countMatchedProducts(hits []retrieval.Hit, strongThreshold *float64) map[string]int {
	counts := make(map[string]int)
	for _, h := range hits {
		if h.Record.ProductName == "" {
			continue
		}
		if strongThreshold != nil && h.Score < *strongThreshold {
			continue
		}
		counts[h.Record.OfferID]++
	}
	return counts
}

// ApplyOfferNameBoost implements spec.md §4.5.5: boost a deal's score
// when the query is substring-related or strongly fuzzy-related to the
// offer name itself.
func ApplyOfferNameBoost(deals []Deal, query string, boost, strongFuzzyThreshold float64) []Deal {
	words := strings.Fields(strings.ToLower(query))
	out := make([]Deal, len(deals))
	copy(out, deals)

	for i, d := range out {
		nameLower := strings.ToLower(d.OfferName)
		if anySubstring(nameLower, words) || retrieval.PartialRatio(query, d.OfferName) >= strongFuzzyThreshold {
			out[i].Score *= boost
		}
	}
	return out
}

func anySubstring(haystack string, words []string) bool {
	for _, w := range words {
		if w != "" && strings.Contains(haystack, w) {
			return true
		}
	}
	return false
}

// AdaptiveCutoff implements spec.md §4.5.6: sort descending, keep at
// most topK, then drop anything below top*ratio, where ratio depends on
// whether the top score reached scoreThreshold.
func AdaptiveCutoff(deals []Deal, topK int, scoreThreshold, ratioHigh, ratioLow float64) []Deal {
	sorted := make([]Deal, len(deals))
	copy(sorted, deals)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	if topK > 0 && len(sorted) > topK {
		sorted = sorted[:topK]
	}
	if len(sorted) == 0 {
		return sorted
	}

	top := sorted[0].Score
	ratio := ratioHigh
	if top < scoreThreshold {
		ratio = ratioLow
	}
	cutoff := top * ratio

	kept := sorted[:0:0]
	for _, d := range sorted {
		if d.Score >= cutoff {
			kept = append(kept, d)
		}
	}
	return kept
}
