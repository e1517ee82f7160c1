// Package retrieval implements the three independent retrievers spec.md
// §4.1–§4.3 describes: keyword, fuzzy, and semantic search. Each is a
// pure function over a RecordSet; none of them know about each other or
// about fusion — that happens one layer up, in internal/fusion.
package retrieval

import (
	"regexp"
	"sort"
	"strings"

	"github.com/krishnaw/dealsearch/internal/record"
)

// Hit is one retriever's opinion of one record: which record, and how
// confident the match is in that retriever's own score scale.
type Hit struct {
	Record *record.Record
	Score  float64
}

// KeywordWeights carries the field weights and whole-word bonus from
// internal/config.RankingConfig, so the scoring formula stays pure
// instead of reaching into config itself.
type KeywordWeights struct {
	OfferName        float64
	ProductName      float64
	OfferDescription float64
	Minor            float64 // offer_category / product_department / product_shelf
	WholeWordBonus   float64
}

// DefaultKeywordWeights reproduces spec.md §4.1's constants.
func DefaultKeywordWeights() KeywordWeights {
	return KeywordWeights{
		OfferName:        3.0,
		ProductName:      2.0,
		OfferDescription: 1.0,
		Minor:            0.5,
		WholeWordBonus:   1.5,
	}
}

var weightedFields = []record.Field{
	record.FieldOfferName,
	record.FieldProductName,
	record.FieldOfferDescription,
	record.FieldOfferCategory,
	record.FieldProductDepartment,
	record.FieldProductShelf,
}

func fieldWeight(w KeywordWeights, f record.Field) float64 {
	switch f {
	case record.FieldOfferName:
		return w.OfferName
	case record.FieldProductName:
		return w.ProductName
	case record.FieldOfferDescription:
		return w.OfferDescription
	default:
		return w.Minor
	}
}

// KeywordSearch implements spec.md §4.1. Tokenizes the query on
// whitespace and lowercases it; a record is only a candidate if every
// query word is a substring of its lowercase search text (conjunctive
// admission). Non-candidates score 0 and are omitted, never returned.
//
// Word-boundary matchers are compiled once per query word and reused
// across every candidate record, per the redesign note in spec.md §9(d)
// (the original re-compiled a regex per word per record).
func KeywordSearch(query string, records []*record.Record, topK int) []Hit {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return nil
	}

	weights := DefaultKeywordWeights()
	matchers := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		matchers[i] = wholeWordMatcher(w)
	}

	denom := float64(len(words)) * weights.OfferName * weights.WholeWordBonus

	hits := make([]Hit, 0, topK)
	for _, r := range records {
		searchText := r.SearchTextLower()
		if !allSubstrings(searchText, words) {
			continue
		}

		var total float64
		for i, w := range words {
			total += bestFieldContribution(r, w, matchers[i], weights)
		}
		score := total / denom
		hits = append(hits, Hit{Record: r, Score: score})
	}

	sortHitsDesc(hits)
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

func allSubstrings(haystack string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(haystack, w) {
			return false
		}
	}
	return true
}

// bestFieldContribution returns the maximum weighted contribution of
// word across the six weighted fields of r.
func bestFieldContribution(r *record.Record, word string, matcher *regexp.Regexp, weights KeywordWeights) float64 {
	var best float64
	for _, f := range weightedFields {
		field := r.FieldLower(f)
		if field == "" || !strings.Contains(field, word) {
			continue
		}
		bonus := 1.0
		if matcher.MatchString(field) {
			bonus = weights.WholeWordBonus
		}
		contribution := fieldWeight(weights, f) * bonus
		if contribution > best {
			best = contribution
		}
	}
	return best
}

// wholeWordMatcher compiles a regex that matches word bounded by
// non-word characters or string edges, i.e. a "whole word" match as
// spec.md §4.1 defines it.
func wholeWordMatcher(word string) *regexp.Regexp {
	return regexp.MustCompile(`(^|\W)` + regexp.QuoteMeta(word) + `(\W|$)`)
}

// sortHitsDesc sorts by score descending, ties broken by original
// (insertion) order — Go's sort.SliceStable preserves the input order
// for equal scores.
func sortHitsDesc(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
}
