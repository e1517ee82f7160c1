package retrieval

import (
	"sort"
	"strings"

	"github.com/krishnaw/dealsearch/internal/record"
)

// DefaultFuzzyThreshold is the direct-retrieval threshold from spec.md
// §4.2.
const DefaultFuzzyThreshold = 60.0

// StrongFuzzyThreshold classifies a "strong" fuzzy match, used by the
// match-density penalty and the offer-name boost.
const StrongFuzzyThreshold = 80.0

// FuzzySearch implements spec.md §4.2. It scores every record by the
// best partial-ratio similarity of the query against that record's
// offer name or product name (whichever is higher), drops anything below
// threshold, and returns the top_k by score descending.
//
// It reads from the record set's precomputed lowercased name arrays
// (CorpusIndex) instead of re-lowercasing every record's names on every
// call.
func FuzzySearch(query string, rs *record.RecordSet, threshold float64, topK int) []Hit {
	q := strings.ToLower(query)
	if q == "" {
		return nil
	}

	idx := record.Index(rs)
	hits := make([]Hit, 0, topK)

	for i, r := range rs.Records {
		offerScore := partialRatio(q, idx.OfferNamesLower[i])
		productScore := 0.0
		if idx.ProductNamesLower[i] != "" {
			productScore = partialRatio(q, idx.ProductNamesLower[i])
		}
		score := offerScore
		if productScore > score {
			score = productScore
		}
		if score < threshold {
			continue
		}
		hits = append(hits, Hit{Record: r, Score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// PartialRatio exposes the same partial-ratio scoring the fuzzy
// retriever uses internally, lowercased, for callers outside this
// package (the offer-name boost in internal/fusion reuses it rather than
// re-implementing string similarity).
func PartialRatio(a, b string) float64 {
	return partialRatio(strings.ToLower(a), strings.ToLower(b))
}

// partialRatio scores the best alignment of the shorter string against
// any contiguous substring of the longer string, on a [0,100] scale.
//
// No library in the example pack implements RapidFuzz-style partial-ratio
// fuzzy matching (the one fuzzy-matching dependency present anywhere in
// the corpus, sahilm/fuzzy, does ordered-subsequence matching, a
// different algorithm entirely) — see DESIGN.md for why this is a
// from-scratch, stdlib-only implementation rather than a wired
// dependency.
func partialRatio(a, b string) float64 {
	if a == "" || b == "" {
		if a == b {
			return 100
		}
		return 0
	}

	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}

	if len(shorter) == len(longer) {
		return levenshteinRatio(shorter, longer)
	}

	best := 0.0
	windowLen := len(shorter)
	for i := 0; i+windowLen <= len(longer); i++ {
		window := longer[i : i+windowLen]
		r := levenshteinRatio(shorter, window)
		if r > best {
			best = r
		}
		if best == 100 {
			break
		}
	}
	return best
}

// levenshteinRatio returns (1 - dist/(len(a)+len(b))) * 100, clamped to
// [0, 100], where dist is levenshteinDistance (substitution cost 2) and
// lengths are in runes: the same normalization RapidFuzz's ratio uses.
func levenshteinRatio(a, b string) float64 {
	lenSum := len([]rune(a)) + len([]rune(b))
	if lenSum == 0 {
		return 100
	}
	dist := levenshteinDistance(a, b)
	ratio := (1 - float64(dist)/float64(lenSum)) * 100
	if ratio < 0 {
		ratio = 0
	}
	return ratio
}

// levenshteinDistance is the O(len(a)*len(b)) dynamic-programming edit
// distance, rune-aware, with a substitution costing 2 (one deletion plus
// one insertion) and insertions and deletions costing 1.
func levenshteinDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 2
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = min3(del, ins, sub)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
