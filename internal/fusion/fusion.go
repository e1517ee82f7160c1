package fusion

import (
	"strings"

	"github.com/krishnaw/dealsearch/internal/record"
	"github.com/krishnaw/dealsearch/internal/retrieval"
)

// Weights carries every tunable constant the fusion/grouping/post-ranking
// steps use (internal/config.RankingConfig maps onto this 1:1 — kept
// separate so this package doesn't depend on internal/config).
type Weights struct {
	KeywordWeight        float64
	FuzzyWeight          float64
	SemanticWeight       float64
	MultiSourceBonus     float64
	MultiSourceBonusCap  float64
	SemanticOnlyDiscount float64

	FuzzyStrongThreshold float64

	DensityFloorScore float64
	DensityFloorValue float64
	DensityNoMatchGap float64

	OfferNameBoost float64

	CutoffScoreThreshold float64
	CutoffRatioHigh      float64
	CutoffRatioLow       float64
}

// DefaultWeights reproduces every constant in spec.md §4.5 exactly.
func DefaultWeights() Weights {
	return Weights{
		KeywordWeight:        0.50,
		FuzzyWeight:          0.25,
		SemanticWeight:       0.25,
		MultiSourceBonus:     0.10,
		MultiSourceBonusCap:  0.20,
		SemanticOnlyDiscount: 0.5,

		FuzzyStrongThreshold: 80,

		DensityFloorScore: 0.3,
		DensityFloorValue: 0.1,
		DensityNoMatchGap: 0.7,

		OfferNameBoost: 1.2,

		CutoffScoreThreshold: 0.5,
		CutoffRatioHigh:      0.4,
		CutoffRatioLow:       0.7,
	}
}

// fuseRecord holds the per-mode raw scores for one record before they're
// combined into a composite score.
type fuseRecord struct {
	rec      *record.Record
	keyword  float64
	fuzzy    float64 // already normalized to [0,1]
	semantic float64
	sources  []Source // first-seen order: keyword, fuzzy, semantic
}

// Fuse implements spec.md §4.5.1: combines the three retrievers' hits
// per record into a single composite score in roughly [0,2].
func Fuse(keywordHits, fuzzyHits, semanticHits []retrieval.Hit, w Weights) []recordScore {
	byRecord := make(map[*record.Record]*fuseRecord)
	var order []*record.Record

	get := func(r *record.Record) *fuseRecord {
		fr, ok := byRecord[r]
		if !ok {
			fr = &fuseRecord{rec: r}
			byRecord[r] = fr
			order = append(order, r)
		}
		return fr
	}

	for _, h := range keywordHits {
		fr := get(h.Record)
		fr.keyword = h.Score
		fr.sources = append(fr.sources, SourceKeyword)
	}
	for _, h := range fuzzyHits {
		fr := get(h.Record)
		fr.fuzzy = h.Score / 100.0
		fr.sources = append(fr.sources, SourceFuzzy)
	}
	for _, h := range semanticHits {
		fr := get(h.Record)
		fr.semantic = h.Score
		fr.sources = append(fr.sources, SourceSemantic)
	}

	scores := make([]recordScore, 0, len(order))
	for _, r := range order {
		fr := byRecord[r]

		kw, fz, sm := fr.keyword, fr.fuzzy, fr.semantic

		// Fuzzy cap: a fuzzy score can never outrank the keyword score
		// for the same record when both fired.
		if kw > 0 && fz > 0 && fz > kw {
			fz = kw
		}

		modesPresent := countModes(kw, fz, sm)
		bonus := float64(modesPresent-1) * w.MultiSourceBonus
		if bonus > w.MultiSourceBonusCap {
			bonus = w.MultiSourceBonusCap
		}
		if bonus < 0 {
			bonus = 0
		}

		composite := w.KeywordWeight*kw + w.FuzzyWeight*fz + w.SemanticWeight*sm + bonus
		if kw == 0 && fz == 0 {
			composite *= w.SemanticOnlyDiscount
		}

		scores = append(scores, recordScore{Record: r, Score: composite, Sources: fr.sources})
	}

	return scores
}

func countModes(kw, fz, sm float64) int {
	n := 0
	if kw > 0 {
		n++
	}
	if fz > 0 {
		n++
	}
	if sm > 0 {
		n++
	}
	return n
}

// GibberishGate implements spec.md §4.5.2: a query is rejected entirely
// (empty result, not an error) iff keyword returned nothing, no fuzzy
// score reached the strong threshold, and no query token appears in the
// corpus vocabulary at all.
func GibberishGate(query string, keywordHits, fuzzyHits []retrieval.Hit, vocabulary map[string]struct{}, strongFuzzyThreshold float64) bool {
	if len(keywordHits) > 0 {
		return false
	}
	for _, h := range fuzzyHits {
		if h.Score >= strongFuzzyThreshold {
			return false
		}
	}
	for _, tok := range strings.Fields(strings.ToLower(query)) {
		if _, ok := vocabulary[tok]; ok {
			return false
		}
	}
	return true
}
