package fusion

import (
	"testing"

	"github.com/krishnaw/dealsearch/internal/record"
	"github.com/krishnaw/dealsearch/internal/retrieval"
)

func offerRecs(offerID, offerName string, productNames ...string) []*record.Record {
	var recs []*record.Record
	if len(productNames) == 0 {
		recs = append(recs, &record.Record{OfferID: offerID, OfferName: offerName})
	}
	for _, p := range productNames {
		recs = append(recs, &record.Record{OfferID: offerID, OfferName: offerName, ProductName: p})
	}
	rs := record.NewRecordSet(recs)
	return rs.Records
}

func TestGroupByOffer_MaxScoreAndProductOrder(t *testing.T) {
	recs := offerRecs("1", "Milk Deal", "Whole Milk", "2% Milk")

	scores := []recordScore{
		{Record: recs[0], Score: 0.4, Sources: []Source{SourceKeyword}},
		{Record: recs[1], Score: 0.9, Sources: []Source{SourceFuzzy}},
	}

	deals := GroupByOffer(scores)
	if len(deals) != 1 {
		t.Fatalf("expected 1 deal, got %d", len(deals))
	}
	d := deals[0]
	if d.Score != 0.9 {
		t.Errorf("expected max score 0.9, got %v", d.Score)
	}
	if len(d.MatchingProducts) != 2 || d.MatchingProducts[0] != recs[0] || d.MatchingProducts[1] != recs[1] {
		t.Error("matching products not in first-encountered order")
	}
	if len(d.Sources) != 2 {
		t.Errorf("expected union of 2 sources, got %v", d.Sources)
	}
}

func TestGroupByOffer_EveryProductOwnedByContainingDeal(t *testing.T) {
	recsA := offerRecs("A", "Deal A", "Product A1")
	recsB := offerRecs("B", "Deal B", "Product B1")

	scores := []recordScore{
		{Record: recsA[0], Score: 0.5, Sources: []Source{SourceKeyword}},
		{Record: recsB[0], Score: 0.6, Sources: []Source{SourceKeyword}},
	}
	deals := GroupByOffer(scores)
	for _, d := range deals {
		for _, p := range d.MatchingProducts {
			if p.OfferID != d.OfferID {
				t.Errorf("product offer id %s does not match deal offer id %s", p.OfferID, d.OfferID)
			}
		}
	}
}

func TestApplyDensityPenalty_DensePenalizedLessThanSparse(t *testing.T) {
	w := DefaultWeights()

	denseRecs := offerRecs("dense", "Dense Deal", "Chocolate A", "Chocolate B")
	sparseRecs := offerRecs("sparse", "Sparse Deal", "Chocolate C", "Other1", "Other2", "Other3")

	deals := []Deal{
		{OfferID: "dense", Score: 1.0},
		{OfferID: "sparse", Score: 1.0},
	}
	keywordHits := []retrieval.Hit{
		{Record: denseRecs[0], Score: 1}, {Record: denseRecs[1], Score: 1},
		{Record: sparseRecs[0], Score: 1},
	}
	counts := map[string]int{"dense": 2, "sparse": 4}

	out := ApplyDensityPenalty(deals, keywordHits, nil, counts, w)

	var denseScore, sparseScore float64
	for _, d := range out {
		if d.OfferID == "dense" {
			denseScore = d.Score
		}
		if d.OfferID == "sparse" {
			sparseScore = d.Score
		}
	}
	if denseScore <= sparseScore {
		t.Errorf("dense deal (%v) should rank above sparse deal (%v)", denseScore, sparseScore)
	}
}

func TestApplyDensityPenalty_OfferOnlyNotPenalized(t *testing.T) {
	w := DefaultWeights()
	deals := []Deal{{OfferID: "offeronly", Score: 1.0}}
	keywordHits := []retrieval.Hit{{Record: &record.Record{OfferID: "other", ProductName: "p"}, Score: 1}}
	counts := map[string]int{"offeronly": 0, "other": 1}

	out := ApplyDensityPenalty(deals, keywordHits, nil, counts, w)
	if out[0].Score != 1.0 {
		t.Errorf("offer-only deal should be unpenalized, got %v", out[0].Score)
	}
}

func TestApplyDensityPenalty_FuzzyFallbackWhenNoKeywordMatches(t *testing.T) {
	w := DefaultWeights()
	recs := offerRecs("1", "Deal", "Product A")
	deals := []Deal{{OfferID: "1", Score: 1.0}}
	fuzzyHits := []retrieval.Hit{{Record: recs[0], Score: 85}}
	counts := map[string]int{"1": 1}

	out := ApplyDensityPenalty(deals, nil, fuzzyHits, counts, w)
	if out[0].Score != 1.0 {
		t.Errorf("full density match should be unpenalized, got %v", out[0].Score)
	}
}

func TestApplyOfferNameBoost_SubstringMatch(t *testing.T) {
	deals := []Deal{{OfferID: "1", OfferName: "Wine Special", Score: 1.0}}
	out := ApplyOfferNameBoost(deals, "wine", 1.2, 80)
	if out[0].Score != 1.2 {
		t.Errorf("expected boosted score 1.2, got %v", out[0].Score)
	}
}

func TestApplyOfferNameBoost_NoMatchUnaffected(t *testing.T) {
	deals := []Deal{{OfferID: "1", OfferName: "Beer Deal", Score: 1.0}}
	out := ApplyOfferNameBoost(deals, "wine", 1.2, 80)
	if out[0].Score != 1.0 {
		t.Errorf("expected unboosted score 1.0, got %v", out[0].Score)
	}
}

func TestAdaptiveCutoff_DropsBelowRatio(t *testing.T) {
	deals := []Deal{
		{OfferID: "1", Score: 1.0},
		{OfferID: "2", Score: 0.6},
		{OfferID: "3", Score: 0.1},
	}
	// top=1.0 >= threshold(0.5) -> ratio 0.4 -> cutoff 0.4
	out := AdaptiveCutoff(deals, 10, 0.5, 0.4, 0.7)
	if len(out) != 2 {
		t.Fatalf("expected 2 deals above cutoff 0.4, got %d", len(out))
	}
}

func TestAdaptiveCutoff_StricterRatioWhenTopBelowThreshold(t *testing.T) {
	deals := []Deal{
		{OfferID: "1", Score: 0.4},
		{OfferID: "2", Score: 0.29}, // just above the 0.4*0.7=0.28 cutoff, so kept
	}
	out := AdaptiveCutoff(deals, 10, 0.5, 0.4, 0.7)
	// top=0.4 < threshold(0.5) -> ratio 0.7 -> cutoff 0.28
	if len(out) != 2 {
		t.Errorf("expected both deals retained at cutoff 0.28, got %d", len(out))
	}
}

func TestAdaptiveCutoff_RespectsTopK(t *testing.T) {
	deals := []Deal{
		{OfferID: "1", Score: 1.0},
		{OfferID: "2", Score: 0.9},
		{OfferID: "3", Score: 0.8},
	}
	out := AdaptiveCutoff(deals, 2, 0.5, 0.4, 0.7)
	if len(out) != 2 {
		t.Errorf("expected top_k=2 truncation, got %d", len(out))
	}
}
