package retrieval

import (
	"testing"

	"github.com/krishnaw/dealsearch/internal/record"
)

func buildRS(offerNames ...string) *record.RecordSet {
	var recs []*record.Record
	for i, n := range offerNames {
		recs = append(recs, &record.Record{OfferID: string(rune('a' + i)), OfferName: n})
	}
	return record.NewRecordSet(recs)
}

func TestPartialRatio_IdenticalStringsScore100(t *testing.T) {
	if r := partialRatio("chocolate", "chocolate"); r != 100 {
		t.Errorf("identical strings should score 100, got %v", r)
	}
}

func TestPartialRatio_TypoScoresHighButBelow100(t *testing.T) {
	r := partialRatio("choclate", "chocolate")
	if r <= 60 || r >= 100 {
		t.Errorf("typo partial ratio should be strictly between 60 and 100, got %v", r)
	}
}

func TestPartialRatio_UnrelatedStringsScoreLow(t *testing.T) {
	r := partialRatio("zzzzz", "chocolate")
	if r >= 60 {
		t.Errorf("unrelated strings should score below 60, got %v", r)
	}
}

func TestFuzzySearch_DropsBelowThreshold(t *testing.T) {
	rs := buildRS("Chocolate Bar", "Totally Unrelated Item")
	hits := FuzzySearch("chocolate", rs, DefaultFuzzyThreshold, 10)
	for _, h := range hits {
		if h.Score < DefaultFuzzyThreshold {
			t.Errorf("hit below threshold leaked through: %+v", h)
		}
	}
	if len(hits) != 1 {
		t.Errorf("expected exactly 1 hit above threshold, got %d", len(hits))
	}
}

func TestFuzzySearch_SortedDescending(t *testing.T) {
	rs := buildRS("Chocolate Bar", "Choclate Bar", "Milk")
	hits := FuzzySearch("chocolate", rs, 0, 10)
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Errorf("hits not sorted descending at index %d", i)
		}
	}
}
