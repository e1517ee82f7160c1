package retrieval

import (
	"testing"

	"github.com/krishnaw/dealsearch/internal/record"
)

func newRec(offerName, productName, desc, category string) *record.Record {
	r := &record.Record{OfferID: "o", OfferName: offerName, ProductName: productName, OfferDescription: desc, OfferCategory: category}
	rs := record.NewRecordSet([]*record.Record{r})
	return rs.Records[0]
}

func TestKeywordSearch_EmptyQueryReturnsEmpty(t *testing.T) {
	r := newRec("Milk Special", "", "", "")
	hits := KeywordSearch("   ", []*record.Record{r}, 10)
	if hits != nil {
		t.Errorf("expected nil hits for empty query, got %v", hits)
	}
}

func TestKeywordSearch_ConjunctiveAdmission(t *testing.T) {
	milk := newRec("Milk Special", "Whole Milk", "", "Dairy")
	bread := newRec("Bread Deal", "Wheat Bread", "", "Bakery")

	hits := KeywordSearch("milk special", []*record.Record{milk, bread}, 10)
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit (conjunctive admission excludes bread), got %d", len(hits))
	}
	if hits[0].Record != milk {
		t.Error("expected milk record to match")
	}
}

func TestKeywordSearch_WholeWordBonusRanksHigher(t *testing.T) {
	exact := newRec("Milk Special", "", "", "")
	substr := newRec("Buttermilk Special", "", "", "")

	hits := KeywordSearch("milk", []*record.Record{exact, substr}, 10)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Record != exact {
		t.Errorf("expected whole-word match to rank first, scores: %+v", hits)
	}
	if hits[0].Score <= hits[1].Score {
		t.Errorf("whole-word score %v should exceed substring score %v", hits[0].Score, hits[1].Score)
	}
}

func TestKeywordSearch_ScoreWithinUnitRange(t *testing.T) {
	r := newRec("Milk Special Deal", "Whole Milk", "Special milk deal", "Dairy")
	hits := KeywordSearch("milk special", []*record.Record{r}, 10)
	if len(hits) != 1 {
		t.Fatal("expected a hit")
	}
	if hits[0].Score <= 0 || hits[0].Score > 1.0001 {
		t.Errorf("score out of [0,1] range: %v", hits[0].Score)
	}
}

func TestKeywordSearch_TopKTruncates(t *testing.T) {
	var recs []*record.Record
	for i := 0; i < 5; i++ {
		recs = append(recs, newRec("Milk Deal", "", "", ""))
	}
	hits := KeywordSearch("milk", recs, 2)
	if len(hits) != 2 {
		t.Errorf("expected top_k=2 truncation, got %d", len(hits))
	}
}
