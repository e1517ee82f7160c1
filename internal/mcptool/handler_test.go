package mcptool

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/krishnaw/dealsearch/internal/config"
	"github.com/krishnaw/dealsearch/internal/fusion"
	"github.com/krishnaw/dealsearch/internal/record"
	"github.com/krishnaw/dealsearch/internal/search"
)

type fakeEngine struct {
	deals []fusion.Deal
	err   error
	calls []string
}

func (f *fakeEngine) Search(ctx context.Context, query string, rs *record.RecordSet, opts search.Options) ([]fusion.Deal, error) {
	f.calls = append(f.calls, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.deals, nil
}

func testMCPConfig() config.MCPConfig {
	return config.MCPConfig{DefaultTopK: 10, MaxTopK: 50}
}

func TestSearchDeals_DelegatesToEngineForNonWildcardQuery(t *testing.T) {
	fe := &fakeEngine{deals: []fusion.Deal{{OfferID: "1", Score: 2.0}}}
	h := NewHandler(fe, record.NewRecordSet(nil), testMCPConfig())

	_, out, err := h.SearchDeals(context.Background(), nil, SearchDealsInput{Query: "milk"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Total != 1 || out.Deals[0].OfferID != "1" {
		t.Fatalf("expected passthrough deal, got %v", out)
	}
	if len(fe.calls) != 1 || fe.calls[0] != "milk" {
		t.Errorf("expected engine to be called with the raw query, got %v", fe.calls)
	}
}

func TestSearchDeals_WildcardSkipsEngineAndUsesBuildOrder(t *testing.T) {
	fe := &fakeEngine{}
	rs := record.NewRecordSet([]*record.Record{
		{OfferID: "a", OfferName: "Apples"},
		{OfferID: "b", OfferName: "Bread"},
	})
	h := NewHandler(fe, rs, testMCPConfig())

	_, out, err := h.SearchDeals(context.Background(), nil, SearchDealsInput{Query: "*"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fe.calls) != 0 {
		t.Errorf("expected wildcard query to skip the ranking engine entirely, got calls %v", fe.calls)
	}
	if out.Total != 2 {
		t.Fatalf("expected both offers in build order, got %v", out)
	}
}

func TestSearchDeals_DedupesByOfferKeepingHighestScore(t *testing.T) {
	fe := &fakeEngine{deals: []fusion.Deal{
		{OfferID: "1", Score: 1.0},
		{OfferID: "1", Score: 5.0},
		{OfferID: "2", Score: 2.0},
	}}
	h := NewHandler(fe, record.NewRecordSet(nil), testMCPConfig())

	_, out, err := h.SearchDeals(context.Background(), nil, SearchDealsInput{Query: "milk"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Total != 2 {
		t.Fatalf("expected deduped result set of 2, got %d", out.Total)
	}
	for _, d := range out.Deals {
		if d.OfferID == "1" && d.Score != 5.0 {
			t.Errorf("expected offer 1 to keep its highest score, got %v", d.Score)
		}
	}
}

func TestSearchDeals_AppliesExpiryFilterAfterDedup(t *testing.T) {
	now := time.Now()
	soon := strconv.FormatInt(now.Add(2*time.Hour).UnixMilli(), 10)
	later := strconv.FormatInt(now.Add(20*24*time.Hour).UnixMilli(), 10)

	fe := &fakeEngine{deals: []fusion.Deal{
		{OfferID: "soon", Score: 1.0, EndDate: soon},
		{OfferID: "later", Score: 1.0, EndDate: later},
	}}
	h := NewHandler(fe, record.NewRecordSet(nil), testMCPConfig())

	_, out, err := h.SearchDeals(context.Background(), nil, SearchDealsInput{Query: "milk", Expiry: "today"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Total != 1 || out.Deals[0].OfferID != "soon" {
		t.Fatalf("expected only the same-day offer to survive the expiry filter, got %v", out)
	}
}

func TestSearchDeals_EngineErrorPropagates(t *testing.T) {
	fe := &fakeEngine{err: errors.New("boom")}
	h := NewHandler(fe, record.NewRecordSet(nil), testMCPConfig())

	if _, _, err := h.SearchDeals(context.Background(), nil, SearchDealsInput{Query: "milk"}); err == nil {
		t.Error("expected engine error to propagate")
	}
}

func TestSearchDeals_TopKCappedByMaxTopK(t *testing.T) {
	deals := make([]fusion.Deal, 0, 5)
	for i := 0; i < 5; i++ {
		deals = append(deals, fusion.Deal{OfferID: strconv.Itoa(i), Score: float64(i)})
	}
	fe := &fakeEngine{deals: deals}
	h := NewHandler(fe, record.NewRecordSet(nil), config.MCPConfig{DefaultTopK: 10, MaxTopK: 3})

	_, out, err := h.SearchDeals(context.Background(), nil, SearchDealsInput{Query: "milk"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Total != 3 {
		t.Errorf("expected result truncated to max_top_k=3, got %d", out.Total)
	}
}
