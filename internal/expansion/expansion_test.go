package expansion

import (
	"context"
	"errors"
	"testing"

	"github.com/krishnaw/dealsearch/internal/config"
	"github.com/krishnaw/dealsearch/internal/fusion"
	"github.com/krishnaw/dealsearch/internal/record"
	"github.com/krishnaw/dealsearch/internal/search"
)

type fakeSearcher struct {
	byQuery map[string][]fusion.Deal
	err     error
	calls   []string
}

func (f *fakeSearcher) Search(ctx context.Context, query string, rs *record.RecordSet, opts search.Options) ([]fusion.Deal, error) {
	f.calls = append(f.calls, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.byQuery[query], nil
}

type fakeProvider struct {
	terms []string
	err   error
}

func (f *fakeProvider) Name() string { return "fake" }
func (f *fakeProvider) Expand(ctx context.Context, query string) ([]string, error) {
	return f.terms, f.err
}

func testRanking() config.RankingConfig {
	return config.RankingConfig{
		DefaultTopK:          10,
		ExpansionCutoffRatio: 0.45,
		ExpansionHitBonus:    0.1,
		ExpansionHitBonusCap: 3,
	}
}

func TestSearch_EmptyQueryReturnsEmpty(t *testing.T) {
	fs := &fakeSearcher{}
	a := New(fs, &fakeProvider{}, testRanking(), 128)

	deals, err := a.Search(context.Background(), "   ", nil, search.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deals != nil {
		t.Errorf("expected nil deals, got %v", deals)
	}
}

func TestSearch_SingleWordQuerySkipsProvider(t *testing.T) {
	fs := &fakeSearcher{byQuery: map[string][]fusion.Deal{"milk": {{OfferID: "1", Score: 2.0}}}}
	provider := &fakeProvider{terms: []string{"should not be called"}}
	a := New(fs, provider, testRanking(), 128)

	deals, err := a.Search(context.Background(), "milk", nil, search.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deals) != 1 || deals[0].OfferID != "1" {
		t.Fatalf("expected passthrough single deal, got %v", deals)
	}
	if len(fs.calls) != 1 || fs.calls[0] != "milk" {
		t.Errorf("expected exactly one search call for the raw query, got %v", fs.calls)
	}
}

func TestSearch_PassDeclineSkipsExpansion(t *testing.T) {
	fs := &fakeSearcher{byQuery: map[string][]fusion.Deal{"whole milk gallon": {{OfferID: "1", Score: 2.0}}}}
	provider := &fakeProvider{terms: nil}
	a := New(fs, provider, testRanking(), 128)

	deals, err := a.Search(context.Background(), "whole milk gallon", nil, search.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deals) != 1 {
		t.Fatalf("expected 1 deal, got %d", len(deals))
	}
	if len(fs.calls) != 1 {
		t.Errorf("expected only the original query to be searched, got %v", fs.calls)
	}
}

func TestSearch_MergesExpandedTermsAndAppliesHitBonus(t *testing.T) {
	fs := &fakeSearcher{byQuery: map[string][]fusion.Deal{
		"cupcakes": {
			{OfferID: "cake", Score: 1.5},
			{OfferID: "cupcake-mix", Score: 0.9},
		},
		"balloons": {
			{OfferID: "cake", Score: 1.2},
			{OfferID: "balloons", Score: 0.8},
		},
	}}
	provider := &fakeProvider{terms: []string{"cupcakes", "balloons"}}
	a := New(fs, provider, testRanking(), 128)

	deals, err := a.Search(context.Background(), "kids birthday party", nil, search.Options{TopK: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var cake *fusion.Deal
	for i := range deals {
		if deals[i].OfferID == "cake" {
			cake = &deals[i]
		}
	}
	if cake == nil {
		t.Fatal("expected cake offer in merged results")
	}
	// hit by both expanded terms: bonus = 1 + 0.1*min(1,3) = 1.1, max score 1.5
	want := 1.5 * 1.1
	if cake.Score < want-1e-9 || cake.Score > want+1e-9 {
		t.Errorf("expected boosted score %v, got %v", want, cake.Score)
	}

	if len(fs.calls) != 2 {
		t.Errorf("expected 2 underlying searches (one per expanded term, not the original NL query), got %v", fs.calls)
	}
}

func TestSearch_ProviderErrorFallsBackToPlainSearch(t *testing.T) {
	fs := &fakeSearcher{byQuery: map[string][]fusion.Deal{"milk and eggs": {{OfferID: "1", Score: 1.0}}}}
	provider := &fakeProvider{err: errors.New("ollama unavailable")}
	a := New(fs, provider, testRanking(), 128)

	deals, err := a.Search(context.Background(), "milk and eggs", nil, search.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deals) != 1 {
		t.Fatalf("expected fallback to plain search, got %v", deals)
	}
}

func TestSearch_RetrieverErrorPropagates(t *testing.T) {
	fs := &fakeSearcher{err: errors.New("boom")}
	a := New(fs, &fakeProvider{}, testRanking(), 128)

	_, err := a.Search(context.Background(), "milk", nil, search.Options{})
	if err == nil {
		t.Error("expected retriever error to propagate")
	}
}

func TestSearch_CutoffDropsLowScoringOffers(t *testing.T) {
	fs := &fakeSearcher{byQuery: map[string][]fusion.Deal{
		"cake mix": {
			{OfferID: "a", Score: 10.0},
			{OfferID: "b", Score: 1.0}, // well below 0.45*10
		},
		"snacks": {},
	}}
	provider := &fakeProvider{terms: []string{"cake mix", "snacks"}}
	a := New(fs, provider, testRanking(), 128)

	deals, err := a.Search(context.Background(), "birthday party", nil, search.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, d := range deals {
		if d.OfferID == "b" {
			t.Errorf("expected low-scoring offer b to be cut off, got %v", deals)
		}
	}
}

func TestTermCache_EvictsOldestBeyondCapacity(t *testing.T) {
	c := newTermCache(2)
	c.Put("a", []string{"1"})
	c.Put("b", []string{"2"})
	c.Put("c", []string{"3"})

	if _, ok := c.Get("a"); ok {
		t.Error("expected oldest entry to be evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to still be cached")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to still be cached")
	}
}

func TestTermCache_GetRefreshesRecency(t *testing.T) {
	c := newTermCache(2)
	c.Put("a", []string{"1"})
	c.Put("b", []string{"2"})
	c.Get("a") // a is now most-recently-used
	c.Put("c", []string{"3"})

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted instead of a")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to survive due to recent access")
	}
}
