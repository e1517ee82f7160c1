// Package expansion implements the query-expansion adapter: an optional
// layer in front of search.Engine that asks an AI provider for related
// grocery terms, searches each of them independently, and merges the
// results by offer with a term-hit bonus before applying its own
// adaptive cutoff. Disabled (falls back to a single unexpanded search)
// whenever the provider returns an error or declines to expand.
package expansion

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/krishnaw/dealsearch/internal/ai"
	"github.com/krishnaw/dealsearch/internal/config"
	"github.com/krishnaw/dealsearch/internal/fusion"
	"github.com/krishnaw/dealsearch/internal/observability"
	"github.com/krishnaw/dealsearch/internal/record"
	"github.com/krishnaw/dealsearch/internal/search"
)

// searcher is the subset of search.Engine the adapter depends on, kept
// narrow so tests can fake it without a real encoder or worker pool.
type searcher interface {
	Search(ctx context.Context, query string, rs *record.RecordSet, opts search.Options) ([]fusion.Deal, error)
}

// Adapter wraps a search.Engine with query expansion.
type Adapter struct {
	engine   searcher
	provider ai.Provider
	cache    *termCache
	logger   zerolog.Logger

	defaultTopK int
	hitBonus    float64
	hitBonusCap int
	cutoffRatio float64
}

// New builds an Adapter. provider may be nil, in which case Search always
// behaves as a plain, unexpanded search.
func New(engine searcher, provider ai.Provider, ranking config.RankingConfig, cacheSize int) *Adapter {
	return &Adapter{
		engine:      engine,
		provider:    provider,
		cache:       newTermCache(cacheSize),
		logger:      observability.Logger("expansion"),
		defaultTopK: ranking.DefaultTopK,
		hitBonus:    ranking.ExpansionHitBonus,
		hitBonusCap: ranking.ExpansionHitBonusCap,
		cutoffRatio: ranking.ExpansionCutoffRatio,
	}
}

// Search expands query into concrete product terms and runs the core
// search once per term, merging results by offer (keeping the max score
// per offer and rewarding offers matched by more than one term). If
// expansion yields no terms — a single-token query, a provider PASS, or
// a provider error — it falls through to a single direct search on the
// original query instead.
func (a *Adapter) Search(ctx context.Context, query string, rs *record.RecordSet, opts search.Options) ([]fusion.Deal, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, nil
	}

	terms := a.expand(ctx, trimmed)
	if len(terms) == 0 {
		return a.engine.Search(ctx, trimmed, rs, opts)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = a.defaultTopK
	}
	fetchOpts := search.Options{TopK: topK * 5}

	type merged struct {
		deal fusion.Deal
		hits int
	}
	byOffer := make(map[string]*merged)

	for _, q := range terms {
		results, err := a.engine.Search(ctx, q, rs, fetchOpts)
		if err != nil {
			return nil, err
		}
		for _, d := range results {
			if existing, ok := byOffer[d.OfferID]; ok {
				existing.hits++
				if d.Score > existing.deal.Score {
					existing.deal = d
				}
			} else {
				byOffer[d.OfferID] = &merged{deal: d, hits: 1}
			}
		}
	}

	deals := make([]fusion.Deal, 0, len(byOffer))
	for _, m := range byOffer {
		d := m.deal
		if m.hits >= 2 {
			bonus := 1 + a.hitBonus*float64(min(m.hits-1, a.hitBonusCap))
			if bonus > 1.3 {
				bonus = 1.3
			}
			d.Score *= bonus
		}
		deals = append(deals, d)
	}

	sort.SliceStable(deals, func(i, j int) bool { return deals[i].Score > deals[j].Score })
	if len(deals) > topK {
		deals = deals[:topK]
	}
	return applyCutoff(deals, a.cutoffRatio), nil
}

// expand asks the provider for terms related to query, short-circuiting
// for single-token queries (nothing useful to expand) and consulting the
// LRU cache before making a request. A provider error or PASS response
// is treated identically: no expansion, plain search only.
func (a *Adapter) expand(ctx context.Context, query string) []string {
	if a.provider == nil {
		return nil
	}
	if !strings.ContainsAny(query, " \t\n") {
		return nil
	}

	if cached, ok := a.cache.Get(query); ok {
		return cached
	}

	terms, err := a.provider.Expand(ctx, query)
	if err != nil {
		observability.LogEvent(a.logger, observability.EventExpansionFallback, map[string]interface{}{
			"query": query, "error": err.Error(),
		})
		return nil
	}

	a.cache.Put(query, terms)
	observability.LogEvent(a.logger, observability.EventExpansionRequest, map[string]interface{}{
		"query": query, "terms": len(terms),
	})
	return terms
}

// applyCutoff keeps only deals whose score is within ratio of the top
// score, per spec's expansion-specific (flat, single-ratio) cutoff —
// distinct from the core's threshold-dependent high/low ratio cutoff.
func applyCutoff(deals []fusion.Deal, ratio float64) []fusion.Deal {
	if len(deals) == 0 {
		return deals
	}
	cutoff := deals[0].Score * ratio
	kept := deals[:0:0]
	for _, d := range deals {
		if d.Score >= cutoff {
			kept = append(kept, d)
		}
	}
	return kept
}
