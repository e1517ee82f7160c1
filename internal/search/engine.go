// Package search wires the three retrievers and the fusion pipeline into
// the single public operation spec.md §6 describes: given a query, a
// record set, and an encoder, return a ranked Deal list.
package search

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/krishnaw/dealsearch/internal/fusion"
	"github.com/krishnaw/dealsearch/internal/observability"
	"github.com/krishnaw/dealsearch/internal/record"
	"github.com/krishnaw/dealsearch/internal/retrieval"
)

var log = observability.Logger("search")

// Options configures one Search call.
type Options struct {
	TopK int // 0 means use the engine's configured default.
}

// Engine owns the fan-out worker pool and the ranking weights. It holds
// no reference to any particular RecordSet — RecordSet is passed to
// Search per call, since spec.md's Record Store and Corpus Index are
// immutable and reusable across many concurrently interleaved queries on
// the same pool.
//
// Per spec.md §9(c), the worker pool is explicitly owned by the Engine
// the caller constructs, not a package-level global singleton.
type Engine struct {
	encoder     retrieval.Encoder
	weights     fusion.Weights
	defaultTopK int

	pool *workerPool
}

// New constructs an Engine with its own 3-worker fan-out pool (spec.md
// §4.4/§5: a fixed-size pool, created once, reused across every query).
func New(encoder retrieval.Encoder, weights fusion.Weights, defaultTopK int) *Engine {
	return &Engine{
		encoder:     encoder,
		weights:     weights,
		defaultTopK: defaultTopK,
		pool:        newWorkerPool(3),
	}
}

// Close releases the fan-out pool. Call once when the engine is no
// longer needed.
func (e *Engine) Close() {
	e.pool.Close()
}

// ErrRetrieverFailed wraps the first retriever error the fan-out executor
// observes (spec.md §7: "retriever failure is fatal to the query").
type ErrRetrieverFailed struct {
	Retriever string
	Err       error
}

func (e *ErrRetrieverFailed) Error() string {
	return fmt.Sprintf("search: %s retriever failed: %v", e.Retriever, e.Err)
}

func (e *ErrRetrieverFailed) Unwrap() error { return e.Err }

// Search implements spec.md §6's public search operation. An empty query
// (after trimming) returns an empty, non-error result, per spec.md §7.
func (e *Engine) Search(ctx context.Context, query string, rs *record.RecordSet, opts Options) ([]fusion.Deal, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, nil
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = e.defaultTopK
	}
	fetchK := topK * 10
	if fetchK < 500 {
		fetchK = 500
	}

	logger := observability.WithQueryID(log, newQueryID())
	observability.LogEvent(logger, observability.EventSearchStart, map[string]interface{}{"query": trimmed, "top_k": topK})

	kwHits, fzHits, smHits, err := e.fanOut(ctx, trimmed, rs, fetchK)
	if err != nil {
		observability.LogError(logger, err, "retriever failed", nil)
		return nil, err
	}

	idx := record.Index(rs)
	if fusion.GibberishGate(trimmed, kwHits, fzHits, idx.Vocabulary, e.weights.FuzzyStrongThreshold) {
		observability.LogEvent(logger, observability.EventSearchComplete, map[string]interface{}{"results": 0, "gibberish": true})
		return nil, nil
	}

	scores := fusion.Fuse(kwHits, fzHits, smHits, e.weights)
	deals := fusion.GroupByOffer(scores)
	deals = fusion.ApplyDensityPenalty(deals, kwHits, fzHits, idx.OfferProductCounts, e.weights)
	deals = fusion.ApplyOfferNameBoost(deals, trimmed, e.weights.OfferNameBoost, e.weights.FuzzyStrongThreshold)
	deals = fusion.AdaptiveCutoff(deals, topK, e.weights.CutoffScoreThreshold, e.weights.CutoffRatioHigh, e.weights.CutoffRatioLow)

	observability.LogEvent(logger, observability.EventSearchComplete, map[string]interface{}{"results": len(deals)})
	return deals, nil
}

// fanOut runs the three retrievers concurrently on the engine's owned
// pool, waits for all of them, and returns the first error if any
// failed. Fan-out itself is not observable to the caller — only this
// joined, deterministic result is (spec.md §4.4).
func (e *Engine) fanOut(ctx context.Context, query string, rs *record.RecordSet, fetchK int) (kw, fz, sm []retrieval.Hit, err error) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	setErr := func(name string, cause error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = &ErrRetrieverFailed{Retriever: name, Err: cause}
		}
	}

	wg.Add(3)

	e.pool.Submit(func() {
		defer wg.Done()
		kw = retrieval.KeywordSearch(query, rs.Records, fetchK)
	})

	e.pool.Submit(func() {
		defer wg.Done()
		fz = retrieval.FuzzySearch(query, rs, retrieval.DefaultFuzzyThreshold, fetchK)
	})

	e.pool.Submit(func() {
		defer wg.Done()
		hits, serr := retrieval.SemanticSearch(ctx, query, rs, e.encoder, fetchK)
		if serr != nil {
			setErr("semantic", serr)
			return
		}
		sm = hits
	})

	wg.Wait()

	if firstErr != nil {
		return nil, nil, nil, firstErr
	}
	return kw, fz, sm, nil
}
