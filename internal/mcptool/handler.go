package mcptool

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/krishnaw/dealsearch/internal/config"
	"github.com/krishnaw/dealsearch/internal/fusion"
	"github.com/krishnaw/dealsearch/internal/observability"
	"github.com/krishnaw/dealsearch/internal/record"
	"github.com/krishnaw/dealsearch/internal/search"
)

// searcher is the subset of search.Engine (or internal/expansion.Adapter,
// when query expansion is enabled) the tool wrapper depends on.
type searcher interface {
	Search(ctx context.Context, query string, rs *record.RecordSet, opts search.Options) ([]fusion.Deal, error)
}

// Handler provides the search_deals MCP tool backed by a core search
// engine (or expansion-wrapped engine) and a fixed record set.
type Handler struct {
	engine      searcher
	recordSet   *record.RecordSet
	defaultTopK int
	maxTopK     int
	logger      zerolog.Logger
}

// NewHandler wraps engine and recordSet as an MCP tool handler. recordSet
// is fixed for the handler's lifetime — a new catalog requires a new
// Handler, same as spec.md §6's record set is immutable once built.
func NewHandler(engine searcher, recordSet *record.RecordSet, cfg config.MCPConfig) *Handler {
	defaultTopK := cfg.DefaultTopK
	if defaultTopK <= 0 {
		defaultTopK = 10
	}
	maxTopK := cfg.MaxTopK
	if maxTopK <= 0 {
		maxTopK = 50
	}
	return &Handler{
		engine:      engine,
		recordSet:   recordSet,
		defaultTopK: defaultTopK,
		maxTopK:     maxTopK,
		logger:      observability.Logger("mcptool"),
	}
}

// SearchDeals handles the search_deals MCP tool call: dedupe merged
// results by offer_id keeping the highest-scoring variant, optionally
// filter by expiry window, and preserve the core's ordering thereafter
// (spec.md §4.6.2).
func (h *Handler) SearchDeals(
	ctx context.Context, req *mcp.CallToolRequest,
	input SearchDealsInput,
) (*mcp.CallToolResult, SearchDealsOutput, error) {

	observability.LogEvent(h.logger, observability.EventMCPToolCalled, map[string]interface{}{
		"query": input.Query, "expiry": input.Expiry,
	})

	topK := input.TopK
	if topK <= 0 {
		topK = h.defaultTopK
	}
	if topK > h.maxTopK {
		topK = h.maxTopK
	}

	var deals []fusion.Deal
	if input.Query == "*" {
		deals = buildAllDeals(h.recordSet)
	} else {
		var err error
		deals, err = h.engine.Search(ctx, input.Query, h.recordSet, search.Options{TopK: topK})
		if err != nil {
			return nil, SearchDealsOutput{}, fmt.Errorf("mcptool: search_deals: %w", err)
		}
	}

	deals = dedupeByOffer(deals)

	if input.Expiry != "" {
		deals = filterByExpiry(deals, input.Expiry, time.Now())
	}

	if len(deals) > topK {
		deals = deals[:topK]
	}

	results := make([]DealResult, 0, len(deals))
	for _, d := range deals {
		results = append(results, newDealResult(d))
	}

	return nil, SearchDealsOutput{Deals: results, Total: len(results)}, nil
}

// dedupeByOffer collapses duplicate offer_id entries, keeping the
// highest-scoring variant and preserving first-seen order — the
// defensive boundary check spec.md §4.6.2 asks of the wrapper, on top
// of (not instead of) the core's own per-query grouping.
func dedupeByOffer(deals []fusion.Deal) []fusion.Deal {
	best := make(map[string]int, len(deals))
	var order []string
	for i, d := range deals {
		if existing, ok := best[d.OfferID]; ok {
			if d.Score > deals[existing].Score {
				best[d.OfferID] = i
			}
			continue
		}
		best[d.OfferID] = i
		order = append(order, d.OfferID)
	}

	kept := make([]fusion.Deal, 0, len(order))
	for _, id := range order {
		kept = append(kept, deals[best[id]])
	}
	return kept
}
