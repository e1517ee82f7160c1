package mcptool

import (
	"strconv"
	"time"

	"github.com/krishnaw/dealsearch/internal/fusion"
	"github.com/krishnaw/dealsearch/internal/record"
)

// expiryWindows maps the tool's "today"/"week"/"month" filter names to
// the maximum number of days until expiry, per spec.md §4.6.2.
var expiryWindows = map[string]int{
	"today": 0,
	"week":  7,
	"month": 30,
}

// buildAllDeals groups every record in rs by offer_id, in first-seen
// (ingestion) order, with no score and no ranking. This is the wildcard
// browse convention (SPEC_FULL.md Part D.3): query "*" means "skip the
// core's relevance ranking entirely and take the full deal list as
// build order," not "run the core search with a literal asterisk."
func buildAllDeals(rs *record.RecordSet) []fusion.Deal {
	type group struct {
		deal fusion.Deal
	}
	groups := make(map[string]*group)
	var order []string

	for _, r := range rs.Records {
		g, ok := groups[r.OfferID]
		if !ok {
			g = &group{deal: fusion.Deal{
				OfferID:          r.OfferID,
				OfferName:        r.OfferName,
				OfferPrice:       r.OfferPrice,
				OfferDescription: r.OfferDescription,
				OfferCategory:    r.OfferCategory,
				OfferProgram:     r.OfferProgram,
				EndDate:          r.EndDate,
			}}
			groups[r.OfferID] = g
			order = append(order, r.OfferID)
		}
		if r.ProductName != "" {
			g.deal.MatchingProducts = append(g.deal.MatchingProducts, r)
		}
	}

	deals := make([]fusion.Deal, 0, len(order))
	for _, id := range order {
		deals = append(deals, groups[id].deal)
	}
	return deals
}

// daysUntilExpiry parses endDate as an epoch-milliseconds string and
// returns the whole number of days until it elapses, floored at zero.
// Returns false when endDate is empty or unparseable; filterByExpiry
// drops such deals whenever an expiry window is requested.
func daysUntilExpiry(endDate string, now time.Time) (int, bool) {
	if endDate == "" {
		return 0, false
	}
	endMs, err := strconv.ParseInt(endDate, 10, 64)
	if err != nil {
		return 0, false
	}
	nowMs := now.UnixMilli()
	diffDays := float64(endMs-nowMs) / float64(24*time.Hour/time.Millisecond)
	days := int(diffDays)
	if days < 0 {
		days = 0
	}
	return days, true
}

// filterByExpiry keeps only deals whose days-until-expiry is within
// window (spec.md §4.6.2: "retains deals with days ≤ window"). Deals
// with no parseable end date are dropped when a window is requested,
// since "expiring within N days" can't be claimed for an unknown date.
// An empty window name applies no filter and returns deals unchanged.
func filterByExpiry(deals []fusion.Deal, window string, now time.Time) []fusion.Deal {
	maxDays, ok := expiryWindows[window]
	if !ok {
		return deals
	}

	kept := deals[:0:0]
	for _, d := range deals {
		days, hasDate := daysUntilExpiry(d.EndDate, now)
		if hasDate && days <= maxDays {
			kept = append(kept, d)
		}
	}
	return kept
}
