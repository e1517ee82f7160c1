package mcptool

import (
	"strconv"
	"testing"
	"time"

	"github.com/krishnaw/dealsearch/internal/fusion"
	"github.com/krishnaw/dealsearch/internal/record"
)

func itoa64(v int64) string { return strconv.FormatInt(v, 10) }

func TestBuildAllDeals_GroupsByOfferInBuildOrder(t *testing.T) {
	rs := record.NewRecordSet([]*record.Record{
		{OfferID: "b", OfferName: "Bread", ProductName: "Wheat Bread"},
		{OfferID: "a", OfferName: "Apples", ProductName: "Gala Apples"},
		{OfferID: "b", OfferName: "Bread", ProductName: "Rye Bread"},
	})

	deals := buildAllDeals(rs)
	if len(deals) != 2 {
		t.Fatalf("expected 2 deals, got %d", len(deals))
	}
	if deals[0].OfferID != "b" || deals[1].OfferID != "a" {
		t.Errorf("expected build order [b, a], got %v", []string{deals[0].OfferID, deals[1].OfferID})
	}
	if len(deals[0].MatchingProducts) != 2 {
		t.Errorf("expected offer b to collect both products, got %d", len(deals[0].MatchingProducts))
	}
	for _, d := range deals {
		if d.Score != 0 {
			t.Errorf("expected unranked browse deals to carry no score, got %v", d.Score)
		}
	}
}

func TestDaysUntilExpiry_NoDateReturnsFalse(t *testing.T) {
	if _, ok := daysUntilExpiry("", time.Now()); ok {
		t.Error("expected no expiry for empty end date")
	}
	if _, ok := daysUntilExpiry("not-a-number", time.Now()); ok {
		t.Error("expected no expiry for unparseable end date")
	}
}

func TestDaysUntilExpiry_ComputesWholeDays(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	endMs := now.Add(3*24*time.Hour + time.Hour).UnixMilli()

	days, ok := daysUntilExpiry(itoa64(endMs), now)
	if !ok {
		t.Fatal("expected a valid expiry")
	}
	if days != 3 {
		t.Errorf("expected 3 days until expiry, got %d", days)
	}
}

func TestDaysUntilExpiry_PastDateFloorsAtZero(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	endMs := now.Add(-48 * time.Hour).UnixMilli()

	days, ok := daysUntilExpiry(itoa64(endMs), now)
	if !ok {
		t.Fatal("expected a valid expiry")
	}
	if days != 0 {
		t.Errorf("expected expired deal to floor at 0 days, got %d", days)
	}
}

func TestFilterByExpiry_TodayKeepsOnlyZeroDayDeals(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	deals := []fusion.Deal{
		{OfferID: "expires-today", EndDate: itoa64(now.Add(1 * time.Hour).UnixMilli())},
		{OfferID: "expires-next-week", EndDate: itoa64(now.Add(5 * 24 * time.Hour).UnixMilli())},
		{OfferID: "no-end-date"},
	}

	filtered := filterByExpiry(deals, "today", now)
	if len(filtered) != 1 || filtered[0].OfferID != "expires-today" {
		t.Errorf("expected only the same-day deal to survive, got %v", filtered)
	}
}

func TestFilterByExpiry_EmptyWindowIsNoOp(t *testing.T) {
	deals := []fusion.Deal{{OfferID: "a"}, {OfferID: "b"}}
	filtered := filterByExpiry(deals, "", time.Now())
	if len(filtered) != 2 {
		t.Errorf("expected unfiltered passthrough, got %v", filtered)
	}
}
