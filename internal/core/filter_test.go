package core

import (
	"testing"
	"time"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestFilter_MatchSale(t *testing.T) {
	sale := Sale{
		Date:          date(2025, 3, 15),
		Amount:        Money{Cents: 5000},
		Location:      "Downtown",
		Category:      "Membership",
		Product:       "Monthly Pass",
		Seller:        "alice",
		PaymentMethod: "Card",
	}

	cases := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter matches", Filter{}, true},
		{"date range inside", Filter{From: date(2025, 3, 1), To: date(2025, 3, 31)}, true},
		{"date before range", Filter{From: date(2025, 4, 1)}, false},
		{"date after range", Filter{To: date(2025, 2, 28)}, false},
		{"location match is case-insensitive", Filter{Location: "downtown"}, true},
		{"location mismatch", Filter{Location: "Uptown"}, false},
		{"category match", Filter{Category: "Membership"}, true},
		{"product mismatch", Filter{Product: "Day Pass"}, false},
		{"seller match", Filter{Seller: "Alice"}, true},
		{"payment method mismatch", Filter{PaymentMethod: "Cash"}, false},
		{"combined dimensions", Filter{Location: "Downtown", Category: "Membership", From: date(2025, 1, 1)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.filter.MatchSale(sale); got != tc.want {
				t.Errorf("MatchSale = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFilter_MatchSession(t *testing.T) {
	sess := Session{Date: date(2025, 3, 15), ClassType: "Yoga", Location: "Downtown"}

	if !(Filter{Location: "Downtown"}).MatchSession(sess) {
		t.Error("expected location match")
	}
	if (Filter{Location: "Uptown"}).MatchSession(sess) {
		t.Error("expected location mismatch")
	}
	// Category only applies to sales; sessions ignore it.
	if !(Filter{Category: "Membership"}).MatchSession(sess) {
		t.Error("category filter should not constrain sessions")
	}
}

func TestFilter_MatchClientAndLead(t *testing.T) {
	f := Filter{From: date(2025, 1, 1), To: date(2025, 6, 30)}

	if !f.MatchClient(Client{FirstVisit: date(2025, 2, 1)}) {
		t.Error("expected client inside range to match")
	}
	if f.MatchClient(Client{FirstVisit: date(2024, 12, 31)}) {
		t.Error("expected client before range to be excluded")
	}
	if !f.MatchLead(Lead{Date: date(2025, 6, 30)}) {
		t.Error("expected lead on range edge to match")
	}
	if f.MatchLead(Lead{Date: date(2025, 7, 1)}) {
		t.Error("expected lead after range to be excluded")
	}
}

func TestFilter_IsZero(t *testing.T) {
	if !(Filter{}).IsZero() {
		t.Error("empty filter should be zero")
	}
	if (Filter{Location: "x"}).IsZero() {
		t.Error("filter with location should not be zero")
	}
}
