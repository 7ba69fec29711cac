package core

import (
	"strings"
	"time"
)

// Filter is the explicit configuration carried from the request into
// the aggregation layer. Zero values mean "no constraint": a zero time
// leaves that edge of the date range open, an empty string matches any
// value of the dimension.
type Filter struct {
	From          time.Time
	To            time.Time
	Location      string
	Category      string
	Product       string
	Seller        string
	PaymentMethod string
}

// IsZero reports whether the filter constrains nothing.
func (f Filter) IsZero() bool {
	return f.From.IsZero() && f.To.IsZero() &&
		f.Location == "" && f.Category == "" && f.Product == "" &&
		f.Seller == "" && f.PaymentMethod == ""
}

func (f Filter) matchDate(t time.Time) bool {
	if !f.From.IsZero() && t.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.After(f.To) {
		return false
	}
	return true
}

func matchDim(want, got string) bool {
	if want == "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(want), strings.TrimSpace(got))
}

// MatchSale applies every filter dimension the Sale record carries.
func (f Filter) MatchSale(s Sale) bool {
	return f.matchDate(s.Date) &&
		matchDim(f.Location, s.Location) &&
		matchDim(f.Category, s.Category) &&
		matchDim(f.Product, s.Product) &&
		matchDim(f.Seller, s.Seller) &&
		matchDim(f.PaymentMethod, s.PaymentMethod)
}

// MatchSession applies the date range and location; sessions carry no
// other filterable dimensions.
func (f Filter) MatchSession(s Session) bool {
	return f.matchDate(s.Date) && matchDim(f.Location, s.Location)
}

// MatchClient applies the date range to the first-visit date.
func (f Filter) MatchClient(c Client) bool {
	return f.matchDate(c.FirstVisit)
}

// MatchLead applies the date range.
func (f Filter) MatchLead(l Lead) bool {
	return f.matchDate(l.Date)
}
