package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"pulseboard/internal/core"
)

const dateLayout = "2006-01-02"

// parseFilter builds a record filter from query parameters. Dates use
// YYYY-MM-DD; a malformed date is a client error rather than a silent
// full-range query.
func parseFilter(r *http.Request) (core.Filter, error) {
	q := r.URL.Query()
	var f core.Filter

	if v := strings.TrimSpace(q.Get("from")); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return core.Filter{}, fmt.Errorf("invalid 'from' date %q: expected YYYY-MM-DD", v)
		}
		f.From = t
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return core.Filter{}, fmt.Errorf("invalid 'to' date %q: expected YYYY-MM-DD", v)
		}
		f.To = t
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return core.Filter{}, fmt.Errorf("'to' date %s precedes 'from' date %s",
			f.To.Format(dateLayout), f.From.Format(dateLayout))
	}

	f.Location = strings.TrimSpace(q.Get("location"))
	f.Category = strings.TrimSpace(q.Get("category"))
	f.Product = strings.TrimSpace(q.Get("product"))
	f.Seller = strings.TrimSpace(q.Get("seller"))
	f.PaymentMethod = strings.TrimSpace(q.Get("payment_method"))

	return f, nil
}

// filterCacheKey is a stable string form of the filter, used to key
// the summary caches.
func filterCacheKey(f core.Filter) string {
	var b strings.Builder
	if !f.From.IsZero() {
		b.WriteString(f.From.Format(dateLayout))
	}
	b.WriteByte('|')
	if !f.To.IsZero() {
		b.WriteString(f.To.Format(dateLayout))
	}
	for _, dim := range []string{f.Location, f.Category, f.Product, f.Seller, f.PaymentMethod} {
		b.WriteByte('|')
		b.WriteString(strings.ToLower(dim))
	}
	return b.String()
}
