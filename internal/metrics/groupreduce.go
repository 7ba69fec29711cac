// Package metrics reduces flat record slices into the grouped totals,
// rates, and rankings the dashboard serves. One parameterized reducer
// covers every breakdown; the per-dataset summary builders live in
// dashboard.go.
package metrics

import "sort"

// Group is one accumulated bucket of a grouped reduce. Sums are keyed
// by the rule name they were registered under; Distinct holds the
// cardinality of each tracked distinct-value rule.
type Group struct {
	Key      string
	Count    int
	Sums     map[string]int64
	Distinct map[string]int

	distinctSeen map[string]map[string]struct{}
}

// Sum returns the accumulated sum for a rule name, 0 when unknown.
func (g *Group) Sum(name string) int64 {
	return g.Sums[name]
}

// Avg returns Sum(name)/Count, or 0 for an empty group.
func (g *Group) Avg(name string) float64 {
	return Rate(g.Sums[name], int64(g.Count))
}

type sumRule[R any] struct {
	name string
	fn   func(R) int64
}

type distinctRule[R any] struct {
	name string
	fn   func(R) string
}

// Reducer accumulates records into groups keyed by a derived string.
// Rules are tagged with names so callers can read results back without
// positional coupling. The reducer itself never fails: absent numeric
// fields arrive as 0 from the parsing layer, absent keys should be
// mapped to core.UnknownLabel by the key function.
type Reducer[R any] struct {
	key       func(R) string
	sums      []sumRule[R]
	distincts []distinctRule[R]
}

// NewReducer creates a reducer grouping records by the given key.
func NewReducer[R any](key func(R) string) *Reducer[R] {
	return &Reducer[R]{key: key}
}

// Sum registers a named sum over a numeric field.
func (r *Reducer[R]) Sum(name string, fn func(R) int64) *Reducer[R] {
	r.sums = append(r.sums, sumRule[R]{name: name, fn: fn})
	return r
}

// Distinct registers a named distinct-value cardinality over a field.
// Empty values are not counted.
func (r *Reducer[R]) Distinct(name string, fn func(R) string) *Reducer[R] {
	r.distincts = append(r.distincts, distinctRule[R]{name: name, fn: fn})
	return r
}

// Reduce runs the accumulation. Groups come back in first-encounter
// order; an empty input yields an empty (nil) slice.
func (r *Reducer[R]) Reduce(records []R) []*Group {
	var order []*Group
	index := make(map[string]*Group, 16)

	for _, rec := range records {
		key := r.key(rec)
		g, ok := index[key]
		if !ok {
			g = &Group{
				Key:          key,
				Sums:         make(map[string]int64, len(r.sums)),
				Distinct:     make(map[string]int, len(r.distincts)),
				distinctSeen: make(map[string]map[string]struct{}, len(r.distincts)),
			}
			index[key] = g
			order = append(order, g)
		}
		g.Count++
		for _, s := range r.sums {
			g.Sums[s.name] += s.fn(rec)
		}
		for _, d := range r.distincts {
			v := d.fn(rec)
			if v == "" {
				continue
			}
			seen := g.distinctSeen[d.name]
			if seen == nil {
				seen = make(map[string]struct{})
				g.distinctSeen[d.name] = seen
			}
			if _, dup := seen[v]; !dup {
				seen[v] = struct{}{}
				g.Distinct[d.name]++
			}
		}
	}
	return order
}

// TopN returns at most n groups sorted descending by rank, ties broken
// by original encounter order (stable). n <= 0 means no truncation.
func TopN(groups []*Group, n int, rank func(*Group) int64) []*Group {
	out := make([]*Group, len(groups))
	copy(out, groups)
	sort.SliceStable(out, func(i, j int) bool {
		return rank(out[i]) > rank(out[j])
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// SortByKey returns the groups sorted ascending by key, for stable
// chronological trends ("YYYY-MM" keys sort lexically).
func SortByKey(groups []*Group) []*Group {
	out := make([]*Group, len(groups))
	copy(out, groups)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Key < out[j].Key
	})
	return out
}

// Rate divides num by den, returning 0 on a zero denominator. Every
// average and rate on the dashboard goes through here.
func Rate(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// Percent is Rate scaled to a percentage.
func Percent(num, den int64) float64 {
	return Rate(num, den) * 100
}
