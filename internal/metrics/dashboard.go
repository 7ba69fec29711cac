package metrics

import (
	"time"

	"pulseboard/internal/core"
)

// Row counts observed on the rendered dashboards.
const (
	topLocations = 6
	topProducts  = 5
	topTrainers  = 5
	topSources   = 5
	topClasses   = 6
)

type (
	// BreakdownRow is one ranked bucket of a revenue breakdown.
	BreakdownRow struct {
		Name         string `json:"name"`
		RevenueCents int64  `json:"revenue_cents"`
		Transactions int    `json:"transactions"`
		Members      int    `json:"members,omitempty"`
	}

	// TrendPoint is one month of a trend series.
	TrendPoint struct {
		Month        string `json:"month"`
		RevenueCents int64  `json:"revenue_cents,omitempty"`
		Count        int    `json:"count"`
	}

	// CountRow is a plain name/count bucket.
	CountRow struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	SalesSummary struct {
		TotalRevenueCents int64          `json:"total_revenue_cents"`
		TotalVATCents     int64          `json:"total_vat_cents"`
		Transactions      int            `json:"transactions"`
		UniqueMembers     int            `json:"unique_members"`
		AvgTicketCents    int64          `json:"avg_ticket_cents"`
		ByLocation        []BreakdownRow `json:"by_location"`
		ByProduct         []BreakdownRow `json:"by_product"`
		ByCategory        []BreakdownRow `json:"by_category"`
		ByPaymentMethod   []BreakdownRow `json:"by_payment_method"`
		MonthlyTrend      []TrendPoint   `json:"monthly_trend"`
	}

	// FillRateRow is one class-type or location slice of the sessions
	// dashboard. Fill rate is capacity-weighted: check-ins over
	// capacity, not the mean of per-session rates.
	FillRateRow struct {
		Name        string  `json:"name"`
		Sessions    int     `json:"sessions"`
		CheckIns    int     `json:"check_ins"`
		Capacity    int     `json:"capacity"`
		FillRatePct float64 `json:"fill_rate_pct"`
	}

	SessionsSummary struct {
		Sessions      int           `json:"sessions"`
		CheckIns      int           `json:"check_ins"`
		Capacity      int           `json:"capacity"`
		FillRatePct   float64       `json:"fill_rate_pct"`
		AvgAttendance float64       `json:"avg_attendance"`
		ByClassType   []FillRateRow `json:"by_class_type"`
		ByLocation    []FillRateRow `json:"by_location"`
	}

	TrainerRow struct {
		TrainerID          string `json:"trainer_id"`
		TrainerName        string `json:"trainer_name"`
		Sessions           int    `json:"sessions"`
		Customers          int    `json:"customers"`
		TotalPaidCents     int64  `json:"total_paid_cents"`
		AvgPerSessionCents int64  `json:"avg_per_session_cents"`
	}

	PayrollSummary struct {
		Trainers       int          `json:"trainers"`
		TotalPaidCents int64        `json:"total_paid_cents"`
		TotalSessions  int          `json:"total_sessions"`
		TotalCustomers int          `json:"total_customers"`
		TopTrainers    []TrainerRow `json:"top_trainers"`
	}

	ClientsSummary struct {
		Clients           int          `json:"clients"`
		Converted         int          `json:"converted"`
		ConversionRatePct float64      `json:"conversion_rate_pct"`
		TotalLTVCents     int64        `json:"total_ltv_cents"`
		AvgLTVCents       int64        `json:"avg_ltv_cents"`
		ByRetention       []CountRow   `json:"by_retention"`
		MonthlyNewClients []TrendPoint `json:"monthly_new_clients"`
	}

	SourceRow struct {
		Source            string  `json:"source"`
		Leads             int     `json:"leads"`
		Converted         int     `json:"converted"`
		ConversionRatePct float64 `json:"conversion_rate_pct"`
	}

	LeadsSummary struct {
		Leads             int          `json:"leads"`
		Converted         int          `json:"converted"`
		ConversionRatePct float64      `json:"conversion_rate_pct"`
		BySource          []SourceRow  `json:"by_source"`
		ByStage           []CountRow   `json:"by_stage"`
		MonthlyTrend      []TrendPoint `json:"monthly_trend"`
	}

	// Overview is the executive summary: every dataset's summary in one
	// payload, computed from the same snapshot and filter.
	Overview struct {
		Sales       SalesSummary    `json:"sales"`
		Sessions    SessionsSummary `json:"sessions"`
		Payroll     PayrollSummary  `json:"payroll"`
		Clients     ClientsSummary  `json:"clients"`
		Leads       LeadsSummary    `json:"leads"`
		GeneratedAt time.Time       `json:"generated_at"`
		FetchedAt   time.Time       `json:"fetched_at"`
	}
)

func filterSales(sales []core.Sale, f core.Filter) []core.Sale {
	if f.IsZero() {
		return sales
	}
	out := make([]core.Sale, 0, len(sales))
	for _, s := range sales {
		if f.MatchSale(s) {
			out = append(out, s)
		}
	}
	return out
}

// BuildSalesSummary reduces sales transactions into the revenue cards
// and breakdowns of the sales dashboard.
func BuildSalesSummary(sales []core.Sale, f core.Filter) SalesSummary {
	sales = filterSales(sales, f)

	var sum SalesSummary
	members := make(map[string]struct{})
	for _, s := range sales {
		sum.TotalRevenueCents += s.Amount.Cents
		sum.TotalVATCents += s.VAT.Cents
		sum.Transactions++
		if s.MemberID != "" {
			members[s.MemberID] = struct{}{}
		}
	}
	sum.UniqueMembers = len(members)
	sum.AvgTicketCents = int64(Rate(sum.TotalRevenueCents, int64(sum.Transactions)))

	sum.ByLocation = salesBreakdown(sales, topLocations, func(s core.Sale) string { return core.LabelOrUnknown(s.Location) })
	sum.ByProduct = salesBreakdown(sales, topProducts, func(s core.Sale) string { return core.LabelOrUnknown(s.Product) })
	sum.ByCategory = salesBreakdown(sales, 0, func(s core.Sale) string { return core.LabelOrUnknown(s.Category) })
	sum.ByPaymentMethod = salesBreakdown(sales, 0, func(s core.Sale) string { return core.LabelOrUnknown(s.PaymentMethod) })

	trend := SortByKey(NewReducer(func(s core.Sale) string { return core.MonthKey(s.Date) }).
		Sum("revenue", func(s core.Sale) int64 { return s.Amount.Cents }).
		Reduce(sales))
	for _, g := range trend {
		sum.MonthlyTrend = append(sum.MonthlyTrend, TrendPoint{
			Month:        g.Key,
			RevenueCents: g.Sum("revenue"),
			Count:        g.Count,
		})
	}
	return sum
}

func salesBreakdown(sales []core.Sale, n int, key func(core.Sale) string) []BreakdownRow {
	groups := NewReducer(key).
		Sum("revenue", func(s core.Sale) int64 { return s.Amount.Cents }).
		Distinct("members", func(s core.Sale) string { return s.MemberID }).
		Reduce(sales)
	groups = TopN(groups, n, func(g *Group) int64 { return g.Sum("revenue") })

	rows := make([]BreakdownRow, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, BreakdownRow{
			Name:         g.Key,
			RevenueCents: g.Sum("revenue"),
			Transactions: g.Count,
			Members:      g.Distinct["members"],
		})
	}
	return rows
}

// BuildSessionsSummary reduces class sessions into attendance and
// fill-rate metrics.
func BuildSessionsSummary(sessions []core.Session, f core.Filter) SessionsSummary {
	if !f.IsZero() {
		filtered := make([]core.Session, 0, len(sessions))
		for _, s := range sessions {
			if f.MatchSession(s) {
				filtered = append(filtered, s)
			}
		}
		sessions = filtered
	}

	var sum SessionsSummary
	for _, s := range sessions {
		sum.Sessions++
		sum.CheckIns += s.CheckedIn
		sum.Capacity += s.Capacity
	}
	sum.FillRatePct = Percent(int64(sum.CheckIns), int64(sum.Capacity))
	sum.AvgAttendance = Rate(int64(sum.CheckIns), int64(sum.Sessions))

	sum.ByClassType = fillRateRows(sessions, topClasses, func(s core.Session) string { return core.LabelOrUnknown(s.ClassType) })
	sum.ByLocation = fillRateRows(sessions, topLocations, func(s core.Session) string { return core.LabelOrUnknown(s.Location) })
	return sum
}

func fillRateRows(sessions []core.Session, n int, key func(core.Session) string) []FillRateRow {
	groups := NewReducer(key).
		Sum("checkins", func(s core.Session) int64 { return int64(s.CheckedIn) }).
		Sum("capacity", func(s core.Session) int64 { return int64(s.Capacity) }).
		Reduce(sessions)
	groups = TopN(groups, n, func(g *Group) int64 { return g.Sum("checkins") })

	rows := make([]FillRateRow, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, FillRateRow{
			Name:        g.Key,
			Sessions:    g.Count,
			CheckIns:    int(g.Sum("checkins")),
			Capacity:    int(g.Sum("capacity")),
			FillRatePct: Percent(g.Sum("checkins"), g.Sum("capacity")),
		})
	}
	return rows
}

// BuildPayrollSummary reduces payroll records into trainer totals and
// the top-payout ranking. Payroll rows are period totals already, so
// the date filter does not apply.
func BuildPayrollSummary(payroll []core.PayrollRecord) PayrollSummary {
	var sum PayrollSummary
	groups := NewReducer(func(p core.PayrollRecord) string { return core.LabelOrUnknown(p.TrainerName) }).
		Sum("paid", func(p core.PayrollRecord) int64 { return p.TotalPaid.Cents }).
		Sum("sessions", func(p core.PayrollRecord) int64 { return int64(p.Sessions) }).
		Sum("customers", func(p core.PayrollRecord) int64 { return int64(p.Customers) }).
		Distinct("ids", func(p core.PayrollRecord) string { return p.TrainerID }).
		Reduce(payroll)

	ids := make(map[string]string, len(groups))
	for _, p := range payroll {
		name := core.LabelOrUnknown(p.TrainerName)
		if _, ok := ids[name]; !ok {
			ids[name] = p.TrainerID
		}
	}

	sum.Trainers = len(groups)
	for _, g := range groups {
		sum.TotalPaidCents += g.Sum("paid")
		sum.TotalSessions += int(g.Sum("sessions"))
		sum.TotalCustomers += int(g.Sum("customers"))
	}

	top := TopN(groups, topTrainers, func(g *Group) int64 { return g.Sum("paid") })
	for _, g := range top {
		sum.TopTrainers = append(sum.TopTrainers, TrainerRow{
			TrainerID:          ids[g.Key],
			TrainerName:        g.Key,
			Sessions:           int(g.Sum("sessions")),
			Customers:          int(g.Sum("customers")),
			TotalPaidCents:     g.Sum("paid"),
			AvgPerSessionCents: int64(Rate(g.Sum("paid"), g.Sum("sessions"))),
		})
	}
	return sum
}

// BuildClientsSummary reduces acquired clients into conversion,
// retention, and lifetime-value metrics.
func BuildClientsSummary(clients []core.Client, f core.Filter) ClientsSummary {
	if !f.IsZero() {
		filtered := make([]core.Client, 0, len(clients))
		for _, c := range clients {
			if f.MatchClient(c) {
				filtered = append(filtered, c)
			}
		}
		clients = filtered
	}

	var sum ClientsSummary
	for _, c := range clients {
		sum.Clients++
		if c.IsConverted() {
			sum.Converted++
		}
		sum.TotalLTVCents += c.LifetimeValue.Cents
	}
	sum.ConversionRatePct = Percent(int64(sum.Converted), int64(sum.Clients))
	sum.AvgLTVCents = int64(Rate(sum.TotalLTVCents, int64(sum.Clients)))

	retention := NewReducer(func(c core.Client) string { return core.LabelOrUnknown(c.RetentionStatus) }).
		Reduce(clients)
	for _, g := range retention {
		sum.ByRetention = append(sum.ByRetention, CountRow{Name: g.Key, Count: g.Count})
	}

	trend := SortByKey(NewReducer(func(c core.Client) string { return core.MonthKey(c.FirstVisit) }).
		Reduce(clients))
	for _, g := range trend {
		sum.MonthlyNewClients = append(sum.MonthlyNewClients, TrendPoint{Month: g.Key, Count: g.Count})
	}
	return sum
}

// BuildLeadsSummary reduces leads into the acquisition funnel metrics.
func BuildLeadsSummary(leads []core.Lead, f core.Filter) LeadsSummary {
	if !f.IsZero() {
		filtered := make([]core.Lead, 0, len(leads))
		for _, l := range leads {
			if f.MatchLead(l) {
				filtered = append(filtered, l)
			}
		}
		leads = filtered
	}

	converted := func(l core.Lead) int64 {
		if core.ParseConversionStatus(l.Status) == core.Converted {
			return 1
		}
		return 0
	}

	var sum LeadsSummary
	sum.Leads = len(leads)
	for _, l := range leads {
		sum.Converted += int(converted(l))
	}
	sum.ConversionRatePct = Percent(int64(sum.Converted), int64(sum.Leads))

	sources := NewReducer(func(l core.Lead) string { return core.LabelOrUnknown(l.Source) }).
		Sum("converted", converted).
		Reduce(leads)
	for _, g := range TopN(sources, topSources, func(g *Group) int64 { return int64(g.Count) }) {
		sum.BySource = append(sum.BySource, SourceRow{
			Source:            g.Key,
			Leads:             g.Count,
			Converted:         int(g.Sum("converted")),
			ConversionRatePct: Percent(g.Sum("converted"), int64(g.Count)),
		})
	}

	stages := NewReducer(func(l core.Lead) string { return core.LabelOrUnknown(l.Stage) }).
		Reduce(leads)
	for _, g := range stages {
		sum.ByStage = append(sum.ByStage, CountRow{Name: g.Key, Count: g.Count})
	}

	trend := SortByKey(NewReducer(func(l core.Lead) string { return core.MonthKey(l.Date) }).
		Reduce(leads))
	for _, g := range trend {
		sum.MonthlyTrend = append(sum.MonthlyTrend, TrendPoint{Month: g.Key, Count: g.Count})
	}
	return sum
}

// BuildOverview computes every summary from one snapshot so the
// executive view is internally consistent.
func BuildOverview(snap core.Snapshot, f core.Filter) Overview {
	return Overview{
		Sales:       BuildSalesSummary(snap.Sales, f),
		Sessions:    BuildSessionsSummary(snap.Sessions, f),
		Payroll:     BuildPayrollSummary(snap.Payroll),
		Clients:     BuildClientsSummary(snap.Clients, f),
		Leads:       BuildLeadsSummary(snap.Leads, f),
		GeneratedAt: time.Now().UTC(),
		FetchedAt:   snap.FetchedAt,
	}
}
