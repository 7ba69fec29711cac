package google

import (
	"fmt"
	"strings"
	"time"

	"pulseboard/internal/core"
)

// Row parsing is best-effort by contract: malformed numeric cells
// become 0, blank labels become the Unknown bucket downstream, and
// rows without a parseable date are dropped (header rows included).

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"01/02/2006 15:04:05",
	time.RFC3339,
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// parseSales expects columns: Date, Amount, VAT, MemberID, Product,
// Category, Location, PaymentMethod, Seller.
func parseSales(values [][]interface{}) []core.Sale {
	var out []core.Sale
	for _, raw := range values {
		row := toStrings(raw)
		date, ok := parseDate(cell(row, 0))
		if !ok {
			continue
		}
		out = append(out, core.Sale{
			Date:          date,
			Amount:        core.Money{Cents: core.CentsOrZero(cell(row, 1))},
			VAT:           core.Money{Cents: core.CentsOrZero(cell(row, 2))},
			MemberID:      cell(row, 3),
			Product:       cell(row, 4),
			Category:      cell(row, 5),
			Location:      cell(row, 6),
			PaymentMethod: cell(row, 7),
			Seller:        cell(row, 8),
		})
	}
	return out
}

// parseSessions expects columns: Date, ClassType, Location, CheckedIn,
// Capacity.
func parseSessions(values [][]interface{}) []core.Session {
	var out []core.Session
	for _, raw := range values {
		row := toStrings(raw)
		date, ok := parseDate(cell(row, 0))
		if !ok {
			continue
		}
		out = append(out, core.Session{
			Date:      date,
			ClassType: cell(row, 1),
			Location:  cell(row, 2),
			CheckedIn: core.IntOrZero(cell(row, 3)),
			Capacity:  core.IntOrZero(cell(row, 4)),
		})
	}
	return out
}

// parsePayroll expects columns: TrainerID, TrainerName, Sessions,
// Customers, TotalPaid. Payroll has no date column; the header row is
// recognized by its non-numeric totals plus a known header label.
func parsePayroll(values [][]interface{}) []core.PayrollRecord {
	var out []core.PayrollRecord
	for i, raw := range values {
		row := toStrings(raw)
		if i == 0 && looksLikePayrollHeader(row) {
			continue
		}
		if cell(row, 0) == "" && cell(row, 1) == "" {
			continue
		}
		out = append(out, core.PayrollRecord{
			TrainerID:   cell(row, 0),
			TrainerName: cell(row, 1),
			Sessions:    core.IntOrZero(cell(row, 2)),
			Customers:   core.IntOrZero(cell(row, 3)),
			TotalPaid:   core.Money{Cents: core.CentsOrZero(cell(row, 4))},
		})
	}
	return out
}

func looksLikePayrollHeader(row []string) bool {
	first := strings.ToLower(cell(row, 0))
	return strings.Contains(first, "trainer") || strings.Contains(first, "id")
}

// parseClients expects columns: FirstVisit, Conversion, Retention, LTV.
func parseClients(values [][]interface{}) []core.Client {
	var out []core.Client
	for _, raw := range values {
		row := toStrings(raw)
		firstVisit, ok := parseDate(cell(row, 0))
		if !ok {
			continue
		}
		out = append(out, core.Client{
			FirstVisit:      firstVisit,
			Conversion:      core.ParseConversionStatus(cell(row, 1)),
			RetentionStatus: cell(row, 2),
			LifetimeValue:   core.Money{Cents: core.CentsOrZero(cell(row, 3))},
		})
	}
	return out
}

// parseLeads expects columns: Date, Source, Stage, Status.
func parseLeads(values [][]interface{}) []core.Lead {
	var out []core.Lead
	for _, raw := range values {
		row := toStrings(raw)
		date, ok := parseDate(cell(row, 0))
		if !ok {
			continue
		}
		out = append(out, core.Lead{
			Date:   date,
			Source: cell(row, 1),
			Stage:  cell(row, 2),
			Status: cell(row, 3),
		})
	}
	return out
}
