package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Converted    ConversionStatus = "Converted"
	NotConverted ConversionStatus = "Not"
)

// UnknownLabel is the fallback group label for records missing a
// categorical field.
const UnknownLabel = "Unknown"

type (
	ConversionStatus string

	Money struct {
		Cents int64
	}

	// Sale is one sales transaction row.
	Sale struct {
		Date          time.Time
		Amount        Money
		VAT           Money
		MemberID      string
		Product       string
		Category      string
		Location      string
		PaymentMethod string
		Seller        string
	}

	// Session is one class occurrence.
	Session struct {
		Date      time.Time
		ClassType string
		Location  string
		CheckedIn int
		Capacity  int
	}

	// PayrollRecord is one trainer's totals for a payroll period.
	PayrollRecord struct {
		TrainerID   string
		TrainerName string
		Sessions    int
		Customers   int
		TotalPaid   Money
	}

	// Client is one acquired client row.
	Client struct {
		FirstVisit      time.Time
		Conversion      ConversionStatus
		RetentionStatus string
		LifetimeValue   Money
	}

	// Lead is one lead row.
	Lead struct {
		Date   time.Time
		Source string
		Stage  string
		Status string
	}

	// Snapshot bundles every dataset read from the data source in one
	// fetch. Records are read-only once loaded.
	Snapshot struct {
		Sales     []Sale
		Sessions  []Session
		Payroll   []PayrollRecord
		Clients   []Client
		Leads     []Lead
		FetchedAt time.Time
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
)

// ParseConversionStatus maps sheet cell values to a ConversionStatus.
// Anything that is not recognizably converted counts as not converted.
func ParseConversionStatus(s string) ConversionStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "converted", "yes", "true", "1":
		return Converted
	default:
		return NotConverted
	}
}

// IsConverted reports whether the client reached converted status.
func (c Client) IsConverted() bool {
	return c.Conversion == Converted
}

// LabelOrUnknown returns the trimmed label, or UnknownLabel when empty.
func LabelOrUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return UnknownLabel
	}
	return s
}

// MonthKey formats a date as "YYYY-MM" for monthly trend grouping.
// The zero time maps to UnknownLabel so malformed dates stay visible
// instead of corrupting a real month bucket.
func MonthKey(t time.Time) string {
	if t.IsZero() {
		return UnknownLabel
	}
	return t.Format("2006-01")
}

func (s Snapshot) Empty() bool {
	return len(s.Sales) == 0 && len(s.Sessions) == 0 && len(s.Payroll) == 0 &&
		len(s.Clients) == 0 && len(s.Leads) == 0
}
