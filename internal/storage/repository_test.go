package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"pulseboard/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "pulseboard.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestReplaceSnapshotRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	fetchedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := core.Snapshot{
		Sales: []core.Sale{
			{Date: time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), Amount: core.Money{Cents: 12050}, VAT: core.Money{Cents: 2410}, MemberID: "m1", Product: "Monthly Pass", Category: "Membership", Location: "Downtown", PaymentMethod: "Card", Seller: "alice"},
			{Date: time.Date(2025, 2, 11, 0, 0, 0, 0, time.UTC), Amount: core.Money{Cents: 900}, Product: "Protein Bar", Category: "Retail", Location: "Uptown", PaymentMethod: "Cash", Seller: "bob"},
		},
		Sessions: []core.Session{
			{Date: time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), ClassType: "Yoga", Location: "Downtown", CheckedIn: 14, Capacity: 20},
		},
		Payroll: []core.PayrollRecord{
			{TrainerID: "t1", TrainerName: "Ana", Sessions: 20, Customers: 120, TotalPaid: core.Money{Cents: 200000}},
		},
		Clients: []core.Client{
			{FirstVisit: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), Conversion: core.Converted, RetentionStatus: "Active", LifetimeValue: core.Money{Cents: 85000}},
		},
		Leads: []core.Lead{
			{Date: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), Source: "Instagram", Stage: "Trial", Status: "Converted"},
		},
		FetchedAt: fetchedAt,
	}

	if err := repo.ReplaceSnapshot(ctx, snap); err != nil {
		t.Fatalf("ReplaceSnapshot: %v", err)
	}

	got, err := repo.ReadSnapshot(ctx)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}

	if len(got.Sales) != 2 {
		t.Fatalf("expected 2 sales, got %d", len(got.Sales))
	}
	s := got.Sales[0]
	if s.Amount.Cents != 12050 || s.Seller != "alice" || !s.Date.Equal(snap.Sales[0].Date) {
		t.Errorf("sale round trip wrong: %+v", s)
	}
	if len(got.Sessions) != 1 || got.Sessions[0].Capacity != 20 {
		t.Errorf("sessions round trip wrong: %+v", got.Sessions)
	}
	if len(got.Payroll) != 1 || got.Payroll[0].TotalPaid.Cents != 200000 {
		t.Errorf("payroll round trip wrong: %+v", got.Payroll)
	}
	if len(got.Clients) != 1 || !got.Clients[0].IsConverted() {
		t.Errorf("clients round trip wrong: %+v", got.Clients)
	}
	if len(got.Leads) != 1 || got.Leads[0].Source != "Instagram" {
		t.Errorf("leads round trip wrong: %+v", got.Leads)
	}
	if !got.FetchedAt.Equal(fetchedAt) {
		t.Errorf("fetched_at = %v, want %v", got.FetchedAt, fetchedAt)
	}
}

func TestReplaceSnapshotOverwritesPrevious(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := core.Snapshot{
		Sales: []core.Sale{
			{Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Amount: core.Money{Cents: 100}},
			{Date: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), Amount: core.Money{Cents: 200}},
		},
		FetchedAt: time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.ReplaceSnapshot(ctx, first); err != nil {
		t.Fatalf("first ReplaceSnapshot: %v", err)
	}

	second := core.Snapshot{
		Sales: []core.Sale{
			{Date: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), Amount: core.Money{Cents: 300}},
		},
		FetchedAt: time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.ReplaceSnapshot(ctx, second); err != nil {
		t.Fatalf("second ReplaceSnapshot: %v", err)
	}

	sales, err := repo.ListSales(ctx)
	if err != nil {
		t.Fatalf("ListSales: %v", err)
	}
	if len(sales) != 1 || sales[0].Amount.Cents != 300 {
		t.Errorf("second snapshot should replace the first: %+v", sales)
	}

	fetchedAt, err := repo.FetchedAt(ctx)
	if err != nil {
		t.Fatalf("FetchedAt: %v", err)
	}
	if !fetchedAt.Equal(second.FetchedAt) {
		t.Errorf("fetched_at = %v, want %v", fetchedAt, second.FetchedAt)
	}
}

func TestFetchedAtEmptyDatabase(t *testing.T) {
	repo := newTestRepo(t)

	fetchedAt, err := repo.FetchedAt(context.Background())
	if err != nil {
		t.Fatalf("FetchedAt: %v", err)
	}
	if !fetchedAt.IsZero() {
		t.Errorf("expected zero time on empty database, got %v", fetchedAt)
	}
}
