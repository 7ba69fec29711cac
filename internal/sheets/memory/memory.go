// Package memory is an in-memory data source used for local
// development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"pulseboard/internal/core"
	ports "pulseboard/internal/sheets"
)

type Store struct {
	mu   sync.RWMutex
	snap core.Snapshot
}

var _ ports.Source = (*Store)(nil)

// New creates a store holding the given snapshot.
func New(snap core.Snapshot) *Store {
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = time.Now().UTC()
	}
	return &Store{snap: snap}
}

// NewSeeded creates a store with a small fixture dataset so the server
// renders something meaningful out of the box.
func NewSeeded() *Store {
	day := func(y, m, d int) time.Time {
		return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	}
	return New(core.Snapshot{
		Sales: []core.Sale{
			{Date: day(2025, 1, 6), Amount: core.Money{Cents: 12000}, VAT: core.Money{Cents: 2400}, MemberID: "m1", Product: "Monthly Pass", Category: "Membership", Location: "Downtown", PaymentMethod: "Card", Seller: "alice"},
			{Date: day(2025, 1, 14), Amount: core.Money{Cents: 3500}, VAT: core.Money{Cents: 700}, MemberID: "m2", Product: "Day Pass", Category: "Membership", Location: "Downtown", PaymentMethod: "Cash", Seller: "bob"},
			{Date: day(2025, 2, 2), Amount: core.Money{Cents: 900}, MemberID: "m1", Product: "Protein Bar", Category: "Retail", Location: "Uptown", PaymentMethod: "Card", Seller: "alice"},
		},
		Sessions: []core.Session{
			{Date: day(2025, 1, 7), ClassType: "Yoga", Location: "Downtown", CheckedIn: 14, Capacity: 20},
			{Date: day(2025, 1, 8), ClassType: "HIIT", Location: "Uptown", CheckedIn: 9, Capacity: 12},
		},
		Payroll: []core.PayrollRecord{
			{TrainerID: "t1", TrainerName: "Ana", Sessions: 22, Customers: 140, TotalPaid: core.Money{Cents: 210000}},
			{TrainerID: "t2", TrainerName: "Ben", Sessions: 15, Customers: 90, TotalPaid: core.Money{Cents: 140000}},
		},
		Clients: []core.Client{
			{FirstVisit: day(2025, 1, 3), Conversion: core.Converted, RetentionStatus: "Active", LifetimeValue: core.Money{Cents: 95000}},
			{FirstVisit: day(2025, 1, 21), Conversion: core.NotConverted, RetentionStatus: "Churned"},
		},
		Leads: []core.Lead{
			{Date: day(2025, 1, 2), Source: "Instagram", Stage: "Trial", Status: "Converted"},
			{Date: day(2025, 1, 9), Source: "Referral", Stage: "Contacted", Status: "Open"},
		},
	})
}

// Replace swaps the stored snapshot.
func (s *Store) Replace(snap core.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = time.Now().UTC()
	}
	s.snap = snap
}

// ReplaceSnapshot is Replace with the snapshot-store signature the
// refresh worker expects.
func (s *Store) ReplaceSnapshot(_ context.Context, snap core.Snapshot) error {
	s.Replace(snap)
	return nil
}

func (s *Store) ListSales(_ context.Context) ([]core.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Sale(nil), s.snap.Sales...), nil
}

func (s *Store) ListSessions(_ context.Context) ([]core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Session(nil), s.snap.Sessions...), nil
}

func (s *Store) ListPayroll(_ context.Context) ([]core.PayrollRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.PayrollRecord(nil), s.snap.Payroll...), nil
}

func (s *Store) ListClients(_ context.Context) ([]core.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Client(nil), s.snap.Clients...), nil
}

func (s *Store) ListLeads(_ context.Context) ([]core.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Lead(nil), s.snap.Leads...), nil
}

func (s *Store) ReadSnapshot(_ context.Context) (core.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := core.Snapshot{
		Sales:     append([]core.Sale(nil), s.snap.Sales...),
		Sessions:  append([]core.Session(nil), s.snap.Sessions...),
		Payroll:   append([]core.PayrollRecord(nil), s.snap.Payroll...),
		Clients:   append([]core.Client(nil), s.snap.Clients...),
		Leads:     append([]core.Lead(nil), s.snap.Leads...),
		FetchedAt: s.snap.FetchedAt,
	}
	return snap, nil
}
