// Package storage mirrors the latest spreadsheet snapshot into SQLite
// so the dashboard keeps serving when the spreadsheet is unreachable.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"pulseboard/internal/core"
	ports "pulseboard/internal/sheets"

	_ "modernc.org/sqlite"
)

const dateFormat = time.RFC3339

type SQLiteRepository struct {
	db *sql.DB
}

var _ ports.Source = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ReplaceSnapshot swaps the whole mirror in one transaction. The
// dashboard never sees a half-written snapshot.
func (r *SQLiteRepository) ReplaceSnapshot(ctx context.Context, snap core.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"sales", "sessions", "payroll", "clients", "leads"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := insertSales(ctx, tx, snap.Sales); err != nil {
		return err
	}
	if err := insertSessions(ctx, tx, snap.Sessions); err != nil {
		return err
	}
	if err := insertPayroll(ctx, tx, snap.Payroll); err != nil {
		return err
	}
	if err := insertClients(ctx, tx, snap.Clients); err != nil {
		return err
	}
	if err := insertLeads(ctx, tx, snap.Leads); err != nil {
		return err
	}

	fetchedAt := snap.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshot_meta (id, fetched_at) VALUES (1, ?)
		 ON CONFLICT (id) DO UPDATE SET fetched_at = excluded.fetched_at`,
		fetchedAt.Format(dateFormat))
	if err != nil {
		return fmt.Errorf("update snapshot meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot mirrored to SQLite",
		"sales", len(snap.Sales),
		"sessions", len(snap.Sessions),
		"payroll", len(snap.Payroll),
		"clients", len(snap.Clients),
		"leads", len(snap.Leads))
	return nil
}

func insertSales(ctx context.Context, tx *sql.Tx, sales []core.Sale) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sales (sold_at, amount_cents, vat_cents, member_id, product, category, location, payment_method, seller)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare sales insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range sales {
		_, err := stmt.ExecContext(ctx, s.Date.Format(dateFormat), s.Amount.Cents, s.VAT.Cents,
			s.MemberID, s.Product, s.Category, s.Location, s.PaymentMethod, s.Seller)
		if err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}
	}
	return nil
}

func insertSessions(ctx context.Context, tx *sql.Tx, sessions []core.Session) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sessions (held_at, class_type, location, checked_in, capacity)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare sessions insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range sessions {
		_, err := stmt.ExecContext(ctx, s.Date.Format(dateFormat), s.ClassType, s.Location, s.CheckedIn, s.Capacity)
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
	}
	return nil
}

func insertPayroll(ctx context.Context, tx *sql.Tx, payroll []core.PayrollRecord) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO payroll (trainer_id, trainer_name, sessions, customers, total_paid_cents)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare payroll insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range payroll {
		_, err := stmt.ExecContext(ctx, p.TrainerID, p.TrainerName, p.Sessions, p.Customers, p.TotalPaid.Cents)
		if err != nil {
			return fmt.Errorf("insert payroll record: %w", err)
		}
	}
	return nil
}

func insertClients(ctx context.Context, tx *sql.Tx, clients []core.Client) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO clients (first_visit, conversion, retention_status, lifetime_value_cents)
		 VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare clients insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range clients {
		_, err := stmt.ExecContext(ctx, c.FirstVisit.Format(dateFormat), string(c.Conversion), c.RetentionStatus, c.LifetimeValue.Cents)
		if err != nil {
			return fmt.Errorf("insert client: %w", err)
		}
	}
	return nil
}

func insertLeads(ctx context.Context, tx *sql.Tx, leads []core.Lead) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO leads (created_at, source, stage, status)
		 VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare leads insert: %w", err)
	}
	defer stmt.Close()

	for _, l := range leads {
		_, err := stmt.ExecContext(ctx, l.Date.Format(dateFormat), l.Source, l.Stage, l.Status)
		if err != nil {
			return fmt.Errorf("insert lead: %w", err)
		}
	}
	return nil
}

func parseStoredDate(s string) time.Time {
	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ListSales implements ports.SalesReader.
func (r *SQLiteRepository) ListSales(ctx context.Context) ([]core.Sale, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT sold_at, amount_cents, vat_cents, member_id, product, category, location, payment_method, seller
		 FROM sales ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	var out []core.Sale
	for rows.Next() {
		var soldAt string
		var s core.Sale
		if err := rows.Scan(&soldAt, &s.Amount.Cents, &s.VAT.Cents,
			&s.MemberID, &s.Product, &s.Category, &s.Location, &s.PaymentMethod, &s.Seller); err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		s.Date = parseStoredDate(soldAt)
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListSessions implements ports.SessionsReader.
func (r *SQLiteRepository) ListSessions(ctx context.Context) ([]core.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT held_at, class_type, location, checked_in, capacity FROM sessions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []core.Session
	for rows.Next() {
		var heldAt string
		var s core.Session
		if err := rows.Scan(&heldAt, &s.ClassType, &s.Location, &s.CheckedIn, &s.Capacity); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s.Date = parseStoredDate(heldAt)
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListPayroll implements ports.PayrollReader.
func (r *SQLiteRepository) ListPayroll(ctx context.Context) ([]core.PayrollRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT trainer_id, trainer_name, sessions, customers, total_paid_cents FROM payroll ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query payroll: %w", err)
	}
	defer rows.Close()

	var out []core.PayrollRecord
	for rows.Next() {
		var p core.PayrollRecord
		if err := rows.Scan(&p.TrainerID, &p.TrainerName, &p.Sessions, &p.Customers, &p.TotalPaid.Cents); err != nil {
			return nil, fmt.Errorf("scan payroll record: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListClients implements ports.ClientsReader.
func (r *SQLiteRepository) ListClients(ctx context.Context) ([]core.Client, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT first_visit, conversion, retention_status, lifetime_value_cents FROM clients ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	var out []core.Client
	for rows.Next() {
		var firstVisit, conversion string
		var c core.Client
		if err := rows.Scan(&firstVisit, &conversion, &c.RetentionStatus, &c.LifetimeValue.Cents); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		c.FirstVisit = parseStoredDate(firstVisit)
		c.Conversion = core.ParseConversionStatus(conversion)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListLeads implements ports.LeadsReader.
func (r *SQLiteRepository) ListLeads(ctx context.Context) ([]core.Lead, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT created_at, source, stage, status FROM leads ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	defer rows.Close()

	var out []core.Lead
	for rows.Next() {
		var createdAt string
		var l core.Lead
		if err := rows.Scan(&createdAt, &l.Source, &l.Stage, &l.Status); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		l.Date = parseStoredDate(createdAt)
		out = append(out, l)
	}
	return out, rows.Err()
}

// FetchedAt returns when the mirrored snapshot was taken. Zero time
// means no snapshot has been stored yet.
func (r *SQLiteRepository) FetchedAt(ctx context.Context) (time.Time, error) {
	var fetchedAt string
	err := r.db.QueryRowContext(ctx, `SELECT fetched_at FROM snapshot_meta WHERE id = 1`).Scan(&fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("query snapshot meta: %w", err)
	}
	return parseStoredDate(fetchedAt), nil
}

// ReadSnapshot implements ports.SnapshotReader.
func (r *SQLiteRepository) ReadSnapshot(ctx context.Context) (core.Snapshot, error) {
	var snap core.Snapshot
	var err error

	if snap.Sales, err = r.ListSales(ctx); err != nil {
		return core.Snapshot{}, err
	}
	if snap.Sessions, err = r.ListSessions(ctx); err != nil {
		return core.Snapshot{}, err
	}
	if snap.Payroll, err = r.ListPayroll(ctx); err != nil {
		return core.Snapshot{}, err
	}
	if snap.Clients, err = r.ListClients(ctx); err != nil {
		return core.Snapshot{}, err
	}
	if snap.Leads, err = r.ListLeads(ctx); err != nil {
		return core.Snapshot{}, err
	}
	if snap.FetchedAt, err = r.FetchedAt(ctx); err != nil {
		return core.Snapshot{}, err
	}
	return snap, nil
}
