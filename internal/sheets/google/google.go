// Package google reads the five dashboard datasets from a Google
// spreadsheet, one tab per dataset.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"pulseboard/internal/core"
	ports "pulseboard/internal/sheets"
)

// Config carries the spreadsheet coordinates. Credentials come from an
// inline service-account JSON blob, a file path, or the standard
// GOOGLE_APPLICATION_CREDENTIALS fallback, in that order.
type Config struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string

	SalesTab    string
	SessionsTab string
	PayrollTab  string
	ClientsTab  string
	LeadsTab    string
}

type Client struct {
	svc *gsheet.Service
	cfg Config
}

// Ensure interface conformance
var _ ports.Source = (*Client)(nil)

// New creates a Sheets client for the configured spreadsheet.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	applyTabDefaults(&cfg)

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, cfg: cfg}, nil
}

func applyTabDefaults(cfg *Config) {
	if cfg.SalesTab == "" {
		cfg.SalesTab = "Sales"
	}
	if cfg.SessionsTab == "" {
		cfg.SessionsTab = "Sessions"
	}
	if cfg.PayrollTab == "" {
		cfg.PayrollTab = "Payroll"
	}
	if cfg.ClientsTab == "" {
		cfg.ClientsTab = "Clients"
	}
	if cfg.LeadsTab == "" {
		cfg.LeadsTab = "Leads"
	}
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credentialsFile := strings.TrimSpace(cfg.CredentialsFile)
	credentialsInline := strings.TrimSpace(cfg.CredentialsJSON)
	if credentialsInline == "" && credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case credentialsInline != "":
		credentialsJSON = []byte(credentialsInline)
	case credentialsFile != "":
		b, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) readTab(ctx context.Context, tab, cols string) ([][]interface{}, error) {
	rng := fmt.Sprintf("%s!%s", tab, cols)
	resp, err := c.svc.Spreadsheets.Values.Get(c.cfg.SpreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// ListSales implements ports.SalesReader.
func (c *Client) ListSales(ctx context.Context) ([]core.Sale, error) {
	values, err := c.readTab(ctx, c.cfg.SalesTab, "A:I")
	if err != nil {
		return nil, err
	}
	return parseSales(values), nil
}

// ListSessions implements ports.SessionsReader.
func (c *Client) ListSessions(ctx context.Context) ([]core.Session, error) {
	values, err := c.readTab(ctx, c.cfg.SessionsTab, "A:E")
	if err != nil {
		return nil, err
	}
	return parseSessions(values), nil
}

// ListPayroll implements ports.PayrollReader.
func (c *Client) ListPayroll(ctx context.Context) ([]core.PayrollRecord, error) {
	values, err := c.readTab(ctx, c.cfg.PayrollTab, "A:E")
	if err != nil {
		return nil, err
	}
	return parsePayroll(values), nil
}

// ListClients implements ports.ClientsReader.
func (c *Client) ListClients(ctx context.Context) ([]core.Client, error) {
	values, err := c.readTab(ctx, c.cfg.ClientsTab, "A:D")
	if err != nil {
		return nil, err
	}
	return parseClients(values), nil
}

// ListLeads implements ports.LeadsReader.
func (c *Client) ListLeads(ctx context.Context) ([]core.Lead, error) {
	values, err := c.readTab(ctx, c.cfg.LeadsTab, "A:D")
	if err != nil {
		return nil, err
	}
	return parseLeads(values), nil
}

// ReadSnapshot fetches all five tabs concurrently. A failure on any
// tab fails the snapshot; partial data would silently skew the
// dashboard totals.
func (c *Client) ReadSnapshot(ctx context.Context) (core.Snapshot, error) {
	var snap core.Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		snap.Sales, err = c.ListSales(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Sessions, err = c.ListSessions(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Payroll, err = c.ListPayroll(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Clients, err = c.ListClients(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Leads, err = c.ListLeads(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return core.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	snap.FetchedAt = time.Now().UTC()

	slog.InfoContext(ctx, "Snapshot read from spreadsheet",
		"spreadsheet_id", c.cfg.SpreadsheetID,
		"sales", len(snap.Sales),
		"sessions", len(snap.Sessions),
		"payroll", len(snap.Payroll),
		"clients", len(snap.Clients),
		"leads", len(snap.Leads))
	return snap, nil
}
