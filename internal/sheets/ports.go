package sheets

import (
	"context"

	"pulseboard/internal/core"
)

// Ports for outbound data source adapters.
type (
	SalesReader interface {
		ListSales(ctx context.Context) ([]core.Sale, error)
	}

	SessionsReader interface {
		ListSessions(ctx context.Context) ([]core.Session, error)
	}

	PayrollReader interface {
		ListPayroll(ctx context.Context) ([]core.PayrollRecord, error)
	}

	ClientsReader interface {
		ListClients(ctx context.Context) ([]core.Client, error)
	}

	LeadsReader interface {
		ListLeads(ctx context.Context) ([]core.Lead, error)
	}

	// SnapshotReader fetches every dataset in one consistent read.
	SnapshotReader interface {
		ReadSnapshot(ctx context.Context) (core.Snapshot, error)
	}

	// Source is the full surface the HTTP layer and the refresh worker
	// depend on.
	Source interface {
		SalesReader
		SessionsReader
		PayrollReader
		ClientsReader
		LeadsReader
		SnapshotReader
	}
)
