// Package worker refreshes the local snapshot mirror from the
// spreadsheet source.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pulseboard/internal/amqp"
	"pulseboard/internal/core"
	"pulseboard/internal/sheets"
)

// SnapshotStore is where refreshed snapshots land. Both the SQLite
// repository and the in-memory store satisfy it.
type SnapshotStore interface {
	ReplaceSnapshot(ctx context.Context, snap core.Snapshot) error
}

// RefreshWorker reads the full snapshot from the source and replaces
// the stored mirror. Refreshes are serialized; a request arriving while
// one is running waits its turn.
type RefreshWorker struct {
	source sheets.SnapshotReader
	store  SnapshotStore

	mu          sync.Mutex
	lastRefresh time.Time
}

func NewRefreshWorker(source sheets.SnapshotReader, store SnapshotStore) *RefreshWorker {
	return &RefreshWorker{source: source, store: store}
}

// Refresh fetches a fresh snapshot and stores it.
func (w *RefreshWorker) Refresh(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	started := time.Now()
	snap, err := w.source.ReadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	if err := w.store.ReplaceSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}

	w.lastRefresh = time.Now()
	slog.InfoContext(ctx, "Snapshot refreshed",
		"duration", time.Since(started).Round(time.Millisecond),
		"sales", len(snap.Sales),
		"sessions", len(snap.Sessions),
		"payroll", len(snap.Payroll),
		"clients", len(snap.Clients),
		"leads", len(snap.Leads))
	return nil
}

// HandleRefreshMessage processes a refresh request from AMQP.
func (w *RefreshWorker) HandleRefreshMessage(ctx context.Context, msg *amqp.RefreshRequestMessage) error {
	slog.InfoContext(ctx, "Handling refresh request",
		"requested_by", msg.RequestedBy,
		"requested_at", msg.Timestamp)
	return w.Refresh(ctx)
}

// StartupRefresh runs one refresh at boot so the mirror is never empty
// behind a reachable source. Failure is logged, not fatal: the mirror
// may still hold the previous snapshot.
func (w *RefreshWorker) StartupRefresh(ctx context.Context) {
	if err := w.Refresh(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup refresh failed", "error", err)
	}
}

// LastRefresh reports when the last successful refresh completed.
func (w *RefreshWorker) LastRefresh() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastRefresh
}
