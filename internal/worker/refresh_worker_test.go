package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"pulseboard/internal/amqp"
	"pulseboard/internal/core"
)

type fakeSource struct {
	snap  core.Snapshot
	err   error
	calls int
}

func (f *fakeSource) ReadSnapshot(_ context.Context) (core.Snapshot, error) {
	f.calls++
	if f.err != nil {
		return core.Snapshot{}, f.err
	}
	return f.snap, nil
}

type fakeStore struct {
	stored []core.Snapshot
	err    error
}

func (f *fakeStore) ReplaceSnapshot(_ context.Context, snap core.Snapshot) error {
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, snap)
	return nil
}

func TestRefreshStoresSnapshot(t *testing.T) {
	source := &fakeSource{snap: core.Snapshot{
		Sales:     []core.Sale{{Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Amount: core.Money{Cents: 100}}},
		FetchedAt: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
	}}
	store := &fakeStore{}
	w := NewRefreshWorker(source, store)

	if err := w.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if len(store.stored) != 1 {
		t.Fatalf("expected 1 stored snapshot, got %d", len(store.stored))
	}
	if len(store.stored[0].Sales) != 1 {
		t.Errorf("stored snapshot missing sales: %+v", store.stored[0])
	}
	if w.LastRefresh().IsZero() {
		t.Error("LastRefresh should be set after success")
	}
}

func TestRefreshSourceFailure(t *testing.T) {
	source := &fakeSource{err: errors.New("spreadsheet unreachable")}
	store := &fakeStore{}
	w := NewRefreshWorker(source, store)

	if err := w.Refresh(context.Background()); err == nil {
		t.Fatal("expected error when source fails")
	}
	if len(store.stored) != 0 {
		t.Error("nothing should be stored on source failure")
	}
	if !w.LastRefresh().IsZero() {
		t.Error("LastRefresh should stay zero after failure")
	}
}

func TestRefreshStoreFailure(t *testing.T) {
	source := &fakeSource{}
	store := &fakeStore{err: errors.New("disk full")}
	w := NewRefreshWorker(source, store)

	if err := w.Refresh(context.Background()); err == nil {
		t.Fatal("expected error when store fails")
	}
	if !w.LastRefresh().IsZero() {
		t.Error("LastRefresh should stay zero after failure")
	}
}

func TestHandleRefreshMessage(t *testing.T) {
	source := &fakeSource{}
	store := &fakeStore{}
	w := NewRefreshWorker(source, store)

	msg := amqp.NewRefreshRequestMessage("api")
	if err := w.HandleRefreshMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleRefreshMessage: %v", err)
	}
	if source.calls != 1 {
		t.Errorf("source called %d times, want 1", source.calls)
	}
	if len(store.stored) != 1 {
		t.Errorf("expected 1 stored snapshot, got %d", len(store.stored))
	}
}

func TestStartupRefreshSwallowsErrors(t *testing.T) {
	source := &fakeSource{err: errors.New("boom")}
	w := NewRefreshWorker(source, &fakeStore{})

	// Must not panic or return; errors are logged only.
	w.StartupRefresh(context.Background())
}
