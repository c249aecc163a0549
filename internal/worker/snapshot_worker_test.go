package worker

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"lifedash/internal/amqp"
	"lifedash/internal/core"
	"lifedash/internal/services"
	"lifedash/internal/storage"
)

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "worker.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSnapshotWorker_RebuildAllStoresEveryView(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	if _, err := repo.CreateLog(ctx, core.FinancialLog{Date: "2024-01-15", Amount: decimal.NewFromInt(-50), Category: "Food"}); err != nil {
		t.Fatalf("create log: %v", err)
	}
	if _, err := repo.CreateLog(ctx, core.FinancialLog{Date: "2024-01-20", Amount: decimal.NewFromInt(1000), Category: "Salary"}); err != nil {
		t.Fatalf("create log: %v", err)
	}

	w := NewSnapshotWorker(repo, services.NewTrendService(repo, services.TrendServiceConfig{}))
	if err := w.RebuildAll(ctx); err != nil {
		t.Fatalf("RebuildAll() error = %v", err)
	}

	snap, err := repo.GetSnapshot(ctx, core.KindLogs, "net", "month", 1)
	if err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}
	if snap.RecordCount != 2 {
		t.Fatalf("expected 2 records, got %d", snap.RecordCount)
	}
	var payload struct {
		Groups []string          `json:"groups"`
		Rows   []json.RawMessage `json:"rows"`
	}
	if err := json.Unmarshal(snap.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(payload.Groups) != 2 || payload.Groups[0] != "Income" || len(payload.Rows) != 1 {
		t.Fatalf("unexpected payload %s", snap.Payload)
	}

	for _, kind := range core.Kinds() {
		for _, view := range []string{"separate", "net"} {
			if _, err := repo.GetSnapshot(ctx, kind, view, "month", 1); err != nil {
				t.Fatalf("missing %s/%s snapshot: %v", kind, view, err)
			}
		}
	}
}

func TestSnapshotWorker_HandleRecordChangedSeesNewRecords(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	w := NewSnapshotWorker(repo, services.NewTrendService(repo, services.TrendServiceConfig{CacheTTL: time.Hour}))

	if err := w.RebuildKind(ctx, core.KindBalances); err != nil {
		t.Fatalf("RebuildKind() error = %v", err)
	}
	b, err := repo.CreateBalance(ctx, core.FinancialBalance{Date: "2024-01-31", Amount: decimal.NewFromInt(10), AccountName: "Everyday", AccountType: "checking"})
	if err != nil {
		t.Fatalf("create balance: %v", err)
	}

	msg := amqp.NewRecordChangedMessage(core.KindBalances, b.ID, amqp.OperationCreate)
	if err := w.HandleRecordChanged(ctx, msg); err != nil {
		t.Fatalf("HandleRecordChanged() error = %v", err)
	}
	snap, err := repo.GetSnapshot(ctx, core.KindBalances, "separate", "month", 1)
	if err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}
	if snap.RecordCount != 1 {
		t.Fatalf("expected the cached empty dataset to be dropped, got %d records", snap.RecordCount)
	}
}

type failingStore struct {
	mu    sync.Mutex
	saved int
}

func (s *failingStore) SaveSnapshot(context.Context, storage.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved++
	return errors.New("disk full")
}

func TestSnapshotWorker_PropagatesStoreErrors(t *testing.T) {
	repo := newRepo(t)
	w := NewSnapshotWorker(&failingStore{}, services.NewTrendService(repo, services.TrendServiceConfig{}))
	if err := w.RebuildAll(context.Background()); err == nil {
		t.Fatal("expected the store error to be returned")
	}
}

func TestSnapshotWorker_RunStopsWithContext(t *testing.T) {
	repo := newRepo(t)
	w := NewSnapshotWorker(repo, services.NewTrendService(repo, services.TrendServiceConfig{}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx, time.Hour)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
