package storage

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"lifedash/internal/core"
	"lifedash/internal/records"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_CreateAndList(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.CreateLog(ctx, core.FinancialLog{
		Date:        "2024-01-15",
		Amount:      decimal.RequireFromString("-50.25"),
		Description: "Groceries",
		Category:    "Food",
		Tags:        "weekly",
	})
	if err != nil {
		t.Fatalf("CreateLog() error = %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamps, got %+v", created)
	}
	if _, err := repo.CreateLog(ctx, core.FinancialLog{Date: "2024-01-16", Amount: decimal.NewFromInt(1000), Category: "Salary"}); err != nil {
		t.Fatalf("CreateLog() error = %v", err)
	}

	logs, err := repo.ListLogs(ctx)
	if err != nil {
		t.Fatalf("ListLogs() error = %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(logs))
	}
	got := logs[0]
	if got.ID != created.ID || !got.Amount.Equal(decimal.RequireFromString("-50.25")) || got.Tags != "weekly" || got.Description != "Groceries" {
		t.Fatalf("unexpected round trip %+v", got)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("timestamps differ: %v vs %v", got.CreatedAt, created.CreatedAt)
	}

	if _, err := repo.CreateBalance(ctx, core.FinancialBalance{
		Date: "2024-01-31", Amount: decimal.RequireFromString("1500.10"),
		AccountName: "Everyday", AccountType: "checking", AccountOwner: "alex",
	}); err != nil {
		t.Fatalf("CreateBalance() error = %v", err)
	}
	balances, err := repo.ListBalances(ctx)
	if err != nil || len(balances) != 1 || balances[0].AccountKey() != "Everyday-checking-alex" {
		t.Fatalf("unexpected balances %+v err=%v", balances, err)
	}

	if _, err := repo.CreatePaycheck(ctx, core.PaycheckInfo{
		Date: "2024-01-31", Amount: decimal.NewFromInt(-300), Category: "Tax", DeductionType: "federal",
	}); err != nil {
		t.Fatalf("CreatePaycheck() error = %v", err)
	}
	paychecks, err := repo.ListPaychecks(ctx)
	if err != nil || len(paychecks) != 1 || paychecks[0].DeductionType != "federal" {
		t.Fatalf("unexpected paychecks %+v err=%v", paychecks, err)
	}
}

func TestSQLiteRepository_CreateValidates(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if _, err := repo.CreateLog(ctx, core.FinancialLog{Date: "someday", Category: "Food"}); !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected invalid date, got %v", err)
	}
	if _, err := repo.CreatePaycheck(ctx, core.PaycheckInfo{Date: "2024-01-01"}); !errors.Is(err, core.ErrEmptyDeduction) {
		t.Fatalf("expected empty deduction, got %v", err)
	}
	if _, err := repo.CreateLog(ctx, core.FinancialLog{ID: "dup", Date: "2024-01-01", Category: "Food"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.CreateLog(ctx, core.FinancialLog{ID: "dup", Date: "2024-01-01", Category: "Food"}); err == nil {
		t.Fatal("expected duplicate id to fail")
	}
}

func TestSQLiteRepository_Delete(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	p, err := repo.CreatePaycheck(ctx, core.PaycheckInfo{Date: "2024-01-31", DeductionType: "state"})
	if err != nil {
		t.Fatalf("CreatePaycheck() error = %v", err)
	}
	if err := repo.Delete(ctx, core.KindPaycheck, p.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, core.KindPaycheck, p.ID); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := repo.Delete(ctx, "bogus", "x"); !errors.Is(err, core.ErrUnknownKind) {
		t.Fatalf("expected unknown kind, got %v", err)
	}
}

func TestSQLiteRepository_Import(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	empty, err := repo.IsEmpty(ctx)
	if err != nil || !empty {
		t.Fatalf("expected empty database, got %v err=%v", empty, err)
	}

	created := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	n, err := repo.Import(ctx,
		core.Dataset{Kind: core.KindLogs, Logs: []core.FinancialLog{
			{ID: "l1", Date: "2024-01-01", Amount: decimal.NewFromInt(5), Category: "Gift", CreatedAt: created},
			{Date: "not validated on import", Amount: decimal.NewFromInt(1)},
		}},
		core.Dataset{Kind: core.KindBalances, Balances: []core.FinancialBalance{
			{ID: "b1", Date: "2024-01-01", Amount: decimal.NewFromInt(10), AccountName: "Everyday"},
		}},
	)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 imported, got %d", n)
	}

	logs, _ := repo.ListLogs(ctx)
	if len(logs) != 2 || logs[0].ID != "l1" || !logs[0].CreatedAt.Equal(created) || !logs[0].LastModified.Equal(created) {
		t.Fatalf("unexpected imported logs %+v", logs)
	}
	if logs[1].ID == "" {
		t.Fatal("expected an id to be generated for imported records without one")
	}

	if _, err := repo.Import(ctx, core.Dataset{Kind: core.KindLogs, Logs: []core.FinancialLog{
		{ID: "l2", Date: "2024-01-02"},
		{ID: "l1", Date: "2024-01-03"},
	}}); err == nil {
		t.Fatal("expected duplicate import to fail")
	}
	logs, _ = repo.ListLogs(ctx)
	if len(logs) != 2 {
		t.Fatalf("failed import must roll back, got %d logs", len(logs))
	}
}

func TestSQLiteRepository_Snapshots(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if _, err := repo.GetSnapshot(ctx, core.KindLogs, "net", "month", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	first := Snapshot{
		Kind:        core.KindLogs,
		ViewMode:    "net",
		PeriodUnit:  "month",
		PeriodSize:  1,
		Payload:     json.RawMessage(`{"rows":[]}`),
		RecordCount: 0,
	}
	if err := repo.SaveSnapshot(ctx, first); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}
	second := first
	second.Payload = json.RawMessage(`{"rows":[{"period":"Jan 2024"}]}`)
	second.RecordCount = 3
	second.GeneratedAt = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.SaveSnapshot(ctx, second); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	got, err := repo.GetSnapshot(ctx, core.KindLogs, "net", "month", 1)
	if err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}
	if string(got.Payload) != string(second.Payload) || got.RecordCount != 3 || !got.GeneratedAt.Equal(second.GeneratedAt) {
		t.Fatalf("unexpected snapshot %+v", got)
	}
}

func TestMigrateSchema_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.db")

	for i := 0; i < 2; i++ {
		version, err := migrateSchema(path)
		if err != nil {
			t.Fatalf("migrateSchema() run %d error = %v", i+1, err)
		}
		if version != 2 {
			t.Fatalf("migrateSchema() run %d version = %d, want 2", i+1, version)
		}
	}
}
