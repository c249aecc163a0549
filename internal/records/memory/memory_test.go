package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"lifedash/internal/core"
	"lifedash/internal/records"
)

func TestMemoryStoreCreateAndList(t *testing.T) {
	s := New()
	ctx := context.Background()

	l, err := s.CreateLog(ctx, core.FinancialLog{Date: "2024-01-15", Amount: decimal.NewFromInt(-50), Category: "Food"})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if l.ID == "" || l.CreatedAt.IsZero() || !l.CreatedAt.Equal(l.LastModified) {
		t.Fatalf("expected id and timestamps to be stamped, got %+v", l)
	}

	if _, err := s.CreateLog(ctx, core.FinancialLog{Date: "yesterday", Category: "Food"}); !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected invalid date error, got %v", err)
	}
	if _, err := s.CreateBalance(ctx, core.FinancialBalance{Date: "2024-01-15"}); !errors.Is(err, core.ErrEmptyAccountName) {
		t.Fatalf("expected empty account name error, got %v", err)
	}
	if _, err := s.CreatePaycheck(ctx, core.PaycheckInfo{Date: "2024-01-15", DeductionType: "federal", ID: "fixed"}); err != nil {
		t.Fatalf("unexpected paycheck error: %v", err)
	}

	logs, _ := s.ListLogs(ctx)
	if len(logs) != 1 {
		t.Fatalf("expected 1 log, got %d", len(logs))
	}
	paychecks, _ := s.ListPaychecks(ctx)
	if len(paychecks) != 1 || paychecks[0].ID != "fixed" {
		t.Fatalf("expected caller id to be kept, got %+v", paychecks)
	}

	logs[0].Category = "mutated"
	again, _ := s.ListLogs(ctx)
	if again[0].Category != "Food" {
		t.Fatal("list must return a copy")
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	s := New()
	ctx := context.Background()
	b, err := s.CreateBalance(ctx, core.FinancialBalance{Date: "2024-02-01", AccountName: "Everyday", Amount: decimal.NewFromInt(10)})
	if err != nil {
		t.Fatalf("create balance: %v", err)
	}

	if err := s.Delete(ctx, core.KindBalances, b.ID); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	if err := s.Delete(ctx, core.KindBalances, b.ID); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.Delete(ctx, "assets", "x"); !errors.Is(err, core.ErrUnknownKind) {
		t.Fatalf("expected unknown kind, got %v", err)
	}
}

func TestNewFromDirSeeds(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFromDir(dir)
	if err != nil {
		t.Fatalf("missing seeds should not fail: %v", err)
	}
	if logs, _ := s.ListLogs(context.Background()); len(logs) != 0 {
		t.Fatalf("expected empty store, got %d logs", len(logs))
	}

	logs := `[{"id":"1","date":"2024-01-15","amount":-50,"category":"Food"},{"id":"2","date":"2024-01-20","amount":"1000.00","category":"Salary","tags":"work"}]`
	balances := `[{"id":"b1","date":"2024-01-31","amount":1500.25,"account_name":"Everyday","account_type":"checking","account_owner":"alex"}]`
	if err := os.WriteFile(filepath.Join(dir, "financial_logs.json"), []byte(logs), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "financial_balances.json"), []byte(balances), 0644); err != nil {
		t.Fatal(err)
	}

	s, err = NewFromDir(dir)
	if err != nil {
		t.Fatalf("unexpected seed error: %v", err)
	}
	gotLogs, _ := s.ListLogs(context.Background())
	if len(gotLogs) != 2 || !gotLogs[1].Amount.Equal(decimal.NewFromInt(1000)) || gotLogs[1].Tags != "work" {
		t.Fatalf("unexpected seeded logs %+v", gotLogs)
	}
	gotBalances, _ := s.ListBalances(context.Background())
	if len(gotBalances) != 1 || gotBalances[0].AccountOwner != "alex" {
		t.Fatalf("unexpected seeded balances %+v", gotBalances)
	}

	if err := os.WriteFile(filepath.Join(dir, "paycheck_info.json"), []byte(`{not json`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFromDir(dir); err == nil {
		t.Fatal("expected malformed seed to fail")
	}
}

func TestLoadDataset(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.CreateLog(ctx, core.FinancialLog{Date: "2024-01-15", Category: "Food"}); err != nil {
		t.Fatal(err)
	}

	ds, err := records.Load(ctx, s, core.KindLogs)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if ds.Kind != core.KindLogs || ds.Len() != 1 {
		t.Fatalf("unexpected dataset %+v", ds)
	}
	if _, err := records.Load(ctx, s, "stocks"); !errors.Is(err, core.ErrUnknownKind) {
		t.Fatalf("expected unknown kind, got %v", err)
	}
}
