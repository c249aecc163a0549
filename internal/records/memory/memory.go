// Package memory keeps financial records in process memory. It backs local
// development and tests, optionally seeded from JSON exports.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"lifedash/internal/core"
	"lifedash/internal/records"
)

type Store struct {
	mu        sync.RWMutex
	logs      []core.FinancialLog
	balances  []core.FinancialBalance
	paychecks []core.PaycheckInfo
	now       func() time.Time
}

var _ records.Backend = (*Store)(nil)

func New() *Store {
	return &Store{now: time.Now}
}

// NewFromDir seeds a store from <dir>/financial_logs.json,
// financial_balances.json and paycheck_info.json. Missing files are
// skipped; malformed ones are an error.
func NewFromDir(dir string) (*Store, error) {
	s := New()
	if dir == "" {
		return s, nil
	}
	if err := readSeed(filepath.Join(dir, core.KindLogs.DatasetID()+".json"), &s.logs); err != nil {
		return nil, err
	}
	if err := readSeed(filepath.Join(dir, core.KindBalances.DatasetID()+".json"), &s.balances); err != nil {
		return nil, err
	}
	if err := readSeed(filepath.Join(dir, core.KindPaycheck.DatasetID()+".json"), &s.paychecks); err != nil {
		return nil, err
	}
	return s, nil
}

func readSeed(path string, dst any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read seed %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode seed %s: %w", path, err)
	}
	return nil
}

func (s *Store) ListLogs(_ context.Context) ([]core.FinancialLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.FinancialLog(nil), s.logs...), nil
}

func (s *Store) ListBalances(_ context.Context) ([]core.FinancialBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.FinancialBalance(nil), s.balances...), nil
}

func (s *Store) ListPaychecks(_ context.Context) ([]core.PaycheckInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.PaycheckInfo(nil), s.paychecks...), nil
}

func (s *Store) CreateLog(_ context.Context, l core.FinancialLog) (core.FinancialLog, error) {
	if err := l.Validate(); err != nil {
		return l, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID, l.CreatedAt, l.LastModified = s.stamp(l.ID)
	s.logs = append(s.logs, l)
	return l, nil
}

func (s *Store) CreateBalance(_ context.Context, b core.FinancialBalance) (core.FinancialBalance, error) {
	if err := b.Validate(); err != nil {
		return b, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID, b.CreatedAt, b.LastModified = s.stamp(b.ID)
	s.balances = append(s.balances, b)
	return b, nil
}

func (s *Store) CreatePaycheck(_ context.Context, p core.PaycheckInfo) (core.PaycheckInfo, error) {
	if err := p.Validate(); err != nil {
		return p, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID, p.CreatedAt, p.LastModified = s.stamp(p.ID)
	s.paychecks = append(s.paychecks, p)
	return p, nil
}

func (s *Store) stamp(id string) (string, time.Time, time.Time) {
	if id == "" {
		id = core.NewID()
	}
	now := s.now().UTC()
	return id, now, now
}

// Delete removes the record with id from the kind's collection.
func (s *Store) Delete(_ context.Context, kind core.RecordKind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch kind {
	case core.KindLogs:
		for i := range s.logs {
			if s.logs[i].ID == id {
				s.logs = append(s.logs[:i], s.logs[i+1:]...)
				return nil
			}
		}
	case core.KindBalances:
		for i := range s.balances {
			if s.balances[i].ID == id {
				s.balances = append(s.balances[:i], s.balances[i+1:]...)
				return nil
			}
		}
	case core.KindPaycheck:
		for i := range s.paychecks {
			if s.paychecks[i].ID == id {
				s.paychecks = append(s.paychecks[:i], s.paychecks[i+1:]...)
				return nil
			}
		}
	default:
		return fmt.Errorf("delete record: %w: %q", core.ErrUnknownKind, kind)
	}
	return fmt.Errorf("delete %s %s: %w", kind, id, records.ErrNotFound)
}
