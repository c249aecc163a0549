// Package records defines the ports through which financial records are
// read and written, independent of where they are stored.
package records

import (
	"context"
	"errors"
	"fmt"

	"lifedash/internal/core"
)

var (
	// ErrNotFound is returned when deleting a record that does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrReadOnly is returned by backends that cannot accept writes.
	ErrReadOnly = errors.New("backend is read-only")
)

// Ports for outbound adapters.
type (
	LogReader interface {
		ListLogs(ctx context.Context) ([]core.FinancialLog, error)
	}

	BalanceReader interface {
		ListBalances(ctx context.Context) ([]core.FinancialBalance, error)
	}

	PaycheckReader interface {
		ListPaychecks(ctx context.Context) ([]core.PaycheckInfo, error)
	}

	// Reader lists every kind of record.
	Reader interface {
		LogReader
		BalanceReader
		PaycheckReader
	}

	// RecordWriter persists new records and removes existing ones. Create
	// methods return the stored record with its id and timestamps filled in.
	RecordWriter interface {
		CreateLog(ctx context.Context, l core.FinancialLog) (core.FinancialLog, error)
		CreateBalance(ctx context.Context, b core.FinancialBalance) (core.FinancialBalance, error)
		CreatePaycheck(ctx context.Context, p core.PaycheckInfo) (core.PaycheckInfo, error)
		Delete(ctx context.Context, kind core.RecordKind, id string) error
	}

	Backend interface {
		Reader
		RecordWriter
	}
)

// Load reads every record of kind into a dataset.
func Load(ctx context.Context, r Reader, kind core.RecordKind) (core.Dataset, error) {
	ds := core.Dataset{Kind: kind}
	var err error
	switch kind {
	case core.KindLogs:
		ds.Logs, err = r.ListLogs(ctx)
	case core.KindBalances:
		ds.Balances, err = r.ListBalances(ctx)
	case core.KindPaycheck:
		ds.Paychecks, err = r.ListPaychecks(ctx)
	default:
		return ds, fmt.Errorf("load records: %w: %q", core.ErrUnknownKind, kind)
	}
	if err != nil {
		return ds, fmt.Errorf("load %s: %w", kind, err)
	}
	return ds, nil
}
