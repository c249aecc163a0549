package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const listFinancialLogs = `
SELECT id, date, amount, description, category, tags, created_at, last_modified
FROM financial_logs
ORDER BY rowid
`

func (q *Queries) ListFinancialLogs(ctx context.Context) ([]FinancialLog, error) {
	rows, err := q.db.QueryContext(ctx, listFinancialLogs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FinancialLog
	for rows.Next() {
		var i FinancialLog
		if err := rows.Scan(&i.ID, &i.Date, &i.Amount, &i.Description, &i.Category, &i.Tags, &i.CreatedAt, &i.LastModified); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createFinancialLog = `
INSERT INTO financial_logs (id, date, amount, description, category, tags, created_at, last_modified)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateFinancialLog(ctx context.Context, arg FinancialLog) error {
	_, err := q.db.ExecContext(ctx, createFinancialLog,
		arg.ID, arg.Date, arg.Amount, arg.Description, arg.Category, arg.Tags, arg.CreatedAt, arg.LastModified)
	return err
}

const deleteFinancialLog = `DELETE FROM financial_logs WHERE id = ?`

func (q *Queries) DeleteFinancialLog(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteFinancialLog, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listFinancialBalances = `
SELECT id, date, amount, account_name, account_type, account_owner, created_at, last_modified
FROM financial_balances
ORDER BY rowid
`

func (q *Queries) ListFinancialBalances(ctx context.Context) ([]FinancialBalance, error) {
	rows, err := q.db.QueryContext(ctx, listFinancialBalances)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FinancialBalance
	for rows.Next() {
		var i FinancialBalance
		if err := rows.Scan(&i.ID, &i.Date, &i.Amount, &i.AccountName, &i.AccountType, &i.AccountOwner, &i.CreatedAt, &i.LastModified); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createFinancialBalance = `
INSERT INTO financial_balances (id, date, amount, account_name, account_type, account_owner, created_at, last_modified)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateFinancialBalance(ctx context.Context, arg FinancialBalance) error {
	_, err := q.db.ExecContext(ctx, createFinancialBalance,
		arg.ID, arg.Date, arg.Amount, arg.AccountName, arg.AccountType, arg.AccountOwner, arg.CreatedAt, arg.LastModified)
	return err
}

const deleteFinancialBalance = `DELETE FROM financial_balances WHERE id = ?`

func (q *Queries) DeleteFinancialBalance(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteFinancialBalance, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listPaycheckInfo = `
SELECT id, date, amount, category, deduction_type, created_at, last_modified
FROM paycheck_info
ORDER BY rowid
`

func (q *Queries) ListPaycheckInfo(ctx context.Context) ([]PaycheckInfo, error) {
	rows, err := q.db.QueryContext(ctx, listPaycheckInfo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PaycheckInfo
	for rows.Next() {
		var i PaycheckInfo
		if err := rows.Scan(&i.ID, &i.Date, &i.Amount, &i.Category, &i.DeductionType, &i.CreatedAt, &i.LastModified); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createPaycheckInfo = `
INSERT INTO paycheck_info (id, date, amount, category, deduction_type, created_at, last_modified)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreatePaycheckInfo(ctx context.Context, arg PaycheckInfo) error {
	_, err := q.db.ExecContext(ctx, createPaycheckInfo,
		arg.ID, arg.Date, arg.Amount, arg.Category, arg.DeductionType, arg.CreatedAt, arg.LastModified)
	return err
}

const deletePaycheckInfo = `DELETE FROM paycheck_info WHERE id = ?`

func (q *Queries) DeletePaycheckInfo(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deletePaycheckInfo, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const countRecords = `
SELECT (SELECT COUNT(*) FROM financial_logs)
     + (SELECT COUNT(*) FROM financial_balances)
     + (SELECT COUNT(*) FROM paycheck_info)
`

func (q *Queries) CountRecords(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countRecords).Scan(&n)
	return n, err
}

const upsertTrendSnapshot = `
INSERT INTO trend_snapshots (kind, view_mode, period_unit, period_size, payload, record_count, generated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (kind, view_mode, period_unit, period_size) DO UPDATE SET
    payload      = excluded.payload,
    record_count = excluded.record_count,
    generated_at = excluded.generated_at
`

func (q *Queries) UpsertTrendSnapshot(ctx context.Context, arg TrendSnapshot) error {
	_, err := q.db.ExecContext(ctx, upsertTrendSnapshot,
		arg.Kind, arg.ViewMode, arg.PeriodUnit, arg.PeriodSize, arg.Payload, arg.RecordCount, arg.GeneratedAt)
	return err
}

const getTrendSnapshot = `
SELECT kind, view_mode, period_unit, period_size, payload, record_count, generated_at
FROM trend_snapshots
WHERE kind = ? AND view_mode = ? AND period_unit = ? AND period_size = ?
`

type GetTrendSnapshotParams struct {
	Kind       string
	ViewMode   string
	PeriodUnit string
	PeriodSize int64
}

func (q *Queries) GetTrendSnapshot(ctx context.Context, arg GetTrendSnapshotParams) (TrendSnapshot, error) {
	row := q.db.QueryRowContext(ctx, getTrendSnapshot, arg.Kind, arg.ViewMode, arg.PeriodUnit, arg.PeriodSize)
	var i TrendSnapshot
	err := row.Scan(&i.Kind, &i.ViewMode, &i.PeriodUnit, &i.PeriodSize, &i.Payload, &i.RecordCount, &i.GeneratedAt)
	return i, err
}
