package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"lifedash/internal/core"
	"lifedash/internal/records"

	_ "modernc.org/sqlite"
)

// ErrNotFound is the records sentinel, re-exported for snapshot lookups.
var ErrNotFound = records.ErrNotFound

const timestampLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var _ records.Backend = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; sqlite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := migrateSchema(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("SQLite schema ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListLogs implements records.LogReader
func (r *SQLiteRepository) ListLogs(ctx context.Context) ([]core.FinancialLog, error) {
	rows, err := r.queries.ListFinancialLogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list financial logs: %w", err)
	}
	out := make([]core.FinancialLog, 0, len(rows))
	for _, row := range rows {
		amount, ok := parseStoredAmount(ctx, core.KindLogs, row.ID, row.Amount)
		if !ok {
			continue
		}
		out = append(out, core.FinancialLog{
			ID:           row.ID,
			Date:         row.Date,
			Amount:       amount,
			Description:  row.Description,
			Category:     row.Category,
			Tags:         row.Tags,
			CreatedAt:    parseTimestamp(row.CreatedAt),
			LastModified: parseTimestamp(row.LastModified),
		})
	}
	return out, nil
}

// ListBalances implements records.BalanceReader
func (r *SQLiteRepository) ListBalances(ctx context.Context) ([]core.FinancialBalance, error) {
	rows, err := r.queries.ListFinancialBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("list financial balances: %w", err)
	}
	out := make([]core.FinancialBalance, 0, len(rows))
	for _, row := range rows {
		amount, ok := parseStoredAmount(ctx, core.KindBalances, row.ID, row.Amount)
		if !ok {
			continue
		}
		out = append(out, core.FinancialBalance{
			ID:           row.ID,
			Date:         row.Date,
			Amount:       amount,
			AccountName:  row.AccountName,
			AccountType:  row.AccountType,
			AccountOwner: row.AccountOwner,
			CreatedAt:    parseTimestamp(row.CreatedAt),
			LastModified: parseTimestamp(row.LastModified),
		})
	}
	return out, nil
}

// ListPaychecks implements records.PaycheckReader
func (r *SQLiteRepository) ListPaychecks(ctx context.Context) ([]core.PaycheckInfo, error) {
	rows, err := r.queries.ListPaycheckInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("list paycheck info: %w", err)
	}
	out := make([]core.PaycheckInfo, 0, len(rows))
	for _, row := range rows {
		amount, ok := parseStoredAmount(ctx, core.KindPaycheck, row.ID, row.Amount)
		if !ok {
			continue
		}
		out = append(out, core.PaycheckInfo{
			ID:            row.ID,
			Date:          row.Date,
			Amount:        amount,
			Category:      row.Category,
			DeductionType: row.DeductionType,
			CreatedAt:     parseTimestamp(row.CreatedAt),
			LastModified:  parseTimestamp(row.LastModified),
		})
	}
	return out, nil
}

// CreateLog implements records.RecordWriter
func (r *SQLiteRepository) CreateLog(ctx context.Context, l core.FinancialLog) (core.FinancialLog, error) {
	if err := l.Validate(); err != nil {
		return l, err
	}
	l.ID, l.CreatedAt, l.LastModified = r.stamp(l.ID)
	if err := r.queries.CreateFinancialLog(ctx, logRow(l)); err != nil {
		return l, fmt.Errorf("create financial log: %w", err)
	}
	slog.InfoContext(ctx, "Financial log saved to SQLite", "id", l.ID, "date", l.Date, "amount", l.Amount.String(), "category", l.Category)
	return l, nil
}

// CreateBalance implements records.RecordWriter
func (r *SQLiteRepository) CreateBalance(ctx context.Context, b core.FinancialBalance) (core.FinancialBalance, error) {
	if err := b.Validate(); err != nil {
		return b, err
	}
	b.ID, b.CreatedAt, b.LastModified = r.stamp(b.ID)
	if err := r.queries.CreateFinancialBalance(ctx, balanceRow(b)); err != nil {
		return b, fmt.Errorf("create financial balance: %w", err)
	}
	slog.InfoContext(ctx, "Balance saved to SQLite", "id", b.ID, "date", b.Date, "account", b.AccountKey())
	return b, nil
}

// CreatePaycheck implements records.RecordWriter
func (r *SQLiteRepository) CreatePaycheck(ctx context.Context, p core.PaycheckInfo) (core.PaycheckInfo, error) {
	if err := p.Validate(); err != nil {
		return p, err
	}
	p.ID, p.CreatedAt, p.LastModified = r.stamp(p.ID)
	if err := r.queries.CreatePaycheckInfo(ctx, paycheckRow(p)); err != nil {
		return p, fmt.Errorf("create paycheck info: %w", err)
	}
	slog.InfoContext(ctx, "Paycheck entry saved to SQLite", "id", p.ID, "date", p.Date, "deduction_type", p.DeductionType)
	return p, nil
}

// Delete implements records.RecordWriter
func (r *SQLiteRepository) Delete(ctx context.Context, kind core.RecordKind, id string) error {
	var (
		n   int64
		err error
	)
	switch kind {
	case core.KindLogs:
		n, err = r.queries.DeleteFinancialLog(ctx, id)
	case core.KindBalances:
		n, err = r.queries.DeleteFinancialBalance(ctx, id)
	case core.KindPaycheck:
		n, err = r.queries.DeletePaycheckInfo(ctx, id)
	default:
		return fmt.Errorf("delete record: %w: %q", core.ErrUnknownKind, kind)
	}
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s %s: %w", kind, id, records.ErrNotFound)
	}
	slog.InfoContext(ctx, "Record deleted from SQLite", "kind", kind, "id", id)
	return nil
}

// IsEmpty reports whether no records of any kind are stored.
func (r *SQLiteRepository) IsEmpty(ctx context.Context) (bool, error) {
	n, err := r.queries.CountRecords(ctx)
	if err != nil {
		return false, fmt.Errorf("count records: %w", err)
	}
	return n == 0, nil
}

// Import copies every record of the datasets in a single transaction,
// keeping their ids and timestamps.
func (r *SQLiteRepository) Import(ctx context.Context, datasets ...core.Dataset) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	imported := 0
	for _, ds := range datasets {
		switch ds.Kind {
		case core.KindLogs:
			for _, l := range ds.Logs {
				l.ID, l.CreatedAt, l.LastModified = r.keepStamp(l.ID, l.CreatedAt, l.LastModified)
				if err := q.CreateFinancialLog(ctx, logRow(l)); err != nil {
					return 0, fmt.Errorf("import financial log %s: %w", l.ID, err)
				}
				imported++
			}
		case core.KindBalances:
			for _, b := range ds.Balances {
				b.ID, b.CreatedAt, b.LastModified = r.keepStamp(b.ID, b.CreatedAt, b.LastModified)
				if err := q.CreateFinancialBalance(ctx, balanceRow(b)); err != nil {
					return 0, fmt.Errorf("import financial balance %s: %w", b.ID, err)
				}
				imported++
			}
		case core.KindPaycheck:
			for _, p := range ds.Paychecks {
				p.ID, p.CreatedAt, p.LastModified = r.keepStamp(p.ID, p.CreatedAt, p.LastModified)
				if err := q.CreatePaycheckInfo(ctx, paycheckRow(p)); err != nil {
					return 0, fmt.Errorf("import paycheck info %s: %w", p.ID, err)
				}
				imported++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	slog.InfoContext(ctx, "Records imported into SQLite", "count", imported)
	return imported, nil
}

// Snapshot is a stored, precomputed trend result.
type Snapshot struct {
	Kind        core.RecordKind `json:"kind"`
	ViewMode    string          `json:"view_mode"`
	PeriodUnit  string          `json:"period_unit"`
	PeriodSize  int             `json:"period_size"`
	Payload     json.RawMessage `json:"payload"`
	RecordCount int             `json:"record_count"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// SaveSnapshot inserts or replaces the snapshot for its key.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, s Snapshot) error {
	if s.GeneratedAt.IsZero() {
		s.GeneratedAt = r.now()
	}
	err := r.queries.UpsertTrendSnapshot(ctx, TrendSnapshot{
		Kind:        string(s.Kind),
		ViewMode:    s.ViewMode,
		PeriodUnit:  s.PeriodUnit,
		PeriodSize:  int64(s.PeriodSize),
		Payload:     string(s.Payload),
		RecordCount: int64(s.RecordCount),
		GeneratedAt: s.GeneratedAt.UTC().Format(timestampLayout),
	})
	if err != nil {
		return fmt.Errorf("save trend snapshot %s/%s: %w", s.Kind, s.ViewMode, err)
	}
	return nil
}

// GetSnapshot returns the stored snapshot, or ErrNotFound.
func (r *SQLiteRepository) GetSnapshot(ctx context.Context, kind core.RecordKind, viewMode, periodUnit string, periodSize int) (Snapshot, error) {
	row, err := r.queries.GetTrendSnapshot(ctx, GetTrendSnapshotParams{
		Kind:       string(kind),
		ViewMode:   viewMode,
		PeriodUnit: periodUnit,
		PeriodSize: int64(periodSize),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("get trend snapshot %s/%s: %w", kind, viewMode, ErrNotFound)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("get trend snapshot %s/%s: %w", kind, viewMode, err)
	}
	return Snapshot{
		Kind:        core.RecordKind(row.Kind),
		ViewMode:    row.ViewMode,
		PeriodUnit:  row.PeriodUnit,
		PeriodSize:  int(row.PeriodSize),
		Payload:     json.RawMessage(row.Payload),
		RecordCount: int(row.RecordCount),
		GeneratedAt: parseTimestamp(row.GeneratedAt),
	}, nil
}

func (r *SQLiteRepository) stamp(id string) (string, time.Time, time.Time) {
	if id == "" {
		id = core.NewID()
	}
	now := r.now().UTC()
	return id, now, now
}

func (r *SQLiteRepository) keepStamp(id string, created, modified time.Time) (string, time.Time, time.Time) {
	newID, now, _ := r.stamp(id)
	if created.IsZero() {
		created = now
	}
	if modified.IsZero() {
		modified = created
	}
	return newID, created, modified
}

func logRow(l core.FinancialLog) FinancialLog {
	return FinancialLog{
		ID:           l.ID,
		Date:         l.Date,
		Amount:       l.Amount.String(),
		Description:  l.Description,
		Category:     l.Category,
		Tags:         l.Tags,
		CreatedAt:    l.CreatedAt.UTC().Format(timestampLayout),
		LastModified: l.LastModified.UTC().Format(timestampLayout),
	}
}

func balanceRow(b core.FinancialBalance) FinancialBalance {
	return FinancialBalance{
		ID:           b.ID,
		Date:         b.Date,
		Amount:       b.Amount.String(),
		AccountName:  b.AccountName,
		AccountType:  b.AccountType,
		AccountOwner: b.AccountOwner,
		CreatedAt:    b.CreatedAt.UTC().Format(timestampLayout),
		LastModified: b.LastModified.UTC().Format(timestampLayout),
	}
}

func paycheckRow(p core.PaycheckInfo) PaycheckInfo {
	return PaycheckInfo{
		ID:            p.ID,
		Date:          p.Date,
		Amount:        p.Amount.String(),
		Category:      p.Category,
		DeductionType: p.DeductionType,
		CreatedAt:     p.CreatedAt.UTC().Format(timestampLayout),
		LastModified:  p.LastModified.UTC().Format(timestampLayout),
	}
}

// Rows with a corrupt amount are skipped, like records with bad dates.
func parseStoredAmount(ctx context.Context, kind core.RecordKind, id, s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		slog.WarnContext(ctx, "Skipping record with unreadable amount", "kind", kind, "id", id, "amount", s)
		return decimal.Zero, false
	}
	return d, true
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
