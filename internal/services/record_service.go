package services

import (
	"context"
	"fmt"
	"log/slog"

	"lifedash/internal/core"
	applog "lifedash/internal/log"
	"lifedash/internal/records"
)

// Publisher announces record changes to other processes.
type Publisher interface {
	PublishRecordChanged(ctx context.Context, kind core.RecordKind, id, operation string) error
}

// Notifier tells connected dashboards that a dataset changed.
type Notifier interface {
	NotifyRecordsChanged(kind core.RecordKind, operation string)
}

// Invalidator drops cached results derived from a dataset.
type Invalidator interface {
	Invalidate(kind core.RecordKind)
}

// RecordService orchestrates record writes: the backend stores them, then
// caches are invalidated and the change is fanned out. Fan-out failures
// are logged and never fail the write.
type RecordService struct {
	backend     records.Backend
	publisher   Publisher
	notifier    Notifier
	invalidator Invalidator
}

type RecordOption func(*RecordService)

func WithPublisher(p Publisher) RecordOption {
	return func(s *RecordService) { s.publisher = p }
}

func WithNotifier(n Notifier) RecordOption {
	return func(s *RecordService) { s.notifier = n }
}

func WithInvalidator(i Invalidator) RecordOption {
	return func(s *RecordService) { s.invalidator = i }
}

func NewRecordService(backend records.Backend, opts ...RecordOption) *RecordService {
	s := &RecordService{backend: backend}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every record of kind.
func (s *RecordService) List(ctx context.Context, kind core.RecordKind) (core.Dataset, error) {
	return records.Load(ctx, s.backend, kind)
}

func (s *RecordService) CreateLog(ctx context.Context, l core.FinancialLog) (core.FinancialLog, error) {
	created, err := s.backend.CreateLog(ctx, l)
	if err != nil {
		return core.FinancialLog{}, fmt.Errorf("create financial log: %w", err)
	}
	s.changed(ctx, core.KindLogs, created.ID, applog.OpCreate)
	return created, nil
}

func (s *RecordService) CreateBalance(ctx context.Context, b core.FinancialBalance) (core.FinancialBalance, error) {
	created, err := s.backend.CreateBalance(ctx, b)
	if err != nil {
		return core.FinancialBalance{}, fmt.Errorf("create financial balance: %w", err)
	}
	s.changed(ctx, core.KindBalances, created.ID, applog.OpCreate)
	return created, nil
}

func (s *RecordService) CreatePaycheck(ctx context.Context, p core.PaycheckInfo) (core.PaycheckInfo, error) {
	created, err := s.backend.CreatePaycheck(ctx, p)
	if err != nil {
		return core.PaycheckInfo{}, fmt.Errorf("create paycheck info: %w", err)
	}
	s.changed(ctx, core.KindPaycheck, created.ID, applog.OpCreate)
	return created, nil
}

// Delete removes one record. Unknown ids surface as records.ErrNotFound.
func (s *RecordService) Delete(ctx context.Context, kind core.RecordKind, id string) error {
	if !kind.Valid() {
		return fmt.Errorf("delete record: %w: %q", core.ErrUnknownKind, kind)
	}
	if err := s.backend.Delete(ctx, kind, id); err != nil {
		return fmt.Errorf("delete %s record %s: %w", kind, id, err)
	}
	s.changed(ctx, kind, id, applog.OpDelete)
	return nil
}

func (s *RecordService) changed(ctx context.Context, kind core.RecordKind, id, op string) {
	logger := applog.FromContext(ctx).WithComponent(applog.ComponentRecords)
	applog.NewStructuredLogger(logger).LogRecordChanged(ctx, op, kind.String(), id)

	if s.invalidator != nil {
		s.invalidator.Invalidate(kind)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishRecordChanged(ctx, kind, id, op); err != nil {
			slog.ErrorContext(ctx, "Failed to publish record changed message",
				"kind", kind, "record_id", id, "error", err)
		}
	}
	if s.notifier != nil {
		s.notifier.NotifyRecordsChanged(kind, op)
	}
}
