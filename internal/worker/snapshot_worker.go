package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"lifedash/internal/amqp"
	"lifedash/internal/core"
	applog "lifedash/internal/log"
	"lifedash/internal/services"
	"lifedash/internal/storage"
	"lifedash/internal/trend"
)

// SnapshotStore persists precomputed trend results.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, s storage.Snapshot) error
}

// Trends computes the series a snapshot stores.
type Trends interface {
	Trend(ctx context.Context, q services.TrendQuery) (services.TrendReport, error)
	Invalidate(kind core.RecordKind)
}

// SnapshotWorker keeps the default trend views of every dataset stored so
// dashboards can read them without aggregating.
type SnapshotWorker struct {
	store  SnapshotStore
	trends Trends
	views  []trend.ViewMode
}

func NewSnapshotWorker(store SnapshotStore, trends Trends) *SnapshotWorker {
	return &SnapshotWorker{
		store:  store,
		trends: trends,
		views:  []trend.ViewMode{trend.Separate, trend.Net},
	}
}

// HandleRecordChanged rebuilds the snapshots of the dataset a message names.
func (w *SnapshotWorker) HandleRecordChanged(ctx context.Context, msg *amqp.RecordChangedMessage) error {
	slog.InfoContext(ctx, "Processing record changed message",
		"kind", msg.Kind,
		"record_id", msg.RecordID,
		"operation", msg.Operation)

	w.trends.Invalidate(msg.Kind)
	return w.RebuildKind(ctx, msg.Kind)
}

// RebuildKind stores one snapshot per view mode, computed in parallel.
func (w *SnapshotWorker) RebuildKind(ctx context.Context, kind core.RecordKind) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, view := range w.views {
		g.Go(func() error {
			return w.rebuild(ctx, kind, view)
		})
	}
	return g.Wait()
}

// RebuildAll refreshes the snapshots of every dataset. Each kind is read
// fresh so snapshots never lag a message lost while the worker was down.
func (w *SnapshotWorker) RebuildAll(ctx context.Context) error {
	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for _, kind := range core.Kinds() {
		w.trends.Invalidate(kind)
		g.Go(func() error {
			return w.RebuildKind(ctx, kind)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Trend snapshots rebuilt",
		"kinds", len(core.Kinds()),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (w *SnapshotWorker) rebuild(ctx context.Context, kind core.RecordKind, view trend.ViewMode) error {
	opts := trend.DefaultOptions()
	opts.ViewMode = view

	report, err := w.trends.Trend(ctx, services.TrendQuery{Kind: kind, Options: opts})
	if err != nil {
		return fmt.Errorf("aggregate %s/%s: %w", kind, view, err)
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode %s/%s snapshot: %w", kind, view, err)
	}

	err = w.store.SaveSnapshot(ctx, storage.Snapshot{
		Kind:        kind,
		ViewMode:    string(view),
		PeriodUnit:  string(opts.PeriodUnit),
		PeriodSize:  opts.PeriodSize,
		Payload:     payload,
		RecordCount: report.RecordCount,
	})
	if err != nil {
		return err
	}

	fields := applog.NewFields().
		WithTrend(kind.String(), opts.PeriodSize, string(opts.PeriodUnit), string(view), len(report.Rows), len(report.Groups)).
		WithOperation(applog.OpSnapshot)
	slog.DebugContext(ctx, "Trend snapshot stored", fields.ToSlice()...)
	return nil
}

// Run rebuilds everything once, then again on every tick until ctx is done.
// Failed rebuilds are logged and retried on the next tick.
func (w *SnapshotWorker) Run(ctx context.Context, interval time.Duration) {
	if err := w.RebuildAll(ctx); err != nil && ctx.Err() == nil {
		slog.ErrorContext(ctx, "Initial snapshot rebuild failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Snapshot worker stopped")
			return
		case <-ticker.C:
			if err := w.RebuildAll(ctx); err != nil && ctx.Err() == nil {
				slog.ErrorContext(ctx, "Periodic snapshot rebuild failed", "error", err)
			}
		}
	}
}
